package clients

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/Luismorlan/infoflow/collector"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

const defaultTimeout = 30 * time.Second

// HttpClient is a thin wrapper of http.Client that attaches default headers
// and maps transport failures and non-2xx responses to collector.FetchError.
type HttpClient struct {
	platform string
	header   http.Header
	cookies  []http.Cookie

	client *http.Client
}

func NewDefaultHttpClient(platform string) *HttpClient {
	header := http.Header{}
	for k, v := range collector.DefaultCrawlerHeader() {
		header.Set(k, v)
	}
	return NewHttpClient(platform, header, []http.Cookie{}, defaultTimeout)
}

func NewHttpClient(platform string, header http.Header, cookies []http.Cookie, timeout time.Duration) *HttpClient {
	return &HttpClient{platform: platform, header: header, cookies: cookies, client: &http.Client{Timeout: timeout}}
}

// Get returns the response of a 2xx request, the caller closes the body.
func (c *HttpClient) Get(ctx context.Context, uri string) (*http.Response, error) {
	return c.GetWithQueryParams(ctx, uri, nil)
}

// This method takes in an additional map from query key to query value, which
// will be appended to query uri as ?${KEY}=${VALUE}
func (c *HttpClient) GetWithQueryParams(ctx context.Context, uri string, params map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, collector.NewFetchError(c.platform, collector.FetchErrorConfig, err)
	}
	req.Header = c.header.Clone()
	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}
	for i := range c.cookies {
		req.AddCookie(&c.cookies[i])
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, collector.NewFetchError(c.platform, collector.FetchErrorNetwork, err)
	}

	if IsNon200HttpResponse(res) {
		MaybeLogNon200HttpError(res)
		res.Body.Close()
		return nil, collector.FetchErrorFromStatus(c.platform, res.StatusCode)
	}

	return res, nil
}

// Log http response if the error code is not 2XX
func MaybeLogNon200HttpError(res *http.Response) {
	if IsNon200HttpResponse(res) {
		Logger.Log.Errorf("non-200 http code: %d, url: %s", res.StatusCode, res.Request.URL)
		LogHttpResponseBody(res)
	}
}

func IsNon200HttpResponse(res *http.Response) bool {
	return res.StatusCode >= 300
}

func LogHttpResponseBody(res *http.Response) {
	body, err := ioutil.ReadAll(res.Body)
	if err == nil {
		Logger.Log.Errorln("response body is: ", string(body))
	}
}
