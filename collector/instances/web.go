package collector_instances

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/collector/working_context"
	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// CustomizedSourceParams describes how to cut a html page into items, all
// selectors except ItemSelector are relative to the item node.
type CustomizedSourceParams struct {
	CrawlUrl              string `json:"url"`
	ItemSelector          string `json:"item"`
	TitleSelector         string `json:"title"`
	BodySelector          string `json:"body"`
	LinkSelector          string `json:"link"`
	LinkIsRelative        bool   `json:"link_is_relative"`
	TimeSelector          string `json:"time"`
	TimeLayout            string `json:"time_layout"`
	AuthorSelector        string `json:"author"`
	ImageSelector         string `json:"image"`
	ExternalIdSelector    string `json:"external_id"`
	MaxItems              int    `json:"max_items"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

func (p *CustomizedSourceParams) Validate() error {
	if p.CrawlUrl == "" || p.ItemSelector == "" {
		return errors.New("web source requires url and item selector")
	}
	if p.BodySelector == "" && p.TitleSelector == "" {
		return errors.New("web source requires a body or title selector")
	}
	if p.MaxItems <= 0 {
		p.MaxItems = 50
	}
	if p.RequestTimeoutSeconds <= 0 {
		p.RequestTimeoutSeconds = 30
	}
	return nil
}

// CustomizedSourceCrawler crawls a single page with configurable selectors.
// Pages carry no reliable ordering, so no cursor is kept.
type CustomizedSourceCrawler struct{}

func NewCustomizedSourceCrawler() *CustomizedSourceCrawler {
	return &CustomizedSourceCrawler{}
}

func (j *CustomizedSourceCrawler) Platform() string {
	return model.PlatformWeb
}

func (j *CustomizedSourceCrawler) Fetch(ctx context.Context, source *model.Source, cursor string) (*collector.FetchResult, error) {
	params := &CustomizedSourceParams{}
	if err := collector.DecodeParams(source, params); err != nil {
		return nil, err
	}

	res := &collector.FetchResult{}
	err := collector.RetryOnce(ctx, func() error {
		res.Records = nil
		return j.crawl(ctx, source, params, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (j *CustomizedSourceCrawler) crawl(ctx context.Context, source *model.Source, params *CustomizedSourceParams, res *collector.FetchResult) error {
	if err := ctx.Err(); err != nil {
		return collector.NewFetchError(model.PlatformWeb, collector.FetchErrorNetwork, err)
	}

	var crawlErr error
	c := colly.NewCollector()
	c.SetRequestTimeout(time.Duration(params.RequestTimeoutSeconds) * time.Second)

	// each crawled card(news) will go to this
	// for each page loaded, there are multiple calls into this func
	c.OnHTML(params.ItemSelector, func(elem *colly.HTMLElement) {
		if len(res.Records) >= params.MaxItems {
			return
		}
		res.Records = append(res.Records, &working_context.CrawlerWorkingContext{
			SharedContext: working_context.SharedContext{Source: source},
			Element:       elem,
			PageUrl:       params.CrawlUrl,
			Params:        params,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		Logger.Log.WithFields(logrus.Fields{"source": source.Id}).
			Error("Request URL:", r.Request.URL, " failed with status: ", r.StatusCode, " error: ", err)
		if r.StatusCode > 0 {
			crawlErr = collector.FetchErrorFromStatus(model.PlatformWeb, r.StatusCode)
			return
		}
		crawlErr = collector.NewFetchError(model.PlatformWeb, collector.FetchErrorNetwork, err)
	})

	c.OnRequest(func(r *colly.Request) {
		for k, v := range collector.DefaultCrawlerHeader() {
			r.Headers.Set(k, v)
		}
	})

	if err := c.Visit(params.CrawlUrl); err != nil && crawlErr == nil {
		crawlErr = collector.NewFetchError(model.PlatformWeb, collector.FetchErrorConfig, err)
	}
	return crawlErr
}

func (j *CustomizedSourceCrawler) Normalize(record interface{}) (*collector.RawItem, error) {
	workingContext, ok := record.(*working_context.CrawlerWorkingContext)
	if !ok || workingContext.Element == nil {
		return nil, collector.NewParseError(model.PlatformWeb, "", "unexpected record type", nil)
	}
	params, ok := workingContext.Params.(*CustomizedSourceParams)
	if !ok {
		return nil, collector.NewParseError(model.PlatformWeb, "", "missing crawler params", nil)
	}
	elem := workingContext.Element

	title := collector.CustomizedCrawlerExtractPlainText(params.TitleSelector, elem, "")
	body := collector.CustomizedCrawlerExtractPlainText(params.BodySelector, elem, title)
	link := collector.CustomizedCrawlerExtractAttribute(params.LinkSelector, elem, "", "href")
	if link != "" && params.LinkIsRelative {
		link = collector.ConcateUrlBaseAndRelativePath(baseOf(workingContext.PageUrl), link)
	}

	nativeId := collector.CustomizedCrawlerExtractPlainText(params.ExternalIdSelector, elem, "")
	if nativeId == "" {
		nativeId = link
	}
	if nativeId == "" {
		// Dedup id falls back to the content, same content means same item.
		nativeId = collector.TextToMd5Hash(body)
	}

	published, err := j.publishedAt(params, elem)
	if err != nil {
		return nil, collector.NewParseError(model.PlatformWeb, nativeId, "unparsable time", err)
	}

	author := collector.CustomizedCrawlerExtractPlainText(params.AuthorSelector, elem, "")
	return &collector.RawItem{
		Platform:    model.PlatformWeb,
		NativeId:    nativeId,
		Title:       title,
		Body:        body,
		AuthorId:    author,
		AuthorName:  author,
		Url:         link,
		PublishedAt: published,
		Media:       collector.CustomizedCrawlerExtractMultiAttribute(params.ImageSelector, elem, "src"),
	}, nil
}

func (j *CustomizedSourceCrawler) publishedAt(params *CustomizedSourceParams, elem *colly.HTMLElement) (time.Time, error) {
	if params.TimeSelector == "" {
		return time.Time{}, errors.New("no time selector configured")
	}
	node := elem.DOM.Find(params.TimeSelector)
	raw := strings.TrimSpace(node.AttrOr("datetime", ""))
	if raw == "" {
		raw = strings.TrimSpace(node.Text())
	}
	if params.TimeLayout != "" {
		t, err := time.Parse(params.TimeLayout, raw)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	return collector.ParseTimeLoose(raw)
}

func baseOf(pageUrl string) string {
	idx := strings.Index(pageUrl, "://")
	if idx < 0 {
		return pageUrl
	}
	if slash := strings.Index(pageUrl[idx+3:], "/"); slash >= 0 {
		return pageUrl[:idx+3+slash]
	}
	return pageUrl
}
