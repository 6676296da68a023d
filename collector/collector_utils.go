package collector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/gocolly/colly"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

var multiNewline = regexp.MustCompile(`\n{3,}`)

// ParamsValidator is implemented by every typed platform params struct.
type ParamsValidator interface {
	Validate() error
}

// DecodeParams decodes the source config into the typed params of the
// platform. Malformed or invalid config is a non-retryable FetchError.
func DecodeParams(source *model.Source, out ParamsValidator) error {
	if len(source.Config) > 0 {
		if err := json.Unmarshal(source.Config, out); err != nil {
			return NewFetchError(source.Platform, FetchErrorConfig,
				errors.Wrapf(err, "fail to decode config of source %s", source.Id))
		}
	}
	if err := out.Validate(); err != nil {
		return NewFetchError(source.Platform, FetchErrorConfig,
			errors.Wrapf(err, "invalid config of source %s", source.Id))
	}
	return nil
}

// RetryOnce runs fn and retries it a single time, immediately, when the
// failure is retryable. Any further retry is the job runner's decision.
func RetryOnce(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !IsRetryable(err) || ctx.Err() != nil {
		return err
	}
	Logger.Log.WithFields(logrus.Fields{"error": err.Error()}).Warn("retrying fetch once")
	return fn()
}

func LogAdapterError(source *model.Source, err error, moreInfo string) {
	Logger.Log.WithFields(
		logrus.Fields{"source": source.Id, "platform": source.Platform},
	).Error(fmt.Sprintf("Error in adapter. [Source] %s. [Error] %s. [More Info] %s", source.Name, err.Error(), moreInfo))
}

func HtmlToText(html string) (string, error) {
	reader := strings.NewReader(html)
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", errors.Wrap(err, "fail to convert rich-html text to node")
	}
	// goquery Text() will not replace br with newline
	doc.Find("br").AfterHtml("\n")
	doc.Find("p").AfterHtml("\n")
	text := strings.TrimSpace(doc.Text())
	return multiNewline.ReplaceAllString(text, "\n\n"), nil
}

// ImageUrlsFromHtml collects src of img nodes in an html fragment.
func ImageUrlsFromHtml(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	res := []string{}
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			res = append(res, src)
		}
	})
	return res
}

// ParseTimeLoose parses timestamps in any of the common layouts, interpreted
// as UTC when no zone is given.
func ParseTimeLoose(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty time string")
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "fail to parse time %q", value)
	}
	return t.UTC(), nil
}

func TextToMd5Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CompareNumericIds orders decimal ids of arbitrary length, returns -1, 0, 1.
func CompareNumericIds(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func CustomizedCrawlerExtractPlainText(selector string, elem *colly.HTMLElement, defaultValue string) string {
	if selector == "" {
		return defaultValue
	}
	str := strings.TrimSpace(elem.DOM.Find(selector).Text())
	if str == "" {
		return defaultValue
	}
	return str
}

func CustomizedCrawlerExtractAttribute(selector string, elem *colly.HTMLElement, defaultValue string, attribute string) string {
	if selector == "" {
		return defaultValue
	}
	return elem.DOM.Find(selector).AttrOr(attribute, defaultValue)
}

func CustomizedCrawlerExtractMultiAttribute(selector string, elem *colly.HTMLElement, attribute string) []string {
	if selector == "" {
		return []string{}
	}
	res := []string{}
	selection := elem.DOM.Find(selector)
	for i := 0; i < selection.Length(); i++ {
		targetAttr := selection.Eq(i).AttrOr(attribute, "")
		if targetAttr != "" {
			res = append(res, strings.Split(targetAttr, "?")[0])
		}
	}
	return res
}

func ConcateUrlBaseAndRelativePath(base string, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	for strings.HasSuffix(base, "/") {
		base = base[:len(base)-1]
	}
	for strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	return base + "/" + path
}

func DefaultCrawlerHeader() map[string]string {
	return map[string]string{
		"user-agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
	}
}

func PrettyPrint(data interface{}) string {
	p, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s \n", p)
}
