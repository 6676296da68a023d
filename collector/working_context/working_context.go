package working_context

import (
	"fmt"

	"github.com/gocolly/colly"
	"github.com/mmcdole/gofeed"

	"github.com/Luismorlan/infoflow/model"
)

// SharedContext is carried by every record an adapter emits, so Normalize
// knows which source the record belongs to.
type SharedContext struct {
	Source *model.Source
}

// This is the context we keep for a record crawled from a html page
type CrawlerWorkingContext struct {
	SharedContext

	Element *colly.HTMLElement
	PageUrl string
	// Selectors decoded from the source config.
	Params interface{}
}

// This is the context we keep for a record returned by a json api
type ApiCollectorWorkingContext struct {
	SharedContext

	ApiUrl          string
	ApiResponseItem interface{}
}

// This is the context we keep for a record of a syndication feed
type RssCollectorWorkingContext struct {
	SharedContext

	RssUrl          string
	Feed            *gofeed.Feed
	RssResponseItem *gofeed.Item
}

func (sc *SharedContext) String() string {
	if sc.Source == nil {
		return "SharedContext: <no source>"
	}
	return fmt.Sprintf("SharedContext: source %s (%s)", sc.Source.Name, sc.Source.Platform)
}
