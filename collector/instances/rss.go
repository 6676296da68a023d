package collector_instances

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/collector/clients"
	"github.com/Luismorlan/infoflow/collector/working_context"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

const (
	RssDefaultMaxEntries = 50
	RssMaxEntriesCap     = 100
)

type RssParams struct {
	Url        string `json:"url"`
	MaxEntries int    `json:"max_entries"`
}

func (p *RssParams) Validate() error {
	if p.Url == "" {
		return errors.New("rss source requires url")
	}
	if p.MaxEntries <= 0 {
		p.MaxEntries = RssDefaultMaxEntries
	}
	if p.MaxEntries > RssMaxEntriesCap {
		p.MaxEntries = RssMaxEntriesCap
	}
	return nil
}

// RssCollector fetches a syndication feed. The cursor is the publish time of
// the newest entry handed out, entries not newer than it are dropped.
type RssCollector struct {
	Client *clients.HttpClient
}

func NewRssCollector() *RssCollector {
	return &RssCollector{Client: clients.NewDefaultHttpClient(model.PlatformRSS)}
}

func (r *RssCollector) Platform() string {
	return model.PlatformRSS
}

func (r *RssCollector) Fetch(ctx context.Context, source *model.Source, cursor string) (*collector.FetchResult, error) {
	params := &RssParams{}
	if err := collector.DecodeParams(source, params); err != nil {
		return nil, err
	}

	var since time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err == nil {
			since = t
		}
	}

	var feed *gofeed.Feed
	err := collector.RetryOnce(ctx, func() error {
		resp, err := r.Client.Get(ctx, params.Url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		feed, err = gofeed.NewParser().Parse(resp.Body)
		if err != nil {
			return collector.NewFetchError(model.PlatformRSS, collector.FetchErrorUpstream,
				errors.Wrapf(err, "fail to parse feed %s", params.Url))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Oldest first, so a capped page never lets the cursor jump over entries
	// that are not handed out yet.
	candidates := []*gofeed.Item{}
	for _, entry := range feed.Items {
		published := entryTime(entry)
		if !since.IsZero() && published != nil && !published.After(since) {
			continue
		}
		candidates = append(candidates, entry)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := entryTime(candidates[i]), entryTime(candidates[j])
		if ti == nil || tj == nil {
			return ti != nil
		}
		return ti.Before(*tj)
	})

	// Entries sharing a publish time go into the page together. The cursor
	// drops everything at its time on the next fetch, so a group split at
	// the cap would lose its tail. A first group larger than the cap is
	// handed out whole, otherwise the source never advances.
	res := &collector.FetchResult{}
	newest := since
	for start := 0; start < len(candidates); {
		end := start + 1
		published := entryTime(candidates[start])
		for end < len(candidates) && sameEntryTime(published, entryTime(candidates[end])) {
			end++
		}
		if len(res.Records) > 0 && len(res.Records)+end-start > params.MaxEntries {
			break
		}
		if published != nil && published.After(newest) {
			newest = *published
		}
		for _, entry := range candidates[start:end] {
			res.Records = append(res.Records, &working_context.RssCollectorWorkingContext{
				SharedContext:   working_context.SharedContext{Source: source},
				RssUrl:          params.Url,
				Feed:            feed,
				RssResponseItem: entry,
			})
		}
		if len(res.Records) >= params.MaxEntries {
			break
		}
		start = end
	}
	if newest.After(since) {
		res.NextCursor = newest.UTC().Format(time.RFC3339Nano)
	}
	return res, nil
}

func (r *RssCollector) Normalize(record interface{}) (*collector.RawItem, error) {
	workingContext, ok := record.(*working_context.RssCollectorWorkingContext)
	if !ok || workingContext.RssResponseItem == nil {
		return nil, collector.NewParseError(model.PlatformRSS, "", "unexpected record type", nil)
	}
	entry := workingContext.RssResponseItem

	nativeId := entry.GUID
	if nativeId == "" {
		nativeId = entry.Link
	}

	published := entryTime(entry)
	if published == nil {
		return nil, collector.NewParseError(model.PlatformRSS, nativeId, "entry has no publish time", nil)
	}

	html := entry.Content
	if html == "" {
		html = entry.Description
	}
	body, err := collector.HtmlToText(html)
	if err != nil {
		return nil, collector.NewParseError(model.PlatformRSS, nativeId, "malformed entry html", err)
	}
	if body == "" {
		body = strings.TrimSpace(entry.Title)
	}

	item := &collector.RawItem{
		Platform:    model.PlatformRSS,
		NativeId:    nativeId,
		Title:       strings.TrimSpace(entry.Title),
		Body:        body,
		Url:         entry.Link,
		PublishedAt: published.UTC(),
		Media:       rssMedia(entry, html),
	}
	if entry.Author != nil {
		item.AuthorName = entry.Author.Name
		item.AuthorId = entry.Author.Email
		if item.AuthorId == "" {
			item.AuthorId = entry.Author.Name
		}
	}
	return item, nil
}

// entryTime falls back from the parsed published time to the updated time and
// finally to the raw strings, feeds in the wild use all kinds of layouts.
func sameEntryTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func entryTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if t, err := collector.ParseTimeLoose(raw); err == nil {
			return &t
		}
	}
	return nil
}

// rssMedia collects image urls of an entry without duplicates, feeds often
// repeat the cover image in the html body.
func rssMedia(entry *gofeed.Item, html string) []string {
	candidates := []string{}
	if entry.Image != nil {
		candidates = append(candidates, entry.Image.URL)
	}
	for _, enclosure := range entry.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") {
			candidates = append(candidates, enclosure.URL)
		}
	}
	candidates = append(candidates, collector.ImageUrlsFromHtml(html)...)

	media := []string{}
	for _, url := range candidates {
		if url != "" && !utils.ContainsString(media, url) {
			media = append(media, url)
		}
	}
	return media
}
