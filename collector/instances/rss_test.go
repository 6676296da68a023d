package collector_instances

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <link>https://blog.example.com</link>
  <item>
    <title>Newest post</title>
    <link>https://blog.example.com/3</link>
    <guid>post-3</guid>
    <pubDate>Wed, 03 Jan 2024 10:00:00 GMT</pubDate>
    <description><![CDATA[<p>Third body</p><img src="https://img.example.com/3.png"/>]]></description>
  </item>
  <item>
    <title>Oldest post</title>
    <link>https://blog.example.com/1</link>
    <guid>post-1</guid>
    <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
    <description>First body</description>
  </item>
  <item>
    <title>Middle post</title>
    <link>https://blog.example.com/2</link>
    <pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate>
    <description></description>
    <enclosure url="https://img.example.com/2.jpg" type="image/jpeg" length="10"/>
  </item>
</channel>
</rss>`

func rssSource(url string, maxEntries int) *model.Source {
	return &model.Source{
		Id:       "rss-source",
		Name:     "test feed",
		Platform: model.PlatformRSS,
		Config:   datatypes.JSON(fmt.Sprintf(`{"url":%q,"max_entries":%d}`, url, maxEntries)),
	}
}

func serveString(t *testing.T, body string, contentType string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRssCollectorFetchAndNormalize(t *testing.T) {
	server := serveString(t, testFeed, "application/rss+xml")
	c := NewRssCollector()
	source := rssSource(server.URL, 0)

	res, err := c.Fetch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "2024-01-03T10:00:00Z", res.NextCursor)

	items, errs := collector.NormalizeAll(c, res.Records)
	require.Empty(t, errs)
	require.Len(t, items, 3)

	assert.Equal(t, "post-1", items[0].NativeId)
	assert.Equal(t, "First body", items[0].Body)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedAt)
	assert.Nil(t, items[0].Metrics.Likes)

	// No guid, the link identifies the entry and the title stands in for the
	// empty body.
	assert.Equal(t, "https://blog.example.com/2", items[1].NativeId)
	assert.Equal(t, "Middle post", items[1].Body)
	assert.Equal(t, []string{"https://img.example.com/2.jpg"}, items[1].Media)

	assert.Equal(t, "post-3", items[2].NativeId)
	assert.Equal(t, "Third body", items[2].Body)
	assert.Equal(t, []string{"https://img.example.com/3.png"}, items[2].Media)
}

func TestRssCollectorCursorDropsSeenEntries(t *testing.T) {
	server := serveString(t, testFeed, "application/rss+xml")
	c := NewRssCollector()
	source := rssSource(server.URL, 0)

	res, err := c.Fetch(context.Background(), source, "2024-01-02T10:00:00Z")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2024-01-03T10:00:00Z", res.NextCursor)

	res, err = c.Fetch(context.Background(), source, res.NextCursor)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.NextCursor)
}

func TestRssCollectorCappedPageNeverSkipsEntries(t *testing.T) {
	server := serveString(t, testFeed, "application/rss+xml")
	c := NewRssCollector()
	source := rssSource(server.URL, 2)

	res, err := c.Fetch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "2024-01-02T10:00:00Z", res.NextCursor)

	res, err = c.Fetch(context.Background(), source, res.NextCursor)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	items, _ := collector.NormalizeAll(c, res.Records)
	assert.Equal(t, "post-3", items[0].NativeId)
}

const tiedFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Tied Feed</title>
  <item><title>a</title><guid>a</guid><pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate><description>a body</description></item>
  <item><title>b</title><guid>b</guid><pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate><description>b body</description></item>
  <item><title>c</title><guid>c</guid><pubDate>Mon, 01 Jan 2024 09:00:00 GMT</pubDate><description>c body</description></item>
  <item><title>d</title><guid>d</guid><pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate><description>d body</description></item>
</channel>
</rss>`

// fetchUntilDone follows the committed cursor and returns the pages handed out.
func fetchUntilDone(t *testing.T, c *RssCollector, source *model.Source) [][]string {
	t.Helper()
	pages := [][]string{}
	cursor := ""
	for i := 0; i < 10; i++ {
		res, err := c.Fetch(context.Background(), source, cursor)
		require.NoError(t, err)
		if len(res.Records) == 0 {
			return pages
		}
		items, errs := collector.NormalizeAll(c, res.Records)
		require.Empty(t, errs)
		page := []string{}
		for _, item := range items {
			page = append(page, item.NativeId)
		}
		pages = append(pages, page)
		if res.NextCursor == "" {
			return pages
		}
		cursor = res.NextCursor
	}
	t.Fatal("cursor never settled")
	return nil
}

func TestRssCollectorKeepsTiedEntriesTogether(t *testing.T) {
	server := serveString(t, tiedFeed, "application/rss+xml")
	c := NewRssCollector()

	testCases := []struct {
		name       string
		maxEntries int
		pages      [][]string
	}{
		{"group larger than the cap", 1, [][]string{{"c"}, {"a", "b"}, {"d"}}},
		{"group split by the cap", 2, [][]string{{"c"}, {"a", "b"}, {"d"}}},
		{"group fits", 3, [][]string{{"c", "a", "b"}, {"d"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.pages, fetchUntilDone(t, c, rssSource(server.URL, tc.maxEntries)))
		})
	}
}

func TestRssCollectorErrors(t *testing.T) {
	c := NewRssCollector()

	_, err := c.Fetch(context.Background(), &model.Source{Platform: model.PlatformRSS, Config: datatypes.JSON(`{}`)}, "")
	var fetchErr *collector.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, collector.FetchErrorConfig, fetchErr.Kind)

	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer unauthorized.Close()
	_, err = c.Fetch(context.Background(), rssSource(unauthorized.URL, 0), "")
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, collector.FetchErrorAuth, fetchErr.Kind)
	assert.False(t, collector.IsRetryable(err))

	garbage := serveString(t, "this is not a feed", "text/plain")
	_, err = c.Fetch(context.Background(), rssSource(garbage.URL, 0), "")
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, collector.FetchErrorUpstream, fetchErr.Kind)
}
