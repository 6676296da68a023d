package collector_instances

import (
	"context"
	"strconv"
	"time"

	twitterscraper "github.com/n0madic/twitter-scraper"
	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/collector/working_context"
	"github.com/Luismorlan/infoflow/model"
)

const (
	TwitterDefaultMaxResults = 20
	TwitterMaxResults        = 100
	TwitterRefreshHours      = 24
)

type TwitterParams struct {
	Username   string `json:"username"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	// Tweets already handed out keep being re-emitted for this many hours
	// after posting, so their metrics refresh. Negative disables it.
	RefreshHours int `json:"refresh_hours"`
}

func (p *TwitterParams) Validate() error {
	if p.Username == "" && p.Query == "" {
		return errors.New("x source requires username or query")
	}
	if p.MaxResults <= 0 {
		p.MaxResults = TwitterDefaultMaxResults
	}
	if p.MaxResults > TwitterMaxResults {
		p.MaxResults = TwitterMaxResults
	}
	if p.RefreshHours == 0 {
		p.RefreshHours = TwitterRefreshHours
	}
	return nil
}

// TweetFetcher is the part of twitterscraper.Scraper the collector uses.
type TweetFetcher interface {
	FetchTweets(user string, maxTweetsNbr int, cursor string) ([]*twitterscraper.Tweet, string, error)
	FetchSearchTweets(query string, maxTweetsNbr int, cursor string) ([]*twitterscraper.Tweet, string, error)
}

// TwitterCollector reads a user timeline or a search. The cursor is the
// largest tweet id handed out. Older or equal ids are dropped unless they
// were posted inside the refresh window.
type TwitterCollector struct {
	Scraper TweetFetcher
	Now     func() time.Time
}

func NewTwitterCollector() *TwitterCollector {
	return &TwitterCollector{Scraper: twitterscraper.New(), Now: time.Now}
}

func (t *TwitterCollector) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *TwitterCollector) Platform() string {
	return model.PlatformX
}

func (t *TwitterCollector) Fetch(ctx context.Context, source *model.Source, cursor string) (*collector.FetchResult, error) {
	params := &TwitterParams{}
	if err := collector.DecodeParams(source, params); err != nil {
		return nil, err
	}

	var tweets []*twitterscraper.Tweet
	err := collector.RetryOnce(ctx, func() error {
		var err error
		if params.Username != "" {
			tweets, _, err = t.Scraper.FetchTweets(params.Username, params.MaxResults, "")
		} else {
			tweets, _, err = t.Scraper.FetchSearchTweets(params.Query, params.MaxResults, "")
		}
		if err != nil {
			return ClassifyTwitterError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	refreshSince := t.now().Add(-time.Duration(params.RefreshHours) * time.Hour)
	res := &collector.FetchResult{}
	newest := cursor
	for _, tweet := range tweets {
		if tweet == nil || tweet.IsRetweet {
			continue
		}
		if cursor != "" && collector.CompareNumericIds(tweet.ID, cursor) <= 0 {
			// Seen tweets never move the cursor.
			if params.RefreshHours > 0 && tweet.Timestamp > 0 && !time.Unix(tweet.Timestamp, 0).Before(refreshSince) {
				res.Records = append(res.Records, &working_context.ApiCollectorWorkingContext{
					SharedContext:   working_context.SharedContext{Source: source},
					ApiUrl:          params.Username + params.Query,
					ApiResponseItem: tweet,
				})
			}
			continue
		}
		if newest == "" || collector.CompareNumericIds(tweet.ID, newest) > 0 {
			newest = tweet.ID
		}
		res.Records = append(res.Records, &working_context.ApiCollectorWorkingContext{
			SharedContext:   working_context.SharedContext{Source: source},
			ApiUrl:          params.Username + params.Query,
			ApiResponseItem: tweet,
		})
	}
	if newest != cursor {
		res.NextCursor = newest
	}
	return res, nil
}

func (t *TwitterCollector) Normalize(record interface{}) (*collector.RawItem, error) {
	workingContext, ok := record.(*working_context.ApiCollectorWorkingContext)
	if !ok {
		return nil, collector.NewParseError(model.PlatformX, "", "unexpected record type", nil)
	}
	tweet, ok := workingContext.ApiResponseItem.(*twitterscraper.Tweet)
	if !ok || tweet == nil {
		return nil, collector.NewParseError(model.PlatformX, "", "unexpected api item", nil)
	}
	if _, err := strconv.ParseUint(tweet.ID, 10, 64); err != nil {
		return nil, collector.NewParseError(model.PlatformX, tweet.ID, "tweet id is not numeric", err)
	}
	if tweet.Timestamp <= 0 {
		return nil, collector.NewParseError(model.PlatformX, tweet.ID, "tweet has no timestamp", nil)
	}

	item := &collector.RawItem{
		Platform:    model.PlatformX,
		NativeId:    tweet.ID,
		Body:        GetTwitterContent(tweet, true),
		AuthorId:    tweet.UserID,
		AuthorName:  tweet.Username,
		Url:         GetTwitterUrl(tweet),
		PublishedAt: time.Unix(tweet.Timestamp, 0).UTC(),
		Metrics: model.Metrics{
			Likes:    model.Int64(int64(tweet.Likes)),
			Reposts:  model.Int64(int64(tweet.Retweets)),
			Comments: model.Int64(int64(tweet.Replies)),
		},
		Media: GetTwitterImageUrls(tweet),
	}
	return item, nil
}
