package collector_instances

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/collector/clients"
	"github.com/Luismorlan/infoflow/collector/working_context"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

const (
	RedditDefaultBaseUrl = "https://www.reddit.com"
	RedditDefaultLimit   = 25
	RedditMaxLimit       = 100
)

var redditSorts = []string{"hot", "new", "top", "rising"}

type RedditParams struct {
	Subreddit  string `json:"subreddit"`
	Sort       string `json:"sort"`
	Limit      int    `json:"limit"`
	TimeFilter string `json:"time_filter"`
}

func (p *RedditParams) Validate() error {
	p.Subreddit = strings.TrimPrefix(strings.TrimSpace(p.Subreddit), "r/")
	if p.Subreddit == "" {
		return errors.New("reddit source requires subreddit")
	}
	if p.Sort == "" {
		p.Sort = "hot"
	}
	if !utils.ContainsString(redditSorts, p.Sort) {
		return errors.Errorf("unknown reddit sort %q", p.Sort)
	}
	if p.Limit <= 0 {
		p.Limit = RedditDefaultLimit
	}
	if p.Limit > RedditMaxLimit {
		p.Limit = RedditMaxLimit
	}
	return nil
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type RedditPost struct {
	Id          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Selftext    string   `json:"selftext"`
	Author      string   `json:"author"`
	AuthorId    string   `json:"author_fullname"`
	Score       *int64   `json:"score"`
	NumComments *int64   `json:"num_comments"`
	UpvoteRatio *float64 `json:"upvote_ratio"`
	CreatedUtc  float64  `json:"created_utc"`
	Url         string   `json:"url"`
	Permalink   string   `json:"permalink"`
	IsSelf      bool     `json:"is_self"`
	Subreddit   string   `json:"subreddit"`
}

// RedditApiCollector reads subreddit listings from the public json api.
// Listings are re-ranked all the time, so no cursor is kept and every fetch
// refreshes metrics of the posts still listed.
type RedditApiCollector struct {
	Client  *clients.HttpClient
	BaseUrl string
}

func NewRedditApiCollector() *RedditApiCollector {
	return &RedditApiCollector{Client: clients.NewDefaultHttpClient(model.PlatformReddit), BaseUrl: RedditDefaultBaseUrl}
}

func (r *RedditApiCollector) Platform() string {
	return model.PlatformReddit
}

func (r *RedditApiCollector) ConstructUrl(params *RedditParams) string {
	return fmt.Sprintf("%s/r/%s/%s.json", strings.TrimRight(r.BaseUrl, "/"), params.Subreddit, params.Sort)
}

func (r *RedditApiCollector) Fetch(ctx context.Context, source *model.Source, cursor string) (*collector.FetchResult, error) {
	params := &RedditParams{}
	if err := collector.DecodeParams(source, params); err != nil {
		return nil, err
	}
	query := map[string]string{"limit": strconv.Itoa(params.Limit), "raw_json": "1"}
	if params.Sort == "top" && params.TimeFilter != "" {
		query["t"] = params.TimeFilter
	}
	url := r.ConstructUrl(params)

	var listing redditListing
	err := collector.RetryOnce(ctx, func() error {
		resp, err := r.Client.GetWithQueryParams(ctx, url, query)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			return collector.NewFetchError(model.PlatformReddit, collector.FetchErrorUpstream,
				errors.Wrap(err, "fail to decode reddit listing"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &collector.FetchResult{}
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		res.Records = append(res.Records, &working_context.ApiCollectorWorkingContext{
			SharedContext:   working_context.SharedContext{Source: source},
			ApiUrl:          url,
			ApiResponseItem: []byte(child.Data),
		})
	}
	return res, nil
}

func (r *RedditApiCollector) Normalize(record interface{}) (*collector.RawItem, error) {
	workingContext, ok := record.(*working_context.ApiCollectorWorkingContext)
	if !ok {
		return nil, collector.NewParseError(model.PlatformReddit, "", "unexpected record type", nil)
	}
	raw, ok := workingContext.ApiResponseItem.([]byte)
	if !ok {
		return nil, collector.NewParseError(model.PlatformReddit, "", "unexpected api item", nil)
	}
	post := &RedditPost{}
	if err := json.Unmarshal(raw, post); err != nil {
		return nil, collector.NewParseError(model.PlatformReddit, "", "malformed post json", err)
	}
	if post.CreatedUtc <= 0 {
		return nil, collector.NewParseError(model.PlatformReddit, post.Id, "post has no creation time", nil)
	}

	body := strings.TrimSpace(post.Title)
	if selftext := strings.TrimSpace(post.Selftext); selftext != "" {
		body += "\n\n" + selftext
	}

	sec, frac := math.Modf(post.CreatedUtc)
	item := &collector.RawItem{
		Platform:    model.PlatformReddit,
		NativeId:    post.Id,
		Title:       strings.TrimSpace(post.Title),
		Body:        body,
		AuthorId:    post.AuthorId,
		AuthorName:  post.Author,
		Url:         RedditDefaultBaseUrl + post.Permalink,
		PublishedAt: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Metrics: model.Metrics{
			Likes:    post.Score,
			Comments: post.NumComments,
		},
	}
	if item.AuthorId == "" {
		item.AuthorId = post.Author
	}
	if !post.IsSelf && post.Url != "" {
		item.Media = []string{post.Url}
	}
	return item, nil
}
