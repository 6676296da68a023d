package collector_instances

import (
	"regexp"
	"strings"

	twitterscraper "github.com/n0madic/twitter-scraper"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/model"
)

var twitterLink = regexp.MustCompile(`https:\/\/t.co\/[A-Za-z0-9]*`)

// Sometimes Twitter content would return links directly in text, in which case
// we want to remove.
// e.g. "https://t.co/sIGZPDyx76"
func RemoveTwitterLink(content string) string {
	linkRemoved := twitterLink.ReplaceAllString(content, "")
	return strings.TrimSpace(strings.ReplaceAll(linkRemoved, "  ", " "))
}

// For most cases, twitter content is just the text field. In cases where links
// are inserted into a single tweet, we join the links together with the text.
func GetTwitterContent(tweet *twitterscraper.Tweet, isQuoted bool) string {
	// Retweet should not have actual content
	if tweet.IsRetweet {
		return ""
	}

	baseText := RemoveTwitterLink(tweet.Text)

	// Append urls that are not part of the quoted tweet.
	for _, URL := range tweet.URLs {
		if tweet.QuotedStatus != nil && URL == tweet.QuotedStatus.PermanentURL {
			continue
		}
		baseText += "\n" + URL
	}

	if !isQuoted || !tweet.IsQuoted || tweet.QuotedStatus == nil {
		return baseText
	}
	// Quote posts keep the link of the quoted tweet, the way Twitter shows them.
	return baseText + " " + tweet.QuotedStatus.PermanentURL
}

func GetTwitterUrl(tweet *twitterscraper.Tweet) string {
	if tweet.PermanentURL != "" {
		return tweet.PermanentURL
	}
	return "https://x.com/i/status/" + tweet.ID
}

func GetTwitterImageUrls(tweet *twitterscraper.Tweet) []string {
	return tweet.Photos
}

// ClassifyTwitterError maps scraper failures, which are plain errors carrying
// the http status text, to fetch errors.
func ClassifyTwitterError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return collector.NewFetchError(model.PlatformX, collector.FetchErrorRateLimit, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized"):
		return collector.NewFetchError(model.PlatformX, collector.FetchErrorAuth, err)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "suspended"):
		return collector.NewFetchError(model.PlatformX, collector.FetchErrorConfig, err)
	default:
		return collector.NewFetchError(model.PlatformX, collector.FetchErrorNetwork, err)
	}
}
