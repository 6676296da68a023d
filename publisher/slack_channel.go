package publisher

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"

	"github.com/Luismorlan/infoflow/curator"
	"github.com/Luismorlan/infoflow/model"
)

const (
	// Block Kit limits.
	slackHeaderLimit  = 150
	slackSectionLimit = 3000
)

// SlackChannel posts the brief to an incoming webhook as Block Kit blocks.
type SlackChannel struct {
	WebhookUrl string
	Lookup     ItemLookup
}

func NewSlackChannel(webhookUrl string, lookup ItemLookup) *SlackChannel {
	return &SlackChannel{WebhookUrl: webhookUrl, Lookup: lookup}
}

func (s *SlackChannel) Name() string {
	return ChannelSlack
}

func (s *SlackChannel) Publish(ctx context.Context, brief *model.Brief) error {
	if s.WebhookUrl == "" {
		return errors.New("slack webhook url is not configured")
	}
	items := map[string]*model.Item{}
	if s.Lookup != nil {
		var err error
		if items, err = s.Lookup(ctx, brief.Selected()); err != nil {
			return err
		}
	}
	msg := &slack.WebhookMessage{
		Text:   brief.Title,
		Blocks: &slack.Blocks{BlockSet: BuildBriefBlocks(brief, items)},
	}
	return slack.PostWebhookContext(ctx, s.WebhookUrl, msg)
}

// BuildBriefBlocks lays out a header, a stats line and one section per
// non-empty bucket.
func BuildBriefBlocks(brief *model.Brief, items map[string]*model.Item) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, truncate(brief.Title, slackHeaderLimit), false, false)),
	}
	if stats, err := brief.DecodedStats(); err == nil {
		summary := fmt.Sprintf("%s | %d items collected, %d scored, %d selected",
			brief.BriefDate, stats.Total, stats.Scored, stats.Selected)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, summary, false, false)))
	}
	blocks = append(blocks, slack.NewDividerBlock())

	for _, bucket := range []struct {
		title string
		ids   []string
	}{
		{"*⭐ Featured*", brief.Featured()},
		{"*🔥 Hot*", brief.HeatTop()},
		{"*💎 Under the radar*", brief.Potential()},
	} {
		if len(bucket.ids) == 0 {
			continue
		}
		lines := []string{bucket.title}
		for i, id := range bucket.ids {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, slackEntry(id, items[id])))
		}
		text := truncate(strings.Join(lines, "\n"), slackSectionLimit)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}
	return blocks
}

func slackEntry(id string, item *model.Item) string {
	if item == nil {
		return id
	}
	title := slackEscape(curator.DisplayTitle(item))
	if item.Url == "" {
		return title
	}
	return fmt.Sprintf("<%s|%s>", item.Url, title)
}

// Slack mrkdwn only needs these three escaped.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}
