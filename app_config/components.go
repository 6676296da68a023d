package app_config

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/classifier"
	collector_builder "github.com/Luismorlan/infoflow/collector/builder"
	collector_job_handler "github.com/Luismorlan/infoflow/collector/handler"
	"github.com/Luismorlan/infoflow/curator"
	"github.com/Luismorlan/infoflow/deduplicator"
	"github.com/Luismorlan/infoflow/panoptic/modules"
	"github.com/Luismorlan/infoflow/publisher"
	"github.com/Luismorlan/infoflow/query"
	"github.com/Luismorlan/infoflow/scorer"
)

// Components holds every pipeline stage built from one app config, sharing a
// single db handle.
type Components struct {
	DB        *gorm.DB
	Fetcher   *collector_job_handler.DataCollectJobHandler
	Scorer    *scorer.Runner
	Tagger    *classifier.Tagger
	Curator   *curator.Curator
	Publisher *publisher.Publisher
	Reader    *query.Reader
}

// NewComponents builds the pipeline, syncs the declared sources and seeds the
// topic tags.
func NewComponents(ctx context.Context, c *InfoFlowAppConfig, db *gorm.DB) (*Components, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	curatorConfig, err := c.CuratorConfig()
	if err != nil {
		return nil, err
	}
	channels, err := c.Channels(db)
	if err != nil {
		return nil, err
	}
	if err := SyncSources(ctx, db, c.SOURCES); err != nil {
		return nil, err
	}
	if err := classifier.SeedTopics(ctx, db, classifier.DefaultTopicRules); err != nil {
		return nil, err
	}

	return &Components{
		DB: db,
		Fetcher: collector_job_handler.NewDataCollectJobHandler(
			db,
			collector_builder.NewDefaultCollectorBuilder(),
			deduplicator.NewDeduplicator(db),
			c.HandlerConfig(),
		),
		Scorer:    scorer.NewRunner(db, c.ScorerConfig()),
		Tagger:    classifier.NewTagger(db, classifier.NewDefaultClassifier(), c.ClassifyConcurrency()),
		Curator:   curator.NewCurator(db, curatorConfig),
		Publisher: publisher.NewPublisher(db, channels, c.PublisherConfig()),
		Reader:    query.NewReader(db, loc),
	}, nil
}

func (cs *Components) Executor() *modules.LocalExecutor {
	return &modules.LocalExecutor{
		Fetcher:   cs.Fetcher,
		Scorer:    cs.Scorer,
		Tagger:    cs.Tagger,
		Curator:   cs.Curator,
		Publisher: cs.Publisher,
		Now:       cs.Curator.Now,
	}
}

// Channels builds the configured publish channels. Slack reads
// SLACK_WEBHOOK_URL and sns reads BRIEF_SNS_TOPIC_ARN, a channel without its
// secret is a config error.
func (c *InfoFlowAppConfig) Channels(db *gorm.DB) ([]publisher.Channel, error) {
	channels := []publisher.Channel{}
	for _, name := range c.PUBLISH.CHANNELS {
		switch name {
		case publisher.ChannelStdErr:
			channels = append(channels, publisher.NewStdErrChannel())
		case publisher.ChannelSlack:
			url := os.Getenv("SLACK_WEBHOOK_URL")
			if url == "" {
				return nil, errors.New("slack channel requires SLACK_WEBHOOK_URL")
			}
			channels = append(channels, publisher.NewSlackChannel(url, publisher.ItemsByIds(db)))
		case publisher.ChannelSns:
			arn := os.Getenv("BRIEF_SNS_TOPIC_ARN")
			if arn == "" {
				return nil, errors.New("sns channel requires BRIEF_SNS_TOPIC_ARN")
			}
			channel, err := publisher.NewSnsChannel(c.PUBLISH.SNS_REGION, arn)
			if err != nil {
				return nil, err
			}
			channels = append(channels, channel)
		case publisher.ChannelTelegram:
			token, chat := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")
			if token == "" || chat == "" {
				return nil, errors.New("telegram channel requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
			}
			channels = append(channels, publisher.NewTelegramChannel(token, chat))
		default:
			return nil, errors.Errorf("unknown publish channel %q", name)
		}
	}
	return channels, nil
}
