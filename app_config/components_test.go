package app_config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/classifier"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/publisher"
	"github.com/Luismorlan/infoflow/utils"
)

func TestNewComponents(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	c, err := ParseInfoFlowAppConfigBytes([]byte(`
TIMEZONE: Asia/Shanghai
PUBLISH:
  CHANNELS: [stderr]
SOURCES:
  - {NAME: feed, PLATFORM: rss, PARAMS: {url: "https://example.com/rss"}}
`))
	require.NoError(t, err)

	cs, err := NewComponents(context.Background(), c, db)
	require.NoError(t, err)
	assert.Equal(t, []string{publisher.ChannelStdErr}, cs.Publisher.ChannelNames())
	assert.Equal(t, "Asia/Shanghai", cs.Reader.Location.String())
	assert.NotNil(t, cs.Executor().Fetcher)

	var sources, topics int64
	require.NoError(t, db.Model(&model.Source{}).Count(&sources).Error)
	assert.Equal(t, int64(1), sources)
	require.NoError(t, db.Model(&model.Tag{}).Where("category = ?", model.TagCategoryTopic).Count(&topics).Error)
	assert.Equal(t, int64(len(classifier.DefaultTopicRules)), topics)
}

func TestChannelsRequireSecrets(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("BRIEF_SNS_TOPIC_ARN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	c := &InfoFlowAppConfig{PUBLISH: PublishConfig{CHANNELS: []string{publisher.ChannelSlack}}}
	_, err := c.Channels(nil)
	assert.EqualError(t, err, "slack channel requires SLACK_WEBHOOK_URL")

	c.PUBLISH.CHANNELS = []string{publisher.ChannelSns}
	_, err = c.Channels(nil)
	assert.EqualError(t, err, "sns channel requires BRIEF_SNS_TOPIC_ARN")

	c.PUBLISH.CHANNELS = []string{publisher.ChannelTelegram}
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	_, err = c.Channels(nil)
	assert.EqualError(t, err, "telegram channel requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")

	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	c.PUBLISH.CHANNELS = []string{publisher.ChannelSlack, publisher.ChannelStdErr, publisher.ChannelTelegram}
	channels, err := c.Channels(nil)
	require.NoError(t, err)
	assert.Len(t, channels, 3)
	assert.Equal(t, publisher.ChannelTelegram, channels[2].Name())
}
