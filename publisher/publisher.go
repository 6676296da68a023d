package publisher

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

type Config struct {
	MaxRetries int           `yaml:"MAX_RETRIES"`
	Delay      time.Duration `yaml:"DELAY"`
}

func DefaultConfig() Config {
	return Config{MaxRetries: 2, Delay: 5 * time.Second}
}

// Publisher delivers briefs to every configured channel and records the
// outcome per channel. A channel failure never affects other channels or the
// brief itself.
type Publisher struct {
	DB       *gorm.DB
	Channels []Channel
	Config   Config
	Now      func() time.Time
}

func NewPublisher(db *gorm.DB, channels []Channel, config Config) *Publisher {
	return &Publisher{DB: db, Channels: channels, Config: config, Now: time.Now}
}

func (p *Publisher) ChannelNames() []string {
	names := make([]string, 0, len(p.Channels))
	for _, c := range p.Channels {
		names = append(names, c.Name())
	}
	return names
}

// Publish sends the brief to all channels. The map holds one entry per
// channel, nil on success. The error is only set for store failures.
func (p *Publisher) Publish(ctx context.Context, brief *model.Brief) (map[string]error, error) {
	return p.publish(ctx, brief, p.Channels)
}

// PublishPending resends the latest brief to the channels that have not
// accepted it yet. A nil brief means there is nothing to publish.
func (p *Publisher) PublishPending(ctx context.Context) (*model.Brief, map[string]error, error) {
	var briefs []*model.Brief
	if err := p.DB.WithContext(ctx).Preload("Deliveries").
		Order("brief_date DESC").Limit(1).Find(&briefs).Error; err != nil {
		return nil, nil, errors.Wrap(err, "fail to load latest brief")
	}
	if len(briefs) == 0 {
		return nil, map[string]error{}, nil
	}
	brief := briefs[0]

	sent := map[string]bool{}
	for _, d := range brief.Deliveries {
		sent[d.Channel] = d.Sent
	}
	pending := []Channel{}
	for _, c := range p.Channels {
		if !sent[c.Name()] {
			pending = append(pending, c)
		}
	}
	results, err := p.publish(ctx, brief, pending)
	return brief, results, err
}

func (p *Publisher) publish(ctx context.Context, brief *model.Brief, channels []Channel) (map[string]error, error) {
	errs := make([]error, len(channels))
	attempts := make([]int, len(channels))

	var g errgroup.Group
	for i := range channels {
		i := i
		g.Go(func() error {
			attempts[i], errs[i] = p.deliver(ctx, channels[i], brief)
			return nil
		})
	}
	g.Wait()

	results := map[string]error{}
	for i, c := range channels {
		if errs[i] != nil {
			errs[i] = &PublishError{Channel: c.Name(), Attempts: attempts[i], Err: errs[i]}
			Logger.Log.WithFields(logrus.Fields{"channel": c.Name(), "brief_date": brief.BriefDate}).
				Error("fail to publish brief: ", errs[i])
		}
		results[c.Name()] = errs[i]
		if err := p.record(ctx, brief, c.Name(), attempts[i], errs[i]); err != nil {
			return results, err
		}
	}
	return results, nil
}

// deliver runs one channel under the retry policy and returns the number of
// attempts with the last error.
func (p *Publisher) deliver(ctx context.Context, channel Channel, brief *model.Brief) (int, error) {
	attempts := 0
	var lastErr error
	policy := retrypolicy.NewBuilder[any]().
		WithDelay(p.Config.Delay).
		WithMaxRetries(p.Config.MaxRetries).
		HandleIf(func(_ any, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		Build()
	failsafe.With[any](policy).WithContext(ctx).Get(func() (any, error) {
		attempts++
		lastErr = channel.Publish(ctx, brief)
		return nil, lastErr
	})
	if lastErr == nil && attempts == 0 {
		lastErr = ctx.Err()
	}
	return attempts, lastErr
}

func (p *Publisher) record(ctx context.Context, brief *model.Brief, channel string, attempts int, publishErr error) error {
	now := p.Now().UTC()
	delivery := &model.BriefDelivery{
		Id:       uuid.New().String(),
		BriefId:  brief.Id,
		Channel:  channel,
		Attempts: attempts,
	}
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("brief_deliveries.attempts + ?", attempts),
		"updated_at": now,
	}
	if publishErr == nil {
		delivery.Sent = true
		delivery.SentAt = &now
		updates["sent"] = true
		updates["sent_at"] = now
		updates["last_error"] = ""
	} else {
		// A failed resend never clears an earlier success.
		delivery.LastError = publishErr.Error()
		updates["last_error"] = delivery.LastError
	}

	err := p.DB.WithContext(context.Background()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brief_id"}, {Name: "channel"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(delivery).Error
	if err != nil {
		return errors.Wrapf(err, "fail to record delivery of brief %s to %s", brief.Id, channel)
	}
	return nil
}
