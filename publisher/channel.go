package publisher

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
)

const (
	ChannelSlack    = "slack"
	ChannelSns      = "sns"
	ChannelStdErr   = "stderr"
	ChannelTelegram = "telegram"
)

// Channel delivers a finished brief to one destination.
type Channel interface {
	Name() string
	Publish(ctx context.Context, brief *model.Brief) error
}

// PublishError is the failure of one channel after all attempts.
type PublishError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s failed after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ItemLookup resolves brief item ids, channels use it to show titles and
// links.
type ItemLookup func(ctx context.Context, ids []string) (map[string]*model.Item, error)

func ItemsByIds(db *gorm.DB) ItemLookup {
	return func(ctx context.Context, ids []string) (map[string]*model.Item, error) {
		res := map[string]*model.Item{}
		if len(ids) == 0 {
			return res, nil
		}
		var items []*model.Item
		if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
			return nil, errors.Wrap(err, "fail to load brief items")
		}
		for _, item := range items {
			res[item.Id] = item
		}
		return res, nil
	}
}
