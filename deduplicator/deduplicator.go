package deduplicator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/collector/sink"
	"github.com/Luismorlan/infoflow/model"
	. "github.com/Luismorlan/infoflow/utils/log"
)

type Outcome int

const (
	OutcomeNew Outcome = iota
	OutcomeUpdated
	// OutcomeSkipped is the expected result for an identical re-fetch, not an
	// error.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Deduplicator persists normalized items keyed by (platform, native id).
// Concurrent ingestion of the same key is resolved by the unique index and an
// atomic insert-or-ignore, there is no application level locking.
type Deduplicator struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDeduplicator(db *gorm.DB) *Deduplicator {
	return &Deduplicator{DB: db, Now: time.Now}
}

// Push ingests every item independently, a failure never rolls back items
// already persisted. The returned error is the first persistence failure,
// ingestion stops early only when ctx is cancelled.
func (d *Deduplicator) Push(ctx context.Context, source *model.Source, items []*collector.RawItem) (sink.Counts, error) {
	counts := sink.Counts{}
	var firstErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		counts.Fetched++
		outcome, err := d.IngestOne(ctx, source.Id, item)
		if err != nil {
			counts.Failed++
			Log.WithFields(logrus.Fields{"source": source.Id, "native_id": item.NativeId}).
				Errorf("fail to persist item: %s", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		switch outcome {
		case OutcomeNew:
			counts.New++
		case OutcomeUpdated:
			counts.Updated++
		default:
			counts.Skipped++
		}
	}
	return counts, firstErr
}

// IngestOne inserts the item if its identity is unknown. Otherwise only the
// mutable fields (metrics and media) are refreshed, provenance fields never
// change once set.
func (d *Deduplicator) IngestOne(ctx context.Context, sourceId string, raw *collector.RawItem) (Outcome, error) {
	if err := raw.Validate(); err != nil {
		return OutcomeSkipped, err
	}
	now := d.Now().UTC()
	media, err := encodeMedia(raw.Media)
	if err != nil {
		return OutcomeSkipped, collector.NewParseError(raw.Platform, raw.NativeId, "unencodable media", err)
	}

	outcome := OutcomeSkipped
	err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item := &model.Item{
			Id:          uuid.New().String(),
			CreatedAt:   now,
			UpdatedAt:   now,
			SourceId:    sourceId,
			Platform:    raw.Platform,
			NativeId:    raw.NativeId,
			Title:       raw.Title,
			Body:        raw.Body,
			AuthorId:    raw.AuthorId,
			AuthorName:  raw.AuthorName,
			Url:         raw.Url,
			PublishedAt: raw.PublishedAt.UTC(),
			Media:       media,
		}
		item.SetMetrics(raw.Metrics)

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "native_id"}},
			DoNothing: true,
		}).Create(item)
		if res.Error != nil {
			return errors.Wrap(res.Error, "fail to insert item")
		}
		if res.RowsAffected == 1 {
			outcome = OutcomeNew
			return recordObservation(tx, item.Id, raw.Metrics, now)
		}

		var existing model.Item
		if err := tx.Where("platform = ? AND native_id = ?", raw.Platform, raw.NativeId).
			First(&existing).Error; err != nil {
			return errors.Wrap(err, "fail to load existing item")
		}
		if existing.Metrics().Equal(raw.Metrics) && sameMedia(existing.MediaUrls(), raw.Media) {
			return nil
		}

		if err := tx.Model(&model.Item{}).Where("id = ?", existing.Id).Updates(map[string]interface{}{
			"views":      raw.Metrics.Views,
			"likes":      raw.Metrics.Likes,
			"reposts":    raw.Metrics.Reposts,
			"comments":   raw.Metrics.Comments,
			"bookmarks":  raw.Metrics.Bookmarks,
			"media":      media,
			"updated_at": now,
		}).Error; err != nil {
			return errors.Wrap(err, "fail to update item metrics")
		}
		outcome = OutcomeUpdated
		return recordObservation(tx, existing.Id, raw.Metrics, now)
	})
	return outcome, err
}

func recordObservation(tx *gorm.DB, itemId string, m model.Metrics, at time.Time) error {
	obs := &model.ItemObservation{
		Id:         uuid.New().String(),
		ItemId:     itemId,
		ObservedAt: at,
		Views:      m.Views,
		Likes:      m.Likes,
		Reposts:    m.Reposts,
		Comments:   m.Comments,
		Bookmarks:  m.Bookmarks,
	}
	return errors.Wrap(tx.Create(obs).Error, "fail to record observation")
}

func encodeMedia(urls []string) (datatypes.JSON, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	return datatypes.JSON(b), err
}

func sameMedia(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
