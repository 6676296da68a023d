package classifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

const manualConfidence = 1.0

// RunResult summarizes one classification run.
type RunResult struct {
	Considered int
	Classified int
}

// Tagger persists classifier predictions. Automatic rows are replaced on
// every run, manual rows are only changed through AddManualTag and
// RemoveManualTag.
type Tagger struct {
	DB          *gorm.DB
	Classifier  *Classifier
	Concurrency int
	Now         func() time.Time
}

func NewTagger(db *gorm.DB, classifier *Classifier, concurrency int) *Tagger {
	return &Tagger{DB: db, Classifier: classifier, Concurrency: concurrency, Now: time.Now}
}

// Classify replaces the automatic tags of item in one transaction.
func (t *Tagger) Classify(ctx context.Context, item *model.Item) ([]Prediction, error) {
	predictions := t.Classifier.Classify(item.Title, item.Body)
	now := t.Now().UTC()

	err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.ItemTag
		if err := tx.Where("item_id = ?", item.Id).Find(&existing).Error; err != nil {
			return errors.Wrap(err, "fail to load item tags")
		}
		byTag := map[string]model.ItemTag{}
		for _, row := range existing {
			byTag[row.TagId] = row
		}

		produced := map[string]bool{}
		for _, p := range predictions {
			tag, err := ensureTag(tx, p.Name, p.Category, true)
			if err != nil {
				return err
			}
			// An entity token may clash with a tag of another category.
			if tag.Category != p.Category {
				continue
			}
			produced[tag.Id] = true
			row, ok := byTag[tag.Id]
			if ok && row.IsManual {
				continue
			}
			if ok {
				if err := tx.Model(&model.ItemTag{}).Where("id = ?", row.Id).
					Update("confidence", p.Confidence).Error; err != nil {
					return errors.Wrap(err, "fail to update item tag")
				}
				continue
			}
			if err := tx.Create(&model.ItemTag{
				Id:         uuid.New().String(),
				ItemId:     item.Id,
				TagId:      tag.Id,
				Confidence: p.Confidence,
			}).Error; err != nil {
				return errors.Wrap(err, "fail to create item tag")
			}
		}

		stale := []string{}
		for _, row := range existing {
			if !row.IsManual && !produced[row.TagId] {
				stale = append(stale, row.Id)
			}
		}
		if len(stale) > 0 {
			if err := tx.Where("id IN ? AND is_manual = ?", stale, false).
				Delete(&model.ItemTag{}).Error; err != nil {
				return errors.Wrap(err, "fail to delete stale item tags")
			}
		}
		return tx.Model(&model.Item{}).Where("id = ?", item.Id).
			Update("classified_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	item.ClassifiedAt = &now
	return predictions, nil
}

// ClassifyAll classifies items never classified, or every item when forced.
func (t *Tagger) ClassifyAll(ctx context.Context, force bool) (*RunResult, error) {
	var ids []string
	query := t.DB.WithContext(ctx).Model(&model.Item{})
	if !force {
		query = query.Where("classified_at IS NULL")
	}
	if err := query.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list items to classify")
	}

	res := &RunResult{Considered: len(ids)}
	classified := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	limit := t.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			var item model.Item
			if err := t.DB.WithContext(gctx).First(&item, "id = ?", id).Error; err != nil {
				return errors.Wrapf(err, "fail to load item %s", id)
			}
			if _, err := t.Classify(gctx, &item); err != nil {
				return errors.Wrapf(err, "fail to classify item %s", id)
			}
			classified[i] = true
			return nil
		})
	}
	err := g.Wait()
	for _, ok := range classified {
		if ok {
			res.Classified++
		}
	}
	Logger.Log.WithFields(logrus.Fields{"considered": res.Considered, "classified": res.Classified}).
		Info("classification run finished")
	return res, err
}

// AddManualTag attaches a tag set by an operator. It takes over an automatic
// row of the same tag and is never touched by later classification.
func (t *Tagger) AddManualTag(ctx context.Context, itemId, tagName, category string) (*model.ItemTag, error) {
	if category == "" {
		category = model.TagCategoryTopic
	}
	var res *model.ItemTag
	err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Item{}).Where("id = ?", itemId).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.Errorf("item %s does not exist", itemId)
		}
		tag, err := ensureTag(tx, tagName, category, false)
		if err != nil {
			return err
		}
		row := &model.ItemTag{
			Id:         uuid.New().String(),
			ItemId:     itemId,
			TagId:      tag.Id,
			Confidence: manualConfidence,
			IsManual:   true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "tag_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"confidence", "is_manual", "updated_at"}),
		}).Create(row).Error; err != nil {
			return errors.Wrap(err, "fail to upsert manual tag")
		}
		res = &model.ItemTag{}
		return tx.Preload("Tag").Where("item_id = ? AND tag_id = ?", itemId, tag.Id).First(res).Error
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveManualTag detaches a manual tag, automatic rows are left alone.
func (t *Tagger) RemoveManualTag(ctx context.Context, itemId, tagName string) (bool, error) {
	var tag model.Tag
	if err := t.DB.WithContext(ctx).Where("name = ?", tagName).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "fail to load tag")
	}
	res := t.DB.WithContext(ctx).
		Where("item_id = ? AND tag_id = ? AND is_manual = ?", itemId, tag.Id, true).
		Delete(&model.ItemTag{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "fail to remove manual tag")
	}
	return res.RowsAffected > 0, nil
}

// SeedTopics creates the topic tags of the rules, so they show up before any
// item is classified.
func SeedTopics(ctx context.Context, db *gorm.DB, rules []TopicRule) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			tag, err := ensureTag(tx, rule.Name, model.TagCategoryTopic, true)
			if err != nil {
				return err
			}
			if tag.Color == "" && rule.Color != "" {
				if err := tx.Model(&model.Tag{}).Where("id = ?", tag.Id).
					Update("color", rule.Color).Error; err != nil {
					return errors.Wrap(err, "fail to set tag color")
				}
			}
		}
		return nil
	})
}

// ensureTag returns the tag named name, creating it when missing. Concurrent
// creators are resolved by the unique name index.
func ensureTag(tx *gorm.DB, name, category string, isAuto bool) (*model.Tag, error) {
	tag := &model.Tag{Id: uuid.New().String(), Name: name, Category: category, IsAuto: isAuto}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(tag).Error; err != nil {
		return nil, errors.Wrapf(err, "fail to create tag %s", name)
	}
	stored := &model.Tag{}
	if err := tx.Where("name = ?", name).First(stored).Error; err != nil {
		return nil, errors.Wrapf(err, "fail to load tag %s", name)
	}
	return stored, nil
}
