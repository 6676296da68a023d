package scorer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Luismorlan/infoflow/classifier"
	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// RunResult summarizes one scoring run. Errors only hold item level
// failures, store failures are returned instead.
type RunResult struct {
	Considered int
	Scored     int
	Failed     int
	Errors     []error
}

// Runner scores items stored in the db. Heat of every item is computed
// before any potential, so author history read by potential is settled for
// the whole run.
type Runner struct {
	DB     *gorm.DB
	Config Config
}

func NewRunner(db *gorm.DB, config Config) *Runner {
	return &Runner{DB: db, Config: config}
}

type computedScore struct {
	itemId  string
	value   float64
	factors interface{}
	err     error
}

// ScoreAll scores items that are unscored or stale, or every item when
// recompute is set. Scores of an item are stale when it got a metric
// observation or a classification after they were computed, or when its heat
// is older than the refresh interval while the item is still decaying.
func (r *Runner) ScoreAll(ctx context.Context, now time.Time, recompute bool) (*RunResult, error) {
	now = now.UTC()
	var ids []string
	query := r.DB.WithContext(ctx).Model(&model.Item{})
	if !recompute {
		query = query.Where(staleScoresCondition,
			false,
			model.ScoreKindHeat,
			model.ScoreKindPotential,
			model.ScoreKindHeat, now.Add(-r.Config.heatRefresh()), now.Add(-decayWindowHours*time.Hour))
	}
	if err := query.Order("items.id").Pluck("items.id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list items to score")
	}
	return r.ScoreItems(ctx, ids, now)
}

const staleScoresCondition = `items.scored = ?
	OR EXISTS (SELECT 1 FROM item_observations o JOIN scores s ON s.item_id = o.item_id AND s.kind = ?
		WHERE o.item_id = items.id AND o.observed_at > s.computed_at)
	OR EXISTS (SELECT 1 FROM scores s WHERE s.item_id = items.id AND s.kind = ?
		AND items.classified_at IS NOT NULL AND items.classified_at > s.computed_at)
	OR EXISTS (SELECT 1 FROM scores s WHERE s.item_id = items.id AND s.kind = ?
		AND s.computed_at < ? AND items.published_at >= ?)`

// ScoreItems computes and upserts both scores of the given items.
func (r *Runner) ScoreItems(ctx context.Context, ids []string, now time.Time) (*RunResult, error) {
	now = now.UTC()
	res := &RunResult{Considered: len(ids)}
	failed := map[string]error{}

	for _, kind := range []string{model.ScoreKindHeat, model.ScoreKindPotential} {
		for _, batch := range chunk(ids, r.batchSize()) {
			if err := r.scoreBatch(ctx, batch, kind, now, failed); err != nil {
				return res, err
			}
		}
	}

	succeeded := []string{}
	failedIds := []string{}
	for _, id := range ids {
		if err, ok := failed[id]; ok {
			failedIds = append(failedIds, id)
			res.Errors = append(res.Errors, err)
			continue
		}
		succeeded = append(succeeded, id)
	}
	res.Failed = len(failedIds)

	for _, batch := range chunk(succeeded, r.batchSize()) {
		update := r.DB.WithContext(ctx).Model(&model.Item{}).
			Where("id IN ?", batch).
			Where("(SELECT COUNT(*) FROM scores WHERE scores.item_id = items.id AND scores.kind IN ?) = 2",
				[]string{model.ScoreKindHeat, model.ScoreKindPotential}).
			Update("scored", true)
		if update.Error != nil {
			return res, errors.Wrap(update.Error, "fail to mark items scored")
		}
		res.Scored += int(update.RowsAffected)
	}
	for _, batch := range chunk(failedIds, r.batchSize()) {
		if err := r.DB.WithContext(ctx).Model(&model.Item{}).Where("id IN ?", batch).
			Update("scored", false).Error; err != nil {
			return res, errors.Wrap(err, "fail to reset failed items")
		}
	}

	Logger.Log.WithFields(logrus.Fields{
		"considered": res.Considered,
		"scored":     res.Scored,
		"failed":     res.Failed,
	}).Info("scoring run finished")
	return res, nil
}

func (r *Runner) scoreBatch(ctx context.Context, ids []string, kind string, now time.Time, failed map[string]error) error {
	var items []*model.Item
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return errors.Wrap(err, "fail to load items")
	}

	results := make([]computedScore, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, item := range items {
		i, item := i, item
		if _, ok := failed[item.Id]; ok {
			continue
		}
		g.Go(func() error {
			value, factors, err := r.compute(gctx, item, kind, now)
			var computeErr *ScoreComputationError
			if err != nil && !errors.As(err, &computeErr) {
				return err
			}
			results[i] = computedScore{itemId: item.Id, value: value, factors: factors, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rows := []model.Score{}
	for _, c := range results {
		if c.itemId == "" {
			continue
		}
		if c.err != nil {
			failed[c.itemId] = c.err
			Logger.Log.WithFields(logrus.Fields{"item": c.itemId, "kind": kind}).Warn(c.err.Error())
			continue
		}
		factors, err := json.Marshal(c.factors)
		if err != nil {
			return errors.Wrap(err, "fail to encode score factors")
		}
		rows = append(rows, model.Score{
			Id:               uuid.New().String(),
			ItemId:           c.itemId,
			Kind:             kind,
			Value:            c.value,
			Factors:          datatypes.JSON(factors),
			AlgorithmVersion: AlgorithmVersion,
			ComputedAt:       now.UTC(),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "factors", "algorithm_version", "computed_at"}),
	}).Create(&rows).Error
	return errors.Wrapf(err, "fail to upsert %s scores", kind)
}

func (r *Runner) compute(ctx context.Context, item *model.Item, kind string, now time.Time) (float64, interface{}, error) {
	if kind == model.ScoreKindHeat {
		return Heat(item, r.Config, now)
	}
	input, err := r.PotentialInputFor(ctx, item, now)
	if err != nil {
		return 0, nil, err
	}
	return Potential(item, input, r.Config)
}

// PotentialInputFor loads the history the potential score of item depends on.
func (r *Runner) PotentialInputFor(ctx context.Context, item *model.Item, now time.Time) (PotentialInput, error) {
	input := PotentialInput{}
	from, to := now.Add(-r.Config.lookback()).UTC(), now.UTC()
	db := r.DB.WithContext(ctx)

	if item.AuthorId != "" {
		if err := db.Table("scores").
			Joins("JOIN items ON items.id = scores.item_id").
			Where("scores.kind = ? AND items.author_id = ? AND items.platform = ? AND items.id <> ?",
				model.ScoreKindHeat, item.AuthorId, item.Platform, item.Id).
			Where("items.published_at >= ? AND items.published_at <= ?", from, to).
			Pluck("scores.value", &input.AuthorHeats).Error; err != nil {
			return input, errors.Wrap(err, "fail to load author history")
		}
	}

	if err := db.Where("item_id = ?", item.Id).Order("observed_at DESC").Limit(2).
		Find(&input.Observations).Error; err != nil {
		return input, errors.Wrap(err, "fail to load observations")
	}

	topics, err := classifier.DominantTopics(ctx, r.DB, []string{item.Id})
	if err != nil {
		return input, err
	}
	if tag, ok := topics[item.Id]; ok {
		input.DominantTag = tag
		if input.TagPeers, err = classifier.CountTagPeers(ctx, r.DB, tag, item.Id, from, to); err != nil {
			return input, err
		}
	}
	return input, nil
}

func (r *Runner) batchSize() int {
	if r.Config.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return r.Config.BatchSize
}

func (r *Runner) concurrency() int {
	if r.Config.Concurrency <= 0 {
		return 1
	}
	return r.Config.Concurrency
}

func chunk(ids []string, size int) [][]string {
	res := [][]string{}
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		res = append(res, ids[start:end])
	}
	return res
}
