package deduplicator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/collector/sink"
	"github.com/Luismorlan/infoflow/model"
)

// StartFetchRun appends a running FetchRun for the source and stamps the
// source's last fetch time.
func StartFetchRun(ctx context.Context, db *gorm.DB, source *model.Source, cursor string, now time.Time) (*model.FetchRun, error) {
	run := &model.FetchRun{
		Id:        uuid.New().String(),
		SourceId:  source.Id,
		Platform:  source.Platform,
		StartedAt: now.UTC(),
		Status:    model.RunStatusRunning,
		Cursor:    cursor,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		return tx.Model(&model.Source{}).Where("id = ?", source.Id).
			Update("last_fetch_at", run.StartedAt).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to start fetch run")
	}
	startedAt := run.StartedAt
	source.LastFetchAt = &startedAt
	return run, nil
}

// FinishFetchRun completes a running FetchRun exactly once. Completed runs
// are never touched again.
func FinishFetchRun(ctx context.Context, db *gorm.DB, run *model.FetchRun, counts sink.Counts, status string, runErr error, now time.Time) error {
	ended := now.UTC()
	run.EndedAt = &ended
	run.Status = status
	run.ItemsFetched = counts.Fetched
	run.ItemsNew = counts.New
	run.ItemsUpdated = counts.Updated
	run.ItemsFailed = counts.Failed
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	res := db.WithContext(ctx).Model(&model.FetchRun{}).
		Where("id = ? AND status = ?", run.Id, model.RunStatusRunning).
		Updates(map[string]interface{}{
			"ended_at":      run.EndedAt,
			"status":        run.Status,
			"items_fetched": run.ItemsFetched,
			"items_new":     run.ItemsNew,
			"items_updated": run.ItemsUpdated,
			"items_failed":  run.ItemsFailed,
			"error_message": run.ErrorMessage,
			"next_cursor":   run.NextCursor,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "fail to finish fetch run")
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("fetch run %s is not running", run.Id)
	}
	return nil
}

// StatusFromCounts derives the run status: failed when nothing was persisted
// and something went wrong, partial when some items failed or the run was
// interrupted, success otherwise.
func StatusFromCounts(counts sink.Counts, runErr error) string {
	persisted := counts.New + counts.Updated + counts.Skipped
	switch {
	case runErr != nil && persisted == 0:
		return model.RunStatusFailed
	case runErr != nil || counts.Failed > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusSuccess
	}
}

// RunCounts rebuilds the counts of a finished run. Skipped has no column, it
// is what remains of fetched once new, updated and failed are taken out.
func RunCounts(run *model.FetchRun) sink.Counts {
	skipped := run.ItemsFetched - run.ItemsNew - run.ItemsUpdated - run.ItemsFailed
	if skipped < 0 {
		skipped = 0
	}
	return sink.Counts{
		Fetched: run.ItemsFetched,
		New:     run.ItemsNew,
		Updated: run.ItemsUpdated,
		Skipped: skipped,
		Failed:  run.ItemsFailed,
	}
}

// CommitCursor advances the source cursor. It is only called once every item
// of the page behind the cursor is persisted.
func CommitCursor(ctx context.Context, db *gorm.DB, source *model.Source, cursor string) error {
	if cursor == "" || cursor == source.Cursor {
		return nil
	}
	if err := db.WithContext(ctx).Model(&model.Source{}).Where("id = ?", source.Id).
		Update("cursor", cursor).Error; err != nil {
		return errors.Wrap(err, "fail to commit cursor")
	}
	source.Cursor = cursor
	return nil
}
