package query

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
)

// RecentJobRuns lists job runs newest first, optionally of one kind.
func (r *Reader) RecentJobRuns(ctx context.Context, kind string, limit int) ([]*model.JobRun, error) {
	runs := []*model.JobRun{}
	q := r.DB.WithContext(ctx).Order("started_at DESC").Order("id").Limit(clampLimit(limit))
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list job runs")
	}
	return runs, nil
}
