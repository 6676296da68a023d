package modules

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/panoptic"
	"github.com/Luismorlan/infoflow/utils"
)

func StartJobRun(ctx context.Context, db *gorm.DB, kind string, now time.Time) (*model.JobRun, error) {
	run := &model.JobRun{
		Id:        uuid.NewString(),
		Kind:      kind,
		StartedAt: now,
		Status:    model.RunStatusRunning,
	}
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create job run")
	}
	return run, nil
}

func FinishJobRun(ctx context.Context, db *gorm.DB, run *model.JobRun, status, detail string, now time.Time) error {
	run.EndedAt = &now
	run.Status = status
	run.Detail = detail
	err := db.WithContext(ctx).Model(run).Select("ended_at", "status", "detail").Updates(run).Error
	return errors.Wrap(err, "fail to finish job run")
}

// LatestSuccessfulRun returns nil when kind never succeeded.
func LatestSuccessfulRun(ctx context.Context, db *gorm.DB, kind string) (*model.JobRun, error) {
	var runs []*model.JobRun
	err := db.WithContext(ctx).
		Where("kind = ? AND status = ?", kind, model.RunStatusSuccess).
		Order("started_at desc").Limit(1).Find(&runs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "fail to load latest %s run", kind)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// DependencyChecker decides from JobRun rows whether a job may run now.
type DependencyChecker struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

func NewDependencyChecker(db *gorm.DB, loc *time.Location) *DependencyChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &DependencyChecker{DB: db, Location: loc, Now: time.Now}
}

// Cutoff is the time every dependency must have started after. A brief for
// day D needs dependencies started after D ended, any other kind needs them
// started after its own latest success.
func (c *DependencyChecker) Cutoff(ctx context.Context, job *panoptic.JobMessage) (time.Time, error) {
	if job.Kind == model.JobKindGenerateBrief {
		day, err := BriefDay(job.Date, c.Location, c.Now())
		if err != nil {
			return time.Time{}, err
		}
		_, end := utils.DayBounds(day, c.Location)
		return end, nil
	}
	last, err := LatestSuccessfulRun(ctx, c.DB, job.Kind)
	if err != nil || last == nil {
		return time.Time{}, err
	}
	return last.StartedAt, nil
}

// Ready returns an empty reason when the job may run.
func (c *DependencyChecker) Ready(ctx context.Context, job *panoptic.JobMessage) (string, error) {
	if len(job.DependsOn) == 0 {
		return "", nil
	}
	cutoff, err := c.Cutoff(ctx, job)
	if err != nil {
		return "", err
	}
	for _, dep := range job.DependsOn {
		run, err := LatestSuccessfulRun(ctx, c.DB, dep)
		if err != nil {
			return "", err
		}
		if run == nil {
			return dep + " never succeeded", nil
		}
		if !run.StartedAt.After(cutoff) {
			return dep + " has not succeeded since " + cutoff.Format(time.RFC3339), nil
		}
	}
	return "", nil
}

// BriefDay is the target day of a brief job, yesterday when date is empty.
func BriefDay(date string, loc *time.Location, now time.Time) (time.Time, error) {
	if date != "" {
		day, err := time.ParseInLocation(model.BriefDateLayout, date, loc)
		return day, errors.Wrapf(err, "invalid brief date %q", date)
	}
	start, _ := utils.DayBounds(now, loc)
	return start.AddDate(0, 0, -1), nil
}
