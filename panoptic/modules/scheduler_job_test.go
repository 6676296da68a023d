package modules

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

var DefaultJobDefinition = JobDefinition{
	Name:         "fetch",
	Kind:         model.JobKindFetchAll,
	EverySeconds: 1,
}

func GetDefaultSchedulerJob(t *testing.T) *SchedulerJob {
	return GetCustomizedSchedulerJob(t, DefaultJobDefinition)
}

func GetCustomizedSchedulerJob(t *testing.T, d JobDefinition) *SchedulerJob {
	assert.Nil(t, d.Validate())
	return NewSchedulerJob(d, time.UTC, context.Background())
}

func TestNewSchedulerJob(t *testing.T) {
	actual := NewSchedulerJob(DefaultJobDefinition, nil, context.Background())

	// Definition is copied to SchedulerJob
	assert.Empty(t, cmp.Diff(actual.Definition(), DefaultJobDefinition))
	assert.Equal(t, time.UTC, actual.location)

	// Both time is initialized to 0
	assert.Equal(t, actual.lastRun, time.Time{})
	assert.Equal(t, actual.nextRun, time.Time{})

	// runCount is initialized to 0
	assert.Equal(t, actual.runCount, int64(0))
	assert.False(t, actual.IsPaused())
}

func TestIncrementRunCount(t *testing.T) {
	job := GetDefaultSchedulerJob(t)
	assert.Equal(t, job.runCount, int64(0))
	job.IncrementRunCount()
	assert.Equal(t, job.runCount, int64(1))
	job.IncrementRunCount()
	job.IncrementRunCount()
	assert.Equal(t, job.runCount, int64(3))
}

func TestValidateJobDefinition(t *testing.T) {
	tests := []struct {
		name string
		def  JobDefinition
		ok   bool
	}{
		{"interval", DefaultJobDefinition, true},
		{"daily", JobDefinition{Name: "brief", Kind: model.JobKindGenerateBrief, DailyAt: "06:30",
			DependsOn: []string{model.JobKindScoreAll, model.JobKindClassifyAll}}, true},
		{"missing name", JobDefinition{Kind: model.JobKindFetchAll, EverySeconds: 1}, false},
		{"unknown kind", JobDefinition{Name: "x", Kind: "crawl", EverySeconds: 1}, false},
		{"no schedule", JobDefinition{Name: "x", Kind: model.JobKindFetchAll}, false},
		{"bad daily time", JobDefinition{Name: "x", Kind: model.JobKindFetchAll, DailyAt: "25:00"}, false},
		{"self dependency", JobDefinition{Name: "x", Kind: model.JobKindScoreAll, EverySeconds: 1,
			DependsOn: []string{model.JobKindScoreAll}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNextRunAfterInterval(t *testing.T) {
	job := GetDefaultSchedulerJob(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	next, err := job.NextRunAfter(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Second), next)
}

func TestNextRunAfterDaily(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	job := NewSchedulerJob(JobDefinition{Name: "brief", Kind: model.JobKindGenerateBrief, DailyAt: "06:30"},
		loc, context.Background())

	// 2024-03-10 05:00 in UTC+8, today's slot is still ahead.
	before := time.Date(2024, 3, 9, 21, 0, 0, 0, time.UTC)
	next, err := job.NextRunAfter(before)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2024, 3, 10, 6, 30, 0, 0, loc)))

	// Exactly on the slot moves to the next day.
	next, err = job.NextRunAfter(time.Date(2024, 3, 10, 6, 30, 0, 0, loc))
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2024, 3, 11, 6, 30, 0, 0, loc)))
}

func TestUpdateLastAndNextTime(t *testing.T) {
	job := GetDefaultSchedulerJob(t)
	now := time.Now()
	assert.Nil(t, job.UpdateLastAndNextTime(now))

	assert.True(t, job.HasRunBefore())
	assert.Equal(t, now, job.lastRun)
	assert.Equal(t, 1*time.Second, job.nextRun.Sub(job.lastRun))
}

func TestDurationTillNextRun(t *testing.T) {
	now := time.Now()
	job := GetDefaultSchedulerJob(t)
	// should return interval because job is not executed
	duration, err := job.DurationTillNextRun(now)
	assert.Nil(t, err)
	assert.Equal(t, 1*time.Second, duration)

	assert.Nil(t, job.UpdateLastAndNextTime(now))
	duration, err = job.DurationTillNextRun(now.Add(400 * time.Millisecond))
	assert.Nil(t, err)
	assert.Equal(t, 600*time.Millisecond, duration)

	// Overdue jobs run right away.
	duration, err = job.DurationTillNextRun(now.Add(time.Minute))
	assert.Nil(t, err)
	assert.Equal(t, time.Duration(0), duration)
}

func TestDurationTillNextRunStartImmediately(t *testing.T) {
	d := DefaultJobDefinition
	d.StartImmediately = true
	job := GetCustomizedSchedulerJob(t, d)

	duration, err := job.DurationTillNextRun(time.Now())
	assert.Nil(t, err)
	assert.Equal(t, time.Duration(0), duration)
}
