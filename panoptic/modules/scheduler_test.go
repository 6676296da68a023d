package modules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/model"
)

var (
	TestDefinition1 = JobDefinition{Name: "def_1", Kind: model.JobKindFetchAll, EverySeconds: 1}
	TestDefinition2 = JobDefinition{Name: "def_2", Kind: model.JobKindScoreAll, EverySeconds: 1}
	TestDefinition3 = JobDefinition{Name: "def_3", Kind: model.JobKindClassifyAll, EverySeconds: 1}
)

// countingJobDoer records emitted job names.
type countingJobDoer struct {
	mu   sync.Mutex
	done []string
}

func (d *countingJobDoer) Do(job *SchedulerJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = append(d.done, job.Name())
	job.IncrementRunCount()
	return nil
}

func (d *countingJobDoer) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.done...)
}

func TestUpsertJobs_AllNew(t *testing.T) {
	s := &Scheduler{
		m: sync.RWMutex{},
	}

	jobs := []*SchedulerJob{
		GetCustomizedSchedulerJob(t, TestDefinition1),
		GetCustomizedSchedulerJob(t, TestDefinition2),
		GetCustomizedSchedulerJob(t, TestDefinition3),
	}
	s.UpsertJobs(jobs)

	assert.Equal(t, len(s.Jobs), 3)
	assert.Equal(t, s.Jobs[0].lastRun, time.Time{})
	assert.Equal(t, s.Jobs[2].definition.Name, "def_3")
}

func TestUpsertJobs_RemoveSome(t *testing.T) {
	s := &Scheduler{
		m: sync.RWMutex{},
		Jobs: []*SchedulerJob{
			GetCustomizedSchedulerJob(t, TestDefinition1),
			GetCustomizedSchedulerJob(t, TestDefinition2),
			GetCustomizedSchedulerJob(t, TestDefinition3),
		},
	}
	removed := s.Jobs[1]

	jobs := []*SchedulerJob{
		GetCustomizedSchedulerJob(t, TestDefinition1),
		GetCustomizedSchedulerJob(t, TestDefinition3),
	}
	s.UpsertJobs(jobs)

	assert.Equal(t, len(s.Jobs), 2)
	assert.Equal(t, s.Jobs[0].definition.Name, "def_1")
	assert.Equal(t, s.Jobs[1].definition.Name, "def_3")
	assert.Error(t, removed.ctx.Err())
}

func TestUpsertJobs_UpdateOnlyDefinition(t *testing.T) {
	s := &Scheduler{
		m: sync.RWMutex{},
		Jobs: []*SchedulerJob{
			GetCustomizedSchedulerJob(t, TestDefinition1),
		},
	}

	now := time.Now()
	s.Jobs[0].lastRun = now
	s.Jobs[0].nextRun = now.Add(3 * time.Second)

	updated := TestDefinition1
	updated.EverySeconds = 60
	s.UpsertJobs([]*SchedulerJob{GetCustomizedSchedulerJob(t, updated)})

	assert.Equal(t, len(s.Jobs), 1)
	assert.Equal(t, s.Jobs[0].lastRun, now)
	assert.Equal(t, s.Jobs[0].nextRun, now.Add(3*time.Second))
	assert.Equal(t, s.Jobs[0].definition.EverySeconds, int64(60))
}

func TestValidateJobs_DuplicateName(t *testing.T) {
	jobs := []*SchedulerJob{
		GetCustomizedSchedulerJob(t, TestDefinition1),
		GetCustomizedSchedulerJob(t, TestDefinition2),
		GetCustomizedSchedulerJob(t, TestDefinition1),
	}
	assert.NotNil(t, ValidateJobs(jobs))
}

func TestNewSchedulerRejectsInvalidDefinition(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{Name: "scheduler"},
		[]JobDefinition{{Name: "broken", Kind: model.JobKindFetchAll}}, &PrinterJobDoer{}, context.Background())
	assert.Error(t, err)
}

func TestPauseResumeAndStatus(t *testing.T) {
	doer := &countingJobDoer{}
	s, err := NewScheduler(SchedulerConfig{Name: "scheduler"},
		[]JobDefinition{TestDefinition1, TestDefinition2}, doer, context.Background())
	require.NoError(t, err)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Pause("def_1"))
	assert.Error(t, s.Pause("missing"))

	for _, job := range s.Jobs {
		require.NoError(t, s.Tick(job))
	}
	// A paused job is not emitted but its schedule still advances.
	assert.Equal(t, []string{"def_2"}, doer.names())

	status := s.Status()
	require.Len(t, status, 2)
	assert.True(t, status[0].Paused)
	assert.Equal(t, int64(0), status[0].RunCount)
	assert.Equal(t, now.Add(time.Second), status[0].NextRun)
	assert.False(t, status[1].Paused)
	assert.Equal(t, int64(1), status[1].RunCount)
	assert.Equal(t, now, status[1].LastRun)

	require.NoError(t, s.Resume("def_1"))
	require.NoError(t, s.Tick(s.Jobs[0]))
	assert.Equal(t, []string{"def_2", "def_1"}, doer.names())

	// Trigger ignores both schedule and pause.
	require.NoError(t, s.Pause("def_2"))
	require.NoError(t, s.Trigger("def_2"))
	assert.Equal(t, []string{"def_2", "def_1", "def_2"}, doer.names())
}

func TestSchedulerRunModule(t *testing.T) {
	doer := &countingJobDoer{}
	d := TestDefinition1
	d.StartImmediately = true
	d.EverySeconds = 3600
	s, err := NewScheduler(SchedulerConfig{Name: "scheduler"}, []JobDefinition{d}, doer, context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.RunModule(ctx) }()

	assert.Eventually(t, func() bool { return len(doer.names()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Jobs upserted while running start their own loop.
	late := TestDefinition2
	late.StartImmediately = true
	late.EverySeconds = 3600
	s.UpsertJobs([]*SchedulerJob{
		NewSchedulerJob(d, time.UTC, context.Background()),
		NewSchedulerJob(late, time.UTC, context.Background()),
	})
	assert.Eventually(t, func() bool { return len(doer.names()) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, []string{"def_1", "def_2"}, doer.names())
}
