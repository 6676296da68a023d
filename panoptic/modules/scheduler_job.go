package modules

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

const dailyAtLayout = "15:04"

var jobKinds = []string{
	model.JobKindFetchAll,
	model.JobKindScoreAll,
	model.JobKindClassifyAll,
	model.JobKindGenerateBrief,
	model.JobKindPublishBrief,
}

/*

JobDefinition describes how and when a job kind is scheduled

EverySeconds: fixed interval between two emissions
DailyAt: "HH:MM" in the scheduler location, takes precedence over EverySeconds
StartImmediately: emit once right after the scheduler starts
DependsOn: job kinds checked by the orchestrator before executing
*/
type JobDefinition struct {
	Name             string   `yaml:"NAME"`
	Kind             string   `yaml:"KIND"`
	EverySeconds     int64    `yaml:"EVERY_SECONDS"`
	DailyAt          string   `yaml:"DAILY_AT"`
	StartImmediately bool     `yaml:"START_IMMEDIATELY"`
	DependsOn        []string `yaml:"DEPENDS_ON"`
	Force            bool     `yaml:"FORCE"`
	Paused           bool     `yaml:"PAUSED"`
}

func (d JobDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("job requires a name")
	}
	if !utils.ContainsString(jobKinds, d.Kind) {
		return errors.Errorf("job %s has unknown kind %q", d.Name, d.Kind)
	}
	for _, dep := range d.DependsOn {
		if !utils.ContainsString(jobKinds, dep) || dep == d.Kind {
			return errors.Errorf("job %s has invalid dependency %q", d.Name, dep)
		}
	}
	if d.DailyAt != "" {
		if _, err := time.Parse(dailyAtLayout, d.DailyAt); err != nil {
			return errors.Wrapf(err, "job %s has invalid daily time", d.Name)
		}
		return nil
	}
	if d.EverySeconds <= 0 {
		return errors.Errorf("job %s requires a positive interval or a daily time", d.Name)
	}
	return nil
}

// SchedulerJob defines the jobs which scheduler manages. Scheduler periodically
// transform those SchedulerJob into JobMessages, and send to event bus.
// This struct is thread-safe
type SchedulerJob struct {
	m sync.RWMutex

	// The last time this job is executed.
	lastRun time.Time

	// The next time this job should be executed.
	nextRun time.Time

	definition JobDefinition

	// Daily times are resolved in this location.
	location *time.Location

	paused bool

	// The context of this job, which manages the lifecycle of this job.
	ctx context.Context

	// Cancel this Job and it's pending execution.
	cancel context.CancelFunc

	// How many times this job is scheduled on EventBus.
	runCount int64
}

// SchedulerJobStatus is a snapshot of a SchedulerJob.
type SchedulerJobStatus struct {
	Name     string
	Kind     string
	Paused   bool
	LastRun  time.Time
	NextRun  time.Time
	RunCount int64
}

func NewSchedulerJobs(definitions []JobDefinition, loc *time.Location, ctx context.Context) []*SchedulerJob {
	jobs := []*SchedulerJob{}
	for _, d := range definitions {
		jobs = append(jobs, NewSchedulerJob(d, loc, ctx))
	}
	return jobs
}

func NewSchedulerJob(definition JobDefinition, loc *time.Location, ctx context.Context) *SchedulerJob {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(ctx)
	return &SchedulerJob{
		m:          sync.RWMutex{},
		lastRun:    time.Time{},
		nextRun:    time.Time{},
		definition: definition,
		location:   loc,
		paused:     definition.Paused,
		ctx:        ctx,
		cancel:     cancel,
		runCount:   0,
	}
}

func (j *SchedulerJob) Name() string {
	return j.definition.Name
}

func (j *SchedulerJob) Definition() JobDefinition {
	j.m.RLock()
	defer j.m.RUnlock()
	return j.definition
}

func (j *SchedulerJob) RefreshContext(parent context.Context) {
	// Protectively cancel this job.
	j.cancel()

	ctx, cancel := context.WithCancel(parent)
	j.ctx = ctx
	j.cancel = cancel
}

func (j *SchedulerJob) HasRunBefore() bool {
	j.m.RLock()
	defer j.m.RUnlock()

	return !j.lastRun.IsZero()
}

func (j *SchedulerJob) IncrementRunCount() {
	j.m.Lock()
	defer j.m.Unlock()
	j.runCount += 1
}

func (j *SchedulerJob) SetPaused(paused bool) {
	j.m.Lock()
	defer j.m.Unlock()
	j.paused = paused
}

func (j *SchedulerJob) IsPaused() bool {
	j.m.RLock()
	defer j.m.RUnlock()
	return j.paused
}

func (j *SchedulerJob) Status() SchedulerJobStatus {
	j.m.RLock()
	defer j.m.RUnlock()
	return SchedulerJobStatus{
		Name:     j.definition.Name,
		Kind:     j.definition.Kind,
		Paused:   j.paused,
		LastRun:  j.lastRun,
		NextRun:  j.nextRun,
		RunCount: j.runCount,
	}
}

// DurationTillNextRun is zero for a job that starts immediately and has not
// run yet.
func (j *SchedulerJob) DurationTillNextRun(now time.Time) (time.Duration, error) {
	if !j.HasRunBefore() {
		j.m.RLock()
		immediate := j.definition.StartImmediately
		j.m.RUnlock()
		if immediate {
			return 0, nil
		}
		next, err := j.NextRunAfter(now)
		if err != nil {
			return 0, err
		}
		return next.Sub(now), nil
	}

	j.m.RLock()
	defer j.m.RUnlock()
	if d := j.nextRun.Sub(now); d > 0 {
		return d, nil
	}
	return 0, nil
}

func (j *SchedulerJob) UpdateLastAndNextTime(now time.Time) error {
	next, err := j.NextRunAfter(now)
	if err != nil {
		return err
	}

	j.m.Lock()
	defer j.m.Unlock()

	j.lastRun = now
	j.nextRun = next
	return nil
}

// NextRunAfter returns the first scheduled time strictly after t.
func (j *SchedulerJob) NextRunAfter(t time.Time) (time.Time, error) {
	j.m.RLock()
	defer j.m.RUnlock()

	if j.definition.DailyAt != "" {
		at, err := time.Parse(dailyAtLayout, j.definition.DailyAt)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "invalid daily time")
		}
		local := t.In(j.location)
		next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, j.location)
		if !next.After(local) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil
	}
	if j.definition.EverySeconds <= 0 {
		return time.Time{}, errors.Errorf("job %s has no schedule", j.definition.Name)
	}
	return t.Add(time.Duration(j.definition.EverySeconds) * time.Second), nil
}
