package modules

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	Logger "github.com/Luismorlan/infoflow/utils/log"
)

type SchedulerConfig struct {
	// Name of the scheduler.
	Name string
	// Daily job times are resolved in this location, UTC when nil.
	Location *time.Location
}

// Scheduler owns the SchedulerJobs and hands each due job to the JobDoer.
// Every job runs its own timer loop, a paused job keeps ticking but is not
// emitted.
type Scheduler struct {
	m sync.RWMutex

	Config SchedulerConfig

	Jobs []*SchedulerJob

	JobDoer JobDoer

	Now func() time.Time

	// Set while RunModule is active, so that upserted jobs start right away.
	runCtx context.Context
	wg     sync.WaitGroup
}

// Return a new instance of Scheduler.
func NewScheduler(config SchedulerConfig, definitions []JobDefinition, doer JobDoer, ctx context.Context) (*Scheduler, error) {
	s := &Scheduler{
		m:       sync.RWMutex{},
		Config:  config,
		JobDoer: doer,
		Now:     time.Now,
	}
	jobs := NewSchedulerJobs(definitions, config.Location, ctx)
	if err := ValidateJobs(jobs); err != nil {
		return nil, err
	}
	s.UpsertJobs(jobs)
	return s, nil
}

// ValidateJobs checks every definition and the uniqueness of job names.
func ValidateJobs(jobs []*SchedulerJob) error {
	definitions := make([]JobDefinition, 0, len(jobs))
	for _, job := range jobs {
		definitions = append(definitions, job.Definition())
	}
	return ValidateDefinitions(definitions)
}

func ValidateDefinitions(definitions []JobDefinition) error {
	names := map[string]bool{}
	for _, d := range definitions {
		if err := d.Validate(); err != nil {
			return err
		}
		if names[d.Name] {
			return errors.Errorf("duplicate job name %s", d.Name)
		}
		names[d.Name] = true
	}
	return nil
}

// UpsertJobs replaces the job list. Jobs already known by name keep their
// run history and only take the new definition, jobs missing from the list
// are cancelled.
func (s *Scheduler) UpsertJobs(jobs []*SchedulerJob) {
	s.m.Lock()
	defer s.m.Unlock()

	existing := map[string]*SchedulerJob{}
	for _, job := range s.Jobs {
		existing[job.Name()] = job
	}

	updated := []*SchedulerJob{}
	for _, job := range jobs {
		if old, ok := existing[job.Name()]; ok {
			old.m.Lock()
			old.definition = job.definition
			old.m.Unlock()
			delete(existing, job.Name())
			job.cancel()
			updated = append(updated, old)
			continue
		}
		updated = append(updated, job)
		if s.runCtx != nil {
			job.RefreshContext(s.runCtx)
			s.startJob(job)
		}
	}

	for _, removed := range existing {
		removed.cancel()
	}
	s.Jobs = updated
}

func (s *Scheduler) findJob(name string) (*SchedulerJob, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	for _, job := range s.Jobs {
		if job.Name() == name {
			return job, nil
		}
	}
	return nil, errors.Errorf("unknown job %s", name)
}

func (s *Scheduler) Pause(name string) error {
	job, err := s.findJob(name)
	if err != nil {
		return err
	}
	job.SetPaused(true)
	Logger.Log.WithFields(logrus.Fields{"job": name}).Info("job paused")
	return nil
}

func (s *Scheduler) Resume(name string) error {
	job, err := s.findJob(name)
	if err != nil {
		return err
	}
	job.SetPaused(false)
	Logger.Log.WithFields(logrus.Fields{"job": name}).Info("job resumed")
	return nil
}

// Trigger emits a job immediately, regardless of its schedule or pause state.
func (s *Scheduler) Trigger(name string) error {
	job, err := s.findJob(name)
	if err != nil {
		return err
	}
	return s.JobDoer.Do(job)
}

func (s *Scheduler) Status() []SchedulerJobStatus {
	s.m.RLock()
	defer s.m.RUnlock()
	res := make([]SchedulerJobStatus, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		res = append(res, job.Status())
	}
	return res
}

// Tick runs one job if it is not paused and schedules its next run.
func (s *Scheduler) Tick(job *SchedulerJob) error {
	now := s.Now()
	if !job.IsPaused() {
		if err := s.JobDoer.Do(job); err != nil {
			Logger.Log.WithFields(logrus.Fields{"job": job.Name()}).Errorf("fail to emit job: %v", err)
		}
	}
	return job.UpdateLastAndNextTime(now)
}

func (s *Scheduler) loop(job *SchedulerJob) {
	defer s.wg.Done()
	for {
		wait, err := job.DurationTillNextRun(s.Now())
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"job": job.Name()}).Errorf("job stopped: %v", err)
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-job.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := s.Tick(job); err != nil {
			Logger.Log.WithFields(logrus.Fields{"job": job.Name()}).Errorf("job stopped: %v", err)
			return
		}
	}
}

// startJob must be called with s.m held.
func (s *Scheduler) startJob(job *SchedulerJob) {
	s.wg.Add(1)
	go s.loop(job)
}

func (s *Scheduler) RunModule(ctx context.Context) error {
	s.m.Lock()
	s.runCtx = ctx
	for _, job := range s.Jobs {
		job.RefreshContext(ctx)
		s.startJob(job)
	}
	s.m.Unlock()

	<-ctx.Done()
	s.wg.Wait()

	s.m.Lock()
	s.runCtx = nil
	s.m.Unlock()
	return nil
}

func (s *Scheduler) Name() string {
	return s.Config.Name
}

func (s *Scheduler) Shutdown() {
	s.m.RLock()
	defer s.m.RUnlock()
	for _, job := range s.Jobs {
		job.cancel()
	}
}
