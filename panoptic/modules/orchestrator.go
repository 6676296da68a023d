package modules

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/panoptic"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

type OrchestratorConfig struct {
	// Name of the orchestrator.
	Name string
}

// Orchestrator executes pending jobs. Jobs of the same kind never overlap, a
// job arriving while its kind is running is skipped, the scheduler emits it
// again on the next tick.
type Orchestrator struct {
	Config OrchestratorConfig

	executor Executor

	DB *gorm.DB

	Dependencies *DependencyChecker

	EventBus *gochannel.GoChannel

	Now func() time.Time

	running sync.Map
	wg      sync.WaitGroup
}

// Return a new instance of Orchestrator.
func NewOrchestrator(config OrchestratorConfig, executor Executor, db *gorm.DB, deps *DependencyChecker, e *gochannel.GoChannel) *Orchestrator {
	return &Orchestrator{
		Config:       config,
		executor:     executor,
		DB:           db,
		Dependencies: deps,
		EventBus:     e,
		Now:          time.Now,
	}
}

// After a job is handled, publish it into an executed job channel for
// reporter to report.
func (o *Orchestrator) PublishFinishedJob(res *panoptic.JobResult) error {
	msg, err := panoptic.EncodeMessage(res)
	if err != nil {
		return err
	}
	return o.EventBus.Publish(panoptic.TopicExecutedJob, msg)
}

func (o *Orchestrator) lockKind(kind string) (func(), bool) {
	m, _ := o.running.LoadOrStore(kind, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// Handle runs one job synchronously: dependency check, JobRun bookkeeping and
// execution.
func (o *Orchestrator) Handle(ctx context.Context, job *panoptic.JobMessage) *panoptic.JobResult {
	res := &panoptic.JobResult{Job: *job, StartedAt: o.Now()}
	logger := Logger.Log.WithFields(logrus.Fields{"job": job.Name, "kind": job.Kind, "job_id": job.Id})
	finish := func(state, detail string) *panoptic.JobResult {
		res.State = state
		res.Detail = detail
		res.EndedAt = o.Now()
		return res
	}

	unlock, ok := o.lockKind(job.Kind)
	if !ok {
		logger.Info("job skipped, same kind still running")
		return finish(panoptic.JobStateSkipped, job.Kind+" already running")
	}
	defer unlock()

	if o.Dependencies != nil {
		reason, err := o.Dependencies.Ready(ctx, job)
		if err != nil {
			logger.Errorf("fail to check dependencies: %v", err)
			return finish(panoptic.JobStateFailed, err.Error())
		}
		if reason != "" {
			logger.WithFields(logrus.Fields{"reason": reason}).Info("job deferred")
			return finish(panoptic.JobStateDeferred, reason)
		}
	}

	run, err := StartJobRun(ctx, o.DB, job.Kind, res.StartedAt)
	if err != nil {
		logger.Errorf("fail to start job run: %v", err)
		return finish(panoptic.JobStateFailed, err.Error())
	}
	res.RunId = run.Id

	detail, execErr := o.executor.Execute(ctx, job)
	state, status := panoptic.JobStateSuccess, model.RunStatusSuccess
	if execErr != nil {
		state, status = panoptic.JobStateFailed, model.RunStatusFailed
		if detail != "" {
			detail += "; "
		}
		detail += execErr.Error()
		logger.Errorf("fail to execute job: %v", execErr)
	}

	// A cancelled job still closes its run record.
	finishCtx := ctx
	if ctx.Err() != nil {
		finishCtx = context.Background()
	}
	if err := FinishJobRun(finishCtx, o.DB, run, status, detail, o.Now()); err != nil {
		logger.Errorf("fail to finish job run: %v", err)
	}
	logger.WithFields(logrus.Fields{"state": state, "detail": detail}).Info("job finished")
	return finish(state, detail)
}

func (o *Orchestrator) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := o.EventBus.Subscribe(ctx, panoptic.TopicPendingJob)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		job, err := panoptic.DecodeJobMessage(msg)
		if err != nil {
			Logger.Log.Errorf("drop malformed job message: %v", err)
			continue
		}

		o.wg.Add(1)
		go func(job *panoptic.JobMessage) {
			defer o.wg.Done()
			res := o.Handle(ctx, job)
			if err := o.PublishFinishedJob(res); err != nil {
				Logger.Log.Errorf("fail to publish job into executed job channel, error: %s", err)
			}
		}(job)
	}

	o.wg.Wait()
	return nil
}

func (o *Orchestrator) Name() string {
	return o.Config.Name
}

func (o *Orchestrator) Shutdown() {
	o.executor.Shutdown()
	Logger.Log.Infoln("module ", o.Config.Name, " gracefully shutdown")
}
