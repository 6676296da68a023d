package modules

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/infoflow/panoptic"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// JobDoer execute the SchedulerJob with customized logic. We create this
// abstraction so that we could inject different JobDoer implementation into
// scheduler for the easy of testing and debugging.
type JobDoer interface {
	// Performs a SchedulerJob, return error if there's any.
	Do(job *SchedulerJob) error
}

type SchedulerJobDoer struct {
	EventBus *gochannel.GoChannel
	Now      func() time.Time
}

func NewSchedulerJobDoer(e *gochannel.GoChannel) *SchedulerJobDoer {
	return &SchedulerJobDoer{
		EventBus: e,
		Now:      time.Now,
	}
}

func NewJobMessage(job *SchedulerJob, now time.Time) *panoptic.JobMessage {
	d := job.Definition()
	return &panoptic.JobMessage{
		Id:          uuid.NewString(),
		Name:        d.Name,
		Kind:        d.Kind,
		DependsOn:   d.DependsOn,
		ScheduledAt: now,
		Force:       d.Force,
	}
}

// Convert SchedulerJob to JobMessage and publish to event bus.
func (d *SchedulerJobDoer) Do(job *SchedulerJob) error {
	msg, err := panoptic.EncodeMessage(NewJobMessage(job, d.Now()))
	if err != nil {
		return err
	}
	if err := d.EventBus.Publish(panoptic.TopicPendingJob, msg); err != nil {
		return err
	}

	job.IncrementRunCount()

	return nil
}

// Test only, log the to-be executed job
type PrinterJobDoer struct{}

func (d *PrinterJobDoer) Do(job *SchedulerJob) error {
	def := job.Definition()
	Logger.Log.WithFields(logrus.Fields{"job": def.Name, "kind": def.Kind}).Info("job due")

	job.IncrementRunCount()

	return nil
}
