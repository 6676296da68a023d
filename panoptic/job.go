package panoptic

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

/*

JobMessage is one scheduled execution travelling on the event bus

Name: scheduler job that emitted it
Kind: one of the model.JobKind* values
DependsOn: job kinds that must have succeeded before this one runs
Force: re-fetch every source, rescore, reclassify or regenerate, depending on Kind
Date: target date (2006-01-02) of generate_brief, empty means yesterday
*/
type JobMessage struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	DependsOn   []string  `json:"depends_on,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Force       bool      `json:"force,omitempty"`
	Date        string    `json:"date,omitempty"`
}

// JobResult is what the orchestrator reports after handling a JobMessage.
type JobResult struct {
	Job       JobMessage `json:"job"`
	RunId     string     `json:"run_id,omitempty"`
	State     string     `json:"state"`
	Detail    string     `json:"detail,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

func (r *JobResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

func EncodeMessage(v interface{}) (*message.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "fail to encode bus message")
	}
	return message.NewMessage(watermill.NewUUID(), data), nil
}

func DecodeJobMessage(msg *message.Message) (*JobMessage, error) {
	job := &JobMessage{}
	if err := json.Unmarshal(msg.Payload, job); err != nil {
		return nil, errors.Wrap(err, "fail to decode job message")
	}
	return job, nil
}

func DecodeJobResult(msg *message.Message) (*JobResult, error) {
	res := &JobResult{}
	if err := json.Unmarshal(msg.Payload, res); err != nil {
		return nil, errors.Wrap(err, "fail to decode job result")
	}
	return res, nil
}
