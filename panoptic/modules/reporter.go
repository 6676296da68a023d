package modules

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Luismorlan/infoflow/panoptic"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

type ReporterConfig struct {
	Name string
}

// Reporter's job is to listen to executed jobs and aggregate results,
// sending to Datadog and exposing Prometheus counters for monitoring purpose.
type Reporter struct {
	Config ReporterConfig

	Statsd statsd.ClientInterface

	EventBus *gochannel.GoChannel

	jobStates   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

func NewReporter(config ReporterConfig, statsd statsd.ClientInterface, registry prometheus.Registerer, e *gochannel.GoChannel) *Reporter {
	r := &Reporter{
		Config:   config,
		Statsd:   statsd,
		EventBus: e,
		jobStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infoflow_jobs_total",
			Help: "Handled jobs by kind and state.",
		}, []string{"kind", "state"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infoflow_job_duration_seconds",
			Help:    "Job execution time by kind.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"kind"}),
	}
	if registry != nil {
		registry.MustRegister(r.jobStates, r.jobDuration)
	}
	return r
}

// Report job result state to datadog and prometheus.
func (r *Reporter) Report(res *panoptic.JobResult) {
	r.jobStates.WithLabelValues(res.Job.Kind, res.State).Inc()
	r.jobDuration.WithLabelValues(res.Job.Kind).Observe(res.Duration().Seconds())

	if r.Statsd == nil {
		return
	}
	tags := []string{"kind:" + res.Job.Kind, "job:" + res.Job.Name, "state:" + res.State}
	if err := r.Statsd.Incr(panoptic.DdogJobStateCounter, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report result state")
	}
	if err := r.Statsd.Timing(panoptic.DdogJobDuration, res.Duration(), tags, 1); err != nil {
		Logger.Log.Infoln("cannot report job duration")
	}
}

func (r *Reporter) ProcessJobResults(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.EventBus.Subscribe(ctx, panoptic.TopicExecutedJob)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		res, err := panoptic.DecodeJobResult(msg)
		if err != nil {
			Logger.Log.Errorf("drop malformed job result: %v", err)
			continue
		}
		r.Report(res)
	}

	return nil
}

func (r *Reporter) RunModule(ctx context.Context) error {
	return r.ProcessJobResults(ctx)
}

func (r *Reporter) Name() string {
	return r.Config.Name
}

func (r *Reporter) Shutdown() {
	if r.Statsd == nil {
		return
	}
	if err := r.Statsd.Flush(); err != nil {
		Logger.Log.Errorf("fail to flush statsd: %v", err)
	}
}
