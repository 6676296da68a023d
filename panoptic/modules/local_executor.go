package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/classifier"
	collector_job_handler "github.com/Luismorlan/infoflow/collector/handler"
	"github.com/Luismorlan/infoflow/curator"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/panoptic"
	"github.com/Luismorlan/infoflow/publisher"
	"github.com/Luismorlan/infoflow/scorer"
)

// LocalExecutor runs jobs in process. A nil component makes its job kind
// fail with a configuration error.
type LocalExecutor struct {
	Fetcher   *collector_job_handler.DataCollectJobHandler
	Scorer    *scorer.Runner
	Tagger    *classifier.Tagger
	Curator   *curator.Curator
	Publisher *publisher.Publisher
	Now       func() time.Time
}

func (e *LocalExecutor) Execute(ctx context.Context, job *panoptic.JobMessage) (string, error) {
	switch job.Kind {
	case model.JobKindFetchAll:
		if e.Fetcher == nil {
			return "", notConfigured(job.Kind)
		}
		summary, err := e.Fetcher.Collect(ctx, job.Force)
		if summary == nil {
			return "", err
		}
		return fmt.Sprintf("%d sources, %d runs, fetched %d, new %d, updated %d, skipped %d, failed %d",
			summary.Sources, len(summary.Runs), summary.Counts.Fetched, summary.Counts.New,
			summary.Counts.Updated, summary.Counts.Skipped, summary.Counts.Failed), err

	case model.JobKindScoreAll:
		if e.Scorer == nil {
			return "", notConfigured(job.Kind)
		}
		res, err := e.Scorer.ScoreAll(ctx, e.Now(), job.Force)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d considered, %d scored, %d failed", res.Considered, res.Scored, res.Failed), nil

	case model.JobKindClassifyAll:
		if e.Tagger == nil {
			return "", notConfigured(job.Kind)
		}
		res, err := e.Tagger.ClassifyAll(ctx, job.Force)
		if res == nil {
			return "", err
		}
		return fmt.Sprintf("%d considered, %d classified", res.Considered, res.Classified), err

	case model.JobKindGenerateBrief:
		if e.Curator == nil {
			return "", notConfigured(job.Kind)
		}
		day := e.Curator.DefaultDay()
		if job.Date != "" {
			var err error
			if day, err = e.Curator.ParseDay(job.Date); err != nil {
				return "", err
			}
		}
		res, err := e.Curator.Generate(ctx, day, job.Force)
		if err != nil {
			return "", err
		}
		detail := fmt.Sprintf("%s %s", day.Format(model.BriefDateLayout), res.Status)
		if res.Reason != "" {
			detail += ": " + res.Reason
		}
		return detail, nil

	case model.JobKindPublishBrief:
		if e.Publisher == nil {
			return "", notConfigured(job.Kind)
		}
		brief, results, err := e.Publisher.PublishPending(ctx)
		if err != nil {
			return "", err
		}
		if brief == nil {
			return "no brief to publish", nil
		}
		return DescribeDeliveries(brief, results)
	}
	return "", errors.Errorf("unknown job kind %q", job.Kind)
}

// DescribeDeliveries fails when any channel failed, the failure is already
// recorded on the delivery rows.
func DescribeDeliveries(brief *model.Brief, results map[string]error) (string, error) {
	if len(results) == 0 {
		return brief.BriefDate + " already delivered", nil
	}
	channels := make([]string, 0, len(results))
	for channel := range results {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	sent, failed := []string{}, []string{}
	for _, channel := range channels {
		if results[channel] != nil {
			failed = append(failed, channel)
			continue
		}
		sent = append(sent, channel)
	}
	detail := fmt.Sprintf("%s sent to [%s]", brief.BriefDate, strings.Join(sent, ","))
	if len(failed) > 0 {
		return detail, errors.Errorf("%s failed on [%s]", brief.BriefDate, strings.Join(failed, ","))
	}
	return detail, nil
}

func notConfigured(kind string) error {
	return errors.Errorf("no component configured for %s", kind)
}

func (e *LocalExecutor) Shutdown() {}
