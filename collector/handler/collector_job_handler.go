package collector_job_handler

import (
	"context"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/collector"
	collector_builder "github.com/Luismorlan/infoflow/collector/builder"
	"github.com/Luismorlan/infoflow/collector/sink"
	"github.com/Luismorlan/infoflow/deduplicator"
	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

type Config struct {
	// Upper bound of sources fetched at the same time.
	MaxConcurrentFetches int
	// Per source request rate, each source gets its own limiter.
	RatePerSecond float64
	RateBurst     int
	// Pages fetched per source in one run, a page is committed before the next
	// one is requested.
	MaxPagesPerRun int
	// Retries of retryable fetch errors, each attempt records its own FetchRun.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentFetches: 4,
		RatePerSecond:        1,
		RateBurst:            1,
		MaxPagesPerRun:       3,
		MaxRetries:           2,
		BaseBackoff:          2 * time.Second,
		MaxBackoff:           30 * time.Second,
	}
}

// Summary is the outcome of one fetch-all job.
type Summary struct {
	Sources int
	Runs    []*model.FetchRun
	Counts  sink.Counts
}

// DataCollectJobHandler runs one fetch task per due source. Tasks are
// isolated: an adapter failure lands in that source's FetchRun and never
// fails its siblings. Only store failures fail the job.
type DataCollectJobHandler struct {
	DB      *gorm.DB
	Builder *collector_builder.CollectorBuilder
	Sink    sink.CollectedDataSink
	Config  Config
	Now     func() time.Time

	limiters sync.Map
}

func NewDataCollectJobHandler(db *gorm.DB, builder *collector_builder.CollectorBuilder, s sink.CollectedDataSink, config Config) *DataCollectJobHandler {
	return &DataCollectJobHandler{DB: db, Builder: builder, Sink: s, Config: config, Now: time.Now}
}

// Collect fetches every active source whose interval elapsed, or every active
// source when force is set.
func (handler *DataCollectJobHandler) Collect(ctx context.Context, force bool) (*Summary, error) {
	var sources []*model.Source
	if err := handler.DB.WithContext(ctx).Where("is_active = ?", true).
		Order("id").Find(&sources).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load sources")
	}

	now := handler.Now()
	due := []*model.Source{}
	for _, s := range sources {
		if force || s.IsDue(now) {
			due = append(due, s)
		}
	}
	Logger.Log.WithFields(logrus.Fields{"active": len(sources), "due": len(due)}).Info("fetch all started")

	runs := make([][]*model.FetchRun, len(due))
	storeErrs := make([]error, len(due))

	var g errgroup.Group
	g.SetLimit(handler.maxConcurrency())
	for i := range due {
		i := i
		g.Go(func() error {
			runs[i], storeErrs[i] = handler.FetchSource(ctx, due[i])
			return nil
		})
	}
	g.Wait()

	summary := &Summary{Sources: len(due)}
	for i := range due {
		for _, run := range runs[i] {
			summary.Runs = append(summary.Runs, run)
			summary.Counts.Add(deduplicator.RunCounts(run))
		}
	}
	for _, err := range storeErrs {
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// FetchSource fetches one source, retrying retryable fetch errors with
// backoff. Every adapter invocation records one FetchRun. The error is only
// set for store failures.
func (handler *DataCollectJobHandler) FetchSource(ctx context.Context, source *model.Source) ([]*model.FetchRun, error) {
	adapter, err := handler.Builder.AdapterFor(source)
	if err != nil {
		run, storeErr := handler.recordFailedRun(ctx, source, err)
		return []*model.FetchRun{run}, storeErr
	}

	var (
		runs     []*model.FetchRun
		storeErr error
	)
	policy := retrypolicy.NewBuilder[*model.FetchRun]().
		WithBackoff(handler.backoff()).
		WithMaxRetries(handler.Config.MaxRetries).
		HandleIf(func(_ *model.FetchRun, err error) bool {
			return storeErr == nil && ctx.Err() == nil && collector.IsRetryable(err)
		}).
		Build()

	failsafe.With[*model.FetchRun](policy).WithContext(ctx).Get(func() (*model.FetchRun, error) {
		run, fetchErr, err := handler.fetchOnce(ctx, adapter, source)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			storeErr = err
			return run, err
		}
		return run, fetchErr
	})
	return runs, storeErr
}

// fetchOnce is one adapter invocation: pages are fetched, persisted, and the
// cursor is committed page by page, so the cursor never runs ahead of
// persistence.
func (handler *DataCollectJobHandler) fetchOnce(ctx context.Context, adapter collector.Adapter, source *model.Source) (*model.FetchRun, error, error) {
	run, err := deduplicator.StartFetchRun(ctx, handler.DB, source, source.Cursor, handler.Now())
	if err != nil {
		return nil, nil, err
	}

	counts := sink.Counts{}
	cursor := source.Cursor
	var runErr error
	for page := 0; page < handler.maxPages(); page++ {
		if err := handler.limiterFor(source.Id).Wait(ctx); err != nil {
			runErr = err
			break
		}
		result, err := adapter.Fetch(ctx, source, cursor)
		if err != nil {
			runErr = err
			collector.LogAdapterError(source, err, "fetch")
			break
		}
		pageCounts, err := sink.NormalizeAndPush(ctx, handler.Sink, adapter, source, result)
		counts.Add(pageCounts)
		if err != nil {
			runErr = err
			break
		}
		if result.NextCursor != "" {
			if err := deduplicator.CommitCursor(ctx, handler.DB, source, result.NextCursor); err != nil {
				runErr = err
				break
			}
		}
		if result.NextCursor == "" || result.NextCursor == cursor || len(result.Records) == 0 {
			break
		}
		cursor = result.NextCursor
	}

	status := deduplicator.StatusFromCounts(counts, runErr)
	if ctx.Err() != nil {
		status = model.RunStatusPartial
	}
	run.NextCursor = source.Cursor

	// A cancelled job still closes its run record.
	finishCtx := ctx
	if ctx.Err() != nil {
		finishCtx = context.Background()
	}
	if err := deduplicator.FinishFetchRun(finishCtx, handler.DB, run, counts, status, runErr, handler.Now()); err != nil {
		return run, runErr, err
	}

	Logger.Log.WithFields(logrus.Fields{
		"source":  source.Id,
		"status":  status,
		"fetched": counts.Fetched,
		"new":     counts.New,
		"updated": counts.Updated,
		"failed":  counts.Failed,
	}).Info("fetch run finished")
	return run, runErr, nil
}

func (handler *DataCollectJobHandler) recordFailedRun(ctx context.Context, source *model.Source, cause error) (*model.FetchRun, error) {
	run, err := deduplicator.StartFetchRun(ctx, handler.DB, source, source.Cursor, handler.Now())
	if err != nil {
		return nil, err
	}
	run.NextCursor = source.Cursor
	return run, deduplicator.FinishFetchRun(ctx, handler.DB, run, sink.Counts{}, model.RunStatusFailed, cause, handler.Now())
}

func (handler *DataCollectJobHandler) limiterFor(sourceId string) *rate.Limiter {
	if l, ok := handler.limiters.Load(sourceId); ok {
		return l.(*rate.Limiter)
	}
	limit := rate.Inf
	if handler.Config.RatePerSecond > 0 {
		limit = rate.Limit(handler.Config.RatePerSecond)
	}
	burst := handler.Config.RateBurst
	if burst <= 0 {
		burst = 1
	}
	l, _ := handler.limiters.LoadOrStore(sourceId, rate.NewLimiter(limit, burst))
	return l.(*rate.Limiter)
}

func (handler *DataCollectJobHandler) maxConcurrency() int {
	if handler.Config.MaxConcurrentFetches <= 0 {
		return 1
	}
	return handler.Config.MaxConcurrentFetches
}

func (handler *DataCollectJobHandler) maxPages() int {
	if handler.Config.MaxPagesPerRun <= 0 {
		return 1
	}
	return handler.Config.MaxPagesPerRun
}

func (handler *DataCollectJobHandler) backoff() (time.Duration, time.Duration) {
	base, max := handler.Config.BaseBackoff, handler.Config.MaxBackoff
	if base <= 0 {
		base = time.Millisecond
	}
	if max < base {
		max = base
	}
	return base, max
}
