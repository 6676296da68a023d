package modules

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/classifier"
	collector_builder "github.com/Luismorlan/infoflow/collector/builder"
	collector_job_handler "github.com/Luismorlan/infoflow/collector/handler"
	"github.com/Luismorlan/infoflow/curator"
	"github.com/Luismorlan/infoflow/deduplicator"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/panoptic"
	"github.com/Luismorlan/infoflow/publisher"
	"github.com/Luismorlan/infoflow/scorer"
	"github.com/Luismorlan/infoflow/utils"
)

func TestLocalExecutorOnEmptyStore(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	now := func() time.Time { return testNow }

	c := curator.NewCurator(db, curator.DefaultConfig())
	c.Now = now
	e := &LocalExecutor{
		Fetcher:   collector_job_handler.NewDataCollectJobHandler(db, collector_builder.NewDefaultCollectorBuilder(), deduplicator.NewDeduplicator(db), collector_job_handler.DefaultConfig()),
		Scorer:    scorer.NewRunner(db, scorer.DefaultConfig()),
		Tagger:    classifier.NewTagger(db, classifier.NewDefaultClassifier(), 2),
		Curator:   c,
		Publisher: publisher.NewPublisher(db, nil, publisher.DefaultConfig()),
		Now:       now,
	}
	ctx := context.Background()

	tests := []struct {
		job    panoptic.JobMessage
		detail string
	}{
		{panoptic.JobMessage{Kind: model.JobKindFetchAll}, "0 sources, 0 runs, fetched 0, new 0, updated 0, skipped 0, failed 0"},
		{panoptic.JobMessage{Kind: model.JobKindScoreAll}, "0 considered, 0 scored, 0 failed"},
		{panoptic.JobMessage{Kind: model.JobKindClassifyAll}, "0 considered, 0 classified"},
		{panoptic.JobMessage{Kind: model.JobKindGenerateBrief}, "2024-03-09 insufficient-data: 0 scored items, need at least 5"},
		{panoptic.JobMessage{Kind: model.JobKindGenerateBrief, Date: "2024-01-02"}, "2024-01-02 insufficient-data: 0 scored items, need at least 5"},
		{panoptic.JobMessage{Kind: model.JobKindPublishBrief}, "no brief to publish"},
	}
	for _, tc := range tests {
		t.Run(tc.job.Kind+tc.job.Date, func(t *testing.T) {
			detail, err := e.Execute(ctx, &tc.job)
			require.NoError(t, err)
			assert.Equal(t, tc.detail, detail)
		})
	}

	_, err := e.Execute(ctx, &panoptic.JobMessage{Kind: model.JobKindGenerateBrief, Date: "yesterday"})
	assert.Error(t, err)
	_, err = e.Execute(ctx, &panoptic.JobMessage{Kind: "crawl"})
	assert.Error(t, err)
}

func TestLocalExecutorWithoutComponents(t *testing.T) {
	e := &LocalExecutor{Now: time.Now}
	for _, kind := range jobKinds {
		_, err := e.Execute(context.Background(), &panoptic.JobMessage{Kind: kind})
		assert.EqualError(t, err, "no component configured for "+kind)
	}
}

func TestDescribeDeliveries(t *testing.T) {
	brief := &model.Brief{BriefDate: "2024-03-09"}

	detail, err := DescribeDeliveries(brief, map[string]error{})
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-09 already delivered", detail)

	detail, err = DescribeDeliveries(brief, map[string]error{"stderr": nil, "slack": nil})
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-09 sent to [slack,stderr]", detail)

	detail, err = DescribeDeliveries(brief, map[string]error{"stderr": nil, "sns": errors.New("throttled")})
	assert.Equal(t, "2024-03-09 sent to [stderr]", detail)
	assert.EqualError(t, err, "2024-03-09 failed on [sns]")
}
