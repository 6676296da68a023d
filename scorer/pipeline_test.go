package scorer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/classifier"
	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/deduplicator"
	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

func potentialFactorsOf(t *testing.T, db *gorm.DB, itemId string) PotentialFactors {
	t.Helper()
	var factors PotentialFactors
	require.NoError(t, json.Unmarshal(scoresOf(t, db, itemId)[model.ScoreKindPotential].Factors, &factors))
	return factors
}

func TestRescoreAfterClassificationAndMetricUpdate(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	ctx := context.Background()
	t0 := now.Add(-48 * time.Hour)
	at := func(d time.Duration) func() time.Time {
		return func() time.Time { return t0.Add(d) }
	}

	raw := &collector.RawItem{
		Platform:    model.PlatformReddit,
		NativeId:    "t3_llm",
		Title:       "A new open model",
		Body:        "machine learning and deep learning power every LLM",
		AuthorId:    "alice",
		PublishedAt: t0.Add(-time.Hour),
		Metrics:     model.Metrics{Likes: model.Int64(10), Comments: model.Int64(1)},
	}
	dedup := deduplicator.NewDeduplicator(db)
	dedup.Now = at(0)
	outcome, err := dedup.IngestOne(ctx, "source", raw)
	require.NoError(t, err)
	require.Equal(t, deduplicator.OutcomeNew, outcome)
	var item model.Item
	require.NoError(t, db.First(&item, "native_id = ?", "t3_llm").Error)

	runner := NewRunner(db, DefaultConfig())
	tagger := classifier.NewTagger(db, classifier.NewDefaultClassifier(), 1)

	// Scored before any tag exists, scarcity is neutral.
	res, err := runner.ScoreAll(ctx, t0.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Equal(t, 0.5, potentialFactorsOf(t, db, item.Id).Scarcity)

	tagger.Now = at(5 * time.Minute)
	_, err = tagger.ClassifyAll(ctx, false)
	require.NoError(t, err)

	// The classification makes the potential stale.
	res, err = runner.ScoreAll(ctx, t0.Add(10*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	factors := potentialFactorsOf(t, db, item.Id)
	assert.Equal(t, "AI", factors.DominantTag)
	assert.Equal(t, 1.0, factors.Scarcity)
	assert.Equal(t, 0.0, factors.GrowthTrend)
	heatBefore := scoresOf(t, db, item.Id)[model.ScoreKindHeat].Value

	res, err = runner.ScoreAll(ctx, t0.Add(15*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)

	// Metrics grow by 490 weighted interactions in two hours.
	raw.Metrics = model.Metrics{Likes: model.Int64(500), Comments: model.Int64(1)}
	dedup.Now = at(2 * time.Hour)
	outcome, err = dedup.IngestOne(ctx, "source", raw)
	require.NoError(t, err)
	require.Equal(t, deduplicator.OutcomeUpdated, outcome)

	res, err = runner.ScoreAll(ctx, t0.Add(2*time.Hour+10*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Equal(t, 1, res.Scored)
	factors = potentialFactorsOf(t, db, item.Id)
	assert.Equal(t, 1.0, factors.GrowthTrend)
	assert.Equal(t, 1.0, factors.Scarcity)
	assert.Greater(t, scoresOf(t, db, item.Id)[model.ScoreKindHeat].Value, heatBefore)

	res, err = runner.ScoreAll(ctx, t0.Add(2*time.Hour+20*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)
}

func TestHeatRefreshOfDecayingItems(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	insertItem(t, db, "fresh", "alice", now.Add(-2*time.Hour), 400)
	insertItem(t, db, "old", "bob", now.Add(-10*24*time.Hour), 400)

	runner := NewRunner(db, DefaultConfig())
	_, err := runner.ScoreAll(context.Background(), now, false)
	require.NoError(t, err)
	first := scoresOf(t, db, "fresh")[model.ScoreKindHeat].Value

	res, err := runner.ScoreAll(context.Background(), now.Add(time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)

	// Only the item still inside the decay window is refreshed.
	res, err = runner.ScoreAll(context.Background(), now.Add(7*time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Less(t, scoresOf(t, db, "fresh")[model.ScoreKindHeat].Value, first)
}
