package scorer

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
	"github.com/Luismorlan/infoflow/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

func insertItem(t *testing.T, db *gorm.DB, id, author string, published time.Time, likes int64) *model.Item {
	t.Helper()
	item := &model.Item{
		Id:          id,
		SourceId:    "source",
		Platform:    model.PlatformReddit,
		NativeId:    id,
		Body:        "body of " + id,
		AuthorId:    author,
		PublishedAt: published,
	}
	item.SetMetrics(model.Metrics{Likes: model.Int64(likes)})
	require.NoError(t, db.Create(item).Error)
	return item
}

func tagItem(t *testing.T, db *gorm.DB, itemId, tagId string, confidence float64) {
	t.Helper()
	require.NoError(t, db.Create(&model.ItemTag{Id: itemId + tagId, ItemId: itemId, TagId: tagId, Confidence: confidence}).Error)
}

func scoresOf(t *testing.T, db *gorm.DB, itemId string) map[string]model.Score {
	t.Helper()
	var scores []model.Score
	require.NoError(t, db.Where("item_id = ?", itemId).Find(&scores).Error)
	res := map[string]model.Score{}
	for _, s := range scores {
		res[s.Kind] = s
	}
	return res
}

func TestScoreAllScoresUnscoredItems(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	insertItem(t, db, "a", "alice", now.Add(-2*time.Hour), 400)
	insertItem(t, db, "b", "alice", now.Add(-3*time.Hour), 100)
	insertItem(t, db, "broken", "bob", time.Time{}, 5)

	runner := NewRunner(db, DefaultConfig())
	res, err := runner.ScoreAll(context.Background(), now, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Considered)
	assert.Equal(t, 2, res.Scored)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "broken")

	for _, id := range []string{"a", "b"} {
		scores := scoresOf(t, db, id)
		require.Len(t, scores, 2, id)
		assert.Equal(t, AlgorithmVersion, scores[model.ScoreKindHeat].AlgorithmVersion)
		var item model.Item
		require.NoError(t, db.First(&item, "id = ?", id).Error)
		assert.True(t, item.Scored, id)
	}
	assert.Empty(t, scoresOf(t, db, "broken"))
	var broken model.Item
	require.NoError(t, db.First(&broken, "id = ?", "broken").Error)
	assert.False(t, broken.Scored)

	// The author's other item feeds author weight.
	var factors PotentialFactors
	require.NoError(t, json.Unmarshal(scoresOf(t, db, "a")[model.ScoreKindPotential].Factors, &factors))
	heatOfB := scoresOf(t, db, "b")[model.ScoreKindHeat].Value
	assert.InDelta(t, 0.05*(1-3.0/168)*100, heatOfB, 1e-9)
	assert.InDelta(t, heatOfB/100, factors.AuthorWeight, 1e-9)
	assert.Equal(t, 0.5, factors.Scarcity)

	// Scored items are left alone by the next run.
	res, err = runner.ScoreAll(context.Background(), now, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	insertItem(t, db, "a", "alice", now.Add(-30*time.Hour), 400)
	insertItem(t, db, "b", "alice", now.Add(-3*time.Hour), 100)
	insertItem(t, db, "c", "carol", now.Add(-3*time.Hour), 50)

	runner := NewRunner(db, DefaultConfig())
	_, err := runner.ScoreAll(context.Background(), now, false)
	require.NoError(t, err)
	first := map[string]map[string]model.Score{}
	for _, id := range []string{"a", "b", "c"} {
		first[id] = scoresOf(t, db, id)
	}

	res, err := runner.ScoreAll(context.Background(), now, true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Considered)

	var count int64
	require.NoError(t, db.Model(&model.Score{}).Count(&count).Error)
	assert.Equal(t, int64(6), count)
	for _, id := range []string{"a", "b", "c"} {
		again := scoresOf(t, db, id)
		for _, kind := range []string{model.ScoreKindHeat, model.ScoreKindPotential} {
			assert.Equal(t, first[id][kind].Value, again[kind].Value, "%s %s", id, kind)
			assert.Equal(t, first[id][kind].Id, again[kind].Id, "%s %s", id, kind)
		}
	}
}

func TestScoringNeverTouchesMetrics(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	insertItem(t, db, "a", "alice", now.Add(-2*time.Hour), 400)

	_, err := NewRunner(db, DefaultConfig()).ScoreAll(context.Background(), now, false)
	require.NoError(t, err)

	var item model.Item
	require.NoError(t, db.First(&item, "id = ?", "a").Error)
	require.NotNil(t, item.Likes)
	assert.Equal(t, int64(400), *item.Likes)
	assert.Nil(t, item.Views)
}

func TestPotentialInputReadsTagsAndObservations(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	require.NoError(t, db.Create(&model.Tag{Id: "ai", Name: "AI", Category: model.TagCategoryTopic}).Error)
	require.NoError(t, db.Create(&model.Tag{Id: "tech", Name: "Tech", Category: model.TagCategoryTopic}).Error)
	require.NoError(t, db.Create(&model.Tag{Id: "pos", Name: "positive", Category: model.TagCategorySentiment}).Error)

	item := insertItem(t, db, "a", "alice", now.Add(-time.Hour), 10)
	insertItem(t, db, "b", "bob", now.Add(-2*time.Hour), 10)
	insertItem(t, db, "c", "carol", now.Add(-3*time.Hour), 10)
	insertItem(t, db, "ancient", "dave", now.Add(-90*24*time.Hour), 10)

	// Equal confidence, the tag name breaks the tie.
	tagItem(t, db, "a", "tech", 0.6)
	tagItem(t, db, "a", "ai", 0.6)
	tagItem(t, db, "a", "pos", 1)
	tagItem(t, db, "b", "ai", 0.3)
	tagItem(t, db, "c", "ai", 1)
	tagItem(t, db, "ancient", "ai", 1)

	require.NoError(t, db.Create(&model.ItemObservation{Id: "o1", ItemId: "a", ObservedAt: now.Add(-2 * time.Hour), Likes: model.Int64(0)}).Error)
	require.NoError(t, db.Create(&model.ItemObservation{Id: "o2", ItemId: "a", ObservedAt: now.Add(-time.Hour), Likes: model.Int64(100)}).Error)

	runner := NewRunner(db, DefaultConfig())
	input, err := runner.PotentialInputFor(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, "AI", input.DominantTag)
	assert.Equal(t, 2, input.TagPeers)
	assert.Len(t, input.Observations, 2)
	assert.Empty(t, input.AuthorHeats)
	assert.InDelta(t, 1.0, GrowthTrend(input.Observations, DefaultInteractionWeights, 100), 1e-9)
}
