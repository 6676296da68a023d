package classifier

import (
	"context"
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

func insertItem(t *testing.T, db *gorm.DB, id, title, body string) *model.Item {
	t.Helper()
	item := &model.Item{
		Id:          id,
		Platform:    model.PlatformRSS,
		NativeId:    id,
		Title:       title,
		Body:        body,
		PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

type tagView struct {
	Confidence float64
	IsManual   bool
}

func tagsOf(t *testing.T, db *gorm.DB, itemId string) map[string]tagView {
	t.Helper()
	var rows []model.ItemTag
	require.NoError(t, db.Preload("Tag").Where("item_id = ?", itemId).Find(&rows).Error)
	res := map[string]tagView{}
	for _, row := range rows {
		res[row.Tag.Name] = tagView{Confidence: row.Confidence, IsManual: row.IsManual}
	}
	return res
}

func TestClassifyCreatesAutomaticTags(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	item := insertItem(t, db, "a", "GPT news", "A great LLM paper about transformers")
	tagger := NewTagger(db, NewDefaultClassifier(), 2)

	_, err := tagger.Classify(context.Background(), item)
	require.NoError(t, err)
	require.NotNil(t, item.ClassifiedAt)

	tags := tagsOf(t, db, "a")
	assert.Equal(t, tagView{Confidence: 1}, tags["AI"])
	assert.Equal(t, tagView{Confidence: 0.33}, tags[SentimentPositive])
	assert.Contains(t, tags, "paper")

	var tag model.Tag
	require.NoError(t, db.Where("name = ?", "AI").First(&tag).Error)
	assert.Equal(t, model.TagCategoryTopic, tag.Category)
	assert.True(t, tag.IsAuto)

	var stored model.Item
	require.NoError(t, db.First(&stored, "id = ?", "a").Error)
	assert.NotNil(t, stored.ClassifiedAt)
}

func TestReclassifyNeverTouchesManualTags(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	ctx := context.Background()
	item := insertItem(t, db, "a", "GPT news", "A great LLM paper")
	tagger := NewTagger(db, NewDefaultClassifier(), 1)

	_, err := tagger.Classify(ctx, item)
	require.NoError(t, err)

	// Manual tag over an automatic one, plus a purely manual tag.
	_, err = tagger.AddManualTag(ctx, "a", "AI", model.TagCategoryTopic)
	require.NoError(t, err)
	manual, err := tagger.AddManualTag(ctx, "a", "Design", "")
	require.NoError(t, err)
	assert.True(t, manual.IsManual)
	assert.Equal(t, 1.0, manual.Confidence)
	require.NotNil(t, manual.Tag)
	assert.Equal(t, "Design", manual.Tag.Name)

	var before []model.ItemTag
	require.NoError(t, db.Where("item_id = ? AND is_manual = ?", "a", true).Order("id").Find(&before).Error)
	require.Len(t, before, 2)

	// The content changes so automatic tags change as well.
	require.NoError(t, db.Model(item).Updates(map[string]interface{}{"title": "", "body": "terrible bitcoin crash"}).Error)
	item.Title, item.Body = "", "terrible bitcoin crash"
	_, err = tagger.Classify(ctx, item)
	require.NoError(t, err)

	var after []model.ItemTag
	require.NoError(t, db.Where("item_id = ? AND is_manual = ?", "a", true).Order("id").Find(&after).Error)
	require.Len(t, after, 2)
	for i := range before {
		assert.Equal(t, before[i].Id, after[i].Id)
		assert.Equal(t, before[i].Confidence, after[i].Confidence)
		assert.True(t, after[i].UpdatedAt.Equal(before[i].UpdatedAt))
	}

	tags := tagsOf(t, db, "a")
	assert.Equal(t, tagView{Confidence: 1, IsManual: true}, tags["AI"])
	assert.Equal(t, tagView{Confidence: 1, IsManual: true}, tags["Design"])
	assert.Equal(t, tagView{Confidence: 0.33}, tags["Investing"])
	assert.Contains(t, tags, SentimentNegative)
	assert.NotContains(t, tags, SentimentPositive)
	assert.NotContains(t, tags, "paper")
}

func TestRemoveManualTag(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	ctx := context.Background()
	item := insertItem(t, db, "a", "", "bitcoin")
	tagger := NewTagger(db, NewDefaultClassifier(), 1)
	_, err := tagger.Classify(ctx, item)
	require.NoError(t, err)

	removed, err := tagger.RemoveManualTag(ctx, "a", "Investing")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Contains(t, tagsOf(t, db, "a"), "Investing")

	_, err = tagger.AddManualTag(ctx, "a", "must-read", model.TagCategoryEntity)
	require.NoError(t, err)
	removed, err = tagger.RemoveManualTag(ctx, "a", "must-read")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, tagsOf(t, db, "a"), "must-read")

	removed, err = tagger.RemoveManualTag(ctx, "a", "unknown")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = tagger.AddManualTag(ctx, "missing-item", "AI", "")
	assert.Error(t, err)
}

func TestClassifyAll(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	ctx := context.Background()
	insertItem(t, db, "a", "", "GPT")
	insertItem(t, db, "b", "", "bitcoin")
	insertItem(t, db, "c", "", "Figma")
	tagger := NewTagger(db, NewDefaultClassifier(), 3)

	res, err := tagger.ClassifyAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, RunResult{Considered: 3, Classified: 3}, *res)

	res, err = tagger.ClassifyAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)

	res, err = tagger.ClassifyAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Classified)

	topics, err := DominantTopics(ctx, db, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "AI", "b": "Investing", "c": "Design"}, topics)
}

func TestSeedTopics(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	require.NoError(t, SeedTopics(context.Background(), db, DefaultTopicRules))
	require.NoError(t, SeedTopics(context.Background(), db, DefaultTopicRules))

	var tags []model.Tag
	require.NoError(t, db.Where("category = ?", model.TagCategoryTopic).Find(&tags).Error)
	assert.Len(t, tags, len(DefaultTopicRules))
	for _, tag := range tags {
		assert.NotEmpty(t, tag.Color)
	}
}
