package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/model"
)

func predictionsByCategory(predictions []Prediction, category string) map[string]float64 {
	res := map[string]float64{}
	for _, p := range predictions {
		if p.Category == category {
			res[p.Name] = p.Confidence
		}
	}
	return res
}

func TestTopics(t *testing.T) {
	c := NewDefaultClassifier()
	tests := []struct {
		name string
		text string
		want map[string]float64
	}{
		{"no topic", "a quiet afternoon", map[string]float64{}},
		{"single hit", "new LLM released", map[string]float64{"AI": 0.33}},
		{"saturates", "AI and more AI, GPT and a transformer", map[string]float64{"AI": 1}},
		{"chinese keywords", "大模型 推理 成本", map[string]float64{"AI": 0.67}},
		{"plural", "two games tonight", map[string]float64{"Entertainment": 0.33}},
		{"no substring match", "she said the painting was fine", map[string]float64{}},
		{"multiple topics", "bitcoin market and GitHub code", map[string]float64{"Investing": 0.67, "Tech": 0.67}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := predictionsByCategory(c.Topics(strings.ToLower(tc.text)), model.TagCategoryTopic)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSentiment(t *testing.T) {
	c := NewDefaultClassifier()
	tests := []struct {
		text       string
		name       string
		confidence float64
	}{
		{"an ordinary update", SentimentNeutral, 0.8},
		{"great release, love it, the best", SentimentPositive, 1},
		{"great but one bug", SentimentNeutral, 0.8},
		{"terrible error, awful fail", SentimentNegative, 1},
		{"成功 突破", SentimentPositive, 0.67},
		{"loved it 👍", SentimentPositive, 0.33},
	}
	for _, tc := range tests {
		got := c.Sentiment(strings.ToLower(tc.text))
		assert.Equal(t, model.TagCategorySentiment, got.Category, tc.text)
		assert.Equal(t, tc.name, got.Name, tc.text)
		assert.Equal(t, tc.confidence, got.Confidence, tc.text)
	}
}

func TestEntities(t *testing.T) {
	body := "Kubernetes operators: kubernetes scales, Kubernetes heals. Golang powers golang tools. " +
		"Rust, Zig, Python and Haskell with compilers. 容器编排 容器编排"
	got := Entities(body)
	require.Len(t, got, 5)
	assert.Equal(t, "kubernetes", got[0].Name)
	assert.Equal(t, "golang", got[1].Name)
	assert.Equal(t, "容器编排", got[2].Name)
	for _, p := range got {
		assert.Equal(t, model.TagCategoryEntity, p.Category)
		assert.Equal(t, 0.6, p.Confidence)
		assert.NotEqual(t, "with", p.Name)
	}
	assert.Empty(t, Entities("a b c"))
}

func TestClassifyOrder(t *testing.T) {
	predictions := NewDefaultClassifier().Classify("Design systems", "Figma components for typography")
	require.NotEmpty(t, predictions)
	assert.Equal(t, model.TagCategoryTopic, predictions[0].Category)
	assert.Equal(t, "Design", predictions[0].Name)
	assert.Equal(t, 1, len(predictionsByCategory(predictions, model.TagCategorySentiment)))
	assert.Contains(t, predictionsByCategory(predictions, model.TagCategoryEntity), "figma")
}
