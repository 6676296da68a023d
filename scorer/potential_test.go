package scorer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Luismorlan/infoflow/model"
)

func TestContentQuality(t *testing.T) {
	tests := []struct {
		name string
		item *model.Item
		want float64
	}{
		{"short body", &model.Item{Body: "tiny"}, 0.30},
		{"plain", &model.Item{Body: strings.Repeat("a", 60)}, 0.50},
		{"medium", &model.Item{Body: strings.Repeat("a", 150)}, 0.60},
		{"long", &model.Item{Body: strings.Repeat("a", 500)}, 0.70},
		{"very long", &model.Item{Body: strings.Repeat("a", 2500)}, 0.65},
		{"cjk runes count once", &model.Item{Body: strings.Repeat("数据", 100)}, 0.70},
		{
			"everything",
			&model.Item{
				Title: "A title longer than ten",
				Body:  strings.Repeat("a", 500),
				Url:   "https://example.com",
				Media: datatypes.JSON(`["https://img.example.com/1.png"]`),
			},
			0.95,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ContentQuality(tc.item), 1e-9)
		})
	}
}

func TestAuthorWeight(t *testing.T) {
	assert.Equal(t, 0.5, AuthorWeight("", []float64{90}))
	assert.Equal(t, 0.5, AuthorWeight("someone", nil))
	assert.InDelta(t, 0.4, AuthorWeight("someone", []float64{20, 60}), 1e-9)
	assert.Equal(t, AuthorWeight("a", []float64{0.1, 0.2, 0.3}), AuthorWeight("a", []float64{0.3, 0.1, 0.2}))
}

func TestEngagementRate(t *testing.T) {
	w := DefaultInteractionWeights
	// Unreported views guard the division with 1.
	assert.Equal(t, 1.0, EngagementRate(model.Metrics{Likes: model.Int64(3)}, w))
	assert.Equal(t, 0.0, EngagementRate(model.Metrics{}, w))
	assert.InDelta(t, 0.3, EngagementRate(model.Metrics{Views: model.Int64(1000), Likes: model.Int64(200)}, w), 1e-9)
}

func observation(id string, at time.Time, likes int64) model.ItemObservation {
	return model.ItemObservation{Id: id, ItemId: "item", ObservedAt: at, Likes: model.Int64(likes)}
}

func TestGrowthTrend(t *testing.T) {
	w := DefaultInteractionWeights
	assert.Equal(t, 0.0, GrowthTrend(nil, w, 100))
	assert.Equal(t, 0.0, GrowthTrend([]model.ItemObservation{observation("a", now, 10)}, w, 100))

	obs := []model.ItemObservation{
		observation("c", now, 150),
		observation("a", now.Add(-4*time.Hour), 0),
		observation("b", now.Add(-2*time.Hour), 50),
	}
	// 100 likes in two hours against a ceiling of 100 per hour.
	assert.InDelta(t, 0.5, GrowthTrend(obs, w, 100), 1e-9)

	shrinking := []model.ItemObservation{observation("a", now.Add(-time.Hour), 50), observation("b", now, 10)}
	assert.Equal(t, 0.0, GrowthTrend(shrinking, w, 100))

	sameTime := []model.ItemObservation{observation("a", now, 0), observation("b", now, 10)}
	assert.Equal(t, 0.0, GrowthTrend(sameTime, w, 100))

	fast := []model.ItemObservation{observation("a", now.Add(-time.Hour), 0), observation("b", now, 1000)}
	assert.Equal(t, 1.0, GrowthTrend(fast, w, 100))
}

func TestScarcity(t *testing.T) {
	assert.Equal(t, 0.5, Scarcity("", 10))
	assert.Equal(t, 1.0, Scarcity("AI", 0))
	assert.Equal(t, 0.25, Scarcity("AI", 3))
}

func TestPotentialWeightedSum(t *testing.T) {
	item := &model.Item{
		Id:          "item",
		Platform:    model.PlatformReddit,
		AuthorId:    "author",
		Body:        strings.Repeat("a", 60),
		PublishedAt: now,
	}
	item.SetMetrics(model.Metrics{Views: model.Int64(100), Likes: model.Int64(10)})
	input := PotentialInput{
		AuthorHeats: []float64{80},
		DominantTag: "AI",
		TagPeers:    1,
	}
	potential, factors, err := Potential(item, input, DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 0.5, factors.ContentQuality, 1e-9)
	assert.InDelta(t, 0.8, factors.AuthorWeight, 1e-9)
	assert.InDelta(t, 0.2, factors.EngagementRate, 1e-9)
	assert.Equal(t, 0.0, factors.GrowthTrend)
	assert.InDelta(t, 0.5, factors.Scarcity, 1e-9)
	assert.Equal(t, "AI", factors.DominantTag)
	want := 100 * (0.30*0.5 + 0.20*0.8 + 0.25*0.2 + 0.15*0 + 0.10*0.5)
	assert.InDelta(t, want, potential, 1e-9)
}

func TestPotentialNeutralDefaults(t *testing.T) {
	item := &model.Item{Id: "item", Body: strings.Repeat("a", 60), PublishedAt: now}
	_, factors, err := Potential(item, PotentialInput{}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.5, factors.AuthorWeight)
	assert.Equal(t, 0.5, factors.Scarcity)
	assert.Equal(t, 0.0, factors.GrowthTrend)

	_, _, err = Potential(&model.Item{Id: "no-time"}, PotentialInput{}, DefaultConfig())
	assert.Error(t, err)
}
