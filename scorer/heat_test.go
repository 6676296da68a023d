package scorer

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/infoflow/model"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func scenarioItem(age time.Duration) *model.Item {
	item := &model.Item{Id: "item", Platform: model.PlatformX, PublishedAt: now.Add(-age)}
	item.SetMetrics(model.Metrics{
		Views:     model.Int64(1000),
		Likes:     model.Int64(200),
		Reposts:   model.Int64(50),
		Comments:  model.Int64(30),
		Bookmarks: model.Int64(10),
	})
	return item
}

func TestHeatScenario(t *testing.T) {
	heat, factors, err := Heat(scenarioItem(12*time.Hour), DefaultConfig(), now)
	require.NoError(t, err)

	assert.InDelta(t, 515.0, factors.WeightedInteraction, 1e-9)
	assert.InDelta(t, 0.2575, factors.Normalized, 1e-9)
	assert.InDelta(t, 1-12.0/168, factors.TimeDecay, 1e-9)
	assert.InDelta(t, 0.2575*(1-12.0/168)*100, heat, 1e-9)
	assert.LessOrEqual(t, heat, factors.Normalized*100)
}

func TestHeatSaturatesAtCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ceilings[model.PlatformX] = 100
	heat, factors, err := Heat(scenarioItem(0), cfg, now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factors.Normalized)
	assert.Equal(t, 100.0, heat)
}

func TestHeatDecayMonotonicity(t *testing.T) {
	cfg := DefaultConfig()
	h0, f0, err := Heat(scenarioItem(0), cfg, now)
	require.NoError(t, err)
	h48, _, err := Heat(scenarioItem(48*time.Hour), cfg, now)
	require.NoError(t, err)
	h200, _, err := Heat(scenarioItem(200*time.Hour), cfg, now)
	require.NoError(t, err)
	h1000, _, err := Heat(scenarioItem(1000*time.Hour), cfg, now)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, h0, h48)
	assert.GreaterOrEqual(t, h48, h200)
	floor := 0.1 * f0.Normalized * 100
	assert.InDelta(t, floor, h200, 1e-9)
	assert.InDelta(t, floor, h1000, 1e-9)
}

func TestTimeDecay(t *testing.T) {
	tests := []struct {
		hours float64
		want  float64
	}{
		{-5, 1},
		{0, 1},
		{84, 0.5},
		{151.2, 0.1},
		{168, 0.1},
		{10000, 0.1},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, TimeDecay(tc.hours), 1e-9, "age %v", tc.hours)
	}
}

func TestHeatMissingMetricsCountAsZero(t *testing.T) {
	item := &model.Item{Id: "item", Platform: model.PlatformReddit, PublishedAt: now}
	item.SetMetrics(model.Metrics{Likes: model.Int64(100)})
	heat, factors, err := Heat(item, DefaultConfig(), now)
	require.NoError(t, err)
	assert.Equal(t, 100.0, factors.WeightedInteraction)
	assert.InDelta(t, 5.0, heat, 1e-9)
}

func TestHeatPerPlatformWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights[model.PlatformX] = InteractionWeights{Likes: 10}
	_, factors, err := Heat(scenarioItem(0), cfg, now)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, factors.WeightedInteraction)
}

func TestHeatComputationErrors(t *testing.T) {
	cfg := DefaultConfig()
	_, _, err := Heat(&model.Item{Id: "no-time"}, cfg, now)
	var computeErr *ScoreComputationError
	require.True(t, errors.As(err, &computeErr))
	assert.Equal(t, "no-time", computeErr.ItemId)
	assert.Equal(t, model.ScoreKindHeat, computeErr.Kind)

	cfg.Ceilings[model.PlatformX] = 0
	_, _, err = Heat(scenarioItem(0), cfg, now)
	require.True(t, errors.As(err, &computeErr))
}

func TestHeatIsDeterministic(t *testing.T) {
	first, f1, err := Heat(scenarioItem(30*time.Hour), DefaultConfig(), now)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, f2, err := Heat(scenarioItem(30*time.Hour), DefaultConfig(), now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, f1, f2)
	}
}
