package scorer

import (
	"math"
	"time"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

const (
	decayWindowHours = 168.0
	decayFloor       = 0.1
)

// HeatFactors is the breakdown persisted next to a heat score.
type HeatFactors struct {
	WeightedInteraction float64 `json:"weighted_interaction"`
	Ceiling             float64 `json:"ceiling"`
	Normalized          float64 `json:"normalized"`
	AgeHours            float64 `json:"age_hours"`
	TimeDecay           float64 `json:"time_decay"`
}

// TimeDecay decays linearly over a week down to a floor of 0.1. Negative ages
// come from clock skew and count as fresh.
func TimeDecay(ageHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Max(decayFloor, 1-ageHours/decayWindowHours)
}

// Normalize saturates x at ceiling, the ceiling must be positive.
func Normalize(x, ceiling float64) float64 {
	return utils.Clamp01(x / ceiling)
}

// Heat computes the short term popularity of an item in [0,100].
func Heat(item *model.Item, cfg Config, now time.Time) (float64, HeatFactors, error) {
	if item.PublishedAt.IsZero() {
		return 0, HeatFactors{}, newScoreComputationError(item.Id, model.ScoreKindHeat, "missing publish time")
	}
	ceiling := cfg.CeilingFor(item.Platform)
	if ceiling <= 0 || math.IsNaN(ceiling) {
		return 0, HeatFactors{}, newScoreComputationError(item.Id, model.ScoreKindHeat, "non-positive ceiling")
	}

	f := HeatFactors{
		WeightedInteraction: WeightedInteraction(item.Metrics(), cfg.WeightsFor(item.Platform)),
		Ceiling:             ceiling,
		AgeHours:            now.Sub(item.PublishedAt).Hours(),
	}
	f.Normalized = Normalize(f.WeightedInteraction, ceiling)
	f.TimeDecay = TimeDecay(f.AgeHours)
	return f.Normalized * f.TimeDecay * 100, f, nil
}
