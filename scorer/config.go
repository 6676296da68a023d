package scorer

import (
	"time"

	"github.com/Luismorlan/infoflow/model"
)

// AlgorithmVersion is stored on every Score row.
const AlgorithmVersion = "1.0"

const (
	DefaultCeiling       = 2000.0
	DefaultGrowthCeiling = 100.0
	DefaultLookbackDays  = 30
	DefaultBatchSize     = 200
	DefaultConcurrency   = 8
	DefaultHeatRefresh   = 6 * time.Hour

	// Weights of the potential terms, they sum up to 1.
	ContentQualityWeight = 0.30
	AuthorWeightWeight   = 0.20
	EngagementWeight     = 0.25
	GrowthTrendWeight    = 0.15
	ScarcityWeight       = 0.10
)

// InteractionWeights weighs raw metrics into a single interaction number.
type InteractionWeights struct {
	Views     float64 `yaml:"VIEWS"`
	Likes     float64 `yaml:"LIKES"`
	Reposts   float64 `yaml:"REPOSTS"`
	Comments  float64 `yaml:"COMMENTS"`
	Bookmarks float64 `yaml:"BOOKMARKS"`
}

var DefaultInteractionWeights = InteractionWeights{
	Views:     0.1,
	Likes:     1.0,
	Reposts:   2.0,
	Comments:  3.0,
	Bookmarks: 2.5,
}

type Config struct {
	// Per platform overrides, platforms not listed use the defaults.
	Weights  map[string]InteractionWeights
	Ceilings map[string]float64

	DefaultWeights InteractionWeights
	DefaultCeiling float64
	// Weighted interactions gained per hour that saturate growth_trend.
	GrowthCeiling float64
	// Window of author history and topic scarcity.
	Lookback time.Duration
	// Heat of items younger than the decay window is recomputed once it is
	// older than this.
	HeatRefresh time.Duration

	BatchSize   int
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		Weights:        map[string]InteractionWeights{},
		Ceilings:       map[string]float64{},
		DefaultWeights: DefaultInteractionWeights,
		DefaultCeiling: DefaultCeiling,
		GrowthCeiling:  DefaultGrowthCeiling,
		Lookback:       DefaultLookbackDays * 24 * time.Hour,
		HeatRefresh:    DefaultHeatRefresh,
		BatchSize:      DefaultBatchSize,
		Concurrency:    DefaultConcurrency,
	}
}

func (c Config) WeightsFor(platform string) InteractionWeights {
	if w, ok := c.Weights[platform]; ok {
		return w
	}
	return c.DefaultWeights
}

func (c Config) CeilingFor(platform string) float64 {
	if ceiling, ok := c.Ceilings[platform]; ok {
		return ceiling
	}
	return c.DefaultCeiling
}

func (c Config) lookback() time.Duration {
	if c.Lookback <= 0 {
		return DefaultLookbackDays * 24 * time.Hour
	}
	return c.Lookback
}

func (c Config) heatRefresh() time.Duration {
	if c.HeatRefresh <= 0 {
		return DefaultHeatRefresh
	}
	return c.HeatRefresh
}

func (c Config) growthCeiling() float64 {
	if c.GrowthCeiling <= 0 {
		return DefaultGrowthCeiling
	}
	return c.GrowthCeiling
}

// WeightedInteraction sums the weighted metrics, unreported metrics count as 0.
func WeightedInteraction(m model.Metrics, w InteractionWeights) float64 {
	return w.Views*metricValue(m.Views) +
		w.Likes*metricValue(m.Likes) +
		w.Reposts*metricValue(m.Reposts) +
		w.Comments*metricValue(m.Comments) +
		w.Bookmarks*metricValue(m.Bookmarks)
}

func metricValue(v *int64) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}
