package curator

import "time"

const (
	DefaultFeaturedPerTopic = 3
	DefaultHeatTop          = 10
	DefaultPotentialTop     = 5
	DefaultMinItems         = 5
	DefaultMinCoverage      = 0.8
	DefaultHeatWeight       = 0.6
	DefaultPotentialWeight  = 0.4

	// An item qualifies for the potential bucket above PotentialFloor while
	// staying below HeatCeiling.
	PotentialFloor = 70.0
	HeatCeiling    = 30.0

	TitlePrefix = "InfoFlow Daily Brief - "
)

type Config struct {
	// N, items featured per distinct dominant topic.
	FeaturedPerTopic int `yaml:"FEATURED_PER_TOPIC"`
	// K, size of the heat bucket.
	HeatTop int `yaml:"HEAT_TOP"`
	// M, size of the potential bucket.
	PotentialTop int `yaml:"POTENTIAL_TOP"`
	// Minimum number of scored items of the day.
	MinItems int `yaml:"MIN_ITEMS"`
	// Minimum scored/total ratio of the day.
	MinCoverage     float64 `yaml:"MIN_COVERAGE"`
	HeatWeight      float64 `yaml:"HEAT_WEIGHT"`
	PotentialWeight float64 `yaml:"POTENTIAL_WEIGHT"`
	// Calendar days are cut in this location, UTC when nil.
	Location *time.Location `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		FeaturedPerTopic: DefaultFeaturedPerTopic,
		HeatTop:          DefaultHeatTop,
		PotentialTop:     DefaultPotentialTop,
		MinItems:         DefaultMinItems,
		MinCoverage:      DefaultMinCoverage,
		HeatWeight:       DefaultHeatWeight,
		PotentialWeight:  DefaultPotentialWeight,
		Location:         time.UTC,
	}
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Composite blends both scores into the ranking value.
func (c Config) Composite(heat, potential float64) float64 {
	return c.HeatWeight*heat + c.PotentialWeight*potential
}
