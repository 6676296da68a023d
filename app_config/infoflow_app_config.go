package app_config

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	collector_job_handler "github.com/Luismorlan/infoflow/collector/handler"
	"github.com/Luismorlan/infoflow/curator"
	"github.com/Luismorlan/infoflow/panoptic/modules"
	"github.com/Luismorlan/infoflow/publisher"
	"github.com/Luismorlan/infoflow/scorer"
)

// This is the application config shared by every InfoFlow binary. Secrets are
// never part of it, they come from the environment.
type InfoFlowAppConfig struct {
	// IANA name of the location calendar days are cut in, e.g. Asia/Shanghai.
	TIMEZONE string `yaml:"TIMEZONE"`
	// Address the API server listens on.
	API_ADDRESS string `yaml:"API_ADDRESS"`
	// TTL of cached API responses, cache is disabled without REDIS_ADDRESS.
	CACHE_TTL_SECONDS int64 `yaml:"CACHE_TTL_SECONDS"`
	// Upper bound of items classified at the same time.
	CLASSIFY_CONCURRENCY int `yaml:"CLASSIFY_CONCURRENCY"`

	FETCH    FetchConfig    `yaml:"FETCH"`
	SCORING  ScoringConfig  `yaml:"SCORING"`
	CURATION curator.Config `yaml:"CURATION"`
	PUBLISH  PublishConfig  `yaml:"PUBLISH"`

	JOBS    []modules.JobDefinition `yaml:"JOBS"`
	SOURCES []SourceConfig          `yaml:"SOURCES"`
}

type FetchConfig struct {
	MAX_CONCURRENT_FETCHES int     `yaml:"MAX_CONCURRENT_FETCHES"`
	RATE_PER_SECOND        float64 `yaml:"RATE_PER_SECOND"`
	RATE_BURST             int     `yaml:"RATE_BURST"`
	MAX_PAGES_PER_RUN      int     `yaml:"MAX_PAGES_PER_RUN"`
	MAX_RETRIES            int     `yaml:"MAX_RETRIES"`
	BASE_BACKOFF_SECONDS   float64 `yaml:"BASE_BACKOFF_SECONDS"`
	MAX_BACKOFF_SECONDS    float64 `yaml:"MAX_BACKOFF_SECONDS"`
}

type ScoringConfig struct {
	// Per platform interaction weights and ceilings.
	WEIGHTS  map[string]scorer.InteractionWeights `yaml:"WEIGHTS"`
	CEILINGS map[string]float64                   `yaml:"CEILINGS"`

	DEFAULT_WEIGHTS *scorer.InteractionWeights `yaml:"DEFAULT_WEIGHTS"`
	DEFAULT_CEILING float64                    `yaml:"DEFAULT_CEILING"`
	GROWTH_CEILING  float64                    `yaml:"GROWTH_CEILING"`
	LOOKBACK_DAYS   int                        `yaml:"LOOKBACK_DAYS"`
	BATCH_SIZE      int                        `yaml:"BATCH_SIZE"`
	CONCURRENCY     int                        `yaml:"CONCURRENCY"`

	// Hours after which heat of a still decaying item is recomputed.
	HEAT_REFRESH_HOURS int `yaml:"HEAT_REFRESH_HOURS"`
}

type PublishConfig struct {
	// Any of slack, sns and stderr.
	CHANNELS      []string `yaml:"CHANNELS"`
	MAX_RETRIES   int      `yaml:"MAX_RETRIES"`
	DELAY_SECONDS float64  `yaml:"DELAY_SECONDS"`
	SNS_REGION    string   `yaml:"SNS_REGION"`
}

func ParseInfoFlowAppConfig(path string) (*InfoFlowAppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read app config %s", path)
	}
	return ParseInfoFlowAppConfigBytes(yamlFile)
}

func ParseInfoFlowAppConfigBytes(data []byte) (*InfoFlowAppConfig, error) {
	c := &InfoFlowAppConfig{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrap(err, "fail to parse app config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *InfoFlowAppConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := modules.ValidateDefinitions(c.JOBS); err != nil {
		return err
	}
	for _, channel := range c.PUBLISH.CHANNELS {
		switch channel {
		case publisher.ChannelSlack, publisher.ChannelSns, publisher.ChannelStdErr, publisher.ChannelTelegram:
		default:
			return errors.Errorf("unknown publish channel %q", channel)
		}
	}
	for _, s := range c.SOURCES {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *InfoFlowAppConfig) Location() (*time.Location, error) {
	if c.TIMEZONE == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TIMEZONE)
	return loc, errors.Wrapf(err, "unknown timezone %q", c.TIMEZONE)
}

func (c *InfoFlowAppConfig) CacheTTL() time.Duration {
	if c.CACHE_TTL_SECONDS <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CACHE_TTL_SECONDS) * time.Second
}

func (c *InfoFlowAppConfig) ApiAddress() string {
	if c.API_ADDRESS == "" {
		return ":8080"
	}
	return c.API_ADDRESS
}

func (c *InfoFlowAppConfig) ClassifyConcurrency() int {
	if c.CLASSIFY_CONCURRENCY <= 0 {
		return 4
	}
	return c.CLASSIFY_CONCURRENCY
}

// The converters below start from the package defaults and only override
// values set in the yaml.

func (c *InfoFlowAppConfig) HandlerConfig() collector_job_handler.Config {
	res := collector_job_handler.DefaultConfig()
	f := c.FETCH
	if f.MAX_CONCURRENT_FETCHES > 0 {
		res.MaxConcurrentFetches = f.MAX_CONCURRENT_FETCHES
	}
	if f.RATE_PER_SECOND > 0 {
		res.RatePerSecond = f.RATE_PER_SECOND
	}
	if f.RATE_BURST > 0 {
		res.RateBurst = f.RATE_BURST
	}
	if f.MAX_PAGES_PER_RUN > 0 {
		res.MaxPagesPerRun = f.MAX_PAGES_PER_RUN
	}
	if f.MAX_RETRIES > 0 {
		res.MaxRetries = f.MAX_RETRIES
	}
	if f.BASE_BACKOFF_SECONDS > 0 {
		res.BaseBackoff = seconds(f.BASE_BACKOFF_SECONDS)
	}
	if f.MAX_BACKOFF_SECONDS > 0 {
		res.MaxBackoff = seconds(f.MAX_BACKOFF_SECONDS)
	}
	return res
}

func (c *InfoFlowAppConfig) ScorerConfig() scorer.Config {
	res := scorer.DefaultConfig()
	s := c.SCORING
	for platform, w := range s.WEIGHTS {
		res.Weights[platform] = w
	}
	for platform, ceiling := range s.CEILINGS {
		res.Ceilings[platform] = ceiling
	}
	if s.DEFAULT_WEIGHTS != nil {
		res.DefaultWeights = *s.DEFAULT_WEIGHTS
	}
	if s.DEFAULT_CEILING > 0 {
		res.DefaultCeiling = s.DEFAULT_CEILING
	}
	if s.GROWTH_CEILING > 0 {
		res.GrowthCeiling = s.GROWTH_CEILING
	}
	if s.LOOKBACK_DAYS > 0 {
		res.Lookback = time.Duration(s.LOOKBACK_DAYS) * 24 * time.Hour
	}
	if s.HEAT_REFRESH_HOURS > 0 {
		res.HeatRefresh = time.Duration(s.HEAT_REFRESH_HOURS) * time.Hour
	}
	if s.BATCH_SIZE > 0 {
		res.BatchSize = s.BATCH_SIZE
	}
	if s.CONCURRENCY > 0 {
		res.Concurrency = s.CONCURRENCY
	}
	return res
}

func (c *InfoFlowAppConfig) CuratorConfig() (curator.Config, error) {
	res := curator.DefaultConfig()
	y := c.CURATION
	if y.FeaturedPerTopic > 0 {
		res.FeaturedPerTopic = y.FeaturedPerTopic
	}
	if y.HeatTop > 0 {
		res.HeatTop = y.HeatTop
	}
	if y.PotentialTop > 0 {
		res.PotentialTop = y.PotentialTop
	}
	if y.MinItems > 0 {
		res.MinItems = y.MinItems
	}
	if y.MinCoverage > 0 {
		res.MinCoverage = y.MinCoverage
	}
	if y.HeatWeight > 0 || y.PotentialWeight > 0 {
		res.HeatWeight = y.HeatWeight
		res.PotentialWeight = y.PotentialWeight
	}
	loc, err := c.Location()
	if err != nil {
		return res, err
	}
	res.Location = loc
	return res, nil
}

func (c *InfoFlowAppConfig) PublisherConfig() publisher.Config {
	res := publisher.DefaultConfig()
	if c.PUBLISH.MAX_RETRIES > 0 {
		res.MaxRetries = c.PUBLISH.MAX_RETRIES
	}
	if c.PUBLISH.DELAY_SECONDS > 0 {
		res.Delay = seconds(c.PUBLISH.DELAY_SECONDS)
	}
	return res
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
