package scorer

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"github.com/Luismorlan/infoflow/model"
	"github.com/Luismorlan/infoflow/utils"
)

const neutralTerm = 0.5

// PotentialInput is the history of an item and its neighbours that the
// potential score reads besides the item itself.
type PotentialInput struct {
	// Heat scores of the author's other items within the lookback window.
	AuthorHeats []float64
	// Observations of the item, any order.
	Observations []model.ItemObservation
	// DominantTag is empty when the item has no topic tag.
	DominantTag string
	// Other items carrying the dominant tag within the lookback window.
	TagPeers int
}

// PotentialFactors is the breakdown persisted next to a potential score.
type PotentialFactors struct {
	ContentQuality float64 `json:"content_quality"`
	AuthorWeight   float64 `json:"author_weight"`
	EngagementRate float64 `json:"engagement_rate"`
	GrowthTrend    float64 `json:"growth_trend"`
	Scarcity       float64 `json:"scarcity"`
	DominantTag    string  `json:"dominant_tag,omitempty"`
}

// Potential estimates the long term value of an item in [0,100].
func Potential(item *model.Item, input PotentialInput, cfg Config) (float64, PotentialFactors, error) {
	if item.PublishedAt.IsZero() {
		return 0, PotentialFactors{}, newScoreComputationError(item.Id, model.ScoreKindPotential, "missing publish time")
	}
	weights := cfg.WeightsFor(item.Platform)
	f := PotentialFactors{
		ContentQuality: ContentQuality(item),
		AuthorWeight:   AuthorWeight(item.AuthorId, input.AuthorHeats),
		EngagementRate: EngagementRate(item.Metrics(), weights),
		GrowthTrend:    GrowthTrend(input.Observations, weights, cfg.growthCeiling()),
		Scarcity:       Scarcity(input.DominantTag, input.TagPeers),
		DominantTag:    input.DominantTag,
	}
	value := ContentQualityWeight*f.ContentQuality +
		AuthorWeightWeight*f.AuthorWeight +
		EngagementWeight*f.EngagementRate +
		GrowthTrendWeight*f.GrowthTrend +
		ScarcityWeight*f.Scarcity
	return utils.Clamp01(value) * 100, f, nil
}

// ContentQuality rates the text on length, title, media and links.
func ContentQuality(item *model.Item) float64 {
	score := 50.0
	length := utf8.RuneCountInString(strings.TrimSpace(item.Body))
	switch {
	case length > 2000:
		score += 15
	case length >= 200:
		score += 20
	case length >= 100:
		score += 10
	case length < 50:
		score -= 20
	}
	if utf8.RuneCountInString(strings.TrimSpace(item.Title)) > 10 {
		score += 10
	}
	if len(item.MediaUrls()) > 0 {
		score += 10
	}
	if item.Url != "" {
		score += 5
	}
	return utils.Clamp01(score / 100)
}

// AuthorWeight is the trailing average heat of the author, neutral for
// unknown or first-seen authors.
func AuthorWeight(authorId string, heats []float64) float64 {
	if authorId == "" || len(heats) == 0 {
		return neutralTerm
	}
	// Sorted so the float sum does not depend on query order.
	sorted := append([]float64(nil), heats...)
	sort.Float64s(sorted)
	return utils.Clamp01(stat.Mean(sorted, nil) / 100)
}

func EngagementRate(m model.Metrics, w InteractionWeights) float64 {
	views := 0.0
	if m.Views != nil {
		views = float64(*m.Views)
	}
	return utils.Clamp01(WeightedInteraction(m, w) / math.Max(1, views))
}

// GrowthTrend is the interaction gained per hour between the two latest
// observations, relative to growthCeiling. A single observation is neutral 0.
func GrowthTrend(observations []model.ItemObservation, w InteractionWeights, growthCeiling float64) float64 {
	if len(observations) < 2 || growthCeiling <= 0 {
		return 0
	}
	sorted := append([]model.ItemObservation(nil), observations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ObservedAt.Equal(sorted[j].ObservedAt) {
			return sorted[i].Id < sorted[j].Id
		}
		return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
	})
	prev, last := sorted[len(sorted)-2], sorted[len(sorted)-1]
	hours := last.ObservedAt.Sub(prev.ObservedAt).Hours()
	if hours <= 0 {
		return 0
	}
	delta := WeightedInteraction(last.Metrics(), w) - WeightedInteraction(prev.Metrics(), w)
	return utils.Clamp01(math.Max(0, delta/hours) / growthCeiling)
}

// Scarcity is high for topics few other items cover, neutral without a topic.
func Scarcity(dominantTag string, peers int) float64 {
	if dominantTag == "" {
		return neutralTerm
	}
	if peers < 0 {
		peers = 0
	}
	return 1 / (1 + float64(peers))
}
