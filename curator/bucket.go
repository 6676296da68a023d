package curator

import (
	"sort"

	"github.com/Luismorlan/infoflow/model"
)

// Candidate is a scored item of the day with everything ranking needs.
type Candidate struct {
	Item      *model.Item
	Heat      float64
	Potential float64
	Composite float64
	// Dominant topic tag, empty when the item has no topic.
	Topic string
}

type Buckets struct {
	Featured  []*Candidate
	HeatTop   []*Candidate
	Potential []*Candidate
}

// Ids returns the ids of a bucket in order.
func Ids(candidates []*Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Item.Id)
	}
	return ids
}

// Selected returns the ids of all buckets, featured first.
func (b Buckets) Selected() []string {
	ids := Ids(b.Featured)
	ids = append(ids, Ids(b.HeatTop)...)
	return append(ids, Ids(b.Potential)...)
}

// newerFirst breaks ties: newer publish time wins, then the smaller id.
func newerFirst(a, b *Candidate) bool {
	if !a.Item.PublishedAt.Equal(b.Item.PublishedAt) {
		return a.Item.PublishedAt.After(b.Item.PublishedAt)
	}
	return a.Item.Id < b.Item.Id
}

func sortBy(candidates []*Candidate, key func(*Candidate) float64) []*Candidate {
	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := key(sorted[i]), key(sorted[j])
		if ki != kj {
			return ki > kj
		}
		return newerFirst(sorted[i], sorted[j])
	})
	return sorted
}

// Rank orders candidates by composite score, descending.
func Rank(candidates []*Candidate) []*Candidate {
	return sortBy(candidates, func(c *Candidate) float64 { return c.Composite })
}

// Bucket splits candidates into the three disjoint buckets of a brief.
func Bucket(candidates []*Candidate, config Config) Buckets {
	var buckets Buckets
	taken := map[string]bool{}

	perTopic := map[string]int{}
	for _, c := range Rank(candidates) {
		if c.Topic == "" || perTopic[c.Topic] >= config.FeaturedPerTopic {
			continue
		}
		perTopic[c.Topic]++
		taken[c.Item.Id] = true
		buckets.Featured = append(buckets.Featured, c)
	}

	for _, c := range sortBy(candidates, func(c *Candidate) float64 { return c.Heat }) {
		if len(buckets.HeatTop) >= config.HeatTop {
			break
		}
		if taken[c.Item.Id] {
			continue
		}
		taken[c.Item.Id] = true
		buckets.HeatTop = append(buckets.HeatTop, c)
	}

	for _, c := range sortBy(candidates, func(c *Candidate) float64 { return c.Potential }) {
		if len(buckets.Potential) >= config.PotentialTop {
			break
		}
		if taken[c.Item.Id] || !UnderTheRadar(c) {
			continue
		}
		taken[c.Item.Id] = true
		buckets.Potential = append(buckets.Potential, c)
	}
	return buckets
}

// UnderTheRadar reports whether an item has high potential and little heat.
func UnderTheRadar(c *Candidate) bool {
	return c.Potential > PotentialFloor && c.Heat < HeatCeiling
}
