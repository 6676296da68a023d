package collector_builder

import (
	"github.com/pkg/errors"

	. "github.com/Luismorlan/infoflow/collector"
	. "github.com/Luismorlan/infoflow/collector/instances"
	"github.com/Luismorlan/infoflow/model"
)

// CollectorBuilder wires one adapter per platform. Adapters are stateless
// across sources, so a single instance per platform is shared.
type CollectorBuilder struct {
	adapters map[string]Adapter
}

func NewCollectorBuilder(adapters ...Adapter) *CollectorBuilder {
	b := &CollectorBuilder{adapters: map[string]Adapter{}}
	for _, a := range adapters {
		b.Register(a)
	}
	return b
}

// NewDefaultCollectorBuilder registers the production adapter of every
// supported platform.
func NewDefaultCollectorBuilder() *CollectorBuilder {
	return NewCollectorBuilder(
		NewRssCollector(),
		NewRedditApiCollector(),
		NewTwitterCollector(),
		NewCustomizedSourceCrawler(),
	)
}

func (b *CollectorBuilder) Register(a Adapter) {
	b.adapters[a.Platform()] = a
}

// AdapterFor returns a non-retryable config FetchError for unknown platforms.
func (b *CollectorBuilder) AdapterFor(source *model.Source) (Adapter, error) {
	a, ok := b.adapters[source.Platform]
	if !ok {
		return nil, NewFetchError(source.Platform, FetchErrorConfig,
			errors.Errorf("no adapter for platform %q", source.Platform))
	}
	return a, nil
}

func (b *CollectorBuilder) Platforms() []string {
	res := make([]string, 0, len(b.adapters))
	for p := range b.adapters {
		res = append(res, p)
	}
	return res
}
