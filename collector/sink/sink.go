package sink

import (
	"context"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/model"
)

// Counts is the persistence outcome of a batch of normalized items.
type Counts struct {
	Fetched int
	New     int
	Updated int
	// Skipped items already exist with identical mutable fields.
	Skipped int
	// Failed items are neither new nor updated, they either failed to parse or
	// failed to persist.
	Failed int
}

func (c *Counts) Add(o Counts) {
	c.Fetched += o.Fetched
	c.New += o.New
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Failed += o.Failed
}

// CollectedDataSink receives normalized items of one source. A returned error
// means the store is unavailable, counts still cover what was persisted.
type CollectedDataSink interface {
	Push(ctx context.Context, source *model.Source, items []*collector.RawItem) (Counts, error)
}
