package sink

import (
	"context"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// StdErrSink logs items instead of persisting them, used by dry runs.
type StdErrSink struct{}

func NewStdErrSink() *StdErrSink {
	return &StdErrSink{}
}

func (s *StdErrSink) Push(ctx context.Context, source *model.Source, items []*collector.RawItem) (Counts, error) {
	for _, item := range items {
		Logger.Log.Info("=== dry run item === \n", collector.PrettyPrint(item))
	}
	return Counts{Fetched: len(items), Skipped: len(items)}, nil
}
