package sink

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/infoflow/collector"
	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// NormalizeAndPush normalizes a fetched page and pushes the valid items into
// the sink. Parse errors are logged and counted as failed, they never abort
// the page.
func NormalizeAndPush(ctx context.Context, s CollectedDataSink, adapter collector.Adapter, source *model.Source, page *collector.FetchResult) (Counts, error) {
	items, parseErrs := collector.NormalizeAll(adapter, page.Records)
	for _, err := range parseErrs {
		Logger.Log.WithFields(logrus.Fields{"source": source.Id, "platform": source.Platform}).
			Warnf("skip malformed record: %s", err)
	}

	counts, err := s.Push(ctx, source, items)
	counts.Fetched += len(parseErrs)
	counts.Failed += len(parseErrs)
	return counts, err
}
