package publisher

import (
	"context"

	"github.com/Luismorlan/infoflow/model"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// StdErrChannel logs the markdown brief, used for local runs.
type StdErrChannel struct{}

func NewStdErrChannel() *StdErrChannel {
	return &StdErrChannel{}
}

func (s *StdErrChannel) Name() string {
	return ChannelStdErr
}

func (s *StdErrChannel) Publish(ctx context.Context, brief *model.Brief) error {
	Logger.Log.WithField("brief_date", brief.BriefDate).Info("=== brief === \n", brief.MarkdownContent)
	return nil
}
