package modules

import (
	"context"

	"github.com/Luismorlan/infoflow/panoptic"
)

// Executor is in charge of job execution. This is the common interface shared
// by different types of job executors.
type Executor interface {
	// Execute runs the job and returns a human readable summary.
	Execute(ctx context.Context, job *panoptic.JobMessage) (string, error)

	// Each executor can perform shut down logic to clean up resource.
	Shutdown()
}
