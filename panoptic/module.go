package panoptic

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	Logger "github.com/Luismorlan/infoflow/utils/log"
)

const (
	GracefulRetryDelay = 3 * time.Second
)

func RunModuleWithGracefulRestart(ctx context.Context, module Module) {
	for {
		err := module.RunModule(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		Logger.Log.WithFields(logrus.Fields{"module": module.Name()}).
			Errorf("module exited with error %v, retry in %s", err, GracefulRetryDelay)

		// Wait for a small amount of time and restart.
		select {
		case <-ctx.Done():
			return
		case <-time.After(GracefulRetryDelay):
		}
	}
}

type Module interface {
	// RunModule contains the customized logic of the module. It takes in a
	// context object by which its lifecycle is managed. Return error if
	// encountered any error during execution.
	RunModule(ctx context.Context) error

	// Return name of the Module. Uniquely identifies the module instance. Note
	// that if there are multiple instances of the same module, each instance
	// should have a unique name instead of using the same name.
	Name() string

	// Shutdown releases module resources after the root context is cancelled.
	Shutdown()
}
