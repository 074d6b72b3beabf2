package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback that runs during application startup or shutdown.
type Hook func(ctx context.Context) error

type stage string

const (
	stageStart stage = "onStart"
	stageReady stage = "onReady"
	stageStop  stage = "onStop"
)

// OnStart registers a hook that runs after all components are started (Phase 1)
// but before the application is marked as ready. Migrations belong here.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers a hook that runs after the application passes its ready check
// and is about to begin accepting traffic.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers a hook that runs during graceful shutdown before components
// are stopped, while the persistence factory is still open.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks executes hooks in registration order. Start and ready hooks stop
// at the first error; stop hooks all run and their errors are joined.
func runHooks(ctx context.Context, s stage, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			err = fmt.Errorf("%s hook %d failed: %w", s, i, err)
			if s != stageStop {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
