package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	vci "github.com/gbhanda/volttron-ci"
)

const stopTimeout = 30 * time.Second

// lifecycleCmd turns a Lifecycle constructor into a cli action. The service
// runs until it requests shutdown through the close callback or the host
// context is canceled by a signal.
func lifecycleCmd(fn func(ctx *cli.Context, closeApp context.CancelCauseFunc) (vci.Lifecycle, error)) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx, stop := context.WithCancelCause(ctx.Context)
		defer stop(nil)

		appLifecycle, err := fn(ctx, stop)
		if err != nil {
			return fmt.Errorf("failed to setup: %w", err)
		}

		if err := appLifecycle.Start(hostCtx); err != nil {
			// Typed errors pass through untouched so the exit handler can
			// map them onto exit codes.
			return err
		}

		<-hostCtx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		stopErr := appLifecycle.Stop(stopCtx)

		if cause := context.Cause(hostCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return stopErr
	}
}
