package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/session"
	"github.com/dohr-michael/sheetchat/internal/usage"
)

// TeardownTimeout bounds the cleanup that runs after the loop, even when the
// session context was cancelled.
const TeardownTimeout = 30 * time.Second

// App ties setup, the loop and teardown together.
type App struct {
	Sessions *session.Manager
	Loop     *Loop
	Tracker  *usage.Tracker
	Out      *console.Console
}

// Run sets the session up, runs the loop and always tears down what was created.
func (a *App) Run(ctx context.Context) error {
	h, setupErr := a.Sessions.Setup(ctx)

	var loopErr error
	if setupErr == nil {
		loopErr = a.Loop.Run(ctx, h)
	} else {
		a.Out.Error("An error occurred: %v", setupErr)
	}

	// Cleanup must survive a cancelled session context.
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), TeardownTimeout)
	defer cancel()
	teardownErr := a.Sessions.Teardown(tctx, h)

	if a.Tracker != nil {
		if t := a.Tracker.Totals(); t.Runs > 0 {
			a.Out.Muted("Token usage: %s", t)
		}
	}

	if errors.Is(loopErr, context.Canceled) {
		slog.Info("session interrupted")
		loopErr = nil
	}

	if setupErr != nil {
		return errors.Join(fmt.Errorf("setup: %w", setupErr), teardownErr)
	}
	if teardownErr != nil {
		// Teardown failures are reported on the console; they do not fail the session.
		slog.Warn("teardown incomplete", "error", teardownErr)
	}
	return loopErr
}
