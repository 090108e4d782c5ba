// Package hooks implements the session lifecycle hooks invoked by the host:
// LogCapture and ChangeStager on SessionEnd, StateTracker on SubagentStop.
// Every hook is non-blocking: it always produces its documented result.
package hooks

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/grovetools/hooks/session"
	"github.com/sirupsen/logrus"
)

// Hook is one lifecycle hook.
type Hook interface {
	// Name identifies the hook in logs.
	Name() string
	// Handle performs the hook's work and returns the result for the host.
	Handle(ctx context.Context, event *session.Event) any
	// Fallback returns the result emitted when Handle panics or overruns
	// its deadline.
	Fallback() any
}

// ErrAbandoned is returned by Run after the fallback result was written
// because the hook overran its deadline. The hook goroutine may still be
// running and logging.
var ErrAbandoned = stderrors.New("hook abandoned at its deadline")

// Runner reads the hook payload, runs a hook under a deadline and writes
// exactly one result.
type Runner struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Timeout time.Duration
	Logger  *logrus.Entry
}

// Run executes hook. It returns an error when the result could not be
// written, or ErrAbandoned when the hook was still running at its deadline.
// Callers exit 0 either way.
func (r *Runner) Run(ctx context.Context, hook Hook) error {
	logger := r.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("hook", hook.Name())

	event, err := session.ReadEvent(r.Stdin)
	if err != nil {
		logger.WithError(err).Warn("Ignoring unreadable hook input")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	done := make(chan any, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithField("panic", fmt.Sprint(rec)).
					WithField("stack", string(debug.Stack())).
					Error("Hook panicked")
				done <- nil
			}
		}()
		done <- hook.Handle(ctx, event)
	}()

	var result any
	abandoned := false
	select {
	case result = <-done:
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Warn("Hook did not finish before its deadline")
		abandoned = true
	}
	if result == nil {
		result = hook.Fallback()
	}

	if err := WriteResult(r.Stdout, result); err != nil {
		return err
	}
	if abandoned {
		return ErrAbandoned
	}
	return nil
}
