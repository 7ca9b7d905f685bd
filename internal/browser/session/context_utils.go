// internal/browser/session/context_utils.go
package session

import (
	"context"
	"errors"
)

// boundContext returns a context carrying the values of tabCtx, which is
// where chromedp keeps the target a tab is bound to, that also ends when
// opCtx does. The operation's deadline is copied so that an expired step
// reports context.DeadlineExceeded; any other end of opCtx is recorded as the
// cause.
func boundContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(tabCtx)
	cancelDeadline := context.CancelFunc(func() {})
	d, hasDeadline := opCtx.Deadline()
	if hasDeadline {
		ctx, cancelDeadline = context.WithDeadline(ctx, d)
	}
	stop := context.AfterFunc(opCtx, func() {
		if hasDeadline && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			// The copied deadline ends ctx on its own.
			return
		}
		cancel(context.Cause(opCtx))
	})
	return ctx, func() {
		stop()
		cancelDeadline()
		cancel(context.Canceled)
	}
}
