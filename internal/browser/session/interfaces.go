// internal/browser/session/interfaces.go
package session

import (
	"context"

	"github.com/chromedp/chromedp"
)

// ActionExecutor runs chromedp actions against the current tab of a session.
// Elements hold one instead of the Session so they can be tested against a
// recorder.
type ActionExecutor interface {
	// RunActions runs actions under ctx's deadline, combined with the
	// long-lived tab context that carries the CDP connection.
	RunActions(ctx context.Context, actions ...chromedp.Action) error

	// RunBackgroundActions runs actions in a context detached from ctx's
	// cancellation. Used for cleanup that must happen even when the
	// operation that triggered it was canceled.
	RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error
}
