package interact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/browser/snapshot"
	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/retry"
	"github.com/xkilldash9x/crow/internal/selector"
)

const fixture = `<!DOCTYPE html>
<html><head><title>Orders</title></head>
<body>
  <h1 id="title">Recent Orders</h1>
  <ul id="items">
    <li class="item">Apple</li>
    <li class="item">Banana</li>
    <li class="item">Cherry</li>
    <li class="item">Date</li>
    <li class="item">Elderberry</li>
  </ul>
  <div id="hidden" style="display: none">Secret</div>
  <div class="count">1,024</div>
  <div class="count">2,048</div>
  <span class="date">2024-01-05</span>
  <span class="date">2024-02-10</span>
  <input id="name" type="text" value="Ada">
  <input id="agree" type="checkbox" checked>
  <button id="save" disabled>Save</button>
  <a id="link" data-state="closed" href="#">Toggle</a>
</body></html>`

var testInteraction = config.InteractionConfig{
	WaitAfter:      50 * time.Millisecond,
	ShowActionText: true,
	Highlight:      true,
}

func newDriver(t *testing.T, opts ...snapshot.Option) *snapshot.Driver {
	t.Helper()
	d, err := snapshot.FromHTML(zaptest.NewLogger(t), "https://shop.test/orders", fixture, opts...)
	require.NoError(t, err)
	return d
}

func newRunner(t *testing.T, d schemas.Driver) *Runner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	resolver, err := selector.NewResolver(logger, 16)
	require.NoError(t, err)
	return NewRunner(d, resolver, testInteraction, logger)
}

func newObserver(t *testing.T, d schemas.Driver) *Observer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := retry.NewEngine(logger, retry.WithSleeper(d))
	return NewObserver(newRunner(t, d), engine, retry.NewDefaultPolicy(), logger)
}

func newActor(t *testing.T, d schemas.Driver) *Actor {
	t.Helper()
	return NewActor(newRunner(t, d), t.TempDir(), zaptest.NewLogger(t))
}

func eventsOf(d *snapshot.Driver, kind string) []snapshot.Event {
	var out []snapshot.Event
	for _, e := range d.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func css(body string) schemas.Selector {
	return schemas.Selector{Selector: body, LocateStrategy: schemas.StrategyCSS, NeedVisible: true, NeedHighlight: true}
}

var bg = context.Background()
