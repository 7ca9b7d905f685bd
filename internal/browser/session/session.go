// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
)

// ErrNoWindow is returned after the current window was closed and no other
// window has been switched to.
var ErrNoWindow = errors.New("no current window")

// startupTimeout bounds the first round trip to a freshly launched browser.
const startupTimeout = 30 * time.Second

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session drives one Chrome instance over the DevTools protocol. It
// implements schemas.Driver; every window of the browser is a tab context
// derived from the first one.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.Interface

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.Mutex
	tabs      map[target.ID]tab
	current   target.ID
	modifiers input.Modifier

	closeOnce sync.Once
}

var (
	_ schemas.Driver = (*Session)(nil)
	_ ActionExecutor = (*Session)(nil)
)

// New launches a browser configured from cfg and attaches to its first tab.
func New(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	s := &Session{
		id:     id,
		logger: logger.Named("session").With(zap.String("session_id", id)),
		cfg:    cfg,
		tabs:   make(map[target.ID]tab),
	}

	var startup []chromedp.Action
	if dir := cfg.Interaction().DownloadDir; dir != "" {
		action, err := downloadBehavior(dir)
		if err != nil {
			return nil, err
		}
		startup = append(startup, action)
	}

	s.logger.Info("Launching browser.", zap.Bool("headless", cfg.Browser().Headless))
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg.Browser())...)
	s.allocCancel = allocCancel

	browserOpts := []chromedp.ContextOption{chromedp.WithErrorf(s.logger.Sugar().Errorf)}
	if cfg.Browser().Debug {
		browserOpts = append(browserOpts, chromedp.WithDebugf(s.logger.Sugar().Debugf))
	}
	s.browserCtx, s.browserCancel = chromedp.NewContext(allocCtx, browserOpts...)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := s.run(s.browserCtx, startCtx, startup...); err != nil {
		s.browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	first := chromedp.FromContext(s.browserCtx).Target.TargetID
	s.tabs[first] = tab{ctx: s.browserCtx}
	s.current = first
	s.logger.Info("Browser session ready.", zap.String("window", string(first)))
	return s, nil
}

// ID returns the session identifier used in log fields.
func (s *Session) ID() string { return s.id }

// Close shuts down every tab and the browser process.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id, t := range s.tabs {
			if t.cancel != nil {
				t.cancel()
			}
			delete(s.tabs, id)
		}
		s.current = ""
		s.mu.Unlock()

		s.browserCancel()
		s.allocCancel()
		s.logger.Info("Browser session closed.")
	})
	return nil
}

func (s *Session) tabContext() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[s.current]
	if !ok {
		return nil, ErrNoWindow
	}
	return t.ctx, nil
}

// run executes actions in tabCtx, bounded by opCtx.
func (s *Session) run(tabCtx, opCtx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := boundContext(tabCtx, opCtx)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.tabContext()
	if err != nil {
		return err
	}
	return s.run(tabCtx, ctx, actions...)
}

func (s *Session) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.tabContext()
	if err != nil {
		return err
	}
	return s.run(tabCtx, context.WithoutCancel(ctx), actions...)
}

// -- Element lookup --

func queryOption(sel schemas.Selector) chromedp.QueryOption {
	if sel.LocateStrategy == schemas.StrategyXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

func (s *Session) nodes(ctx context.Context, sel schemas.Selector) ([]*cdp.Node, error) {
	if sel.Selector == "" {
		return nil, schemas.NewInvalidArgumentError("selector", "empty selector body")
	}
	var nodes []*cdp.Node
	if err := s.RunActions(ctx, chromedp.Nodes(sel.Selector, &nodes, queryOption(sel), chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", sel.Selector, err)
	}
	// XPath searches can land on text and attribute nodes.
	out := nodes[:0]
	for _, n := range nodes {
		if n.NodeType == cdp.NodeTypeElement {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Session) element(n *cdp.Node) *Element {
	return &Element{exec: s, node: n, logger: s.logger}
}

func (s *Session) FindAll(ctx context.Context, sel schemas.Selector) ([]schemas.Element, error) {
	nodes, err := s.nodes(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, s.element(n))
	}
	return out, nil
}

func (s *Session) IsPresent(ctx context.Context, sel schemas.Selector) (bool, error) {
	nodes, err := s.nodes(ctx, sel)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// IsVisible reports whether any match is rendered.
func (s *Session) IsVisible(ctx context.Context, sel schemas.Selector) (bool, error) {
	nodes, err := s.nodes(ctx, sel)
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		visible, err := s.element(n).visible(ctx)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

// IsSelected reports whether the first match is checked or selected.
func (s *Session) IsSelected(ctx context.Context, sel schemas.Selector) (bool, error) {
	nodes, err := s.nodes(ctx, sel)
	if err != nil {
		return false, err
	}
	if len(nodes) == 0 {
		return false, schemas.NewNotFoundError(sel, false, nil)
	}
	var selected bool
	if err := s.element(nodes[0]).call(ctx, jsSelected, &selected); err != nil {
		return false, err
	}
	return selected, nil
}

func (s *Session) WaitForElementPresent(ctx context.Context, sel schemas.Selector) error {
	return s.wait(ctx, sel, false)
}

func (s *Session) WaitForElementVisible(ctx context.Context, sel schemas.Selector) error {
	return s.wait(ctx, sel, true)
}

// wait polls the page at the configured rate until the condition holds or
// the selector timeout elapses.
func (s *Session) wait(ctx context.Context, sel schemas.Selector, visible bool) error {
	g := s.cfg.Gather()
	timeout := sel.Timeout
	if timeout <= 0 {
		timeout = g.DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	burst := g.PollBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(g.PollInterval), burst)

	var lastErr error
	polls := 0
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("Element wait timed out.",
				zap.String("selector", sel.String()),
				zap.Bool("visible", visible),
				zap.Int("polls", polls))
			return schemas.NewNotFoundError(sel, visible, lastErr)
		}
		polls++

		var ok bool
		var err error
		if visible {
			ok, err = s.IsVisible(waitCtx, sel)
		} else {
			ok, err = s.IsPresent(waitCtx, sel)
		}
		switch {
		case errors.Is(err, schemas.ErrInvalidArgument):
			return err
		case err != nil:
			lastErr = err
		case ok:
			return nil
		}
	}
}

// -- Page level operations --

// Execute runs script as a function body; args are available through
// `arguments`. Promises are awaited.
func (s *Session) Execute(ctx context.Context, script string, args []any, res any) error {
	var out any
	eval := chromedp.Evaluate(wrapScript(script, args), &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
	if err := s.RunActions(ctx, eval); err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	if res == nil || out == nil {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Annotate(ctx context.Context, text string) error {
	var ok bool
	return s.RunActions(ctx, chromedp.Evaluate(annotateScript(text), &ok))
}

func (s *Session) ClearAnnotation(ctx context.Context) error {
	var ok bool
	return s.RunBackgroundActions(ctx, chromedp.Evaluate(clearAnnotationScript(), &ok))
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := s.RunActions(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (s *Session) navigationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.cfg.Browser().NavigationTimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := s.navigationContext(ctx)
	defer cancel()
	if err := s.RunActions(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Debug("Navigated.", zap.String("url", url))
	return nil
}

func (s *Session) Back(ctx context.Context) error {
	navCtx, cancel := s.navigationContext(ctx)
	defer cancel()
	return s.RunActions(navCtx, chromedp.NavigateBack())
}

func (s *Session) Refresh(ctx context.Context) error {
	navCtx, cancel := s.navigationContext(ctx)
	defer cancel()
	return s.RunActions(navCtx, chromedp.Reload())
}

// -- Windows --

// WindowHandles lists the page targets of the browser.
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	handles := make([]string, 0, len(infos))
	for _, info := range infos {
		if info != nil && info.Type == "page" {
			handles = append(handles, string(info.TargetID))
		}
	}
	return handles, ctx.Err()
}

func (s *Session) CurrentWindow(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[s.current]; !ok {
		return "", ErrNoWindow
	}
	return string(s.current), nil
}

func (s *Session) SwitchToWindow(ctx context.Context, handle string) error {
	id := target.ID(handle)

	s.mu.Lock()
	t, ok := s.tabs[id]
	s.mu.Unlock()

	if !ok {
		tabCtx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(id))
		if err := s.run(tabCtx, ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to attach to window %s: %w", handle, err)
		}
		t = tab{ctx: tabCtx, cancel: cancel}
	}

	if err := s.run(t.ctx, ctx, target.ActivateTarget(id)); err != nil {
		return fmt.Errorf("failed to activate window %s: %w", handle, err)
	}

	s.mu.Lock()
	s.tabs[id] = t
	s.current = id
	s.mu.Unlock()
	s.logger.Debug("Switched window.", zap.String("window", handle))
	return nil
}

// CloseWindow closes the current window. Callers switch to another window
// before issuing further page operations.
func (s *Session) CloseWindow(ctx context.Context) error {
	s.mu.Lock()
	id := s.current
	t, ok := s.tabs[id]
	s.mu.Unlock()
	if !ok {
		return ErrNoWindow
	}

	if err := s.run(t.ctx, ctx, page.Close()); err != nil {
		return fmt.Errorf("failed to close window %s: %w", id, err)
	}

	s.mu.Lock()
	// The first tab owns the browser connection; keep its context alive.
	if t.cancel != nil {
		t.cancel()
	}
	delete(s.tabs, id)
	s.current = ""
	s.mu.Unlock()
	return nil
}

// -- Keyboard --

func (s *Session) KeyDown(ctx context.Context, key string) error {
	s.mu.Lock()
	s.modifiers |= modifierFor(key)
	mods := s.modifiers
	s.mu.Unlock()
	return s.RunActions(ctx, keyEvent(input.KeyDown, key, mods))
}

func (s *Session) KeyUp(ctx context.Context, key string) error {
	s.mu.Lock()
	s.modifiers &^= modifierFor(key)
	mods := s.modifiers
	s.mu.Unlock()
	return s.RunActions(ctx, keyEvent(input.KeyUp, key, mods))
}

// -- Artifacts --

func (s *Session) SaveScreenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.RunActions(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	s.logger.Debug("Saved screenshot.", zap.String("path", path))
	return nil
}
