package interact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/selector"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

// NavigationWait is the default pause after navigating, refreshing or going
// back.
const NavigationWait = time.Second

// placeholderURLs mark windows some browsers open on their own.
var placeholderURLs = []string{"about:blank", "0.0.10.0", "127.0.0.1"}

// Actor performs user actions against the page.
type Actor struct {
	runner        *Runner
	logger        *zap.Logger
	screenshotDir string
}

// NewActor creates an actor. Relative screenshot paths are placed under
// screenshotDir.
func NewActor(runner *Runner, screenshotDir string, logger *zap.Logger) *Actor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actor{runner: runner, screenshotDir: screenshotDir, logger: logger.Named("actor")}
}

// WithPage returns a copy of the actor resolving symbols against page.
func (a *Actor) WithPage(page *schemas.PageElementMap) *Actor {
	cp := *a
	cp.runner = a.runner.WithPage(page)
	return &cp
}

func (a *Actor) driver() schemas.Driver { return a.runner.driver }

func click(ctx context.Context, el schemas.Element) error {
	if el == nil {
		return nil
	}
	return el.Click(ctx)
}

// -- Clicks --

// Click clicks the first match.
func (a *Actor) Click(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	return a.runner.ForFirst(ctx, in, "Click", click, opts...)
}

// ClickElement clicks an element the caller already holds.
func (a *Actor) ClickElement(ctx context.Context, el schemas.Element, opts ...CallOption) error {
	return a.runner.ForGiven(ctx, el, "Click", click, opts...)
}

// ClickByText clicks the first match whose text matches text and reports
// whether anything was clicked. When nothing matches and failIfMissing is
// set, a not-found error is returned.
func (a *Actor) ClickByText(ctx context.Context, in schemas.SelectorInput, text string, opts textmatch.Options, failIfMissing bool, callOpts ...CallOption) (bool, error) {
	sel, err := a.runner.Resolve(in)
	if err != nil {
		return false, err
	}
	els, err := a.runner.gatherer.Gather(ctx, sel)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		uiText, err := el.Text(ctx)
		if err != nil {
			return false, err
		}
		if !textmatch.Match(uiText, text, opts) {
			continue
		}
		callOpts = append([]CallOption{WithHighlight(a.runner.shouldHighlight(sel, callOptions{}))}, callOpts...)
		if err := a.runner.ForGiven(ctx, el, fmt.Sprintf(`Click on "%s"`, selector.Name(sel, 1)), click, callOpts...); err != nil {
			return false, err
		}
		return true, nil
	}
	if failIfMissing {
		return false, schemas.NewNotFoundError(sel, sel.NeedVisible, fmt.Errorf("no element has text matching %q", text))
	}
	return false, nil
}

// ClickIfExist clicks the first match only when one is present within
// timeout. It reports whether it clicked.
func (a *Actor) ClickIfExist(ctx context.Context, in schemas.SelectorInput, timeout time.Duration, opts ...CallOption) (bool, error) {
	sel, err := a.runner.Resolve(in)
	if err != nil {
		return false, err
	}
	lookup := sel
	lookup.SuppressNotFoundErrors = true
	var present bool
	if timeout > 0 {
		lookup.Timeout = timeout
		err := a.driver().WaitForElementPresent(ctx, lookup)
		switch {
		case err == nil:
			present = true
		case !errors.Is(err, schemas.ErrNotFound):
			return false, err
		}
	} else if present, err = a.driver().IsPresent(ctx, lookup); err != nil {
		return false, err
	}
	if !present {
		a.logger.Info("Element is not present, skipped clicking on it.", zap.Stringer("selector", sel))
		return false, nil
	}
	if err := a.runner.ForFirst(ctx, sel, "Click only if it exists", click, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// ClickUntilAttributeMatch clicks in until the attributes of check match
// expect, clicking at most maxRetry times. check defaults to in when nil.
// It reports whether the attributes matched in the end.
func (a *Actor) ClickUntilAttributeMatch(ctx context.Context, in schemas.SelectorInput, expect map[string]string, opts textmatch.Options, maxRetry int, check schemas.SelectorInput, callOpts ...CallOption) (bool, error) {
	if check == nil {
		check = in
	}
	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	slices.Sort(names)

	matches := func() (bool, error) {
		for _, name := range names {
			v, err := First(ctx, a.runner, check, fmt.Sprintf(`Get the value of attribute "%s"`, name),
				func(ctx context.Context, el schemas.Element) (string, error) {
					if el == nil {
						return "", nil
					}
					v, _, err := el.Attribute(ctx, name)
					return v, err
				}, WithWaitAfter(0))
			if err != nil {
				return false, err
			}
			if !textmatch.Match(v, expect[name], opts) {
				a.logger.Debug("Attribute does not match yet.",
					zap.String("attribute", name),
					zap.String("expected", expect[name]),
					zap.String("actual", v))
				return false, nil
			}
		}
		return true, nil
	}

	desc := fmt.Sprintf("Click until match attribute map %v", expect)
	for try := 0; ; try++ {
		ok, err := matches()
		if err != nil || ok {
			return ok, err
		}
		if try >= maxRetry {
			return false, nil
		}
		if err := a.runner.ForFirst(ctx, in, desc, click, callOpts...); err != nil {
			return false, err
		}
	}
}

// -- Typing and pointer --

// Type replaces the content of the first match with text.
func (a *Actor) Type(ctx context.Context, in schemas.SelectorInput, text string, opts ...CallOption) error {
	return a.runner.ForFirst(ctx, in, "Type the given text", func(ctx context.Context, el schemas.Element) error {
		if el == nil {
			return nil
		}
		if err := el.Clear(ctx); err != nil {
			return err
		}
		return el.SetValue(ctx, text)
	}, opts...)
}

func (a *Actor) MouseOver(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	return a.runner.ForFirst(ctx, in, "Mouse Over", func(ctx context.Context, el schemas.Element) error {
		if el == nil {
			return nil
		}
		return el.MoveTo(ctx)
	}, opts...)
}

// PressAndReleaseKeys presses key, optionally while holding modifier. Both
// are key names such as "ENTER" or "CONTROL"; modifier may be empty.
func (a *Actor) PressAndReleaseKeys(ctx context.Context, key, modifier string, opts ...CallOption) error {
	k, err := DOMKey(key)
	if err != nil {
		return err
	}
	var mod string
	if modifier != "" {
		if mod, err = DOMKey(modifier); err != nil {
			return err
		}
	}

	msg := "Typing key " + key
	if modifier != "" {
		msg += fmt.Sprintf(` with modifier "%s"`, modifier)
	}
	a.runner.Annotate(ctx, msg)
	defer a.runner.clearAnnotation(ctx)

	if mod != "" {
		if err := a.driver().KeyDown(ctx, mod); err != nil {
			return err
		}
		defer a.release(ctx, mod)
	}
	if err := a.driver().KeyDown(ctx, k); err != nil {
		return err
	}
	if err := a.driver().KeyUp(ctx, k); err != nil {
		return err
	}
	a.runner.Wait(ctx, msg, a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return nil
}

func (a *Actor) release(ctx context.Context, key string) {
	if err := a.driver().KeyUp(context.WithoutCancel(ctx), key); err != nil {
		a.logger.Warn("Failed to release key.", zap.String("key", key), zap.Error(err))
	}
}

// KeyDownAndDo holds key while fn runs.
func (a *Actor) KeyDownAndDo(ctx context.Context, key string, fn func(ctx context.Context) error, opts ...CallOption) error {
	k, err := DOMKey(key)
	if err != nil {
		return err
	}
	msg := "Executing a callback while pressing " + key
	a.runner.Annotate(ctx, msg)
	if err := a.driver().KeyDown(ctx, k); err != nil {
		return err
	}
	err = fn(ctx)
	a.release(ctx, k)
	if err != nil {
		return err
	}
	a.runner.Wait(ctx, msg, a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return nil
}

// -- Navigation --

func (a *Actor) NavigateTo(ctx context.Context, url string, opts ...CallOption) error {
	if err := a.driver().Navigate(ctx, url); err != nil {
		return err
	}
	a.runner.Wait(ctx, "navigate", a.runner.options(NavigationWait, opts).waitAfter)
	return nil
}

func (a *Actor) Refresh(ctx context.Context, opts ...CallOption) error {
	if url, err := a.driver().CurrentURL(ctx); err == nil {
		a.logger.Debug("Refreshing page.", zap.String("url", url))
	}
	if err := a.driver().Refresh(ctx); err != nil {
		return err
	}
	a.runner.Wait(ctx, "refresh", a.runner.options(NavigationWait, opts).waitAfter)
	return nil
}

func (a *Actor) GoBack(ctx context.Context, opts ...CallOption) error {
	from, _ := a.driver().CurrentURL(ctx)
	if err := a.driver().Back(ctx); err != nil {
		return err
	}
	a.runner.Wait(ctx, "go back", a.runner.options(NavigationWait, opts).waitAfter)
	to, _ := a.driver().CurrentURL(ctx)
	a.logger.Debug("Went back.", zap.String("from", from), zap.String("to", to))
	return nil
}

// -- Windows --

// SwitchToWindowAtIndex switches to the window at index in the handle list.
// Negative indexes count from the end. With closePrevious the current
// window is closed first.
func (a *Actor) SwitchToWindowAtIndex(ctx context.Context, index int, closePrevious bool, opts ...CallOption) error {
	handles, err := a.driver().WindowHandles(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("Switching window.", zap.Int("windows", len(handles)), zap.Int("index", index))
	i := index
	if i < 0 {
		i += len(handles)
	}
	if i < 0 || i >= len(handles) {
		return schemas.NewInvalidArgumentError("index", fmt.Sprintf("%d is out of range for %d windows", index, len(handles)))
	}
	if closePrevious {
		if err := a.driver().CloseWindow(ctx); err != nil {
			return err
		}
	}
	if err := a.driver().SwitchToWindow(ctx, handles[i]); err != nil {
		return err
	}
	a.runner.Wait(ctx, "switch window", a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return nil
}

func isPlaceholder(url string) bool {
	for _, p := range placeholderURLs {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// SwitchToLastWindow switches to the newest window that is not a browser
// placeholder such as about:blank. When every window is a placeholder the
// oldest one stays current.
func (a *Actor) SwitchToLastWindow(ctx context.Context, opts ...CallOption) error {
	handles, err := a.driver().WindowHandles(ctx)
	if err != nil {
		return err
	}
	for i := len(handles) - 1; i >= 0; i-- {
		if err := a.driver().SwitchToWindow(ctx, handles[i]); err != nil {
			return err
		}
		url, err := a.driver().CurrentURL(ctx)
		if err != nil {
			return err
		}
		a.logger.Debug("Checking window.", zap.Int("window", i), zap.String("url", url))
		if !isPlaceholder(url) {
			break
		}
	}
	a.runner.Wait(ctx, "switch window", a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return nil
}

// SwitchToWindowMatchURL switches to the first window whose URL contains
// every part.
func (a *Actor) SwitchToWindowMatchURL(ctx context.Context, parts []string, opts ...CallOption) error {
	handles, err := a.driver().WindowHandles(ctx)
	if err != nil {
		return err
	}
	for _, h := range handles {
		if err := a.driver().SwitchToWindow(ctx, h); err != nil {
			return err
		}
		url, err := a.driver().CurrentURL(ctx)
		if err != nil {
			return err
		}
		if urlContainsAll(url, parts) {
			a.runner.Wait(ctx, "switch window", a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
			return nil
		}
	}
	return fmt.Errorf("cannot find a window whose URL contains %s", strings.Join(parts, ", "))
}

// -- Scrolling --

// Each edge scrolls in two steps: some pages ignore a scroll until the
// document has been scrolled once.
var scrollScripts = map[string][2]string{
	"top":    {"window.scrollTo(window.scrollX, 1); return true;", "window.scrollTo(window.scrollX, 0); return true;"},
	"bottom": {"window.scrollTo(window.scrollX, 1); return true;", "window.scrollTo(window.scrollX, document.body.scrollHeight); return true;"},
	"left":   {"window.scrollTo(1, window.scrollY); return true;", "window.scrollTo(0, window.scrollY); return true;"},
	"right":  {"window.scrollTo(1, window.scrollY); return true;", "window.scrollTo(document.body.scrollWidth, window.scrollY); return true;"},
}

func (a *Actor) scroll(ctx context.Context, edge string, opts []CallOption) error {
	msg := "Scroll to the page " + edge
	a.runner.Annotate(ctx, msg)
	defer a.runner.clearAnnotation(ctx)
	for _, script := range scrollScripts[edge] {
		if err := a.driver().Execute(ctx, script, nil, nil); err != nil {
			return fmt.Errorf("failed to scroll to the page %s: %w", edge, err)
		}
	}
	a.runner.Wait(ctx, msg, a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return nil
}

func (a *Actor) ScrollToPageTop(ctx context.Context, opts ...CallOption) error {
	return a.scroll(ctx, "top", opts)
}

func (a *Actor) ScrollToPageBottom(ctx context.Context, opts ...CallOption) error {
	return a.scroll(ctx, "bottom", opts)
}

func (a *Actor) ScrollToPageLeft(ctx context.Context, opts ...CallOption) error {
	return a.scroll(ctx, "left", opts)
}

func (a *Actor) ScrollToPageRight(ctx context.Context, opts ...CallOption) error {
	return a.scroll(ctx, "right", opts)
}

// TakeScreenshot saves a screenshot and returns the path written.
func (a *Actor) TakeScreenshot(ctx context.Context, path string, opts ...CallOption) (string, error) {
	if !filepath.IsAbs(path) && a.screenshotDir != "" {
		path = filepath.Join(a.screenshotDir, path)
	}
	if err := a.driver().SaveScreenshot(ctx, path); err != nil {
		return "", err
	}
	a.logger.Info("Screenshot saved.", zap.String("path", path))
	a.runner.Wait(ctx, "screenshot", a.runner.options(a.runner.cfg.WaitAfter, opts).waitAfter)
	return path, nil
}
