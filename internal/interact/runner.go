// Package interact drives every element interaction through one protocol:
// resolve the selector, gather the matches, describe the step in the on-page
// overlay, highlight, run the callback, pause, then unhighlight. Observations,
// actions and table access are all built on the Runner.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/selector"
)

// Callback shapes, one per iteration style.
type (
	ElementFunc        func(ctx context.Context, el schemas.Element) error
	ElementsFunc       func(ctx context.Context, els []schemas.Element) error
	IndexedElementFunc func(ctx context.Context, el schemas.Element, index int) error
	TextsFunc          func(ctx context.Context, texts []string) error
	IndexedTextFunc    func(ctx context.Context, text string, index int) error
)

// callOptions are the per call overrides of the interaction defaults.
type callOptions struct {
	waitAfter time.Duration
	highlight *bool
}

// CallOption overrides one interaction default for a single call.
type CallOption func(*callOptions)

// WithWaitAfter sets the pause after the callback. Zero skips the pause.
func WithWaitAfter(d time.Duration) CallOption {
	return func(o *callOptions) { o.waitAfter = d }
}

// WithHighlight forces highlighting on or off regardless of the selector.
func WithHighlight(on bool) CallOption {
	return func(o *callOptions) { o.highlight = &on }
}

// Runner runs the interaction protocol against one session. A Runner is not
// safe for concurrent use; scenarios running in parallel each get their own.
type Runner struct {
	driver   schemas.Driver
	resolver *selector.Resolver
	gatherer *Gatherer
	logger   *zap.Logger
	cfg      config.InteractionConfig
	page     *schemas.PageElementMap
}

// NewRunner creates a runner. Symbols only resolve once a page is bound with
// WithPage.
func NewRunner(driver schemas.Driver, resolver *selector.Resolver, cfg config.InteractionConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		driver:   driver,
		resolver: resolver,
		gatherer: NewGatherer(driver, logger),
		logger:   logger.Named("interact"),
		cfg:      cfg,
	}
}

// WithPage returns a copy of the runner that resolves symbols against page.
func (r *Runner) WithPage(page *schemas.PageElementMap) *Runner {
	cp := *r
	cp.page = page
	return &cp
}

// Driver returns the session the runner drives.
func (r *Runner) Driver() schemas.Driver { return r.driver }

// Page returns the bound page element map, if any.
func (r *Runner) Page() *schemas.PageElementMap { return r.page }

// Resolver returns the resolver used for every selector input.
func (r *Runner) Resolver() *selector.Resolver { return r.resolver }

// Gatherer returns the runner's element gatherer.
func (r *Runner) Gatherer() *Gatherer { return r.gatherer }

// Resolve normalizes in against the bound page.
func (r *Runner) Resolve(in schemas.SelectorInput) (schemas.Selector, error) {
	return r.resolver.Normalize(r.page, in)
}

func (r *Runner) options(defaultWait time.Duration, opts []CallOption) callOptions {
	o := callOptions{waitAfter: defaultWait}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (r *Runner) shouldHighlight(sel schemas.Selector, o callOptions) bool {
	if o.highlight != nil {
		return *o.highlight
	}
	return r.cfg.Highlight && sel.NeedHighlight
}

// Annotate shows text in the overlay when enabled. Failures are logged.
func (r *Runner) Annotate(ctx context.Context, text string) {
	if !r.cfg.ShowActionText {
		return
	}
	if err := r.driver.Annotate(ctx, text); err != nil {
		r.logger.Debug("Failed to show action text.", zap.String("text", text), zap.Error(err))
	}
}

func (r *Runner) clearAnnotation(ctx context.Context) {
	if !r.cfg.ShowActionText {
		return
	}
	if err := r.driver.ClearAnnotation(context.WithoutCancel(ctx)); err != nil {
		r.logger.Debug("Failed to clear action text.", zap.Error(err))
	}
}

func (r *Runner) highlight(ctx context.Context, els ...schemas.Element) {
	for _, el := range els {
		if err := el.Highlight(ctx); err != nil {
			r.logger.Debug("Failed to highlight element.", zap.Error(err))
		}
	}
}

func (r *Runner) unhighlight(ctx context.Context, els ...schemas.Element) {
	ctx = context.WithoutCancel(ctx)
	for _, el := range els {
		if err := el.Unhighlight(ctx); err != nil {
			r.logger.Debug("Failed to remove highlight.", zap.Error(err))
		}
	}
}

// Wait pauses for d through the session. A failed pause is logged and
// otherwise ignored.
func (r *Runner) Wait(ctx context.Context, description string, d time.Duration) {
	if d <= 0 {
		return
	}
	if err := r.driver.Pause(ctx, d); err != nil {
		r.logger.Debug("Failed to wait, continuing.",
			zap.String("step", description),
			zap.Duration("wait", d),
			zap.Error(err))
	}
}

// resolveAndGather is the front half of the protocol shared by every shape.
func (r *Runner) resolveAndGather(ctx context.Context, in schemas.SelectorInput) (schemas.Selector, []schemas.Element, error) {
	sel, err := r.Resolve(in)
	if err != nil {
		return schemas.Selector{}, nil, err
	}
	els, err := r.gatherer.Gather(ctx, sel)
	if err != nil {
		return sel, nil, err
	}
	return sel, els, nil
}

// ForGiven runs fn against an element the caller already holds.
func (r *Runner) ForGiven(ctx context.Context, el schemas.Element, description string, fn ElementFunc, opts ...CallOption) error {
	o := r.options(r.cfg.WaitAfter, opts)
	r.Annotate(ctx, description)
	defer r.clearAnnotation(ctx)

	highlight := r.cfg.Highlight
	if o.highlight != nil {
		highlight = *o.highlight
	}
	if highlight && el != nil {
		r.highlight(ctx, el)
		defer r.unhighlight(ctx, el)
	}
	if err := fn(ctx, el); err != nil {
		return err
	}
	r.Wait(ctx, description, o.waitAfter)
	return nil
}

// ForFirst runs fn against the first match. fn receives nil when the
// selector suppresses not-found errors and nothing matched.
func (r *Runner) ForFirst(ctx context.Context, in schemas.SelectorInput, description string, fn ElementFunc, opts ...CallOption) error {
	sel, err := r.Resolve(in)
	if err != nil {
		return err
	}
	o := r.options(r.cfg.WaitAfter, opts)
	r.Annotate(ctx, fmt.Sprintf(`For the first matching "%s": %s`, selector.Name(sel, 1), description))
	defer r.clearAnnotation(ctx)

	els, err := r.gatherer.Gather(ctx, sel)
	if err != nil {
		return err
	}
	var el schemas.Element
	if len(els) > 0 {
		el = els[0]
		if r.shouldHighlight(sel, o) {
			r.highlight(ctx, el)
			defer r.unhighlight(ctx, el)
		}
	}
	if err := fn(ctx, el); err != nil {
		return err
	}
	r.Wait(ctx, description, o.waitAfter)
	return nil
}

// ForAll runs fn once with every match. All matches are highlighted before
// the call and unhighlighted after it.
func (r *Runner) ForAll(ctx context.Context, in schemas.SelectorInput, description string, fn ElementsFunc, opts ...CallOption) error {
	sel, err := r.Resolve(in)
	if err != nil {
		return err
	}
	o := r.options(r.cfg.WaitAfter, opts)
	r.Annotate(ctx, fmt.Sprintf(`For all the matching "%s": %s`, selector.Name(sel, 1), description))
	defer r.clearAnnotation(ctx)

	els, err := r.gatherer.Gather(ctx, sel)
	if err != nil {
		return err
	}
	if r.shouldHighlight(sel, o) {
		r.highlight(ctx, els...)
		defer r.unhighlight(ctx, els...)
	}
	if err := fn(ctx, els); err != nil {
		return err
	}
	r.Wait(ctx, description, o.waitAfter)
	return nil
}

// ForEach runs fn for every match in turn, highlighting one element at a
// time. A failing callback does not stop the iteration: every failure is
// collected as a *schemas.CallbackFailureError and returned joined. fn may
// be nil, in which case the elements are only shown.
func (r *Runner) ForEach(ctx context.Context, in schemas.SelectorInput, description string, fn IndexedElementFunc, opts ...CallOption) error {
	sel, els, err := r.resolveAndGather(ctx, in)
	if err != nil {
		return err
	}
	o := r.options(r.cfg.WaitAfter, opts)
	defer r.clearAnnotation(ctx)

	name := selector.Name(sel, 1)
	highlight := r.shouldHighlight(sel, o)
	var errs []error
	for i, el := range els {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		r.Annotate(ctx, fmt.Sprintf(`For the #%d matching "%s": %s`, i+1, name, description))
		err := r.each(ctx, el, highlight, func(ctx context.Context) error {
			if fn == nil {
				return nil
			}
			return fn(ctx, el, i)
		})
		if err != nil {
			r.logger.Debug("Callback failed, continuing with the next element.",
				zap.String("step", description),
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, &schemas.CallbackFailureError{Description: description, Index: i, Err: err})
		}
	}
	r.Wait(ctx, description, o.waitAfter)
	return errors.Join(errs...)
}

func (r *Runner) each(ctx context.Context, el schemas.Element, highlight bool, fn func(ctx context.Context) error) error {
	if highlight {
		r.highlight(ctx, el)
		defer r.unhighlight(ctx, el)
	}
	return fn(ctx)
}

// ForAllTexts runs fn once with the text of every match.
func (r *Runner) ForAllTexts(ctx context.Context, in schemas.SelectorInput, description string, fn TextsFunc, opts ...CallOption) error {
	sel, err := r.Resolve(in)
	if err != nil {
		return err
	}
	o := r.options(r.cfg.WaitAfter, opts)
	r.Annotate(ctx, fmt.Sprintf(`For all the texts of "%s": %s`, selector.Name(sel, 1), description))
	defer r.clearAnnotation(ctx)

	els, err := r.gatherer.Gather(ctx, sel)
	if err != nil {
		return err
	}
	if r.shouldHighlight(sel, o) {
		r.highlight(ctx, els...)
		defer r.unhighlight(ctx, els...)
	}
	texts, err := textsOf(ctx, els)
	if err != nil {
		return fmt.Errorf("failed to read texts of %s: %w", sel, err)
	}
	if err := fn(ctx, texts); err != nil {
		return err
	}
	r.Wait(ctx, description, o.waitAfter)
	return nil
}

// ForEachText is ForEach over the text of every match. A text that cannot
// be read counts as a failure for that element.
func (r *Runner) ForEachText(ctx context.Context, in schemas.SelectorInput, description string, fn IndexedTextFunc, opts ...CallOption) error {
	sel, els, err := r.resolveAndGather(ctx, in)
	if err != nil {
		return err
	}
	o := r.options(r.cfg.WaitAfter, opts)
	defer r.clearAnnotation(ctx)

	name := selector.Name(sel, 1)
	highlight := r.shouldHighlight(sel, o)
	var errs []error
	for i, el := range els {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		r.Annotate(ctx, fmt.Sprintf(`For the #%d text of "%s": %s`, i+1, name, description))
		err := r.each(ctx, el, highlight, func(ctx context.Context) error {
			text, err := el.Text(ctx)
			if err != nil {
				return err
			}
			return fn(ctx, text, i)
		})
		if err != nil {
			r.logger.Debug("Text callback failed, continuing with the next element.",
				zap.String("step", description),
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, &schemas.CallbackFailureError{Description: description, Index: i, Err: err})
		}
	}
	r.Wait(ctx, description, o.waitAfter)
	return errors.Join(errs...)
}

func textsOf(ctx context.Context, els []schemas.Element) ([]string, error) {
	texts := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, nil
}

// First is ForFirst for callbacks that produce a value.
func First[T any](ctx context.Context, r *Runner, in schemas.SelectorInput, description string, fn func(ctx context.Context, el schemas.Element) (T, error), opts ...CallOption) (T, error) {
	var out T
	err := r.ForFirst(ctx, in, description, func(ctx context.Context, el schemas.Element) error {
		v, err := fn(ctx, el)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err
}

// All is ForAll for callbacks that produce a value.
func All[T any](ctx context.Context, r *Runner, in schemas.SelectorInput, description string, fn func(ctx context.Context, els []schemas.Element) (T, error), opts ...CallOption) (T, error) {
	var out T
	err := r.ForAll(ctx, in, description, func(ctx context.Context, els []schemas.Element) error {
		v, err := fn(ctx, els)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err
}

// AllTexts is ForAllTexts for callbacks that produce a value.
func AllTexts[T any](ctx context.Context, r *Runner, in schemas.SelectorInput, description string, fn func(ctx context.Context, texts []string) (T, error), opts ...CallOption) (T, error) {
	var out T
	err := r.ForAllTexts(ctx, in, description, func(ctx context.Context, texts []string) error {
		v, err := fn(ctx, texts)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err
}
