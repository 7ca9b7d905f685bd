// Package selector canonicalizes, classifies and composes selectors.
package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
)

// DefaultCacheSize bounds the strategy classification cache.
const DefaultCacheSize = 1024

// Resolver turns any selector input into a canonical schemas.Selector. It
// holds no per-session state and is safe for concurrent use.
type Resolver struct {
	logger     *zap.Logger
	classifier *classifier
}

// NewResolver creates a resolver with the default heuristics. A cacheSize of
// zero disables classification caching.
func NewResolver(logger *zap.Logger, cacheSize int) (*Resolver, error) {
	return NewResolverWithRules(logger, DefaultRules(), cacheSize)
}

// NewResolverWithRules creates a resolver with custom heuristics.
func NewResolverWithRules(logger *zap.Logger, rules HeuristicRules, cacheSize int) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := newClassifier(rules, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification cache: %w", err)
	}
	return &Resolver{logger: logger.Named("selector"), classifier: c}, nil
}

// Classify exposes the resolver's strategy inference.
func (r *Resolver) Classify(body string) schemas.LocateStrategy {
	return r.classifier.classify(body)
}

// Normalize resolves in against page (which may be nil) and returns a
// canonical selector. Symbolic definitions are copied, never aliased.
//
// Resolution order: the base record comes from the symbol or raw body, the
// input's own attributes override it, the strategy is inferred when not
// declared, and finally NeedVisible and NeedHighlight default to true when
// nothing set them.
func (r *Resolver) Normalize(page *schemas.PageElementMap, in schemas.SelectorInput) (schemas.Selector, error) {
	var spec schemas.Spec
	switch v := in.(type) {
	case nil:
		return schemas.Selector{}, schemas.NewInvalidArgumentError("selector", "expected a selector, got nil")
	case schemas.Selector:
		return r.canonical(v), nil
	case schemas.Raw:
		spec = schemas.Spec{Selector: string(v)}
	case schemas.Symbol:
		resolved, err := r.resolveSymbol(page, v)
		if err != nil {
			return schemas.Selector{}, err
		}
		spec = resolved
	case schemas.Spec:
		base, err := r.resolveBody(page, v.Selector)
		if err != nil {
			return schemas.Selector{}, err
		}
		spec = overlay(base, v)
	default:
		return schemas.Selector{}, schemas.NewInvalidArgumentError("selector", fmt.Sprintf("unsupported selector input %T", in))
	}

	if spec.Selector == "" {
		return schemas.Selector{}, schemas.NewInvalidArgumentError("selector", "selector body is empty")
	}
	if spec.LocateStrategy != "" && !spec.LocateStrategy.Valid() {
		return schemas.Selector{}, schemas.NewInvalidArgumentError("locateStrategy", fmt.Sprintf("unsupported value %q", spec.LocateStrategy))
	}
	return r.canonical(materialize(spec)), nil
}

// NormalizeString is Normalize for a user supplied string, which is a
// symbol when it carries the marker and a raw body otherwise.
func (r *Resolver) NormalizeString(page *schemas.PageElementMap, s string) (schemas.Selector, error) {
	return r.Normalize(page, schemas.ParseInput(s))
}

// MustNormalize is Normalize for inputs known to be valid, such as
// selectors built from constants. It panics on error.
func (r *Resolver) MustNormalize(page *schemas.PageElementMap, in schemas.SelectorInput) schemas.Selector {
	sel, err := r.Normalize(page, in)
	if err != nil {
		panic(err)
	}
	return sel
}

// canonical fills in the strategy of an otherwise complete selector.
func (r *Resolver) canonical(sel schemas.Selector) schemas.Selector {
	if !sel.LocateStrategy.Explicit() {
		sel.LocateStrategy = r.classifier.classify(sel.Selector)
	}
	return sel
}

// resolveBody treats a marker-prefixed body as a symbol when a page is
// available and as a raw body otherwise.
func (r *Resolver) resolveBody(page *schemas.PageElementMap, body string) (schemas.Spec, error) {
	if page != nil && strings.HasPrefix(body, schemas.SymbolMarker) {
		return r.resolveSymbol(page, schemas.Symbol(body))
	}
	return schemas.Spec{Selector: body}, nil
}

func (r *Resolver) resolveSymbol(page *schemas.PageElementMap, sym schemas.Symbol) (schemas.Spec, error) {
	name := sym.Name()
	marked := schemas.SymbolMarker + name
	if page == nil {
		return schemas.Spec{}, &schemas.UnknownSymbolError{Symbol: marked}
	}
	spec, ok := page.Lookup(name)
	if !ok || spec.Selector == "" {
		available := page.Symbols()
		sort.Strings(available)
		r.logger.Debug("Selector symbol is not defined.", zap.String("symbol", marked), zap.String("page", page.Name))
		return schemas.Spec{}, &schemas.UnknownSymbolError{Symbol: marked, Page: page.Name, Available: available}
	}
	// Page definitions are raw locator bodies; a definition never refers to
	// another symbol.
	spec = copySpec(spec)
	spec.Name = marked
	return spec, nil
}

// overlay applies every attribute set on top of base, except the body which
// was already resolved from top.Selector.
func overlay(base, top schemas.Spec) schemas.Spec {
	out := copySpec(base)
	if top.LocateStrategy != "" {
		out.LocateStrategy = top.LocateStrategy
	}
	if top.Index != nil {
		out.Index = ptr(*top.Index)
	}
	if top.Timeout != nil {
		out.Timeout = ptr(*top.Timeout)
	}
	if top.RetryInterval != nil {
		out.RetryInterval = ptr(*top.RetryInterval)
	}
	if top.AbortOnFailure != nil {
		out.AbortOnFailure = ptr(*top.AbortOnFailure)
	}
	if top.SuppressNotFoundErrors != nil {
		out.SuppressNotFoundErrors = ptr(*top.SuppressNotFoundErrors)
	}
	if top.NeedVisible != nil {
		out.NeedVisible = ptr(*top.NeedVisible)
	}
	if top.NeedHighlight != nil {
		out.NeedHighlight = ptr(*top.NeedHighlight)
	}
	if top.Name != "" {
		out.Name = top.Name
	}
	return out
}

// copySpec deep-copies the pointer fields so that nothing downstream can
// write through to a page definition.
func copySpec(s schemas.Spec) schemas.Spec {
	out := s
	out.Index = clonePtr(s.Index)
	out.Timeout = clonePtr(s.Timeout)
	out.RetryInterval = clonePtr(s.RetryInterval)
	out.AbortOnFailure = clonePtr(s.AbortOnFailure)
	out.SuppressNotFoundErrors = clonePtr(s.SuppressNotFoundErrors)
	out.NeedVisible = clonePtr(s.NeedVisible)
	out.NeedHighlight = clonePtr(s.NeedHighlight)
	return out
}

// materialize converts a resolved spec into a selector, applying the
// visibility and highlight defaults.
func materialize(s schemas.Spec) schemas.Selector {
	sel := schemas.Selector{
		Selector:       s.Selector,
		LocateStrategy: s.LocateStrategy,
		Name:           s.Name,
		NeedVisible:    true,
		NeedHighlight:  true,
	}
	if s.Index != nil {
		sel.Index = *s.Index
	}
	if s.Timeout != nil {
		sel.Timeout = *s.Timeout
	}
	if s.RetryInterval != nil {
		sel.RetryInterval = *s.RetryInterval
	}
	if s.AbortOnFailure != nil {
		sel.AbortOnFailure = *s.AbortOnFailure
	}
	if s.SuppressNotFoundErrors != nil {
		sel.SuppressNotFoundErrors = *s.SuppressNotFoundErrors
	}
	if s.NeedVisible != nil {
		sel.NeedVisible = *s.NeedVisible
	}
	if s.NeedHighlight != nil {
		sel.NeedHighlight = *s.NeedHighlight
	}
	return sel
}

func ptr[T any](v T) *T { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

// Ptr is a convenience for building Spec overrides inline.
func Ptr[T any](v T) *T { return ptr(v) }

// Millis converts a millisecond count into a duration pointer for Spec
// overrides.
func Millis(ms int) *time.Duration {
	d := time.Duration(ms) * time.Millisecond
	return &d
}
