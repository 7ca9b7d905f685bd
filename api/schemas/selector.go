package schemas

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// -- Selector Schemas --

// LocateStrategy tells the driver how to interpret a selector body.
type LocateStrategy string

const (
	// StrategyXPath marks structural-path selectors.
	StrategyXPath LocateStrategy = "xpath"
	// StrategyCSS marks property-path selectors. The value mirrors the
	// W3C WebDriver locator name.
	StrategyCSS LocateStrategy = "css selector"
	// StrategyUnknown marks a body the heuristics could not classify, such
	// as a bare tag name.
	StrategyUnknown LocateStrategy = "unknown"
)

// Valid reports whether s is one of the declared strategies.
func (s LocateStrategy) Valid() bool {
	switch s {
	case StrategyXPath, StrategyCSS, StrategyUnknown:
		return true
	}
	return false
}

// Explicit reports whether s names a concrete strategy.
func (s LocateStrategy) Explicit() bool {
	return s == StrategyXPath || s == StrategyCSS
}

// SymbolMarker prefixes symbolic references into a PageElementMap.
const SymbolMarker = "@"

// Selector is the canonical description of what to locate and how.
// Values are produced by the selector resolver and are never mutated in
// place; every composition returns a copy.
type Selector struct {
	Selector       string         `json:"selector" yaml:"selector"`
	LocateStrategy LocateStrategy `json:"locateStrategy" yaml:"locateStrategy"`
	// Index is 1-based. Zero means no index.
	Index                  int           `json:"index,omitempty" yaml:"index,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryInterval          time.Duration `json:"retryInterval,omitempty" yaml:"retryInterval,omitempty"`
	AbortOnFailure         bool          `json:"abortOnFailure,omitempty" yaml:"abortOnFailure,omitempty"`
	SuppressNotFoundErrors bool          `json:"suppressNotFoundErrors,omitempty" yaml:"suppressNotFoundErrors,omitempty"`
	NeedVisible            bool          `json:"needVisible" yaml:"needVisible"`
	NeedHighlight          bool          `json:"needHighlight" yaml:"needHighlight"`
	Name                   string        `json:"name,omitempty" yaml:"name,omitempty"`
}

// WithoutIndex returns a copy of the selector with the index removed.
func (s Selector) WithoutIndex() Selector {
	s.Index = 0
	return s
}

// HasIndex reports whether the selector addresses one specific match.
func (s Selector) HasIndex() bool {
	return s.Index >= 1
}

// String renders the selector for log lines.
func (s Selector) String() string {
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "%s (%s)", s.Name, s.Selector)
	} else {
		b.WriteString(s.Selector)
	}
	fmt.Fprintf(&b, " [%s]", s.LocateStrategy)
	if s.HasIndex() {
		fmt.Fprintf(&b, " #%d", s.Index)
	}
	return b.String()
}

// Spec is a partially specified selector. Nil fields are "not given" so that
// overrides can be layered on top of a resolved symbol.
type Spec struct {
	Selector               string
	LocateStrategy         LocateStrategy
	Index                  *int
	Timeout                *time.Duration
	RetryInterval          *time.Duration
	AbortOnFailure         *bool
	SuppressNotFoundErrors *bool
	NeedVisible            *bool
	NeedHighlight          *bool
	Name                   string
}

// specAttributes lists the keys accepted in a page map entry.
var specAttributes = map[string]struct{}{
	"selector": {}, "locateStrategy": {}, "index": {}, "timeout": {},
	"retryInterval": {}, "abortOnFailure": {}, "suppressNotFoundErrors": {},
	"needVisible": {}, "needHighlight": {}, "name": {},
}

// UnmarshalYAML accepts either a bare selector body or a mapping of
// selector attributes. Integer durations are read as milliseconds.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Spec{Selector: node.Value}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return NewInvalidArgumentError("page element", fmt.Sprintf("expected a string or mapping at line %d", node.Line))
	}

	raw := make(map[string]any)
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for key := range raw {
		if _, ok := specAttributes[key]; !ok {
			return NewInvalidArgumentError(key, "is not a valid selector attribute")
		}
	}

	var out Spec
	var err error
	if out.Selector, err = stringAttr(raw, "selector"); err != nil {
		return err
	}
	if out.Name, err = stringAttr(raw, "name"); err != nil {
		return err
	}
	strategy, err := stringAttr(raw, "locateStrategy")
	if err != nil {
		return err
	}
	out.LocateStrategy = LocateStrategy(strategy)
	if strategy != "" && !out.LocateStrategy.Valid() {
		return NewInvalidArgumentError("locateStrategy", fmt.Sprintf("unsupported value %q", strategy))
	}
	if v, ok := raw["index"]; ok {
		i, ok := v.(int)
		if !ok {
			return NewInvalidArgumentError("index", fmt.Sprintf("expected an integer, got %T", v))
		}
		out.Index = &i
	}
	if out.Timeout, err = durationAttr(raw, "timeout"); err != nil {
		return err
	}
	if out.RetryInterval, err = durationAttr(raw, "retryInterval"); err != nil {
		return err
	}
	if out.AbortOnFailure, err = boolAttr(raw, "abortOnFailure"); err != nil {
		return err
	}
	if out.SuppressNotFoundErrors, err = boolAttr(raw, "suppressNotFoundErrors"); err != nil {
		return err
	}
	if out.NeedVisible, err = boolAttr(raw, "needVisible"); err != nil {
		return err
	}
	if out.NeedHighlight, err = boolAttr(raw, "needHighlight"); err != nil {
		return err
	}
	*s = out
	return nil
}

func stringAttr(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", NewInvalidArgumentError(key, fmt.Sprintf("expected a string, got %T", v))
	}
	return str, nil
}

func boolAttr(raw map[string]any, key string) (*bool, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, NewInvalidArgumentError(key, fmt.Sprintf("expected a boolean, got %T", v))
	}
	return &b, nil
}

func durationAttr(raw map[string]any, key string) (*time.Duration, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return nil, NewInvalidArgumentError(key, err.Error())
	}
	return &d, nil
}

// ParseDuration converts a page map or override value into a duration.
// Integers are milliseconds, strings use time.ParseDuration syntax.
func ParseDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	case string:
		return time.ParseDuration(t)
	}
	return 0, fmt.Errorf("expected milliseconds or a duration string, got %T", v)
}

// PageElementMap is the symbol table of one page module. It is loaded once
// and treated as read-only afterwards.
type PageElementMap struct {
	Name     string          `yaml:"name"`
	Elements map[string]Spec `yaml:"elements"`
}

// Lookup returns a copy of the spec registered under symbol (without the
// marker).
func (p *PageElementMap) Lookup(symbol string) (Spec, bool) {
	if p == nil || p.Elements == nil {
		return Spec{}, false
	}
	spec, ok := p.Elements[symbol]
	return spec, ok
}

// Symbols lists the registered symbol names.
func (p *PageElementMap) Symbols() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Elements))
	for name := range p.Elements {
		names = append(names, name)
	}
	return names
}

// SelectorInput is the closed set of shapes the resolver accepts: Raw,
// Symbol, Spec and an already canonical Selector.
type SelectorInput interface {
	selectorInput()
}

// Raw is a locator body used verbatim.
type Raw string

// Symbol names an entry in a PageElementMap. The marker prefix is optional.
type Symbol string

func (Raw) selectorInput()      {}
func (Symbol) selectorInput()   {}
func (Spec) selectorInput()     {}
func (Selector) selectorInput() {}

// Name returns the symbol without its marker.
func (s Symbol) Name() string {
	return strings.TrimPrefix(string(s), SymbolMarker)
}

// ParseInput classifies a user supplied string: marker-prefixed strings are
// symbols, everything else is raw.
func ParseInput(s string) SelectorInput {
	if strings.HasPrefix(s, SymbolMarker) {
		return Symbol(s)
	}
	return Raw(s)
}
