// Package textmatch normalizes and compares UI text under configurable rules.
// Every assertion in crow reports mismatches through this package so the
// failure message always carries the raw strings, the normalized strings and
// the options used.
package textmatch

import (
	"fmt"
)

// Options controls how text is normalized before comparison.
type Options struct {
	Partial          bool `json:"partial" mapstructure:"partial"`
	Caseless         bool `json:"caseless" mapstructure:"caseless"`
	LetterNumberOnly bool `json:"letterNumberOnly" mapstructure:"letter_number_only"`
	Orderless        bool `json:"orderless" mapstructure:"orderless"`
	MatchTime        bool `json:"matchTime" mapstructure:"match_time"`
	MatchDate        bool `json:"matchDate" mapstructure:"match_date"`
}

// Option overrides a single field of Options.
type Option func(*Options)

// Default is the base every preset and every New call starts from.
var Default = Options{LetterNumberOnly: true}

// Presets.
var (
	Contain         = New(WithPartial(true), WithCaseless(true))
	Equal           = New()
	EqualCaseless   = New(WithCaseless(true))
	ExactEqual      = New(WithLetterNumberOnly(false))
	Orderless       = New(WithCaseless(true), WithOrderless(true))
	Date            = New(WithLetterNumberOnly(false), WithMatchDate(true))
	Time            = New(WithLetterNumberOnly(false), WithMatchTime(true))
	presetsByName   = map[string]Options{}
	presetNameOrder = []string{"contain", "equal", "equal-caseless", "exact-equal", "orderless", "date", "time"}
)

func init() {
	for i, o := range []Options{Contain, Equal, EqualCaseless, ExactEqual, Orderless, Date, Time} {
		presetsByName[presetNameOrder[i]] = o
	}
}

// New merges overrides on top of Default.
func New(opts ...Option) Options {
	return Default.With(opts...)
}

// With returns a copy of o with the overrides applied in order.
func (o Options) With(opts ...Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithPartial(v bool) Option          { return func(o *Options) { o.Partial = v } }
func WithCaseless(v bool) Option         { return func(o *Options) { o.Caseless = v } }
func WithLetterNumberOnly(v bool) Option { return func(o *Options) { o.LetterNumberOnly = v } }
func WithOrderless(v bool) Option        { return func(o *Options) { o.Orderless = v } }
func WithMatchDate(v bool) Option        { return func(o *Options) { o.MatchDate = v } }
func WithMatchTime(v bool) Option        { return func(o *Options) { o.MatchTime = v } }

// Preset looks up a preset by its kebab-case name.
func Preset(name string) (Options, error) {
	o, ok := presetsByName[name]
	if !ok {
		return Options{}, fmt.Errorf("unknown match preset %q (expected one of %v)", name, presetNameOrder)
	}
	return o, nil
}

// PresetNames lists the preset names accepted by Preset.
func PresetNames() []string {
	out := make([]string, len(presetNameOrder))
	copy(out, presetNameOrder)
	return out
}

// String renders the options in the same shape as the match report.
func (o Options) String() string {
	return fmt.Sprintf(`{"partial":%t,"caseless":%t,"letterNumberOnly":%t,"orderless":%t,"matchTime":%t,"matchDate":%t}`,
		o.Partial, o.Caseless, o.LetterNumberOnly, o.Orderless, o.MatchTime, o.MatchDate)
}
