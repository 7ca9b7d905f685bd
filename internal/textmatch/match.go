package textmatch

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/xkilldash9x/crow/api/schemas"
)

// Result records one comparison so that failures can be explained.
type Result struct {
	Actual             string
	Expected           string
	NormalizedActual   string
	NormalizedExpected string
	Options            Options
	Matched            bool
}

// Compare normalizes both sides with the same options. With Partial set the
// normalized expected text must be contained in the normalized actual text;
// otherwise they must be equal.
func Compare(actual, expected string, o Options) Result {
	a := normalize(actual, o)
	b := normalize(expected, o)

	var matched bool
	switch {
	case a.temporal != b.temporal:
		matched = false
	case o.Partial && !a.temporal:
		matched = strings.Contains(a.value, b.value)
	default:
		matched = a.value == b.value
	}

	return Result{
		Actual:             actual,
		Expected:           expected,
		NormalizedActual:   a.value,
		NormalizedExpected: b.value,
		Options:            o,
		Matched:            matched,
	}
}

// Match reports whether actual matches expected under o.
func Match(actual, expected string, o Options) bool {
	return Compare(actual, expected, o).Matched
}

// InArray reports whether any item of list matches s.
func InArray(s string, list []string, o Options) bool {
	for _, item := range list {
		if Match(item, s, o) {
			return true
		}
	}
	return false
}

// Report renders the comparison the way assertion failures print it.
func (r Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Raw Strings:\n\t- %s\n\t+ %s", r.Actual, r.Expected)
	fmt.Fprintf(&b, "\nNormalized:\n\t- %s\n\t+ %s", r.NormalizedActual, r.NormalizedExpected)
	fmt.Fprintf(&b, "\nMatching Options: %s\nMatched: %t", r.Options, r.Matched)
	return b.String()
}

// Diff shows how the normalized strings differ. Deleted runs (present only
// in the actual text) are wrapped in [-...-], inserted runs in {+...+}.
func (r Result) Diff() string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(r.NormalizedActual, r.NormalizedExpected, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// Styled colors the report for a terminal: red on mismatch, blue otherwise.
func (r Result) Styled() string {
	if r.Matched {
		return color.New(color.FgBlue).Sprint(r.Report())
	}
	return color.New(color.FgRed).Sprint(r.Report() + "\nDiff: " + r.Diff())
}

// AssertMatch returns an *schemas.AssertionError when actual does not match
// expected. The error detail lists actual as "-" and expected as "+".
func AssertMatch(actual, expected string, o Options, message string) error {
	r := Compare(actual, expected, o)
	if r.Matched {
		return nil
	}
	return &schemas.AssertionError{
		Assertion: "string match",
		Message:   message,
		Detail:    "- actual; + expect\n" + r.Report() + "\nDiff: " + r.Diff(),
	}
}

// AssertMatchAny is AssertMatch for loosely typed expectations.
func AssertMatchAny(actual string, expected any, o Options, message string) error {
	switch t := expected.(type) {
	case nil:
		return AssertMatch(actual, "", o, message)
	case string:
		return AssertMatch(actual, t, o, message)
	}
	return schemas.NewInvalidArgumentError("expected", fmt.Sprintf("expected a string but received %T: %v", expected, expected))
}
