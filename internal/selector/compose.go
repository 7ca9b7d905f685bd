package selector

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

func childConnector(s schemas.LocateStrategy) string {
	if s == schemas.StrategyXPath {
		return "/"
	}
	return " > "
}

func descendantConnector(s schemas.LocateStrategy) string {
	if s == schemas.StrategyXPath {
		return "//"
	}
	return " "
}

// AddChild appends a direct child step to in. A positive index is then
// applied to the new step with AddElementIndex.
func (r *Resolver) AddChild(page *schemas.PageElementMap, in schemas.SelectorInput, child string, index int) (schemas.Selector, error) {
	sel, err := r.Normalize(page, in)
	if err != nil {
		return sel, err
	}
	sel.Selector += childConnector(sel.LocateStrategy) + child
	return AddElementIndex(sel, index), nil
}

// AddDescendant appends a descendant step to in.
func (r *Resolver) AddDescendant(page *schemas.PageElementMap, in schemas.SelectorInput, descendant string, index int) (schemas.Selector, error) {
	sel, err := r.Normalize(page, in)
	if err != nil {
		return sel, err
	}
	sel.Selector += descendantConnector(sel.LocateStrategy) + descendant
	return AddElementIndex(sel, index), nil
}

// AddElementIndex suffixes the last step with a positional predicate:
// [n] for XPath and :nth-of-type(n) otherwise. Non-positive indexes leave the
// selector unchanged.
func AddElementIndex(sel schemas.Selector, index int) schemas.Selector {
	if index <= 0 {
		return sel
	}
	if sel.LocateStrategy == schemas.StrategyXPath {
		sel.Selector += fmt.Sprintf("[%d]", index)
	} else {
		sel.Selector += fmt.Sprintf(":nth-of-type(%d)", index)
	}
	return sel
}

// PinIndex moves sel's index into its body so that steps appended later stay
// scoped to that one match. XPath bodies become "(body)[n]". Other bodies get
// :nth-of-type(n), which singles out the n-th match when the matches are
// siblings.
func PinIndex(sel schemas.Selector) schemas.Selector {
	if !sel.HasIndex() {
		return sel
	}
	index := sel.Index
	sel = sel.WithoutIndex()
	if sel.LocateStrategy == schemas.StrategyXPath {
		sel.Selector = fmt.Sprintf("(%s)[%d]", sel.Selector, index)
		return sel
	}
	return AddElementIndex(sel, index)
}

// Merge scopes b under a. The result keeps b's attributes, then the
// overrides, and its body is "a <connector> b".
//
// An unknown strategy defers to the other side and two unknowns become CSS.
// Two explicit strategies that differ yield *schemas.IncompatibleStrategiesError.
// The override body is ignored; every other attribute set in overrides wins.
func (r *Resolver) Merge(page *schemas.PageElementMap, a, b schemas.SelectorInput, isDirectChild bool, overrides schemas.Spec) (schemas.Selector, error) {
	first, err := r.Normalize(page, a)
	if err != nil {
		return schemas.Selector{}, err
	}
	second, err := r.Normalize(page, b)
	if err != nil {
		return schemas.Selector{}, err
	}

	result := second
	switch {
	case result.LocateStrategy == schemas.StrategyUnknown:
		if first.LocateStrategy == schemas.StrategyUnknown {
			result.LocateStrategy = schemas.StrategyCSS
		} else {
			result.LocateStrategy = first.LocateStrategy
		}
	case first.LocateStrategy == schemas.StrategyUnknown:
		// first defers to second.
	case result.LocateStrategy != first.LocateStrategy:
		return schemas.Selector{}, &schemas.IncompatibleStrategiesError{First: first, Second: second}
	}

	overrides.Selector = second.Selector
	spec := overlay(toSpec(result), overrides)
	result = materializeKeeping(spec, result)

	connector := descendantConnector(result.LocateStrategy)
	if isDirectChild {
		connector = childConnector(result.LocateStrategy)
	}
	result.Selector = first.Selector + connector + second.Selector
	return result, nil
}

// toSpec lifts a canonical selector back into a fully populated spec.
func toSpec(sel schemas.Selector) schemas.Spec {
	return schemas.Spec{
		Selector:               sel.Selector,
		LocateStrategy:         sel.LocateStrategy,
		Index:                  ptr(sel.Index),
		Timeout:                ptr(sel.Timeout),
		RetryInterval:          ptr(sel.RetryInterval),
		AbortOnFailure:         ptr(sel.AbortOnFailure),
		SuppressNotFoundErrors: ptr(sel.SuppressNotFoundErrors),
		NeedVisible:            ptr(sel.NeedVisible),
		NeedHighlight:          ptr(sel.NeedHighlight),
		Name:                   sel.Name,
	}
}

// materializeKeeping is materialize for a spec derived from a canonical
// selector: the strategy must stay explicit.
func materializeKeeping(spec schemas.Spec, from schemas.Selector) schemas.Selector {
	out := materialize(spec)
	if !out.LocateStrategy.Explicit() {
		out.LocateStrategy = from.LocateStrategy
	}
	return out
}

// Name renders a selector for messages: "name (body) #i" when the selector
// has a name and "body #i" otherwise.
func Name(sel schemas.Selector, index int) string {
	if sel.Name != "" {
		return fmt.Sprintf("%s (%s) #%d", sel.Name, sel.Selector, index)
	}
	return fmt.Sprintf("%s #%d", sel.Selector, index)
}

const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz"
	alphaNumerics = lowerAlphabet + upperAlphabet + "0123456789"
)

// XPathContainText builds an XPath selector for any element under
// parentPath whose own text contains text. The XPath applies the same
// folding and stripping the matcher would so that "Save draft" can find
// "SAVE-DRAFT".
func XPathContainText(text string, caseless, letterNumberOnly bool, parentPath string) schemas.Selector {
	exp := "text()"
	if caseless {
		exp = fmt.Sprintf("translate(text(), '%s', '%s')", upperAlphabet, lowerAlphabet)
	}
	if letterNumberOnly {
		exp = fmt.Sprintf("translate(%s, translate(%s, '%s', ''), '')", exp, exp, alphaNumerics)
	}
	needle := textmatch.Normalize(text, textmatch.New(
		textmatch.WithCaseless(caseless),
		textmatch.WithLetterNumberOnly(letterNumberOnly),
	))
	return schemas.Selector{
		Selector:       fmt.Sprintf("%s//*[contains(%s, %s)]", parentPath, exp, xpathLiteral(needle)),
		LocateStrategy: schemas.StrategyXPath,
		NeedVisible:    true,
		NeedHighlight:  true,
	}
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
