package interact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/retry"
	"github.com/xkilldash9x/crow/internal/selector"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

// Observer reads state from the page and asserts on it. Every failed check
// is reported as a *schemas.AssertionError.
type Observer struct {
	runner      *Runner
	retry       *retry.Engine
	policy      retry.Policy
	downloadDir string
	logger      *zap.Logger
}

// NewObserver creates an observer. policy is the budget for retried
// assertions such as AssertEachTextMatch.
func NewObserver(runner *Runner, engine *retry.Engine, policy retry.Policy, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{runner: runner, retry: engine, policy: policy, logger: logger.Named("observer")}
}

// WithPage returns a copy of the observer resolving symbols against page.
func (o *Observer) WithPage(page *schemas.PageElementMap) *Observer {
	cp := *o
	cp.runner = o.runner.WithPage(page)
	return &cp
}

// WithDownloadDir returns a copy of the observer whose file assertions look
// in dir when no folder is given.
func (o *Observer) WithDownloadDir(dir string) *Observer {
	cp := *o
	cp.downloadDir = dir
	return &cp
}

// Runner returns the runner the observer reads through.
func (o *Observer) Runner() *Runner { return o.runner }

func (o *Observer) driver() schemas.Driver { return o.runner.driver }

// noWait is the call option of every read: reads never pause afterwards.
var noWait = WithWaitAfter(0)

func fail(assertion string, format string, args ...any) *schemas.AssertionError {
	return schemas.NewAssertionError(assertion, fmt.Sprintf(format, args...))
}

// -- Reads --

func (o *Observer) CurrentURL(ctx context.Context) (string, error) {
	o.runner.Annotate(ctx, "Getting URL of the current page")
	return o.driver().CurrentURL(ctx)
}

// check resolves in for a one-off presence or visibility check that never
// reports not-found as an error.
func (o *Observer) check(ctx context.Context, in schemas.SelectorInput, timeout time.Duration, visible bool) (bool, error) {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return false, err
	}
	sel.SuppressNotFoundErrors = true
	if timeout > 0 {
		sel.Timeout = timeout
		wait := o.driver().WaitForElementPresent
		if visible {
			wait = o.driver().WaitForElementVisible
		}
		err := wait(ctx, sel)
		if errors.Is(err, schemas.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
	if visible {
		return o.driver().IsVisible(ctx, sel)
	}
	return o.driver().IsPresent(ctx, sel)
}

// IsElementPresent reports whether in matches anything, waiting up to
// timeout when it is positive.
func (o *Observer) IsElementPresent(ctx context.Context, in schemas.SelectorInput, timeout time.Duration) (bool, error) {
	o.annotateSelector(ctx, "Checking if element exist", in)
	return o.check(ctx, in, timeout, false)
}

// IsElementVisible reports whether in matches a visible element, waiting up
// to timeout when it is positive.
func (o *Observer) IsElementVisible(ctx context.Context, in schemas.SelectorInput, timeout time.Duration) (bool, error) {
	o.annotateSelector(ctx, "Checking if element visible", in)
	return o.check(ctx, in, timeout, true)
}

func (o *Observer) annotateSelector(ctx context.Context, what string, in schemas.SelectorInput) {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return
	}
	o.runner.Annotate(ctx, fmt.Sprintf(`%s: "%s"`, what, selector.Name(sel, 1)))
}

func (o *Observer) ElementsCount(ctx context.Context, in schemas.SelectorInput) (int, error) {
	return All(ctx, o.runner, in, "Get the count of the elements", func(_ context.Context, els []schemas.Element) (int, error) {
		return len(els), nil
	}, noWait)
}

// ElementIndexByText returns the 0-based index of the first match whose text
// matches text. When nothing matches it returns -1, with a not-found error
// if failIfMissing is set.
func (o *Observer) ElementIndexByText(ctx context.Context, in schemas.SelectorInput, text string, opts textmatch.Options, failIfMissing bool) (int, error) {
	texts, err := o.AllTexts(ctx, in)
	if err != nil {
		return -1, err
	}
	for i, t := range texts {
		if textmatch.Match(t, text, opts) {
			return i, nil
		}
	}
	if !failIfMissing {
		return -1, nil
	}
	sel, _ := o.runner.Resolve(in)
	return -1, schemas.NewNotFoundError(sel, false, fmt.Errorf("no element has text matching %q", text))
}

func (o *Observer) AllTexts(ctx context.Context, in schemas.SelectorInput) ([]string, error) {
	return All(ctx, o.runner, in, "Get the texts as an array", func(ctx context.Context, els []schemas.Element) ([]string, error) {
		return textsOf(ctx, els)
	}, noWait)
}

func (o *Observer) AllTypedValues(ctx context.Context, in schemas.SelectorInput) ([]string, error) {
	return All(ctx, o.runner, in, "Get the input text as an array", func(ctx context.Context, els []schemas.Element) ([]string, error) {
		values := make([]string, 0, len(els))
		for _, el := range els {
			v, err := el.Value(ctx)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	}, noWait)
}

// Attribute reads an attribute of the first match.
func (o *Observer) Attribute(ctx context.Context, in schemas.SelectorInput, name string) (string, bool, error) {
	type attr struct {
		value string
		ok    bool
	}
	a, err := First(ctx, o.runner, in, fmt.Sprintf(`Get the value of attribute "%s"`, name), func(ctx context.Context, el schemas.Element) (attr, error) {
		if el == nil {
			return attr{}, nil
		}
		v, ok, err := el.Attribute(ctx, name)
		return attr{v, ok}, err
	}, noWait)
	return a.value, a.ok, err
}

// WaitForTexts re-reads the texts of in until cond accepts them. cond
// receives the texts and the 0-based try number.
func (o *Observer) WaitForTexts(ctx context.Context, in schemas.SelectorInput, cond func(texts []string, try int) (bool, error), maxTry int, interval time.Duration) error {
	try := 0
	return o.retry.Do(ctx, "wait for texts", o.policy.WithAttempts(maxTry, interval), func(ctx context.Context) error {
		defer func() { try++ }()
		texts, err := o.AllTexts(ctx, in)
		if err != nil {
			return err
		}
		ok, err := cond(texts, try)
		o.logger.Debug("Checked texts.", zap.Int("try", try), zap.Strings("texts", texts), zap.Bool("matched", ok))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("texts %q did not satisfy the condition", texts)
		}
		return nil
	})
}

// -- Assertions --

// AssertVisible waits for every match of in to be visible.
func (o *Observer) AssertVisible(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	return o.runner.ForEach(ctx, in, "Assert visible", nil, o.waitOpts(opts)...)
}

func (o *Observer) waitOpts(opts []CallOption) []CallOption {
	return append([]CallOption{noWait}, opts...)
}

func (o *Observer) AssertElementsCount(ctx context.Context, in schemas.SelectorInput, count int, opts ...CallOption) error {
	return o.runner.ForAll(ctx, in, fmt.Sprintf("Assert count is %d", count), func(_ context.Context, els []schemas.Element) error {
		if len(els) != count {
			sel, _ := o.runner.Resolve(in)
			return fail("AssertElementsCount", "%s: expected %d elements, found %d", selector.Name(sel, 1), count, len(els))
		}
		return nil
	}, o.waitOpts(opts)...)
}

func (o *Observer) AssertNotPresent(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	o.runner.Annotate(ctx, fmt.Sprintf(`Assert not present: "%s"`, selector.Name(sel, 1)))
	sel.SuppressNotFoundErrors = true
	present, err := o.driver().IsPresent(ctx, sel)
	if err != nil {
		return err
	}
	if present {
		return fail("AssertNotPresent", "%s is present", selector.Name(sel, 1))
	}
	o.runner.Wait(ctx, "Assert not present", o.runner.options(0, opts).waitAfter)
	return nil
}

func (o *Observer) AssertNotVisible(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	o.runner.Annotate(ctx, fmt.Sprintf(`Assert not visible: "%s"`, selector.Name(sel, 1)))
	sel.SuppressNotFoundErrors = true
	visible, err := o.driver().IsVisible(ctx, sel)
	if err != nil {
		return err
	}
	if visible {
		return fail("AssertNotVisible", "%s is visible", selector.Name(sel, 1))
	}
	o.runner.Wait(ctx, "Assert not visible", o.runner.options(0, opts).waitAfter)
	return nil
}

// AssertDisabled checks every match. Form controls are disabled through the
// disabled attribute; anything else through pointer-events: none.
func (o *Observer) AssertDisabled(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForEach(ctx, sel, "Assert disabled", func(ctx context.Context, el schemas.Element, i int) error {
		disabled, _, err := el.Attribute(ctx, "disabled")
		if err != nil {
			return err
		}
		if disabled == "true" {
			return nil
		}
		pointer, err := el.CSSValue(ctx, "pointer-events")
		if err != nil {
			return err
		}
		if pointer != "none" {
			return fail("AssertDisabled", "%s is enabled", selector.Name(sel, i+1))
		}
		return nil
	}, o.waitOpts(opts)...)
}

func (o *Observer) assertSelected(ctx context.Context, in schemas.SelectorInput, want bool, opts []CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	assertion, info := "AssertSelected", "Assert selected"
	if !want {
		assertion, info = "AssertNotSelected", "Assert not selected"
	}
	return o.runner.ForFirst(ctx, sel, info, func(ctx context.Context, _ schemas.Element) error {
		selected, err := o.driver().IsSelected(ctx, sel)
		if err != nil {
			return err
		}
		if selected != want {
			return fail(assertion, "%s: expected selected to be %t", selector.Name(sel, 1), want)
		}
		return nil
	}, o.waitOpts(opts)...)
}

func (o *Observer) AssertSelected(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	return o.assertSelected(ctx, in, true, opts)
}

func (o *Observer) AssertNotSelected(ctx context.Context, in schemas.SelectorInput, opts ...CallOption) error {
	return o.assertSelected(ctx, in, false, opts)
}

// AssertEachTextMatch checks the text of every match, retrying the whole
// check under the observer's policy while the page settles.
func (o *Observer) AssertEachTextMatch(ctx context.Context, in schemas.SelectorInput, text string, opts textmatch.Options) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	info := fmt.Sprintf(`Assert text matches "%s"`, text)
	return o.retry.Do(ctx, "AssertEachTextMatch expect: "+text, o.policy, func(ctx context.Context) error {
		return o.runner.ForEachText(ctx, sel, info, func(_ context.Context, uiText string, i int) error {
			return textmatch.AssertMatch(uiText, text, opts, "AssertEachTextMatch: "+selector.Name(sel, i+1))
		}, noWait)
	})
}

func (o *Observer) AssertEachTypedValueMatch(ctx context.Context, in schemas.SelectorInput, text string, opts textmatch.Options, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForEach(ctx, sel, fmt.Sprintf(`Assert typed value matches "%s"`, text), func(ctx context.Context, el schemas.Element, i int) error {
		v, err := el.Value(ctx)
		if err != nil {
			return err
		}
		return textmatch.AssertMatch(v, text, opts, "AssertEachTypedValueMatch: "+selector.Name(sel, i+1))
	}, o.waitOpts(callOpts)...)
}

func (o *Observer) AssertAnyTextMatch(ctx context.Context, in schemas.SelectorInput, text string, opts textmatch.Options, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForAllTexts(ctx, sel, fmt.Sprintf(`Assert any text match "%s"`, text), func(_ context.Context, texts []string) error {
		if !textmatch.InArray(text, texts, opts) {
			return fail("AssertAnyTextMatch", "%s: no text matches %q in %q", selector.Name(sel, 1), text, texts)
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

// AssertEachTextNotContain compares under the default normalization, which
// ignores case and special characters.
func (o *Observer) AssertEachTextNotContain(ctx context.Context, in schemas.SelectorInput, text string, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	norm := textmatch.EqualCaseless
	exp := textmatch.Normalize(text, norm)
	info := fmt.Sprintf(`Assert text not to contain "%s", ignoring case and special chars`, text)
	return o.runner.ForEachText(ctx, sel, info, func(_ context.Context, uiText string, i int) error {
		if act := textmatch.Normalize(uiText, norm); strings.Contains(act, exp) {
			return fail("AssertEachTextNotContain", "%s: %q contains %q", selector.Name(sel, i+1), act, exp)
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

func (o *Observer) AssertEachTextInArray(ctx context.Context, in schemas.SelectorInput, list []string, opts textmatch.Options, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForEachText(ctx, sel, fmt.Sprintf("Assert text is in array %q", list), func(_ context.Context, uiText string, i int) error {
		for _, exp := range list {
			if textmatch.Match(uiText, exp, opts) {
				return nil
			}
		}
		return fail("AssertEachTextInArray", "%s: %q matches nothing in %q", selector.Name(sel, i+1), uiText, list)
	}, o.waitOpts(callOpts)...)
}

// AssertEachTextContainsArray checks that every text contains every item of
// list. With matchOrder the items must appear verbatim and in list order;
// otherwise each is matched with the Contain preset.
func (o *Observer) AssertEachTextContainsArray(ctx context.Context, in schemas.SelectorInput, list []string, matchOrder bool, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	info := fmt.Sprintf("Assert text contains every element in array %q", list)
	return o.runner.ForEachText(ctx, sel, info, func(_ context.Context, uiText string, i int) error {
		if !containsAll(uiText, list, matchOrder) {
			return fail("AssertEachTextContainsArray", "%s: %q does not contain %q", selector.Name(sel, i+1), uiText, list)
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

func containsAll(text string, list []string, inOrder bool) bool {
	if !inOrder {
		for _, exp := range list {
			if !textmatch.Match(text, exp, textmatch.Contain) {
				return false
			}
		}
		return true
	}
	rest := text
	for _, exp := range list {
		i := strings.Index(rest, exp)
		if i < 0 {
			return false
		}
		rest = rest[i+len(exp):]
	}
	return true
}

// parseInteger reads UI numbers such as "1,024".
func parseInteger(text string) (float64, error) {
	n, ok := textmatch.ParseNumber(text)
	if !ok {
		return 0, schemas.NewInvalidArgumentError("text", fmt.Sprintf("%q is not a number", text))
	}
	return n, nil
}

func (o *Observer) assertEachNumber(ctx context.Context, in schemas.SelectorInput, assertion, info string, check func(float64) bool, callOpts []CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForEachText(ctx, sel, info, func(_ context.Context, uiText string, i int) error {
		n, err := parseInteger(uiText)
		if err != nil {
			return fmt.Errorf("%s: %w", selector.Name(sel, i+1), err)
		}
		if !check(n) {
			return fail(assertion, "%s: unexpected value %v", selector.Name(sel, i+1), n)
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

func (o *Observer) AssertEachTextIntegerGreaterThan(ctx context.Context, in schemas.SelectorInput, floor int, callOpts ...CallOption) error {
	return o.assertEachNumber(ctx, in, "AssertEachTextIntegerGreaterThan",
		fmt.Sprintf("Assert text integer is greater than %d", floor),
		func(n float64) bool { return n > float64(floor) }, callOpts)
}

func (o *Observer) AssertEachTextIntegerEqual(ctx context.Context, in schemas.SelectorInput, want int, callOpts ...CallOption) error {
	return o.assertEachNumber(ctx, in, "AssertEachTextIntegerEqual",
		fmt.Sprintf("Assert text integer is equal to %d", want),
		func(n float64) bool { return n == float64(want) }, callOpts)
}

// AssertTextsMatchArray checks the texts of all matches against list. The
// counts must agree first. Orderless consumes each expected item at most
// once.
func (o *Observer) AssertTextsMatchArray(ctx context.Context, in schemas.SelectorInput, list []string, opts textmatch.Options, orderless bool, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForAllTexts(ctx, sel, fmt.Sprintf("Assert the texts match array %q", list), func(_ context.Context, texts []string) error {
		if len(texts) != len(list) {
			return fail("AssertTextsMatchArray", "%s: expected %d texts, found %d", selector.Name(sel, 1), len(list), len(texts))
		}
		if !orderless {
			for i, t := range texts {
				if err := textmatch.AssertMatch(t, list[i], opts, "AssertTextsMatchArray: "+selector.Name(sel, i+1)); err != nil {
					return err
				}
			}
			return nil
		}
		unmatched := slices.Clone(list)
		for _, t := range texts {
			j := slices.IndexFunc(unmatched, func(exp string) bool { return textmatch.Match(t, exp, opts) })
			if j < 0 {
				return fail("AssertTextsMatchArray", "%s: text %q did not match any expected text in %q", selector.Name(sel, 1), t, list)
			}
			unmatched = slices.Delete(unmatched, j, j+1)
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

func (o *Observer) AssertTextsContainArray(ctx context.Context, in schemas.SelectorInput, list []string, opts textmatch.Options, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	return o.runner.ForAllTexts(ctx, sel, fmt.Sprintf("Assert if the texts contains array %q", list), func(_ context.Context, texts []string) error {
		for i, exp := range list {
			if !textmatch.InArray(exp, texts, opts) {
				return fail("AssertTextsContainArray", "%s: texts %q do not contain %q", selector.Name(sel, i+1), texts, exp)
			}
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

// SortOrder is the direction checked by AssertTextsSorted.
type SortOrder string

const (
	Ascending  SortOrder = "ascending"
	Descending SortOrder = "descending"
)

// ParseSortOrder accepts asc, ascending, desc and descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", schemas.NewInvalidArgumentError("order", fmt.Sprintf("%q is not one of asc, ascending, desc, descending", s))
}

var parenthetical = regexp.MustCompile(`^([^()]+)\s*(\([^)]*\))?`)

// sortKey is one text prepared for ordering: the parenthetical suffix is
// stripped and, when requested, dates compare by time.
type sortKey struct {
	text   string
	millis int64
	isDate bool
}

func (k sortKey) String() string {
	if k.isDate {
		return strconv.FormatInt(k.millis, 10)
	}
	return k.text
}

func sortKeys(texts []string, parseDate, keepEmpty bool) []sortKey {
	keys := make([]sortKey, 0, len(texts))
	for _, t := range texts {
		if m := parenthetical.FindStringSubmatch(t); m != nil {
			t = strings.TrimSpace(m[1])
		}
		if t == "" {
			if keepEmpty {
				keys = append(keys, sortKey{})
			}
			continue
		}
		k := sortKey{text: t}
		if parseDate {
			if d, ok := textmatch.ParseDate(t); ok {
				k.millis, k.isDate = d.UnixMilli(), true
			}
		}
		keys = append(keys, k)
	}
	return keys
}

func compareKeys(a, b sortKey) int {
	if a.isDate && b.isDate {
		switch {
		case a.millis < b.millis:
			return -1
		case a.millis > b.millis:
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

// Sorted reports whether texts are in order, ignoring parenthetical
// suffixes such as "Alice (admin)". Empty texts are skipped unless
// emptyValuesLast is set, in which case they must all come after the other
// texts whatever the order. It returns the texts as read and as they should
// be.
func Sorted(texts []string, order SortOrder, parseDate, emptyValuesLast bool) (ok bool, actual, expected []string) {
	keys := sortKeys(texts, parseDate, emptyValuesLast)
	want := make([]sortKey, 0, len(keys))
	var empty []sortKey
	for _, k := range keys {
		if k.text == "" {
			empty = append(empty, k)
		} else {
			want = append(want, k)
		}
	}
	slices.SortStableFunc(want, compareKeys)
	if order == Descending {
		slices.Reverse(want)
	}
	want = append(want, empty...)

	for _, k := range keys {
		actual = append(actual, k.String())
	}
	for _, k := range want {
		expected = append(expected, k.String())
	}
	return slices.Equal(actual, expected), actual, expected
}

// AssertTextsSorted checks the order of the texts of every match. See Sorted
// for how empty texts are treated.
func (o *Observer) AssertTextsSorted(ctx context.Context, in schemas.SelectorInput, order string, parseDate, emptyValuesLast bool, callOpts ...CallOption) error {
	dir, err := ParseSortOrder(order)
	if err != nil {
		return err
	}
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	info := fmt.Sprintf(`Assert if the texts are sorted in the order of "%s"`, order)
	return o.runner.ForAllTexts(ctx, sel, info, func(_ context.Context, texts []string) error {
		ok, actual, expected := Sorted(texts, dir, parseDate, emptyValuesLast)
		if ok {
			return nil
		}
		e := fail("AssertTextsSorted", "%s: texts are not sorted %s", selector.Name(sel, 1), dir)
		e.Detail = cmp.Diff(expected, actual)
		return e
	}, o.waitOpts(callOpts)...)
}

// AssertEachTextBetweenDates checks that every text is a date within
// [from, to].
func (o *Observer) AssertEachTextBetweenDates(ctx context.Context, in schemas.SelectorInput, from, to time.Time, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	info := fmt.Sprintf(`Assert date is between "%s" and "%s"`, from.Format(time.DateOnly), to.Format(time.DateOnly))
	return o.runner.ForEachText(ctx, sel, info, func(_ context.Context, uiText string, i int) error {
		d, ok := textmatch.ParseDate(uiText)
		if !ok {
			return fail("AssertEachTextBetweenDates", "%s: %q is not a date", selector.Name(sel, i+1), uiText)
		}
		if d.Before(from) || d.After(to) {
			return fail("AssertEachTextBetweenDates", "%s: %s is outside [%s, %s]", selector.Name(sel, i+1),
				d.Format(time.RFC3339), from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		return nil
	}, o.waitOpts(callOpts)...)
}

// AssertEachElementAttributeMatch compares an attribute of every match. A
// missing attribute reads as the empty string.
func (o *Observer) AssertEachElementAttributeMatch(ctx context.Context, in schemas.SelectorInput, attribute, value string, opts textmatch.Options, callOpts ...CallOption) error {
	sel, err := o.runner.Resolve(in)
	if err != nil {
		return err
	}
	info := fmt.Sprintf("Assert element attribute %s match %s", attribute, value)
	return o.runner.ForEach(ctx, sel, info, func(ctx context.Context, el schemas.Element, i int) error {
		v, _, err := el.Attribute(ctx, attribute)
		if err != nil {
			return err
		}
		o.logger.Debug("Comparing attribute.",
			zap.Stringer("selector", sel),
			zap.String("attribute", attribute),
			zap.String("expected", value),
			zap.String("actual", v))
		return textmatch.AssertMatch(v, value, opts, "AssertEachElementAttributeMatch: "+selector.Name(sel, i+1))
	}, o.waitOpts(callOpts)...)
}

// AssertFileExists waits for a file whose name matches name to appear in
// folder, typically a download. An empty folder means the download
// directory.
func (o *Observer) AssertFileExists(ctx context.Context, folder, name string, opts textmatch.Options, retries int, interval time.Duration) error {
	if folder == "" {
		folder = o.downloadDir
	}
	if folder == "" {
		return schemas.NewInvalidArgumentError("folder", "no folder given and no download directory configured")
	}
	err := o.retry.Do(ctx, "wait for file "+name, o.policy.WithAttempts(retries, interval), func(ctx context.Context) error {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if textmatch.Match(e.Name(), name, opts) {
				o.logger.Debug("Found file.", zap.String("folder", folder), zap.String("file", e.Name()))
				return nil
			}
		}
		return fmt.Errorf("no file in %s matches %q", folder, name)
	})
	if err == nil || errors.Is(err, schemas.ErrInvalidArgument) {
		return err
	}
	e := fail("AssertFileExists", "file [%s, %s] does not exist", folder, name)
	e.Detail = err.Error()
	return e
}

// urlContainsAll reports whether url contains every part under Contain.
func urlContainsAll(url string, parts []string) bool {
	for _, p := range parts {
		if !textmatch.Match(url, p, textmatch.Contain) {
			return false
		}
	}
	return true
}

// AssertAnyWindowURLContains looks through every window for one whose URL
// contains all parts. The original window is current again afterwards.
func (o *Observer) AssertAnyWindowURLContains(ctx context.Context, parts []string, maxTry int) error {
	original, err := o.driver().CurrentWindow(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := o.driver().SwitchToWindow(context.WithoutCancel(ctx), original); err != nil {
			o.logger.Warn("Failed to switch back to the original window.", zap.String("window", original), zap.Error(err))
		}
	}()

	desc := "AssertAnyWindowURLContains " + strings.Join(parts, ", ")
	err = o.retry.Do(ctx, desc, o.policy.WithAttempts(maxTry, o.policy.Interval), func(ctx context.Context) error {
		handles, err := o.driver().WindowHandles(ctx)
		if err != nil {
			return err
		}
		for i, h := range handles {
			if err := o.driver().SwitchToWindow(ctx, h); err != nil {
				return err
			}
			url, err := o.driver().CurrentURL(ctx)
			if err != nil {
				return err
			}
			o.logger.Debug("Checking window.", zap.Int("window", i), zap.String("handle", h), zap.String("url", url))
			if urlContainsAll(url, parts) {
				return nil
			}
		}
		return fmt.Errorf("no window URL contains %s", strings.Join(parts, ", "))
	})
	if err == nil || errors.Is(err, schemas.ErrInvalidArgument) {
		return err
	}
	e := fail("AssertAnyWindowURLContains", "cannot find a window whose URL contains %s", strings.Join(parts, ", "))
	e.Detail = err.Error()
	return e
}
