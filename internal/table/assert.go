package table

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

// AssertRowCount checks the number of body rows.
func (t *Table) AssertRowCount(ctx context.Context, count int) error {
	actual, err := t.RowCount(ctx)
	if err != nil {
		return err
	}
	if actual != count {
		return schemas.NewAssertionError("AssertRowCount", fmt.Sprintf("%s: expected %d rows, found %d", t.root.Selector, count, actual))
	}
	return nil
}

// AssertHeaderExist checks that every name matches some header.
func (t *Table) AssertHeaderExist(ctx context.Context, names []string, headerOpts textmatch.Options) error {
	sel, err := t.SelectorForHeaders()
	if err != nil {
		return err
	}
	sel.NeedVisible = false
	return t.observer.AssertTextsContainArray(ctx, sel, names, headerOpts, interact.WithWaitAfter(0))
}

// AssertCellTextMatch checks the cell of a 1-based row under header. With
// one expected text the cell must match it; with several it must match any
// of them.
func (t *Table) AssertCellTextMatch(ctx context.Context, header string, row int, expect []string, textOpts, headerOpts textmatch.Options) error {
	sel, err := t.SelectorForCell(ctx, header, row, headerOpts)
	if err != nil {
		return err
	}
	return t.assertEachText(ctx, sel, expect, textOpts)
}

// AssertEachTextInColumnMatch checks every cell under header the way
// AssertCellTextMatch checks one.
func (t *Table) AssertEachTextInColumnMatch(ctx context.Context, header string, expect []string, textOpts, headerOpts textmatch.Options) error {
	sel, err := t.SelectorForCellsInColumn(ctx, header, headerOpts)
	if err != nil {
		return err
	}
	return t.assertEachText(ctx, sel, expect, textOpts)
}

func (t *Table) assertEachText(ctx context.Context, sel schemas.Selector, expect []string, opts textmatch.Options) error {
	switch len(expect) {
	case 0:
		return schemas.NewInvalidArgumentError("expect", "at least one expected text is required")
	case 1:
		return t.observer.AssertEachTextMatch(ctx, sel, expect[0], opts)
	}
	return t.observer.AssertEachTextInArray(ctx, sel, expect, opts, interact.WithWaitAfter(0))
}

// AssertEachRowContainsArray checks that every row has, for each item of
// expect, some cell matching it.
func (t *Table) AssertEachRowContainsArray(ctx context.Context, expect []string, opts textmatch.Options) error {
	count, err := t.RowCount(ctx)
	if err != nil {
		return err
	}
	for i := range count {
		sel, err := t.SelectorForCellsInRow(i + 1)
		if err != nil {
			return err
		}
		if err := t.observer.AssertTextsContainArray(ctx, sel, expect, opts, interact.WithWaitAfter(0)); err != nil {
			return err
		}
	}
	return nil
}

// AssertColumnSorted checks the order of the cells under header. Dates are
// compared as dates; order is one of asc, ascending, desc or descending.
// Empty cells are skipped unless emptyValuesLast requires them at the end.
func (t *Table) AssertColumnSorted(ctx context.Context, header, order string, emptyValuesLast bool, headerOpts textmatch.Options) error {
	sel, err := t.SelectorForCellsInColumn(ctx, header, headerOpts)
	if err != nil {
		return err
	}
	return t.observer.AssertTextsSorted(ctx, sel, order, true, emptyValuesLast, interact.WithWaitAfter(0))
}

// rowMatches reports whether actual has every column expected names and
// each of them matches.
func rowMatches(actual, expected Row, opts textmatch.Options) bool {
	for key, exp := range expected {
		act, ok := actual[key]
		if !ok || !textmatch.Match(act, exp, opts) {
			return false
		}
	}
	return true
}

// assignRows pairs actual rows with distinct expected rows they match. It
// grows the pairing along augmenting paths, so a row taken early is moved to
// another expected row whenever that lets a later row match too. The result
// holds, per actual row, the index of its expected row or -1.
func assignRows(actual, expected []Row, opts textmatch.Options) []int {
	candidates := make([][]int, len(actual))
	for i, row := range actual {
		for j, exp := range expected {
			if rowMatches(row, exp, opts) {
				candidates[i] = append(candidates[i], j)
			}
		}
	}

	owner := make([]int, len(expected))
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for _, j := range candidates[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	for i := range actual {
		augment(i, make([]bool, len(expected)))
	}

	assigned := make([]int, len(actual))
	for i := range assigned {
		assigned[i] = -1
	}
	for j, i := range owner {
		if i >= 0 {
			assigned[i] = j
		}
	}
	return assigned
}

// project keeps the columns of row named in keys, for diffs.
func project(rows []Row, keys []string) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		p := make(Row, len(keys))
		for _, k := range keys {
			if v, ok := r[k]; ok {
				p[k] = v
			}
		}
		out[i] = p
	}
	return out
}

func lowerKeys(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		l := make(Row, len(r))
		for k, v := range r {
			l[strings.ToLower(k)] = v
		}
		out[i] = l
	}
	return out
}

// AssertTableMatch compares the body rows with expected. Each expected row
// names only the columns to check, and a row lacking one of them does not
// match. The row counts must agree and every column named by the first
// expected row must exist.
//
// In order the n-th row is compared with the n-th expected row. Orderless,
// each expected row must be matched by a different row; the pairing is the
// largest one possible, so the assertion fails only when no one-to-one
// assignment exists. With headerCaseless the column names are compared in
// lower case.
func (t *Table) AssertTableMatch(ctx context.Context, expected []Row, opts textmatch.Options, orderless, headerCaseless bool) error {
	if err := t.AssertRowCount(ctx, len(expected)); err != nil {
		return err
	}
	if len(expected) == 0 {
		return nil
	}
	keys := make([]string, 0, len(expected[0]))
	for k := range expected[0] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if err := t.AssertHeaderExist(ctx, keys, textmatch.EqualCaseless); err != nil {
		return err
	}

	want := expected
	if headerCaseless {
		want = lowerKeys(expected)
		for i, k := range keys {
			keys[i] = strings.ToLower(k)
		}
	}

	var actual []Row
	err := t.ForEachRowHash(ctx, func(_ context.Context, row Row, _ int) error {
		actual = append(actual, row)
		return nil
	}, headerCaseless)
	if err != nil {
		return err
	}

	if !orderless {
		for i, row := range actual {
			colKeys := make([]string, 0, len(want[i]))
			for k := range want[i] {
				colKeys = append(colKeys, k)
			}
			slices.Sort(colKeys)
			for _, k := range colKeys {
				act, ok := row[k]
				if !ok {
					return schemas.NewAssertionError("AssertTableMatch", fmt.Sprintf("row %d has no column %s", i+1, k))
				}
				t.logger.Debug("Comparing cell.", zap.Int("row", i+1), zap.String("column", k), zap.String("actual", act), zap.String("expected", want[i][k]))
				if err := textmatch.AssertMatch(act, want[i][k], opts, fmt.Sprintf("AssertTableMatch: row %d column %s", i+1, k)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	assigned := assignRows(actual, want, opts)
	used := make([]bool, len(want))
	stray := -1
	for i, j := range assigned {
		if j >= 0 {
			used[j] = true
		} else if stray < 0 {
			stray = i
		}
	}
	if stray < 0 {
		return nil
	}
	var left []Row
	for j, u := range used {
		if !u {
			left = append(left, want[j])
		}
	}
	e := schemas.NewAssertionError("AssertTableMatch", fmt.Sprintf("row %d %v did not match any expected row; unmatched expected rows: %v", stray+1, actual[stray], left))
	e.Detail = cmp.Diff(project(want, keys), project(actual, keys))
	return e
}
