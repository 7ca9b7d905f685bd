package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/browser/snapshot"
	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/retry"
	"github.com/xkilldash9x/crow/internal/selector"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

const fixture = `<!DOCTYPE html>
<html><body>
<table id="orders">
  <thead><tr><th>Name</th><th>Status</th><th>Date</th></tr></thead>
  <tbody>
    <tr><td>Alice</td><td>Active</td><td>2024-01-05</td></tr>
    <tr><td>Bob</td><td>Inactive</td><td>2024-02-10</td></tr>
    <tr><td>Carol</td><td>Active</td><td>2024-03-15</td></tr>
  </tbody>
</table>
<table id="pair">
  <thead><tr><th>A</th></tr></thead>
  <tbody><tr><td>2</td></tr><tr><td>1</td></tr></tbody>
</table>
<table id="actions">
  <thead><tr><th>Name</th><th>Action</th></tr></thead>
  <tbody>
    <tr><td>Alice</td><td><button class="edit">Edit</button></td></tr>
    <tr><td>Bob</td><td><button class="edit">Edit</button></td></tr>
  </tbody>
</table>
<table id="empty">
  <thead><tr><th>Name</th></tr></thead>
  <tbody></tbody>
</table>
<table id="stock">
  <thead><tr><th>Item</th><th>Restock</th><th>Note</th></tr></thead>
  <tbody>
    <tr><td>Bolts</td><td>2024-01-01</td><td>bulk</td></tr>
    <tr><td>Nuts</td><td></td><td>crate</td></tr>
    <tr><td>Pins</td><td>2024-02-01</td><td></td></tr>
  </tbody>
</table>
</body></html>`

var ctx = context.Background()

func newObserver(t *testing.T) (*snapshot.Driver, *interact.Observer) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	d, err := snapshot.FromHTML(logger, "https://shop.test/orders", fixture)
	require.NoError(t, err)
	resolver, err := selector.NewResolver(logger, 16)
	require.NoError(t, err)
	runner := interact.NewRunner(d, resolver, config.InteractionConfig{}, logger)
	engine := retry.NewEngine(logger, retry.WithSleeper(d))
	return d, interact.NewObserver(runner, engine, retry.NewDefaultPolicy().WithAttempts(2, 0), logger)
}

func newTable(t *testing.T, root string) *Table {
	t.Helper()
	_, o := newObserver(t)
	tbl, err := New(o, schemas.Raw(root), zaptest.NewLogger(t))
	require.NoError(t, err)
	return tbl
}

func TestHeaders(t *testing.T) {
	tbl := newTable(t, "#orders")

	headers, err := tbl.Headers(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Status", "Date"}, headers)

	headers, err = tbl.Headers(ctx, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "status", "date"}, headers)

	// The lowercase copy must not leak into the cache.
	headers, err = tbl.Headers(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "Name", headers[0])
}

func TestColumnIndexByHeader(t *testing.T) {
	tbl := newTable(t, "#orders")

	col, err := tbl.ColumnIndexByHeader(ctx, "STATUS", textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, 2, col)

	_, err = tbl.ColumnIndexByHeader(ctx, "status", textmatch.ExactEqual)
	assert.ErrorIs(t, err, schemas.ErrNotFound)

	_, err = tbl.ColumnIndexByHeader(ctx, "Total", textmatch.EqualCaseless)
	assert.ErrorIs(t, err, schemas.ErrNotFound)
}

func TestRowHash(t *testing.T) {
	tbl := newTable(t, "#orders")

	row, err := tbl.RowHash(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, Row{"Name": "Alice", "Status": "Active", "Date": "2024-01-05"}, row)

	row, err = tbl.RowHash(ctx, 2, true)
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "Bob", "status": "Inactive", "date": "2024-02-10"}, row)

	_, err = tbl.RowHash(ctx, 0, false)
	assert.ErrorIs(t, err, schemas.ErrInvalidArgument)
}

func TestRowsAndData(t *testing.T) {
	tbl := newTable(t, "#orders")

	count, err := tbl.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	data, err := tbl.TableData(ctx)
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, "Carol", data[2]["Name"])

	names, err := tbl.ColumnTexts(ctx, "name", textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)

	empty := newTable(t, "#empty")
	count, err = empty.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	data, err = empty.TableData(ctx)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFindRow(t *testing.T) {
	tbl := newTable(t, "#orders")

	row, err := tbl.FindRowByText(ctx, []string{"bob", "inactive"}, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	row, err = tbl.FindRowByText(ctx, []string{"alice", "inactive"}, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Zero(t, row)

	row, err = tbl.FindRowByTextInColumn(ctx, "Status", "active", textmatch.EqualCaseless, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, 1, row)

	row, err = tbl.FindRowByTextInColumn(ctx, "Status", "Inactive", textmatch.Equal, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, 2, row)
}

func TestIteration(t *testing.T) {
	tbl := newTable(t, "#orders")

	var statuses []string
	err := tbl.ForEachTextInColumn(ctx, "status", func(_ context.Context, text string, i int) error {
		statuses = append(statuses, text)
		return nil
	}, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, []string{"Active", "Inactive", "Active"}, statuses)

	var indexes []int
	err = tbl.ForEachRowHash(ctx, func(_ context.Context, row Row, i int) error {
		indexes = append(indexes, i)
		assert.Contains(t, row, "date")
		return nil
	}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestAssertTableMatch(t *testing.T) {
	t.Run("OrderlessSucceedsWhereOrderedFails", func(t *testing.T) {
		tbl := newTable(t, "#pair")
		expected := []Row{{"A": "1"}, {"A": "2"}}

		err := tbl.AssertTableMatch(ctx, expected, textmatch.Equal, false, true)
		assert.ErrorIs(t, err, schemas.ErrAssertion)

		assert.NoError(t, tbl.AssertTableMatch(ctx, expected, textmatch.Equal, true, true))
	})

	t.Run("SubsetOfColumns", func(t *testing.T) {
		tbl := newTable(t, "#orders")
		expected := []Row{
			{"name": "alice", "Status": "active"},
			{"name": "bob", "Status": "inactive"},
			{"name": "carol", "Status": "active"},
		}
		assert.NoError(t, tbl.AssertTableMatch(ctx, expected, textmatch.EqualCaseless, false, true))
	})

	t.Run("OrderlessReportsDiff", func(t *testing.T) {
		tbl := newTable(t, "#pair")
		err := tbl.AssertTableMatch(ctx, []Row{{"A": "1"}, {"A": "3"}}, textmatch.Equal, true, true)
		var assertion *schemas.AssertionError
		require.ErrorAs(t, err, &assertion)
		assert.Contains(t, assertion.Message, "did not match any expected row")
		assert.NotEmpty(t, assertion.Detail)
	})

	t.Run("OrderlessFindsAssignmentGreedyMisses", func(t *testing.T) {
		tbl := newTable(t, "#pair")
		// Row "2" also matches the empty expectation; it must leave it to row "1".
		assert.NoError(t, tbl.AssertTableMatch(ctx, []Row{{"A": ""}, {"A": "2"}}, textmatch.Contain, true, false))
	})

	t.Run("MissingColumnDoesNotMatch", func(t *testing.T) {
		tbl := newTable(t, "#orders")
		expected := []Row{{"Name": "Alice"}, {"Name": "Bob"}, {"Total": "9"}}

		err := tbl.AssertTableMatch(ctx, expected, textmatch.Equal, true, false)
		assert.ErrorIs(t, err, schemas.ErrAssertion)
		assert.ErrorContains(t, err, "unmatched expected rows: [map[Total:9]]")

		err = tbl.AssertTableMatch(ctx, expected, textmatch.Equal, false, false)
		assert.ErrorIs(t, err, schemas.ErrAssertion)
		assert.ErrorContains(t, err, "row 3 has no column Total")
	})

	t.Run("RowCountMismatch", func(t *testing.T) {
		tbl := newTable(t, "#orders")
		err := tbl.AssertTableMatch(ctx, []Row{{"Name": "Alice"}}, textmatch.Equal, true, true)
		assert.ErrorIs(t, err, schemas.ErrAssertion)
		assert.ErrorContains(t, err, "expected 1 rows, found 3")
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		tbl := newTable(t, "#pair")
		err := tbl.AssertTableMatch(ctx, []Row{{"B": "1"}, {"B": "2"}}, textmatch.Equal, true, true)
		assert.ErrorIs(t, err, schemas.ErrAssertion)
	})
}

func TestAssignRows(t *testing.T) {
	actual := []Row{{"A": "x1"}, {"A": "x2"}, {"A": "y"}}

	assigned := assignRows(actual, []Row{{"A": "x"}, {"A": "x2"}, {"A": "y"}}, textmatch.Contain)
	assert.Equal(t, []int{0, 1, 2}, assigned)

	// The first two rows compete for the one expectation both match.
	assigned = assignRows(actual, []Row{{"A": "x"}, {"A": "y"}, {"A": "z"}}, textmatch.Contain)
	assert.Equal(t, 1, assigned[2])
	assert.ElementsMatch(t, []int{0, -1}, assigned[:2])

	assert.Equal(t, []int{-1}, assignRows([]Row{{"B": "1"}}, []Row{{"A": ""}}, textmatch.Contain))
}

func TestColumnAndRowAssertions(t *testing.T) {
	tbl := newTable(t, "#orders")

	tests := []struct {
		name string
		run  func() error
		pass bool
	}{
		{"HeaderExist", func() error { return tbl.AssertHeaderExist(ctx, []string{"date", "name"}, textmatch.EqualCaseless) }, true},
		{"HeaderMissing", func() error { return tbl.AssertHeaderExist(ctx, []string{"total"}, textmatch.EqualCaseless) }, false},
		{"CellMatch", func() error {
			return tbl.AssertCellTextMatch(ctx, "Status", 2, []string{"inactive"}, textmatch.EqualCaseless, textmatch.EqualCaseless)
		}, true},
		{"CellInArrayFail", func() error {
			return tbl.AssertCellTextMatch(ctx, "Status", 2, []string{"Active", "Pending"}, textmatch.Equal, textmatch.EqualCaseless)
		}, false},
		{"ColumnInArray", func() error {
			return tbl.AssertEachTextInColumnMatch(ctx, "status", []string{"active", "inactive"}, textmatch.EqualCaseless, textmatch.EqualCaseless)
		}, true},
		{"ColumnMatchFail", func() error {
			return tbl.AssertEachTextInColumnMatch(ctx, "status", []string{"active"}, textmatch.EqualCaseless, textmatch.EqualCaseless)
		}, false},
		{"RowsContain", func() error { return tbl.AssertEachRowContainsArray(ctx, []string{"2024"}, textmatch.Contain) }, true},
		{"RowsContainFail", func() error { return tbl.AssertEachRowContainsArray(ctx, []string{"active"}, textmatch.EqualCaseless) }, false},
		{"DateAscending", func() error { return tbl.AssertColumnSorted(ctx, "Date", "asc", false, textmatch.EqualCaseless) }, true},
		{"NameDescending", func() error { return tbl.AssertColumnSorted(ctx, "Name", "desc", false, textmatch.EqualCaseless) }, false},
		{"RowCount", func() error { return tbl.AssertRowCount(ctx, 3) }, true},
		{"RowCountFail", func() error { return tbl.AssertRowCount(ctx, 2) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.pass {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, schemas.ErrAssertion)
			}
		})
	}

	err := tbl.AssertCellTextMatch(ctx, "Status", 1, nil, textmatch.Equal, textmatch.EqualCaseless)
	assert.ErrorIs(t, err, schemas.ErrInvalidArgument)
}

func TestAssertColumnSortedEmptyCells(t *testing.T) {
	tbl := newTable(t, "#stock")

	assert.NoError(t, tbl.AssertColumnSorted(ctx, "Restock", "asc", false, textmatch.EqualCaseless))
	err := tbl.AssertColumnSorted(ctx, "Restock", "asc", true, textmatch.EqualCaseless)
	assert.ErrorIs(t, err, schemas.ErrAssertion)

	assert.NoError(t, tbl.AssertColumnSorted(ctx, "Note", "asc", true, textmatch.EqualCaseless))
	err = tbl.AssertColumnSorted(ctx, "Note", "desc", true, textmatch.EqualCaseless)
	assert.ErrorIs(t, err, schemas.ErrAssertion)
}

func TestSelectorBuilders(t *testing.T) {
	tbl := newTable(t, "#orders")

	sel, err := tbl.SelectorForHeaders()
	require.NoError(t, err)
	assert.Equal(t, "#orders th", sel.Selector)

	sel, err = tbl.SelectorForHeader(ctx, "date", textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, "#orders th:nth-of-type(3)", sel.Selector)

	sel, err = tbl.SelectorForCell(ctx, "Status", 2, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, "#orders tbody tr:nth-of-type(2) td:nth-of-type(2)", sel.Selector)

	sel, err = tbl.SelectorForCellsInRow(1)
	require.NoError(t, err)
	assert.Equal(t, "#orders tbody tr:nth-of-type(1) td", sel.Selector)

	sel, err = tbl.SelectorForWholeRow(3)
	require.NoError(t, err)
	assert.Equal(t, "#orders tbody tr:nth-of-type(3)", sel.Selector)

	sel, err = tbl.SelectorForCellsInColumn(ctx, "name", textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, "#orders tbody tr td:nth-of-type(1)", sel.Selector)
	assert.Equal(t, schemas.StrategyCSS, sel.LocateStrategy)
}

func TestSelectorForCellButton(t *testing.T) {
	d, o := newObserver(t)
	tbl, err := New(o, schemas.Raw("#actions"), zaptest.NewLogger(t))
	require.NoError(t, err)

	sel, err := tbl.SelectorForCellButton(ctx, "action", []string{"bob"}, schemas.Raw("button.edit"), textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, "#actions tbody tr:nth-of-type(2) td:nth-of-type(2) button.edit", sel.Selector)

	present, err := d.IsPresent(ctx, sel)
	require.NoError(t, err)
	assert.True(t, present)

	_, err = tbl.SelectorForCellButton(ctx, "action", []string{"dave"}, schemas.Raw("button.edit"), textmatch.EqualCaseless)
	assert.ErrorIs(t, err, schemas.ErrNotFound)
}

func TestXPathRoot(t *testing.T) {
	tbl := newTable(t, "//table[@id='orders']")

	sel, err := tbl.SelectorForCell(ctx, "Date", 3, textmatch.EqualCaseless)
	require.NoError(t, err)
	assert.Equal(t, "//table[@id='orders']//tbody//tr[3]//td[3]", sel.Selector)

	row, err := tbl.RowHash(ctx, 3, false)
	require.NoError(t, err)
	assert.Equal(t, Row{"Name": "Carol", "Status": "Active", "Date": "2024-03-15"}, row)
}

func TestIndexedRoot(t *testing.T) {
	tests := []struct {
		name    string
		root    schemas.Spec
		headers []string
		rows    int
		first   Row
	}{
		{"CSSFirst", schemas.Spec{Selector: "table", Index: selector.Ptr(1)}, []string{"Name", "Status", "Date"}, 3, Row{"Name": "Alice", "Status": "Active", "Date": "2024-01-05"}},
		{"CSSThird", schemas.Spec{Selector: "table", Index: selector.Ptr(3)}, []string{"Name", "Action"}, 2, Row{"Name": "Alice", "Action": "Edit"}},
		{"XPathSecond", schemas.Spec{Selector: "//table", Index: selector.Ptr(2)}, []string{"A"}, 2, Row{"A": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, o := newObserver(t)
			tbl, err := New(o, tt.root, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.False(t, tbl.Root().HasIndex())

			headers, err := tbl.Headers(ctx, false, false)
			require.NoError(t, err)
			assert.Equal(t, tt.headers, headers)

			count, err := tbl.RowCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, count)

			row, err := tbl.RowHash(ctx, 1, false)
			require.NoError(t, err)
			assert.Equal(t, tt.first, row)
		})
	}
}

func TestCustomTags(t *testing.T) {
	_, o := newObserver(t)
	tbl, err := New(o, schemas.Raw("#orders"), nil, WithTags("", "", "td"))
	require.NoError(t, err)
	sel, err := tbl.SelectorForHeaders()
	require.NoError(t, err)
	assert.Equal(t, "#orders th", sel.Selector)

	tbl, err = New(o, schemas.Raw("#orders"), nil, WithTags("div.head", "div.row", "span"))
	require.NoError(t, err)
	sel, err = tbl.SelectorForCellAt(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "#orders tbody div.row:nth-of-type(1) span:nth-of-type(2)", sel.Selector)
}
