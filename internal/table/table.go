// Package table reads and asserts on HTML tables addressed by their header
// texts rather than by column position.
package table

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/selector"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

// Default tag names of a table's header, row and cell elements.
const (
	DefaultHeaderTag = "th"
	DefaultRowTag    = "tr"
	DefaultColumnTag = "td"
)

// Row maps a header text to the text of the cell under it.
type Row map[string]string

// Table is a handle on one table on the page. The header texts are read
// once and cached; call Headers with refresh after any action that changes
// the columns.
//
// A Table is not safe for concurrent use.
type Table struct {
	observer  *interact.Observer
	runner    *interact.Runner
	logger    *zap.Logger
	root      schemas.Selector
	headerTag string
	rowTag    string
	columnTag string
	headers   []string
}

// Option configures a Table.
type Option func(*Table)

// WithTags replaces the tag names of headers, rows and cells. Empty names
// keep the default.
func WithTags(header, row, column string) Option {
	return func(t *Table) {
		if header != "" {
			t.headerTag = header
		}
		if row != "" {
			t.rowTag = row
		}
		if column != "" {
			t.columnTag = column
		}
	}
}

// New creates a handle for the table wrapped by root.
func New(observer *interact.Observer, root schemas.SelectorInput, logger *zap.Logger, opts ...Option) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := observer.Runner()
	sel, err := runner.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve table selector: %w", err)
	}
	t := &Table{
		observer:  observer,
		runner:    runner,
		logger:    logger.Named("table"),
		root:      selector.PinIndex(sel),
		headerTag: DefaultHeaderTag,
		rowTag:    DefaultRowTag,
		columnTag: DefaultColumnTag,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Root returns the table's wrapper selector. An index on the input is folded
// into the body so that every derived selector targets the same table.
func (t *Table) Root() schemas.Selector { return t.root }

func (t *Table) refreshHeaders(ctx context.Context) error {
	sel, err := t.SelectorForHeaders()
	if err != nil {
		return err
	}
	// Hidden columns still take a position.
	sel.NeedVisible = false
	headers, err := t.observer.AllTexts(ctx, sel)
	if err != nil {
		return fmt.Errorf("failed to read headers of %s: %w", t.root, err)
	}
	t.headers = headers
	t.logger.Debug("Read table headers.", zap.Stringer("table", t.root), zap.Strings("headers", headers))
	return nil
}

// Headers returns the header texts, reading them when nothing is cached or
// refresh is set.
func (t *Table) Headers(ctx context.Context, refresh, lowercase bool) ([]string, error) {
	if len(t.headers) == 0 || refresh {
		if err := t.refreshHeaders(ctx); err != nil {
			return nil, err
		}
	}
	out := slices.Clone(t.headers)
	if lowercase {
		for i, h := range out {
			out[i] = strings.ToLower(h)
		}
	}
	return out, nil
}

// ColumnIndexByHeader returns the 1-based position of the column whose
// header matches name once both are normalized under opts.
func (t *Table) ColumnIndexByHeader(ctx context.Context, name string, opts textmatch.Options) (int, error) {
	headers, err := t.Headers(ctx, true, false)
	if err != nil {
		return 0, err
	}
	want := textmatch.Normalize(name, opts)
	for i, h := range headers {
		if textmatch.Normalize(h, opts) == want {
			return i + 1, nil
		}
	}
	sel, _ := t.SelectorForHeaders()
	return 0, schemas.NewNotFoundError(sel, false, fmt.Errorf("header %q is not in the headers %q", name, headers))
}

// ColumnTexts returns the text of every cell in the column under header.
func (t *Table) ColumnTexts(ctx context.Context, header string, headerOpts textmatch.Options) ([]string, error) {
	sel, err := t.SelectorForCellsInColumn(ctx, header, headerOpts)
	if err != nil {
		return nil, err
	}
	return t.observer.AllTexts(ctx, sel)
}

func zip(headers, cells []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if i < len(cells) {
			row[h] = cells[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

// RowHash pairs the headers with the cell texts of the 1-based row. Cells
// missing from a short row read as empty strings.
func (t *Table) RowHash(ctx context.Context, row int, lowercaseKeys bool) (Row, error) {
	headers, err := t.Headers(ctx, true, lowercaseKeys)
	if err != nil {
		return nil, err
	}
	sel, err := t.SelectorForCellsInRow(row)
	if err != nil {
		return nil, err
	}
	sel.NeedVisible = false
	cells, err := t.observer.AllTexts(ctx, sel)
	if err != nil {
		return nil, err
	}
	return zip(headers, cells), nil
}

// RowCount counts the body rows. An empty table has zero rows.
func (t *Table) RowCount(ctx context.Context) (int, error) {
	sel, err := t.SelectorForWholeRows()
	if err != nil {
		return 0, err
	}
	sel.SuppressNotFoundErrors = true
	return t.observer.ElementsCount(ctx, sel)
}

// TableData returns every body row as a Row.
func (t *Table) TableData(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := t.ForEachRowHash(ctx, func(_ context.Context, row Row, _ int) error {
		rows = append(rows, row)
		return nil
	}, false)
	return rows, err
}

// FindRowByText returns the 1-based number of the first row in which every
// keyword matches some cell, or 0 when no row does.
func (t *Table) FindRowByText(ctx context.Context, keywords []string, opts textmatch.Options) (int, error) {
	rows, err := t.TableData(ctx)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, v)
		}
		matched := true
		for _, kw := range keywords {
			if !textmatch.InArray(kw, cells, opts) {
				matched = false
				break
			}
		}
		if matched {
			return i + 1, nil
		}
	}
	t.logger.Debug("No row matches the keywords.", zap.Stringer("table", t.root), zap.Strings("keywords", keywords))
	return 0, nil
}

// FindRowByTextInColumn returns the 1-based number of the first row whose
// cell under header matches text, or 0 when none does.
func (t *Table) FindRowByTextInColumn(ctx context.Context, header, text string, textOpts, headerOpts textmatch.Options) (int, error) {
	texts, err := t.ColumnTexts(ctx, header, headerOpts)
	if err != nil {
		return 0, err
	}
	for i, v := range texts {
		if textmatch.Match(v, text, textOpts) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// ForEachTextInColumn runs fn for the text of every cell under header.
func (t *Table) ForEachTextInColumn(ctx context.Context, header string, fn interact.IndexedTextFunc, headerOpts textmatch.Options) error {
	sel, err := t.SelectorForCellsInColumn(ctx, header, headerOpts)
	if err != nil {
		return err
	}
	return t.runner.ForEachText(ctx, sel, "", fn, interact.WithWaitAfter(0))
}

// RowFunc receives one row and its 0-based index.
type RowFunc func(ctx context.Context, row Row, index int) error

// ForEachRowHash runs fn for every body row in order and stops at the
// first error.
func (t *Table) ForEachRowHash(ctx context.Context, fn RowFunc, lowercaseKeys bool) error {
	headers, err := t.Headers(ctx, true, lowercaseKeys)
	if err != nil {
		return err
	}
	count, err := t.RowCount(ctx)
	if err != nil {
		return err
	}
	for i := range count {
		sel, err := t.SelectorForCellsInRow(i + 1)
		if err != nil {
			return err
		}
		sel.NeedVisible = false
		err = t.runner.ForAllTexts(ctx, sel, "", func(ctx context.Context, cells []string) error {
			return fn(ctx, zip(headers, cells), i)
		}, interact.WithWaitAfter(0), interact.WithHighlight(false))
		if err != nil {
			return err
		}
	}
	return nil
}
