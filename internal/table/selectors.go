package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/textmatch"
)

func (t *Table) descend(sel schemas.Selector, tag string, index int) (schemas.Selector, error) {
	return t.runner.Resolver().AddDescendant(t.runner.Page(), sel, tag, index)
}

func (t *Table) body() (schemas.Selector, error) {
	return t.descend(t.root, "tbody", 0)
}

// SelectorForHeaders matches every header cell.
func (t *Table) SelectorForHeaders() (schemas.Selector, error) {
	return t.descend(t.root, t.headerTag, 0)
}

// SelectorForHeader matches the header cell whose text matches name.
func (t *Table) SelectorForHeader(ctx context.Context, name string, headerOpts textmatch.Options) (schemas.Selector, error) {
	col, err := t.ColumnIndexByHeader(ctx, name, headerOpts)
	if err != nil {
		return schemas.Selector{}, err
	}
	return t.descend(t.root, t.headerTag, col)
}

// SelectorForCellAt matches the cell at a 1-based row and column.
func (t *Table) SelectorForCellAt(row, column int) (schemas.Selector, error) {
	sel, err := t.SelectorForWholeRow(row)
	if err != nil {
		return sel, err
	}
	return t.descend(sel, t.columnTag, column)
}

// SelectorForCell matches the cell of a 1-based row under header.
func (t *Table) SelectorForCell(ctx context.Context, header string, row int, headerOpts textmatch.Options) (schemas.Selector, error) {
	col, err := t.ColumnIndexByHeader(ctx, header, headerOpts)
	if err != nil {
		return schemas.Selector{}, err
	}
	return t.SelectorForCellAt(row, col)
}

// SelectorForCellButton scopes button under the cell under header in the
// first row containing every keyword.
func (t *Table) SelectorForCellButton(ctx context.Context, header string, keywords []string, button schemas.SelectorInput, headerOpts textmatch.Options) (schemas.Selector, error) {
	row, err := t.FindRowByText(ctx, keywords, textmatch.EqualCaseless)
	if err != nil {
		return schemas.Selector{}, err
	}
	if row == 0 {
		sel, _ := t.SelectorForWholeRows()
		return schemas.Selector{}, schemas.NewNotFoundError(sel, false, fmt.Errorf("no row contains %s", strings.Join(keywords, ", ")))
	}
	cell, err := t.SelectorForCell(ctx, header, row, headerOpts)
	if err != nil {
		return schemas.Selector{}, err
	}
	return t.runner.Resolver().Merge(t.runner.Page(), cell, button, false, schemas.Spec{})
}

// SelectorForCellsInRow matches every cell of a 1-based row.
func (t *Table) SelectorForCellsInRow(row int) (schemas.Selector, error) {
	sel, err := t.SelectorForWholeRow(row)
	if err != nil {
		return sel, err
	}
	return t.descend(sel, t.columnTag, 0)
}

// SelectorForWholeRows matches every body row.
func (t *Table) SelectorForWholeRows() (schemas.Selector, error) {
	body, err := t.body()
	if err != nil {
		return body, err
	}
	return t.descend(body, t.rowTag, 0)
}

// SelectorForWholeRow matches one 1-based body row.
func (t *Table) SelectorForWholeRow(row int) (schemas.Selector, error) {
	if row < 1 {
		return schemas.Selector{}, schemas.NewInvalidArgumentError("row", fmt.Sprintf("rows are numbered from 1, got %d", row))
	}
	body, err := t.body()
	if err != nil {
		return body, err
	}
	return t.descend(body, t.rowTag, row)
}

// SelectorForCellsInColumn matches every body cell under header.
func (t *Table) SelectorForCellsInColumn(ctx context.Context, header string, headerOpts textmatch.Options) (schemas.Selector, error) {
	col, err := t.ColumnIndexByHeader(ctx, header, headerOpts)
	if err != nil {
		return schemas.Selector{}, err
	}
	rows, err := t.SelectorForWholeRows()
	if err != nil {
		return rows, err
	}
	return t.descend(rows, t.columnTag, col)
}
