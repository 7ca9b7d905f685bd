package interact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
)

// Gatherer turns a canonical selector into the element handles an
// interaction works on.
type Gatherer struct {
	driver schemas.Driver
	logger *zap.Logger
}

// NewGatherer creates a gatherer over driver.
func NewGatherer(driver schemas.Driver, logger *zap.Logger) *Gatherer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{driver: driver, logger: logger.Named("gatherer")}
}

// Gather waits for sel and returns its matches in document order. The wait
// ignores the index; the index then narrows the result to at most one
// element, and an index past the last match yields no elements. With
// SuppressNotFoundErrors an unsatisfied wait also yields no elements.
func (g *Gatherer) Gather(ctx context.Context, sel schemas.Selector) ([]schemas.Element, error) {
	query := sel.WithoutIndex()

	var err error
	if sel.NeedVisible {
		err = g.driver.WaitForElementVisible(ctx, query)
	} else {
		err = g.driver.WaitForElementPresent(ctx, query)
	}
	if err != nil {
		if sel.SuppressNotFoundErrors && errors.Is(err, schemas.ErrNotFound) {
			g.logger.Debug("Element not found, suppressed.", zap.Stringer("selector", sel))
			return []schemas.Element{}, nil
		}
		return nil, err
	}

	elements, err := g.driver.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find elements for %s: %w", sel, err)
	}
	if !sel.HasIndex() {
		return elements, nil
	}
	if sel.Index > len(elements) {
		g.logger.Debug("Index is past the last match.",
			zap.Stringer("selector", sel),
			zap.Int("matches", len(elements)))
		return []schemas.Element{}, nil
	}
	return elements[sel.Index-1 : sel.Index], nil
}
