package session

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
)

// Element is a live DOM node of the current tab.
type Element struct {
	exec   ActionExecutor
	node   *cdp.Node
	logger *zap.Logger
}

var _ schemas.Element = (*Element)(nil)

func (e *Element) callAction(fn string, res any, args ...any) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, e.node, fn, res, args...)
	})
}

func (e *Element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.exec.RunActions(ctx, e.callAction(fn, res, args...))
}

func (e *Element) visible(ctx context.Context) (bool, error) {
	var visible bool
	if err := e.call(ctx, jsVisible, &visible); err != nil {
		return false, fmt.Errorf("failed to check visibility of %s: %w", e.node.LocalName, err)
	}
	return visible, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, jsText, &text); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

type attributeResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res attributeResult
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q: %w", name, err)
	}
	if !res.OK {
		return "", false, nil
	}
	if schemas.IsBooleanAttribute(name) {
		return "true", true, nil
	}
	return res.Value, true, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	var v string
	if err := e.call(ctx, jsValue, &v); err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return v, nil
}

func (e *Element) CSSValue(ctx context.Context, property string) (string, error) {
	var v string
	if err := e.call(ctx, jsCSSValue, &v, property); err != nil {
		return "", fmt.Errorf("failed to read css %q: %w", property, err)
	}
	return v, nil
}

// SetValue replaces the content of a form control by typing into it.
// Selects pick the option whose value or label equals value.
func (e *Element) SetValue(ctx context.Context, value string) error {
	var tag string
	if err := e.call(ctx, jsTagName, &tag); err != nil {
		return err
	}
	if tag == "select" {
		var found bool
		if err := e.call(ctx, jsSelectOption, &found, value); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("select has no option %q", value)
		}
		return nil
	}

	var cleared bool
	return e.exec.RunActions(ctx,
		e.callAction(jsClear, &cleared),
		chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, value, chromedp.ByNodeID),
	)
}

func (e *Element) Clear(ctx context.Context) error {
	var cleared bool
	return e.call(ctx, jsClear, &cleared)
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.exec.RunActions(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("failed to click %s: %w", e.node.LocalName, err)
	}
	return nil
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MoveTo scrolls the element into view and moves the mouse to its center.
func (e *Element) MoveTo(ctx context.Context) error {
	return e.exec.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var p point
		if err := chromedp.CallFunctionOnNode(ctx, e.node, jsCenter, &p); err != nil {
			return err
		}
		return chromedp.MouseEvent(input.MouseMoved, p.X, p.Y).Do(ctx)
	}))
}

func (e *Element) Highlight(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsOutline, &ok, schemas.HighlightOutline, true)
}

// Unhighlight runs detached from ctx so an outline never outlives a
// canceled interaction.
func (e *Element) Unhighlight(ctx context.Context) error {
	var ok bool
	err := e.exec.RunBackgroundActions(ctx, e.callAction(jsOutline, &ok, schemas.ClearedOutline, false))
	if err != nil {
		e.logger.Debug("Failed to remove highlight.", zap.String("element", e.node.LocalName), zap.Error(err))
	}
	return err
}
