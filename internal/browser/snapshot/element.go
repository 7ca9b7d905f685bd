package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/crow/api/schemas"
)

// Element is a handle on a node of a Driver's document.
type Element struct {
	d    *Driver
	node *html.Node
}

var _ schemas.Element = (*Element)(nil)

// Node exposes the underlying node for tests and script handlers.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) tag() string { return strings.ToLower(e.node.Data) }

func (e *Element) describe() string {
	if id, ok := getAttr(e.node, "id"); ok {
		return e.tag() + "#" + id
	}
	return e.tag()
}

// visibleText collects the rendered text of n with whitespace collapsed the
// way WebDriver reports it.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if !isVisible(c) {
				return
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	if !isVisible(n) {
		return ""
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return visibleText(e.node), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if strings.EqualFold(name, "value") {
		if v, ok := e.value(); ok {
			return v, true, nil
		}
	}
	v, ok := getAttr(e.node, name)
	if !ok {
		return "", false, nil
	}
	if schemas.IsBooleanAttribute(name) {
		return "true", true, nil
	}
	return v, true, nil
}

// value returns the form value of the element; ok is false for elements
// that have none.
func (e *Element) value() (string, bool) {
	switch e.tag() {
	case "input", "option", "button":
		v, ok := getAttr(e.node, "value")
		if !ok && e.tag() == "option" {
			return strings.TrimSpace(htmlquery.InnerText(e.node)), true
		}
		return v, ok || e.tag() == "input"
	case "textarea":
		return htmlquery.InnerText(e.node), true
	case "select":
		options := htmlquery.Find(e.node, ".//option")
		if len(options) == 0 {
			return "", true
		}
		chosen := options[0]
		for _, o := range options {
			if _, ok := getAttr(o, "selected"); ok {
				chosen = o
				break
			}
		}
		if v, ok := getAttr(chosen, "value"); ok {
			return v, true
		}
		return strings.TrimSpace(htmlquery.InnerText(chosen)), true
	}
	return "", false
}

func (e *Element) Value(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	v, _ := e.value()
	return v, nil
}

func (e *Element) CSSValue(ctx context.Context, property string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return computedStyle(e.node, property), nil
}

func (e *Element) editable() error {
	if _, ok := getAttr(e.node, "disabled"); ok {
		return fmt.Errorf("element %s is disabled", e.describe())
	}
	if _, ok := getAttr(e.node, "readonly"); ok {
		return fmt.Errorf("element %s is read-only", e.describe())
	}
	return nil
}

func replaceText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (e *Element) setValue(value string) error {
	if err := e.editable(); err != nil {
		return err
	}
	switch e.tag() {
	case "input":
		setAttr(e.node, "value", value)
	case "textarea":
		replaceText(e.node, value)
	case "select":
		for _, o := range htmlquery.Find(e.node, ".//option") {
			v, ok := getAttr(o, "value")
			if !ok {
				v = strings.TrimSpace(htmlquery.InnerText(o))
			}
			if v == value {
				selectOption(e.node, o)
				return nil
			}
		}
		return fmt.Errorf("select %s has no option %q", e.describe(), value)
	default:
		if _, ok := getAttr(e.node, "contenteditable"); !ok {
			return fmt.Errorf("element %s does not accept input", e.describe())
		}
		replaceText(e.node, value)
	}
	return nil
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.setValue(value); err != nil {
		return err
	}
	e.d.record("type", e.describe(), value)
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.tag() == "select" {
		return nil
	}
	if err := e.setValue(""); err != nil {
		return err
	}
	e.d.record("clear", e.describe(), "")
	return nil
}

func selectOption(sel, option *html.Node) {
	if _, multiple := getAttr(sel, "multiple"); !multiple {
		for _, o := range htmlquery.Find(sel, ".//option") {
			removeAttr(o, "selected")
		}
	}
	setAttr(option, "selected", "")
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, tag) {
			return p
		}
	}
	return nil
}

// activate applies the default action a browser would run for a click.
// It returns a URL to follow, if any.
func (e *Element) activate(root *html.Node) string {
	n := e.node
	switch e.tag() {
	case "input":
		t, _ := getAttr(n, "type")
		switch strings.ToLower(t) {
		case "checkbox":
			if _, ok := getAttr(n, "checked"); ok {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "")
			}
		case "radio":
			name, _ := getAttr(n, "name")
			if name != "" {
				for _, r := range htmlquery.Find(root, "//input[@type='radio']") {
					if other, _ := getAttr(r, "name"); other == name {
						removeAttr(r, "checked")
					}
				}
			}
			setAttr(n, "checked", "")
		}
	case "option":
		if sel := ancestor(n, "select"); sel != nil {
			selectOption(sel, n)
		}
	case "a":
		href, _ := getAttr(n, "href")
		if href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return href
		}
	}
	return ""
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	root, err := e.d.root()
	if err != nil {
		e.d.mu.Unlock()
		return err
	}
	if !isVisible(e.node) {
		e.d.mu.Unlock()
		return fmt.Errorf("element %s is not interactable", e.describe())
	}
	e.d.record("click", e.describe(), visibleText(e.node))
	if _, disabled := getAttr(e.node, "disabled"); disabled {
		e.d.mu.Unlock()
		return nil
	}
	href := e.activate(root)
	if e.d.onClick != nil {
		if err := e.d.onClick(root, e.node); err != nil {
			e.d.mu.Unlock()
			return err
		}
	}
	follow := e.d.followLinks && href != ""
	e.d.mu.Unlock()

	if follow {
		e.d.logger.Debug("Following link.", zap.String("href", href))
		return e.d.Navigate(ctx, href)
	}
	return nil
}

func (e *Element) MoveTo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("hover", e.describe(), "")
	return nil
}

func (e *Element) Highlight(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	setStyleValue(e.node, "outline", schemas.HighlightOutline)
	return nil
}

func (e *Element) Unhighlight(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	setStyleValue(e.node, "outline", schemas.ClearedOutline)
	return nil
}
