package snapshot

import (
	"strings"

	"golang.org/x/net/html"
)

// parseStyle splits an inline style attribute into ordered declarations.
func parseStyle(style string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		decls = append(decls, [2]string{name, strings.TrimSpace(value)})
	}
	return decls
}

func renderStyle(decls [][2]string) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d[0]+": "+d[1])
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, name) {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// styleValue reads one inline style property of n.
func styleValue(n *html.Node, property string) (string, bool) {
	style, ok := getAttr(n, "style")
	if !ok {
		return "", false
	}
	property = strings.ToLower(property)
	value, found := "", false
	for _, d := range parseStyle(style) {
		if d[0] == property {
			value, found = d[1], true
		}
	}
	return value, found
}

// setStyleValue replaces or appends one inline style property of n.
func setStyleValue(n *html.Node, property, value string) {
	style, _ := getAttr(n, "style")
	decls := parseStyle(style)
	property = strings.ToLower(property)
	replaced := false
	for i := range decls {
		if decls[i][0] == property {
			decls[i][1] = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, [2]string{property, value})
	}
	setAttr(n, "style", renderStyle(decls))
}

// inheritedProperties are resolved through ancestors when the element does
// not set them inline.
var inheritedProperties = map[string]string{
	"pointer-events": "auto",
	"visibility":     "visible",
	"cursor":         "auto",
	"color":          "",
	"font-family":    "",
}

// computedStyle approximates getComputedStyle from inline styles only.
func computedStyle(n *html.Node, property string) string {
	property = strings.ToLower(property)
	if v, ok := styleValue(n, property); ok {
		return v
	}
	def, inherited := inheritedProperties[property]
	if inherited {
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type != html.ElementNode {
				continue
			}
			if v, ok := styleValue(p, property); ok {
				return v
			}
		}
		return def
	}
	if property == "display" {
		if _, hidden := getAttr(n, "hidden"); hidden {
			return "none"
		}
		if invisibleTags[strings.ToLower(n.Data)] {
			return "none"
		}
		return "block"
	}
	return ""
}

// invisibleTags never render.
var invisibleTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"title": true, "meta": true, "link": true, "noscript": true,
}

// isVisible reports whether n would render, judging by markup and inline
// styles of n and its ancestors.
func isVisible(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if strings.EqualFold(n.Data, "input") {
		if t, _ := getAttr(n, "type"); strings.EqualFold(t, "hidden") {
			return false
		}
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if invisibleTags[strings.ToLower(cur.Data)] {
			return false
		}
		if _, hidden := getAttr(cur, "hidden"); hidden {
			return false
		}
		if d, ok := styleValue(cur, "display"); ok && strings.EqualFold(d, "none") {
			return false
		}
		if o, ok := styleValue(cur, "opacity"); ok && (o == "0" || o == "0.0") {
			return false
		}
	}
	return !strings.EqualFold(computedStyle(n, "visibility"), "hidden")
}
