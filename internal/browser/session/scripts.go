package session

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/crow/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Functions called on a node with CallFunctionOnNode; `this` is the node.
const (
	jsText = `function() { return this.innerText === undefined ? (this.textContent || "") : this.innerText; }`

	jsAttribute = `function(name) {
	if (!this.hasAttribute(name)) { return {ok: false, value: ""}; }
	return {ok: true, value: this.getAttribute(name) || ""};
}`

	jsValue = `function() { return this.value === undefined || this.value === null ? "" : String(this.value); }`

	jsCSSValue = `function(prop) { return window.getComputedStyle(this).getPropertyValue(prop); }`

	jsVisible = `function() {
	if (!this.isConnected) { return false; }
	const style = window.getComputedStyle(this);
	if (style.display === "none" || style.visibility === "hidden" || style.opacity === "0") { return false; }
	const rect = this.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`

	jsSelected = `function() { return !!(this.checked || this.selected); }`

	jsClear = `function() {
	if ("value" in this) { this.value = ""; } else if (this.isContentEditable) { this.textContent = ""; }
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`

	jsSelectOption = `function(value) {
	for (const o of this.options) {
		if (o.value === value || o.text.trim() === value) {
			this.value = o.value;
			this.dispatchEvent(new Event("input", {bubbles: true}));
			this.dispatchEvent(new Event("change", {bubbles: true}));
			return true;
		}
	}
	return false;
}`

	jsCenter = `function() {
	this.scrollIntoView({block: "center", inline: "center"});
	const r = this.getBoundingClientRect();
	return {x: r.left + r.width / 2, y: r.top + r.height / 2};
}`

	jsOutline = `function(outline, scroll) {
	if (scroll) { this.scrollIntoView({block: "center", inline: "center"}); }
	this.style.outline = outline;
	return true;
}`

	jsTagName = `function() { return this.tagName.toLowerCase(); }`
)

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// annotateScript creates or updates the diagnostic overlay.
func annotateScript(text string) string {
	return fmt.Sprintf(`(function(text) {
	let box = document.getElementById(%[1]s);
	if (!box) {
		box = document.createElement("div");
		box.id = %[1]s;
		box.style.cssText = "position:fixed;top:0;left:0;z-index:2147483647;padding:4px 8px;" +
			"background:rgba(255,255,204,0.9);color:#000;font:12px monospace;pointer-events:none;";
		(document.body || document.documentElement).appendChild(box);
	}
	box.textContent = text;
	return true;
})(%[2]s)`, jsonEncode(schemas.ActionTextBoxID), jsonEncode(text))
}

func clearAnnotationScript() string {
	return fmt.Sprintf(`(function() {
	const box = document.getElementById(%s);
	if (box) { box.remove(); }
	return true;
})()`, jsonEncode(schemas.ActionTextBoxID))
}

// wrapScript turns a script body that reads `arguments` into an expression
// Runtime.evaluate can run.
func wrapScript(script string, args []any) string {
	body := strings.TrimSpace(script)
	if args == nil {
		args = []any{}
	}
	return fmt.Sprintf("(function() {\n%s\n}).apply(null, %s)", body, jsonEncode(args))
}
