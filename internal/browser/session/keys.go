package session

import (
	"strings"

	"github.com/chromedp/cdproto/input"
)

// keyDef describes a non-printable key for Input.dispatchKeyEvent.
type keyDef struct {
	code     string
	vk       int64
	modifier input.Modifier
}

// keyDefs is keyed by DOM KeyboardEvent.key values.
var keyDefs = map[string]keyDef{
	"Shift":      {code: "ShiftLeft", vk: 16, modifier: input.ModifierShift},
	"Control":    {code: "ControlLeft", vk: 17, modifier: input.ModifierCtrl},
	"Alt":        {code: "AltLeft", vk: 18, modifier: input.ModifierAlt},
	"Meta":       {code: "MetaLeft", vk: 91, modifier: input.ModifierMeta},
	"Enter":      {code: "Enter", vk: 13},
	"Tab":        {code: "Tab", vk: 9},
	"Escape":     {code: "Escape", vk: 27},
	"Backspace":  {code: "Backspace", vk: 8},
	"Delete":     {code: "Delete", vk: 46},
	"Insert":     {code: "Insert", vk: 45},
	"Home":       {code: "Home", vk: 36},
	"End":        {code: "End", vk: 35},
	"PageUp":     {code: "PageUp", vk: 33},
	"PageDown":   {code: "PageDown", vk: 34},
	"ArrowLeft":  {code: "ArrowLeft", vk: 37},
	"ArrowUp":    {code: "ArrowUp", vk: 38},
	"ArrowRight": {code: "ArrowRight", vk: 39},
	"ArrowDown":  {code: "ArrowDown", vk: 40},
	" ":          {code: "Space", vk: 32},
	"F1":         {code: "F1", vk: 112},
	"F2":         {code: "F2", vk: 113},
	"F3":         {code: "F3", vk: 114},
	"F4":         {code: "F4", vk: 115},
	"F5":         {code: "F5", vk: 116},
	"F6":         {code: "F6", vk: 117},
	"F7":         {code: "F7", vk: 118},
	"F8":         {code: "F8", vk: 119},
	"F9":         {code: "F9", vk: 120},
	"F10":        {code: "F10", vk: 121},
	"F11":        {code: "F11", vk: 122},
	"F12":        {code: "F12", vk: 123},
}

// keyEvent builds the CDP event for one key transition. mods is the set of
// modifiers held while the event fires.
func keyEvent(typ input.KeyType, key string, mods input.Modifier) *input.DispatchKeyEventParams {
	p := input.DispatchKeyEvent(typ).WithKey(key).WithModifiers(mods)
	if def, ok := keyDefs[key]; ok {
		p = p.WithCode(def.code).WithWindowsVirtualKeyCode(def.vk)
		if key == "Enter" && typ == input.KeyDown {
			p = p.WithText("\r")
		}
		return p
	}
	if len([]rune(key)) == 1 {
		upper := strings.ToUpper(key)
		if r := []rune(upper)[0]; r < 128 {
			p = p.WithWindowsVirtualKeyCode(int64(r))
		}
		if typ == input.KeyDown {
			p = p.WithText(key)
		}
	}
	return p
}

// modifierFor reports the modifier bit a key sets while held.
func modifierFor(key string) input.Modifier {
	return keyDefs[key].modifier
}
