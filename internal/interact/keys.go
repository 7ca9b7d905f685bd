package interact

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/crow/api/schemas"
)

// allowedKeys maps the key names accepted by PressAndReleaseKeys and
// KeyDownAndDo to DOM key values understood by every driver.
var allowedKeys = map[string]string{
	"NULL":        "Unidentified",
	"CANCEL":      "Cancel",
	"HELP":        "Help",
	"BACK_SPACE":  "Backspace",
	"TAB":         "Tab",
	"CLEAR":       "Clear",
	"RETURN":      "Enter",
	"ENTER":       "Enter",
	"SHIFT":       "Shift",
	"CONTROL":     "Control",
	"ALT":         "Alt",
	"PAUSE":       "Pause",
	"ESCAPE":      "Escape",
	"SPACE":       " ",
	"PAGEUP":      "PageUp",
	"PAGEDOWN":    "PageDown",
	"END":         "End",
	"HOME":        "Home",
	"ARROW_LEFT":  "ArrowLeft",
	"LEFT_ARROW":  "ArrowLeft",
	"ARROW_UP":    "ArrowUp",
	"UP_ARROW":    "ArrowUp",
	"ARROW_RIGHT": "ArrowRight",
	"RIGHT_ARROW": "ArrowRight",
	"ARROW_DOWN":  "ArrowDown",
	"DOWN_ARROW":  "ArrowDown",
	"INSERT":      "Insert",
	"DELETE":      "Delete",
	"SEMICOLON":   ";",
	"EQUALS":      "=",
	"NUMPAD0":     "0",
	"NUMPAD1":     "1",
	"NUMPAD2":     "2",
	"NUMPAD3":     "3",
	"NUMPAD4":     "4",
	"NUMPAD5":     "5",
	"NUMPAD6":     "6",
	"NUMPAD7":     "7",
	"NUMPAD8":     "8",
	"NUMPAD9":     "9",
	"MULTIPLY":    "*",
	"ADD":         "+",
	"SEPARATOR":   ",",
	"SUBTRACT":    "-",
	"DECIMAL":     ".",
	"DIVIDE":      "/",
	"F1":          "F1",
	"F2":          "F2",
	"F3":          "F3",
	"F4":          "F4",
	"F5":          "F5",
	"F6":          "F6",
	"F7":          "F7",
	"F8":          "F8",
	"F9":          "F9",
	"F10":         "F10",
	"F11":         "F11",
	"F12":         "F12",
	"META":        "Meta",
	"COMMAND":     "Meta",
}

// KeyNames lists the accepted key names in alphabetical order.
func KeyNames() []string {
	names := make([]string, 0, len(allowedKeys))
	for k := range allowedKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DOMKey translates a key name into the DOM key value.
func DOMKey(name string) (string, error) {
	key, ok := allowedKeys[name]
	if !ok {
		return "", schemas.NewInvalidArgumentError("key", fmt.Sprintf("%q is not an allowed key name", name))
	}
	return key, nil
}
