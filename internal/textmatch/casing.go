package textmatch

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CamelCase joins the words of s, upper-casing the first letter of each word
// except, when firstLower is set, the first one. Words are split on the
// first separator found among space, underscore and hyphen.
func CamelCase(s string, firstLower bool, connector string, letterNumberOnly bool) string {
	lowered := lower.String(s)
	var words []string
	switch {
	case strings.Contains(s, " "):
		words = strings.Split(lowered, " ")
	case strings.Contains(s, "_"):
		words = strings.Split(lowered, "_")
	case strings.Contains(s, "-"):
		words = strings.Split(lowered, "-")
	default:
		words = []string{lowered}
	}

	out := make([]string, 0, len(words))
	for i, w := range words {
		if letterNumberOnly {
			w = AlphaNumericOnly(w)
		}
		if i > 0 || !firstLower {
			w = upperFirst(w)
		}
		out = append(out, w)
	}
	return strings.Join(out, connector)
}

// TitleCase capitalizes every word; with removeSpace the words are joined
// without separators.
func TitleCase(s string, removeSpace bool) string {
	connector := " "
	if removeSpace {
		connector = ""
	}
	return CamelCase(s, false, connector, true)
}

// SnakeCase lower-cases s and replaces spaces with connector.
func SnakeCase(s, connector string) string {
	return strings.ReplaceAll(lower.String(s), " ", connector)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ParseNumber reads numbers written with thousands separators, such as
// "1,234,567.89".
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether s is a number once thousands separators are
// removed.
func IsNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}
