package textmatch

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xkilldash9x/crow/api/schemas"
)

var (
	nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)
	lower           = cases.Lower(language.Und)
)

// normalized is the comparable form of a string. Temporal values come from
// the date/time rules and never compare equal to plain text.
type normalized struct {
	value    string
	temporal bool
}

// Normalize applies the options to text. With MatchDate or MatchTime set and
// a parseable date, the result is the decimal UTC-midnight milliseconds
// (date) or epoch milliseconds (time) instead of the text.
func Normalize(text string, o Options) string {
	return normalize(text, o).value
}

func normalize(text string, o Options) normalized {
	if (o.MatchDate || o.MatchTime) && text != "" {
		if t, ok := ParseDate(text); ok {
			if o.MatchDate {
				day := DayValue(t)
				return normalized{value: strconv.FormatInt(day, 10), temporal: true}
			}
			return normalized{value: strconv.FormatInt(t.UnixMilli(), 10), temporal: true}
		}
	}

	result := text
	if o.Caseless {
		result = lower.String(result)
	}
	if o.LetterNumberOnly {
		result = AlphaNumericOnly(result)
	}
	if o.Orderless {
		runes := []rune(result)
		sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
		result = string(runes)
	}
	return normalized{value: result}
}

// NormalizeAny accepts values coming from loosely typed sources such as YAML
// fixtures. nil normalizes to the empty string; anything other than a string
// is rejected.
func NormalizeAny(v any, o Options) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return Normalize(t, o), nil
	}
	return "", schemas.NewInvalidArgumentError("text", fmt.Sprintf("expected a string but received %T: %v", v, v))
}

// AlphaNumericOnly strips every rune outside [a-zA-Z0-9].
func AlphaNumericOnly(s string) string {
	return nonAlphaNumeric.ReplaceAllString(s, "")
}
