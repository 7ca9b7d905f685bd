package textmatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayouts are tried in order when a string is checked for a date. Values
// without a zone are read as UTC.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.ANSIC,
}

// ParseDate reports whether s is a date in one of DateLayouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsDate reports whether s parses as a date.
func IsDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// DayValue is the UTC midnight of t's calendar day in epoch milliseconds.
func DayValue(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

// DaysBetween returns the whole number of days between two date strings,
// regardless of order.
func DaysBetween(start, end string) (int, error) {
	s, ok := ParseDate(start)
	if !ok {
		return 0, fmt.Errorf("cannot parse start date %q", start)
	}
	e, ok := ParseDate(end)
	if !ok {
		return 0, fmt.Errorf("cannot parse end date %q", end)
	}
	return DaysBetweenTimes(s, e), nil
}

// DaysBetweenTimes is DaysBetween for parsed values.
func DaysBetweenTimes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}

// SplitDateString splits "YYYY-MM-DD" into its parts. "N days ago" is
// resolved against now first.
func SplitDateString(s string, now time.Time) ([]string, error) {
	if rest, ok := strings.CutSuffix(s, " days ago"); ok {
		days, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid relative date %q: %w", s, err)
		}
		d := now.AddDate(0, 0, -days)
		return []string{strconv.Itoa(d.Year()), strconv.Itoa(int(d.Month())), strconv.Itoa(d.Day())}, nil
	}
	return strings.Split(s, "-"), nil
}
