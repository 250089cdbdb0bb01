package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// layouts covers the shapes the upstream files actually use. Single-digit month and day
// fields also accept zero-padded values. Anything else goes through dateparse, which
// recognises most common date and datetime spellings.
var layouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-01-02T15:04:05",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006.1.2 15:04:05",
	"2006.1.2 15:04",
	"2006.1.2",
	"20060102",
}

var digitGroups = regexp.MustCompile(`[0-9]+`)

// ParseTimestamp parses a rental timestamp. The wall clock is kept as written; strings
// without an offset are read as UTC and strings with one keep it, so Hour never shifts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || !datePartsWritten(s, t) {
		return time.Time{}, false
	}
	return t, true
}

// datePartsWritten reports whether the year, month and day of t each appear as a digit
// group of s. dateparse can read an unfamiliar shape as a different date; such results
// are treated as unparseable. The month check is skipped when s spells the month out.
func datePartsWritten(s string, t time.Time) bool {
	groups := make(map[int]bool)
	for _, g := range digitGroups.FindAllString(s, -1) {
		if n, err := strconv.Atoi(g); err == nil {
			groups[n] = true
		}
	}
	y, m, d := t.Date()
	if !groups[y] && !groups[y%100] {
		return false
	}
	if !groups[int(m)] && !strings.ContainsFunc(s, unicode.IsLetter) {
		return false
	}
	return groups[d]
}

// ParseDate parses s permissively and truncates it to a calendar date at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	t, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, false
	}
	return CalendarDate(t), true
}

// CalendarDate returns the wall-clock date of t at UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
