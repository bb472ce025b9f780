package catalog

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when extracting a launch year.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"2006",
}

// parseYear extracts the year component of a date or timestamp string.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

func yearInRange(year int) bool {
	return year >= MinYear && year <= MaxYear
}
