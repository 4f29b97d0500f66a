// Package dataset loads the historical CSV inputs: Dublin bicycle counter
// exports and Irish county weather observations.
package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts found in the CSV exports (day-first).
const (
	LayoutDashSeconds = "02-01-2006 15:04:05"
	LayoutDash        = "02-01-2006 15:04"
	LayoutSlash       = "02/01/2006 15:04"
)

var bicycleLayouts = []string{LayoutDashSeconds, LayoutDash, LayoutSlash}

// ParseTime parses s with the first matching layout. Times are wall-clock
// values in UTC; the exports carry no zone.
func ParseTime(s string, layouts ...string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(layouts) == 0 {
		layouts = bicycleLayouts
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Seasons in calendar order starting with winter.
var Seasons = []string{"Winter", "Spring", "Summer", "Autumn"}

// Season maps a month to its meteorological season.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
