package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

// Period is a named time-of-day window.
type Period struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Start int    `json:"start"` // inclusive hour
	End   int    `json:"end"`   // exclusive hour; End < Start wraps past midnight
}

// Periods in display order.
var Periods = []Period{
	{Name: "morning", Label: "Morning (6-10)", Start: 6, End: 10},
	{Name: "midday", Label: "Midday (10-14)", Start: 10, End: 14},
	{Name: "afternoon", Label: "Afternoon (14-18)", Start: 14, End: 18},
	{Name: "evening", Label: "Evening (18-22)", Start: 18, End: 22},
	{Name: "night", Label: "Night (22-6)", Start: 22, End: 6},
}

// Contains reports whether hour falls inside the period.
func (p Period) Contains(hour int) bool {
	if p.Start < p.End {
		return hour >= p.Start && hour < p.End
	}
	return hour >= p.Start || hour < p.End
}

// PeriodByName finds a period case-insensitively.
func PeriodByName(name string) (Period, bool) {
	for _, p := range Periods {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Period{}, false
}

// Weekdays in Monday-first order.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

func weekdayByName(name string) (time.Weekday, bool) {
	for _, d := range Weekdays {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return 0, false
}

// Filter selects bicycle records. Empty fields match everything.
type Filter struct {
	Years     []int    `json:"years,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Seasons   []string `json:"seasons,omitempty"`
	Day       string   `json:"day,omitempty"`
	Period    string   `json:"period,omitempty"`
}

// Validate checks names against the known seasons, weekdays and periods.
func (f Filter) Validate() error {
	for _, s := range f.Seasons {
		if !containsFold(dataset.Seasons, s) {
			return fmt.Errorf("unknown season %q", s)
		}
	}
	if f.Day != "" {
		if _, ok := weekdayByName(f.Day); !ok {
			return fmt.Errorf("unknown day %q", f.Day)
		}
	}
	if f.Period != "" {
		if _, ok := PeriodByName(f.Period); !ok {
			return fmt.Errorf("unknown period %q", f.Period)
		}
	}
	return nil
}

// Key is a canonical cache key for the filter.
func (f Filter) Key() string {
	years := make([]string, len(f.Years))
	for i, y := range f.Years {
		years[i] = fmt.Sprint(y)
	}
	sort.Strings(years)
	norm := func(in []string) string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(strings.TrimSpace(s))
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}
	return strings.Join([]string{
		strings.Join(years, ","), norm(f.Locations), norm(f.Seasons),
		strings.ToLower(f.Day), strings.ToLower(f.Period),
	}, "|")
}

// Apply returns the records matching every set criterion.
func (f Filter) Apply(records []dataset.BicycleRecord) []dataset.BicycleRecord {
	years := make(map[int]bool, len(f.Years))
	for _, y := range f.Years {
		years[y] = true
	}
	locations := make(map[string]bool, len(f.Locations))
	for _, l := range f.Locations {
		locations[strings.ToLower(strings.TrimSpace(l))] = true
	}
	seasons := make(map[string]bool, len(f.Seasons))
	for _, s := range f.Seasons {
		seasons[strings.ToLower(s)] = true
	}
	day, hasDay := weekdayByName(f.Day)
	period, hasPeriod := PeriodByName(f.Period)

	var out []dataset.BicycleRecord
	for _, r := range records {
		if len(years) > 0 && !years[r.Year] {
			continue
		}
		if len(locations) > 0 && !locations[strings.ToLower(r.Location)] {
			continue
		}
		if len(seasons) > 0 && !seasons[strings.ToLower(r.Season)] {
			continue
		}
		if hasDay && r.Time.Weekday() != day {
			continue
		}
		if hasPeriod && !period.Contains(r.Hour) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
