package analysis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/cache"
	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

var (
	// ErrNoData is returned when the bicycle dataset could not be loaded.
	ErrNoData = errors.New("bicycle data not available")
	// ErrNoMatches is returned when a filter excludes every record.
	ErrNoMatches = errors.New("no bicycle data matches the current filters")
)

// Report is the full bicycle and weather analysis for one filter.
type Report struct {
	Filter       Filter             `json:"filter"`
	Overview     Overview           `json:"overview"`
	Daily        []DailyRow         `json:"daily"`
	Monthly      []MonthlyStat      `json:"monthly"`
	Seasonal     []GroupStat        `json:"seasonal"`
	Yearly       []GroupStat        `json:"yearly"`
	Hourly       []HourStat         `json:"hourly"`
	Locations    []LocationStat     `json:"locations"`
	MonthlyAvg   []GroupStat        `json:"monthlyCounts"`
	Heatmap      Heatmap            `json:"heatmap"`
	TempRanges   []TempRangeBucket  `json:"tempRanges"`
	Correlations map[string]float64 `json:"correlations"`
}

// Options lists the values a filter can take.
type Options struct {
	Years     []int    `json:"years"`
	Locations []string `json:"locations"`
	Seasons   []string `json:"seasons"`
	Days      []string `json:"days"`
	Periods   []Period `json:"periods"`
}

// Service runs analyses over the loaded datasets and caches reports per filter.
type Service struct {
	records []dataset.BicycleRecord
	weather []dataset.DailyWeather
	reports *cache.TTL[string, Report]
}

// NewService wraps the bicycle records and the daily weather they are
// compared against. Either may be empty when loading failed. Weather days
// outside the span of the records are dropped.
func NewService(records []dataset.BicycleRecord, weather []dataset.DailyWeather, ttl time.Duration) *Service {
	if len(records) > 0 {
		from, to := dataset.Span(records)
		weather = dataset.FilterDaily(weather, from, to)
	}
	return &Service{
		records: records,
		weather: weather,
		reports: cache.New[string, Report](ttl),
	}
}

// Available reports whether bicycle data was loaded.
func (s *Service) Available() bool {
	return len(s.records) > 0
}

// Options returns the distinct filter values present in the data.
func (s *Service) Options() Options {
	years := map[int]bool{}
	locations := map[string]bool{}
	for _, r := range s.records {
		years[r.Year] = true
		locations[r.Location] = true
	}
	opts := Options{Seasons: dataset.Seasons, Periods: Periods}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	sort.Ints(opts.Years)
	for l := range locations {
		opts.Locations = append(opts.Locations, l)
	}
	sort.Strings(opts.Locations)
	for _, d := range Weekdays {
		opts.Days = append(opts.Days, d.String())
	}
	return opts
}

func (s *Service) filtered(f Filter) ([]dataset.BicycleRecord, error) {
	if !s.Available() {
		return nil, ErrNoData
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	records := f.Apply(s.records)
	if len(records) == 0 {
		return nil, ErrNoMatches
	}
	return records, nil
}

// Overview returns headline metrics for the filtered records.
func (s *Service) Overview(f Filter) (Overview, error) {
	records, err := s.filtered(f)
	if err != nil {
		return Overview{}, err
	}
	return Summarize(records), nil
}

// Analyze builds the full report for the filter, served from cache when fresh.
func (s *Service) Analyze(f Filter) (Report, error) {
	key := f.Key()
	if report, ok := s.reports.Get(key); ok {
		return report, nil
	}
	records, err := s.filtered(f)
	if err != nil {
		return Report{}, err
	}
	return s.reports.GetOrLoad(key, func() (Report, error) {
		daily := MergeDaily(records, s.weather)
		return Report{
			Filter:       f,
			Overview:     Summarize(records),
			Daily:        daily,
			Monthly:      Monthly(daily),
			Seasonal:     Seasonal(daily),
			Yearly:       Yearly(daily),
			Hourly:       Hourly(records),
			Locations:    ByLocation(records),
			MonthlyAvg:   MonthlyCounts(records),
			Heatmap:      DayHourHeatmap(records),
			TempRanges:   TempRanges(daily),
			Correlations: Correlations(daily),
		}, nil
	})
}

func formatRange(from, to float64) string {
	return fmt.Sprintf("%.0f-%.0f °C", from, to)
}
