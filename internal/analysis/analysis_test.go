package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

func rec(ts time.Time, loc string, count int) dataset.BicycleRecord {
	return dataset.BicycleRecord{
		Time:     ts,
		Location: loc,
		Count:    count,
		Date:     dataset.DateOf(ts),
		Hour:     ts.Hour(),
		Day:      ts.Weekday().String(),
		Month:    ts.Month().String(),
		Season:   dataset.Season(ts.Month()),
		Year:     ts.Year(),
	}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

// 2021-01-04 and 2022-07-11 are Mondays, 2021-07-10 is a Saturday.
var sample = []dataset.BicycleRecord{
	rec(at(2021, 1, 4, 8), "Charleville Mall", 100),
	rec(at(2021, 1, 4, 8), "Griffith Avenue", 50),
	rec(at(2021, 1, 4, 23), "Charleville Mall", 10),
	rec(at(2021, 1, 5, 3), "Charleville Mall", 4),
	rec(at(2021, 7, 10, 12), "Charleville Mall", 200),
	rec(at(2022, 7, 11, 17), "Griffith Avenue", 60),
}

func pressure(v float64) *float64 { return &v }

var weather = []dataset.DailyWeather{
	{Date: at(2021, 1, 4, 0), TempMax: 6, TempMin: 1, TempMean: 3, Precipitation: 4.0, Humidity: 90, Pressure: pressure(1000)},
	{Date: at(2021, 1, 5, 0), TempMax: 5, TempMin: 0, TempMean: 2, Precipitation: 6.0, Humidity: 92, Pressure: pressure(995)},
	{Date: at(2021, 7, 10, 0), TempMax: 22, TempMin: 12, TempMean: 17, Precipitation: 0, Humidity: 70, Pressure: pressure(1020)},
	{Date: at(2021, 7, 20, 0), TempMax: 20, TempMin: 14, TempMean: 17, Precipitation: 1, Humidity: 75},
}

func TestPeriodContainsWrapsOvernight(t *testing.T) {
	night, ok := PeriodByName("Night")
	require.True(t, ok)
	assert.True(t, night.Contains(22))
	assert.True(t, night.Contains(0))
	assert.True(t, night.Contains(5))
	assert.False(t, night.Contains(6))
	assert.False(t, night.Contains(21))

	morning, _ := PeriodByName("morning")
	assert.True(t, morning.Contains(6))
	assert.False(t, morning.Contains(10))
}

func TestFilterApply(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"empty matches all", Filter{}, len(sample)},
		{"year", Filter{Years: []int{2022}}, 1},
		{"location case-insensitive", Filter{Locations: []string{"griffith avenue"}}, 2},
		{"season", Filter{Seasons: []string{"Summer"}}, 2},
		{"weekday", Filter{Day: "monday"}, 4},
		{"night period", Filter{Period: "night"}, 2},
		{"combined", Filter{Years: []int{2021}, Locations: []string{"Charleville Mall"}, Period: "morning"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, tc.filter.Apply(sample), tc.want)
		})
	}
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{Seasons: []string{"winter"}, Day: "Sunday", Period: "evening"}.Validate())
	assert.Error(t, Filter{Seasons: []string{"Monsoon"}}.Validate())
	assert.Error(t, Filter{Day: "Funday"}.Validate())
	assert.Error(t, Filter{Period: "dawn"}.Validate())
}

func TestFilterKeyIsOrderInsensitive(t *testing.T) {
	a := Filter{Years: []int{2021, 2020}, Locations: []string{"B", "a"}}
	b := Filter{Years: []int{2020, 2021}, Locations: []string{"A", "b"}}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Filter{}.Key())
}

func TestSummarize(t *testing.T) {
	ov := Summarize(sample)
	assert.Equal(t, 424, ov.TotalCyclists)
	assert.Equal(t, 2021, ov.FirstYear)
	assert.Equal(t, 2022, ov.LastYear)
	assert.Equal(t, 2, ov.Locations)
	// Daily totals: 160, 4, 200, 60.
	assert.InDelta(t, 106.0, ov.AvgDailyCyclists, 1e-9)
}

func TestMergeDailyIsInnerJoin(t *testing.T) {
	rows := MergeDaily(sample, weather)
	require.Len(t, rows, 3)
	assert.Equal(t, at(2021, 1, 4, 0), rows[0].Date)
	assert.Equal(t, 160, rows[0].TotalCyclists)
	assert.Equal(t, 4, rows[1].TotalCyclists)
	assert.Equal(t, 200, rows[2].TotalCyclists)
	assert.InDelta(t, 10.0, rows[2].TempRange(), 1e-9)
}

func TestGroupedStats(t *testing.T) {
	rows := MergeDaily(sample, weather)

	monthly := Monthly(rows)
	require.Len(t, monthly, 2)
	assert.Equal(t, "January", monthly[0].Month)
	assert.InDelta(t, 82.0, monthly[0].AvgCyclists, 1e-9)
	assert.InDelta(t, 5.5, monthly[0].AvgTempMax, 1e-9)
	assert.InDelta(t, 5.0, monthly[0].AvgPrecipitation, 1e-9)

	seasonal := Seasonal(rows)
	require.Len(t, seasonal, 2)
	assert.Equal(t, "Winter", seasonal[0].Label)
	assert.Equal(t, "Summer", seasonal[1].Label)

	yearly := Yearly(rows)
	require.Len(t, yearly, 1)
	assert.Equal(t, "2021", yearly[0].Label)

	buckets := TempRanges(rows)
	require.Len(t, buckets, 2)
	assert.Equal(t, "4-6 °C", buckets[0].Label)
	assert.Equal(t, 2, buckets[0].Days)
	assert.Equal(t, "10-12 °C", buckets[1].Label)
}

func TestHourlyLocationsAndHeatmap(t *testing.T) {
	hourly := Hourly(sample)
	require.NotEmpty(t, hourly)
	assert.Equal(t, HourStat{Hour: 3, AvgCount: 4}, hourly[0])
	assert.Equal(t, HourStat{Hour: 8, AvgCount: 75}, hourly[1])

	locs := ByLocation(sample)
	require.Len(t, locs, 2)
	assert.Equal(t, LocationStat{Location: "Charleville Mall", Total: 314}, locs[0])

	hm := DayHourHeatmap(sample)
	assert.Equal(t, "Monday", hm.Days[0])
	require.NotNil(t, hm.Values[0][8])
	assert.InDelta(t, 75.0, *hm.Values[0][8], 1e-9)
	require.NotNil(t, hm.Values[5][12])
	assert.Nil(t, hm.Values[6][0])

	months := MonthlyCounts(sample)
	require.Len(t, months, 2)
	assert.Equal(t, "January", months[0].Label)
}

func TestCorrelations(t *testing.T) {
	rows := []DailyRow{
		{TotalCyclists: 100, TempMax: 10, Precipitation: 5},
		{TotalCyclists: 200, TempMax: 20, Precipitation: 2},
		{TotalCyclists: 300, TempMax: 30, Precipitation: 0},
	}
	c := Correlations(rows)
	assert.InDelta(t, 1.0, c["tempMax"], 1e-9)
	assert.Less(t, c["precipitation"], 0.0)
	_, hasPressure := c["pressure"]
	assert.False(t, hasPressure)
	_, hasHumidity := c["humidity"]
	assert.False(t, hasHumidity, "constant series has no correlation")
}

func TestServiceAnalyzeAndErrors(t *testing.T) {
	svc := NewService(sample, weather, time.Hour)
	require.True(t, svc.Available())

	report, err := svc.Analyze(Filter{Years: []int{2021}})
	require.NoError(t, err)
	assert.Equal(t, 364, report.Overview.TotalCyclists)
	assert.Len(t, report.Daily, 3)

	_, err = svc.Analyze(Filter{Years: []int{1999}})
	assert.ErrorIs(t, err, ErrNoMatches)

	_, err = svc.Overview(Filter{Day: "Caturday"})
	assert.Error(t, err)

	_, err = NewService(nil, nil, time.Hour).Overview(Filter{})
	assert.ErrorIs(t, err, ErrNoData)

	opts := svc.Options()
	assert.Equal(t, []int{2021, 2022}, opts.Years)
	assert.Equal(t, []string{"Charleville Mall", "Griffith Avenue"}, opts.Locations)
	assert.Len(t, opts.Periods, 5)
}

func TestServiceDropsWeatherOutsideRecordSpan(t *testing.T) {
	svc := NewService(sample[:4], weather, time.Hour)
	require.Len(t, svc.weather, 2)
	assert.Equal(t, at(2021, 1, 5, 0), svc.weather[1].Date)

	assert.Len(t, NewService(nil, weather, time.Hour).weather, len(weather))
}

func TestServiceAnalyzeCacheHitSkipsFiltering(t *testing.T) {
	svc := NewService(sample, weather, time.Hour)
	first, err := svc.Analyze(Filter{Years: []int{2021}, Seasons: []string{"Winter", "Summer"}})
	require.NoError(t, err)

	// A hit must not touch the records.
	svc.records = nil
	second, err := svc.Analyze(Filter{Seasons: []string{"summer", "winter"}, Years: []int{2021}})
	require.NoError(t, err)
	assert.Equal(t, first.Overview, second.Overview)

	_, err = svc.Analyze(Filter{Years: []int{2022}})
	assert.ErrorIs(t, err, ErrNoData)
}
