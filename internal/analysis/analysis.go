// Package analysis relates Dublin bicycle counts to daily weather.
package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
)

// Overview holds headline metrics for a set of bicycle records.
type Overview struct {
	TotalCyclists    int     `json:"totalCyclists"`
	AvgDailyCyclists float64 `json:"avgDailyCyclists"`
	FirstYear        int     `json:"firstYear"`
	LastYear         int     `json:"lastYear"`
	Records          int     `json:"records"`
	Locations        int     `json:"locations"`
}

// Summarize computes the overview. Average daily cyclists is the mean of the
// per-date totals.
func Summarize(records []dataset.BicycleRecord) Overview {
	if len(records) == 0 {
		return Overview{}
	}
	ov := Overview{Records: len(records), FirstYear: records[0].Year, LastYear: records[0].Year}
	locations := map[string]bool{}
	for _, r := range records {
		ov.TotalCyclists += r.Count
		locations[r.Location] = true
		if r.Year < ov.FirstYear {
			ov.FirstYear = r.Year
		}
		if r.Year > ov.LastYear {
			ov.LastYear = r.Year
		}
	}
	ov.Locations = len(locations)

	totals := dailyTotals(records)
	values := make([]float64, 0, len(totals))
	for _, v := range totals {
		values = append(values, float64(v))
	}
	ov.AvgDailyCyclists = stat.Mean(values, nil)
	return ov
}

func dailyTotals(records []dataset.BicycleRecord) map[time.Time]int {
	totals := make(map[time.Time]int)
	for _, r := range records {
		totals[r.Date] += r.Count
	}
	return totals
}

// DailyRow is one date present in both the bicycle and weather data.
type DailyRow struct {
	Date          time.Time `json:"date"`
	TotalCyclists int       `json:"totalCyclists"`
	TempMax       float64   `json:"tempMax"`
	TempMin       float64   `json:"tempMin"`
	TempMean      float64   `json:"tempMean"`
	Precipitation float64   `json:"precipitation"`
	Humidity      float64   `json:"humidity"`
	Pressure      *float64  `json:"pressure,omitempty"`
}

// TempRange is the daily max minus min temperature.
func (d DailyRow) TempRange() float64 { return d.TempMax - d.TempMin }

// MergeDaily sums bicycle counts per date and inner-joins them with daily
// weather on the date. Output is ordered by date.
func MergeDaily(records []dataset.BicycleRecord, weather []dataset.DailyWeather) []DailyRow {
	totals := dailyTotals(records)
	var out []DailyRow
	for _, w := range weather {
		total, ok := totals[w.Date]
		if !ok {
			continue
		}
		out = append(out, DailyRow{
			Date:          w.Date,
			TotalCyclists: total,
			TempMax:       w.TempMax,
			TempMin:       w.TempMin,
			TempMean:      w.TempMean,
			Precipitation: w.Precipitation,
			Humidity:      w.Humidity,
			Pressure:      w.Pressure,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GroupStat is an average for a labelled group.
type GroupStat struct {
	Label       string  `json:"label"`
	AvgCyclists float64 `json:"avgCyclists"`
}

// MonthlyStat is the monthly average of merged daily rows.
type MonthlyStat struct {
	Month            string  `json:"month"`
	AvgCyclists      float64 `json:"avgCyclists"`
	AvgTempMax       float64 `json:"avgTempMax"`
	AvgPrecipitation float64 `json:"avgPrecipitation"`
}

// Monthly averages daily totals, max temperature and precipitation per
// calendar month, January first. Months without data are omitted.
func Monthly(rows []DailyRow) []MonthlyStat {
	type acc struct{ cyclists, temp, rain []float64 }
	var months [12]acc
	for _, r := range rows {
		m := &months[r.Date.Month()-1]
		m.cyclists = append(m.cyclists, float64(r.TotalCyclists))
		m.temp = append(m.temp, r.TempMax)
		m.rain = append(m.rain, r.Precipitation)
	}
	var out []MonthlyStat
	for i, m := range months {
		if len(m.cyclists) == 0 {
			continue
		}
		out = append(out, MonthlyStat{
			Month:            time.Month(i + 1).String(),
			AvgCyclists:      stat.Mean(m.cyclists, nil),
			AvgTempMax:       stat.Mean(m.temp, nil),
			AvgPrecipitation: stat.Mean(m.rain, nil),
		})
	}
	return out
}

// Seasonal averages daily totals per season, Winter first.
func Seasonal(rows []DailyRow) []GroupStat {
	groups := map[string][]float64{}
	for _, r := range rows {
		s := dataset.Season(r.Date.Month())
		groups[s] = append(groups[s], float64(r.TotalCyclists))
	}
	return orderedGroups(groups, dataset.Seasons)
}

// Yearly averages daily totals per year, oldest first.
func Yearly(rows []DailyRow) []GroupStat {
	groups := map[string][]float64{}
	var years []string
	for _, r := range rows {
		y := r.Date.Format("2006")
		if _, ok := groups[y]; !ok {
			years = append(years, y)
		}
		groups[y] = append(groups[y], float64(r.TotalCyclists))
	}
	sort.Strings(years)
	return orderedGroups(groups, years)
}

func orderedGroups(groups map[string][]float64, order []string) []GroupStat {
	var out []GroupStat
	for _, label := range order {
		if vals := groups[label]; len(vals) > 0 {
			out = append(out, GroupStat{Label: label, AvgCyclists: stat.Mean(vals, nil)})
		}
	}
	return out
}

// HourStat is the mean count per record for an hour of day.
type HourStat struct {
	Hour     int     `json:"hour"`
	AvgCount float64 `json:"avgCount"`
}

// Hourly averages per-record counts by hour of day.
func Hourly(records []dataset.BicycleRecord) []HourStat {
	var sums, counts [24]float64
	for _, r := range records {
		sums[r.Hour] += float64(r.Count)
		counts[r.Hour]++
	}
	var out []HourStat
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			out = append(out, HourStat{Hour: h, AvgCount: sums[h] / counts[h]})
		}
	}
	return out
}

// LocationStat is the total count at one counter.
type LocationStat struct {
	Location string `json:"location"`
	Total    int    `json:"total"`
}

// ByLocation totals counts per location, largest first.
func ByLocation(records []dataset.BicycleRecord) []LocationStat {
	totals := map[string]int{}
	for _, r := range records {
		totals[r.Location] += r.Count
	}
	out := make([]LocationStat, 0, len(totals))
	for loc, total := range totals {
		out = append(out, LocationStat{Location: loc, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// MonthlyCounts averages per-record counts by month name, January first.
func MonthlyCounts(records []dataset.BicycleRecord) []GroupStat {
	groups := map[string][]float64{}
	for _, r := range records {
		groups[r.Month] = append(groups[r.Month], float64(r.Count))
	}
	order := make([]string, 12)
	for i := range order {
		order[i] = time.Month(i + 1).String()
	}
	return orderedGroups(groups, order)
}

// Heatmap is the mean per-record count by weekday (Monday first) and hour.
// Cells without records are nil.
type Heatmap struct {
	Days   []string        `json:"days"`
	Values [7][24]*float64 `json:"values"`
}

// DayHourHeatmap builds the weekday by hour average heatmap.
func DayHourHeatmap(records []dataset.BicycleRecord) Heatmap {
	var sums, counts [7][24]float64
	for _, r := range records {
		d := (int(r.Time.Weekday()) + 6) % 7 // Monday = 0
		sums[d][r.Hour] += float64(r.Count)
		counts[d][r.Hour]++
	}
	hm := Heatmap{Days: make([]string, len(Weekdays))}
	for i, d := range Weekdays {
		hm.Days[i] = d.String()
	}
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			if counts[d][h] > 0 {
				v := sums[d][h] / counts[d][h]
				hm.Values[d][h] = &v
			}
		}
	}
	return hm
}

// TempRangeBucket groups days by daily temperature spread.
type TempRangeBucket struct {
	Label       string  `json:"label"`
	From        float64 `json:"from"`
	To          float64 `json:"to"`
	Days        int     `json:"days"`
	AvgCyclists float64 `json:"avgCyclists"`
}

const tempRangeStep = 2.0

// TempRanges buckets merged days into 2 °C wide temperature-range bins.
func TempRanges(rows []DailyRow) []TempRangeBucket {
	groups := map[int][]float64{}
	var keys []int
	for _, r := range rows {
		k := int(math.Floor(math.Max(0, r.TempRange()) / tempRangeStep))
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], float64(r.TotalCyclists))
	}
	sort.Ints(keys)
	out := make([]TempRangeBucket, 0, len(keys))
	for _, k := range keys {
		from := float64(k) * tempRangeStep
		out = append(out, TempRangeBucket{
			Label:       formatRange(from, from+tempRangeStep),
			From:        from,
			To:          from + tempRangeStep,
			Days:        len(groups[k]),
			AvgCyclists: stat.Mean(groups[k], nil),
		})
	}
	return out
}

// Correlations returns the Pearson correlation of daily cyclist totals with
// each weather measure. Measures with fewer than three points or no variance
// are omitted.
func Correlations(rows []DailyRow) map[string]float64 {
	measures := map[string]func(DailyRow) (float64, bool){
		"tempMax":       func(r DailyRow) (float64, bool) { return r.TempMax, true },
		"tempMin":       func(r DailyRow) (float64, bool) { return r.TempMin, true },
		"tempMean":      func(r DailyRow) (float64, bool) { return r.TempMean, true },
		"tempRange":     func(r DailyRow) (float64, bool) { return r.TempRange(), true },
		"precipitation": func(r DailyRow) (float64, bool) { return r.Precipitation, true },
		"humidity":      func(r DailyRow) (float64, bool) { return r.Humidity, true },
		"pressure": func(r DailyRow) (float64, bool) {
			if r.Pressure == nil {
				return 0, false
			}
			return *r.Pressure, true
		},
	}

	out := make(map[string]float64, len(measures))
	for name, get := range measures {
		var xs, ys []float64
		for _, r := range rows {
			if v, ok := get(r); ok {
				xs = append(xs, v)
				ys = append(ys, float64(r.TotalCyclists))
			}
		}
		if len(xs) < 3 {
			continue
		}
		c := stat.Correlation(xs, ys, nil)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		out[name] = c
	}
	return out
}
