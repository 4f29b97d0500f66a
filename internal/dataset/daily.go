package dataset

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DailyWeather is one day of aggregated county observations.
type DailyWeather struct {
	Date          time.Time
	TempMax       float64
	TempMin       float64
	TempMean      float64
	Precipitation float64 // sum of hourly rain
	Humidity      float64 // mean
	// HumidityMeasured is true when every observation of the day had humidity.
	HumidityMeasured bool
	Pressure         *float64 // mean, nil when no observation had msl
}

// TempRange is the spread between the daily max and min temperature.
func (d DailyWeather) TempRange() float64 {
	return d.TempMax - d.TempMin
}

// AggregateDaily groups records by calendar day, oldest first.
func AggregateDaily(records []CountyRecord) []DailyWeather {
	if len(records) == 0 {
		return nil
	}

	type bucket struct {
		temps, rain, hum, pressure []float64
		measured                   bool
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range records {
		day := DateOf(r.Time)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{measured: true}
			buckets[day] = b
		}
		b.temps = append(b.temps, r.Temp)
		b.rain = append(b.rain, r.Rain)
		b.hum = append(b.hum, r.Humidity)
		b.measured = b.measured && r.HumidityMeasured
		if r.Pressure != nil {
			b.pressure = append(b.pressure, *r.Pressure)
		}
	}

	out := make([]DailyWeather, 0, len(buckets))
	for day, b := range buckets {
		d := DailyWeather{
			Date:             day,
			TempMax:          floats.Max(b.temps),
			TempMin:          floats.Min(b.temps),
			TempMean:         stat.Mean(b.temps, nil),
			Precipitation:    floats.Sum(b.rain),
			Humidity:         stat.Mean(b.hum, nil),
			HumidityMeasured: b.measured,
		}
		if len(b.pressure) > 0 {
			p := stat.Mean(b.pressure, nil)
			d.Pressure = &p
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// FilterDaily keeps days within [from, to]. A zero bound is open.
func FilterDaily(days []DailyWeather, from, to time.Time) []DailyWeather {
	var out []DailyWeather
	for _, d := range days {
		if !from.IsZero() && d.Date.Before(DateOf(from)) {
			continue
		}
		if !to.IsZero() && d.Date.After(DateOf(to)) {
			continue
		}
		out = append(out, d)
	}
	return out
}
