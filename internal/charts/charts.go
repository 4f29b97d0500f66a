// Package charts renders forecast and bicycle analysis charts as standalone
// go-echarts HTML pages.
package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
)

const (
	width  = "900px"
	height = "450px"

	dateLayout = "Jan 02"
)

func base(pageTitle, title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: width, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
	}
}

// ForecastTemperature draws the forecast temperature with its lower and
// upper band.
func ForecastTemperature(w io.Writer, fc forecast.Forecast) error {
	line := charts.NewLine()
	title := fc.County + " temperature forecast"
	line.SetGlobalOptions(append(base(title, title, "source: "+fc.Source),
		charts.WithYAxisOpts(opts.YAxis{Name: "°C"}),
	)...)

	days := make([]string, len(fc.Rows))
	temp := make([]opts.LineData, len(fc.Rows))
	lower := make([]opts.LineData, len(fc.Rows))
	upper := make([]opts.LineData, len(fc.Rows))
	for i, r := range fc.Rows {
		days[i] = r.Date.Format(dateLayout)
		temp[i] = opts.LineData{Value: round2(r.Temp)}
		lower[i] = opts.LineData{Value: round2(r.TempLower)}
		upper[i] = opts.LineData{Value: round2(r.TempUpper)}
	}

	dashed := charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: 0.6})
	line.SetXAxis(days).
		AddSeries("Temperature", temp, charts.WithLineChartOpts(opts.LineChart{Smooth: true})).
		AddSeries("Lower", lower, dashed).
		AddSeries("Upper", upper, dashed)
	return line.Render(w)
}

// ForecastRainfall draws forecast daily rainfall as bars.
func ForecastRainfall(w io.Writer, fc forecast.Forecast) error {
	bar := charts.NewBar()
	title := fc.County + " rainfall forecast"
	bar.SetGlobalOptions(append(base(title, title, "source: "+fc.Source),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm"}),
	)...)

	days := make([]string, len(fc.Rows))
	rain := make([]opts.BarData, len(fc.Rows))
	for i, r := range fc.Rows {
		days[i] = r.Date.Format(dateLayout)
		rain[i] = opts.BarData{Value: round2(r.Rain)}
	}
	bar.SetXAxis(days).AddSeries("Rainfall", rain)
	return bar.Render(w)
}

// BicycleHourly draws the average count per hour of day.
func BicycleHourly(w io.Writer, stats []analysis.HourStat) error {
	line := charts.NewLine()
	line.SetGlobalOptions(append(base("Hourly cycling", "Average cyclists by hour of day", ""),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cyclists"}),
	)...)

	hours := make([]string, len(stats))
	data := make([]opts.LineData, len(stats))
	for i, s := range stats {
		hours[i] = fmt.Sprintf("%02d:00", s.Hour)
		data[i] = opts.LineData{Value: round2(s.AvgCount)}
	}
	line.SetXAxis(hours).AddSeries("Average count", data, charts.WithLineChartOpts(opts.LineChart{Smooth: true}))
	return line.Render(w)
}

// BicycleLocations draws total counts per counter location.
func BicycleLocations(w io.Writer, stats []analysis.LocationStat) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(base("Cycling by location", "Total cyclists by location", ""),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cyclists"}),
	)...)

	names := make([]string, len(stats))
	data := make([]opts.BarData, len(stats))
	for i, s := range stats {
		names[i] = s.Location
		data[i] = opts.BarData{Value: s.Total}
	}
	bar.SetXAxis(names).AddSeries("Total", data)
	return bar.Render(w)
}

// BicycleMonthly draws average daily cyclists per month with the average
// maximum temperature on a second axis.
func BicycleMonthly(w io.Writer, stats []analysis.MonthlyStat) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(base("Monthly cycling", "Monthly cyclists and temperature", ""),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cyclists"}),
	)...)
	bar.ExtendYAxis(opts.YAxis{Name: "°C"})

	months := make([]string, len(stats))
	cyclists := make([]opts.BarData, len(stats))
	temps := make([]opts.LineData, len(stats))
	for i, s := range stats {
		months[i] = s.Month
		cyclists[i] = opts.BarData{Value: round2(s.AvgCyclists)}
		temps[i] = opts.LineData{Value: round2(s.AvgTempMax)}
	}
	bar.SetXAxis(months).AddSeries("Avg daily cyclists", cyclists)

	line := charts.NewLine()
	line.SetXAxis(months).AddSeries("Avg max temperature", temps,
		charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Smooth: true}))
	bar.Overlap(line)
	return bar.Render(w)
}

// BicycleHeatmap draws the weekday by hour average count grid.
func BicycleHeatmap(w io.Writer, hm analysis.Heatmap) error {
	heat := charts.NewHeatMap()

	hours := make([]string, 24)
	for h := range hours {
		hours[h] = fmt.Sprintf("%02d", h)
	}
	var data []opts.HeatMapData
	peak := 0.0
	for d := range hm.Days {
		for h := 0; h < 24; h++ {
			v := hm.Values[d][h]
			if v == nil {
				continue
			}
			peak = math.Max(peak, *v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{h, d, round2(*v)}})
		}
	}

	heat.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Cycling heatmap", Width: width, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: "Average cyclists by day and hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: hours, Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: hm.Days}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        0,
			Max:        float32(math.Ceil(peak)),
			InRange:    &opts.VisualMapInRange{Color: []string{"#f7fbff", "#6baed6", "#08306b"}},
		}),
	)
	heat.SetXAxis(hours).AddSeries("Average count", data)
	return heat.Render(w)
}

// BicycleTemperature scatters daily cyclist totals against max temperature.
func BicycleTemperature(w io.Writer, rows []analysis.DailyRow) error {
	return dailyScatter(w, rows, "Cyclists vs temperature", "Max temperature (°C)",
		func(r analysis.DailyRow) float64 { return r.TempMax })
}

// BicyclePrecipitation scatters daily cyclist totals against rainfall.
func BicyclePrecipitation(w io.Writer, rows []analysis.DailyRow) error {
	return dailyScatter(w, rows, "Cyclists vs precipitation", "Precipitation (mm)",
		func(r analysis.DailyRow) float64 { return r.Precipitation })
}

func dailyScatter(w io.Writer, rows []analysis.DailyRow, title, xName string, x func(analysis.DailyRow) float64) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: width, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Daily cyclists"}),
	)

	data := make([]opts.ScatterData, len(rows))
	for i, r := range rows {
		data[i] = opts.ScatterData{
			Name:  r.Date.Format("2006-01-02"),
			Value: []interface{}{round2(x(r)), r.TotalCyclists},
		}
	}
	scatter.AddSeries("Days", data)
	return scatter.Render(w)
}

// BicycleSeasonal draws average daily cyclists per season.
func BicycleSeasonal(w io.Writer, stats []analysis.GroupStat) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(base("Seasonal cycling", "Average daily cyclists by season", ""),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cyclists"}),
	)...)

	labels := make([]string, len(stats))
	data := make([]opts.BarData, len(stats))
	for i, s := range stats {
		labels[i] = s.Label
		data[i] = opts.BarData{Value: round2(s.AvgCyclists)}
	}
	bar.SetXAxis(labels).AddSeries("Avg daily cyclists", data)
	return bar.Render(w)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
