package httpapi

import (
	"io"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/charts"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/views"
)

func html(c *fiber.Ctx, status int) *fiber.Ctx {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status)
}

// pageError returns the status and inline message for a failed page request.
func pageError(err error) (int, string) {
	if err == nil {
		return fiber.StatusOK, ""
	}
	return classify(err)
}

func registerPages(app *fiber.App, s Services) {
	app.Get("/", func(c *fiber.Ctx) error {
		data := &views.DashboardData{Recent: s.Weather.Recent()}
		if s.Static != nil {
			data.Counties = s.Static.Counties()
		}
		ov, err := s.Bicycles.Overview(analysis.Filter{})
		if err != nil {
			_, data.BicycleError = pageError(err)
		} else {
			data.Overview = &ov
		}
		return views.RenderDashboard(html(c, fiber.StatusOK), data)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		data := &views.WeatherData{City: c.Query("city")}
		status := fiber.StatusOK
		if data.City != "" {
			snap, err := s.Weather.Current(c.UserContext(), data.City)
			if err != nil {
				status, data.Error = pageError(err)
			} else {
				data.Snapshot = &snap
			}
		}
		data.Recent = s.Weather.Recent()
		return views.RenderWeather(html(c, status), data)
	})

	app.Get("/forecast", func(c *fiber.Ctx) error {
		data := &views.ForecastData{Counties: s.countyNames(), Days: forecast.MaxHorizon}
		status := fiber.StatusOK

		var q forecastQuery
		if c.Query("county") == "" {
			if len(data.Counties) > 0 {
				data.County = data.Counties[0]
			}
		} else if err := q.bind(c, forecast.MaxHorizon); err != nil {
			status, data.Error = fiber.StatusBadRequest, err.Error()
		} else {
			data.County, data.Days = s.countyName(q.County), q.Days
		}

		if data.County != "" && data.Error == "" {
			fc, err := s.forecast(data.County, data.Days)
			if err != nil {
				status, data.Error = pageError(err)
			} else {
				data.Forecast = &fc
				query := url.Values{"days": {strconv.Itoa(data.Days)}}
				base := "/charts/forecast/" + url.PathEscape(fc.County)
				data.Charts = []views.ChartLink{
					views.NewChartLink("Temperature", base+"/temperature", query),
					views.NewChartLink("Rainfall", base+"/rainfall", query),
				}
			}
		}
		return views.RenderForecast(html(c, status), data)
	})

	app.Get("/bicycles", func(c *fiber.Ctx) error {
		data := &views.BicyclesData{Options: s.Bicycles.Options()}
		status := fiber.StatusOK

		f, err := parseFilter(c)
		if err == nil {
			data.Filter = f
			var report analysis.Report
			report, err = s.Bicycles.Analyze(f)
			if err == nil {
				data.Report = &report
				data.Charts = bicycleCharts(c.Context().QueryArgs().String())
			}
		}
		if err != nil {
			status, data.Error = pageError(err)
		}
		return views.RenderBicycles(html(c, status), data)
	})
}

var bicycleChartPages = []struct{ title, path string }{
	{"Hourly pattern", "hourly"},
	{"Day and hour", "heatmap"},
	{"By location", "locations"},
	{"Monthly", "monthly"},
	{"Seasonal", "seasonal"},
	{"Temperature", "temperature"},
	{"Precipitation", "precipitation"},
}

func bicycleCharts(rawQuery string) []views.ChartLink {
	query, _ := url.ParseQuery(rawQuery)
	links := make([]views.ChartLink, len(bicycleChartPages))
	for i, p := range bicycleChartPages {
		links[i] = views.NewChartLink(p.title, "/charts/bicycles/"+p.path, query)
	}
	return links
}

func registerCharts(g fiber.Router, s Services) {
	forecastChart := func(draw func(io.Writer, forecast.Forecast) error) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var q forecastQuery
			if err := q.bind(c, forecast.MaxHorizon); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			fc, err := s.forecast(q.County, q.Days)
			if err != nil {
				return err
			}
			return draw(html(c, fiber.StatusOK), fc)
		}
	}
	g.Get("/forecast/:county/temperature", forecastChart(charts.ForecastTemperature))
	g.Get("/forecast/:county/rainfall", forecastChart(charts.ForecastRainfall))

	bicycleChart := func(draw func(io.Writer, analysis.Report) error) fiber.Handler {
		return func(c *fiber.Ctx) error {
			f, err := parseFilter(c)
			if err != nil {
				return err
			}
			report, err := s.Bicycles.Analyze(f)
			if err != nil {
				return err
			}
			return draw(html(c, fiber.StatusOK), report)
		}
	}
	b := g.Group("/bicycles")
	b.Get("/hourly", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleHourly(w, r.Hourly) }))
	b.Get("/locations", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleLocations(w, r.Locations) }))
	b.Get("/monthly", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleMonthly(w, r.Monthly) }))
	b.Get("/heatmap", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleHeatmap(w, r.Heatmap) }))
	b.Get("/temperature", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleTemperature(w, r.Daily) }))
	b.Get("/precipitation", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicyclePrecipitation(w, r.Daily) }))
	b.Get("/seasonal", bicycleChart(func(w io.Writer, r analysis.Report) error { return charts.BicycleSeasonal(w, r.Seasonal) }))
}
