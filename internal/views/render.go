package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
)

//go:embed templates
var viewsFS embed.FS

var pageTmpl *template.Template

var funcs = template.FuncMap{
	"icon": weather.IconFor,
	"when": weather.FormatTimestamp,
	"num": func(p *float64, unit string) string {
		if p == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.1f%s", *p, unit)
	},
	"day": func(r forecast.Row) string { return r.Date.Format("Mon 02 Jan") },
}

// loadTemplatesFromFS parses the page templates under dir.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pageTmpl, err = template.New("pages").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	return err
}

// LoadTemplates loads the embedded page templates. Call during startup
// before serving requests.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func render(w io.Writer, name string, data any) error {
	if pageTmpl == nil {
		return errors.New("page templates not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, name, data)
}

// ChartLink points at a rendered chart page.
type ChartLink struct {
	Title string
	URL   template.URL
}

// NewChartLink builds a link to path with the encoded query.
func NewChartLink(title, path string, query url.Values) ChartLink {
	u := path
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}
	return ChartLink{Title: title, URL: template.URL(u)}
}

type DashboardData struct {
	Recent       []string
	Counties     []forecast.County
	Overview     *analysis.Overview
	BicycleError string
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return render(w, "dashboard.html", data)
}

// WeatherData is the view model for the current weather page.
type WeatherData struct {
	City     string
	Snapshot *weather.Snapshot
	Error    string
	Recent   []string
}

func RenderWeather(w io.Writer, data *WeatherData) error {
	return render(w, "weather.html", data)
}

// ForecastData is the view model for the county forecast page.
type ForecastData struct {
	County   string
	Days     int
	Counties []string
	Forecast *forecast.Forecast
	Charts   []ChartLink
	Error    string
}

func RenderForecast(w io.Writer, data *ForecastData) error {
	return render(w, "forecast.html", data)
}

// BicyclesData is the view model for the bicycle analysis page.
type BicyclesData struct {
	Filter  analysis.Filter
	Options analysis.Options
	Report  *analysis.Report
	Charts  []ChartLink
	Error   string
}

// Selected reports whether v is one of the filter's selected values.
func (b *BicyclesData) Selected(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// YearSelected reports whether year is in the filter.
func (b *BicyclesData) YearSelected(year int) bool {
	for _, y := range b.Filter.Years {
		if y == year {
			return true
		}
	}
	return false
}

func RenderBicycles(w io.Writer, data *BicyclesData) error {
	return render(w, "bicycles.html", data)
}
