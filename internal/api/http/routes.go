package httpapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
)

var validate = validator.New()

// Services are the components behind the HTTP surface. Counties may be nil
// when the county weather file could not be loaded.
type Services struct {
	Weather    *weather.Service
	Forecaster *forecast.Forecaster
	Static     *forecast.StaticTable
	Counties   *dataset.CountyWeather
	Bicycles   *analysis.Service
}

// countyName resolves a county to its canonical spelling.
func (s Services) countyName(county string) string {
	if s.Static != nil {
		if c, ok := s.Static.County(county); ok {
			return c.Name
		}
	}
	for _, n := range s.Counties.Counties() {
		if strings.EqualFold(n, county) {
			return n
		}
	}
	return county
}

func (s Services) forecast(county string, days int) (forecast.Forecast, error) {
	name := s.countyName(county)
	return s.Forecaster.PredictCountyWeather(name, s.Counties.Daily(name), days)
}

// countyInfo describes a county that can be forecast.
type countyInfo struct {
	Name       string   `json:"name"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	HasHistory bool     `json:"hasHistory"`
	HasStatic  bool     `json:"hasStatic"`
}

// counties merges the static table with counties present in the dataset.
func (s Services) counties() []countyInfo {
	var out []countyInfo
	index := map[string]int{}
	if s.Static != nil {
		for _, c := range s.Static.Counties() {
			lat, lon := c.Lat, c.Lon
			index[strings.ToLower(c.Name)] = len(out)
			out = append(out, countyInfo{Name: c.Name, Lat: &lat, Lon: &lon, HasStatic: true})
		}
	}
	for _, n := range s.Counties.Counties() {
		if i, ok := index[strings.ToLower(n)]; ok {
			out[i].HasHistory = true
			continue
		}
		index[strings.ToLower(n)] = len(out)
		out = append(out, countyInfo{Name: n, HasHistory: true})
	}
	return out
}

func (s Services) countyNames() []string {
	infos := s.counties()
	names := make([]string, len(infos))
	for i, c := range infos {
		names[i] = c.Name
	}
	return names
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, s Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weather-cycle-dashboard",
			"bicycles": s.Bicycles.Available(),
			"counties": len(s.Counties.Counties()),
		})
	})

	v1 := app.Group("/api/v1")
	registerWeather(v1, s)
	registerForecast(v1, s)
	registerBicycles(v1, s)

	registerPages(app, s)
	registerCharts(app.Group("/charts"), s)
}

func registerWeather(v1 fiber.Router, s Services) {
	w := v1.Group("/weather")

	w.Get("/current", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		snap, err := s.Weather.Current(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"snapshot":  snap,
			"condition": snap.Condition(),
			"icon":      snap.Icon(),
			"observed":  weather.FormatTimestamp(snap.Timestamp),
		})
	})

	w.Get("/latest", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		snap, err := s.Weather.Latest(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"snapshot":  snap,
			"condition": snap.Condition(),
			"icon":      snap.Icon(),
			"observed":  weather.FormatTimestamp(snap.Timestamp),
		})
	})

	w.Get("/suggest", func(c *fiber.Ctx) error {
		suggestions, err := s.Weather.Suggest(c.UserContext(), c.Query("q"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"suggestions": suggestions})
	})

	w.Get("/coordinates", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		coords, err := s.Weather.Coordinates(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"city": q.City, "coordinates": coords})
	})

	w.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := s.Weather.History(c.UserContext(), req.Location.City, req.From, req.To)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"city":      req.Location.City,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	w.Get("/cities", func(c *fiber.Ctx) error {
		cities, err := s.Weather.Cities(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"cities": cities})
	})

	w.Get("/recent", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"recent": s.Weather.Recent()})
	})
}

func registerForecast(v1 fiber.Router, s Services) {
	v1.Get("/counties", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"counties": s.counties()})
	})

	v1.Get("/counties/:county/forecast", func(c *fiber.Ctx) error {
		var q forecastQuery
		if err := q.bind(c, 0); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fc, err := s.forecast(q.County, q.Days)
		if err != nil {
			return err
		}
		return c.JSON(fc)
	})
}

func registerBicycles(v1 fiber.Router, s Services) {
	b := v1.Group("/bicycles")

	b.Get("/options", func(c *fiber.Ctx) error {
		if !s.Bicycles.Available() {
			return analysis.ErrNoData
		}
		return c.JSON(s.Bicycles.Options())
	})

	b.Get("/overview", func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		ov, err := s.Bicycles.Overview(f)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"filter": f, "overview": ov})
	})

	b.Get("/analysis", func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		report, err := s.Bicycles.Analyze(f)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})
}
