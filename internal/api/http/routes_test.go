package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/store"
	"github.com/i474232898/weather-cycle-dashboard/internal/views"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather/providers"
)

func TestMain(m *testing.M) {
	if err := views.LoadTemplates(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type stubProvider struct {
	errs map[string]error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Current(_ context.Context, city string) (weather.Snapshot, error) {
	if err := p.errs[strings.ToLower(city)]; err != nil {
		return weather.Snapshot{}, err
	}
	temp := 12.5
	return weather.Snapshot{
		City:        city,
		Country:     "IE",
		Timestamp:   time.Now().UTC(),
		Temperature: &temp,
		Main:        "Clouds",
		Description: "broken clouds",
	}, nil
}

func bikeRecord(ts time.Time, loc string, count int) dataset.BicycleRecord {
	return dataset.BicycleRecord{
		Time: ts, Location: loc, Count: count, Date: dataset.DateOf(ts), Hour: ts.Hour(),
		Day: ts.Weekday().String(), Month: ts.Month().String(), Season: dataset.Season(ts.Month()), Year: ts.Year(),
	}
}

func newTestApp(t *testing.T, withBicycles bool) *fiber.App {
	t.Helper()

	provider := stubProvider{errs: map[string]error{
		"atlantis": &providers.APIError{StatusCode: http.StatusNotFound, Message: "city not found"},
		"nokey":    fmt.Errorf("openweather: %w", providers.ErrMissingAPIKey),
	}}
	memStore := store.NewMemoryStore(10, time.Hour)
	svc := weather.NewService(memStore, provider, nil, weather.CacheTTLs{Current: time.Minute})

	table, err := forecast.LoadStaticTable()
	require.NoError(t, err)

	countyRecords := []dataset.CountyRecord{
		{County: "Leitrim", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Temp: 5},
	}

	var records []dataset.BicycleRecord
	var daily []dataset.DailyWeather
	if withBicycles {
		records = []dataset.BicycleRecord{
			bikeRecord(time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC), "Charleville Mall", 100),
			bikeRecord(time.Date(2021, 7, 10, 12, 0, 0, 0, time.UTC), "Griffith Avenue", 200),
		}
		daily = []dataset.DailyWeather{
			{Date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), TempMax: 6, Precipitation: 4},
			{Date: time.Date(2021, 7, 10, 0, 0, 0, 0, time.UTC), TempMax: 22},
		}
	}

	app := fiber.New(fiber.Config{
		Immutable:    true,
		ErrorHandler: ErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	RegisterRoutes(app, Services{
		Weather:    svc,
		Forecaster: forecast.NewForecaster(forecast.Config{}, table),
		Static:     table,
		Counties:   dataset.NewCountyWeather(countyRecords),
		Bicycles:   analysis.NewService(records, daily, time.Minute),
	})
	return app
}

func do(t *testing.T, app *fiber.App, target string) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	assert.True(t, e.Error)
	return e
}

// TestForecastDaysValidation verifies that the forecast endpoint enforces the
// expected 1-5 range for the `days` query parameter.
func TestForecastDaysValidation(t *testing.T) {
	app := newTestApp(t, false)

	for _, q := range []string{"", "?days=0", "?days=6", "?days=abc"} {
		resp, body := do(t, app, "/api/v1/counties/Cork/forecast"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", q)
		decodeError(t, body)
	}

	resp, body := do(t, app, "/api/v1/counties/cork/forecast?days=3")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var fc forecast.Forecast
	require.NoError(t, json.Unmarshal([]byte(body), &fc))
	assert.Equal(t, "Cork", fc.County)
	assert.Equal(t, forecast.SourceStatic, fc.Source)
	require.Len(t, fc.Rows, 3)
	assert.Equal(t, 11.87, fc.Rows[0].Temp)
}

func TestForecastErrors(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := do(t, app, "/api/v1/counties/Atlantis/forecast?days=2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	decodeError(t, body)

	// One day of history, no static entry.
	resp, _ = do(t, app, "/api/v1/counties/Leitrim/forecast?days=2")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCounties(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := do(t, app, "/api/v1/counties")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Counties []countyInfo `json:"counties"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Len(t, payload.Counties, 15)
	last := payload.Counties[len(payload.Counties)-1]
	assert.Equal(t, "Leitrim", last.Name)
	assert.True(t, last.HasHistory)
	assert.False(t, last.HasStatic)
	assert.Nil(t, last.Lat)
	assert.True(t, payload.Counties[0].HasStatic)
}

func TestCurrentWeather(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := do(t, app, "/api/v1/weather/current")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeError(t, body)

	resp, body = do(t, app, "/api/v1/weather/current?city=Dublin")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"condition":"cloudy"`)
	assert.Contains(t, body, `"temperatureC":12.5`)

	resp, body = do(t, app, "/api/v1/weather/current?city=Atlantis")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "city not found", decodeError(t, body).Message)

	resp, body = do(t, app, "/api/v1/weather/current?city=nokey")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, decodeError(t, body).Message, "OPENWEATHER_API_KEY")

	resp, body = do(t, app, "/api/v1/weather/recent")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"recent":["Dublin"]}`, body)

	resp, body = do(t, app, "/api/v1/weather/cities")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cities":["Dublin"]}`, body)

	resp, body = do(t, app, "/api/v1/weather/suggest?q=du")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"suggestions":[]}`, body)
}

func TestRecentSearchesAcrossRequests(t *testing.T) {
	app := newTestApp(t, false)

	for _, city := range []string{"Dublin", "Galway", "XXXXXX"} {
		resp, body := do(t, app, "/api/v1/weather/current?city="+city)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}

	_, body := do(t, app, "/api/v1/weather/recent")
	assert.JSONEq(t, `{"recent":["XXXXXX","Galway","Dublin"]}`, body)

	_, body = do(t, app, "/api/v1/weather/cities")
	assert.JSONEq(t, `{"cities":["Dublin","Galway","XXXXXX"]}`, body)
}

func TestLatestWeather(t *testing.T) {
	app := newTestApp(t, false)

	resp, _ := do(t, app, "/api/v1/weather/latest")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, app, "/api/v1/weather/latest?city=Cork")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	decodeError(t, body)

	_, _ = do(t, app, "/api/v1/weather/current?city=Cork")
	resp, body = do(t, app, "/api/v1/weather/latest?city=cork")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"city":"Cork"`)
	assert.Contains(t, body, `"condition":"cloudy"`)
}

func TestWeatherHistory(t *testing.T) {
	app := newTestApp(t, false)

	resp, _ := do(t, app, "/api/v1/weather/history?city=Dublin&from=yesterday&to=now")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "/api/v1/weather/history?city=Dublin&from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, app, "/api/v1/weather/history?city=Dublin&from=0&to=1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	decodeError(t, body)

	_, _ = do(t, app, "/api/v1/weather/current?city=Dublin")
	from := time.Now().Add(-time.Hour).Unix()
	to := time.Now().Add(time.Hour).Unix()
	resp, body = do(t, app, fmt.Sprintf("/api/v1/weather/history?city=dublin&from=%d&to=%d", from, to))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"broken clouds"`)
}

func TestBicycleEndpoints(t *testing.T) {
	app := newTestApp(t, true)

	resp, body := do(t, app, "/api/v1/bicycles/overview?years=2021&seasons=Winter,Summer")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"totalCyclists":300`)

	resp, body = do(t, app, "/api/v1/bicycles/analysis?locations=Griffith%20Avenue")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, 200, report.Overview.TotalCyclists)
	assert.Len(t, report.Daily, 1)

	cases := map[string]int{
		"/api/v1/bicycles/analysis?period=dawn":   http.StatusBadRequest,
		"/api/v1/bicycles/analysis?years=twenty":  http.StatusBadRequest,
		"/api/v1/bicycles/analysis?day=Caturday":  http.StatusBadRequest,
		"/api/v1/bicycles/analysis?seasons=Wet":   http.StatusBadRequest,
		"/api/v1/bicycles/analysis?years=1999":    http.StatusNotFound,
		"/api/v1/bicycles/overview?period=Night":  http.StatusNotFound,
		"/api/v1/bicycles/overview?day=Saturday":  http.StatusOK,
		"/api/v1/bicycles/options":                http.StatusOK,
		"/charts/bicycles/heatmap?years=2021":     http.StatusOK,
		"/charts/bicycles/temperature?years=1999": http.StatusNotFound,
	}
	for target, want := range cases {
		resp, body := do(t, app, target)
		assert.Equal(t, want, resp.StatusCode, "%s: %s", target, body)
	}
}

func TestBicyclesWithoutData(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := do(t, app, "/api/v1/bicycles/overview")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, analysis.ErrNoData.Error(), decodeError(t, body).Message)

	resp, body = do(t, app, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, analysis.ErrNoData.Error())
}

func TestPages(t *testing.T) {
	app := newTestApp(t, true)

	resp, body := do(t, app, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.Contains(t, body, "Dashboard")
	assert.Contains(t, body, "Carlow")

	resp, body = do(t, app, "/weather?city=Atlantis")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "city not found")

	resp, body = do(t, app, "/weather?city=Galway")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "broken clouds")

	resp, body = do(t, app, "/forecast?county=Galway&days=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Source: static")
	assert.Contains(t, body, "/charts/forecast/Galway/temperature?days=2")

	resp, body = do(t, app, "/forecast?county=Galway&days=9")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `class="error"`)

	resp, body = do(t, app, "/bicycles?years=2021&period=morning")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/charts/bicycles/hourly?period=morning&amp;years=2021")

	resp, body = do(t, app, "/charts/forecast/Galway/rainfall?days=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Galway rainfall forecast")

	resp, body = do(t, app, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{weather.ErrCityRequired, fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), fiber.StatusNotFound},
		{&providers.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid API key"}, fiber.StatusBadGateway},
		{&providers.APIError{StatusCode: http.StatusTooManyRequests}, fiber.StatusTooManyRequests},
		{fmt.Errorf("%w: open", providers.ErrCircuitOpen), fiber.StatusServiceUnavailable},
		{fmt.Errorf("%w: 503", providers.ErrUpstream), fiber.StatusBadGateway},
		{forecast.ErrInvalidDays, fiber.StatusBadRequest},
		{fmt.Errorf("x: %w", forecast.ErrInsufficientHistory), fiber.StatusUnprocessableEntity},
		{analysis.ErrNoMatches, fiber.StatusNotFound},
		{io.ErrUnexpectedEOF, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, msg := classify(tc.err)
		assert.Equal(t, tc.want, code, tc.err.Error())
		assert.NotEmpty(t, msg)
	}

	_, msg := classify(io.ErrUnexpectedEOF)
	assert.Equal(t, "internal server error", msg)
}
