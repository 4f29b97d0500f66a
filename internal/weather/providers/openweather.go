package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	openWeatherCurrentURL = "https://api.openweathermap.org/data/2.5/weather"
	openWeatherGeoURL     = "https://api.openweathermap.org/geo/1.0/direct"

	suggestionLimit = 5
	unknown         = "Unknown"
)

// OpenWeatherProvider implements weather.Provider, weather.Geocoder and
// weather.Suggester on top of the OpenWeatherMap current-weather and
// direct-geocoding endpoints.
type OpenWeatherProvider struct {
	name       string
	apiKey     string
	currentURL string
	geoURL     string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	now        func() time.Time
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:       "openweathermap",
		apiKey:     apiKey,
		currentURL: openWeatherCurrentURL,
		geoURL:     openWeatherGeoURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openweather"),
		now:     time.Now,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// currentPayload mirrors the subset of the /data/2.5/weather response we use.
// Pointers distinguish missing fields from zero values.
type currentPayload struct {
	Name  string `json:"name"`
	Coord *struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Sys *struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Pressure  *float64 `json:"pressure"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds *struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches the current conditions for city in metric units.
func (p *OpenWeatherProvider) Current(ctx context.Context, city string) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		return http.NewRequest(http.MethodGet, p.currentURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}

	var payload currentPayload
	if err := decodeJSON(resp, &payload); err != nil {
		return weather.Snapshot{}, err
	}

	snap := formatSnapshot(payload, p.now().UTC())
	if snap.City == "" {
		snap.City = city
	}
	return snap, nil
}

// formatSnapshot flattens the provider payload. Missing numeric fields stay nil;
// missing textual fields become "Unknown".
func formatSnapshot(p currentPayload, now time.Time) weather.Snapshot {
	snap := weather.Snapshot{
		City:        p.Name,
		Country:     unknown,
		Timestamp:   now,
		Main:        unknown,
		Description: unknown,
	}
	if p.Sys != nil && p.Sys.Country != "" {
		snap.Country = p.Sys.Country
	}
	if len(p.Weather) > 0 {
		snap.Main = p.Weather[0].Main
		snap.Description = p.Weather[0].Description
	}
	if p.Main != nil {
		snap.Temperature = p.Main.Temp
		snap.FeelsLike = p.Main.FeelsLike
		snap.TempMin = p.Main.TempMin
		snap.TempMax = p.Main.TempMax
		snap.Pressure = p.Main.Pressure
		snap.Humidity = p.Main.Humidity
	}
	if p.Wind != nil {
		snap.WindSpeed = p.Wind.Speed
		snap.WindDeg = p.Wind.Deg
	}
	if p.Clouds != nil {
		snap.Clouds = p.Clouds.All
	}
	if p.Coord != nil {
		snap.Latitude = p.Coord.Lat
		snap.Longitude = p.Coord.Lon
	}
	return snap
}

type geoResult struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (p *OpenWeatherProvider) geocode(ctx context.Context, query string, limit int) ([]geoResult, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("appid", p.apiKey)
		values.Set("limit", fmt.Sprint(limit))
		return http.NewRequest(http.MethodGet, p.geoURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var results []geoResult
	if err := decodeJSON(resp, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Coordinates returns the first direct-geocoding match for city.
func (p *OpenWeatherProvider) Coordinates(ctx context.Context, city string) (weather.Coordinates, error) {
	results, err := p.geocode(ctx, city, 1)
	if err != nil {
		return weather.Coordinates{}, err
	}
	if len(results) == 0 {
		return weather.Coordinates{}, fmt.Errorf("openweather: no coordinates for %q", city)
	}
	return weather.Coordinates{Lat: results[0].Lat, Lon: results[0].Lon}, nil
}

// Suggest returns up to five "name, state, country" labels for query.
func (p *OpenWeatherProvider) Suggest(ctx context.Context, query string) ([]string, error) {
	if len([]rune(strings.TrimSpace(query))) < weather.MinSuggestQueryLen {
		return []string{}, nil
	}
	results, err := p.geocode(ctx, query, suggestionLimit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Name == "" {
			continue
		}
		parts := []string{r.Name}
		if r.State != "" {
			parts = append(parts, r.State)
		}
		if r.Country != "" {
			parts = append(parts, r.Country)
		}
		out = append(out, strings.Join(parts, ", "))
	}
	return out, nil
}
