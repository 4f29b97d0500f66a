package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
)

// geocoder.ApiKey is package-global.
var googleKeyMu sync.Mutex

// GoogleGeocoder resolves city names through the Google Geocoding API.
// It is used as a fallback when the OpenWeatherMap geocoder has no match.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

// Coordinates accepts "City" or "City, Country".
func (g *GoogleGeocoder) Coordinates(ctx context.Context, city string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("google geocoder: %w", ErrMissingAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}

	addr := geocoder.Address{City: strings.TrimSpace(city)}
	if name, country, ok := strings.Cut(city, ","); ok {
		addr.City = strings.TrimSpace(name)
		addr.Country = strings.TrimSpace(country)
	}

	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := g.lookup(addr)
	googleKeyMu.Unlock()
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("google geocoder: %w", err)
	}
	return weather.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
