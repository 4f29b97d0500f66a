package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), "test-key")
	p.currentURL = srv.URL + "/data/2.5/weather"
	p.geoURL = srv.URL + "/geo/1.0/direct"
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	p.now = func() time.Time { return time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC) }
	return p
}

const dublinPayload = `{
  "coord": {"lon": -6.2672, "lat": 53.344},
  "weather": [{"main": "Clouds", "description": "broken clouds"}],
  "main": {"temp": 9.5, "feels_like": 7.1, "temp_min": 8.9, "temp_max": 10.2, "pressure": 1012, "humidity": 81},
  "wind": {"speed": 5.1, "deg": 240},
  "clouds": {"all": 75},
  "sys": {"country": "IE"},
  "name": "Dublin"
}`

func TestOpenWeatherCurrentFormatsPayload(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Dublin", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(dublinPayload))
	})

	snap, err := p.Current(context.Background(), "Dublin")
	require.NoError(t, err)

	assert.Equal(t, "Dublin", snap.City)
	assert.Equal(t, "IE", snap.Country)
	assert.Equal(t, "Clouds", snap.Main)
	assert.Equal(t, "broken clouds", snap.Description)
	require.NotNil(t, snap.Temperature)
	assert.InDelta(t, 9.5, *snap.Temperature, 1e-9)
	require.NotNil(t, snap.Humidity)
	assert.InDelta(t, 81, *snap.Humidity, 1e-9)
	require.NotNil(t, snap.Latitude)
	assert.InDelta(t, 53.344, *snap.Latitude, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC), snap.Timestamp)
}

func TestOpenWeatherCurrentMissingFields(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Nowhere", "main": {"temp": 1.5}}`))
	})

	snap, err := p.Current(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", snap.Country)
	assert.Equal(t, "Unknown", snap.Main)
	assert.Equal(t, "Unknown", snap.Description)
	assert.Nil(t, snap.WindSpeed)
	assert.Nil(t, snap.Humidity)
	assert.Nil(t, snap.Latitude)
}

func TestOpenWeatherCurrentClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
	})

	_, err := p.Current(context.Background(), "Atlantis")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "city not found", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenWeatherCurrentRetriesServerErrors(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(dublinPayload))
	})

	snap, err := p.Current(context.Background(), "Dublin")
	require.NoError(t, err)
	assert.Equal(t, "Dublin", snap.City)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenWeatherMissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	_, err := p.Current(context.Background(), "Dublin")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenWeatherSuggest(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"name": "Dublin", "country": "IE", "lat": 53.34, "lon": -6.26},
			{"name": "Dublin", "state": "Ohio", "country": "US", "lat": 40.09, "lon": -83.11},
			{"country": "XX"}
		]`))
	})

	got, err := p.Suggest(context.Background(), "Dub")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dublin, IE", "Dublin, Ohio, US"}, got)
}

func TestOpenWeatherSuggestShortQuery(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called for short queries")
	})

	got, err := p.Suggest(context.Background(), "Du")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenWeatherCoordinates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"name": "Cork", "country": "IE", "lat": 51.89, "lon": -8.47}]`))
	})

	c, err := p.Coordinates(context.Background(), "Cork")
	require.NoError(t, err)
	assert.InDelta(t, 51.89, c.Lat, 1e-9)
	assert.InDelta(t, -8.47, c.Lon, 1e-9)
}

func TestOpenWeatherCoordinatesNoMatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := p.Coordinates(context.Background(), "Nowhere")
	assert.Error(t, err)
}

func TestGoogleGeocoderSplitsCountry(t *testing.T) {
	g := NewGoogleGeocoder("gkey")
	var got geocoder.Address
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		got = a
		return geocoder.Location{Latitude: 52.66, Longitude: -8.63}, nil
	}

	c, err := g.Coordinates(context.Background(), "Limerick, Ireland")
	require.NoError(t, err)
	assert.Equal(t, "Limerick", got.City)
	assert.Equal(t, "Ireland", got.Country)
	assert.InDelta(t, 52.66, c.Lat, 1e-9)
}

func TestGoogleGeocoderMissingKey(t *testing.T) {
	_, err := NewGoogleGeocoder("").Coordinates(context.Background(), "Cork")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
