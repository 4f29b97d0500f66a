package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-cycle-dashboard/internal/common"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	OpenWeatherAPIKey string
	// GoogleGeocoderAPIKey enables the Google geocoder for coordinate lookups.
	GoogleGeocoderAPIKey string

	SQLitePath   string
	MaxOpenConns int

	// BicycleCSV holds paths or glob patterns of the wide bicycle count files.
	BicycleCSV       []string
	CountyWeatherCSV string

	// TrackedCities are fetched every FetchInterval so history accumulates.
	TrackedCities []string
	FetchInterval time.Duration

	Forecast ForecastConfig

	WeatherCacheTTL time.Duration
	GeoCacheTTL     time.Duration
	SuggestCacheTTL time.Duration
}

type ForecastConfig struct {
	Trees    int
	MaxDepth int
	Seed     int64
	// Jitter is the amplitude of random noise added to predictions (0 disables it).
	Jitter float64
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GoogleGeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/weather_data.db")
	cfg.MaxOpenConns = getenvInt("DB_MAX_OPEN_CONNS", 1)

	cfg.BicycleCSV = common.SplitList(getenvDefault("BICYCLE_CSV", "data/cycle-counts-*.csv"))
	cfg.CountyWeatherCSV = getenvDefault("COUNTY_WEATHER_CSV", "data/counties_with_data_2015_2022.csv")

	cfg.TrackedCities = common.SplitList(getenvDefault("TRACKED_CITIES", "Dublin"))
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	cfg.Forecast = ForecastConfig{
		Trees:    getenvInt("FORECAST_TREES", 50),
		MaxDepth: getenvInt("FORECAST_MAX_DEPTH", 8),
		Seed:     int64(getenvInt("FORECAST_SEED", 42)),
	}
	jitter := getenvDefault("FORECAST_JITTER", "0")
	if cfg.Forecast.Jitter, err = strconv.ParseFloat(jitter, 64); err != nil || cfg.Forecast.Jitter < 0 {
		return nil, fmt.Errorf("invalid FORECAST_JITTER %q", jitter)
	}

	if cfg.WeatherCacheTTL, err = getenvDuration("WEATHER_CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.GeoCacheTTL, err = getenvDuration("GEO_CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.SuggestCacheTTL, err = getenvDuration("SUGGEST_CACHE_TTL", "24h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
