package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	httpapi "github.com/i474232898/weather-cycle-dashboard/internal/api/http"
	"github.com/i474232898/weather-cycle-dashboard/internal/config"
	"github.com/i474232898/weather-cycle-dashboard/internal/dataset"
	"github.com/i474232898/weather-cycle-dashboard/internal/db"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/logging"
	"github.com/i474232898/weather-cycle-dashboard/internal/scheduler"
	"github.com/i474232898/weather-cycle-dashboard/internal/store"
	"github.com/i474232898/weather-cycle-dashboard/internal/views"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather/providers"
)

const (
	appName = "weather-cycle-dashboard"

	// in-memory fallback retention when SQLite is unavailable
	memoryMaxHistory = 500
	memoryMaxAge     = 7 * 24 * time.Hour

	// Dublin daily weather is what the bicycle counts are compared against.
	bicycleWeatherCounty = "Dublin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg, appName)
	slog.SetDefault(log)

	if err := views.LoadTemplates(); err != nil {
		log.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	snapshots, database := openStore(cfg, log)
	if database != nil {
		defer db.Close(database)
	}

	// Providers with resilience (backoff + circuit breaker).
	owm := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set; weather endpoints will report a configuration error")
	}
	var geocoders []weather.Geocoder
	if cfg.GoogleGeocoderAPIKey != "" {
		geocoders = append(geocoders, providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey))
	}
	geocoders = append(geocoders, owm)

	weatherSvc := weather.NewService(snapshots, owm, owm, weather.CacheTTLs{
		Current:     cfg.WeatherCacheTTL,
		Coordinates: cfg.GeoCacheTTL,
		Suggestions: cfg.SuggestCacheTTL,
	}, geocoders...)

	// Datasets are optional; features backed by a missing file report it per request.
	counties, err := dataset.LoadCountyFile(cfg.CountyWeatherCSV)
	if err != nil {
		log.Warn("county weather data not available", "path", cfg.CountyWeatherCSV, "error", err)
	} else {
		log.Info("county weather loaded", "counties", len(counties.Counties()))
	}

	bicycles, err := dataset.LoadBicycleFiles(cfg.BicycleCSV)
	if err != nil {
		log.Warn("bicycle data not available", "patterns", cfg.BicycleCSV, "error", err)
	} else {
		log.Info("bicycle data loaded", "records", len(bicycles))
	}

	table, err := forecast.LoadStaticTable()
	if err != nil {
		log.Error("failed to load static forecast table", "error", err)
		os.Exit(1)
	}
	forecaster := forecast.NewForecaster(forecast.Config{
		Forest: forecast.ForestConfig{
			Trees:    cfg.Forecast.Trees,
			MaxDepth: cfg.Forecast.MaxDepth,
			Seed:     cfg.Forecast.Seed,
		},
		Jitter:   cfg.Forecast.Jitter,
		CacheTTL: time.Hour,
	}, table)

	bicycleSvc := analysis.NewService(bicycles, counties.Daily(bicycleWeatherCounty), time.Hour)

	// Scheduler that periodically fetches and stores data.
	sched := scheduler.New(cfg.TrackedCities, cfg.FetchInterval, weatherSvc, log)
	if cfg.OpenWeatherAPIKey != "" {
		if err := sched.Start(); err != nil {
			log.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		UnescapePath:          true,
		Immutable:             true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Services{
		Weather:    weatherSvc,
		Forecaster: forecaster,
		Static:     table,
		Counties:   counties,
		Bicycles:   bicycleSvc,
	})

	go func() {
		log.Info("http server listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// openStore opens and migrates SQLite, falling back to an in-memory store
// when the database cannot be used.
func openStore(cfg *config.AppConfig, log *slog.Logger) (weather.Store, *sql.DB) {
	database, err := db.Open(cfg, log, cfg.LogLevel == slog.LevelDebug)
	if err == nil {
		err = db.Migrate(database)
		if err != nil {
			db.Close(database)
		}
	}
	if err != nil {
		log.Error("sqlite unavailable, snapshots kept in memory only", "path", cfg.SQLitePath, "error", err)
		return store.NewMemoryStore(memoryMaxHistory, memoryMaxAge), nil
	}
	log.Info("sqlite ready", "path", cfg.SQLitePath)
	return store.NewSQLiteStore(database), database
}
