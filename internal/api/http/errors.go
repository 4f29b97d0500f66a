package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-cycle-dashboard/internal/analysis"
	"github.com/i474232898/weather-cycle-dashboard/internal/forecast"
	"github.com/i474232898/weather-cycle-dashboard/internal/store"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
	"github.com/i474232898/weather-cycle-dashboard/internal/weather/providers"
)

// ErrorHandler is the app-wide fiber error handler. Every error is rendered
// as {"error": true, "message": ...} with a status derived from its cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, msg := classify(err)
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": msg,
	})
}

// classify maps an error to an HTTP status and a user-facing message.
func classify(err error) (int, string) {
	var (
		fe      *fiber.Error
		apiErr  *providers.APIError
		invalid validator.ValidationErrors
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.As(err, &invalid),
		errors.Is(err, weather.ErrCityRequired),
		errors.Is(err, forecast.ErrInvalidDays):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		switch apiErr.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest, http.StatusTooManyRequests:
			return apiErr.StatusCode, msg
		default:
			// bad credentials or an unexpected upstream status
			return fiber.StatusBadGateway, msg
		}
	case errors.Is(err, providers.ErrMissingAPIKey):
		return fiber.StatusServiceUnavailable, "weather service is not configured: set OPENWEATHER_API_KEY"
	case errors.Is(err, providers.ErrCircuitOpen),
		errors.Is(err, analysis.ErrNoData):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.Is(err, providers.ErrRateLimited),
		errors.Is(err, providers.ErrUpstream):
		return fiber.StatusBadGateway, err.Error()
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, forecast.ErrUnknownCounty),
		errors.Is(err, analysis.ErrNoMatches):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return fiber.StatusUnprocessableEntity, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
