package weather

import (
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Snapshot is one formatted current-weather observation for a city.
// Persisted at most once per city per rolling hour.
type Snapshot struct {
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature *float64  `json:"temperatureC"`
	FeelsLike   *float64  `json:"feelsLikeC"`
	TempMin     *float64  `json:"tempMinC"`
	TempMax     *float64  `json:"tempMaxC"`
	Pressure    *float64  `json:"pressureHpa"`
	Humidity    *float64  `json:"humidityPercent"`
	WindSpeed   *float64  `json:"windSpeedMs"`
	WindDeg     *float64  `json:"windDeg"`
	Clouds      *float64  `json:"cloudsPercent"`
	Main        string    `json:"main"`
	Description string    `json:"description"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
}

// Condition maps the provider's main group to a normalized condition.
func (s Snapshot) Condition() Condition {
	switch s.Main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm", "Squall", "Tornado":
		return ConditionStorm
	case "Mist", "Smoke", "Haze", "Dust", "Fog", "Sand", "Ash":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

// Icon returns an emoji for the snapshot's main weather group.
func (s Snapshot) Icon() string {
	return IconFor(s.Main)
}

var icons = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Thunderstorm": "⛈️",
	"Snow":         "❄️",
	"Mist":         "🌫️",
	"Smoke":        "🌫️",
	"Haze":         "🌫️",
	"Dust":         "🌫️",
	"Fog":          "🌫️",
	"Sand":         "🌫️",
	"Ash":          "🌫️",
	"Squall":       "💨",
	"Tornado":      "🌪️",
}

// IconFor returns the emoji for a main weather group, or a thermometer.
func IconFor(main string) string {
	if icon, ok := icons[main]; ok {
		return icon
	}
	return "🌡️"
}

// FormatTimestamp renders a timestamp like "March 01, 2024 at 02:05 PM".
func FormatTimestamp(ts time.Time) string {
	return ts.Format("January 02, 2006 at 03:04 PM")
}

// CityKey is the canonical cache and dedup key for a city query.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
