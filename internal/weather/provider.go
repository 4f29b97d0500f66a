package weather

import (
	"context"
	"time"
)

// Provider abstracts a current-weather data source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Current(ctx context.Context, city string) (Snapshot, error)
}

// Geocoder resolves a free-text city name to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, city string) (Coordinates, error)
}

// Suggester returns display names matching a partial city query.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Store is the contract for snapshot persistence (SQLite or in-memory).
type Store interface {
	// Save stores the snapshot unless the same city already has one within the
	// hour before snapshot.Timestamp. It reports whether a row was written.
	Save(ctx context.Context, snapshot Snapshot) (bool, error)
	Latest(ctx context.Context, city string) (Snapshot, error)
	History(ctx context.Context, city string, from, to time.Time) ([]Snapshot, error)
	Cities(ctx context.Context) ([]string, error)
}
