package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
)

//go:embed sql/insert-snapshot.sql
var insertSnapshotSQL string

//go:embed sql/count-recent-snapshots.sql
var countRecentSnapshotsSQL string

//go:embed sql/get-latest-snapshot.sql
var getLatestSnapshotSQL string

//go:embed sql/get-snapshots.sql
var getSnapshotsSQL string

//go:embed sql/get-cities.sql
var getCitiesSQL string

// timestampLayout is fixed-width so that lexical order equals time order.
const timestampLayout = "2006-01-02 15:04:05"

// SQLiteStore persists snapshots in the weather_snapshots table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts the snapshot unless the same city already has a row newer
// than snapshot.Timestamp minus DedupWindow. Check and insert share one
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap weather.Snapshot) (stored bool, err error) {
	if weather.CityKey(snap.City) == "" {
		return false, errors.New("snapshot has no city")
	}
	ts := snap.Timestamp.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback snapshot tx", "error", rbErr)
			}
		}
	}()

	var recent int
	cutoff := ts.Add(-DedupWindow).Format(timestampLayout)
	if err = tx.QueryRowContext(ctx, countRecentSnapshotsSQL, snap.City, cutoff).Scan(&recent); err != nil {
		return false, fmt.Errorf("check recent snapshots: %w", err)
	}
	if recent > 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, insertSnapshotSQL,
		snap.City, snap.Country, ts.Format(timestampLayout),
		nullable(snap.Temperature), nullable(snap.FeelsLike), nullable(snap.TempMin), nullable(snap.TempMax),
		nullable(snap.Pressure), nullable(snap.Humidity), nullable(snap.WindSpeed), nullable(snap.WindDeg), nullable(snap.Clouds),
		snap.Main, snap.Description, nullable(snap.Latitude), nullable(snap.Longitude),
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, city string) (weather.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, getLatestSnapshotSQL, city)
	if err != nil {
		return weather.Snapshot{}, err
	}
	defer closeRows(rows, "latest snapshot")

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return weather.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return snaps[0], nil
}

func (s *SQLiteStore) History(ctx context.Context, city string, from, to time.Time) ([]weather.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, getSnapshotsSQL, city,
		from.UTC().Format(timestampLayout), to.UTC().Format(timestampLayout))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "snapshot history")

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps, nil
}

func (s *SQLiteStore) Cities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, getCitiesSQL)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "cities")

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanSnapshots(rows *sql.Rows) ([]weather.Snapshot, error) {
	var out []weather.Snapshot
	for rows.Next() {
		var (
			snap weather.Snapshot
			ts   string
			temp, feels, tmin, tmax, pressure, humidity,
			wspeed, wdeg, clouds, lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&snap.City, &snap.Country, &ts,
			&temp, &feels, &tmin, &tmax, &pressure, &humidity,
			&wspeed, &wdeg, &clouds, &snap.Main, &snap.Description, &lat, &lon,
		); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation(timestampLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		snap.Timestamp = t
		snap.Temperature = ptr(temp)
		snap.FeelsLike = ptr(feels)
		snap.TempMin = ptr(tmin)
		snap.TempMax = ptr(tmax)
		snap.Pressure = ptr(pressure)
		snap.Humidity = ptr(humidity)
		snap.WindSpeed = ptr(wspeed)
		snap.WindDeg = ptr(wdeg)
		snap.Clouds = ptr(clouds)
		snap.Latitude = ptr(lat)
		snap.Longitude = ptr(lon)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
