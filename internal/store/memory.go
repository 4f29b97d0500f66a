package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given city.
	ErrNotFound = errors.New("no weather data for city")
)

// DedupWindow is the minimum spacing between two stored snapshots of one city.
const DedupWindow = time.Hour

// snapshotHistory holds a time-ordered list of weather snapshots for a city.
type snapshotHistory struct {
	city      string
	snapshots []weather.Snapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// It applies the same hourly dedup rule as the SQLite store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: weather.CityKey, value: history
	data map[string]*snapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per city
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*snapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a snapshot unless one for the same city exists within the
// preceding DedupWindow, then enforces retention.
func (s *MemoryStore) Save(_ context.Context, snapshot weather.Snapshot) (bool, error) {
	key := weather.CityKey(snapshot.City)
	if key == "" {
		return false, errors.New("snapshot has no city")
	}
	snapshot.Timestamp = snapshot.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &snapshotHistory{city: snapshot.City}
		s.data[key] = history
	}

	cutoff := snapshot.Timestamp.Add(-DedupWindow)
	for _, existing := range history.snapshots {
		if existing.Timestamp.After(cutoff) {
			return false, nil
		}
	}

	history.snapshots = append(history.snapshots, snapshot)
	sort.SliceStable(history.snapshots, func(i, j int) bool {
		return history.snapshots[i].Timestamp.Before(history.snapshots[j].Timestamp)
	})

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.snapshots) > s.maxHistory {
		over := len(history.snapshots) - s.maxHistory
		history.snapshots = history.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.snapshots); i++ {
			if !history.snapshots[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.snapshots = history.snapshots[i:]
	}
	return true, nil
}

// Latest returns the most recent snapshot for a city.
func (s *MemoryStore) Latest(_ context.Context, city string) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[weather.CityKey(city)]
	if !ok || len(history.snapshots) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history.snapshots[len(history.snapshots)-1], nil
}

// History returns all snapshots for a city between from and to (inclusive),
// oldest first.
func (s *MemoryStore) History(_ context.Context, city string, from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[weather.CityKey(city)]
	if !ok || len(history.snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Snapshot
	for _, snap := range history.snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Cities lists the distinct cities with at least one snapshot, sorted.
func (s *MemoryStore) Cities(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for _, h := range s.data {
		if len(h.snapshots) > 0 {
			out = append(out, h.city)
		}
	}
	sort.Strings(out)
	return out, nil
}
