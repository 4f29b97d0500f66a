package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-cycle-dashboard/internal/cache"
)

// MinSuggestQueryLen is the shortest query that triggers city suggestions.
const MinSuggestQueryLen = 3

const maxRecentSearches = 5

// ErrCityRequired is returned when an empty city is requested.
var ErrCityRequired = errors.New("city is required")

// CacheTTLs configures the per-call caches of the service.
type CacheTTLs struct {
	Current     time.Duration
	Coordinates time.Duration
	Suggestions time.Duration
}

// Service orchestrates the weather provider, geocoders, caches and snapshot store.
type Service struct {
	store     Store
	provider  Provider
	geocoders []Geocoder
	suggester Suggester

	current     *cache.TTL[string, Snapshot]
	coordinates *cache.TTL[string, Coordinates]
	suggestions *cache.TTL[string, []string]

	mu     sync.Mutex
	recent []string
}

// NewService creates a new Service. Geocoders are tried in order.
func NewService(store Store, provider Provider, suggester Suggester, ttls CacheTTLs, geocoders ...Geocoder) *Service {
	return &Service{
		store:       store,
		provider:    provider,
		geocoders:   geocoders,
		suggester:   suggester,
		current:     cache.New[string, Snapshot](ttls.Current),
		coordinates: cache.New[string, Coordinates](ttls.Coordinates),
		suggestions: cache.New[string, []string](ttls.Suggestions),
	}
}

// Current returns the current weather for city, served from cache when fresh.
// Fresh fetches are persisted subject to the store's hourly dedup rule; a
// storage failure is logged and does not fail the request.
func (s *Service) Current(ctx context.Context, city string) (Snapshot, error) {
	// city may alias a request buffer; everything retained must own its bytes.
	city = strings.Clone(strings.TrimSpace(city))
	key := CityKey(city)
	if key == "" {
		return Snapshot{}, ErrCityRequired
	}
	if s.provider == nil {
		return Snapshot{}, fmt.Errorf("no weather provider configured")
	}

	snap, err := s.current.GetOrLoad(key, func() (Snapshot, error) {
		snap, err := s.provider.Current(ctx, city)
		if err != nil {
			return Snapshot{}, err
		}
		if snap.Timestamp.IsZero() {
			snap.Timestamp = time.Now().UTC()
		}
		if snap.City == "" {
			snap.City = city
		}
		s.persist(ctx, snap)
		return snap, nil
	})
	if err != nil {
		slog.Warn("current weather fetch failed", "provider", s.provider.Name(), "city", city, "error", err)
		return Snapshot{}, err
	}

	s.remember(city)
	return snap, nil
}

// FetchAndStore bypasses the cache and records a snapshot for city.
// Used by the scheduler.
func (s *Service) FetchAndStore(ctx context.Context, city string) error {
	if s.provider == nil {
		return fmt.Errorf("no weather provider configured")
	}
	snap, err := s.provider.Current(ctx, city)
	if err != nil {
		return err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	s.current.Set(CityKey(city), snap)
	if s.store == nil {
		return nil
	}
	if _, err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", city, err)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, snap Snapshot) {
	if s.store == nil {
		return
	}
	stored, err := s.store.Save(ctx, snap)
	if err != nil {
		slog.Error("store snapshot", "city", snap.City, "error", err)
		return
	}
	slog.Debug("snapshot persisted", "city", snap.City, "stored", stored)
}

// Coordinates resolves city to coordinates, trying each geocoder in turn.
func (s *Service) Coordinates(ctx context.Context, city string) (Coordinates, error) {
	city = strings.Clone(strings.TrimSpace(city))
	key := CityKey(city)
	if key == "" {
		return Coordinates{}, ErrCityRequired
	}
	return s.coordinates.GetOrLoad(key, func() (Coordinates, error) {
		if len(s.geocoders) == 0 {
			return Coordinates{}, fmt.Errorf("no geocoder configured")
		}
		var errs []error
		for _, g := range s.geocoders {
			c, err := g.Coordinates(ctx, city)
			if err == nil {
				return c, nil
			}
			errs = append(errs, err)
		}
		return Coordinates{}, errors.Join(errs...)
	})
}

// Suggest returns up to five city display names for a partial query.
// Queries shorter than MinSuggestQueryLen yield no suggestions.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	q := strings.Clone(strings.TrimSpace(query))
	if len([]rune(q)) < MinSuggestQueryLen || s.suggester == nil {
		return []string{}, nil
	}
	return s.suggestions.GetOrLoad(strings.ToLower(q), func() ([]string, error) {
		return s.suggester.Suggest(ctx, q)
	})
}

// Latest returns the most recent stored snapshot for city.
func (s *Service) Latest(ctx context.Context, city string) (Snapshot, error) {
	if CityKey(city) == "" {
		return Snapshot{}, ErrCityRequired
	}
	if s.store == nil {
		return Snapshot{}, fmt.Errorf("no snapshot store configured")
	}
	return s.store.Latest(ctx, strings.TrimSpace(city))
}

// History returns stored snapshots for city between from and to (inclusive).
func (s *Service) History(ctx context.Context, city string, from, to time.Time) ([]Snapshot, error) {
	if CityKey(city) == "" {
		return nil, ErrCityRequired
	}
	return s.store.History(ctx, strings.TrimSpace(city), from, to)
}

// Cities lists cities that have stored snapshots.
func (s *Service) Cities(ctx context.Context) ([]string, error) {
	return s.store.Cities(ctx)
}

// Recent returns the most recent distinct successful searches, newest first.
func (s *Service) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Service) remember(city string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.recent {
		if strings.EqualFold(c, city) {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			break
		}
	}
	s.recent = append([]string{city}, s.recent...)
	if len(s.recent) > maxRecentSearches {
		s.recent = s.recent[:maxRecentSearches]
	}
}
