package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

const (
	defaultInterval = 15 * time.Minute
	fetchTimeout    = 30 * time.Second
)

// Fetcher records a fresh weather snapshot for a city.
type Fetcher interface {
	FetchAndStore(ctx context.Context, city string) error
}

// Scheduler periodically records current weather for tracked cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	cities    []string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, fetcher Fetcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		cities:    cities,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.logger.Info("no tracked cities configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = int(defaultInterval.Minutes())
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce, context.Background()); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "cities", len(s.cities), "every_minutes", minutes)
	return nil
}

// RunOnce fetches every tracked city concurrently and returns the number of
// failed fetches.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	run := uuid.NewString()
	log := s.logger.With("run", run)
	log.Info("running weather fetch job")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, city := range s.cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			if err := s.fetcher.FetchAndStore(ctx, city); err != nil {
				log.Warn("fetch failed", "city", city, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	log.Info("completed weather fetch job", "cities", len(s.cities), "failed", failed)
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
