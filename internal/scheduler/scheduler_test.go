package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *recordingFetcher) FetchAndStore(ctx context.Context, city string) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("fetch without deadline")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, city)
	if f.fail[city] {
		return errors.New("boom")
	}
	return nil
}

func (f *recordingFetcher) cities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func TestRunOnceFetchesEveryCity(t *testing.T) {
	f := &recordingFetcher{fail: map[string]bool{"Cork": true}}
	s := New([]string{"Dublin", "Cork", "Galway"}, time.Minute, f, nil)

	failed := s.RunOnce(context.Background())
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"Cork", "Dublin", "Galway"}, f.cities())
}

func TestStartWithoutCitiesIsNoop(t *testing.T) {
	f := &recordingFetcher{}
	s := New(nil, time.Minute, f, nil)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Empty(t, f.cities())
}

func TestStartRunsImmediately(t *testing.T) {
	f := &recordingFetcher{}
	s := New([]string{"Dublin"}, 0, f, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return len(f.cities()) == 1 }, 2*time.Second, 10*time.Millisecond)
}
