package ratelimit

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLimiterFixedWindow(t *testing.T) {
	t.Parallel()

	clock := newClock()
	limiter, err := NewLimiter(NewMemoryStore(), 3, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i)
		require.Equal(t, 3-i, res.Remaining)
		require.Equal(t, 3, res.Limit)
	}

	clock.Advance(20 * time.Second)
	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, 40*time.Second, res.RetryAfter())

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, other.Allowed)

	clock.Advance(41 * time.Second)
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 2, res.Remaining, "window reset starts the counter at one")
	require.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
}

func TestResultRounding(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	res := Result{ResetAt: now.Add(1500 * time.Millisecond), now: now}
	require.Equal(t, 2*time.Second, res.RetryAfter())
	require.Equal(t, int64(1002), res.ResetUnix())

	past := Result{ResetAt: now.Add(-time.Second), now: now}
	require.Equal(t, time.Second, past.RetryAfter())
}

func TestNewLimiterValidates(t *testing.T) {
	t.Parallel()

	_, err := NewLimiter(nil, 1, time.Second)
	require.Error(t, err)

	_, err = NewLimiter(NewMemoryStore(), 0, time.Second)
	require.ErrorIs(t, err, ErrInvalidLimit)

	_, err = NewLimiter(NewMemoryStore(), 1, 0)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration, time.Time) (Entry, error) {
	return Entry{}, errors.New("boom")
}

func TestLimiterPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	limiter, err := NewLimiter(failingStore{}, 1, time.Second)
	require.NoError(t, err)

	_, err = limiter.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	now := time.Now()

	_, err := store.Hit(context.Background(), "old", time.Second, now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = store.Hit(context.Background(), "fresh", time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	require.Equal(t, 1, store.Sweep(now))
	require.Equal(t, 1, store.Len())

	entry, err := store.Hit(context.Background(), "fresh", time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, 2, entry.Count)
}

func TestMemoryStoreRunSweeperStops(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.Hit(context.Background(), "k", time.Millisecond, time.Now().Add(-time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunSweeper(ctx, 5*time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestMemoryStoreConcurrentHits(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	now := time.Now()

	var wg sync.WaitGroup
	for _i := 0; _i < 50; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Hit(context.Background(), "shared", time.Minute, now)
		}()
	}
	wg.Wait()

	entry, err := store.Hit(context.Background(), "shared", time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, 51, entry.Count)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, "test:ratelimit:"+time.Now().Format(time.RFC3339Nano)+":")

	first, err := store.Hit(ctx, "k", time.Minute, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, first.Count)

	second, err := store.Hit(ctx, "k", time.Minute, time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, second.Count)
	require.WithinDuration(t, time.Now().Add(time.Minute), second.ResetAt, 2*time.Second)
}
