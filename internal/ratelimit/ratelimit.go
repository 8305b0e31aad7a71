// Package ratelimit implements a fixed-window request counter keyed by client.
//
// The Limiter owns the window arithmetic; a Store only persists counters. The
// in-memory store is single-process; RedisStore shares counters between
// instances.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidWindow = errors.New("invalid window")
)

// Entry is the counter state of one client key inside its current window.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store records a hit for key and returns the updated entry. A missing or
// expired entry is replaced by {Count: 1, ResetAt: now+window}.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (Entry, error)
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	now       time.Time
}

// RetryAfter is the time until the window resets, rounded up to whole seconds and never below one.
func (r Result) RetryAfter() time.Duration {
	seconds := math.Ceil(r.ResetAt.Sub(r.now).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// ResetUnix is the window reset time in unix seconds, rounded up.
func (r Result) ResetUnix() int64 {
	return int64(math.Ceil(float64(r.ResetAt.UnixMilli()) / 1000))
}

type Limiter struct {
	store  Store
	max    int
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store Store, max int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	if max <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}

	l := &Limiter{store: store, max: max, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *Limiter) Limit() int {
	return l.max
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()

	entry, err := l.store.Hit(ctx, key, l.window, now)
	if err != nil {
		return Result{}, fmt.Errorf("record hit: %w", err)
	}

	remaining := l.max - entry.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   entry.Count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   entry.ResetAt,
		now:       now,
	}, nil
}
