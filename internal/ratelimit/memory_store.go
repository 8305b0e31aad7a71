package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists || now.After(entry.ResetAt) {
		entry = &Entry{Count: 1, ResetAt: now.Add(window)}
		s.entries[key] = entry
		return *entry, nil
	}

	entry.Count++
	return *entry, nil
}

// Sweep deletes every entry whose window ended before now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.ResetAt) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper sweeps on every tick until ctx is cancelled.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := s.Sweep(now); removed > 0 && log != nil {
				log.Debug("rate limit entries swept", "removed", removed)
			}
		}
	}
}
