package ratelimit

import (
	"sync"
	"time"
)

// WindowEntry is the counter state of one key.
type WindowEntry struct {
	Count   int
	ResetAt time.Time
}

// live reports whether the window is still open at now. The exact reset
// instant already belongs to the next window.
func (e *WindowEntry) live(now time.Time) bool {
	return now.Before(e.ResetAt)
}

// WindowStore holds fixed-window counters keyed by client and scope. All
// operations, including cleanup, are serialized by a single mutex so an
// increment never races a sweep of the same key.
type WindowStore struct {
	clock Clock

	mu      sync.Mutex
	entries map[string]*WindowEntry
}

// NewWindowStore creates an empty store. A nil clock means the wall clock.
func NewWindowStore(clock Clock) *WindowStore {
	if clock == nil {
		clock = SystemClock
	}
	return &WindowStore{
		clock:   clock,
		entries: make(map[string]*WindowEntry),
	}
}

// Increment counts one request for key and returns the new count together
// with the end of the current window. A missing or expired entry starts a
// fresh window of the given length.
func (s *WindowStore) Increment(key string, window time.Duration) (int, time.Time) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.live(now) {
		e = &WindowEntry{ResetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.Count++
	return e.Count, e.ResetAt
}

// Get returns a snapshot of the live entry for key.
func (s *WindowStore) Get(key string) (WindowEntry, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.live(now) {
		return WindowEntry{}, false
	}
	return *e, true
}

// Cleanup removes every expired entry and returns how many were dropped.
func (s *WindowStore) Cleanup() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, expired or not.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
