package ratelimit

import (
	"sync"
	"time"
)

// ViolationRecord is the abuse history of one key.
type ViolationRecord struct {
	Count           int
	LastViolationAt time.Time
	BlockedUntil    time.Time
}

// blocked reports whether the record holds an active block at now.
func (r *ViolationRecord) blocked(now time.Time) bool {
	return r.BlockedUntil.After(now)
}

// ViolationTracker counts repeated limit breaches per key and holds temporary
// blocks. A run of violations decays once the gap since the last one exceeds
// the decay horizon.
type ViolationTracker struct {
	decay     time.Duration
	retention time.Duration
	clock     Clock

	mu      sync.Mutex
	records map[string]*ViolationRecord
}

// NewViolationTracker creates a tracker. Records are dropped by Cleanup once
// their last violation is older than retention and they are not blocked.
func NewViolationTracker(decay, retention time.Duration, clock Clock) *ViolationTracker {
	if clock == nil {
		clock = SystemClock
	}
	return &ViolationTracker{
		decay:     decay,
		retention: retention,
		clock:     clock,
		records:   make(map[string]*ViolationRecord),
	}
}

// RecordViolation registers a breach for key and returns the count within the
// current episode.
func (t *ViolationTracker) RecordViolation(key string) int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[key]
	switch {
	case !ok:
		r = &ViolationRecord{Count: 1}
		t.records[key] = r
	case now.Sub(r.LastViolationAt) > t.decay:
		r.Count = 1
	default:
		r.Count++
	}
	r.LastViolationAt = now
	return r.Count
}

// Block marks key as blocked for d. An existing later block is kept.
func (t *ViolationTracker) Block(key string, d time.Duration) time.Time {
	now := t.clock.Now()
	until := now.Add(d)

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[key]
	if !ok {
		r = &ViolationRecord{Count: 1, LastViolationAt: now}
		t.records[key] = r
	}
	if until.After(r.BlockedUntil) {
		r.BlockedUntil = until
	}
	return r.BlockedUntil
}

// BlockedUntil returns the end of the block on key and whether the block is
// still in force.
func (t *ViolationTracker) BlockedUntil(key string) (time.Time, bool) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[key]
	if !ok {
		return time.Time{}, false
	}
	return r.BlockedUntil, r.blocked(now)
}

// IsBlocked reports whether key is currently blocked.
func (t *ViolationTracker) IsBlocked(key string) bool {
	_, blocked := t.BlockedUntil(key)
	return blocked
}

// Get returns a snapshot of the record for key.
func (t *ViolationTracker) Get(key string) (ViolationRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[key]
	if !ok {
		return ViolationRecord{}, false
	}
	return *r, true
}

// Cleanup drops stale records and returns how many were removed. A record
// under an active block is always kept.
func (t *ViolationTracker) Cleanup() int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, r := range t.records {
		if now.Sub(r.LastViolationAt) > t.retention && !r.blocked(now) {
			delete(t.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *ViolationTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
