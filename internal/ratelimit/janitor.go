package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is a store that can drop its expired state.
type Cleaner interface {
	Cleanup() int
}

// Janitor periodically sweeps the admission stores so memory stays bounded by
// the set of recently active clients.
type Janitor struct {
	interval time.Duration
	cleaners []Cleaner
	done     chan struct{}
}

// NewJanitor creates a janitor sweeping cleaners every interval.
func NewJanitor(interval time.Duration, cleaners ...Cleaner) *Janitor {
	return &Janitor{
		interval: interval,
		cleaners: cleaners,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	go j.run(ctx)
}

// Done is closed once the sweep loop started by Start has exited.
func (j *Janitor) Done() <-chan struct{} {
	return j.done
}

// Sweep runs one cleanup pass over every store and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	removed := 0
	for _, c := range j.cleaners {
		removed += c.Cleanup()
	}
	if removed > 0 {
		slog.Debug("Rate limit state swept", "removed", removed)
	}
	return removed
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}
