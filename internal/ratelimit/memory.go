package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const purgeProbability = 0.01

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps fixed-window counters in process memory. Counts are
// lost on restart and not shared across replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	now    func() time.Time
	chance func() float64
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
		chance:  rand.Float64,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, identity string, opts Options) Result {
	key := opts.Operation + ":" + identity

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.chance() < purgeProbability {
		l.purge(now)
	}

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(opts.Window)}
		l.entries[key] = e
	}
	e.count++

	return Result{
		Allowed:   e.count <= opts.MaxRequests,
		Limit:     opts.MaxRequests,
		Remaining: remaining(opts.MaxRequests, e.count),
		ResetAt:   e.resetAt,
	}
}

func (l *MemoryLimiter) purge(now time.Time) {
	for k, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, k)
		}
	}
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
