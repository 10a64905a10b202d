package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is an in-process token bucket per key. Not shared between replicas.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   time.Duration
	burst   int

	idle          time.Duration
	lastSweep     time.Time
	sweepInterval time.Duration

	now func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewMemory allows burst pushes per key, refilling one every pause.
func NewMemory(pause time.Duration, burst int) *Memory {
	if burst <= 0 {
		burst = 1
	}
	return &Memory{
		buckets:       make(map[string]*bucket),
		every:         pause,
		burst:         burst,
		idle:          10 * pause,
		sweepInterval: time.Minute,
		now:           time.Now,
	}
}

// Allow consumes a token for key if one is available.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(m.every), m.burst)}
		m.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}

// sweep drops buckets idle long enough to be full again. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepInterval {
		return
	}
	for k, b := range m.buckets {
		if now.Sub(b.seen) > m.idle {
			delete(m.buckets, k)
		}
	}
	m.lastSweep = now
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
