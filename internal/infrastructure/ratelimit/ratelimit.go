// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type PerKey struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPerKey allows perMinute events per key with the given burst. Buckets
// unused for longer than idle are dropped on the next call.
func NewPerKey(perMinute float64, burst int, idle time.Duration) *PerKey {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &PerKey{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweep(now)

	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (p *PerKey) sweep(now time.Time) {
	for k, b := range p.buckets {
		if now.Sub(b.lastSeen) > p.idle {
			delete(p.buckets, k)
		}
	}
}
