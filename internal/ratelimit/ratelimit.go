// Package ratelimit keeps one token bucket per key (conversation id).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed holds a limiter for each key it has seen.
type Keyed struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// New returns a Keyed limiter allowing limit events per second per key with
// the given burst. A burst below 1 is raised to 1.
func New(limit rate.Limit, burst int) *Keyed {
	if burst < 1 {
		burst = 1
	}
	return &Keyed{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// PerMinute is a convenience for n events per minute, burst 1.
func PerMinute(n float64) *Keyed {
	return New(rate.Limit(n/60), 1)
}

func (k *Keyed) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.visitors[key] = v
	}
	v.lastSeen = k.now()
	return v.limiter
}

// Allow reports whether an event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	return k.get(key).Allow()
}

// Wait blocks until an event for key is permitted or ctx is done.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	return k.get(key).Wait(ctx)
}

// Prune drops limiters idle for longer than idle and returns how many went.
func (k *Keyed) Prune(idle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-idle)
	n := 0
	for key, v := range k.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(k.visitors, key)
			n++
		}
	}
	return n
}

// StartCleanup prunes idle limiters every interval until ctx is done.
func (k *Keyed) StartCleanup(ctx context.Context, interval, idle time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				k.Prune(idle)
			}
		}
	}()
}

// Len reports how many keys are tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.visitors)
}
