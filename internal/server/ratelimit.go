package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter admits or rejects a submission attempt for a client key.
// Rejections map to RATE_LIMITED.
type RateLimiter interface {
	Allow(key string) bool
}

// unlimited admits everything; used when no limiter is configured.
type unlimited struct{}

func (unlimited) Allow(string) bool { return true }

// KeyedLimiter applies an independent token bucket per client key.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter creates a limiter admitting rps requests per second with
// the given burst per key.
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether the client identified by key may submit now.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
