package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter wraps rate.Limiter with 429 backoff.
// After SignalRateLimited the next Wait also sleeps for the current backoff.
type Limiter struct {
	limiter *rate.Limiter
	name    string
	mu      sync.Mutex
	backoff time.Duration
	pausing bool
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of requests allowed per minute
func NewLimiter(name string, perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	rps := float64(perMinute) / 60.0
	// Allow burst of up to 5 requests or 1/10th of per-minute limit
	burst := min(max(perMinute/10, 1), 5)

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
		backoff: initialBackoff,
	}
}

// Wait blocks until a token is available or ctx is done.
// A pending backoff from a 429 is served first.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := time.Duration(0)
	if l.pausing {
		pause = l.backoff
		l.pausing = false
	}
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited should be called when a 429 response is received.
// It doubles the backoff (capped) and arms a pause for the next Wait.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.backoff *= 2
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
	l.pausing = true
}

// ResetBackoff resets the backoff duration after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
	l.pausing = false
}

// Backoff returns the current backoff duration
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// KeyedLimiter hands out one limiter per key, created on first use.
// The web API uses it to throttle forced refreshes per ticker.
type KeyedLimiter struct {
	perMinute int
	limiters  map[string]*Limiter
	mu        sync.Mutex
}

// NewKeyedLimiter creates a keyed limiter where every key gets perMinute requests
func NewKeyedLimiter(perMinute int) *KeyedLimiter {
	return &KeyedLimiter{
		perMinute: perMinute,
		limiters:  make(map[string]*Limiter),
	}
}

// Get returns the limiter for key, creating it if needed
func (k *KeyedLimiter) Get(key string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.limiters[key]
	if !ok {
		l = NewLimiter(key, k.perMinute)
		k.limiters[key] = l
	}
	return l
}

// Allow reports whether key may proceed now
func (k *KeyedLimiter) Allow(key string) bool {
	return k.Get(key).Allow()
}
