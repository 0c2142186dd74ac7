// Package ratelimit throttles requests per key with token buckets. Idle
// buckets are evicted after a period of inactivity.
package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Config sets the sustained rate and burst of each bucket.
type Config struct {
	PerMinute int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	Burst     int           `env:"AUTH_RATE_BURST" envDefault:"5"`
	IdleTTL   time.Duration `env:"AUTH_RATE_IDLE_TTL" envDefault:"15m"`
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter from cfg. Non-positive values fall back to one
// request per minute with a burst of one.
func New(cfg Config, opts ...Option) *Limiter {
	perMinute := max(cfg.PerMinute, 1)
	burst := max(cfg.Burst, 1)
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 15 * time.Minute
	}

	l := &Limiter{
		buckets: cache.New(idle, idle),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes a token for key. When denied it returns how long to wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	b := l.bucket(key)
	now := l.now()

	r := b.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Reset drops the bucket for key, for example after a successful sign-in.
func (l *Limiter) Reset(key string) {
	l.buckets.Delete(key)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		b := v.(*rate.Limiter)
		l.buckets.SetDefault(key, b)
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.buckets.SetDefault(key, b)
	return b
}
