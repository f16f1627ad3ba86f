package ratelimit

import (
	"errors"
	"sync"
	"time"
)

var ErrInvalidConfig = errors.New("ratelimit: invalid config")

// Config describes a token bucket. A key may spend up to Capacity
// requests in a burst; RefillRate tokens return every RefillInterval.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 || c.RefillRate <= 0 || c.RefillInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result reports the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Bucket is an in-memory token bucket limiter. State lives per key in
// the process; a multi-instance deployment needs a shared store in
// front of it (a reverse proxy limiter or similar).
type Bucket struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucketState
}

type bucketState struct {
	tokens   float64
	refilled time.Time
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBucket creates a limiter with the given config.
func NewBucket(cfg Config, opts ...Option) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &Bucket{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucketState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Allow spends one token for the key and reports whether the request
// may proceed.
func (b *Bucket) Allow(key string) Result {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.buckets[key]
	if !ok {
		state = &bucketState{tokens: float64(b.cfg.Capacity), refilled: now}
		b.buckets[key] = state
	}

	refill := now.Sub(state.refilled).Seconds() / b.cfg.RefillInterval.Seconds() * float64(b.cfg.RefillRate)
	if refill > 0 {
		state.tokens = min(float64(b.cfg.Capacity), state.tokens+refill)
		state.refilled = now
	}

	result := Result{Limit: b.cfg.Capacity}
	if state.tokens >= 1 {
		state.tokens--
		result.Allowed = true
	}
	result.Remaining = int(state.tokens)

	// Time until the next whole token is available.
	deficit := 1 - state.tokens
	if deficit < 0 {
		deficit = 0
	}
	wait := time.Duration(deficit / float64(b.cfg.RefillRate) * float64(b.cfg.RefillInterval))
	result.ResetAt = now.Add(wait)

	return result
}
