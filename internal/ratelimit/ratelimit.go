package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter
type Limiter struct {
	rate       float64 // tokens per second
	tokens     float64
	maxTokens  float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// New creates a limiter allowing rps requests per second. Bursts are capped at
// max(rps, 1) so that sub-1 rates still make progress.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	burst := rps
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:       rps,
		tokens:     burst,
		maxTokens:  burst,
		lastUpdate: time.Now(),
	}
}

// Rate returns the configured requests per second
func (l *Limiter) Rate() float64 {
	return l.rate
}

// Wait blocks until a token is available or ctx is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token when available, otherwise returns how long until one refills
func (l *Limiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.lastUpdate).Seconds() * l.rate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastUpdate = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return 0, true
	}

	missing := 1.0 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second)), false
}

// Registry hands out one limiter per upstream service
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	fallback float64
}

// NewRegistry creates limiters for the given service rates. Services not
// listed get a limiter at fallbackRPS on first use.
func NewRegistry(rates map[string]float64, fallbackRPS float64) *Registry {
	r := &Registry{
		limiters: make(map[string]*Limiter, len(rates)),
		fallback: fallbackRPS,
	}
	for service, rps := range rates {
		r.limiters[service] = New(rps)
	}
	return r
}

// Get returns the limiter of a service
func (r *Registry) Get(service string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[service]
	if !ok {
		l = New(r.fallback)
		r.limiters[service] = l
	}
	return l
}
