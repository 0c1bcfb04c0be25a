package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limit is a token bucket setting. A non-positive RequestsPerSecond means
// the provider is not throttled.
type Limit struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultLimit() Limit {
	return Limit{
		RequestsPerSecond: 5,
		BurstSize:         10,
	}
}

// ProviderLimiter holds one token bucket per provider name so that a noisy
// provider cannot slow down the others.
type ProviderLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	defaults Limit
}

func NewProviderLimiter(defaults Limit, overrides map[string]Limit) *ProviderLimiter {
	p := &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
	}
	for name, l := range overrides {
		p.limiters[name] = newLimiter(l)
	}
	return p
}

func NewProviderLimiterWithDefaults() *ProviderLimiter {
	return NewProviderLimiter(DefaultLimit(), nil)
}

func newLimiter(l Limit) *rate.Limiter {
	if l.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.BurstSize
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.RequestsPerSecond), burst)
}

func (p *ProviderLimiter) GetLimiter(provider string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[provider]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, exists = p.limiters[provider]; exists {
		return limiter
	}

	limiter = newLimiter(p.defaults)
	p.limiters[provider] = limiter
	return limiter
}

func (p *ProviderLimiter) SetProviderLimit(provider string, l Limit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limiters[provider] = newLimiter(l)
}

// Wait blocks until the provider's bucket has a token or ctx is done.
func (p *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	return p.GetLimiter(provider).Wait(ctx)
}
