package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestProviderLimiter_Overrides(t *testing.T) {
	p := NewProviderLimiter(DefaultLimit(), map[string]Limit{
		"amadeus": {RequestsPerSecond: 2, BurstSize: 3},
	})

	l := p.GetLimiter("amadeus")
	assert.Equal(t, rate.Limit(2), l.Limit())
	assert.Equal(t, 3, l.Burst())

	d := p.GetLimiter("duffel")
	assert.Equal(t, rate.Limit(5), d.Limit())
	assert.Same(t, d, p.GetLimiter("duffel"))
}

func TestProviderLimiter_Unlimited(t *testing.T) {
	p := NewProviderLimiter(Limit{}, nil)
	assert.Equal(t, rate.Inf, p.GetLimiter("any").Limit())

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		assert.NoError(t, p.Wait(ctx, "any"))
	}
}

func TestProviderLimiter_WaitHonorsContext(t *testing.T) {
	p := NewProviderLimiterWithDefaults()
	p.SetProviderLimit("slow", Limit{RequestsPerSecond: 0.01, BurstSize: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, p.Wait(ctx, "slow"))
	assert.Error(t, p.Wait(ctx, "slow"))
}
