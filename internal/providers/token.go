package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenSource fetches a fresh bearer token and its server-side lifetime.
type tokenSource func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// tokenCache is owned by a single client. Concurrent refreshes collapse
// into one fetch.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	buffer time.Duration
	now    func() time.Time
	fetch  tokenSource
	group  singleflight.Group
}

func newTokenCache(fetch tokenSource, buffer time.Duration, now func() time.Time) *tokenCache {
	if now == nil {
		now = time.Now
	}
	return &tokenCache{fetch: fetch, buffer: buffer, now: now}
}

func (c *tokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}

// Get returns the cached token, refreshing it once it has expired.
func (c *tokenCache) Get(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}

		token, expiresIn, err := c.fetch(ctx)
		if err != nil {
			return "", err
		}

		ttl := expiresIn - c.buffer
		if ttl < 0 {
			ttl = 0
		}

		c.mu.Lock()
		c.token = token
		c.expiresAt = c.now().Add(ttl)
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token after the server rejected it.
func (c *tokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *tokenCache) set(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}
