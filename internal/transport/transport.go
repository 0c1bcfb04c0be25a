package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/metrics"
	"github.com/dharmasatrya/milesvalue/internal/ratelimit"
)

const maxBodyBytes = 4 << 20

// Doer is the host's request primitive; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Policy struct {
	Attempts  int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration // per-backoff cap, zero means uncapped
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		Timeout:   10 * time.Second,
		BaseDelay: 500 * time.Millisecond,
	}
}

// Backoff is the wait after the failed attempt with zero-based index
// attempt: 2^attempt x base, or 2^(attempt+1) x base after a 429.
func (p Policy) Backoff(attempt int, rateLimited bool) time.Duration {
	exp := attempt
	if rateLimited {
		exp++
	}
	d := p.BaseDelay * time.Duration(1<<uint(exp))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Sleeper func(ctx context.Context, d time.Duration) error

type Transport struct {
	client  Doer
	limiter *ratelimit.ProviderLimiter
	logger  *zap.Logger
	sleep   Sleeper
}

type Option func(*Transport)

func WithLimiter(l *ratelimit.ProviderLimiter) Option {
	return func(t *Transport) { t.limiter = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) { t.logger = logger.OrNop(l) }
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(t *Transport) { t.sleep = s }
}

func New(client Doer, opts ...Option) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	t := &Transport{
		client: client,
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute runs req with per-attempt timeouts and backoff. It never retries
// after a 2xx response and returns the last *Error once attempts run out.
func (t *Transport) Execute(ctx context.Context, provider string, req Request, policy Policy) (*Response, error) {
	if _, err := http.NewRequest(req.Method, req.URL, nil); err != nil {
		return nil, fmt.Errorf("build %s request: %w", provider, err)
	}

	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *Error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := policy.Backoff(attempt-1, lastErr.Kind == KindRateLimited)
			if err := t.sleep(ctx, delay); err != nil {
				return nil, t.abort(lastErr, attempt, err)
			}
		}

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx, provider); err != nil {
				return nil, t.abort(lastErr, attempt, err)
			}
		}

		resp, err := t.attempt(ctx, req, policy.Timeout)
		if err == nil {
			metrics.TransportAttempts.WithLabelValues(provider, "success").Inc()
			return resp, nil
		}

		lastErr = err
		metrics.TransportAttempts.WithLabelValues(provider, string(err.Kind)).Inc()
		t.logger.Warn("provider attempt failed",
			zap.String("provider", provider),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.String("kind", string(err.Kind)),
			zap.Int("status", err.StatusCode),
			zap.Error(err.Err),
		)

		if ctx.Err() != nil {
			return nil, t.abort(lastErr, attempt+1, ctx.Err())
		}
	}

	lastErr.Attempts = attempts
	return nil, lastErr
}

func (t *Transport) abort(last *Error, attempts int, cause error) error {
	kind := KindNetwork
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	if last != nil && last.Err != nil {
		cause = fmt.Errorf("%w (last failure: %v)", cause, last.Err)
	}
	return &Error{Kind: kind, Attempts: attempts, Err: cause}
}

func (t *Transport) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, *Error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, StatusCode: resp.StatusCode, Body: snippet(data), Err: errors.New("rate limited")}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{Kind: KindHTTP, StatusCode: resp.StatusCode, Body: snippet(data), Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classify separates an expired attempt deadline from other I/O failures.
func classify(parent, attemptCtx context.Context, err error) *Error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

func snippet(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
