package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/ratelimit"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestTransport(t *testing.T, s *recordingSleeper) *Transport {
	return New(http.DefaultClient,
		WithLogger(zaptest.NewLogger(t)),
		WithSleeper(s.sleep),
	)
}

func statusServer(t *testing.T, calls *int32, statuses ...int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		w.WriteHeader(statuses[idx])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0, false))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1, false))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2, false))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(0, true))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(2, true))

	p.MaxDelay = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, p.Backoff(2, false))
}

func TestExecute_AlwaysFailingIsRetriedExactlyAttemptsTimes(t *testing.T) {
	for _, attempts := range []int{1, 2, 4} {
		var calls int32
		srv := statusServer(t, &calls, http.StatusInternalServerError)
		sleeper := &recordingSleeper{}
		tr := newTestTransport(t, sleeper)

		_, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: srv.URL},
			Policy{Attempts: attempts, Timeout: time.Second, BaseDelay: 10 * time.Millisecond})

		var te *Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, KindHTTP, te.Kind)
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		assert.Equal(t, attempts, te.Attempts)
		assert.Equal(t, int32(attempts), atomic.LoadInt32(&calls))
		assert.Len(t, sleeper.delays, attempts-1)
		for i := 1; i < len(sleeper.delays); i++ {
			assert.GreaterOrEqual(t, sleeper.delays[i], sleeper.delays[i-1])
		}
	}
}

func TestExecute_SuccessIsNotRetried(t *testing.T) {
	var calls int32
	srv := statusServer(t, &calls, http.StatusBadGateway, http.StatusOK)
	sleeper := &recordingSleeper{}
	tr := newTestTransport(t, sleeper)

	resp, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: srv.URL},
		Policy{Attempts: 5, Timeout: time.Second, BaseDelay: 10 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.delays)
}

func TestExecute_RateLimitedWaitsLonger(t *testing.T) {
	var calls int32
	srv := statusServer(t, &calls, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK)
	sleeper := &recordingSleeper{}
	tr := newTestTransport(t, sleeper)

	_, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: srv.URL},
		Policy{Attempts: 3, Timeout: time.Second, BaseDelay: 10 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, sleeper.delays)
}

func TestExecute_RateLimitedExhausted(t *testing.T) {
	var calls int32
	srv := statusServer(t, &calls, http.StatusTooManyRequests)
	tr := newTestTransport(t, &recordingSleeper{})

	_, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: srv.URL},
		Policy{Attempts: 2, Timeout: time.Second})

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindRateLimited, te.Kind)
	assert.Equal(t, models.ErrCodeRateLimit, CodeOf(err))
}

func TestExecute_AttemptTimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	tr := newTestTransport(t, &recordingSleeper{})

	_, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: srv.URL},
		Policy{Attempts: 2, Timeout: 30 * time.Millisecond})

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindTimeout, te.Kind)
	assert.Equal(t, models.ErrCodeTimeout, te.Code())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExecute_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := newTestTransport(t, &recordingSleeper{})
	_, err := tr.Execute(context.Background(), "test", Request{Method: http.MethodGet, URL: url},
		Policy{Attempts: 2, Timeout: time.Second})

	assert.Equal(t, models.ErrCodeNetwork, CodeOf(err))
}

func TestExecute_ParentCancelStopsRetrying(t *testing.T) {
	var calls int32
	srv := statusServer(t, &calls, http.StatusServiceUnavailable)
	tr := New(http.DefaultClient, WithLogger(zaptest.NewLogger(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Execute(ctx, "test", Request{Method: http.MethodGet, URL: srv.URL},
		Policy{Attempts: 5, Timeout: time.Second, BaseDelay: time.Second})

	assert.Error(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestExecute_SendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	tr := New(nil, WithLimiter(ratelimit.NewProviderLimiter(ratelimit.Limit{}, nil)))
	resp, err := tr.Execute(context.Background(), "test", Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: http.Header{"Authorization": []string{"Bearer abc"}},
		Body:   []byte(`{}`),
	}, DefaultPolicy())

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err      *Error
		expected models.ErrorCode
	}{
		{&Error{Kind: KindHTTP, StatusCode: 401}, models.ErrCodeAuth},
		{&Error{Kind: KindHTTP, StatusCode: 503}, models.ErrCodeServiceUnavailable},
		{&Error{Kind: KindHTTP, StatusCode: 400}, models.ErrCodeInvalidRequest},
		{&Error{Kind: KindHTTP, StatusCode: 404}, models.ErrCodeUnknown},
		{&Error{Kind: KindNetwork}, models.ErrCodeNetwork},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Code())
	}
	assert.Equal(t, models.ErrCodeUnknown, CodeOf(errors.New("plain")))
}
