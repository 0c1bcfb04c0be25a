package providers

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/transport"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testOptions(t *testing.T, baseURL string, fallback bool) Options {
	log := zaptest.NewLogger(t)
	return Options{
		BaseURL:   baseURL,
		Policy:    transport.Policy{Attempts: 3, Timeout: time.Second, BaseDelay: time.Millisecond},
		Fallback:  fallback,
		Transport: transport.New(http.DefaultClient, transport.WithLogger(log), transport.WithSleeper(noSleep)),
		Logger:    log,
	}
}

func testCriteria() models.SearchCriteria {
	return models.SearchCriteria{
		Route:         models.Route{Departure: "HND", Arrival: "ITM"},
		DepartureDate: "2025-03-01",
		Passengers:    models.Passengers{Adults: 1},
		CabinClass:    models.CabinEconomy,
		Currency:      "JPY",
	}
}

func TestProviders_ImplementInterface(t *testing.T) {
	opts := testOptions(t, "", true)
	var _ Provider = NewAmadeusProvider(AmadeusConfig{}, opts)
	var _ Provider = NewSkyscannerProvider(SkyscannerConfig{}, opts)
	var _ Provider = NewDuffelProvider(DuffelConfig{}, opts)
}

func TestSearch_InvalidCriteria(t *testing.T) {
	p := NewDuffelProvider(DuffelConfig{AccessToken: "tok"}, testOptions(t, "http://unused", true))

	c := testCriteria()
	c.Route.Arrival = "HND"
	env := p.Search(context.Background(), c)

	assert.False(t, env.Success)
	assert.True(t, env.Valid())
	assert.Equal(t, models.ErrCodeInvalidRequest, env.Error.Code)
}

func TestSearch_OversizedPartyRejected(t *testing.T) {
	opts := testOptions(t, "http://unused", true)
	clients := []Provider{
		NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret"}, opts),
		NewSkyscannerProvider(SkyscannerConfig{APIKey: "key"}, opts),
		NewDuffelProvider(DuffelConfig{AccessToken: "tok"}, opts),
	}

	c := testCriteria()
	c.Passengers = models.Passengers{Adults: math.MaxInt, Infants: 1}

	for _, p := range clients {
		t.Run(p.Name(), func(t *testing.T) {
			var env models.Envelope[[]models.UnifiedOffer]
			require.NotPanics(t, func() { env = p.Search(context.Background(), c) })
			assert.False(t, env.Success)
			assert.True(t, env.Valid())
			assert.Equal(t, models.ErrCodeInvalidRequest, env.Error.Code)
			assert.Equal(t, models.ErrTooManyPassengers.Error(), env.Error.Message)
		})
	}
}

func TestSearch_UnconfiguredServesFallback(t *testing.T) {
	providers := []Provider{
		NewAmadeusProvider(AmadeusConfig{}, testOptions(t, "http://unused", true)),
		NewSkyscannerProvider(SkyscannerConfig{}, testOptions(t, "http://unused", true)),
		NewDuffelProvider(DuffelConfig{}, testOptions(t, "http://unused", true)),
	}

	for _, p := range providers {
		t.Run(p.Name(), func(t *testing.T) {
			env := p.Search(context.Background(), testCriteria())

			require.True(t, env.Success)
			assert.True(t, env.Valid())
			assert.Equal(t, models.MetaSourceFallback, env.Metadata.Source)
			assert.NotEmpty(t, env.Metadata.RequestID)
			offers, _ := env.Payload()
			require.NotEmpty(t, offers)
			for _, o := range offers {
				assert.Equal(t, models.SourceFallback, o.Source)
			}
		})
	}
}

func TestSearch_UnconfiguredWithoutFallbackFails(t *testing.T) {
	p := NewSkyscannerProvider(SkyscannerConfig{}, testOptions(t, "http://unused", false))

	env := p.Search(context.Background(), testCriteria())

	assert.False(t, env.Success)
	assert.True(t, env.Valid())
	assert.Equal(t, models.ErrCodeAuth, env.Error.Code)
	assert.Equal(t, "skyscanner", env.Error.Details["provider"])
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	healthy := NewDuffelProvider(DuffelConfig{AccessToken: "tok"}, testOptions(t, srv.URL, true)).HealthCheck(context.Background())
	assert.True(t, healthy.IsHealthy)
	assert.Empty(t, healthy.Issues)
	assert.Equal(t, "duffel", healthy.Provider)
	assert.False(t, healthy.LastChecked.IsZero())

	unconfigured := NewDuffelProvider(DuffelConfig{}, testOptions(t, srv.URL, true)).HealthCheck(context.Background())
	assert.False(t, unconfigured.IsHealthy)
	assert.Contains(t, unconfigured.Issues, errNotConfigured.Error())
}

func TestHealthCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status := NewAmadeusProvider(AmadeusConfig{ClientID: "id", ClientSecret: "secret"}, testOptions(t, url, true)).HealthCheck(context.Background())

	assert.False(t, status.IsHealthy)
	require.NotEmpty(t, status.Issues)
}

func TestHealthCheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	status := NewSkyscannerProvider(SkyscannerConfig{APIKey: "key"}, testOptions(t, srv.URL, true)).HealthCheck(context.Background())

	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, status.Issues)
}

func TestHealthCheck_NoBaseURL(t *testing.T) {
	status := NewSkyscannerProvider(SkyscannerConfig{APIKey: "key"}, testOptions(t, "", true)).HealthCheck(context.Background())

	assert.False(t, status.IsHealthy)
	assert.Equal(t, []string{"base url not configured"}, status.Issues)
}

func TestPricing(t *testing.T) {
	p := pricing("jpy", 20690, 18810)
	assert.Equal(t, "JPY", p.Currency)
	assert.Equal(t, 1880.0, p.Taxes)
	assert.True(t, p.Consistent())
	assert.Equal(t, "¥20,690", p.Formatted)

	noBase := pricing("USD", 120.5, 0)
	assert.Equal(t, 120.5, noBase.Base)
	assert.Equal(t, 0.0, noBase.Taxes)
	assert.True(t, noBase.Consistent())
}
