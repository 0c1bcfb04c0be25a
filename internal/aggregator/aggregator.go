package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/metrics"
	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/providers"
	"github.com/dharmasatrya/milesvalue/internal/reference"
)

type Config struct {
	// RoundTripTimeout bounds SearchRoundTrip as a whole; zero disables it.
	RoundTripTimeout time.Duration
	Reference        *reference.Data
	Logger           *zap.Logger
}

type Aggregator struct {
	providers []providers.Provider
	config    Config
	mock      *MockGenerator
	logger    *zap.Logger
}

func NewAggregator(providerList []providers.Provider, config Config) *Aggregator {
	if config.Reference == nil {
		config.Reference = reference.Default()
	}
	return &Aggregator{
		providers: providerList,
		config:    config,
		mock:      NewMockGenerator(config.Reference),
		logger:    logger.OrNop(config.Logger),
	}
}

func (a *Aggregator) Providers() []providers.Provider {
	return a.providers
}

type providerResult struct {
	provider string
	envelope models.Envelope[[]models.UnifiedOffer]
}

// Search fans criteria out to every provider and waits for all of them.
// Offers are merged in dispatch order and then stably sorted by total
// price, so completion order never leaks into the result.
func (a *Aggregator) Search(ctx context.Context, criteria models.SearchCriteria) models.Envelope[[]models.UnifiedOffer] {
	start := time.Now()

	criteria = criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		metrics.AggregatedSearches.WithLabelValues("invalid").Inc()
		return models.Fail[[]models.UnifiedOffer](
			models.NewAPIError(models.ErrCodeInvalidRequest, err.Error()),
			a.meta(start, models.MetaSourceAPI, nil),
		)
	}

	results := make([]providerResult, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, provider providers.Provider) {
			defer wg.Done()
			results[i] = a.searchProvider(ctx, provider, criteria)
		}(i, p)
	}
	wg.Wait()

	summary := &models.ProviderSummary{Queried: len(a.providers)}
	var (
		offers    []models.UnifiedOffer
		failures  []string
		anyAPI    bool
		anyResult bool
	)
	for _, r := range results {
		data, ok := r.envelope.Payload()
		if !ok {
			summary.Failed++
			summary.Failures = append(summary.Failures, r.provider)
			failures = append(failures, r.provider+": "+failureMessage(r.envelope.Error))
			a.logger.Warn("provider failed",
				zap.String("provider", r.provider),
				zap.String("code", string(failureCode(r.envelope.Error))),
				zap.String("message", failureMessage(r.envelope.Error)),
			)
			continue
		}

		summary.Succeeded++
		if r.envelope.Metadata.Source == models.MetaSourceFallback {
			summary.Fallbacks = append(summary.Fallbacks, r.provider)
		} else if len(data) > 0 {
			anyAPI = true
		}
		if len(data) > 0 {
			anyResult = true
		}
		offers = append(offers, data...)
	}

	source := models.MetaSourceAPI
	switch {
	case !anyResult:
		offers = a.mock.Generate(criteria)
		source = models.MetaSourceMock
		a.logger.Warn("no provider offers, serving mock estimates",
			zap.String("route", criteria.Route.Key()),
			zap.Int("providers", len(a.providers)),
			zap.Int("offers", len(offers)),
		)
	case !anyAPI:
		source = models.MetaSourceFallback
	}

	sortByPrice(offers)
	metrics.AggregatedSearches.WithLabelValues(source).Inc()
	meta := a.meta(start, source, summary)

	if len(offers) == 0 {
		apiErr := models.NewAPIError(models.ErrCodeServiceUnavailable, "no offers available for route")
		if len(failures) > 0 {
			apiErr.WithDetail("failures", failures)
		}
		return models.Fail[[]models.UnifiedOffer](apiErr, meta)
	}

	env := models.Ok(offers, meta)
	if len(failures) > 0 {
		env.Warning = models.NewAPIError(models.ErrCodePartialFailure, strings.Join(failures, "; ")).
			WithDetail("failed_providers", summary.Failures)
	}
	return env
}

// searchProvider converts a panicking provider into a failed envelope so
// it cannot take its siblings down with it.
func (a *Aggregator) searchProvider(ctx context.Context, p providers.Provider, criteria models.SearchCriteria) (res providerResult) {
	name := p.Name()
	res.provider = name
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("provider panicked", zap.String("provider", name), zap.Any("panic", r))
			res.envelope = models.Fail[[]models.UnifiedOffer](
				models.NewAPIError(models.ErrCodeUnknown, fmt.Sprintf("provider panicked: %v", r)),
				models.Metadata{Timestamp: time.Now().UTC()},
			)
		}
	}()

	res.envelope = p.Search(ctx, criteria)
	if !res.envelope.Success && res.envelope.Error == nil {
		res.envelope = models.Fail[[]models.UnifiedOffer](nil, res.envelope.Metadata)
	}
	return res
}

func sortByPrice(offers []models.UnifiedOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Pricing.Total < offers[j].Pricing.Total
	})
}

func failureMessage(err *models.APIError) string {
	if err == nil {
		return "unknown failure"
	}
	return err.Message
}

func failureCode(err *models.APIError) models.ErrorCode {
	if err == nil {
		return models.ErrCodeUnknown
	}
	return err.Code
}

func (a *Aggregator) meta(start time.Time, source string, summary *models.ProviderSummary) models.Metadata {
	return models.Metadata{
		RequestID:       uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Source:          source,
		Providers:       summary,
	}
}

// SearchRoundTrip searches both legs concurrently. A failed return leg
// degrades to outbound-only results with a warning.
func (a *Aggregator) SearchRoundTrip(ctx context.Context, criteria models.SearchCriteria) models.Envelope[models.RoundTrip] {
	start := time.Now()
	criteria = criteria.Normalize()

	returnCriteria, isRoundTrip := criteria.ReturnLeg()
	if !isRoundTrip {
		outbound := a.Search(ctx, criteria)
		return roundTripEnvelope(outbound, nil)
	}

	if a.config.RoundTripTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RoundTripTimeout)
		defer cancel()
	}

	var (
		wg                sync.WaitGroup
		outbound, inbound models.Envelope[[]models.UnifiedOffer]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outbound = a.Search(ctx, criteria)
	}()
	go func() {
		defer wg.Done()
		inbound = a.Search(ctx, returnCriteria)
	}()
	wg.Wait()

	env := roundTripEnvelope(outbound, &inbound)
	env.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()
	return env
}

func roundTripEnvelope(outbound models.Envelope[[]models.UnifiedOffer], inbound *models.Envelope[[]models.UnifiedOffer]) models.Envelope[models.RoundTrip] {
	out, ok := outbound.Payload()
	if !ok {
		return models.Fail[models.RoundTrip](outbound.Error, outbound.Metadata)
	}

	trip := models.RoundTrip{Outbound: out}
	env := models.Ok(trip, outbound.Metadata)
	env.Warning = outbound.Warning
	if inbound == nil {
		return env
	}

	ret, ok := inbound.Payload()
	if !ok {
		env.Warning = models.NewAPIError(models.ErrCodePartialFailure, "return leg unavailable: "+failureMessage(inbound.Error))
		return env
	}
	env.Data.Return = ret
	if env.Warning == nil {
		env.Warning = inbound.Warning
	}
	return env
}
