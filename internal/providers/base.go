package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/metrics"
	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/reference"
	"github.com/dharmasatrya/milesvalue/internal/timezone"
	"github.com/dharmasatrya/milesvalue/internal/transport"
	"github.com/dharmasatrya/milesvalue/pkg/currency"
)

var (
	errNotConfigured = errors.New("credentials not configured")
	errNoResults     = errors.New("provider returned no offers")
)

// Options is the host-supplied construction config shared by every client.
type Options struct {
	BaseURL   string
	Policy    transport.Policy
	Fallback  bool
	Transport *transport.Transport
	Logger    *zap.Logger
	Reference *reference.Data
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Policy.Attempts < 1 {
		o.Policy = transport.DefaultPolicy()
	}
	if o.Transport == nil {
		o.Transport = transport.New(nil, transport.WithLogger(o.Logger))
	}
	o.Logger = logger.OrNop(o.Logger)
	if o.Reference == nil {
		o.Reference = reference.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type resultKind int

const (
	resultOK resultKind = iota
	resultNeedsFallback
)

// result is the outcome of one provider round trip: either normalized
// offers or a reason to synthesize estimates instead.
type result struct {
	kind   resultKind
	offers []models.UnifiedOffer
	reason *ProviderError
}

func success(offers []models.UnifiedOffer) result {
	return result{kind: resultOK, offers: offers}
}

func needsFallback(reason *ProviderError) result {
	return result{kind: resultNeedsFallback, reason: reason}
}

type fetchFunc func(ctx context.Context, criteria models.SearchCriteria) result

type base struct {
	name   string
	opts   Options
	logger *zap.Logger
}

func newBase(name string, opts Options) base {
	opts = opts.withDefaults()
	return base{
		name:   name,
		opts:   opts,
		logger: opts.Logger.With(zap.String("provider", name)),
	}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) fail(code models.ErrorCode, err error) result {
	return needsFallback(NewProviderError(b.name, code, err))
}

// failTransport classifies an Execute error onto the envelope taxonomy.
func (b *base) failTransport(stage string, err error) result {
	return b.fail(transport.CodeOf(err), fmt.Errorf("%s: %w", stage, err))
}

func (b *base) run(ctx context.Context, criteria models.SearchCriteria, fetch fetchFunc) models.Envelope[[]models.UnifiedOffer] {
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	}()

	criteria = criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		metrics.ProviderSearches.WithLabelValues(b.name, "invalid").Inc()
		apiErr := models.NewAPIError(models.ErrCodeInvalidRequest, err.Error()).WithDetail("provider", b.name)
		return models.Fail[[]models.UnifiedOffer](apiErr, b.meta(start, models.MetaSourceAPI))
	}

	r := fetch(ctx, criteria)
	if r.kind == resultOK && len(r.offers) == 0 && b.opts.Fallback {
		r = b.fail(models.ErrCodeUnknown, errNoResults)
	}

	if r.kind == resultOK {
		offers := b.annotate(r.offers, criteria)
		metrics.ProviderSearches.WithLabelValues(b.name, models.MetaSourceAPI).Inc()
		return models.Ok(offers, b.meta(start, models.MetaSourceAPI))
	}

	if !b.opts.Fallback {
		b.logger.Warn("provider search failed",
			zap.String("code", string(r.reason.Code)),
			zap.Error(r.reason.Err),
		)
		metrics.ProviderSearches.WithLabelValues(b.name, "error").Inc()
		apiErr := models.NewAPIError(r.reason.Code, r.reason.Error()).WithDetail("provider", b.name)
		return models.Fail[[]models.UnifiedOffer](apiErr, b.meta(start, models.MetaSourceAPI))
	}

	offers := synthesizeOffers(b.name, criteria, b.opts.Reference)
	b.logger.Info("serving fallback offers",
		zap.String("route", criteria.Route.Key()),
		zap.String("reason_code", string(r.reason.Code)),
		zap.String("reason", r.reason.Err.Error()),
		zap.Int("offers", len(offers)),
	)
	metrics.ProviderSearches.WithLabelValues(b.name, models.MetaSourceFallback).Inc()
	return models.Ok(offers, b.meta(start, models.MetaSourceFallback))
}

func (b *base) meta(start time.Time, source string) models.Metadata {
	return models.Metadata{
		RequestID:       uuid.NewString(),
		Timestamp:       b.opts.Now().UTC(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Source:          source,
	}
}

// annotate fills display fields and the award-chart annotation providers
// do not send.
func (b *base) annotate(offers []models.UnifiedOffer, criteria models.SearchCriteria) []models.UnifiedOffer {
	programs := b.opts.Reference.Programs(criteria.Route.Departure, criteria.Route.Arrival)
	for i := range offers {
		o := &offers[i]
		if o.Airline.Alliance == "" {
			o.Airline.Alliance = b.opts.Reference.Alliance(o.Airline.Code)
		}
		if name, ok := b.opts.Reference.AirlineName(o.Airline.Code); ok {
			o.Airline.Name = name
		}
		if o.Pricing.Formatted == "" {
			o.Pricing.Formatted = currency.Format(o.Pricing.Total, o.Pricing.Currency)
		}
		if o.Mileage == nil {
			o.Mileage = chartMileage(programs, o.Airline.Code, o.CabinClass, o.Schedule.Departure, o.Availability.Available)
		}
	}
	return offers
}

// chartMileage looks up the operating carrier's own program for the cabin.
func chartMileage(programs []models.MileageProgram, carrier string, cabin models.CabinClass, departure time.Time, available bool) *models.MileageInfo {
	for _, p := range programs {
		if !strings.EqualFold(p.Airline, carrier) {
			continue
		}
		req, ok := p.Cabins[cabin]
		if !ok || req.Required() <= 0 {
			return nil
		}
		return &models.MileageInfo{
			RequiredMiles:  req.Required(),
			Season:         models.SeasonOf(departure),
			AwardAvailable: available,
		}
	}
	return nil
}

func (b *base) healthCheck(ctx context.Context, configured bool) models.HealthStatus {
	status := models.HealthStatus{
		Provider:    b.name,
		LastChecked: b.opts.Now().UTC(),
	}
	if b.opts.BaseURL == "" {
		status.Issues = []string{"base url not configured"}
		return status
	}

	start := time.Now()
	_, err := b.opts.Transport.Execute(ctx, b.name,
		transport.Request{Method: http.MethodHead, URL: b.opts.BaseURL},
		transport.Policy{Attempts: 1, Timeout: b.opts.Policy.Timeout})
	status.ResponseTimeMs = time.Since(start).Milliseconds()

	var te *transport.Error
	switch {
	case err == nil:
		status.IsHealthy = true
	case errors.As(err, &te) && te.Kind == transport.KindHTTP && te.StatusCode < http.StatusInternalServerError:
		status.IsHealthy = true
	default:
		status.Issues = append(status.Issues, err.Error())
	}

	if !configured {
		status.IsHealthy = false
		status.Issues = append(status.Issues, errNotConfigured.Error())
	}
	return status
}

func (b *base) endpoint(path string, query url.Values) string {
	u := b.opts.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}

// pricing builds a consistent Pricing from a total and an optional base.
func pricing(code string, total, baseAmount float64) models.Pricing {
	code = strings.ToUpper(code)
	total = currency.Round(total, code)
	if baseAmount <= 0 || baseAmount > total {
		baseAmount = total
	}
	baseAmount = currency.Round(baseAmount, code)
	return models.Pricing{
		Currency:  code,
		Base:      baseAmount,
		Taxes:     currency.Round(total-baseAmount, code),
		Total:     total,
		Formatted: currency.Format(total, code),
	}
}

func parseLocal(value, airport string) (time.Time, error) {
	t, err := timezone.ParseTimeWithOffset(value, airport)
	if err != nil {
		return time.Time{}, err
	}
	return timezone.ConvertToTimezone(t, airport), nil
}

func offerID(provider, raw string) string {
	return provider + "-" + raw
}
