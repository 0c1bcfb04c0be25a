package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/metrics"
	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/transport"
)

const (
	amadeusTokenPath  = "/v1/security/oauth2/token"
	amadeusOffersPath = "/v2/shopping/flight-offers"
	amadeusMaxOffers  = 20
)

type amadeusTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type amadeusResponse struct {
	Data         []amadeusOffer      `json:"data"`
	Dictionaries amadeusDictionaries `json:"dictionaries"`
}

type amadeusDictionaries struct {
	Carriers map[string]string `json:"carriers"`
}

type amadeusOffer struct {
	ID                     string                   `json:"id"`
	NumberOfBookableSeats  int                      `json:"numberOfBookableSeats"`
	Itineraries            []amadeusItinerary       `json:"itineraries"`
	Price                  amadeusPrice             `json:"price"`
	ValidatingAirlineCodes []string                 `json:"validatingAirlineCodes"`
	TravelerPricings       []amadeusTravelerPricing `json:"travelerPricings"`
}

type amadeusItinerary struct {
	Duration string           `json:"duration"`
	Segments []amadeusSegment `json:"segments"`
}

type amadeusSegment struct {
	Departure     amadeusEndpoint `json:"departure"`
	Arrival       amadeusEndpoint `json:"arrival"`
	CarrierCode   string          `json:"carrierCode"`
	Number        string          `json:"number"`
	NumberOfStops int             `json:"numberOfStops"`
}

type amadeusEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type amadeusPrice struct {
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	Base       string `json:"base"`
	GrandTotal string `json:"grandTotal"`
}

type amadeusTravelerPricing struct {
	FareDetailsBySegment []amadeusFareDetail `json:"fareDetailsBySegment"`
}

type amadeusFareDetail struct {
	Cabin string `json:"cabin"`
	Class string `json:"class"`
}

type AmadeusConfig struct {
	ClientID          string
	ClientSecret      string
	TokenSafetyBuffer time.Duration
}

// AmadeusProvider talks to the self-service flight offers API with an
// OAuth2 client-credentials token.
type AmadeusProvider struct {
	base
	cfg    AmadeusConfig
	tokens *tokenCache
}

func NewAmadeusProvider(cfg AmadeusConfig, opts Options) *AmadeusProvider {
	p := &AmadeusProvider{
		base: newBase("amadeus", opts),
		cfg:  cfg,
	}
	p.tokens = newTokenCache(p.fetchToken, cfg.TokenSafetyBuffer, p.opts.Now)
	return p
}

func (p *AmadeusProvider) configured() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

func (p *AmadeusProvider) Search(ctx context.Context, criteria models.SearchCriteria) models.Envelope[[]models.UnifiedOffer] {
	return p.run(ctx, criteria, p.search)
}

func (p *AmadeusProvider) HealthCheck(ctx context.Context) models.HealthStatus {
	return p.healthCheck(ctx, p.configured())
}

func (p *AmadeusProvider) search(ctx context.Context, criteria models.SearchCriteria) result {
	if !p.configured() {
		return p.fail(models.ErrCodeAuth, errNotConfigured)
	}

	// One token per search; retries below reuse it.
	token, err := p.tokens.Get(ctx)
	if err != nil {
		return p.fail(models.ErrCodeAuth, fmt.Errorf("acquire token: %w", err))
	}

	query := url.Values{}
	query.Set("originLocationCode", criteria.Route.Departure)
	query.Set("destinationLocationCode", criteria.Route.Arrival)
	query.Set("departureDate", criteria.DepartureDate)
	query.Set("adults", strconv.Itoa(criteria.Passengers.Adults))
	if criteria.Passengers.Children > 0 {
		query.Set("children", strconv.Itoa(criteria.Passengers.Children))
	}
	if criteria.Passengers.Infants > 0 {
		query.Set("infants", strconv.Itoa(criteria.Passengers.Infants))
	}
	query.Set("travelClass", amadeusTravelClass(criteria.CabinClass))
	query.Set("currencyCode", criteria.Currency)
	query.Set("max", strconv.Itoa(amadeusMaxOffers))

	resp, err := p.opts.Transport.Execute(ctx, p.name, transport.Request{
		Method: http.MethodGet,
		URL:    p.endpoint(amadeusOffersPath, query),
		Header: http.Header{
			"Authorization": []string{"Bearer " + token},
			"Accept":        []string{"application/json"},
		},
	}, p.opts.Policy)
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) && te.StatusCode == http.StatusUnauthorized {
			p.tokens.Invalidate()
		}
		return p.failTransport("flight offers", err)
	}

	var raw amadeusResponse
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return p.fail(models.ErrCodeUnknown, fmt.Errorf("decode flight offers: %w", err))
	}

	offers := make([]models.UnifiedOffer, 0, len(raw.Data))
	for _, o := range raw.Data {
		offer, err := p.normalize(o, raw.Dictionaries, criteria)
		if err != nil {
			p.logger.Debug("skipping offer", zap.String("offer_id", o.ID), zap.Error(err))
			continue
		}
		offers = append(offers, offer)
	}
	return success(offers)
}

func (p *AmadeusProvider) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	resp, err := p.opts.Transport.Execute(ctx, p.name, transport.Request{
		Method: http.MethodPost,
		URL:    p.endpoint(amadeusTokenPath, nil),
		Header: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
		Body:   []byte(form.Encode()),
	}, p.opts.Policy)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(p.name, "error").Inc()
		return "", 0, err
	}

	var tok amadeusTokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		metrics.TokenRefreshes.WithLabelValues(p.name, "error").Inc()
		return "", 0, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues(p.name, "error").Inc()
		return "", 0, errors.New("token response without access_token")
	}

	metrics.TokenRefreshes.WithLabelValues(p.name, "success").Inc()
	p.logger.Info("refreshed access token", zap.Int("expires_in", tok.ExpiresIn))
	return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
}

func (p *AmadeusProvider) normalize(o amadeusOffer, dict amadeusDictionaries, criteria models.SearchCriteria) (models.UnifiedOffer, error) {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return models.UnifiedOffer{}, errors.New("offer without segments")
	}
	segments := o.Itineraries[0].Segments
	first, last := segments[0], segments[len(segments)-1]

	depTime, err := parseLocal(first.Departure.At, first.Departure.IataCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("departure time: %w", err)
	}
	arrTime, err := parseLocal(last.Arrival.At, last.Arrival.IataCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("arrival time: %w", err)
	}

	totalStr := o.Price.GrandTotal
	if totalStr == "" {
		totalStr = o.Price.Total
	}
	total, err := parseAmount(totalStr)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("price: %w", err)
	}
	baseAmount, _ := parseAmount(o.Price.Base)

	stops := len(segments) - 1
	for _, s := range segments {
		stops += s.NumberOfStops
	}

	carrier := first.CarrierCode
	if len(o.ValidatingAirlineCodes) > 0 {
		carrier = o.ValidatingAirlineCodes[0]
	}

	cabin, bookingClass := criteria.CabinClass, ""
	if len(o.TravelerPricings) > 0 && len(o.TravelerPricings[0].FareDetailsBySegment) > 0 {
		fd := o.TravelerPricings[0].FareDetailsBySegment[0]
		if c, ok := models.ParseCabinClass(fd.Cabin); ok {
			cabin = c
		}
		bookingClass = fd.Class
	}

	currencyCode := o.Price.Currency
	if currencyCode == "" {
		currencyCode = criteria.Currency
	}

	return models.UnifiedOffer{
		ID:     offerID(p.name, o.ID),
		Source: p.name,
		Route: models.Route{
			Departure: first.Departure.IataCode,
			Arrival:   last.Arrival.IataCode,
		},
		Schedule:     models.Schedule{Departure: depTime, Arrival: arrTime},
		FlightNumber: first.CarrierCode + first.Number,
		Stops:        stops,
		CabinClass:   cabin,
		Pricing:      pricing(currencyCode, total, baseAmount),
		Airline: models.Airline{
			Code: carrier,
			Name: dict.Carriers[carrier],
		},
		Availability: models.Availability{
			Seats:        o.NumberOfBookableSeats,
			BookingClass: bookingClass,
			Available:    o.NumberOfBookableSeats > 0,
		},
	}, nil
}

func amadeusTravelClass(c models.CabinClass) string {
	switch c {
	case models.CabinPremium:
		return "PREMIUM_ECONOMY"
	case models.CabinBusiness:
		return "BUSINESS"
	case models.CabinFirst:
		return "FIRST"
	}
	return "ECONOMY"
}
