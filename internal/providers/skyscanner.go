package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/transport"
)

const skyscannerSearchPath = "/api/v2/flights/searchFlights"

type skyscannerResponse struct {
	Status  bool             `json:"status"`
	Message json.RawMessage  `json:"message"`
	Data    skyscannerResult `json:"data"`
}

type skyscannerResult struct {
	Itineraries []skyscannerItinerary `json:"itineraries"`
}

type skyscannerItinerary struct {
	ID    string          `json:"id"`
	Price skyscannerPrice `json:"price"`
	Legs  []skyscannerLeg `json:"legs"`
}

type skyscannerPrice struct {
	Raw       float64 `json:"raw"`
	Formatted string  `json:"formatted"`
}

type skyscannerLeg struct {
	Origin            skyscannerPlace    `json:"origin"`
	Destination       skyscannerPlace    `json:"destination"`
	Departure         string             `json:"departure"`
	Arrival           string             `json:"arrival"`
	DurationInMinutes int                `json:"durationInMinutes"`
	StopCount         int                `json:"stopCount"`
	Carriers          skyscannerCarriers `json:"carriers"`
	Segments          []skyscannerSeg    `json:"segments"`
}

type skyscannerPlace struct {
	DisplayCode string `json:"displayCode"`
}

type skyscannerCarriers struct {
	Marketing []skyscannerCarrier `json:"marketing"`
}

type skyscannerCarrier struct {
	Name        string `json:"name"`
	AlternateID string `json:"alternateId"`
}

type skyscannerSeg struct {
	FlightNumber     string            `json:"flightNumber"`
	MarketingCarrier skyscannerCarrier `json:"marketingCarrier"`
}

type SkyscannerConfig struct {
	APIKey string
	Host   string
}

// SkyscannerProvider queries the RapidAPI-hosted Sky Scrapper search.
// Prices come back as a single total without a tax breakdown.
type SkyscannerProvider struct {
	base
	cfg SkyscannerConfig
}

func NewSkyscannerProvider(cfg SkyscannerConfig, opts Options) *SkyscannerProvider {
	if cfg.Host == "" {
		cfg.Host = "sky-scrapper.p.rapidapi.com"
	}
	return &SkyscannerProvider{
		base: newBase("skyscanner", opts),
		cfg:  cfg,
	}
}

func (p *SkyscannerProvider) Search(ctx context.Context, criteria models.SearchCriteria) models.Envelope[[]models.UnifiedOffer] {
	return p.run(ctx, criteria, p.search)
}

func (p *SkyscannerProvider) HealthCheck(ctx context.Context) models.HealthStatus {
	return p.healthCheck(ctx, p.cfg.APIKey != "")
}

func (p *SkyscannerProvider) search(ctx context.Context, criteria models.SearchCriteria) result {
	if p.cfg.APIKey == "" {
		return p.fail(models.ErrCodeAuth, errNotConfigured)
	}

	query := url.Values{}
	query.Set("originSkyId", criteria.Route.Departure)
	query.Set("destinationSkyId", criteria.Route.Arrival)
	query.Set("date", criteria.DepartureDate)
	query.Set("cabinClass", skyscannerCabin(criteria.CabinClass))
	query.Set("adults", strconv.Itoa(criteria.Passengers.Adults))
	query.Set("childrens", strconv.Itoa(criteria.Passengers.Children))
	query.Set("infants", strconv.Itoa(criteria.Passengers.Infants))
	query.Set("currency", criteria.Currency)
	query.Set("sortBy", "best")

	resp, err := p.opts.Transport.Execute(ctx, p.name, transport.Request{
		Method: http.MethodGet,
		URL:    p.endpoint(skyscannerSearchPath, query),
		Header: http.Header{
			"x-rapidapi-key":  []string{p.cfg.APIKey},
			"x-rapidapi-host": []string{p.cfg.Host},
		},
	}, p.opts.Policy)
	if err != nil {
		return p.failTransport("search flights", err)
	}

	var raw skyscannerResponse
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return p.fail(models.ErrCodeUnknown, fmt.Errorf("decode search flights: %w", err))
	}
	if !raw.Status {
		return p.fail(models.ErrCodeServiceUnavailable, fmt.Errorf("search rejected: %s", string(raw.Message)))
	}

	offers := make([]models.UnifiedOffer, 0, len(raw.Data.Itineraries))
	for _, it := range raw.Data.Itineraries {
		offer, err := p.normalize(it, criteria)
		if err != nil {
			p.logger.Debug("skipping itinerary", zap.String("itinerary_id", it.ID), zap.Error(err))
			continue
		}
		offers = append(offers, offer)
	}
	return success(offers)
}

func (p *SkyscannerProvider) normalize(it skyscannerItinerary, criteria models.SearchCriteria) (models.UnifiedOffer, error) {
	if len(it.Legs) == 0 {
		return models.UnifiedOffer{}, errors.New("itinerary without legs")
	}
	if it.Price.Raw <= 0 {
		return models.UnifiedOffer{}, errors.New("itinerary without price")
	}
	leg := it.Legs[0]

	depTime, err := parseLocal(leg.Departure, leg.Origin.DisplayCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("departure time: %w", err)
	}
	arrTime, err := parseLocal(leg.Arrival, leg.Destination.DisplayCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("arrival time: %w", err)
	}

	var airline models.Airline
	if len(leg.Carriers.Marketing) > 0 {
		airline = models.Airline{
			Code: leg.Carriers.Marketing[0].AlternateID,
			Name: leg.Carriers.Marketing[0].Name,
		}
	}

	var flightNumber string
	if len(leg.Segments) > 0 {
		seg := leg.Segments[0]
		flightNumber = seg.MarketingCarrier.AlternateID + seg.FlightNumber
		if airline.Code == "" {
			airline.Code = seg.MarketingCarrier.AlternateID
			airline.Name = seg.MarketingCarrier.Name
		}
	}

	return models.UnifiedOffer{
		ID:     offerID(p.name, it.ID),
		Source: p.name,
		Route: models.Route{
			Departure: leg.Origin.DisplayCode,
			Arrival:   leg.Destination.DisplayCode,
		},
		Schedule:     models.Schedule{Departure: depTime, Arrival: arrTime},
		FlightNumber: flightNumber,
		Stops:        leg.StopCount,
		CabinClass:   criteria.CabinClass,
		Pricing:      pricing(criteria.Currency, it.Price.Raw, 0),
		Airline:      airline,
		Availability: models.Availability{Available: true},
	}, nil
}

func skyscannerCabin(c models.CabinClass) string {
	switch c {
	case models.CabinPremium:
		return "premium_economy"
	case models.CabinBusiness:
		return "business"
	case models.CabinFirst:
		return "first"
	}
	return "economy"
}
