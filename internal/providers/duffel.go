package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/transport"
)

const duffelOfferRequestsPath = "/air/offer_requests"

type duffelOfferRequest struct {
	Data duffelOfferRequestData `json:"data"`
}

type duffelOfferRequestData struct {
	Slices     []duffelSliceRequest `json:"slices"`
	Passengers []duffelPassenger    `json:"passengers"`
	CabinClass string               `json:"cabin_class"`
}

type duffelSliceRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type duffelPassenger struct {
	Type string `json:"type"`
}

type duffelResponse struct {
	Data struct {
		ID     string        `json:"id"`
		Offers []duffelOffer `json:"offers"`
	} `json:"data"`
}

type duffelOffer struct {
	ID            string        `json:"id"`
	TotalAmount   string        `json:"total_amount"`
	BaseAmount    string        `json:"base_amount"`
	TaxAmount     *string       `json:"tax_amount"`
	TotalCurrency string        `json:"total_currency"`
	Owner         duffelCarrier `json:"owner"`
	Slices        []duffelSlice `json:"slices"`
}

type duffelCarrier struct {
	IataCode string `json:"iata_code"`
	Name     string `json:"name"`
}

type duffelSlice struct {
	Origin      duffelPlace     `json:"origin"`
	Destination duffelPlace     `json:"destination"`
	Segments    []duffelSegment `json:"segments"`
}

type duffelPlace struct {
	IataCode string `json:"iata_code"`
}

type duffelSegment struct {
	DepartingAt        string                   `json:"departing_at"`
	ArrivingAt         string                   `json:"arriving_at"`
	MarketingCarrier   duffelCarrier            `json:"marketing_carrier"`
	MarketingFlightNum string                   `json:"marketing_carrier_flight_number"`
	Passengers         []duffelSegmentPassenger `json:"passengers"`
}

type duffelSegmentPassenger struct {
	CabinClass    string `json:"cabin_class"`
	FareBasisCode string `json:"fare_basis_code"`
}

type DuffelConfig struct {
	AccessToken string
	Version     string
}

// DuffelProvider creates an offer request and reads the offers returned
// inline with it.
type DuffelProvider struct {
	base
	cfg DuffelConfig
}

func NewDuffelProvider(cfg DuffelConfig, opts Options) *DuffelProvider {
	if cfg.Version == "" {
		cfg.Version = "v2"
	}
	return &DuffelProvider{
		base: newBase("duffel", opts),
		cfg:  cfg,
	}
}

func (p *DuffelProvider) Search(ctx context.Context, criteria models.SearchCriteria) models.Envelope[[]models.UnifiedOffer] {
	return p.run(ctx, criteria, p.search)
}

func (p *DuffelProvider) HealthCheck(ctx context.Context) models.HealthStatus {
	return p.healthCheck(ctx, p.cfg.AccessToken != "")
}

func (p *DuffelProvider) search(ctx context.Context, criteria models.SearchCriteria) result {
	if p.cfg.AccessToken == "" {
		return p.fail(models.ErrCodeAuth, errNotConfigured)
	}

	body, err := json.Marshal(duffelOfferRequest{Data: duffelOfferRequestData{
		Slices: []duffelSliceRequest{{
			Origin:        criteria.Route.Departure,
			Destination:   criteria.Route.Arrival,
			DepartureDate: criteria.DepartureDate,
		}},
		Passengers: duffelPassengers(criteria.Passengers),
		CabinClass: duffelCabin(criteria.CabinClass),
	}})
	if err != nil {
		return p.fail(models.ErrCodeInvalidRequest, fmt.Errorf("encode offer request: %w", err))
	}

	resp, err := p.opts.Transport.Execute(ctx, p.name, transport.Request{
		Method: http.MethodPost,
		URL:    p.endpoint(duffelOfferRequestsPath, url.Values{"return_offers": []string{"true"}}),
		Header: http.Header{
			"Authorization":  []string{"Bearer " + p.cfg.AccessToken},
			"Duffel-Version": []string{p.cfg.Version},
			"Content-Type":   []string{"application/json"},
			"Accept":         []string{"application/json"},
		},
		Body: body,
	}, p.opts.Policy)
	if err != nil {
		return p.failTransport("offer request", err)
	}

	var raw duffelResponse
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return p.fail(models.ErrCodeUnknown, fmt.Errorf("decode offer request: %w", err))
	}

	offers := make([]models.UnifiedOffer, 0, len(raw.Data.Offers))
	for _, o := range raw.Data.Offers {
		offer, err := p.normalize(o, criteria)
		if err != nil {
			p.logger.Debug("skipping offer", zap.String("offer_id", o.ID), zap.Error(err))
			continue
		}
		offers = append(offers, offer)
	}
	return success(offers)
}

func (p *DuffelProvider) normalize(o duffelOffer, criteria models.SearchCriteria) (models.UnifiedOffer, error) {
	if len(o.Slices) == 0 || len(o.Slices[0].Segments) == 0 {
		return models.UnifiedOffer{}, errors.New("offer without segments")
	}
	slice := o.Slices[0]
	first, last := slice.Segments[0], slice.Segments[len(slice.Segments)-1]

	depTime, err := parseLocal(first.DepartingAt, slice.Origin.IataCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("departure time: %w", err)
	}
	arrTime, err := parseLocal(last.ArrivingAt, slice.Destination.IataCode)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("arrival time: %w", err)
	}

	total, err := parseAmount(o.TotalAmount)
	if err != nil {
		return models.UnifiedOffer{}, fmt.Errorf("total amount: %w", err)
	}
	baseAmount, err := parseAmount(o.BaseAmount)
	if err != nil && o.TaxAmount != nil {
		if tax, taxErr := parseAmount(*o.TaxAmount); taxErr == nil {
			baseAmount = total - tax
		}
	}

	cabin, fareBasis := criteria.CabinClass, ""
	if len(first.Passengers) > 0 {
		if c, ok := models.ParseCabinClass(first.Passengers[0].CabinClass); ok {
			cabin = c
		}
		fareBasis = first.Passengers[0].FareBasisCode
	}

	currencyCode := o.TotalCurrency
	if currencyCode == "" {
		currencyCode = criteria.Currency
	}

	return models.UnifiedOffer{
		ID:     offerID(p.name, o.ID),
		Source: p.name,
		Route: models.Route{
			Departure: slice.Origin.IataCode,
			Arrival:   slice.Destination.IataCode,
		},
		Schedule:     models.Schedule{Departure: depTime, Arrival: arrTime},
		FlightNumber: first.MarketingCarrier.IataCode + first.MarketingFlightNum,
		Stops:        len(slice.Segments) - 1,
		CabinClass:   cabin,
		Pricing:      pricing(currencyCode, total, baseAmount),
		Airline:      models.Airline{Code: o.Owner.IataCode, Name: o.Owner.Name},
		Availability: models.Availability{
			BookingClass: fareBasis,
			Available:    true,
		},
	}, nil
}

func duffelPassengers(p models.Passengers) []duffelPassenger {
	out := make([]duffelPassenger, 0, p.Total())
	for i := 0; i < p.Adults; i++ {
		out = append(out, duffelPassenger{Type: "adult"})
	}
	for i := 0; i < p.Children; i++ {
		out = append(out, duffelPassenger{Type: "child"})
	}
	for i := 0; i < p.Infants; i++ {
		out = append(out, duffelPassenger{Type: "infant_without_seat"})
	}
	return out
}

func duffelCabin(c models.CabinClass) string {
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
