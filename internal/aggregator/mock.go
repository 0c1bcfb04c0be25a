package aggregator

import (
	"fmt"
	"time"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/reference"
	"github.com/dharmasatrya/milesvalue/internal/timezone"
	"github.com/dharmasatrya/milesvalue/pkg/currency"
)

const (
	mockDefaultDistance = 500
	mockBaseFare        = 8000.0
	mockFarePerMile     = 30.0
	mockMilesPerMinute  = 8
	mockTaxPct          = 0.10
)

var mockCabinFactors = map[models.CabinClass]float64{
	models.CabinEconomy:  1.0,
	models.CabinPremium:  1.5,
	models.CabinBusiness: 3.0,
	models.CabinFirst:    4.5,
}

type mockCarrier struct {
	code    string
	step    float64
	hour    int
	minutes int
}

var mockCarriers = []mockCarrier{
	{code: "NH", step: 1.00, hour: 8, minutes: 0},
	{code: "JL", step: 1.06, hour: 14, minutes: 30},
}

// MockGenerator builds route-generic estimates from the distance table
// when no provider produced anything. It has no randomness.
type MockGenerator struct {
	ref *reference.Data
}

func NewMockGenerator(ref *reference.Data) *MockGenerator {
	if ref == nil {
		ref = reference.Default()
	}
	return &MockGenerator{ref: ref}
}

func (g *MockGenerator) Generate(c models.SearchCriteria) []models.UnifiedOffer {
	distance, ok := g.ref.Distance(c.Route.Departure, c.Route.Arrival)
	if !ok {
		distance = mockDefaultDistance
	}

	date, err := time.Parse(models.DateLayout, c.DepartureDate)
	if err != nil {
		return nil
	}

	priceCurrency := c.Currency
	if _, ok := currency.ConvertEstimate(1, "JPY", priceCurrency); !ok {
		priceCurrency = "JPY"
	}

	cabin, ok := mockCabinFactors[c.CabinClass]
	if !ok {
		cabin = 1
	}
	share := float64(c.Passengers.Adults) + float64(c.Passengers.Children)*0.75 + float64(c.Passengers.Infants)*0.1
	fare := (mockBaseFare + float64(distance)*mockFarePerMile) * cabin * share
	minutes := 30 + distance/mockMilesPerMinute

	offers := make([]models.UnifiedOffer, 0, len(mockCarriers))
	for i, mc := range mockCarriers {
		total, _ := currency.ConvertEstimate(fare*mc.step, "JPY", priceCurrency)
		total = currency.Round(total, priceCurrency)
		baseAmount := currency.Round(total/(1+mockTaxPct), priceCurrency)

		dep := timezone.LocalTime(date, mc.hour, mc.minutes, c.Route.Departure)
		arr := timezone.ConvertToTimezone(dep.Add(time.Duration(minutes)*time.Minute), c.Route.Arrival)

		name, ok := g.ref.AirlineName(mc.code)
		if !ok {
			name = mc.code
		}

		offers = append(offers, models.UnifiedOffer{
			ID:         fmt.Sprintf("%s-%s-%d", models.SourceMock, c.Route.Key(), i),
			Source:     models.SourceMock,
			Route:      c.Route,
			Schedule:   models.Schedule{Departure: dep, Arrival: arr},
			CabinClass: c.CabinClass,
			Pricing: models.Pricing{
				Currency:  priceCurrency,
				Base:      baseAmount,
				Taxes:     currency.Round(total-baseAmount, priceCurrency),
				Total:     total,
				Formatted: currency.Format(total, priceCurrency),
			},
			Airline: models.Airline{
				Code:     mc.code,
				Name:     name,
				Alliance: g.ref.Alliance(mc.code),
			},
			Availability: models.Availability{Available: false},
		})
	}
	return offers
}
