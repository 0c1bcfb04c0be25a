package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCriteria() SearchCriteria {
	return SearchCriteria{
		Route:         Route{Departure: "HND", Arrival: "ITM"},
		DepartureDate: "2025-03-01",
		Passengers:    Passengers{Adults: 1},
		CabinClass:    CabinEconomy,
		Currency:      "JPY",
	}
}

func TestSearchCriteria_Validate(t *testing.T) {
	ret := "2025-02-28"
	tests := []struct {
		name     string
		mutate   func(c *SearchCriteria)
		expected error
	}{
		{"valid", func(c *SearchCriteria) {}, nil},
		{"same airport", func(c *SearchCriteria) { c.Route.Arrival = "HND" }, ErrSameAirport},
		{"bad code", func(c *SearchCriteria) { c.Route.Departure = "HN1" }, ErrInvalidAirportCode},
		{"bad date", func(c *SearchCriteria) { c.DepartureDate = "01/03/2025" }, ErrInvalidDate},
		{"return before departure", func(c *SearchCriteria) { c.ReturnDate = &ret }, ErrReturnBeforeDeparture},
		{"no adults", func(c *SearchCriteria) { c.Passengers = Passengers{Children: 1} }, ErrNoAdults},
		{"negative infants", func(c *SearchCriteria) { c.Passengers.Infants = -1 }, ErrNegativePassengers},
		{"full party", func(c *SearchCriteria) { c.Passengers = Passengers{Adults: 5, Children: 3, Infants: 1} }, nil},
		{"party of ten", func(c *SearchCriteria) { c.Passengers = Passengers{Adults: 5, Children: 4, Infants: 1} }, ErrTooManyPassengers},
		{"too many adults", func(c *SearchCriteria) { c.Passengers.Adults = 10 }, ErrTooManyPassengers},
		{"overflowing total", func(c *SearchCriteria) { c.Passengers = Passengers{Adults: math.MaxInt, Infants: 1} }, ErrTooManyPassengers},
		{"huge children", func(c *SearchCriteria) { c.Passengers.Children = math.MaxInt }, ErrTooManyPassengers},
		{"bad cabin", func(c *SearchCriteria) { c.CabinClass = "coach" }, ErrInvalidCabinClass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCriteria()
			tt.mutate(&c)
			err := c.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSearchCriteria_NormalizeAndReturnLeg(t *testing.T) {
	ret := "2025-03-05"
	c := SearchCriteria{
		Route:         Route{Departure: " hnd", Arrival: "itm "},
		DepartureDate: "2025-03-01",
		ReturnDate:    &ret,
		Currency:      "usd",
	}.Normalize()

	require.NoError(t, c.Validate())
	assert.Equal(t, "HND-ITM", c.Route.Key())
	assert.Equal(t, 1, c.Passengers.Adults)
	assert.Equal(t, CabinEconomy, c.CabinClass)
	assert.Equal(t, "USD", c.Currency)

	leg, ok := c.ReturnLeg()
	require.True(t, ok)
	assert.Equal(t, Route{Departure: "ITM", Arrival: "HND"}, leg.Route)
	assert.Equal(t, "2025-03-05", leg.DepartureDate)
	assert.Nil(t, leg.ReturnDate)
}
