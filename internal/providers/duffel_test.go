package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

const duffelJSON = `{
  "data": {
    "id": "orq_0000A3tQSmKyqOrcySrGbo",
    "offers": [{
      "id": "off_0000A3tQcCRZ9e1hzkH4Ay",
      "total_amount": "41000.00",
      "base_amount": "37000.00",
      "tax_amount": "4000.00",
      "total_currency": "JPY",
      "owner": {"iata_code": "NH", "name": "All Nippon Airways"},
      "slices": [{
        "origin": {"iata_code": "HND"},
        "destination": {"iata_code": "ITM"},
        "segments": [{
          "departing_at": "2025-03-01T12:30:00",
          "arriving_at": "2025-03-01T13:35:00",
          "marketing_carrier": {"iata_code": "NH"},
          "marketing_carrier_flight_number": "23",
          "passengers": [{"cabin_class": "premium_economy", "fare_basis_code": "W03"}]
        }]
      }]
    }]
  }
}`

func TestDuffel_SearchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, duffelOfferRequestsPath, r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("return_offers"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "v2", r.Header.Get("Duffel-Version"))

		var req duffelOfferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "premium_economy", req.Data.CabinClass)
		assert.Len(t, req.Data.Passengers, 3)
		if assert.Len(t, req.Data.Slices, 1) {
			assert.Equal(t, "HND", req.Data.Slices[0].Origin)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(duffelJSON))
	}))
	defer srv.Close()

	c := testCriteria()
	c.CabinClass = models.CabinPremium
	c.Passengers = models.Passengers{Adults: 2, Infants: 1}

	p := NewDuffelProvider(DuffelConfig{AccessToken: "tok"}, testOptions(t, srv.URL, true))
	env := p.Search(context.Background(), c)

	require.True(t, env.Success)
	offers, _ := env.Payload()
	require.Len(t, offers, 1)

	o := offers[0]
	assert.Equal(t, "duffel-off_0000A3tQcCRZ9e1hzkH4Ay", o.ID)
	assert.Equal(t, "NH23", o.FlightNumber)
	assert.Equal(t, models.CabinPremium, o.CabinClass)
	assert.Equal(t, "W03", o.Availability.BookingClass)
	assert.Equal(t, 41000.0, o.Pricing.Total)
	assert.Equal(t, 4000.0, o.Pricing.Taxes)
	assert.Equal(t, 12, o.Schedule.Departure.Hour())
	require.NotNil(t, o.Mileage)
	assert.Equal(t, 12500, o.Mileage.RequiredMiles)
}

func TestDuffel_MalformedBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": `))
	}))
	defer srv.Close()

	p := NewDuffelProvider(DuffelConfig{AccessToken: "tok"}, testOptions(t, srv.URL, true))
	env := p.Search(context.Background(), testCriteria())

	require.True(t, env.Success)
	assert.Equal(t, models.MetaSourceFallback, env.Metadata.Source)
}

func TestDuffelPassengers(t *testing.T) {
	got := duffelPassengers(models.Passengers{Adults: 1, Children: 1, Infants: 1})
	assert.Equal(t, []duffelPassenger{{Type: "adult"}, {Type: "child"}, {Type: "infant_without_seat"}}, got)
}
