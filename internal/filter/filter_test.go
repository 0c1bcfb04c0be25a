package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

var jst = time.FixedZone("JST", 9*3600)

func offer(id, airline, alliance string, total float64, depHour, minutes, stops int) models.UnifiedOffer {
	dep := time.Date(2025, 3, 1, depHour, 0, 0, 0, jst)
	return models.UnifiedOffer{
		ID:       id,
		Schedule: models.Schedule{Departure: dep, Arrival: dep.Add(time.Duration(minutes) * time.Minute)},
		Stops:    stops,
		Pricing:  models.Pricing{Total: total},
		Airline:  models.Airline{Code: airline, Alliance: alliance},
	}
}

func sample() []models.UnifiedOffer {
	award := offer("nh-morning", "NH", "Star Alliance", 20690, 7, 65, 0)
	award.Mileage = &models.MileageInfo{RequiredMiles: 9500, AwardAvailable: true}
	return []models.UnifiedOffer{
		award,
		offer("jl-noon", "JL", "oneworld", 19800, 12, 70, 0),
		offer("bc-evening", "BC", "", 12900, 18, 75, 0),
		offer("ua-connect", "UA", "Star Alliance", 15000, 9, 240, 1),
	}
}

func ids(offers []models.UnifiedOffer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestApply_Filters(t *testing.T) {
	tests := []struct {
		name     string
		filters  *models.SearchFilters
		expected []string
	}{
		{"nil filters", nil, []string{"nh-morning", "jl-noon", "bc-evening", "ua-connect"}},
		{"price range", &models.SearchFilters{PriceMin: ptr(13000.0), PriceMax: ptr(20000.0)}, []string{"jl-noon", "ua-connect"}},
		{"airlines case-insensitive", &models.SearchFilters{Airlines: []string{"nh", "BC"}}, []string{"nh-morning", "bc-evening"}},
		{"alliance", &models.SearchFilters{Alliances: []string{"star alliance"}}, []string{"nh-morning", "ua-connect"}},
		{"nonstop", &models.SearchFilters{MaxStops: ptr(0)}, []string{"nh-morning", "jl-noon", "bc-evening"}},
		{"award only", &models.SearchFilters{AwardOnly: true}, []string{"nh-morning"}},
		{"departure window", &models.SearchFilters{DepartureTimeMin: ptr("08:00"), DepartureTimeMax: ptr("13:00")}, []string{"jl-noon", "ua-connect"}},
		{"arrival before", &models.SearchFilters{ArrivalTimeMax: ptr("12:00")}, []string{"nh-morning"}},
		{"max duration", &models.SearchFilters{MaxDuration: ptr(70)}, []string{"nh-morning", "jl-noon"}},
		{"unparseable bound ignored", &models.SearchFilters{DepartureTimeMin: ptr("noon")}, []string{"nh-morning", "jl-noon", "bc-evening", "ua-connect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), tt.filters, "", "")
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sortBy, order string
		expected      []string
	}{
		{SortPrice, "", []string{"bc-evening", "ua-connect", "jl-noon", "nh-morning"}},
		{SortPrice, "desc", []string{"nh-morning", "jl-noon", "ua-connect", "bc-evening"}},
		{SortDeparture, "", []string{"nh-morning", "ua-connect", "jl-noon", "bc-evening"}},
		{SortArrival, "desc", []string{"bc-evening", "jl-noon", "ua-connect", "nh-morning"}},
		{SortDuration, "", []string{"nh-morning", "jl-noon", "bc-evening", "ua-connect"}},
		{SortStops, "desc", []string{"ua-connect", "nh-morning", "jl-noon", "bc-evening"}},
		{"", "", []string{"nh-morning", "jl-noon", "bc-evening", "ua-connect"}},
		{"unknown", "desc", []string{"nh-morning", "jl-noon", "bc-evening", "ua-connect"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.order, func(t *testing.T) {
			got := Apply(sample(), nil, tt.sortBy, tt.order)
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestApply_BestValue(t *testing.T) {
	got := Apply(sample(), nil, SortBestValue, "")

	require.Len(t, got, 4)
	assert.Equal(t, "bc-evening", got[0].ID)
	assert.Equal(t, "ua-connect", got[len(got)-1].ID)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)

	_ = Apply(in, &models.SearchFilters{MaxStops: ptr(0)}, SortPrice, "")

	assert.Equal(t, before, ids(in))
}
