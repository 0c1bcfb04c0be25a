package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/ranking"
)

// Sort keys accepted by Apply.
const (
	SortPrice     = "price"
	SortDuration  = "duration"
	SortDeparture = "departure"
	SortArrival   = "arrival"
	SortStops     = "stops"
	SortBestValue = "best_value"
)

// Apply filters offers and orders them by sortBy. The input slice is left
// untouched. An empty sortBy keeps the incoming order; all sorts are stable.
func Apply(offers []models.UnifiedOffer, filters *models.SearchFilters, sortBy, sortOrder string) []models.UnifiedOffer {
	filtered := applyFilters(offers, filters)
	applySort(filtered, sortBy, sortOrder)
	return filtered
}

func applyFilters(offers []models.UnifiedOffer, filters *models.SearchFilters) []models.UnifiedOffer {
	result := make([]models.UnifiedOffer, 0, len(offers))
	for _, o := range offers {
		if filters == nil || matchesFilters(o, filters) {
			result = append(result, o)
		}
	}
	return result
}

func matchesFilters(o models.UnifiedOffer, filters *models.SearchFilters) bool {
	if filters.PriceMin != nil && o.Pricing.Total < *filters.PriceMin {
		return false
	}
	if filters.PriceMax != nil && o.Pricing.Total > *filters.PriceMax {
		return false
	}

	if filters.MaxStops != nil && o.Stops > *filters.MaxStops {
		return false
	}

	if len(filters.Airlines) > 0 && !containsFold(filters.Airlines, o.Airline.Code) {
		return false
	}
	if len(filters.Alliances) > 0 && !containsFold(filters.Alliances, o.Airline.Alliance) {
		return false
	}

	if filters.AwardOnly && (o.Mileage == nil || !o.Mileage.AwardAvailable) {
		return false
	}

	// Schedule times carry the airport's zone, so clock fields are local.
	if !withinTimeOfDay(o.Schedule.Departure, filters.DepartureTimeMin, filters.DepartureTimeMax) {
		return false
	}
	if !withinTimeOfDay(o.Schedule.Arrival, filters.ArrivalTimeMin, filters.ArrivalTimeMax) {
		return false
	}

	if filters.MaxDuration != nil && o.Schedule.DurationMinutes() > *filters.MaxDuration {
		return false
	}

	return true
}

func containsFold(values []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// withinTimeOfDay ignores bounds that do not parse as HH:MM.
func withinTimeOfDay(t time.Time, from, to *string) bool {
	minutes := t.Hour()*60 + t.Minute()
	if from != nil {
		if bound, err := parseTimeOfDay(*from); err == nil && minutes < bound {
			return false
		}
	}
	if to != nil {
		if bound, err := parseTimeOfDay(*to); err == nil && minutes > bound {
			return false
		}
	}
	return true
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func applySort(offers []models.UnifiedOffer, sortBy, sortOrder string) {
	if len(offers) < 2 {
		return
	}

	descending := strings.EqualFold(sortOrder, "desc")

	var less func(i, j int) bool
	switch strings.ToLower(sortBy) {
	case SortPrice:
		less = func(i, j int) bool { return offers[i].Pricing.Total < offers[j].Pricing.Total }
	case SortDuration:
		less = func(i, j int) bool {
			return offers[i].Schedule.DurationMinutes() < offers[j].Schedule.DurationMinutes()
		}
	case SortDeparture:
		less = func(i, j int) bool { return offers[i].Schedule.Departure.Before(offers[j].Schedule.Departure) }
	case SortArrival:
		less = func(i, j int) bool { return offers[i].Schedule.Arrival.Before(offers[j].Schedule.Arrival) }
	case SortStops:
		less = func(i, j int) bool { return offers[i].Stops < offers[j].Stops }
	case SortBestValue:
		sortByScore(offers, descending)
		return
	default:
		return
	}

	sort.SliceStable(offers, func(i, j int) bool {
		if descending {
			return less(j, i)
		}
		return less(i, j)
	})
}

// sortByScore keeps each score attached to its offer while sorting.
func sortByScore(offers []models.UnifiedOffer, descending bool) {
	scores := ranking.Scores(offers)
	idx := make([]int, len(offers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return scores[idx[a]] > scores[idx[b]]
		}
		return scores[idx[a]] < scores[idx[b]]
	})

	sorted := make([]models.UnifiedOffer, len(offers))
	for i, k := range idx {
		sorted[i] = offers[k]
	}
	copy(offers, sorted)
}
