package ranking

import (
	"math"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

const (
	PriceWeight    = 0.5
	DurationWeight = 0.3
	StopsWeight    = 0.2

	// Subtracted from the score of an offer with award seats on sale.
	AwardBonus = 5.0
)

// Scores returns one best-value score per offer, index aligned with offers.
// Lower score = better value.
func Scores(offers []models.UnifiedOffer) []float64 {
	if len(offers) == 0 {
		return nil
	}

	maxPrice := findMaxPrice(offers)
	maxDuration := findMaxDuration(offers)

	scores := make([]float64, len(offers))
	for i, o := range offers {
		scores[i] = CalculateBestValue(o, maxPrice, maxDuration)
	}
	return scores
}

func CalculateBestValue(offer models.UnifiedOffer, maxPrice, maxDuration float64) float64 {
	priceScore := 0.0
	if maxPrice > 0 {
		priceScore = (offer.Pricing.Total / maxPrice) * 100
	}

	durationScore := 0.0
	if maxDuration > 0 {
		durationScore = (float64(offer.Schedule.DurationMinutes()) / maxDuration) * 100
	}

	stopsScore := float64(offer.Stops) * 15
	score := (priceScore * PriceWeight) + (durationScore * DurationWeight) + (stopsScore * StopsWeight)

	if offer.Mileage != nil && offer.Mileage.AwardAvailable {
		score = math.Max(0, score-AwardBonus)
	}

	return math.Round(score*100) / 100
}

func findMaxPrice(offers []models.UnifiedOffer) float64 {
	maxPrice := 0.0
	for _, o := range offers {
		if o.Pricing.Total > maxPrice {
			maxPrice = o.Pricing.Total
		}
	}
	return maxPrice
}

func findMaxDuration(offers []models.UnifiedOffer) float64 {
	maxDuration := 0.0
	for _, o := range offers {
		dur := float64(o.Schedule.DurationMinutes())
		if dur > maxDuration {
			maxDuration = dur
		}
	}
	return maxDuration
}
