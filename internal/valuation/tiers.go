package valuation

import "github.com/dharmasatrya/milesvalue/internal/models"

type tier struct {
	min            float64
	rating         models.Rating
	recommendation string
}

// Ordered by descending lower bound; a value belongs to the first tier
// whose min it reaches.
var tiers = []tier{
	{min: 3.0, rating: models.RatingExcellent, recommendation: "Excellent redemption. Use miles for this flight."},
	{min: 2.0, rating: models.RatingGood, recommendation: "Good value. Redeeming miles is recommended."},
	{min: 1.5, rating: models.RatingFair, recommendation: "Fair value. Redeem if you have miles to spare."},
	{min: 1.0, rating: models.RatingPoor, recommendation: "Poor value. Paying cash is usually better."},
	{min: 0, rating: models.RatingBad, recommendation: "Bad value. Pay cash and keep your miles."},
}

func tierFor(valuePerMile float64) tier {
	for _, t := range tiers {
		if valuePerMile >= t.min {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

func recommendationFor(r models.Rating) string {
	for _, t := range tiers {
		if t.rating == r {
			return t.recommendation
		}
	}
	return ""
}
