package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

func offer(total float64, minutes, stops int) models.UnifiedOffer {
	dep := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return models.UnifiedOffer{
		Schedule: models.Schedule{Departure: dep, Arrival: dep.Add(time.Duration(minutes) * time.Minute)},
		Stops:    stops,
		Pricing:  models.Pricing{Total: total},
	}
}

func TestScores(t *testing.T) {
	offers := []models.UnifiedOffer{
		offer(20000, 60, 0),
		offer(10000, 120, 1),
	}

	scores := Scores(offers)

	require.Len(t, scores, 2)
	// 100*0.5 + 50*0.3 + 0
	assert.Equal(t, 65.0, scores[0])
	// 50*0.5 + 100*0.3 + 15*0.2
	assert.Equal(t, 58.0, scores[1])
}

func TestScores_Empty(t *testing.T) {
	assert.Nil(t, Scores(nil))
}

func TestCalculateBestValue_AwardBonus(t *testing.T) {
	o := offer(20000, 60, 0)
	plain := CalculateBestValue(o, 20000, 60)

	o.Mileage = &models.MileageInfo{RequiredMiles: 9500, AwardAvailable: true}
	award := CalculateBestValue(o, 20000, 60)

	assert.Equal(t, 80.0, plain)
	assert.Equal(t, plain-AwardBonus, award)
}

func TestCalculateBestValue_ZeroMaxima(t *testing.T) {
	assert.Equal(t, 3.0, CalculateBestValue(offer(0, 0, 1), 0, 0))
}
