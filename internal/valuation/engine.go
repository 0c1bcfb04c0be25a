// Package valuation prices mileage redemptions against a cash fare.
package valuation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/metrics"
	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/pkg/currency"
)

const defaultCurrency = "JPY"

type Engine struct {
	logger *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	return &Engine{logger: logger.OrNop(log)}
}

// Evaluate wraps Compute in an envelope. An empty result is a success:
// no program prices the cabin.
func (e *Engine) Evaluate(cashPrice float64, programs []models.MileageProgram, cabin models.CabinClass) models.Envelope[[]models.ValuationResult] {
	start := time.Now()
	results, err := e.Compute(cashPrice, programs, cabin)

	meta := models.Metadata{
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    models.MetaSourceAPI,
	}
	if err != nil {
		meta.ExecutionTimeMs = time.Since(start).Milliseconds()
		return models.Fail[[]models.ValuationResult](
			models.NewAPIError(models.ErrCodeInvalidRequest, err.Error()).WithDetail("cash_price", cashPrice),
			meta,
		)
	}
	meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	return models.Ok(results, meta)
}

// Compute values each program's award for cabin, keeps the first entry per
// program identity and ranks by value per mile, highest first. Programs
// without the cabin or with a non-positive mile requirement are skipped.
func (e *Engine) Compute(cashPrice float64, programs []models.MileageProgram, cabin models.CabinClass) ([]models.ValuationResult, error) {
	if math.IsNaN(cashPrice) || math.IsInf(cashPrice, 0) || cashPrice < 0 {
		return nil, models.ErrNegativeCashPrice
	}
	if cabin == "" {
		cabin = models.CabinEconomy
	}
	if !cabin.Valid() {
		return nil, models.ErrInvalidCabinClass
	}

	scored := make([]scoredResult, 0, len(programs))
	seen := make(map[string]string, len(programs))

	for _, p := range programs {
		req, ok := p.Cabins[cabin]
		if !ok {
			continue
		}
		miles := req.Required()
		if miles <= 0 {
			continue
		}

		id := p.Identity()
		if first, dup := seen[id]; dup {
			e.logger.Warn("duplicate mileage program dropped",
				zap.String("identity", id),
				zap.String("kept", first),
				zap.String("dropped", p.Name),
			)
			metrics.ValuationDuplicates.Inc()
			continue
		}
		seen[id] = p.Name

		scored = append(scored, value(cashPrice, p, req, miles))
	}

	// Ranking uses the unrounded value; ties keep declared order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].raw > scored[j].raw
	})

	results := make([]models.ValuationResult, len(scored))
	for i, s := range scored {
		results[i] = s.result
	}
	return results, nil
}

type scoredResult struct {
	result models.ValuationResult
	raw    float64
}

// value tiers the exact value per mile and only rounds the reported figure.
func value(cashPrice float64, p models.MileageProgram, req models.MileRequirement, miles int) scoredResult {
	selfPay := p.FuelSurcharge + p.Taxes
	raw := math.Max(0, (cashPrice-selfPay)/float64(miles))
	t := tierFor(raw)

	r := models.ValuationResult{
		ProgramID:        p.ID,
		ProgramName:      p.Name,
		Alliance:         p.Alliance,
		RequiredMiles:    miles,
		CashPrice:        cashPrice,
		FuelSurcharge:    p.FuelSurcharge,
		Taxes:            p.Taxes,
		TotalSelfPayCost: selfPay,
		ValuePerMile:     round2(raw),
		Rating:           t.rating,
		Recommendation:   t.recommendation,
		Features:         featureSummary(p, req),
		PartnerBooking:   p.PartnerBooking,
		SpecialNote:      p.Note,
	}
	if req.IsRange() {
		r.MaxMiles = req.MaxMiles
	}
	return scoredResult{result: r, raw: raw}
}

func featureSummary(p models.MileageProgram, req models.MileRequirement) []string {
	code := p.Currency
	if code == "" {
		code = defaultCurrency
	}

	var out []string
	if req.IsRange() {
		out = append(out, fmt.Sprintf("Dynamic pricing: %d to %d miles", req.MinMiles, req.MaxMiles))
	}
	if p.Features.Stopover != "" {
		out = append(out, "Stopover: "+p.Features.Stopover)
	}
	if p.Features.OpenJaw {
		out = append(out, "Open-jaw allowed")
	}
	if p.Features.ChangeFee > 0 {
		out = append(out, "Change fee "+currency.Format(p.Features.ChangeFee, code))
	} else {
		out = append(out, "No change fee")
	}
	if p.Booking.AdvanceDays > 0 {
		out = append(out, fmt.Sprintf("Bookable %d days ahead", p.Booking.AdvanceDays))
	}
	if p.Booking.CancellationFee > 0 {
		out = append(out, "Cancellation fee "+currency.Format(p.Booking.CancellationFee, code))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
