package models

import (
	"strings"
	"time"
)

// MileRequirement is either a fixed award price (Miles) or a dynamic range.
type MileRequirement struct {
	Miles    int `json:"miles,omitempty" yaml:"miles,omitempty"`
	MinMiles int `json:"min_miles,omitempty" yaml:"min_miles,omitempty"`
	MaxMiles int `json:"max_miles,omitempty" yaml:"max_miles,omitempty"`
}

// Required is the miles used for valuation; ranges are valued at their minimum.
func (r MileRequirement) Required() int {
	if r.Miles > 0 {
		return r.Miles
	}
	return r.MinMiles
}

func (r MileRequirement) IsRange() bool {
	return r.Miles <= 0 && r.MaxMiles > r.MinMiles
}

type ProgramFeatures struct {
	Stopover  string  `json:"stopover,omitempty" yaml:"stopover,omitempty"`
	OpenJaw   bool    `json:"open_jaw" yaml:"open_jaw"`
	ChangeFee float64 `json:"change_fee" yaml:"change_fee"`
}

type BookingRules struct {
	AdvanceDays     int     `json:"advance_days,omitempty" yaml:"advance_days,omitempty"`
	CancellationFee float64 `json:"cancellation_fee" yaml:"cancellation_fee"`
}

// MileageProgram is one loyalty program resolved for a single route. It is
// static reference data and is never mutated by the valuation engine.
type MileageProgram struct {
	ID             string                         `json:"id"`
	Name           string                         `json:"name"`
	Airline        string                         `json:"airline,omitempty"`
	Alliance       string                         `json:"alliance,omitempty"`
	Cabins         map[CabinClass]MileRequirement `json:"cabins"`
	FuelSurcharge  float64                        `json:"fuel_surcharge"`
	Taxes          float64                        `json:"taxes"`
	Currency       string                         `json:"currency,omitempty"`
	Features       ProgramFeatures                `json:"features"`
	Booking        BookingRules                   `json:"booking"`
	PartnerBooking bool                           `json:"partner_booking"`
	Note           string                         `json:"note,omitempty"`
}

// Identity is the dedup key: the ID when present, otherwise the folded name.
func (p MileageProgram) Identity() string {
	if id := strings.TrimSpace(p.ID); id != "" {
		return strings.ToLower(id)
	}
	return strings.ToLower(strings.TrimSpace(p.Name))
}

type Rating string

const (
	RatingBad       Rating = "bad"
	RatingPoor      Rating = "poor"
	RatingFair      Rating = "fair"
	RatingGood      Rating = "good"
	RatingExcellent Rating = "excellent"
)

type ValuationResult struct {
	ProgramID        string   `json:"program_id"`
	ProgramName      string   `json:"program_name"`
	Alliance         string   `json:"alliance,omitempty"`
	RequiredMiles    int      `json:"required_miles"`
	MaxMiles         int      `json:"max_miles,omitempty"`
	CashPrice        float64  `json:"cash_price"`
	FuelSurcharge    float64  `json:"fuel_surcharge"`
	Taxes            float64  `json:"taxes"`
	TotalSelfPayCost float64  `json:"total_self_pay_cost"`
	ValuePerMile     float64  `json:"value_per_mile"`
	Rating           Rating   `json:"rating"`
	Recommendation   string   `json:"recommendation"`
	Features         []string `json:"features,omitempty"`
	PartnerBooking   bool     `json:"partner_booking"`
	SpecialNote      string   `json:"special_note,omitempty"`
}

// SeasonOf tags a departure date with the award season used by the
// Japanese carriers' charts.
func SeasonOf(date time.Time) Season {
	m, d := date.Month(), date.Day()
	switch {
	case m == time.March && d >= 20, m == time.April && d >= 27, m == time.May && d <= 6,
		m == time.July && d >= 18, m == time.August,
		m == time.December && d >= 25, m == time.January && d <= 4:
		return SeasonPeak
	case m == time.January, m == time.February, m == time.April && d <= 26,
		m == time.December && d <= 24:
		return SeasonOff
	}
	return SeasonRegular
}
