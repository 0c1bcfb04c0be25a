package models

import (
	"math"
	"time"
)

// Offer source tags.
const (
	SourceFallback = "fallback"
	SourceMock     = "mock"
)

type Airline struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Alliance string `json:"alliance,omitempty"`
}

type Schedule struct {
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`
}

func (s Schedule) DurationMinutes() int {
	return int(s.Arrival.Sub(s.Departure).Minutes())
}

type Pricing struct {
	Currency  string  `json:"currency"`
	Base      float64 `json:"base"`
	Taxes     float64 `json:"taxes"`
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted,omitempty"`
}

// Consistent reports whether Total equals Base+Taxes within one minor unit.
func (p Pricing) Consistent() bool {
	return math.Abs(p.Base+p.Taxes-p.Total) <= 0.01
}

type Availability struct {
	Seats        int    `json:"seats"`
	BookingClass string `json:"booking_class,omitempty"`
	Available    bool   `json:"available"`
}

type Season string

const (
	SeasonOff     Season = "off"
	SeasonRegular Season = "regular"
	SeasonPeak    Season = "peak"
)

type MileageInfo struct {
	RequiredMiles  int    `json:"required_miles"`
	Season         Season `json:"season"`
	AwardAvailable bool   `json:"award_available"`
}

// UnifiedOffer is one priced itinerary normalized across providers.
type UnifiedOffer struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	Route        Route        `json:"route"`
	Schedule     Schedule     `json:"schedule"`
	FlightNumber string       `json:"flight_number,omitempty"`
	Stops        int          `json:"stops"`
	CabinClass   CabinClass   `json:"cabin_class"`
	Pricing      Pricing      `json:"pricing"`
	Airline      Airline      `json:"airline"`
	Availability Availability `json:"availability"`
	Mileage      *MileageInfo `json:"mileage,omitempty"`
}

type RoundTrip struct {
	Outbound []UnifiedOffer `json:"outbound"`
	Return   []UnifiedOffer `json:"return"`
}
