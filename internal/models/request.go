package models

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MaxPassengers is the per-booking traveler limit the providers accept.
const MaxPassengers = 9

type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinPremium  CabinClass = "premium"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremium, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// ParseCabinClass accepts the canonical names plus the common provider spellings.
func ParseCabinClass(s string) (CabinClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "economy", "eco", "y":
		return CabinEconomy, true
	case "premium", "premium_economy", "premium-economy", "w":
		return CabinPremium, true
	case "business", "j", "c":
		return CabinBusiness, true
	case "first", "f":
		return CabinFirst, true
	}
	return "", false
}

type Route struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
}

// Key is the "{departure}-{arrival}" form used by every static lookup table.
func (r Route) Key() string {
	return r.Departure + "-" + r.Arrival
}

func (r Route) Reverse() Route {
	return Route{Departure: r.Arrival, Arrival: r.Departure}
}

type Passengers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

func (p Passengers) Total() int {
	return p.Adults + p.Children + p.Infants
}

// SearchCriteria is passed by value and never mutated after Normalize.
type SearchCriteria struct {
	Route         Route      `json:"route"`
	DepartureDate string     `json:"departure_date"`
	ReturnDate    *string    `json:"return_date,omitempty"`
	Passengers    Passengers `json:"passengers"`
	CabinClass    CabinClass `json:"cabin_class"`
	Currency      string     `json:"currency"`
}

// Normalize returns a copy with upper-cased codes and defaults applied.
func (c SearchCriteria) Normalize() SearchCriteria {
	c.Route.Departure = strings.ToUpper(strings.TrimSpace(c.Route.Departure))
	c.Route.Arrival = strings.ToUpper(strings.TrimSpace(c.Route.Arrival))
	if c.Passengers.Adults == 0 && c.Passengers.Children == 0 && c.Passengers.Infants == 0 {
		c.Passengers.Adults = 1
	}
	if c.CabinClass == "" {
		c.CabinClass = CabinEconomy
	}
	if c.Currency == "" {
		c.Currency = "JPY"
	}
	c.Currency = strings.ToUpper(c.Currency)
	if c.ReturnDate != nil && *c.ReturnDate == "" {
		c.ReturnDate = nil
	}
	return c
}

func (c SearchCriteria) Validate() error {
	if c.Route.Departure == "" {
		return ErrMissingDeparture
	}
	if c.Route.Arrival == "" {
		return ErrMissingArrival
	}
	if !isAirportCode(c.Route.Departure) || !isAirportCode(c.Route.Arrival) {
		return ErrInvalidAirportCode
	}
	if strings.EqualFold(c.Route.Departure, c.Route.Arrival) {
		return ErrSameAirport
	}
	if c.DepartureDate == "" {
		return ErrMissingDepartureDate
	}
	dep, err := time.Parse(DateLayout, c.DepartureDate)
	if err != nil {
		return ErrInvalidDate
	}
	if c.ReturnDate != nil {
		ret, err := time.Parse(DateLayout, *c.ReturnDate)
		if err != nil {
			return ErrInvalidDate
		}
		if ret.Before(dep) {
			return ErrReturnBeforeDeparture
		}
	}
	if c.Passengers.Adults < 1 {
		return ErrNoAdults
	}
	if c.Passengers.Children < 0 || c.Passengers.Infants < 0 {
		return ErrNegativePassengers
	}
	// Each count is bounded before summing so Total cannot overflow.
	p := c.Passengers
	if p.Adults > MaxPassengers || p.Children > MaxPassengers || p.Infants > MaxPassengers || p.Total() > MaxPassengers {
		return ErrTooManyPassengers
	}
	if !c.CabinClass.Valid() {
		return ErrInvalidCabinClass
	}
	return nil
}

// ReturnLeg builds the criteria for the inbound leg of a round trip.
func (c SearchCriteria) ReturnLeg() (SearchCriteria, bool) {
	if c.ReturnDate == nil {
		return SearchCriteria{}, false
	}
	ret := c
	ret.Route = c.Route.Reverse()
	ret.DepartureDate = *c.ReturnDate
	ret.ReturnDate = nil
	return ret, true
}

func isAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingDeparture      ValidationError = "departure airport is required"
	ErrMissingArrival        ValidationError = "arrival airport is required"
	ErrInvalidAirportCode    ValidationError = "airport codes must be three letters"
	ErrSameAirport           ValidationError = "departure and arrival must differ"
	ErrMissingDepartureDate  ValidationError = "departure_date is required"
	ErrInvalidDate           ValidationError = "dates must use YYYY-MM-DD"
	ErrReturnBeforeDeparture ValidationError = "return_date must not precede departure_date"
	ErrNoAdults              ValidationError = "at least one adult is required"
	ErrNegativePassengers    ValidationError = "passenger counts must not be negative"
	ErrTooManyPassengers     ValidationError = "at most 9 passengers per search"
	ErrInvalidCabinClass     ValidationError = "cabin_class must be economy, premium, business or first"
	ErrNegativeCashPrice     ValidationError = "cash price must be a non-negative number"
)
