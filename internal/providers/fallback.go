package providers

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/reference"
	"github.com/dharmasatrya/milesvalue/internal/timezone"
	"github.com/dharmasatrya/milesvalue/pkg/currency"
)

const (
	fallbackOffers = 3
	fallbackJitter = 0.08
	fallbackTaxPct = 0.10
)

type fareEstimate struct {
	fare    float64 // JPY, one adult, economy, taxes included
	minutes int
}

// Estimated one-way fares. Keys are looked up in both directions.
var estimatedFares = map[string]fareEstimate{
	"HND-ITM": {fare: 20690, minutes: 65},
	"HND-KIX": {fare: 21500, minutes: 75},
	"HND-CTS": {fare: 29800, minutes: 95},
	"HND-FUK": {fare: 31200, minutes: 110},
	"HND-OKA": {fare: 38400, minutes: 150},
	"HND-KOJ": {fare: 33000, minutes: 105},
	"HND-HIJ": {fare: 27500, minutes: 85},
	"ITM-CTS": {fare: 32000, minutes: 110},
	"ITM-OKA": {fare: 30500, minutes: 130},
	"FUK-OKA": {fare: 18900, minutes: 95},
	"HND-ICN": {fare: 42000, minutes: 150},
	"HND-TPE": {fare: 48000, minutes: 240},
	"HND-HKG": {fare: 61000, minutes: 300},
	"HND-SIN": {fare: 86000, minutes: 435},
	"HND-BKK": {fare: 74000, minutes: 390},
	"HND-HNL": {fare: 92000, minutes: 450},
	"NRT-LAX": {fare: 124000, minutes: 605},
	"NRT-SFO": {fare: 118000, minutes: 580},
	"NRT-JFK": {fare: 158000, minutes: 760},
	"HND-LHR": {fare: 182000, minutes: 870},
}

var defaultFare = fareEstimate{fare: 25000, minutes: 120}

var cabinMultipliers = map[models.CabinClass]float64{
	models.CabinEconomy:  1.0,
	models.CabinPremium:  1.6,
	models.CabinBusiness: 3.2,
	models.CabinFirst:    5.0,
}

// Share of the adult fare charged per passenger type.
const (
	childFareShare  = 0.75
	infantFareShare = 0.10
)

var departureSlots = [fallbackOffers][2]int{{7, 0}, {12, 30}, {18, 15}}

func lookupFare(route models.Route) fareEstimate {
	if f, ok := estimatedFares[route.Key()]; ok {
		return f
	}
	if f, ok := estimatedFares[route.Reverse().Key()]; ok {
		return f
	}
	return defaultFare
}

func fallbackCarriers(route models.Route) []string {
	if timezone.GetTimezoneByAirport(route.Departure) == "Asia/Tokyo" &&
		timezone.GetTimezoneByAirport(route.Arrival) == "Asia/Tokyo" {
		return []string{"NH", "JL", "BC"}
	}
	return []string{"NH", "JL", "UA"}
}

func fallbackSeed(provider string, c models.SearchCriteria) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%d|%d",
		provider, c.Route.Key(), c.DepartureDate, c.CabinClass,
		c.Passengers.Adults, c.Passengers.Children, c.Passengers.Infants)
	return int64(h.Sum64())
}

// synthesizeOffers produces estimate offers for a normalized, valid
// criteria. Output is reproducible for the same provider and criteria.
func synthesizeOffers(provider string, c models.SearchCriteria, ref *reference.Data) []models.UnifiedOffer {
	est := lookupFare(c.Route)
	rng := rand.New(rand.NewSource(fallbackSeed(provider, c)))

	date, err := time.Parse(models.DateLayout, c.DepartureDate)
	if err != nil {
		date = time.Now().UTC()
	}

	priceCurrency := c.Currency
	if _, ok := currency.ConvertEstimate(1, "JPY", priceCurrency); !ok {
		priceCurrency = "JPY"
	}

	passengerShare := float64(c.Passengers.Adults) +
		float64(c.Passengers.Children)*childFareShare +
		float64(c.Passengers.Infants)*infantFareShare

	programs := ref.Programs(c.Route.Departure, c.Route.Arrival)
	distance, hasDistance := ref.Distance(c.Route.Departure, c.Route.Arrival)
	season := models.SeasonOf(date)

	carriers := fallbackCarriers(c.Route)
	offers := make([]models.UnifiedOffer, 0, fallbackOffers)
	for i := 0; i < fallbackOffers; i++ {
		carrier := carriers[i%len(carriers)]
		jitter := 1 + (rng.Float64()*2-1)*fallbackJitter

		jpy := est.fare * cabinMultipliers[c.CabinClass] * passengerShare * jitter
		total, _ := currency.ConvertEstimate(jpy, "JPY", priceCurrency)
		total = currency.Round(total, priceCurrency)
		baseAmount := currency.Round(total/(1+fallbackTaxPct), priceCurrency)

		slot := departureSlots[i]
		dep := timezone.LocalTime(date, slot[0], slot[1], c.Route.Departure)
		arr := timezone.ConvertToTimezone(dep.Add(time.Duration(est.minutes)*time.Minute), c.Route.Arrival)

		seats := 2 + rng.Intn(8)
		offer := models.UnifiedOffer{
			ID:           fmt.Sprintf("%s-%s-%s-%d", provider, models.SourceFallback, c.Route.Key(), i),
			Source:       models.SourceFallback,
			Route:        c.Route,
			Schedule:     models.Schedule{Departure: dep, Arrival: arr},
			FlightNumber: fmt.Sprintf("%s%d", carrier, 100+rng.Intn(900)),
			CabinClass:   c.CabinClass,
			Pricing: models.Pricing{
				Currency:  priceCurrency,
				Base:      baseAmount,
				Taxes:     currency.Round(total-baseAmount, priceCurrency),
				Total:     total,
				Formatted: currency.Format(total, priceCurrency),
			},
			Airline: models.Airline{
				Code:     carrier,
				Name:     airlineName(ref, carrier),
				Alliance: ref.Alliance(carrier),
			},
			Availability: models.Availability{
				Seats:        seats,
				BookingClass: bookingClass(c.CabinClass),
				Available:    true,
			},
		}

		if m := chartMileage(programs, carrier, c.CabinClass, dep, true); m != nil {
			offer.Mileage = m
		} else if hasDistance {
			offer.Mileage = &models.MileageInfo{
				RequiredMiles:  estimateMiles(distance, c.CabinClass, season),
				Season:         season,
				AwardAvailable: true,
			}
		}

		offers = append(offers, offer)
	}
	return offers
}

func airlineName(ref *reference.Data, code string) string {
	if name, ok := ref.AirlineName(code); ok {
		return name
	}
	return code
}

func bookingClass(c models.CabinClass) string {
	switch c {
	case models.CabinPremium:
		return "W"
	case models.CabinBusiness:
		return "J"
	case models.CabinFirst:
		return "F"
	}
	return "Y"
}

type mileZone struct {
	maxDistance int
	miles       int
}

// Distance-zoned economy award estimate, used when no chart prices the
// carrier on the route.
var mileZones = []mileZone{
	{650, 7500},
	{1150, 9000},
	{2000, 13000},
	{3000, 20000},
	{4000, 25000},
	{5500, 32500},
	{6500, 37500},
}

var mileCabinFactors = map[models.CabinClass]float64{
	models.CabinEconomy:  1.0,
	models.CabinPremium:  1.5,
	models.CabinBusiness: 2.5,
	models.CabinFirst:    4.0,
}

var mileSeasonFactors = map[models.Season]float64{
	models.SeasonOff:     0.9,
	models.SeasonRegular: 1.0,
	models.SeasonPeak:    1.2,
}

func estimateMiles(distance int, cabin models.CabinClass, season models.Season) int {
	miles := 50000
	for _, z := range mileZones {
		if distance <= z.maxDistance {
			miles = z.miles
			break
		}
	}
	v := float64(miles) * mileCabinFactors[cabin] * mileSeasonFactors[season]
	return int(math.Round(v/500) * 500)
}
