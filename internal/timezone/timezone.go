package timezone

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

var airportZones = map[string]string{
	// Japan
	"HND": "Asia/Tokyo", // Tokyo - Haneda
	"NRT": "Asia/Tokyo", // Tokyo - Narita
	"ITM": "Asia/Tokyo", // Osaka - Itami
	"KIX": "Asia/Tokyo", // Osaka - Kansai
	"NGO": "Asia/Tokyo", // Nagoya - Chubu Centrair
	"CTS": "Asia/Tokyo", // Sapporo - New Chitose
	"FUK": "Asia/Tokyo", // Fukuoka
	"OKA": "Asia/Tokyo", // Okinawa - Naha
	"KOJ": "Asia/Tokyo", // Kagoshima
	"HIJ": "Asia/Tokyo", // Hiroshima
	"SDJ": "Asia/Tokyo", // Sendai

	// Asia
	"ICN": "Asia/Seoul",
	"GMP": "Asia/Seoul",
	"TPE": "Asia/Taipei",
	"HKG": "Asia/Hong_Kong",
	"SIN": "Asia/Singapore",
	"BKK": "Asia/Bangkok",
	"CGK": "Asia/Jakarta",
	"DPS": "Asia/Makassar",
	"PVG": "Asia/Shanghai",

	// Americas / Europe / Oceania
	"HNL": "Pacific/Honolulu",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"SEA": "America/Los_Angeles",
	"JFK": "America/New_York",
	"ORD": "America/Chicago",
	"LHR": "Europe/London",
	"CDG": "Europe/Paris",
	"FRA": "Europe/Berlin",
	"SYD": "Australia/Sydney",
}

var (
	mu    sync.RWMutex
	cache = make(map[string]*time.Location)
)

// GetTimezoneByAirport returns the IANA zone name, or "UTC" when unknown.
func GetTimezoneByAirport(code string) string {
	code = strings.ToUpper(code)
	if tz, ok := airportZones[code]; ok {
		return tz
	}
	return "UTC"
}

func GetLocationByAirport(code string) *time.Location {
	return GetLocationByName(GetTimezoneByAirport(code))
}

func GetLocationByName(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}

	mu.RLock()
	loc, ok := cache[name]
	mu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}

	mu.Lock()
	cache[name] = loc
	mu.Unlock()
	return loc
}

// ParseTimeWithOffset parses provider timestamps. Strings without an
// offset are interpreted in the zone of airportCode.
func ParseTimeWithOffset(timeStr string, airportCode string) (time.Time, error) {
	offsetFormats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range offsetFormats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	loc := GetLocationByAirport(airportCode)
	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}

func ConvertToTimezone(t time.Time, airportCode string) time.Time {
	return t.In(GetLocationByAirport(airportCode))
}

// LocalTime builds a wall-clock time on date at the given airport.
func LocalTime(date time.Time, hour, minute int, airportCode string) time.Time {
	loc := GetLocationByAirport(airportCode)
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
}
