// Package reference holds the static lookup tables the engine consumes:
// route distances, airline metadata and per-program mileage charts. Every
// lookup treats a missing key as "not applicable" and never fails.
package reference

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

//go:embed data/reference.yaml
var defaultYAML []byte

type airlineFile struct {
	Name     string `yaml:"name"`
	Alliance string `yaml:"alliance"`
}

type routeFile struct {
	Cabins        map[string]models.MileRequirement `yaml:"cabins"`
	FuelSurcharge float64                           `yaml:"fuel_surcharge"`
	Taxes         float64                           `yaml:"taxes"`
	Note          string                            `yaml:"note"`
}

type programFile struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name"`
	Airline        string                 `yaml:"airline"`
	Alliance       string                 `yaml:"alliance"`
	Currency       string                 `yaml:"currency"`
	Features       models.ProgramFeatures `yaml:"features"`
	Booking        models.BookingRules    `yaml:"booking"`
	PartnerBooking bool                   `yaml:"partner_booking"`
	Note           string                 `yaml:"note"`
	Routes         map[string]routeFile   `yaml:"routes"`
}

type file struct {
	Distances map[string]int         `yaml:"distances"`
	Airlines  map[string]airlineFile `yaml:"airlines"`
	Programs  []programFile          `yaml:"programs"`
}

type chartEntry struct {
	program models.MileageProgram
	routes  map[string]routeChart
}

type routeChart struct {
	cabins        map[models.CabinClass]models.MileRequirement
	fuelSurcharge float64
	taxes         float64
	note          string
}

// Data is immutable after Load.
type Data struct {
	distances map[string]int
	airlines  map[string]airlineFile
	charts    []chartEntry
}

var (
	defaultOnce sync.Once
	defaultData *Data
)

// Default returns the tables embedded in the binary.
func Default() *Data {
	defaultOnce.Do(func() {
		d, err := Load(bytes.NewReader(defaultYAML))
		if err != nil {
			panic(fmt.Sprintf("reference: embedded data is invalid: %v", err))
		}
		defaultData = d
	})
	return defaultData
}

// LoadFile reads an operator-supplied file and appends the embedded
// tables after it, so entries from path are seen first.
func LoadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference data: %w", err)
	}
	defer f.Close()

	return Load(f, bytes.NewReader(defaultYAML))
}

// Load merges one or more YAML documents in order. Distances and airlines
// from earlier sources win; programs are kept in the order they appear,
// duplicates included.
func Load(sources ...io.Reader) (*Data, error) {
	d := &Data{
		distances: make(map[string]int),
		airlines:  make(map[string]airlineFile),
	}

	for i, src := range sources {
		var f file
		if err := yaml.NewDecoder(src).Decode(&f); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode reference source %d: %w", i, err)
		}

		for key, miles := range f.Distances {
			key = normalizeKey(key)
			if _, ok := d.distances[key]; !ok {
				d.distances[key] = miles
			}
		}
		for code, a := range f.Airlines {
			code = strings.ToUpper(code)
			if _, ok := d.airlines[code]; !ok {
				d.airlines[code] = a
			}
		}
		for _, p := range f.Programs {
			entry, err := buildEntry(p)
			if err != nil {
				return nil, fmt.Errorf("reference source %d: %w", i, err)
			}
			d.charts = append(d.charts, entry)
		}
	}

	return d, nil
}

func buildEntry(p programFile) (chartEntry, error) {
	entry := chartEntry{
		program: models.MileageProgram{
			ID:             p.ID,
			Name:           p.Name,
			Airline:        strings.ToUpper(p.Airline),
			Alliance:       p.Alliance,
			Currency:       strings.ToUpper(p.Currency),
			Features:       p.Features,
			Booking:        p.Booking,
			PartnerBooking: p.PartnerBooking,
			Note:           p.Note,
		},
		routes: make(map[string]routeChart, len(p.Routes)),
	}
	if entry.program.Name == "" && entry.program.ID == "" {
		return chartEntry{}, fmt.Errorf("program without id or name")
	}

	for key, r := range p.Routes {
		rc := routeChart{
			cabins:        make(map[models.CabinClass]models.MileRequirement, len(r.Cabins)),
			fuelSurcharge: r.FuelSurcharge,
			taxes:         r.Taxes,
			note:          r.Note,
		}
		for name, req := range r.Cabins {
			cabin, ok := models.ParseCabinClass(name)
			if !ok {
				return chartEntry{}, fmt.Errorf("program %q route %s: unknown cabin %q", p.Name, key, name)
			}
			rc.cabins[cabin] = req
		}
		entry.routes[normalizeKey(key)] = rc
	}
	return entry, nil
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func (d *Data) lookupKey(dep, arr string) []string {
	r := models.Route{Departure: strings.ToUpper(dep), Arrival: strings.ToUpper(arr)}
	return []string{r.Key(), r.Reverse().Key()}
}

// Distance returns the route distance in miles, checking both directions.
func (d *Data) Distance(dep, arr string) (int, bool) {
	for _, key := range d.lookupKey(dep, arr) {
		if miles, ok := d.distances[key]; ok {
			return miles, true
		}
	}
	return 0, false
}

func (d *Data) AirlineName(code string) (string, bool) {
	a, ok := d.airlines[strings.ToUpper(code)]
	if !ok || a.Name == "" {
		return "", false
	}
	return a.Name, true
}

// Alliance returns "" for unaligned or unknown carriers.
func (d *Data) Alliance(code string) string {
	return d.airlines[strings.ToUpper(code)].Alliance
}

// Programs resolves every chart that prices the route, in declaration
// order. The returned values are copies and safe to modify.
func (d *Data) Programs(dep, arr string) []models.MileageProgram {
	keys := d.lookupKey(dep, arr)
	var out []models.MileageProgram

	for _, entry := range d.charts {
		var (
			rc    routeChart
			found bool
		)
		for _, key := range keys {
			if rc, found = entry.routes[key]; found {
				break
			}
		}
		if !found {
			continue
		}

		p := entry.program
		p.Cabins = make(map[models.CabinClass]models.MileRequirement, len(rc.cabins))
		for cabin, req := range rc.cabins {
			p.Cabins[cabin] = req
		}
		p.FuelSurcharge = rc.fuelSurcharge
		p.Taxes = rc.taxes
		if rc.note != "" {
			p.Note = rc.note
		}
		out = append(out, p)
	}
	return out
}
