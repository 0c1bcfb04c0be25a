package models

// SearchFilters narrows an aggregated result set after the fact. Nil and
// empty fields do not filter.
type SearchFilters struct {
	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	Airlines         []string `json:"airlines,omitempty"`
	Alliances        []string `json:"alliances,omitempty"`
	MaxStops         *int     `json:"max_stops,omitempty"`
	AwardOnly        bool     `json:"award_only,omitempty"`
	DepartureTimeMin *string  `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string  `json:"departure_time_max,omitempty"`
	ArrivalTimeMin   *string  `json:"arrival_time_min,omitempty"`
	ArrivalTimeMax   *string  `json:"arrival_time_max,omitempty"`
	MaxDuration      *int     `json:"max_duration,omitempty"`
}

type SearchRequest struct {
	SearchCriteria
	Filters   *SearchFilters `json:"filters,omitempty"`
	SortBy    string         `json:"sort_by,omitempty"`
	SortOrder string         `json:"sort_order,omitempty"`
}

// EvaluateRequest values a cash fare against mileage programs. When
// Programs is empty the charts for Route are used.
type EvaluateRequest struct {
	CashPrice  float64          `json:"cash_price"`
	CabinClass CabinClass       `json:"cabin_class"`
	Route      *Route           `json:"route,omitempty"`
	Programs   []MileageProgram `json:"programs,omitempty"`
}
