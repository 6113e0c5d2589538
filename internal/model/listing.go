package model

// Listing represents one rental unit in the static catalog. The catalog is
// trusted and fully populated, so fields are concrete rather than nullable.
type Listing struct {
	ID                      int    `json:"id"`
	Title                   string `json:"title"`
	City                    string `json:"city"`
	Price                   int    `json:"price"` // currency units per month
	DistanceToCampusMinutes int    `json:"distance_to_campus_minutes"`
	Bedrooms                int    `json:"bedrooms"`
	Description             string `json:"description"`
	URL                     string `json:"url,omitempty"`
}

// SearchCriteria is derived from a session's final slot set when the
// dialogue concludes. Nil means "no constraint": a nil MaxBudget is an
// unbounded budget and a nil Bedrooms is no bedroom floor.
type SearchCriteria struct {
	City      string   `json:"city,omitempty"`
	MinBudget float64  `json:"min_budget"`
	MaxBudget *float64 `json:"max_budget,omitempty"`
	Bedrooms  *int     `json:"bedrooms,omitempty"`
}
