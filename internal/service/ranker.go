package service

import (
	"sort"
	"strings"

	"core/internal/model"
)

// Ranker orders catalog listings by fit to the caller's criteria. It is a
// pure function over its inputs; nothing is cached between calls.
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank filters listings against criteria and sorts the survivors by
// ascending price, breaking price ties by ascending distance to campus.
// The sort is stable, so remaining ties keep catalog order. If nothing
// survives the filter the whole catalog is returned sorted by price: the
// caller is always offered something.
func (r *Ranker) Rank(listings []model.Listing, criteria model.SearchCriteria) []model.Listing {
	filtered := make([]model.Listing, 0, len(listings))
	for _, listing := range listings {
		if r.matches(listing, criteria) {
			filtered = append(filtered, listing)
		}
	}

	if len(filtered) == 0 {
		filtered = append(filtered, listings...)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Price != filtered[j].Price {
			return filtered[i].Price < filtered[j].Price
		}
		return filtered[i].DistanceToCampusMinutes < filtered[j].DistanceToCampusMinutes
	})

	return filtered
}

// matches reports whether a listing satisfies every set constraint. Budget
// bounds are inclusive; a nil MaxBudget is unbounded and a nil Bedrooms is
// no bedroom floor.
func (r *Ranker) matches(listing model.Listing, criteria model.SearchCriteria) bool {
	if criteria.City != "" {
		city := strings.ToLower(listing.City)
		if !strings.Contains(city, strings.ToLower(criteria.City)) {
			return false
		}
	}
	price := float64(listing.Price)
	if price < criteria.MinBudget {
		return false
	}
	if criteria.MaxBudget != nil && price > *criteria.MaxBudget {
		return false
	}
	if criteria.Bedrooms != nil && listing.Bedrooms < *criteria.Bedrooms {
		return false
	}
	return true
}
