// Package catalog holds the static listing inventory. Listings are compiled
// into the binary and never change for the lifetime of the process.
package catalog

import "core/internal/model"

var listings = []model.Listing{
	{
		ID:                      1,
		Title:                   "Campus Commons - Studio",
		City:                    "Toronto",
		Price:                   950,
		DistanceToCampusMinutes: 5,
		Bedrooms:                0,
		Description:             "Furnished studio steps from the main quad.",
		URL:                     "https://example.com/campus-commons-studio",
	},
	{
		ID:                      2,
		Title:                   "Maple Street Apartments - 2BR",
		City:                    "Toronto",
		Price:                   1450,
		DistanceToCampusMinutes: 15,
		Bedrooms:                2,
		Description:             "Two bedrooms with in-suite laundry on a quiet street.",
		URL:                     "https://example.com/maple-2br",
	},
	{
		ID:                      3,
		Title:                   "Downtown Loft - 1BR",
		City:                    "Toronto",
		Price:                   1300,
		DistanceToCampusMinutes: 20,
		Bedrooms:                1,
		Description:             "Open-concept loft near transit and nightlife.",
		URL:                     "https://example.com/downtown-loft",
	},
	{
		ID:                      4,
		Title:                   "Greenway Homes - 3BR",
		City:                    "Toronto",
		Price:                   1850,
		DistanceToCampusMinutes: 30,
		Bedrooms:                3,
		Description:             "Three-bedroom townhouse with backyard, ideal for groups.",
		URL:                     "https://example.com/greenway-3br",
	},
	{
		ID:                      5,
		Title:                   "Sandy Hill Shared House - Room",
		City:                    "Ottawa",
		Price:                   650,
		DistanceToCampusMinutes: 10,
		Bedrooms:                1,
		Description:             "Private room in a shared student house, utilities included.",
		URL:                     "https://example.com/sandy-hill-room",
	},
	{
		ID:                      6,
		Title:                   "Rideau Riverside - 1BR",
		City:                    "Ottawa",
		Price:                   850,
		DistanceToCampusMinutes: 12,
		Bedrooms:                1,
		Description:             "Bright one-bedroom overlooking the river path.",
		URL:                     "https://example.com/rideau-riverside-1br",
	},
	{
		ID:                      7,
		Title:                   "ByWard Market Flat - 2BR",
		City:                    "Ottawa",
		Price:                   1400,
		DistanceToCampusMinutes: 18,
		Bedrooms:                2,
		Description:             "Renovated flat above the market, shops at the door.",
		URL:                     "https://example.com/byward-2br",
	},
	{
		ID:                      8,
		Title:                   "Annex Victorian - 2BR",
		City:                    "Toronto",
		Price:                   1450,
		DistanceToCampusMinutes: 8,
		Bedrooms:                2,
		Description:             "Upper floor of a Victorian, short walk to campus.",
		URL:                     "https://example.com/annex-victorian-2br",
	},
}

// All returns a copy of the catalog so callers can sort or filter freely
// without touching the shared inventory.
func All() []model.Listing {
	out := make([]model.Listing, len(listings))
	copy(out, listings)
	return out
}

// Size returns the number of listings in the catalog.
func Size() int {
	return len(listings)
}
