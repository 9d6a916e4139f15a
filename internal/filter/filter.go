// Package filter narrows a fetched listing collection for display. It
// never touches the underlying collection, only what gets rendered.
package filter

import (
	"strings"

	"foodrescue/internal/model"
)

// StatusAll disables the status constraint.
const StatusAll = "all"

// Price bands offered by the browse view.
const (
	PriceAll     = "all"
	PriceUnder50 = "<50"
	Price50To100 = "50-100"
	PriceOver100 = ">100"
)

// ValidPriceBand reports whether the value names a known band.
func ValidPriceBand(band string) bool {
	switch band {
	case "", PriceAll, PriceUnder50, Price50To100, PriceOver100:
		return true
	}
	return false
}

// State is the ephemeral filter selection. The zero value imposes no
// constraint, same as selecting "all" everywhere.
type State struct {
	Status string // exact listing status, or "all"
	Price  string // one of the Price* bands
	Query  string // free text matched against name and place
}

// Match reports whether a single listing passes the filter. The three
// constraints are a conjunction and short-circuit on the first miss.
func (s State) Match(f model.FoodListing) bool {
	if s.Status != "" && s.Status != StatusAll && string(f.Status) != s.Status {
		return false
	}

	// An unparseable price is NaN and must fail every band, so each
	// check negates the pass condition rather than testing its inverse.
	price := f.Price.Float()
	switch s.Price {
	case PriceUnder50:
		if !(price < 50) {
			return false
		}
	case Price50To100:
		if !(price >= 50 && price <= 100) {
			return false
		}
	case PriceOver100:
		if !(price > 100) {
			return false
		}
	}

	if q := strings.TrimSpace(s.Query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(f.Name), q) &&
			!strings.Contains(strings.ToLower(f.PlaceName), q) {
			return false
		}
	}

	return true
}

// Apply returns the listings that pass the filter, preserving the
// input order.
func (s State) Apply(foods []model.FoodListing) []model.FoodListing {
	out := make([]model.FoodListing, 0, len(foods))
	for _, f := range foods {
		if s.Match(f) {
			out = append(out, f)
		}
	}
	return out
}
