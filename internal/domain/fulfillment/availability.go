// Package fulfillment decides whether a user's stock can cover a recipe and
// plans the stock changes that cooking it implies.
package fulfillment

import (
	"sort"

	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// Availability is the per-ingredient result of CheckAvailability.
// Item is nil when no stock row matches the ingredient name.
type Availability struct {
	Ingredient recipe.Ingredient
	Item       *grocery.Item
	Available  bool
	Sufficient bool
}

// CheckAvailability reports, in ingredient order, whether each ingredient has
// a matching stock row and whether that row holds at least the required amount.
// Units are labels only and are never compared.
func CheckAvailability(required []recipe.Ingredient, stock []*grocery.Item) []Availability {
	ordered := SortStock(stock)
	out := make([]Availability, 0, len(required))
	for _, ing := range required {
		a := Availability{Ingredient: ing}
		if item := match(ordered, ing.Name); item != nil {
			a.Item = item
			a.Available = true
			a.Sufficient = item.Quantity >= ing.Quantity
		}
		out = append(out, a)
	}
	return out
}

// SortStock returns a copy of stock ordered by creation time, then id.
// When several rows share a name the first one in this order is used.
func SortStock(stock []*grocery.Item) []*grocery.Item {
	ordered := make([]*grocery.Item, 0, len(stock))
	for _, it := range stock {
		if it != nil {
			ordered = append(ordered, it)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ordered
}

func match(ordered []*grocery.Item, name string) *grocery.Item {
	for _, it := range ordered {
		if it.Matches(name) {
			return it
		}
	}
	return nil
}
