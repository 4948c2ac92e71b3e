package fulfillment

import (
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// Deduction is the net change to one stock row.
// Expected is the quantity that was read and is used as the compare-and-swap guard.
type Deduction struct {
	Item      *grocery.Item
	Expected  float64
	Consumed  float64
	Remaining float64
}

// Depletes reports whether the row must be removed instead of updated.
func (d Deduction) Depletes() bool { return d.Remaining <= 0 }

// Plan is the full write set for one cook. Updates are applied before deletes.
type Plan struct {
	Updates []Deduction
	Deletes []Deduction
}

// Writes is the number of store mutations the plan performs, excluding the meal plan insert.
func (p *Plan) Writes() int {
	if p == nil {
		return 0
	}
	return len(p.Updates) + len(p.Deletes)
}

// PlanDeductions checks every ingredient in order and stops at the first one
// that is missing or short. Nothing is planned when it fails.
//
// An ingredient listed twice draws from the same row cumulatively, so the
// second line is checked against what the first one left.
func PlanDeductions(required []recipe.Ingredient, stock []*grocery.Item) (*Plan, error) {
	ordered := SortStock(stock)

	remaining := make(map[string]float64)
	byID := make(map[string]*Deduction)
	var order []string

	for _, ing := range required {
		item := match(ordered, ing.Name)
		if item == nil {
			return nil, &InsufficientStockError{
				IngredientName: ing.Name,
				Required:       ing.Quantity,
				RequiredUnit:   ing.Unit,
			}
		}

		left, seen := remaining[item.ID]
		if !seen {
			left = item.Quantity
		}
		if left < ing.Quantity {
			return nil, &InsufficientStockError{
				IngredientName: ing.Name,
				Required:       ing.Quantity,
				RequiredUnit:   ing.Unit,
				Available:      left,
				AvailableUnit:  item.Unit,
				Found:          true,
			}
		}

		remaining[item.ID] = left - ing.Quantity
		d, ok := byID[item.ID]
		if !ok {
			d = &Deduction{Item: item, Expected: item.Quantity}
			byID[item.ID] = d
			order = append(order, item.ID)
		}
		d.Consumed += ing.Quantity
		d.Remaining = remaining[item.ID]
	}

	plan := &Plan{}
	for _, id := range order {
		d := *byID[id]
		if d.Depletes() {
			plan.Deletes = append(plan.Deletes, d)
			continue
		}
		plan.Updates = append(plan.Updates, d)
	}
	return plan, nil
}
