package grocery

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("grocery: item not found")
	ErrNameRequired    = errors.New("grocery: name is required")
	ErrUnitRequired    = errors.New("grocery: unit is required")
	ErrInvalidQuantity = errors.New("grocery: quantity must be greater than zero")
)

// Known categories. Category is free text; these are the values the clients offer.
const (
	CategoryVegetables = "vegetables"
	CategoryFruits     = "fruits"
	CategoryDairy      = "dairy"
	CategoryMeat       = "meat"
	CategoryGrains     = "grains"
	CategoryOther      = "other"
)

// Item is one stock row owned by a single user.
type Item struct {
	ID           string
	UserID       string
	Name         string
	Quantity     float64
	Unit         string
	Category     string
	PurchaseDate *time.Time
	ExpiryDate   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewItem(id, userID, name string, quantity float64, unit string) (*Item, error) {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" {
		return nil, ErrNameRequired
	}
	if unit == "" {
		return nil, ErrUnitRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return &Item{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Quantity:  quantity,
		Unit:      unit,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Matches reports whether name refers to this item. Only case is folded:
// no trimming of plurals and no unit awareness.
func (i *Item) Matches(name string) bool {
	return strings.ToLower(i.Name) == strings.ToLower(name)
}

// Revise replaces the user-editable fields.
func (i *Item) Revise(name string, quantity float64, unit, category string, purchase, expiry *time.Time) error {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	switch {
	case name == "":
		return ErrNameRequired
	case unit == "":
		return ErrUnitRequired
	case quantity <= 0:
		return ErrInvalidQuantity
	}
	i.Name = name
	i.Quantity = quantity
	i.Unit = unit
	i.Category = category
	i.PurchaseDate = purchase
	i.ExpiryDate = expiry
	i.touch()
	return nil
}

// ExpiredAt reports whether the item has an expiry date before t.
func (i *Item) ExpiredAt(t time.Time) bool {
	return i.ExpiryDate != nil && i.ExpiryDate.Before(t)
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	if i.PurchaseDate != nil {
		d := *i.PurchaseDate
		clone.PurchaseDate = &d
	}
	if i.ExpiryDate != nil {
		d := *i.ExpiryDate
		clone.ExpiryDate = &d
	}
	return &clone
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
