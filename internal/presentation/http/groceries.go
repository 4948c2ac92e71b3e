package httppresentation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appgrocery "github.com/pantrychef/pantry/internal/application/grocery"
	"github.com/pantrychef/pantry/internal/domain/grocery"
)

type groceryItemRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Unit         string  `json:"unit" validate:"required,max=50"`
	Category     string  `json:"category" validate:"omitempty,max=50"`
	PurchaseDate string  `json:"purchase_date"`
	ExpiryDate   string  `json:"expiry_date"`
}

type groceryItemResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	Category     string     `json:"category,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Expired      bool       `json:"expired"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toGroceryResponse(it *grocery.Item, now time.Time) groceryItemResponse {
	return groceryItemResponse{
		ID:           it.ID,
		UserID:       it.UserID,
		Name:         it.Name,
		Quantity:     it.Quantity,
		Unit:         it.Unit,
		Category:     it.Category,
		PurchaseDate: it.PurchaseDate,
		ExpiryDate:   it.ExpiryDate,
		Expired:      it.ExpiredAt(now),
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

func (h *Handler) handleListGroceries(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Groceries.ListItems(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	now := h.now()
	out := make([]groceryItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toGroceryResponse(it, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAddGrocery(w http.ResponseWriter, r *http.Request) {
	in, ok := h.groceryInput(w, r)
	if !ok {
		return
	}
	item, err := h.deps.Groceries.AddItem(r.Context(), UserID(r.Context()), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroceryResponse(item, h.now()))
}

func (h *Handler) handleUpdateGrocery(w http.ResponseWriter, r *http.Request) {
	in, ok := h.groceryInput(w, r)
	if !ok {
		return
	}
	item, err := h.deps.Groceries.UpdateItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroceryResponse(item, h.now()))
}

func (h *Handler) handleDeleteGrocery(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Groceries.DeleteItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) groceryInput(w http.ResponseWriter, r *http.Request) (appgrocery.ItemInput, bool) {
	var req groceryItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return appgrocery.ItemInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return appgrocery.ItemInput{}, false
	}
	purchase, err := parseDate(req.PurchaseDate)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "purchase_date: "+err.Error())
		return appgrocery.ItemInput{}, false
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "expiry_date: "+err.Error())
		return appgrocery.ItemInput{}, false
	}
	return appgrocery.ItemInput{
		Name:         req.Name,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Category:     req.Category,
		PurchaseDate: purchase,
		ExpiryDate:   expiry,
	}, true
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty is nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return msgInvalidBody
	}
	fe := ves[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}
