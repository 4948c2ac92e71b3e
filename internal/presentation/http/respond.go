package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apprecipe "github.com/pantrychef/pantry/internal/application/recipe"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

const (
	msgInternal         = "Internal server error"
	msgUnauthorized     = "Unauthorized"
	msgRecipeIDRequired = "Recipe ID is required"
	msgRecipeNotFound   = "Recipe not found"
	msgInvalidBody      = "Invalid request body"
	msgNoGroceries      = "No grocery items provided"
	msgGenerateFailed   = "Failed to generate recipes"
	msgParseFailed      = "Failed to parse recipe data"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError is the single translation point from application errors
// to HTTP responses. Unknown errors are logged and reported generically.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var short *domfulfillment.InsufficientStockError
	var se *domfulfillment.StoreError

	switch {
	case errors.Is(err, domfulfillment.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, domfulfillment.ErrValidation):
		writeMessage(w, http.StatusBadRequest, msgRecipeIDRequired)
	case errors.As(err, &short):
		writeMessage(w, http.StatusBadRequest, short.Error())
	case errors.Is(err, recipe.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgRecipeNotFound)
	case errors.Is(err, grocery.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Grocery item not found")
	case errors.Is(err, mealplan.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Meal plan not found")
	case errors.Is(err, mealplan.ErrInvalidStateTransition):
		writeMessage(w, http.StatusConflict, "Meal plan can no longer be changed")
	case errors.Is(err, domfulfillment.ErrConcurrentModification):
		h.logFailure(r, err)
		writeMessage(w, http.StatusConflict, domfulfillment.StageUpdateStock.Message())
	case errors.As(err, &se):
		h.logFailure(r, err)
		writeMessage(w, http.StatusInternalServerError, se.Stage.Message())

	case errors.Is(err, grocery.ErrNameRequired),
		errors.Is(err, grocery.ErrUnitRequired),
		errors.Is(err, grocery.ErrInvalidQuantity),
		errors.Is(err, recipe.ErrTitleRequired),
		errors.Is(err, recipe.ErrInvalidServings),
		errors.Is(err, recipe.ErrIngredientInvalid),
		errors.Is(err, recipe.ErrNoIngredients),
		errors.Is(err, mealplan.ErrRecipeRequired):
		writeMessage(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, apprecipe.ErrNoGroceries):
		writeMessage(w, http.StatusBadRequest, msgNoGroceries)
	case errors.Is(err, apprecipe.ErrRateLimited):
		writeMessage(w, http.StatusTooManyRequests, "Too many recipe generation requests")
	case errors.Is(err, recipe.ErrUnparseable):
		h.logFailure(r, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgParseFailed, Details: err.Error()})
	case errors.Is(err, recipe.ErrGeneration):
		h.logFailure(r, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgGenerateFailed, Details: err.Error()})

	default:
		h.logFailure(r, err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handler) logFailure(r *http.Request, err error) {
	logctx.FromOr(r.Context(), h.log).Error("http_request_failed",
		observability.F("route", routeFromContext(r.Context())),
		observability.F("error", err),
	)
}
