package httppresentation

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	appfulfillment "github.com/pantrychef/pantry/internal/application/fulfillment"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

type deductInventoryRequest struct {
	RecipeID string `json:"recipeId" validate:"required"`
}

type deductInventoryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type cookRequestResponse struct {
	RequestID string `json:"requestId"`
}

func (h *Handler) handleDeductInventory(w http.ResponseWriter, r *http.Request) {
	var req deductInventoryRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgRecipeIDRequired)
		return
	}
	h.cook(w, r, req.RecipeID)
}

// handleCookRecipe is the path-addressed form of deduct-inventory.
func (h *Handler) handleCookRecipe(w http.ResponseWriter, r *http.Request) {
	h.cook(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) cook(w http.ResponseWriter, r *http.Request, recipeID string) {
	_, err := h.deps.Cook.Execute(r.Context(), appfulfillment.CookRecipeInput{
		UserID:   UserID(r.Context()),
		RecipeID: recipeID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deductInventoryResponse{
		Success: true,
		Message: "Inventory updated successfully",
	})
}

// handleCookRequest queues a cook for the fulfillment worker and returns at
// once. The outcome is reported through logs, metrics and events.
func (h *Handler) handleCookRequest(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	recipeID := chi.URLParam(r, "id")

	if _, err := h.deps.Recipes.Get(r.Context(), userID, recipeID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if h.deps.Publisher == nil {
		h.writeDomainError(w, r, errors.New("cook requests are not enabled"))
		return
	}

	requestID := h.deps.IDs.NewID()
	if err := h.deps.Publisher.Publish(r.Context(), domfulfillment.NewCookRequestedEvent(requestID, userID, recipeID)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	logctx.FromOr(r.Context(), h.log).Info("cook_requested",
		observability.F("cook_request_id", requestID),
		observability.F("recipe_id", recipeID),
	)
	writeJSON(w, http.StatusAccepted, cookRequestResponse{RequestID: requestID})
}
