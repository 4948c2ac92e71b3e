package httppresentation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pantrychef/pantry/internal/domain/mealplan"
)

type scheduleMealPlanRequest struct {
	RecipeID    string `json:"recipeId" validate:"required"`
	PlannedDate string `json:"plannedDate" validate:"required"`
}

type mealPlanResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	RecipeID    string          `json:"recipe_id"`
	PlannedDate time.Time       `json:"planned_date"`
	Status      mealplan.Status `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toMealPlanResponse(mp *mealplan.MealPlan) mealPlanResponse {
	return mealPlanResponse{
		ID:          mp.ID,
		UserID:      mp.UserID,
		RecipeID:    mp.RecipeID,
		PlannedDate: mp.PlannedDate,
		Status:      mp.Status,
		CreatedAt:   mp.CreatedAt,
	}
}

func (h *Handler) handleListMealPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.deps.MealPlans.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]mealPlanResponse, 0, len(plans))
	for _, mp := range plans {
		out = append(out, toMealPlanResponse(mp))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleScheduleMealPlan(w http.ResponseWriter, r *http.Request) {
	var req scheduleMealPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	date, err := parseDate(req.PlannedDate)
	if err != nil || date == nil {
		writeMessage(w, http.StatusBadRequest, "plannedDate must be a date such as 2024-05-01")
		return
	}
	mp, err := h.deps.MealPlans.Schedule(r.Context(), UserID(r.Context()), req.RecipeID, *date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMealPlanResponse(mp))
}

func (h *Handler) handleCancelMealPlan(w http.ResponseWriter, r *http.Request) {
	mp, err := h.deps.MealPlans.Cancel(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealPlanResponse(mp))
}
