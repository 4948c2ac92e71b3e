// Package httppresentation is the HTTP entry point of the pantry service.
package httppresentation

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pantrychef/pantry/internal/application"
	appfulfillment "github.com/pantrychef/pantry/internal/application/fulfillment"
	appgrocery "github.com/pantrychef/pantry/internal/application/grocery"
	appmealplan "github.com/pantrychef/pantry/internal/application/mealplan"
	apprecipe "github.com/pantrychef/pantry/internal/application/recipe"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

// Authenticator turns a bearer token into a user id.
type Authenticator interface {
	Verify(token string) (string, error)
}

type IDGenerator interface {
	NewID() string
}

type CookUseCase = application.UseCase[appfulfillment.CookRecipeInput, *appfulfillment.CookRecipeResult]

type Deps struct {
	Cook      CookUseCase
	Groceries *appgrocery.Service
	Recipes   *apprecipe.Service
	MealPlans *appmealplan.Service
	// Publisher receives recipe.cook_requested for the asynchronous cook.
	Publisher domoutbox.Publisher
	IDs       IDGenerator
	Auth      Authenticator
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	deps     Deps
	auth     Authenticator
	validate *validator.Validate
	log      observability.Logger
	now      func() time.Time

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

// WithClock overrides the time used to flag expired groceries.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func NewHandler(deps Deps, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{
		deps:         deps,
		auth:         deps.Auth,
		validate:     validate,
		now:          time.Now,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	h.public(r, http.MethodGet, "/health", h.handleHealth)

	h.private(r, http.MethodPost, "/api/deduct-inventory", h.handleDeductInventory)
	h.private(r, http.MethodPost, "/api/recipes/{id}/cook", h.handleCookRecipe)
	h.private(r, http.MethodPost, "/api/recipes/{id}/cook-requests", h.handleCookRequest)

	h.private(r, http.MethodGet, "/api/grocery-items", h.handleListGroceries)
	h.private(r, http.MethodPost, "/api/grocery-items", h.handleAddGrocery)
	h.private(r, http.MethodPut, "/api/grocery-items/{id}", h.handleUpdateGrocery)
	h.private(r, http.MethodDelete, "/api/grocery-items/{id}", h.handleDeleteGrocery)

	h.private(r, http.MethodPost, "/api/generate-recipes", h.handleGenerateRecipes)
	h.private(r, http.MethodGet, "/api/recipes", h.handleListRecipes)
	h.private(r, http.MethodPost, "/api/recipes", h.handleSaveRecipe)
	h.private(r, http.MethodGet, "/api/recipes/{id}", h.handleGetRecipe)
	h.private(r, http.MethodGet, "/api/recipes/{id}/availability", h.handleRecipeAvailability)
	h.private(r, http.MethodDelete, "/api/recipes/{id}", h.handleDeleteRecipe)

	h.private(r, http.MethodGet, "/api/meal-plans", h.handleListMealPlans)
	h.private(r, http.MethodPost, "/api/meal-plans", h.handleScheduleMealPlan)
	h.private(r, http.MethodPost, "/api/meal-plans/{id}/cancel", h.handleCancelMealPlan)

	if h.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.deps.Metrics)
	}
	return r
}

func (h *Handler) public(r chi.Router, method, pattern string, fn http.HandlerFunc) {
	r.Method(method, pattern, h.wrap(method+" "+pattern, fn))
}

func (h *Handler) private(r chi.Router, method, pattern string, fn http.HandlerFunc) {
	r.Method(method, pattern, h.wrap(method+" "+pattern, h.withAuth(fn)))
}

// wrap: Trace → Request Logger → Access Log → Metrics → Recover → Handler.
func (h *Handler) wrap(route string, next http.Handler) http.Handler {
	chain := h.withTrace(
		RequestLogger(h.log)(
			h.withAccessLog(
				h.withHTTPMetrics(
					h.withRecover(next),
				),
			),
		),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chain.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
