package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pantrychef/pantry/internal/application"
	appfulfillment "github.com/pantrychef/pantry/internal/application/fulfillment"
	appgrocery "github.com/pantrychef/pantry/internal/application/grocery"
	appmealplan "github.com/pantrychef/pantry/internal/application/mealplan"
	apprecipe "github.com/pantrychef/pantry/internal/application/recipe"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/infrastructure/auth"
	"github.com/pantrychef/pantry/internal/infrastructure/id"
	"github.com/pantrychef/pantry/internal/infrastructure/lock"
	"github.com/pantrychef/pantry/internal/infrastructure/memory"
	"github.com/pantrychef/pantry/internal/infrastructure/ratelimit"
)

type stubGenerator struct {
	out []recipe.Candidate
	err error
}

func (g *stubGenerator) Generate(context.Context, []string, string) ([]recipe.Candidate, error) {
	return g.out, g.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type HandlerSuite struct {
	suite.Suite
	db     *memory.DB
	jwt    *auth.JWT
	gen    *stubGenerator
	pub    *recordingPublisher
	deps   Deps
	now    time.Time
	server http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	var err error
	s.jwt, err = auth.NewJWT(auth.Config{Secret: "test-secret", Issuer: "pantry"})
	s.Require().NoError(err)

	s.db = memory.NewDB()
	s.now = time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	s.gen = &stubGenerator{}
	s.pub = &recordingPublisher{}
	ids := id.NewUUIDGenerator()

	s.deps = Deps{
		Cook:      appfulfillment.NewCookRecipeUseCase(s.db.UnitOfWork(), lock.NewKeyedMutex(), ids, s.pub, nil),
		Groceries: appgrocery.NewService(s.db.Groceries(), ids, nil),
		Recipes:   apprecipe.NewService(s.db.Recipes(), s.db.Groceries(), s.gen, nil, ids, nil),
		MealPlans: appmealplan.NewService(s.db.MealPlans(), s.db.Recipes(), ids, nil),
		Publisher: s.pub,
		IDs:       ids,
		Auth:      s.jwt,
	}
	s.rebuild()
}

func (s *HandlerSuite) rebuild() {
	s.server = NewHandler(s.deps, nil).WithClock(func() time.Time { return s.now }).Router()
}

func (s *HandlerSuite) token(userID string) string {
	tok, err := s.jwt.Issue(userID)
	s.Require().NoError(err)
	return tok
}

func (s *HandlerSuite) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *HandlerSuite) errorOf(rec *httptest.ResponseRecorder) errorBody {
	var out errorBody
	s.decode(rec, &out)
	return out
}

func (s *HandlerSuite) stock(userID, itemID, name string, qty float64, unit string) {
	it, err := grocery.NewItem(itemID, userID, name, qty, unit)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Groceries().Insert(context.Background(), it))
}

func (s *HandlerSuite) recipe(userID, recipeID string, ings ...recipe.Ingredient) {
	rec, err := recipe.New(recipeID, userID, "Dish "+recipeID, 2)
	s.Require().NoError(err)
	for i, ing := range ings {
		s.Require().NoError(rec.AddIngredient(fmt.Sprintf("%s-ing-%d", recipeID, i), ing.Name, ing.Quantity, ing.Unit))
	}
	s.Require().NoError(s.db.Recipes().Create(context.Background(), rec))
}

func (s *HandlerSuite) TestHealthIsPublic() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(headerRequestID))
}

func (s *HandlerSuite) TestUnauthorized() {
	rec := s.do(http.MethodPost, "/api/deduct-inventory", "", map[string]string{"recipeId": "r1"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Unauthorized", s.errorOf(rec).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/grocery-items", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	out := httptest.NewRecorder()
	s.server.ServeHTTP(out, req)
	s.Equal(http.StatusUnauthorized, out.Code)
}

func (s *HandlerSuite) TestDeductInventory_Success() {
	s.stock("u1", "g1", "Tomatoes", 5, "kg")
	s.stock("u1", "g2", "Basil", 1, "bunch")
	s.recipe("u1", "r1",
		recipe.Ingredient{Name: "tomatoes", Quantity: 2, Unit: "kg"},
		recipe.Ingredient{Name: "Basil", Quantity: 1, Unit: "bunch"},
	)

	rec := s.do(http.MethodPost, "/api/deduct-inventory", "u1", map[string]string{"recipeId": "r1"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.JSONEq(`{"success":true,"message":"Inventory updated successfully"}`, rec.Body.String())

	tomatoes, err := s.db.Groceries().Get(context.Background(), "g1")
	s.Require().NoError(err)
	s.Equal(3.0, tomatoes.Quantity)
	_, err = s.db.Groceries().Get(context.Background(), "g2")
	s.ErrorIs(err, grocery.ErrNotFound)

	plans, err := s.db.MealPlans().ListByUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Len(plans, 1)
}

func (s *HandlerSuite) TestDeductInventory_Errors() {
	s.stock("u1", "g1", "Tomatoes", 2, "kg")
	s.recipe("u1", "short", recipe.Ingredient{Name: "Tomatoes", Quantity: 3, Unit: "kg"})
	s.recipe("u1", "missing", recipe.Ingredient{Name: "Saffron", Quantity: 1, Unit: "g"})
	s.recipe("u2", "foreign", recipe.Ingredient{Name: "Tomatoes", Quantity: 1, Unit: "kg"})

	cases := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"missing id", map[string]string{}, http.StatusBadRequest, "Recipe ID is required"},
		{"empty body", "", http.StatusBadRequest, "Recipe ID is required"},
		{"empty id", map[string]string{"recipeId": ""}, http.StatusBadRequest, "Recipe ID is required"},
		{"bad json", "{", http.StatusBadRequest, "Invalid request body"},
		{"shortfall", map[string]string{"recipeId": "short"}, http.StatusBadRequest, "Insufficient Tomatoes. Required: 3 kg, Available: 2 kg"},
		{"no stock row", map[string]string{"recipeId": "missing"}, http.StatusBadRequest, "Insufficient Saffron. Required: 1 g, Available: 0 "},
		{"unknown recipe", map[string]string{"recipeId": "nope"}, http.StatusNotFound, "Recipe not found"},
		{"other user's recipe", map[string]string{"recipeId": "foreign"}, http.StatusNotFound, "Recipe not found"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.do(http.MethodPost, "/api/deduct-inventory", "u1", tc.body)
			s.Equal(tc.status, rec.Code)
			s.Equal(tc.msg, s.errorOf(rec).Error)
		})
	}

	tomatoes, err := s.db.Groceries().Get(context.Background(), "g1")
	s.Require().NoError(err)
	s.Equal(2.0, tomatoes.Quantity)
}

func (s *HandlerSuite) TestDeductInventory_StoreFailureAndPanic() {
	s.deps.Cook = application.UseCaseFunc[appfulfillment.CookRecipeInput, *appfulfillment.CookRecipeResult](
		func(context.Context, appfulfillment.CookRecipeInput) (*appfulfillment.CookRecipeResult, error) {
			return nil, domfulfillment.WrapStore(domfulfillment.StageFetchStock, fmt.Errorf("connection reset"))
		})
	s.rebuild()
	rec := s.do(http.MethodPost, "/api/deduct-inventory", "u1", map[string]string{"recipeId": "r1"})
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Failed to fetch grocery items", s.errorOf(rec).Error)

	s.deps.Cook = application.UseCaseFunc[appfulfillment.CookRecipeInput, *appfulfillment.CookRecipeResult](
		func(context.Context, appfulfillment.CookRecipeInput) (*appfulfillment.CookRecipeResult, error) {
			panic("boom")
		})
	s.rebuild()
	rec = s.do(http.MethodPost, "/api/recipes/r1/cook", "u1", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Internal server error", s.errorOf(rec).Error)
}

func (s *HandlerSuite) TestCookRequest_Accepted() {
	s.recipe("u1", "r1", recipe.Ingredient{Name: "Rice", Quantity: 1, Unit: "cup"})

	rec := s.do(http.MethodPost, "/api/recipes/r1/cook-requests", "u1", nil)
	s.Require().Equal(http.StatusAccepted, rec.Code, rec.Body.String())
	var out cookRequestResponse
	s.decode(rec, &out)
	s.NotEmpty(out.RequestID)

	s.Require().Len(s.pub.events, 1)
	evt, ok := s.pub.events[0].(domfulfillment.CookRequestedEvent)
	s.Require().True(ok)
	s.Equal(out.RequestID, evt.RequestID)
	s.Equal("u1", evt.UserID)
	s.Equal("r1", evt.RecipeID)

	rec = s.do(http.MethodPost, "/api/recipes/nope/cook-requests", "u1", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGroceryCRUD() {
	rec := s.do(http.MethodPost, "/api/grocery-items", "u1", map[string]any{
		"name": "Milk", "quantity": 1.5, "unit": "l", "category": "dairy", "expiry_date": "2024-07-01",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created groceryItemResponse
	s.decode(rec, &created)
	s.Equal("Milk", created.Name)
	s.Require().NotNil(created.ExpiryDate)
	s.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *created.ExpiryDate)
	s.True(created.Expired)

	rec = s.do(http.MethodPost, "/api/grocery-items", "u1", map[string]any{"name": "Eggs", "quantity": 0, "unit": "pcs"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("quantity must be greater than 0", s.errorOf(rec).Error)

	rec = s.do(http.MethodPut, "/api/grocery-items/"+created.ID, "u2", map[string]any{"name": "Milk", "quantity": 3, "unit": "l"})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/grocery-items/"+created.ID, "u1", map[string]any{"name": "Milk", "quantity": 3, "unit": "l"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/grocery-items", "u1", nil)
	var list []groceryItemResponse
	s.decode(rec, &list)
	s.Require().Len(list, 1)
	s.Equal(3.0, list[0].Quantity)
	s.Nil(list[0].ExpiryDate)
	s.False(list[0].Expired)

	rec = s.do(http.MethodDelete, "/api/grocery-items/"+created.ID, "u1", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, "/api/grocery-items/"+created.ID, "u1", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGenerateRecipes() {
	rec := s.do(http.MethodPost, "/api/generate-recipes", "u1", map[string]string{"mealType": "dinner"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("No grocery items provided", s.errorOf(rec).Error)

	s.stock("u1", "g1", "Rice", 1, "kg")
	candidate := recipe.Candidate{Title: "Fried rice", Servings: 2, Ingredients: []recipe.CandidateIngredient{{Name: "Rice", Quantity: 0.5, Unit: "kg"}}}
	s.gen.out = []recipe.Candidate{candidate, candidate, candidate, candidate}

	rec = s.do(http.MethodPost, "/api/generate-recipes", "u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var out generateRecipesResponse
	s.decode(rec, &out)
	s.Len(out.Recipes, 3)

	s.gen.err = fmt.Errorf("%w: bad json", recipe.ErrUnparseable)
	rec = s.do(http.MethodPost, "/api/generate-recipes", "u1", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Failed to parse recipe data", s.errorOf(rec).Error)

	s.gen.err = fmt.Errorf("%w: status 503", recipe.ErrGeneration)
	rec = s.do(http.MethodPost, "/api/generate-recipes", "u1", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	body := s.errorOf(rec)
	s.Equal("Failed to generate recipes", body.Error)
	s.Contains(body.Details, "status 503")

	rec = s.do(http.MethodPost, "/api/generate-recipes", "u1", map[string]string{"mealType": "brunch-ish"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGenerateRecipes_RateLimited() {
	s.stock("u1", "g1", "Rice", 1, "kg")
	s.gen.out = []recipe.Candidate{{Title: "Rice", Servings: 1}}
	ids := id.NewUUIDGenerator()
	s.deps.Recipes = apprecipe.NewService(s.db.Recipes(), s.db.Groceries(), s.gen, ratelimit.NewPerKey(1, 1, time.Minute), ids, nil)
	s.rebuild()

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/generate-recipes", "u1", nil).Code)
	s.Equal(http.StatusTooManyRequests, s.do(http.MethodPost, "/api/generate-recipes", "u1", nil).Code)
	// u2 has its own bucket; it is turned away for having no stock, not for the rate.
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/generate-recipes", "u2", nil).Code)
}

func (s *HandlerSuite) TestSavedRecipes() {
	rec := s.do(http.MethodPost, "/api/recipes", "u1", recipe.Candidate{
		Title: "Omelette", Description: "Quick", PrepTime: 5, CookTime: 5, Servings: 1,
		Ingredients:  []recipe.CandidateIngredient{{Name: "Eggs", Quantity: 3, Unit: "pieces"}, {Name: "Butter", Quantity: 10, Unit: "g"}},
		Instructions: []string{"Whisk", "Fry"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var saved recipeResponse
	s.decode(rec, &saved)
	s.Equal("Whisk\n\nFry", saved.Instructions)
	s.Equal([]string{"Whisk", "Fry"}, saved.Steps)
	s.Require().NotNil(saved.TotalTime)
	s.Equal(10, *saved.TotalTime)
	s.Equal([]string{"Eggs", "Butter"}, []string{saved.Ingredients[0].IngredientName, saved.Ingredients[1].IngredientName})

	s.stock("u1", "g1", "eggs", 4, "pieces")
	rec = s.do(http.MethodGet, "/api/recipes/"+saved.ID+"/availability", "u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var avail availabilityResponse
	s.decode(rec, &avail)
	s.False(avail.CanCook)
	s.Require().Len(avail.Availability, 2)
	s.True(avail.Availability[0].Sufficient)
	s.Equal("g1", avail.Availability[0].GroceryItemID)
	s.False(avail.Availability[1].Sufficient)
	s.Empty(avail.Availability[1].GroceryItemID)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/recipes/"+saved.ID, "u2", nil).Code)

	rec = s.do(http.MethodPost, "/api/recipes", "u1", recipe.Candidate{Title: "", Servings: 1})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/recipes", "u1", recipe.Candidate{
		Title: "Seasoned eggs", Servings: 1,
		Ingredients: []recipe.CandidateIngredient{{Name: "Eggs", Quantity: 2, Unit: "pieces"}, {Name: "Salt", Quantity: 0, Unit: "to taste"}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var seasoned recipeResponse
	s.decode(rec, &seasoned)
	s.Require().Len(seasoned.Ingredients, 2)
	s.Equal(0.0, seasoned.Ingredients[1].Quantity)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/recipes/"+seasoned.ID, "u1", nil).Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/recipes/"+saved.ID, "u1", nil).Code)
	rec = s.do(http.MethodGet, "/api/recipes", "u1", nil)
	var list []recipeResponse
	s.decode(rec, &list)
	s.Empty(list)
}

func (s *HandlerSuite) TestMealPlans() {
	s.recipe("u1", "r1", recipe.Ingredient{Name: "Rice", Quantity: 1, Unit: "cup"})

	rec := s.do(http.MethodPost, "/api/meal-plans", "u1", map[string]string{"recipeId": "r1", "plannedDate": "2024-06-03"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var plan mealPlanResponse
	s.decode(rec, &plan)
	s.Equal("planned", string(plan.Status))

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/meal-plans", "u1", map[string]string{"recipeId": "r1", "plannedDate": "soon"}).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/meal-plans", "u2", map[string]string{"recipeId": "r1", "plannedDate": "2024-06-03"}).Code)

	rec = s.do(http.MethodPost, "/api/meal-plans/"+plan.ID+"/cancel", "u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &plan)
	s.Equal("cancelled", string(plan.Status))

	s.stock("u1", "g1", "Rice", 2, "cup")
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/recipes/r1/cook", "u1", nil).Code)

	rec = s.do(http.MethodGet, "/api/meal-plans", "u1", nil)
	var plans []mealPlanResponse
	s.decode(rec, &plans)
	s.Require().Len(plans, 2)
	var completed string
	for _, p := range plans {
		if p.Status == "completed" {
			completed = p.ID
		}
	}
	s.Require().NotEmpty(completed)
	rec = s.do(http.MethodPost, "/api/meal-plans/"+completed+"/cancel", "u1", nil)
	s.Equal(http.StatusConflict, rec.Code)
}
