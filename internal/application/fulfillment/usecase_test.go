package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/infrastructure/id"
	"github.com/pantrychef/pantry/internal/infrastructure/lock"
	"github.com/pantrychef/pantry/internal/infrastructure/memory"
	"github.com/pantrychef/pantry/internal/observability"
)

// faultyStore counts writes and fails the first call of the configured stage.
type faultyStore struct {
	domfulfillment.Store
	failAt domfulfillment.Stage
	writes *int
}

var errInjected = errors.New("injected store failure")

func (s faultyStore) RecipeIngredients(ctx context.Context, userID, recipeID string) ([]recipe.Ingredient, error) {
	if s.failAt == domfulfillment.StageFetchIngredients {
		return nil, errInjected
	}
	return s.Store.RecipeIngredients(ctx, userID, recipeID)
}

func (s faultyStore) StockByUser(ctx context.Context, userID string) ([]*grocery.Item, error) {
	if s.failAt == domfulfillment.StageFetchStock {
		return nil, errInjected
	}
	return s.Store.StockByUser(ctx, userID)
}

func (s faultyStore) UpdateQuantity(ctx context.Context, id string, expected, qty float64, at time.Time) error {
	if s.failAt == domfulfillment.StageUpdateStock {
		return errInjected
	}
	*s.writes++
	return s.Store.UpdateQuantity(ctx, id, expected, qty, at)
}

func (s faultyStore) DeleteItem(ctx context.Context, id string, expected float64) error {
	if s.failAt == domfulfillment.StageDeleteStock {
		return errInjected
	}
	*s.writes++
	return s.Store.DeleteItem(ctx, id, expected)
}

func (s faultyStore) InsertMealPlan(ctx context.Context, plan *mealplan.MealPlan) error {
	if s.failAt == domfulfillment.StageRecordMealPlan {
		return errInjected
	}
	*s.writes++
	return s.Store.InsertMealPlan(ctx, plan)
}

type faultyUoW struct {
	inner  domfulfillment.UnitOfWork
	failAt domfulfillment.Stage
	writes int
}

func (u *faultyUoW) Do(ctx context.Context, fn func(context.Context, domfulfillment.Store) error) error {
	err := u.inner.Do(ctx, func(ctx context.Context, s domfulfillment.Store) error {
		return fn(ctx, faultyStore{Store: s, failAt: u.failAt, writes: &u.writes})
	})
	if err == nil && u.failAt == domfulfillment.StageCommit {
		return errInjected
	}
	return err
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

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

type CookRecipeSuite struct {
	suite.Suite
	db  *memory.DB
	uow *faultyUoW
	pub *recordingPublisher
	uc  *CookRecipeUseCase
	now time.Time
}

func TestCookRecipeSuite(t *testing.T) {
	suite.Run(t, new(CookRecipeSuite))
}

func (s *CookRecipeSuite) SetupTest() {
	s.db = memory.NewDB()
	s.uow = &faultyUoW{inner: s.db.UnitOfWork()}
	s.pub = &recordingPublisher{}
	s.now = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	s.uc = NewCookRecipeUseCase(s.uow, lock.NewKeyedMutex(), id.NewUUIDGenerator(), s.pub, nil).
		WithClock(func() time.Time { return s.now })
}

func (s *CookRecipeSuite) stock(id, name string, qty float64, unit string) {
	it, err := grocery.NewItem(id, "u1", name, qty, unit)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Groceries().Insert(context.Background(), it))
}

func (s *CookRecipeSuite) recipe(id string, ings ...recipe.Ingredient) {
	rec, err := recipe.New(id, "u1", "Dish "+id, 2)
	s.Require().NoError(err)
	for i, ing := range ings {
		s.Require().NoError(rec.AddIngredient(id+"-ing-"+string(rune('a'+i)), ing.Name, ing.Quantity, ing.Unit))
	}
	s.Require().NoError(s.db.Recipes().Create(context.Background(), rec))
}

func (s *CookRecipeSuite) cook(recipeID string) (*CookRecipeResult, error) {
	return s.uc.Execute(context.Background(), CookRecipeInput{UserID: "u1", RecipeID: recipeID})
}

func (s *CookRecipeSuite) stockOf(id string) (*grocery.Item, bool) {
	it, err := s.db.Groceries().Get(context.Background(), id)
	if errors.Is(err, grocery.ErrNotFound) {
		return nil, false
	}
	s.Require().NoError(err)
	return it, true
}

func (s *CookRecipeSuite) plans() []*mealplan.MealPlan {
	plans, err := s.db.MealPlans().ListByUser(context.Background(), "u1")
	s.Require().NoError(err)
	return plans
}

func ing(name string, qty float64, unit string) recipe.Ingredient {
	return recipe.Ingredient{Name: name, Quantity: qty, Unit: unit}
}

func (s *CookRecipeSuite) TestPartialDeduction() {
	s.stock("tom", "Tomatoes", 5, "kg")
	s.recipe("r1", ing("Tomatoes", 2, "kg"))

	res, err := s.cook("r1")
	s.Require().NoError(err)
	s.Equal(1, res.Updated)
	s.Equal(0, res.Deleted)

	it, ok := s.stockOf("tom")
	s.Require().True(ok)
	s.Equal(3.0, it.Quantity)
	s.Equal(s.now, it.UpdatedAt)

	plans := s.plans()
	s.Require().Len(plans, 1)
	s.Equal(mealplan.StatusCompleted, plans[0].Status)
	s.Equal("r1", plans[0].RecipeID)
	s.Equal(res.MealPlanID, plans[0].ID)
	s.Equal(s.now, plans[0].PlannedDate)
	s.Equal([]string{"meal.completed"}, s.pub.names())
}

func (s *CookRecipeSuite) TestExactQuantityDeletesRow() {
	s.stock("egg", "Eggs", 2, "pieces")
	s.recipe("r1", ing("eggs", 2, "pieces"))

	res, err := s.cook("r1")
	s.Require().NoError(err)
	s.Equal(1, res.Deleted)

	_, ok := s.stockOf("egg")
	s.False(ok, "a depleted row is removed, never stored with quantity 0")
	s.Len(s.plans(), 1)
	s.ElementsMatch([]string{"meal.completed", "grocery.depleted"}, s.pub.names())
}

func (s *CookRecipeSuite) TestShortfallLeavesStockUntouched() {
	s.stock("milk", "Milk", 1, "liters")
	s.recipe("r1", ing("Milk", 2, "liters"))

	_, err := s.cook("r1")
	s.EqualError(err, "Insufficient Milk. Required: 2 liters, Available: 1 liters")

	it, ok := s.stockOf("milk")
	s.Require().True(ok)
	s.Equal(1.0, it.Quantity)
	s.Empty(s.plans())
	s.Zero(s.uow.writes)
	s.Empty(s.pub.names())
}

func (s *CookRecipeSuite) TestMissingIngredient() {
	s.recipe("r1", ing("Basil", 1, "pieces"))

	_, err := s.cook("r1")
	s.EqualError(err, "Insufficient Basil. Required: 1 pieces, Available: 0 ")
	s.Zero(s.uow.writes)
	s.Empty(s.plans())
}

func (s *CookRecipeSuite) TestFailFastOrderingMakesNoWrites() {
	s.stock("a", "A", 10, "g")
	s.stock("b", "B", 1, "g")
	s.stock("c", "C", 10, "g")
	s.recipe("r1", ing("A", 1, "g"), ing("B", 2, "g"), ing("C", 1, "g"))

	_, err := s.cook("r1")
	var short *domfulfillment.InsufficientStockError
	s.Require().ErrorAs(err, &short)
	s.Equal("B", short.IngredientName)
	s.Zero(s.uow.writes)

	for _, id := range []string{"a", "c"} {
		it, ok := s.stockOf(id)
		s.Require().True(ok)
		s.Equal(10.0, it.Quantity)
	}
}

func (s *CookRecipeSuite) TestValidation() {
	_, err := s.uc.Execute(context.Background(), CookRecipeInput{UserID: "u1"})
	s.ErrorIs(err, domfulfillment.ErrValidation)

	_, err = s.uc.Execute(context.Background(), CookRecipeInput{RecipeID: "r1"})
	s.ErrorIs(err, domfulfillment.ErrUnauthorized)
}

func (s *CookRecipeSuite) TestUnknownOrForeignRecipe() {
	rec, err := recipe.New("theirs", "u2", "Not yours", 1)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Recipes().Create(context.Background(), rec))

	_, err = s.cook("theirs")
	s.ErrorIs(err, recipe.ErrNotFound)
	_, err = s.cook("missing")
	s.ErrorIs(err, recipe.ErrNotFound)
}

func (s *CookRecipeSuite) TestStoreFailuresRollBack() {
	for _, stage := range []domfulfillment.Stage{
		domfulfillment.StageFetchIngredients,
		domfulfillment.StageFetchStock,
		domfulfillment.StageUpdateStock,
		domfulfillment.StageDeleteStock,
		domfulfillment.StageRecordMealPlan,
		domfulfillment.StageCommit,
	} {
		s.Run(string(stage), func() {
			s.SetupTest()
			s.uow.failAt = stage
			s.stock("tom", "Tomatoes", 5, "kg")
			s.stock("egg", "Eggs", 2, "pieces")
			s.recipe("r1", ing("Tomatoes", 2, "kg"), ing("Eggs", 2, "pieces"))

			_, err := s.cook("r1")
			var se *domfulfillment.StoreError
			s.Require().ErrorAs(err, &se)
			s.Equal(stage, se.Stage)
			s.ErrorIs(err, errInjected)

			if stage == domfulfillment.StageCommit {
				return
			}
			tom, ok := s.stockOf("tom")
			s.Require().True(ok)
			s.Equal(5.0, tom.Quantity)
			_, ok = s.stockOf("egg")
			s.True(ok)
			s.Empty(s.plans())
		})
	}
}

func (s *CookRecipeSuite) TestRepeatedIngredientDrawsCumulatively() {
	s.stock("sug", "Sugar", 3, "tbsp")
	s.recipe("r1", ing("Sugar", 1, "tbsp"), ing("sugar", 1, "tbsp"))

	_, err := s.cook("r1")
	s.Require().NoError(err)
	it, ok := s.stockOf("sug")
	s.Require().True(ok)
	s.Equal(1.0, it.Quantity)
}

// Without the per-user lock both cooks could read "1 pieces" before either
// writes and both would succeed, deducting twice. The lock plus the
// compare-and-swap write make exactly one of them succeed.
func TestConcurrentCooksOfLastUnit(t *testing.T) {
	db := memory.NewDB()
	it, err := grocery.NewItem("egg", "u1", "Eggs", 1, "pieces")
	require.NoError(t, err)
	require.NoError(t, db.Groceries().Insert(context.Background(), it))
	rec, err := recipe.New("r1", "u1", "Fried egg", 1)
	require.NoError(t, err)
	require.NoError(t, rec.AddIngredient("i1", "Eggs", 1, "pieces"))
	require.NoError(t, db.Recipes().Create(context.Background(), rec))

	uc := NewCookRecipeUseCase(db.UnitOfWork(), lock.NewKeyedMutex(), id.NewUUIDGenerator(), nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), CookRecipeInput{UserID: "u1", RecipeID: "r1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, short int
	for err := range errs {
		var se *domfulfillment.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &se):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, short)

	plans, err := db.MealPlans().ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis unavailable")
}

func TestCook_LockFailure(t *testing.T) {
	uc := NewCookRecipeUseCase(memory.NewDB().UnitOfWork(), failingLocker{}, id.NewUUIDGenerator(), nil, nil)
	_, err := uc.Execute(context.Background(), CookRecipeInput{UserID: "u1", RecipeID: "r1"})

	var se *domfulfillment.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domfulfillment.StageLock, se.Stage)
}

type panickingUoW struct{}

func (panickingUoW) Do(context.Context, func(context.Context, domfulfillment.Store) error) error {
	panic("driver exploded")
}

// outcomeMetrics remembers the outcome label of every usecase_requests_total increment.
type outcomeMetrics struct {
	observability.Metrics
	mu       sync.Mutex
	outcomes []string
}

type outcomeCounter struct {
	observability.Counter
	m *outcomeMetrics
}

func (c outcomeCounter) Add(_ float64, labels ...observability.Label) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for _, l := range labels {
		if l.Key == "outcome" {
			c.m.outcomes = append(c.m.outcomes, l.Value)
		}
	}
}

func (m *outcomeMetrics) Counter(k observability.MetricKey) observability.Counter {
	if k == observability.MUsecaseRequests {
		return outcomeCounter{Counter: observability.NopCounter(), m: m}
	}
	return observability.NopCounter()
}

type telWithMetrics struct {
	observability.Observability
	metrics observability.Metrics
}

func (t telWithMetrics) Metrics() observability.Metrics { return t.metrics }

func TestCook_PanicInUnitOfWorkIsRecordedAsError(t *testing.T) {
	metrics := &outcomeMetrics{Metrics: observability.NopMetrics()}
	tel := telWithMetrics{Observability: observability.Nop(), metrics: metrics}
	locker := lock.NewKeyedMutex()
	uc := NewCookRecipeUseCase(panickingUoW{}, locker, id.NewUUIDGenerator(), nil, tel)

	assert.PanicsWithValue(t, "driver exploded", func() {
		_, _ = uc.Execute(context.Background(), CookRecipeInput{UserID: "u1", RecipeID: "r1"})
	})
	assert.Equal(t, []string{"error"}, metrics.outcomes)

	release, err := locker.Lock(context.Background(), lockKey("u1"))
	require.NoError(t, err)
	release()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err     error
		outcome string
		status  string
	}{
		{&domfulfillment.InsufficientStockError{IngredientName: "x"}, "rejected", "INSUFFICIENT_STOCK"},
		{recipe.ErrNotFound, "rejected", "RECIPE_NOT_FOUND"},
		{domfulfillment.WrapStore(domfulfillment.StageUpdateStock, domfulfillment.ErrConcurrentModification), "error", "CONCURRENT_MODIFICATION"},
		{domfulfillment.WrapStore(domfulfillment.StageFetchStock, errInjected), "error", "FETCH_STOCK_FAILED"},
		{context.Canceled, "error", "CONTEXT_CANCELED"},
		{errInjected, "error", "UNEXPECTED"},
	}
	for _, tt := range tests {
		outcome, status := classify(tt.err)
		assert.Equal(t, tt.outcome, outcome, tt.err.Error())
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
