package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrychef/pantry/internal/domain/recipe"
)

const fenced = "```json\n[{\"title\":\"Tomato soup\",\"description\":\"Warm\",\"prepTime\":10,\"cookTime\":20,\"servings\":2," +
	"\"ingredients\":[{\"name\":\"Tomatoes\",\"quantity\":2,\"unit\":\"kg\"}],\"instructions\":[\"Chop\",\"Simmer\"]," +
	"\"matchedIngredients\":[\"tomatoes\"]}]\n```"

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	}
}

func TestClient_GenerateStripsFences(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(completion(fenced))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-test"}, nil)
	out, err := c.Generate(context.Background(), []string{"Tomatoes (5 kg)"}, "dinner")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Tomato soup", out[0].Title)
	assert.Equal(t, 2.0, out[0].Ingredients[0].Quantity)
	assert.Equal(t, []string{"tomatoes"}, out[0].MatchedIngredients)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultTemperature, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "Tomatoes (5 kg)")
	assert.Contains(t, got.Messages[0].Content, "Meal type: dinner")
}

func TestClient_UnparseableContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("Sorry, I cannot help with that."))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Generate(context.Background(), []string{"x (1 g)"}, recipe.MealTypeAny)
	assert.ErrorIs(t, err, recipe.ErrUnparseable)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Generate(context.Background(), []string{"x (1 g)"}, "")
	assert.ErrorIs(t, err, recipe.ErrGeneration)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestBuildPrompt_AnyMealTypeHasNoConstraint(t *testing.T) {
	p := buildPrompt([]string{"Rice (1 kg)", "Eggs (2 pieces)"}, recipe.MealTypeAny)
	assert.Contains(t, p, "Available ingredients: Rice (1 kg), Eggs (2 pieces)")
	assert.NotContains(t, p, "Meal type:")
}
