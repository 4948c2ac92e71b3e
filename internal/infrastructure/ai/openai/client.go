// Package openai generates recipe candidates through an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/observability"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.8
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client implements recipe.Generator. It never retries and never falls back
// to canned recipes: failures go back to the caller.
type Client struct {
	cfg  Config
	http *http.Client
	log  observability.Logger
}

func NewClient(cfg Config, logger observability.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.With(observability.F("component", "openai_client")),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, ingredients []string, mealType string) ([]recipe.Candidate, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []message{{Role: "user", Content: buildPrompt(ingredients, mealType)}},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", recipe.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", recipe.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recipe.ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", recipe.ErrGeneration, err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: status %d: %s", recipe.ErrGeneration, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %w", recipe.ErrGeneration, decodeErr)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", recipe.ErrGeneration)
	}

	text := out.Choices[0].Message.Content
	candidates, err := ParseCandidates(text)
	if err != nil {
		c.log.Warn("recipe_parse_failed",
			observability.F("error", err),
			observability.F("response_bytes", len(text)),
		)
		return nil, err
	}
	return candidates, nil
}

// ParseCandidates decodes the generator's JSON array after removing any
// Markdown code fences around it.
func ParseCandidates(text string) ([]recipe.Candidate, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var candidates []recipe.Candidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, fmt.Errorf("%w: %w", recipe.ErrUnparseable, err)
	}
	return candidates, nil
}

func buildPrompt(ingredients []string, mealType string) string {
	var b strings.Builder
	b.WriteString("You are a professional chef and recipe creator. ")
	if mealType != "" && mealType != recipe.MealTypeAny {
		fmt.Fprintf(&b, "Generate recipes specifically suitable for %s. ", mealType)
	}
	b.WriteString("Based on the following available ingredients, generate 3 creative and delicious recipes that can be made using these ingredients. You can suggest additional common pantry staples if needed.\n\n")
	fmt.Fprintf(&b, "Available ingredients: %s\n", strings.Join(ingredients, ", "))
	if mealType != "" && mealType != recipe.MealTypeAny {
		fmt.Fprintf(&b, "Meal type: %s\n", mealType)
	}
	b.WriteString(`
For each recipe, provide a title, a one or two sentence description, prep time and cook time in minutes, servings, the full ingredient list with quantities and units, and 5-8 instruction steps.

Format your response as a JSON array:
[
  {
    "title": "Recipe Name",
    "description": "Brief description",
    "prepTime": 15,
    "cookTime": 30,
    "servings": 4,
    "ingredients": [{"name": "ingredient name", "quantity": 2, "unit": "cups"}],
    "instructions": ["Step 1", "Step 2"],
    "matchedIngredients": ["ingredient1", "ingredient2"]
  }
]

matchedIngredients holds the lowercase names of the available ingredients the recipe uses.

Return ONLY the JSON array, no additional text.`)
	return b.String()
}
