// Package usda implements the fallback nutrition provider client against
// the FoodData Central API. Its serving data is weight-based only: every
// food resolves to a per-100-gram serving, plus the labelled package
// serving when one is published.
package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
)

const defaultBaseURL = "https://api.nal.usda.gov/fdc"

// FoodData Central nutrient numbers for the four tracked macros, reported
// per 100 g of food.
const (
	nutrientEnergy  = 1008
	nutrientProtein = 1003
	nutrientCarbs   = 1005
	nutrientFat     = 1004
)

// Config configures a [Client]. APIKey is required.
type Config struct {
	APIKey string

	// BaseURL overrides the production endpoint, used by tests.
	BaseURL string

	// HTTPClient defaults to a client with a 10 s timeout.
	HTTPClient *http.Client
}

// Client talks to the FoodData Central API. It holds no mutable state and
// is safe for concurrent use.
type Client struct {
	cfg Config
}

var _ food.Client = (*Client)(nil)

// New validates cfg and returns a ready client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("usda: missing API key: %w", food.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg}, nil
}

// Source identifies this client's provider.
func (c *Client) Source() nutrition.Source {
	return nutrition.SourceUSDA
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("usda: build request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("usda: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return food.ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("usda: %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("usda: decode %s response: %w", path, err)
	}
	return nil
}

// searchNutrient is a flattened nutrient value in search results.
type searchNutrient struct {
	NutrientID int     `json:"nutrientId"`
	Value      float64 `json:"value"`
}

// Search queries the foods/search endpoint and returns candidate
// summaries in provider relevance order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]food.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"query":    {query},
		"pageSize": {strconv.Itoa(limit)},
	}

	var payload struct {
		Foods []struct {
			FdcID         int64            `json:"fdcId"`
			Description   string           `json:"description"`
			BrandOwner    string           `json:"brandOwner"`
			DataType      string           `json:"dataType"`
			FoodNutrients []searchNutrient `json:"foodNutrients"`
		} `json:"foods"`
	}
	if err := c.get(ctx, "/v1/foods/search", params, &payload); err != nil {
		return nil, err
	}

	candidates := make([]food.Candidate, 0, len(payload.Foods))
	for _, f := range payload.Foods {
		var cal float64
		for _, n := range f.FoodNutrients {
			if n.NutrientID == nutrientEnergy {
				cal = n.Value
				break
			}
		}
		candidates = append(candidates, food.Candidate{
			ID:       strconv.FormatInt(f.FdcID, 10),
			Name:     f.Description,
			Brand:    f.BrandOwner,
			FoodType: foodType(f.DataType),
			Calories: cal,
			Source:   nutrition.SourceUSDA,
		})
	}
	return candidates, nil
}

// FetchDetail fetches one food's nutrient data and normalises it into
// weight-based serving options: always a "100 g" reference serving, plus
// the labelled package serving for branded foods that publish one.
func (c *Client) FetchDetail(ctx context.Context, foodID string) (*nutrition.ResolvedFood, error) {
	var payload struct {
		FdcID         int64   `json:"fdcId"`
		Description   string  `json:"description"`
		BrandOwner    string  `json:"brandOwner"`
		DataType      string  `json:"dataType"`
		ServingSize   float64 `json:"servingSize"`
		ServingUnit   string  `json:"servingSizeUnit"`
		FoodNutrients []struct {
			Nutrient struct {
				ID int `json:"id"`
			} `json:"nutrient"`
			Amount float64 `json:"amount"`
		} `json:"foodNutrients"`
	}
	if err := c.get(ctx, "/v1/food/"+url.PathEscape(foodID), url.Values{}, &payload); err != nil {
		return nil, err
	}
	if payload.FdcID == 0 {
		return nil, fmt.Errorf("usda: food %s: %w", foodID, food.ErrNoMatch)
	}

	// Macros are reported per 100 g.
	var per100 nutrition.MacroSet
	for _, n := range payload.FoodNutrients {
		switch n.Nutrient.ID {
		case nutrientEnergy:
			per100.Calories = n.Amount
		case nutrientProtein:
			per100.Protein = n.Amount
		case nutrientCarbs:
			per100.Carbs = n.Amount
		case nutrientFat:
			per100.Fats = n.Amount
		}
	}

	resolved := &nutrition.ResolvedFood{
		ID:        foodID,
		Source:    nutrition.SourceUSDA,
		Name:      payload.Description,
		Brand:     payload.BrandOwner,
		FoodType:  foodType(payload.DataType),
		IsBranded: payload.BrandOwner != "",
		ServingOptions: []nutrition.ServingOption{{
			Description:   "100 g",
			MetricGrams:   100,
			NumberOfUnits: 1,
			Macros:        per100,
		}},
	}

	if payload.ServingSize > 0 && strings.EqualFold(payload.ServingUnit, "g") {
		grams := payload.ServingSize
		resolved.ServingOptions = append(resolved.ServingOptions, nutrition.ServingOption{
			Description:   fmt.Sprintf("1 serving (%g g)", grams),
			MetricGrams:   grams,
			NumberOfUnits: 1,
			Macros:        per100.Scale(grams / 100),
		})
	}
	return resolved, nil
}

// foodType maps FoodData Central data types onto the candidate food-type
// vocabulary used by ranking.
func foodType(dataType string) string {
	if strings.EqualFold(dataType, "Branded") {
		return "brand"
	}
	return "generic"
}
