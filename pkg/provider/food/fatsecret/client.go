// Package fatsecret implements the primary nutrition provider client. It
// authenticates with the OAuth2 client-credentials flow and exposes the
// platform's food search and detail endpoints, normalising their loosely
// typed JSON into the fixed domain shapes.
package fatsecret

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
)

const (
	defaultBaseURL  = "https://platform.fatsecret.com/rest"
	defaultTokenURL = "https://oauth.fatsecret.com/connect/token"

	// tokenExpiryMargin is subtracted from the token lifetime so a token is
	// refreshed before it can expire mid-request.
	tokenExpiryMargin = 30 * time.Second
)

// caloriesRe pulls the calorie figure out of a search result's description
// line ("Per 100g - Calories: 52kcal | Fat: 0.17g | ...").
var caloriesRe = regexp.MustCompile(`Calories:\s*(\d+(?:\.\d+)?)\s*kcal`)

// Config configures a [Client]. ClientID and ClientSecret are required.
type Config struct {
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL override the production endpoints, used by tests.
	BaseURL  string
	TokenURL string

	// HTTPClient defaults to a client with a 10 s timeout.
	HTTPClient *http.Client
}

// Client talks to the FatSecret platform API. It caches its OAuth access
// token in-process and is safe for concurrent use.
type Client struct {
	cfg Config

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ food.Client = (*Client)(nil)

// New validates cfg and returns a ready client. Missing credentials are a
// configuration error surfaced here, not at first request.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("fatsecret: missing client credentials: %w", food.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg}, nil
}

// Source identifies this client's provider.
func (c *Client) Source() nutrition.Source {
	return nutrition.SourceFatSecret
}

// token returns a valid access token, requesting a new one via the
// client-credentials grant when the cached token is absent or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"basic"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("fatsecret: build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fatsecret: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fatsecret: token request failed: status %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("fatsecret: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("fatsecret: token response carried no access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.accessToken, nil
}

// get performs an authenticated GET against one API method and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("fatsecret: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fatsecret: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fatsecret: %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fatsecret: decode %s response: %w", path, err)
	}
	return nil
}

// searchFood is one result entry of the v3 search endpoint. All numeric
// fields arrive as JSON strings.
type searchFood struct {
	FoodID          string `json:"food_id"`
	FoodName        string `json:"food_name"`
	BrandName       string `json:"brand_name"`
	FoodType        string `json:"food_type"`
	FoodDescription string `json:"food_description"`
}

// Search queries the v3 food search endpoint and returns candidate
// summaries in provider order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]food.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"search_expression": {query},
		"max_results":       {strconv.Itoa(limit)},
	}

	var payload struct {
		FoodsSearch struct {
			Results struct {
				Food oneOrMany[searchFood] `json:"food"`
			} `json:"results"`
		} `json:"foods_search"`
	}
	if err := c.get(ctx, "/foods/search/v3", params, &payload); err != nil {
		return nil, err
	}

	foods := payload.FoodsSearch.Results.Food
	candidates := make([]food.Candidate, 0, len(foods))
	for _, f := range foods {
		var cal float64
		if m := caloriesRe.FindStringSubmatch(f.FoodDescription); m != nil {
			cal, _ = strconv.ParseFloat(m[1], 64)
		}
		candidates = append(candidates, food.Candidate{
			ID:       f.FoodID,
			Name:     f.FoodName,
			Brand:    f.BrandName,
			FoodType: strings.ToLower(f.FoodType),
			Calories: cal,
			Source:   nutrition.SourceFatSecret,
		})
	}
	return candidates, nil
}

// detailServing is one serving of the v5 food detail endpoint.
type detailServing struct {
	ServingID          string `json:"serving_id"`
	ServingDescription string `json:"serving_description"`
	MetricAmount       string `json:"metric_serving_amount"`
	MetricUnit         string `json:"metric_serving_unit"`
	NumberOfUnits      string `json:"number_of_units"`
	Calories           string `json:"calories"`
	Protein            string `json:"protein"`
	Carbohydrate       string `json:"carbohydrate"`
	Fat                string `json:"fat"`
}

// FetchDetail fetches one food's full serving data from the v5 detail
// endpoint and normalises it into the fixed [nutrition.ResolvedFood] shape.
func (c *Client) FetchDetail(ctx context.Context, foodID string) (*nutrition.ResolvedFood, error) {
	params := url.Values{"food_id": {foodID}}

	var payload struct {
		Food struct {
			FoodID    string `json:"food_id"`
			FoodName  string `json:"food_name"`
			BrandName string `json:"brand_name"`
			FoodType  string `json:"food_type"`
			Servings  struct {
				Serving oneOrMany[detailServing] `json:"serving"`
			} `json:"servings"`
		} `json:"food"`
	}
	if err := c.get(ctx, "/food/v5", params, &payload); err != nil {
		return nil, err
	}
	f := payload.Food
	if f.FoodID == "" {
		return nil, fmt.Errorf("fatsecret: food %s: %w", foodID, food.ErrNoMatch)
	}

	foodType := strings.ToLower(f.FoodType)
	resolved := &nutrition.ResolvedFood{
		ID:        f.FoodID,
		Source:    nutrition.SourceFatSecret,
		Name:      f.FoodName,
		Brand:     f.BrandName,
		FoodType:  foodType,
		IsBranded: f.BrandName != "" || foodType == "brand" || foodType == "restaurant",
	}

	var base nutrition.MacroSet
	for _, s := range f.Servings.Serving {
		opt := nutrition.ServingOption{
			ID:            s.ServingID,
			Description:   s.ServingDescription,
			NumberOfUnits: parseFloat(s.NumberOfUnits, 1),
			Macros: nutrition.MacroSet{
				Calories: parseFloat(s.Calories, 0),
				Protein:  parseFloat(s.Protein, 0),
				Carbs:    parseFloat(s.Carbohydrate, 0),
				Fats:     parseFloat(s.Fat, 0),
			},
		}
		if strings.EqualFold(s.MetricUnit, "g") {
			opt.MetricGrams = parseFloat(s.MetricAmount, 0)
		}
		resolved.ServingOptions = append(resolved.ServingOptions, opt)
		if base.IsZero() {
			base = opt.Macros
		}
	}
	resolved.BackfillServing(base)
	return resolved, nil
}

// oneOrMany decodes a JSON value that the API returns as either a single
// object or an array of objects, depending on result count.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*o = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, (*[]T)(o))
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*o = []T{single}
	return nil
}

// parseFloat parses a string-typed numeric field, substituting fallback
// for absent or malformed values.
func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
