package fatsecret_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
	"github.com/platewise/platewise/pkg/provider/food/fatsecret"
)

const tokenJSON = `{"access_token":"tok-123","expires_in":86400,"token_type":"Bearer"}`

// newTestClient wires a client against a scripted API and token server.
func newTestClient(t *testing.T, apiHandler http.HandlerFunc) (*fatsecret.Client, *int64) {
	t.Helper()

	var tokenCalls int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("token request basic auth = %q/%q, want id/secret", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		if got := r.PostForm.Get("scope"); got != "basic" {
			t.Errorf("scope = %q, want basic", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokenJSON))
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want Bearer tok-123", got)
		}
		apiHandler(w, r)
	}))
	t.Cleanup(apiSrv.Close)

	client, err := fatsecret.New(fatsecret.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      apiSrv.URL,
		TokenURL:     tokenSrv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, &tokenCalls
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := fatsecret.New(fatsecret.Config{})
	if !errors.Is(err, food.ErrNotConfigured) {
		t.Fatalf("New: got %v, want ErrNotConfigured", err)
	}
}

func TestClient_SearchParsesResults(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foods/search/v3" {
			t.Errorf("path = %q, want /foods/search/v3", r.URL.Path)
		}
		if got := r.URL.Query().Get("search_expression"); got != "chicken breast" {
			t.Errorf("search_expression = %q, want chicken breast", got)
		}
		_, _ = w.Write([]byte(`{"foods_search":{"results":{"food":[
			{"food_id":"1","food_name":"Chicken Breast","food_type":"Generic",
			 "food_description":"Per 100g - Calories: 165kcal | Fat: 3.57g"},
			{"food_id":"2","food_name":"Chicken Sandwich","brand_name":"Chick-fil-A","food_type":"Brand",
			 "food_description":"Per 1 sandwich - Calories: 440kcal | Fat: 19g"}
		]}}}`))
	})

	got, err := client.Search(context.Background(), "chicken breast", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search: got %d candidates, want 2", len(got))
	}
	if got[0].ID != "1" || got[0].Calories != 165 || got[0].FoodType != "generic" {
		t.Errorf("candidate[0] = %+v, want id=1 cal=165 type=generic", got[0])
	}
	if got[1].Brand != "Chick-fil-A" || got[1].Calories != 440 {
		t.Errorf("candidate[1] = %+v, want brand + 440 kcal", got[1])
	}
}

func TestClient_SearchSingleResultObject(t *testing.T) {
	t.Parallel()

	// The API returns a bare object instead of an array for single results.
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"foods_search":{"results":{"food":
			{"food_id":"7","food_name":"Oatmeal","food_type":"Generic",
			 "food_description":"Per 100g - Calories: 68kcal"}}}}`))
	})

	got, err := client.Search(context.Background(), "oatmeal", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "7" {
		t.Fatalf("Search: got %+v, want the single oatmeal candidate", got)
	}
}

func TestClient_FetchDetailNormalisesServings(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/food/v5" {
			t.Errorf("path = %q, want /food/v5", r.URL.Path)
		}
		if got := r.URL.Query().Get("food_id"); got != "42" {
			t.Errorf("food_id = %q, want 42", got)
		}
		_, _ = w.Write([]byte(`{"food":{"food_id":"42","food_name":"Chicken Sandwich",
			"brand_name":"Chick-fil-A","food_type":"Brand","servings":{"serving":[
			{"serving_id":"s1","serving_description":"1 sandwich","metric_serving_amount":"183.000",
			 "metric_serving_unit":"g","number_of_units":"1.000",
			 "calories":"440","protein":"28","carbohydrate":"40","fat":"19"},
			{"serving_id":"s2","serving_description":"100 g","metric_serving_amount":"100.000",
			 "metric_serving_unit":"g","number_of_units":"100.000",
			 "calories":"240","protein":"15.3","carbohydrate":"21.9","fat":"10.4"}
		]}}}`))
	})

	got, err := client.FetchDetail(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if got.Source != nutrition.SourceFatSecret {
		t.Errorf("Source = %q, want fatsecret", got.Source)
	}
	if !got.IsBranded {
		t.Error("IsBranded = false, want true for a brand food")
	}
	if len(got.ServingOptions) != 2 {
		t.Fatalf("ServingOptions: got %d, want 2", len(got.ServingOptions))
	}
	s := got.ServingOptions[0]
	if s.Description != "1 sandwich" || s.MetricGrams != 183 || s.Macros.Calories != 440 {
		t.Errorf("serving[0] = %+v, want 1 sandwich / 183 g / 440 kcal", s)
	}
}

func TestClient_FetchDetailBackfillsMissingServings(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"food":{"food_id":"9","food_name":"Mystery Food","servings":{}}}`))
	})

	got, err := client.FetchDetail(context.Background(), "9")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if len(got.ServingOptions) != 1 || got.ServingOptions[0].Description != "1 serving" {
		t.Fatalf("ServingOptions = %+v, want one backfilled 1-serving option", got.ServingOptions)
	}
}

func TestClient_TokenCachedAcrossRequests(t *testing.T) {
	t.Parallel()

	client, tokenCalls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"foods_search":{"results":{"food":[]}}}`))
	})

	for range 3 {
		if _, err := client.Search(context.Background(), "rice", 5); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if got := atomic.LoadInt64(tokenCalls); got != 1 {
		t.Fatalf("token endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestClient_SearchErrorStatus(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := client.Search(context.Background(), "rice", 5); err == nil {
		t.Fatal("Search: got nil error on 429 response")
	}
}
