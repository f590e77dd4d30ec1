package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/platewise/platewise/internal/health"
	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/internal/resolve"
	"github.com/platewise/platewise/internal/server"
	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
	"github.com/platewise/platewise/pkg/provider/food/mock"
)

type failingStore struct{}

func (failingStore) Insert(context.Context, logstore.Entry) error {
	return errors.New("db down")
}

type okStore struct{ inserted int }

func (s *okStore) Insert(context.Context, logstore.Entry) error {
	s.inserted++
	return nil
}

func newTestServer(t *testing.T, store logstore.Store) http.Handler {
	t.Helper()

	client := &mock.Client{
		SourceTag: nutrition.SourceFatSecret,
		Candidates: map[string][]food.Candidate{
			"eggs": {{ID: "egg-1", Name: "Egg", Calories: 78, Source: nutrition.SourceFatSecret}},
		},
		Foods: map[string]*nutrition.ResolvedFood{
			"egg-1": {
				ID: "egg-1", Source: nutrition.SourceFatSecret, Name: "Egg",
				ServingOptions: []nutrition.ServingOption{{
					Description: "1 egg", MetricGrams: 50, NumberOfUnits: 1,
					Macros: nutrition.MacroSet{Calories: 78, Protein: 6, Fats: 5},
				}},
			},
		},
	}

	logger := slog.New(slog.DiscardHandler)
	var opts []resolve.Option
	if store != nil {
		opts = append(opts, resolve.WithStore(store))
	}
	engine := resolve.NewEngine([]food.Client{client}, opts...)
	return server.New(engine, health.NewRegistry(logger), nil, logger).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	rec := postJSON(t, handler, "/v1/meals/analyze",
		`{"transcript":"two eggs","user_id":"u1","context":{"meal_type":"breakfast"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var analysis nutrition.MealAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(analysis.Items) != 1 || analysis.Items[0].DisplayName != "Egg" {
		t.Fatalf("items = %+v, want the resolved Egg item", analysis.Items)
	}
	if analysis.Totals.Calories != 156 {
		t.Errorf("Totals.Calories = %g, want 156", analysis.Totals.Calories)
	}
	if analysis.TranscriptOriginal != "two eggs" {
		t.Errorf("TranscriptOriginal = %q, want the input", analysis.TranscriptOriginal)
	}
}

func TestHandleAnalyze_RejectsMalformedBody(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	rec := postJSON(t, handler, "/v1/meals/analyze", `{"transcript": 42}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyze_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	rec := postJSON(t, handler, "/v1/meals/analyze", `{"transcripd":"two eggs"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestHandleReprice(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	body := `{"user_id":"u1","items":[{"id":"i1","display_name":"Egg","qty":3,"unit":"count",
		"source":{"provider":"fatsecret","food_id":"egg-1","label":"1 egg"},
		"macros":{"calories":156,"protein":12,"carbs":0,"fats":10},"confidence":0.75}]}`
	rec := postJSON(t, handler, "/v1/meals/reprice", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var analysis nutrition.MealAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if analysis.Items[0].Macros.Calories != 234 {
		t.Errorf("Calories = %g, want 234 for the edited qty", analysis.Items[0].Macros.Calories)
	}
	if analysis.TranscriptOriginal != "" {
		t.Errorf("TranscriptOriginal = %q, want empty on reprice", analysis.TranscriptOriginal)
	}
}

func TestHandleLog_Success(t *testing.T) {
	t.Parallel()

	store := &okStore{}
	handler := newTestServer(t, store)

	body := `{"user_id":"u1","meal_type":"breakfast","timestamp":"2026-08-24T08:00:00Z",
		"items":[{"id":"i1","display_name":"Egg","qty":2,"unit":"count",
		"source":{"provider":"fatsecret","food_id":"egg-1","label":"1 egg"},
		"macros":{"calories":156,"protein":12,"carbs":0,"fats":10},"confidence":0.75}],
		"totals":{"calories":156,"protein":12,"carbs":0,"fats":10}}`
	rec := postJSON(t, handler, "/v1/meals/log", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp server.LogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("Success = false, want true")
	}
	if store.inserted != 1 {
		t.Errorf("store inserted %d entries, want 1", store.inserted)
	}
}

func TestHandleLog_PersistenceFailureReportsSuccessFalse(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, failingStore{})

	rec := postJSON(t, handler, "/v1/meals/log",
		`{"user_id":"u1","meal_type":"lunch","timestamp":"2026-08-24T12:00:00Z","items":[],"totals":{"calories":0,"protein":0,"carbs":0,"fats":0}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with success=false", rec.Code)
	}

	var resp server.LogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Fatal("Success = true, want false on persistence failure")
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/readyz status = %d, want 200 with no registered checks", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/meals/analyze", strings.NewReader(`{"transcript":"eggs"}`))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q, want the inbound value echoed", got)
	}
}
