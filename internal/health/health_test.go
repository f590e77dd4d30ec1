package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platewise/platewise/internal/health"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLivenessHandler_AlwaysOK(t *testing.T) {
	t.Parallel()

	reg := health.NewRegistry(discardLogger())
	reg.Register("broken", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	reg.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d, want 200 regardless of check state", rec.Code)
	}
}

func TestReadinessHandler_AllChecksPass(t *testing.T) {
	t.Parallel()

	reg := health.NewRegistry(discardLogger())
	reg.Register("providers", func(context.Context) error { return nil })
	reg.Register("database", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	reg.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Checks["providers"] != "ok" || body.Checks["database"] != "ok" {
		t.Errorf("body = %+v, want all checks ok", body)
	}
}

func TestReadinessHandler_FailingCheck(t *testing.T) {
	t.Parallel()

	reg := health.NewRegistry(discardLogger())
	reg.Register("providers", func(context.Context) error { return nil })
	reg.Register("database", func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	reg.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Checks["database"] != "connection refused" {
		t.Errorf("database check = %q, want the failure message", body.Checks["database"])
	}
	if body.Checks["providers"] != "ok" {
		t.Errorf("providers check = %q, want ok", body.Checks["providers"])
	}
}
