// Package server exposes the resolution engine over HTTP: the three meal
// operations under /v1/meals, plus health and metrics endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platewise/platewise/internal/health"
	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/internal/observe"
	"github.com/platewise/platewise/internal/resolve"
	"github.com/platewise/platewise/pkg/nutrition"
)

// maxBodyBytes caps request bodies; transcripts are short utterances.
const maxBodyBytes = 1 << 20

// Server wires the engine's operations to HTTP routes.
type Server struct {
	engine  *resolve.Engine
	health  *health.Registry
	metrics *observe.Metrics
	log     *slog.Logger
}

// New returns a server over engine.
func New(engine *resolve.Engine, healthReg *health.Registry, metrics *observe.Metrics, log *slog.Logger) *Server {
	return &Server{
		engine:  engine,
		health:  healthReg,
		metrics: metrics,
		log:     log,
	}
}

// MealContext carries per-meal request context from the caller.
type MealContext struct {
	MealType     string   `json:"meal_type"`
	DietPrefs    []string `json:"diet_prefs,omitempty"`
	DefaultUnits string   `json:"default_units,omitempty"`
}

// AnalyzeRequest is the inbound analyze shape.
type AnalyzeRequest struct {
	Transcript string      `json:"transcript"`
	Locale     string      `json:"locale,omitempty"`
	Timezone   string      `json:"timezone,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitempty"`
	UserID     string      `json:"user_id"`
	Context    MealContext `json:"context"`
}

// RepriceRequest is the inbound reprice shape.
type RepriceRequest struct {
	Locale    string               `json:"locale,omitempty"`
	Timezone  string               `json:"timezone,omitempty"`
	Timestamp time.Time            `json:"timestamp,omitempty"`
	UserID    string               `json:"user_id"`
	Items     []nutrition.MealItem `json:"items"`
}

// LogRequest is the inbound log shape.
type LogRequest struct {
	TranscriptOriginal string               `json:"transcript_original,omitempty"`
	Items              []nutrition.MealItem `json:"items"`
	Totals             nutrition.MacroSet   `json:"totals"`
	Timestamp          time.Time            `json:"timestamp"`
	MealType           string               `json:"meal_type"`
	UserID             string               `json:"user_id"`
}

// LogResponse reports persistence success.
type LogResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the full route tree with the observability middleware
// applied to the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/meals/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /v1/meals/reprice", s.handleReprice)
	mux.HandleFunc("POST /v1/meals/log", s.handleLog)

	root := http.NewServeMux()
	root.Handle("/v1/", observe.Middleware(s.metrics, s.log, mux))
	root.Handle("GET /healthz", s.health.LivenessHandler())
	root.Handle("GET /readyz", s.health.ReadinessHandler())
	root.Handle("GET /metrics", promhttp.Handler())
	return root
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	analysis, err := s.engine.Analyze(r.Context(), req.Transcript)
	if err != nil {
		s.log.Error("analyze failed", "user", req.UserID, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analyze failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleReprice(w http.ResponseWriter, r *http.Request) {
	var req RepriceRequest
	if !s.decode(w, r, &req) {
		return
	}

	analysis, err := s.engine.Reprice(r.Context(), req.Items)
	if err != nil {
		s.log.Error("reprice failed", "user", req.UserID, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reprice failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

// handleLog persists a finalized meal. Persistence failure is reported as
// success=false rather than an HTTP error; retry policy belongs to the
// caller.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry := logstore.Entry{
		UserID:     req.UserID,
		LoggedAt:   req.Timestamp,
		MealType:   req.MealType,
		Transcript: req.TranscriptOriginal,
		Items:      req.Items,
		Totals:     req.Totals,
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}

	if err := s.engine.Log(r.Context(), entry); err != nil {
		s.log.Error("log meal failed", "user", req.UserID, "error", err)
		s.writeJSON(w, http.StatusOK, LogResponse{Success: false})
		return
	}
	s.writeJSON(w, http.StatusOK, LogResponse{Success: true})
}

// decode reads one JSON request body, rejecting unknown fields and
// oversized bodies. Returns false after writing the error response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("write response failed", "error", err)
	}
}
