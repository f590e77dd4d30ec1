// Package health serves liveness and readiness endpoints. Liveness always
// succeeds while the process runs; readiness runs named checks (providers
// configured, database reachable) and reports each by name.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports whether one dependency is ready.
type Checker func(ctx context.Context) error

// checkTimeout bounds each individual readiness check.
const checkTimeout = 2 * time.Second

// Registry holds named readiness checks. Checks are registered during
// startup; running them is safe concurrently afterwards.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Checker
	log    *slog.Logger
}

// NewRegistry returns an empty check registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		checks: make(map[string]Checker),
		log:    log,
	}
}

// Register adds a named readiness check.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// status is the serialized readiness report.
type status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers /healthz. It reports ok unconditionally; a
// process that can serve the request is alive.
func (r *Registry) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status{Status: "ok"})
	})
}

// ReadinessHandler answers /readyz by running every registered check. A
// single failing check yields 503 with the per-check results.
func (r *Registry) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		names := make([]string, 0, len(r.checks))
		for name := range r.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		results := make(map[string]string, len(names))
		healthy := true
		for _, name := range names {
			check := r.checks[name]
			ctx, cancel := context.WithTimeout(req.Context(), checkTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				healthy = false
				results[name] = err.Error()
				r.log.Warn("readiness check failed", "check", name, "error", err)
				continue
			}
			results[name] = "ok"
		}
		r.mu.RUnlock()

		if !healthy {
			writeJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable", Checks: results})
			return
		}
		writeJSON(w, http.StatusOK, status{Status: "ok", Checks: results})
	})
}

func writeJSON(w http.ResponseWriter, code int, body status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
