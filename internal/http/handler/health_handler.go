package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/eta-consult/quote-api/internal/jobs"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// JobLister reports the scheduled maintenance jobs
type JobLister interface {
	Status() []jobs.JobStatus
}

const healthCheckTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	database   Pinger // nil when the submission trail is disabled
	accounting Pinger
	jobs       JobLister // nil when the scheduler is disabled
	logger     *zap.Logger
}

// NewHealthHandler creates a new health handler. database may be nil.
func NewHealthHandler(database, accounting Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		database:   database,
		accounting: accounting,
		logger:     logger,
	}
}

// WithJobs exposes the scheduler on /health/jobs
func (h *HealthHandler) WithJobs(jobs JobLister) *HealthHandler {
	h.jobs = jobs
	return h
}

// Live is the basic liveness probe
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database checks the submission store
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "disabled",
			"service": "database",
		})
		return
	}

	status, body := h.check(r.Context(), "database", h.database)
	body["service"] = "database"
	respondJSON(w, status, body)
}

// Ready checks every dependency the quote workflow needs
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if h.database != nil {
		status, body := h.check(r.Context(), "database", h.database)
		checks["database"] = body
		allHealthy = allHealthy && status == http.StatusOK
	}
	status, body := h.check(r.Context(), "accounting", h.accounting)
	checks["accounting"] = body
	allHealthy = allHealthy && status == http.StatusOK

	overall := http.StatusOK
	state := "ready"
	if !allHealthy {
		overall = http.StatusServiceUnavailable
		state = "not_ready"
	}
	respondJSON(w, overall, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}

// Jobs lists the scheduled jobs with their next and last run
func (h *HealthHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status": "disabled",
			"jobs":   []jobs.JobStatus{},
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "running",
		"jobs":   h.jobs.Status(),
	})
}

func (h *HealthHandler) check(ctx context.Context, name string, p Pinger) (int, map[string]interface{}) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
		return http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	}
	return http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"latency_ms": time.Since(start).Milliseconds(),
	}
}
