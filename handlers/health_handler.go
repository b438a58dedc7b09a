package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services/events"
	"github.com/grocerlink/commerce-router/services/providers"
	"github.com/grocerlink/commerce-router/utils"
)

// HealthResponse is the plain payload served by the probe endpoints.
// Probes are infrastructure surface and skip the API envelope.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	db       *sql.DB
	registry *providers.Registry
	events   *events.Service
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, registry *providers.Registry, eventService *events.Service, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		registry: registry,
		events:   eventService,
		logger:   logger,
	}
}

// HandleHealth handles GET /health
// Returns 200 whenever the process is serving traffic, regardless of
// downstream state.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteJSON(w, http.StatusOK, response)
}

// HandleLiveness handles GET /health/live
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteJSON(w, http.StatusOK, response)
}

// HandleReadiness handles GET /health/ready
// The router is ready when the metrics store answers, at least one provider
// is registered and the event pipeline is running.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database readiness check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		ready = false
	} else {
		checks["database"] = "healthy"
	}

	if count := h.registry.Count(); count > 0 {
		checks["providers"] = fmt.Sprintf("configured (%d)", count)
	} else {
		checks["providers"] = "none_configured"
		ready = false
	}

	if h.events.GetStats().Started {
		checks["events"] = "running"
	} else {
		checks["events"] = "stopped"
		ready = false
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity. A nil handle skips the
// check rather than failing readiness.
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("probe query: %w", err)
	}

	return nil
}
