package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	logger *slog.Logger
	store  Pinger
}

// NewHealthHandler creates a new health handler. store may be nil when
// the service runs on the in-memory repositories.
func NewHealthHandler(logger *slog.Logger, store Pinger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		store:  store,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Store     string    `json:"store,omitempty"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	status := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response.Store = "up"
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("store ping failed", "error", err)
			response.Status = "degraded"
			response.Store = "down"
			status = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, status, response, h.logger)
}
