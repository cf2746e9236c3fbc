package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Lixing-Zhang/deliverus-backend/internal/middleware"
	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// idParam reads a positive int64 URL parameter, writing a 400 when it is malformed
func idParam(w http.ResponseWriter, r *http.Request, name string, logger *slog.Logger) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("invalid id supplied", name, raw)
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", logger)
		return 0, false
	}
	return id, true
}

// actor returns the authenticated actor, writing a 401 when there is none
func actor(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized", logger)
	}
	return a, ok
}
