package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/deliverus-backend/internal/ordering"
)

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// WriteServiceError maps an error returned by the service layer to a response.
// Validation messages are passed through; everything unexpected is a 500.
func WriteServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var ve *ordering.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusUnprocessableEntity, ve.Message, logger)
	case errors.Is(err, ordering.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found", logger)
	case errors.Is(err, ordering.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden", logger)
	case errors.Is(err, ordering.ErrConflict):
		WriteError(w, http.StatusConflict, "Order status does not allow this action", logger)
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", logger)
	}
}
