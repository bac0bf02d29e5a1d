package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
)

const msgInvalidBody = "Nieprawidłowe dane żądania."

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// respondResult writes a success message together with the affected resource.
func respondResult(w http.ResponseWriter, message, key string, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"message": message, key: data})
}

// respondAppError writes err as {"message": ...}. Causes are logged, never sent.
func respondAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "kind", appErr.Kind, "error", err)
	}
	respondError(w, appErr.Code, appErr.Message)
}

// decodeJSON reads the request body into v, writing 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.WarnContext(r.Context(), "Invalid request body", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}
