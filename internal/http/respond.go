package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Ezzerof/expense-tracker/internal/auth"
	"github.com/Ezzerof/expense-tracker/internal/core"
	"github.com/Ezzerof/expense-tracker/internal/services"
	"github.com/Ezzerof/expense-tracker/internal/store"
)

// errorResponse is the JSON error envelope. Validation failures carry every
// violated rule so the client can render them all in one round trip.
type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	resp := errorResponse{Error: err.Error()}
	if status == http.StatusUnprocessableEntity {
		// errors.Join renders one violation per line.
		if lines := strings.Split(err.Error(), "\n"); len(lines) > 1 {
			resp.Errors = lines
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateName), errors.Is(err, store.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrScopeRequired), errors.Is(err, services.ErrOccurrenceRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidCategory,
		core.ErrInvalidType,
		core.ErrInvalidFrequency,
		core.ErrEndBeforeStart,
		services.ErrNegativeSavings,
		auth.ErrFirstNameRequired,
		auth.ErrInvalidUsername,
		auth.ErrWeakPassword,
		auth.ErrInvalidEmail,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
