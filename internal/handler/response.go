// Package handler exposes the session orchestrator over HTTP: one handler
// method per operation, JSON in and out, with the typed error taxonomy
// projected onto status codes and machine-readable error tokens.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/linkup/internal/apperror"
)

// errorResponse is the uniform failure body: a stable machine token, a
// human-readable message, and optionally the offending input field.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encoding response failed", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := errorResponse{
		Error:   apperror.KindString(err),
		Message: err.Error(),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}
	writeJSON(w, logger, statusFor(err), resp)
}

// statusFor maps an error kind onto an HTTP status. Provider and transport
// failures surface as 502 so clients can tell "you sent garbage" apart from
// "the upstream is down".
func statusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.ErrInvalidEmail, apperror.ErrInvalidPhone,
		apperror.ErrCallbackInvalid, apperror.ErrURLConstruction:
		return http.StatusBadRequest
	case apperror.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case apperror.ErrForbidden, apperror.ErrCSRFMismatch:
		return http.StatusForbidden
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrEmailExists, apperror.ErrPhoneExists:
		return http.StatusConflict
	case apperror.ErrNetwork, apperror.ErrExchangeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
