package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"funneltrack/internal/auth"
	"funneltrack/internal/storage"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeFailure translates the service failure taxonomy into status
// codes: malformed input and taken names are 400, credential and
// token rejections are 403, missing entities are 404.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrTokenMalformed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenBlacklisted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, storage.ErrFunnelNotFound),
		errors.Is(err, storage.ErrSpendingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}
