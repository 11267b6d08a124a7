package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pomoroom/internal/api/v1/dto"
	"pomoroom/internal/apperr"
	"pomoroom/internal/middleware"
	"pomoroom/internal/policy"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	codeUnauthorized  = "unauthorized"
	codeInvalid       = "invalid_request"
	codeNotFound      = "not_found"
	codeForbidden     = "forbidden"
	codeConflict      = "conflict"
	codeLimitExceeded = "limit_exceeded"
	codeInternal      = "internal_error"
)

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, body any) {
	middleware.WriteJSON(w, logger, status, body)
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, status int, code, msg string) {
	middleware.WriteError(w, logger, status, code, msg)
}

func writeDenial(w http.ResponseWriter, logger zerolog.Logger, d policy.Decision) {
	writeJSON(w, logger, http.StatusForbidden, dto.DenialResponse{
		Error:        "plan limit reached",
		Code:         codeLimitExceeded,
		ReasonCode:   d.ReasonCode,
		CurrentCount: d.CurrentCount,
		MaxCount:     d.MaxCount,
		PlanTier:     string(d.PlanTier),
		PlanName:     d.PlanName,
		OwnerName:    d.OwnerName,
	})
}

// writeServiceError maps service errors to status codes. Unclassified
// errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	var denied *policy.DeniedError
	switch {
	case errors.As(err, &denied):
		writeDenial(w, logger, denied.Decision)
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, logger, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, logger, http.StatusConflict, codeConflict, "already exists")
	case errors.Is(err, apperr.ErrInvalid):
		writeError(w, logger, http.StatusBadRequest, codeInvalid, err.Error())
	default:
		logger.Error().Err(err).Msg(msg)
		writeError(w, logger, http.StatusInternalServerError, codeInternal, msg)
	}
}

// currentUser returns the authenticated user id or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		writeError(w, logger, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// uuidParam reads a UUID path parameter or writes 400.
func uuidParam(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, name string) (string, bool) {
	return parseUUID(w, logger, name, chi.URLParam(r, name))
}

func parseUUID(w http.ResponseWriter, logger zerolog.Logger, name, raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, codeInvalid, "invalid "+name)
		return "", false
	}
	return id.String(), true
}

// decode reads and validates a JSON body or writes 400.
func decode(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, logger, http.StatusBadRequest, codeInvalid, "invalid JSON payload")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, logger, http.StatusBadRequest, codeInvalid, "validation failed: "+err.Error())
		return false
	}
	return true
}
