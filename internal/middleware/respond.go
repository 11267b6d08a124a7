package middleware

import (
	"encoding/json"
	"net/http"

	"pomoroom/internal/api/v1/dto"

	"github.com/rs/zerolog"
)

const (
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeInternal     = "internal_error"
)

// WriteJSON writes body as a JSON response with status.
func WriteJSON(w http.ResponseWriter, logger zerolog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError writes the JSON error envelope shared by every /v1 endpoint.
func WriteError(w http.ResponseWriter, logger zerolog.Logger, status int, code, msg string) {
	WriteJSON(w, logger, status, dto.ErrorResponse{Error: msg, Code: code})
}
