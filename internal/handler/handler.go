package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopcart/internal/model"

	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusForDomainError maps a domain error to an HTTP status code, or returns
// false for non-domain errors.
func statusForDomainError(err error) (int, string, bool) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		return 0, "", false
	}

	switch domainErr.Code {
	case model.ErrCodeCartNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound, domainErr.Message, true
	case model.ErrCodeIllegalTransition:
		return http.StatusConflict, domainErr.Message, true
	case model.ErrCodeProductNotFound,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeEmptySelection,
		model.ErrCodeMissingField:
		return http.StatusBadRequest, domainErr.Message, true
	default:
		return http.StatusBadRequest, domainErr.Message, true
	}
}
