package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"salonbook/internal/domain"
	"salonbook/internal/logging"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]string{"code": code, "error": message})
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeIneligible:
		return http.StatusUnprocessableEntity
	case domain.CodeSlotUnavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err with its stable code. Internal errors are logged
// and replaced by a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeError(w, statusFor(de.Code), de.Code, de.Error())
		return
	}
	logger.Error().Err(err).
		Str("request_id", logging.RequestIDFrom(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, domain.CodeInternal, "internal error")
}
