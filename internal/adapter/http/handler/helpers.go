package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code string, messages ...string) {
	writeJSON(w, status, dto.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Code:      code,
		Errors:    messages,
	})
}

// writeDomainError maps err and writes it. Unmapped errors are logged and
// hidden behind a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, code, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, dto.CodeNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict, dto.CodeUserAlreadyExists
	case errors.Is(err, domain.ErrAccountNameTaken),
		errors.Is(err, domain.ErrAccountNumberTaken),
		errors.Is(err, domain.ErrAccountHasBalance):
		return http.StatusConflict, dto.CodeAlreadyExists
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, dto.CodeConcurrentUpdate
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, dto.CodeInvalidRequest
	case errors.Is(err, dto.ErrInvalidRequest),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest, dto.CodeInvalidRequest
	default:
		return http.StatusInternalServerError, dto.CodeInternal
	}
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", dto.ErrInvalidRequest)
	}
	return nil
}

// callerUsername returns the authenticated username, writing 401 when absent.
func callerUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, dto.CodeInvalidRequest, domain.ErrUnauthorized.Error())
		return "", false
	}
	return p.Username, true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
