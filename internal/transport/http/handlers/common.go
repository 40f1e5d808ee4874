package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/studymate/backend/internal/domain/faults"
	authsvc "github.com/studymate/backend/internal/services/auth"
	"github.com/studymate/backend/internal/services/rate"
	httperrors "github.com/studymate/backend/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeServiceError translates failure kinds into responses. Anything it
// does not recognise is logged and answered with 500 and fallback.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	if tf, ok := rate.IsTooFast(err); ok {
		writeRateLimited(w, http.StatusTooManyRequests, "TOO_FAST", "too many likes, slow down", tf.RetryAfter())
		return
	}
	if tm, ok := rate.IsTooManyReports(err); ok {
		writeRateLimited(w, http.StatusTooManyRequests, "TOO_MANY_REPORTS", "too many reports, try again later", tm.RetryAfter())
		return
	}
	if tu, ok := rate.IsTempUnavailable(err); ok {
		if log != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		}
		writeRateLimited(w, http.StatusServiceUnavailable, "TEMP_UNAVAILABLE", "temporarily unavailable", tu.RetryAfter())
		return
	}

	switch {
	case errors.Is(err, faults.ErrBlocked):
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: "BLOCKED", Message: faults.Message(err, "interaction is blocked")})
	case errors.Is(err, faults.ErrBadRequest):
		writeBadRequest(w, "VALIDATION_ERROR", faults.Message(err, "invalid request"))
	case errors.Is(err, faults.ErrNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: "NOT_FOUND", Message: faults.Message(err, "not found")})
	case errors.Is(err, faults.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", faults.Message(err, "not allowed"))
	case errors.Is(err, faults.ErrConflict):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: "CONFLICT", Message: faults.Message(err, "conflict")})
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

func writeRateLimited(w http.ResponseWriter, status int, code, message string, retryAfter int64) {
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	httperrors.Write(w, status, httperrors.RateLimitError{
		Code:          code,
		Message:       message,
		RetryAfterSec: retryAfter,
	})
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
