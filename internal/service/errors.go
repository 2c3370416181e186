package service

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"ifcoins/internal/models"
)

// statusFor maps business sentinels onto HTTP status codes.
var statusFor = []struct {
	err    error
	status int
}{
	{models.ErrAmountOutOfRange, http.StatusBadRequest},
	{models.ErrInvalidDomain, http.StatusBadRequest},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrInvalidRoles, http.StatusForbidden},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{models.ErrInsufficientCards, http.StatusUnprocessableEntity},
	{models.ErrOutOfStock, http.StatusUnprocessableEntity},
	{models.ErrCardUnavailable, http.StatusUnprocessableEntity},
	{models.ErrPackUnavailable, http.StatusUnprocessableEntity},
	{models.ErrPackLimitReached, http.StatusUnprocessableEntity},
}

// writeError answers with the status and message matching err's kind.
// Unclassified errors are logged and reported as "unexpected error".
func (handlers *handlers) writeError(res http.ResponseWriter, req *http.Request, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		msg := "invalid request"
		if vErr.Err != nil {
			msg = vErr.Err.Error()
		}
		writeJSON(res, http.StatusBadRequest, models.ErrorResponse{Errors: msg, Fields: vErr.Fields})
		return
	}

	var rlErr *models.RateLimitError
	if errors.As(err, &rlErr) {
		seconds := int(math.Ceil(rlErr.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		res.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeErrorResponse(res, rlErr.Error(), http.StatusTooManyRequests)
		return
	}

	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			writeErrorResponse(res, m.err.Error(), m.status)
			return
		}
	}

	var pErr *models.PersistenceError
	if errors.As(err, &pErr) {
		handlers.log.Warn("storage unavailable", zap.String("path", req.URL.Path), zap.Error(err))
		writeErrorResponse(res, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	handlers.log.Error("unexpected error", zap.String("path", req.URL.Path), zap.Error(err))
	writeErrorResponse(res, "unexpected error", http.StatusInternalServerError)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	writeJSON(res, statusCode, models.ErrorResponse{Errors: errorInfo})
}

func writeJSON(res http.ResponseWriter, statusCode int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(v)
}
