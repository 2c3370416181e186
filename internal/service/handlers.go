// Package service contains the HTTP handlers of the IFCoins API.
// Handlers parse requests, take the caller's session from the request context,
// call the app package and translate its errors into HTTP responses.
package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"ifcoins/internal/app"
	"ifcoins/internal/models"
	"ifcoins/internal/pkg/auth"
	"ifcoins/internal/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

// handlers aggregates dependencies needed by HTTP handlers.
type handlers struct {
	app            *app.App
	log            *logger.Logger
	requestTimeout time.Duration
}

func newHandlers(app *app.App, l *logger.Logger, requestTimeout time.Duration) *handlers {
	return &handlers{app: app, log: l, requestTimeout: requestTimeout}
}

// withTimeout bounds the request by the configured timeout.
func (handlers *handlers) withTimeout(req *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Context(), handlers.requestTimeout)
}

// decodeBody reads the request body into v. Malformed JSON is a validation error.
func decodeBody(req *http.Request, v any) error {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	if err = json.Unmarshal(requestBody, v); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// queryInt parses an optional integer query parameter. Missing values yield 0.
func queryInt(req *http.Request, name string) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.NewValidationError("invalid query parameter",
			models.FieldError{Field: name, Error: "must be a non-negative integer"})
	}
	return n, nil
}

func session(res http.ResponseWriter, req *http.Request) (models.Session, bool) {
	s, ok := auth.SessionFromContext(req.Context())
	if !ok {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
	}
	return s, ok
}

// signUpHandler registers an account and returns its first session token.
func (handlers *handlers) signUpHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	var signUpRequest models.SignUpRequest
	if err := decodeBody(req, &signUpRequest); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	authResponse, err := handlers.app.SignUp(ctx, signUpRequest)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, authResponse)
}

// signInHandler exchanges credentials for a session token.
func (handlers *handlers) signInHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	var signInRequest models.SignInRequest
	if err := decodeBody(req, &signInRequest); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	authResponse, err := handlers.app.SignIn(ctx, signInRequest)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, authResponse)
}

func (handlers *handlers) meHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	acc, err := handlers.app.Me(ctx, s)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, acc)
}

func (handlers *handlers) listAccountsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	accounts, err := handlers.app.ListAccounts(ctx, s, req.URL.Query().Get("role"))
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, accounts)
}

// grantHandler credits coins to a student. The optional Idempotency-Key header
// makes retries of the same request return the original ledger entry.
func (handlers *handlers) grantHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var grantRequest models.GrantRequest
	if err := decodeBody(req, &grantRequest); err != nil {
		handlers.writeError(res, req, err)
		return
	}
	grantRequest.IdempotencyKey = req.Header.Get(idempotencyHeader)

	entry, err := handlers.app.GrantCoins(ctx, s, grantRequest)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, entry)
}

func (handlers *handlers) statsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	stats, err := handlers.app.Stats(ctx, s)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, stats)
}

func (handlers *handlers) listRewardsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}
	limit, err := queryInt(req, "limit")
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}

	entries, err := handlers.app.ListRewards(ctx, s, limit)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, entries)
}
