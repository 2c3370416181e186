package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ifcoins/internal/models"
)

type contextKey string

// contextSession is the key under which the session is stored in the request context.
const contextSession contextKey = "session"

// WithSession returns a copy of ctx carrying the session.
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, contextSession, s)
}

// SessionFromContext returns the session stored by CheckJWTMiddleware.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(contextSession).(models.Session)
	return s, ok
}

// CheckJWTMiddleware validates the Bearer token of incoming requests
// and stores the resulting session in the request context.
// Requests without a valid token are answered with 401.
func (t *Tokens) CheckJWTMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, "missing auth header", http.StatusUnauthorized)
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeErrorResponse(w, "invalid auth header", http.StatusUnauthorized)
				return
			}

			session, err := t.ParseToken(token)
			if err != nil {
				writeErrorResponse(w, "invalid token", http.StatusUnauthorized)
				return
			}

			h.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		}
		return http.HandlerFunc(fn)
	}
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
