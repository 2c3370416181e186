package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	want := models.Session{UserID: "3f1c", Role: models.RoleTeacher}

	token, err := tokens.GenerateToken(want)
	require.NoError(t, err)

	got, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseTokenRejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	session := models.Session{UserID: "u1", Role: models.RoleStudent}

	otherKey, err := NewTokens("other", time.Hour).GenerateToken(session)
	require.NoError(t, err)

	expiredTokens := NewTokens("secret", time.Hour)
	expiredTokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredTokens.GenerateToken(session)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1", Role: models.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"other secret": otherKey,
		"expired":      expired,
		"alg none":     none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCheckJWTMiddleware(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	valid, err := tokens.GenerateToken(models.Session{UserID: "u1", Role: models.RoleStudent})
	require.NoError(t, err)

	var seen models.Session
	h := tokens.CheckJWTMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
	assert.Equal(t, models.Session{UserID: "u1", Role: models.RoleStudent}, seen)
}
