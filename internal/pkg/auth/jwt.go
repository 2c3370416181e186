// Package auth issues and verifies JSON Web Tokens for account sessions
// and provides the HTTP middleware that turns a bearer token into a session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"ifcoins/internal/models"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = time.Hour * 3

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are the custom JWT claims: the account id and its role.
type Claims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and parses session tokens with an HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens using secret for HS256 signatures.
// A non-positive ttl selects DefaultTTL.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a signed token for the session.
func (t *Tokens) GenerateToken(s models.Session) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: s.UserID,
		Role:   s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the token string and returns the session it carries.
func (t *Tokens) ParseToken(tokenStr string) (models.Session, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return models.Session{}, ErrInvalidToken
	}
	return models.Session{UserID: claims.UserID, Role: claims.Role}, nil
}
