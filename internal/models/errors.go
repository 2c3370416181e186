package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Business-rule and authorization failures. Callers branch on them with errors.Is.
var (
	// ErrNotFound indicates that the referenced account, card, event, pack or trade does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state-transition conflict.
	ErrConflict = errors.New("conflict")
	// ErrInvalidRoles indicates that the issuer may not grant coins to the recipient.
	ErrInvalidRoles = errors.New("only teachers and admins may grant coins, and only to students")
	// ErrForbidden indicates that the session role may not perform the operation.
	ErrForbidden = errors.New("permission denied")
	// ErrAmountOutOfRange indicates a grant amount outside the issuer's limit.
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrInvalidDomain indicates a signup email outside the institution's domains.
	ErrInvalidDomain = errors.New("email domain is not allowed")
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInsufficientFunds indicates a balance lower than the price being paid.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientCards indicates that a trade party no longer holds the cards it offered.
	ErrInsufficientCards = errors.New("insufficient cards")
	// ErrOutOfStock indicates that a stock-tracked card has no copies left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrCardUnavailable indicates a card that is not offered for acquisition.
	ErrCardUnavailable = errors.New("card unavailable")
	// ErrPackUnavailable indicates a pack that is not offered for opening.
	ErrPackUnavailable = errors.New("pack unavailable")
	// ErrPackLimitReached indicates that the monthly opening limit of a pack is exhausted.
	ErrPackLimitReached = errors.New("pack limit reached")
	// ErrKeyReused indicates an idempotency key replayed with a different request.
	ErrKeyReused = fmt.Errorf("idempotency key reused with a different request: %w", ErrConflict)
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports malformed client input. It is never retried.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError builds a ValidationError from a message and optional field errors.
func NewValidationError(msg string, fields ...FieldError) error {
	return &ValidationError{Err: errors.New(msg), Fields: fields}
}

func (err *ValidationError) Error() string {
	if len(err.Fields) == 0 {
		if err.Err == nil {
			return "invalid request"
		}
		return err.Err.Error()
	}
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return strings.Join(parts, "; ")
}

func (err *ValidationError) Unwrap() error { return err.Err }

// PersistenceError wraps an infrastructure failure of the store.
// Transient failures (timeouts, lost connections, serialization aborts) may be retried
// by the caller as a whole operation.
type PersistenceError struct {
	Op        string
	Err       error
	Transient bool
}

func (err *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *PersistenceError) Unwrap() error { return err.Err }

// RateLimitError asks the caller to wait RetryAfter before trying again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (err *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", err.RetryAfter.Round(time.Second))
}

// IsTransient reports whether err is a transient PersistenceError.
func IsTransient(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr) && pErr.Transient
}

// IsAuthorization reports whether err is a role or permission failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrInvalidRoles) || errors.Is(err, ErrForbidden)
}
