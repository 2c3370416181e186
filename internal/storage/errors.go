package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	pgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	pgx_pgconn "github.com/jackc/pgx/v5/pgconn"

	"ifcoins/internal/models"
)

// Check constraints that carry business meaning.
const (
	constraintCoins  = "accounts_coins_check"
	constraintCopies = "cards_copies_check"
)

// domainErrors pass through classification untouched.
var domainErrors = []error{
	models.ErrNotFound,
	models.ErrConflict,
	models.ErrForbidden,
	models.ErrInvalidRoles,
	models.ErrAmountOutOfRange,
	models.ErrInsufficientFunds,
	models.ErrInsufficientCards,
	models.ErrOutOfStock,
	models.ErrCardUnavailable,
	models.ErrPackUnavailable,
	models.ErrPackLimitReached,
}

// pgError extracts code and constraint from either pgconn generation.
func pgError(err error) (code, constraint string, ok bool) {
	var pgErr *pgx_pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var legacyErr *pgconn.PgError
	if errors.As(err, &legacyErr) {
		return legacyErr.Code, legacyErr.ConstraintName, true
	}
	return "", "", false
}

// classify maps driver and database errors onto the domain taxonomy.
// Business failures become sentinels; everything else a *models.PersistenceError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	if code, constraint, ok := pgError(err); ok {
		switch {
		case code == pgerrcode.UniqueViolation, code == pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, models.ErrConflict)
		case code == pgerrcode.CheckViolation && constraint == constraintCoins:
			return models.ErrInsufficientFunds
		case code == pgerrcode.CheckViolation && constraint == constraintCopies:
			return models.ErrOutOfStock
		case code == pgerrcode.CheckViolation:
			return models.NewValidationError(fmt.Sprintf("value violates %s", constraint))
		case code == pgerrcode.InvalidTextRepresentation:
			// Malformed ids cannot match any row.
			return models.ErrNotFound
		case pgerrcode.IsTransactionRollback(code),
			pgerrcode.IsConnectionException(code),
			pgerrcode.IsOperatorIntervention(code),
			code == pgerrcode.LockNotAvailable,
			code == pgerrcode.TooManyConnections:
			return &models.PersistenceError{Op: op, Err: err, Transient: true}
		}
		return &models.PersistenceError{Op: op, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		pgx_pgconn.Timeout(err) || pgx_pgconn.SafeToRetry(err) {
		return &models.PersistenceError{Op: op, Err: err, Transient: true}
	}
	return &models.PersistenceError{Op: op, Err: err}
}
