package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	pgx_pgconn "github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"ifcoins/internal/models"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		want          error
		wantTransient bool
		wantPersist   bool
		wantInvalid   bool
	}{
		{name: "nil", err: nil, want: nil},
		{name: "domain sentinel passes through", err: models.ErrPackLimitReached, want: models.ErrPackLimitReached},
		{name: "wrapped sentinel", err: fmt.Errorf("lock: %w", models.ErrForbidden), want: models.ErrForbidden},
		{name: "no rows", err: sql.ErrNoRows, want: models.ErrNotFound},
		{
			name: "unique violation",
			err:  &pgx_pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_key"},
			want: models.ErrConflict,
		},
		{
			name: "legacy unique violation",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			want: models.ErrConflict,
		},
		{
			name: "foreign key violation",
			err:  &pgx_pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			want: models.ErrConflict,
		},
		{
			name: "coins check",
			err:  &pgx_pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: constraintCoins},
			want: models.ErrInsufficientFunds,
		},
		{
			name: "copies check",
			err:  &pgx_pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: constraintCopies},
			want: models.ErrOutOfStock,
		},
		{
			name:        "other check",
			err:         &pgx_pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "events_window_check"},
			wantInvalid: true,
		},
		{
			name: "malformed uuid",
			err:  &pgx_pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation},
			want: models.ErrNotFound,
		},
		{
			name:          "serialization failure",
			err:           &pgx_pgconn.PgError{Code: pgerrcode.SerializationFailure},
			wantPersist:   true,
			wantTransient: true,
		},
		{
			name:          "deadlock",
			err:           &pgconn.PgError{Code: pgerrcode.DeadlockDetected},
			wantPersist:   true,
			wantTransient: true,
		},
		{
			name:        "syntax error",
			err:         &pgx_pgconn.PgError{Code: pgerrcode.SyntaxError},
			wantPersist: true,
		},
		{name: "deadline", err: context.DeadlineExceeded, wantPersist: true, wantTransient: true},
		{name: "bad conn", err: driver.ErrBadConn, wantPersist: true, wantTransient: true},
		{name: "unknown", err: errors.New("boom"), wantPersist: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("op", tc.err)

			switch {
			case tc.wantPersist:
				var pErr *models.PersistenceError
				assert.ErrorAs(t, got, &pErr)
				assert.Equal(t, "op", pErr.Op)
				assert.Equal(t, tc.wantTransient, models.IsTransient(got))
			case tc.wantInvalid:
				var vErr *models.ValidationError
				assert.ErrorAs(t, got, &vErr)
			case tc.want == nil:
				assert.NoError(t, got)
			default:
				assert.ErrorIs(t, got, tc.want)
				assert.False(t, models.IsTransient(got))
			}
		})
	}
}
