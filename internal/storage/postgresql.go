package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"ifcoins/internal/models"
	"ifcoins/internal/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	accountColumns = `id, role, name, email, password_hash, coins, ra, class, created_at`
	rewardColumns  = `id, teacher_id, student_id, coins, base_coins, multiplier, event_id, reason, created_at`

	createAccountQuery     = `INSERT INTO ifcoins.accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	getAccountQuery        = `SELECT ` + accountColumns + ` FROM ifcoins.accounts WHERE id = $1;`
	getAccountByEmailQuery = `SELECT ` + accountColumns + ` FROM ifcoins.accounts WHERE email = lower($1);`
	listAccountsQuery      = `SELECT ` + accountColumns + ` FROM ifcoins.accounts WHERE ($1::text IS NULL OR role = $1) ORDER BY name, id;`
	lockAccountQuery       = `SELECT ` + accountColumns + ` FROM ifcoins.accounts WHERE id = $1 FOR UPDATE;`
	addCoinsQuery          = `UPDATE ifcoins.accounts SET coins = coins + $1 WHERE id = $2;`

	insertRewardQuery = `INSERT INTO ifcoins.reward_logs (` + rewardColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	getRewardQuery    = `SELECT ` + rewardColumns + ` FROM ifcoins.reward_logs WHERE id = $1;`
	listRewardsQuery  = `SELECT ` + rewardColumns + ` FROM ifcoins.reward_logs
		WHERE ($1 = '' OR teacher_id::text = $1) AND ($2 = '' OR student_id::text = $2)
		ORDER BY created_at DESC, id LIMIT $3;`

	claimKeyQuery  = `INSERT INTO ifcoins.idempotency_keys (user_id, operation, key, result_id) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING;`
	getKeyQuery    = `SELECT result_id FROM ifcoins.idempotency_keys WHERE user_id = $1 AND operation = $2 AND key = $3;`
	purgeKeysQuery = `DELETE FROM ifcoins.idempotency_keys WHERE created_at < $1;`
)

// PostgreSQL implements the Storage interface using a PostgreSQL database.
// Rows are locked in a fixed order (accounts by id, then cards by id, then
// ownership rows) so concurrent transactions cannot deadlock each other.
type PostgreSQL struct {
	db  *sql.DB
	log *logger.Logger
}

var _ Storage = (*PostgreSQL)(nil)

// NewPostgreSQL opens a connection pool for the DSN and pings the database.
func NewPostgreSQL(dsn string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// Migrate brings the schema up to the latest embedded goose migration.
func (postgresql *PostgreSQL) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{postgresql.log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, postgresql.db, "migrations"); err != nil {
		postgresql.log.Sugar().Errorf("Failed to migrate the database: %s", err)
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

// gooseLogger routes goose progress lines through zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

// fail classifies err and logs infrastructure failures.
func (postgresql *PostgreSQL) fail(op string, err error) error {
	err = classify(op, err)
	var pErr *models.PersistenceError
	if errors.As(err, &pErr) {
		postgresql.log.Sugar().Errorf("Failed to execute %s: %s", op, pErr.Err)
	}
	return err
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (postgresql *PostgreSQL) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return postgresql.fail(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return postgresql.fail(op, err)
	}
	if err := tx.Commit(); err != nil {
		return postgresql.fail(op, err)
	}
	return nil
}

// claimKey records an idempotency key inside tx. When the key was used before it
// returns the stored result id and false.
func claimKey(ctx context.Context, tx *sql.Tx, userID, op, key, resultID string) (string, bool, error) {
	result, err := tx.ExecContext(ctx, claimKeyQuery, userID, op, key, resultID)
	if err != nil {
		return "", false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if rows == 1 {
		return resultID, true, nil
	}

	var stored string
	if err := tx.QueryRowContext(ctx, getKeyQuery, userID, op, key).Scan(&stored); err != nil {
		return "", false, err
	}
	return stored, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(&acc.ID, &acc.Role, &acc.Name, &acc.Email, &acc.PasswordHash,
		&acc.Coins, &acc.RA, &acc.Class, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func scanReward(row rowScanner) (*models.RewardLogEntry, error) {
	entry := &models.RewardLogEntry{}
	var eventID sql.NullString
	err := row.Scan(&entry.ID, &entry.TeacherID, &entry.StudentID, &entry.Coins, &entry.BaseCoins,
		&entry.Multiplier, &eventID, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.EventID = nullString(eventID)
	return entry, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// CreateAccount inserts a new account. A duplicate email fails with ErrConflict.
func (postgresql *PostgreSQL) CreateAccount(ctx context.Context, acc models.Account) (*models.Account, error) {
	_, err := postgresql.db.ExecContext(ctx, createAccountQuery, acc.ID, acc.Role.String(), acc.Name, acc.Email,
		acc.PasswordHash, acc.Coins, acc.RA, acc.Class, acc.CreatedAt)
	if err != nil {
		return nil, postgresql.fail("CreateAccount", err)
	}
	return &acc, nil
}

func (postgresql *PostgreSQL) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := scanAccount(postgresql.db.QueryRowContext(ctx, getAccountQuery, id))
	if err != nil {
		return nil, postgresql.fail("GetAccount", err)
	}
	return acc, nil
}

func (postgresql *PostgreSQL) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	acc, err := scanAccount(postgresql.db.QueryRowContext(ctx, getAccountByEmailQuery, email))
	if err != nil {
		return nil, postgresql.fail("GetAccountByEmail", err)
	}
	return acc, nil
}

// ListAccounts returns accounts ordered by name, optionally restricted to one role.
func (postgresql *PostgreSQL) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	var role sql.NullString
	if filter.Role != nil {
		role = sql.NullString{String: filter.Role.String(), Valid: true}
	}

	rows, err := postgresql.db.QueryContext(ctx, listAccountsQuery, role)
	if err != nil {
		return nil, postgresql.fail("ListAccounts", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, postgresql.fail("ListAccounts", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListAccounts", err)
	}
	return accounts, nil
}

// GrantCoins locks the recipient row, credits it and appends the ledger entry in one transaction.
func (postgresql *PostgreSQL) GrantCoins(ctx context.Context, entry models.RewardLogEntry, idemKey string) (*models.RewardLogEntry, error) {
	var out *models.RewardLogEntry

	err := postgresql.inTx(ctx, "GrantCoins", func(tx *sql.Tx) error {
		if idemKey != "" {
			id, fresh, err := claimKey(ctx, tx, entry.TeacherID, OpGrant, idemKey, entry.ID)
			if err != nil {
				return err
			}
			if !fresh {
				out, err = scanReward(tx.QueryRowContext(ctx, getRewardQuery, id))
				if err == nil && !out.SameGrant(entry) {
					return models.ErrKeyReused
				}
				return err
			}
		}

		recipient, err := scanAccount(tx.QueryRowContext(ctx, lockAccountQuery, entry.StudentID))
		if err != nil {
			return err
		}
		if recipient.Role != models.RoleStudent {
			return models.ErrInvalidRoles
		}

		if _, err := tx.ExecContext(ctx, addCoinsQuery, entry.Coins, entry.StudentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertRewardQuery, entry.ID, entry.TeacherID, entry.StudentID,
			entry.Coins, entry.BaseCoins, entry.Multiplier.String(), entry.EventID, entry.Reason, entry.CreatedAt); err != nil {
			return err
		}
		out = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRewards returns ledger entries newest first.
func (postgresql *PostgreSQL) ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.RewardLogEntry, error) {
	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}

	rows, err := postgresql.db.QueryContext(ctx, listRewardsQuery, filter.TeacherID, filter.StudentID, limit)
	if err != nil {
		return nil, postgresql.fail("ListRewards", err)
	}
	defer rows.Close()

	entries := make([]models.RewardLogEntry, 0)
	for rows.Next() {
		entry, err := scanReward(rows)
		if err != nil {
			return nil, postgresql.fail("ListRewards", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListRewards", err)
	}
	return entries, nil
}

// PurgeIdempotencyKeys deletes keys recorded before the given time.
func (postgresql *PostgreSQL) PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	result, err := postgresql.db.ExecContext(ctx, purgeKeysQuery, before)
	if err != nil {
		return 0, postgresql.fail("PurgeIdempotencyKeys", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, postgresql.fail("PurgeIdempotencyKeys", err)
	}
	return rows, nil
}
