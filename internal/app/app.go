// Package app provides the core business logic for the IFCoins ledger and marketplace.
// It handles sign-up and sign-in, coin grants, the card catalog, purchases, packs,
// events, rankings and trades. Every use case receives the caller's models.Session
// explicitly and delegates persistence to the storage layer.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ifcoins/internal/bonus"
	"ifcoins/internal/models"
	"ifcoins/internal/packs"
	"ifcoins/internal/pkg/auth"
	"ifcoins/internal/pkg/cooldown"
	"ifcoins/internal/pkg/logger"
	"ifcoins/internal/pkg/retry"
	"ifcoins/internal/pkg/validate"
	"ifcoins/internal/policy"
	"ifcoins/internal/ranking"
	"ifcoins/internal/storage"
)

// App encapsulates the application logic and dependencies required to process requests.
type App struct {
	db        storage.Storage
	log       *logger.Logger
	tokens    *auth.Tokens
	policy    *policy.Policy
	validator *validate.Validator
	drawer    *packs.Drawer

	signInGate cooldown.Gate
	signUpGate cooldown.Gate

	startingCoins int64
	scope         bonus.Scope
	overlap       bonus.Overlap
	readRetry     retry.Policy
	rankingLimit  int

	now   func() time.Time
	newID func() string
}

// Option configures an App.
type Option func(*App)

// WithTokens sets the session token issuer.
func WithTokens(t *auth.Tokens) Option {
	return func(app *App) { app.tokens = t }
}

// WithPolicy sets the authorization policy.
func WithPolicy(p *policy.Policy) Option {
	return func(app *App) { app.policy = p }
}

// WithSignInGate sets the gate that counts failed sign-ins per email.
func WithSignInGate(g cooldown.Gate) Option {
	return func(app *App) { app.signInGate = g }
}

// WithSignUpGate sets the gate that counts sign-up attempts per email.
func WithSignUpGate(g cooldown.Gate) Option {
	return func(app *App) { app.signUpGate = g }
}

// WithStartingCoins sets the balance of new accounts.
func WithStartingCoins(coins int64) Option {
	return func(app *App) { app.startingCoins = coins }
}

// WithBonus sets which grants are multiplied and how overlapping events resolve.
func WithBonus(scope bonus.Scope, overlap bonus.Overlap) Option {
	return func(app *App) {
		app.scope = scope
		app.overlap = overlap
	}
}

// WithReadRetry sets the retry policy of idempotent reads.
func WithReadRetry(p retry.Policy) Option {
	return func(app *App) { app.readRetry = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(app *App) { app.now = now }
}

// WithDrawer sets the random source of pack openings.
func WithDrawer(d *packs.Drawer) Option {
	return func(app *App) { app.drawer = d }
}

// WithRankingLimit sets the ranking size used when a request gives none.
func WithRankingLimit(limit int) Option {
	return func(app *App) { app.rankingLimit = limit }
}

// WithIDs replaces the identifier generator.
func WithIDs(newID func() string) Option {
	return func(app *App) { app.newID = newID }
}

// NewApp creates an App with the provided storage and logger, modified by opts.
func NewApp(db storage.Storage, log *logger.Logger, opts ...Option) *App {
	app := &App{
		db:           db,
		log:          log,
		tokens:       auth.NewTokens(uuid.NewString(), auth.DefaultTTL),
		policy:       policy.New(),
		validator:    validate.New(),
		drawer:       packs.NewDrawer(),
		signInGate:   cooldown.Nop{},
		signUpGate:   cooldown.Nop{},
		scope:        bonus.ScopeEvents,
		overlap:      bonus.OverlapMax,
		readRetry:    retry.Once,
		rankingLimit: ranking.DefaultLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// read runs an idempotent storage read under the read retry policy.
func read[T any](ctx context.Context, app *App, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, app.readRetry, models.IsTransient, fn)
}

// gateFailed logs a gate infrastructure failure. The caller proceeds without the gate.
func (app *App) gateFailed(op string, err error) {
	app.log.Warn("cooldown gate unavailable", zap.String("op", op), zap.Error(err))
}

// allow reports a RateLimitError from gate and swallows any other gate failure.
func (app *App) allow(ctx context.Context, gate cooldown.Gate, op, key string) error {
	err := gate.Allow(ctx, key)
	if err == nil {
		return nil
	}
	var rlErr *models.RateLimitError
	if errors.As(err, &rlErr) {
		return err
	}
	app.gateFailed(op, err)
	return nil
}

func (app *App) record(ctx context.Context, gate cooldown.Gate, op, key string) {
	if err := gate.Record(ctx, key); err != nil {
		app.gateFailed(op, err)
	}
}

func (app *App) reset(ctx context.Context, gate cooldown.Gate, op, key string) {
	if err := gate.Reset(ctx, key); err != nil {
		app.gateFailed(op, err)
	}
}
