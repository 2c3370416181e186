package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ifcoins/internal/models"
	"ifcoins/internal/pkg/security"
	"ifcoins/internal/policy"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account. The role is inferred from the email domain.
// Attempts are counted per email and rejected with a RateLimitError once the
// sign-up gate is cooling down.
func (app *App) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := app.allow(ctx, app.signUpGate, "SignUp", req.Email); err != nil {
		return nil, err
	}
	app.record(ctx, app.signUpGate, "SignUp", req.Email)

	if err := app.validator.Struct(req); err != nil {
		return nil, err
	}

	role, err := app.policy.RoleForEmail(req.Email)
	if err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		app.log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	acc, err := app.db.CreateAccount(ctx, models.Account{
		ID:           app.newID(),
		Role:         role,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Coins:        app.startingCoins,
		RA:           strings.TrimSpace(req.RA),
		Class:        strings.TrimSpace(req.Class),
		CreatedAt:    app.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	token, err := app.tokens.GenerateToken(models.Session{UserID: acc.ID, Role: acc.Role})
	if err != nil {
		return nil, err
	}
	app.log.Info("account created", zap.String("account_id", acc.ID), zap.Stringer("role", acc.Role))
	return &models.AuthResponse{Token: token, Account: acc}, nil
}

// SignIn checks the credentials and issues a session token. Failed attempts are
// counted per email; a successful sign-in returns the gate to idle.
func (app *App) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := app.validator.Struct(req); err != nil {
		return nil, err
	}

	if err := app.allow(ctx, app.signInGate, "SignIn", req.Email); err != nil {
		return nil, err
	}

	acc, err := app.db.GetAccountByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		app.record(ctx, app.signInGate, "SignIn", req.Email)
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := security.CheckPassword(acc.PasswordHash, req.Password); err != nil {
		app.record(ctx, app.signInGate, "SignIn", req.Email)
		return nil, models.ErrInvalidCredentials
	}
	app.reset(ctx, app.signInGate, "SignIn", req.Email)

	token, err := app.tokens.GenerateToken(models.Session{UserID: acc.ID, Role: acc.Role})
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, Account: acc}, nil
}

// Me returns the caller's account.
func (app *App) Me(ctx context.Context, s models.Session) (*models.Account, error) {
	return read(ctx, app, func(ctx context.Context) (*models.Account, error) {
		return app.db.GetAccount(ctx, s.UserID)
	})
}

// ListAccounts lists accounts for teachers and admins. Teachers only see students;
// admins may filter by role, an empty role listing everyone.
func (app *App) ListAccounts(ctx context.Context, s models.Session, role string) ([]models.Account, error) {
	if err := policy.RequireStaff(s); err != nil {
		return nil, err
	}

	var filter models.AccountFilter
	if role != "" {
		r, err := models.ParseRole(role)
		if err != nil {
			return nil, models.NewValidationError("invalid role", models.FieldError{Field: "role", Error: "must be student, teacher or admin"})
		}
		filter.Role = &r
	}
	if s.Role == models.RoleTeacher {
		student := models.RoleStudent
		filter.Role = &student
	}

	return read(ctx, app, func(ctx context.Context) ([]models.Account, error) {
		return app.db.ListAccounts(ctx, filter)
	})
}
