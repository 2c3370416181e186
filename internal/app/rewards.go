package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ifcoins/internal/bonus"
	"ifcoins/internal/models"
)

// GrantCoins credits a student on behalf of the session's teacher or admin.
// The issuer and recipient are authorized before anything is written; when the
// bonus scope covers the grant, the active event multiplier is applied and recorded.
func (app *App) GrantCoins(ctx context.Context, s models.Session, req models.GrantRequest) (*models.RewardLogEntry, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	req.RecipientEmail = normalizeEmail(req.RecipientEmail)
	if err := app.validator.Struct(req); err != nil {
		return nil, err
	}

	issuer, err := app.db.GetAccount(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	var recipient *models.Account
	if req.RecipientID != "" {
		recipient, err = app.db.GetAccount(ctx, req.RecipientID)
	} else {
		recipient, err = app.db.GetAccountByEmail(ctx, req.RecipientEmail)
	}
	if err != nil {
		return nil, err
	}

	if err := app.policy.AuthorizeGrant(*issuer, *recipient, req.Amount); err != nil {
		app.log.Info("grant rejected",
			zap.String("issuer_id", issuer.ID),
			zap.String("recipient_id", recipient.ID),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		return nil, err
	}

	now := app.now().UTC()
	entry := models.RewardLogEntry{
		ID:         app.newID(),
		TeacherID:  issuer.ID,
		StudentID:  recipient.ID,
		Coins:      req.Amount,
		BaseCoins:  req.Amount,
		Multiplier: bonus.One,
		Reason:     req.Reason,
		CreatedAt:  now,
	}

	if app.scope.Applies(req.EventLinked) {
		events, err := app.db.ListEvents(ctx)
		if err != nil {
			return nil, err
		}
		if m, event := bonus.ActiveMultiplier(events, now, app.overlap); event != nil {
			entry.Multiplier = m
			entry.Coins = bonus.Apply(req.Amount, m)
			entry.EventID = &event.ID
		}
	}

	out, err := app.db.GrantCoins(ctx, entry, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	app.log.Info("coins granted",
		zap.String("entry_id", out.ID),
		zap.String("issuer_id", out.TeacherID),
		zap.String("recipient_id", out.StudentID),
		zap.Int64("coins", out.Coins))
	return out, nil
}

// ListRewards returns ledger entries visible to the caller, newest first:
// students see what they received, teachers what they issued, admins everything.
func (app *App) ListRewards(ctx context.Context, s models.Session, limit int) ([]models.RewardLogEntry, error) {
	filter := models.RewardFilter{Limit: limit}
	switch s.Role {
	case models.RoleStudent:
		filter.StudentID = s.UserID
	case models.RoleTeacher:
		filter.TeacherID = s.UserID
	case models.RoleAdmin:
	default:
		return nil, models.ErrForbidden
	}

	return read(ctx, app, func(ctx context.Context) ([]models.RewardLogEntry, error) {
		return app.db.ListRewards(ctx, filter)
	})
}
