package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ifcoins/internal/models"
	"ifcoins/internal/packs"
	"ifcoins/internal/policy"
)

// PurchaseCard buys one copy of a card for the calling student.
func (app *App) PurchaseCard(ctx context.Context, s models.Session, cardID, idemKey string) (*models.UserCard, error) {
	if err := policy.RequireStudent(s); err != nil {
		return nil, err
	}

	uc, err := app.db.PurchaseCard(ctx, s.UserID, cardID, strings.TrimSpace(idemKey))
	if err != nil {
		app.log.Debug("purchase failed", zap.String("buyer_id", s.UserID), zap.String("card_id", cardID), zap.Error(err))
		return nil, err
	}
	app.log.Info("card purchased", zap.String("buyer_id", s.UserID), zap.String("card_id", cardID), zap.Int64("quantity", uc.Quantity))
	return uc, nil
}

// ListCollection returns the cards owned by userID, or by the caller when userID is empty.
func (app *App) ListCollection(ctx context.Context, s models.Session, userID string) ([]models.CollectionItem, error) {
	if userID == "" {
		userID = s.UserID
	}
	if _, err := app.db.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return read(ctx, app, func(ctx context.Context) ([]models.CollectionItem, error) {
		return app.db.ListCollection(ctx, userID)
	})
}

// ListPacks returns the packs on offer. Admins also see disabled packs.
func (app *App) ListPacks(ctx context.Context, s models.Session) ([]models.Pack, error) {
	availableOnly := s.Role != models.RoleAdmin
	return read(ctx, app, func(ctx context.Context) ([]models.Pack, error) {
		return app.db.ListPacks(ctx, availableOnly)
	})
}

func (app *App) CreatePack(ctx context.Context, s models.Session, in models.PackInput) (*models.Pack, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := app.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := packs.ValidateProbabilities(in.Probabilities); err != nil {
		return nil, models.NewValidationError("invalid probabilities",
			models.FieldError{Field: "probabilities", Error: err.Error()})
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	pack, err := app.db.CreatePack(ctx, models.Pack{
		ID:              app.newID(),
		Name:            in.Name,
		Available:       available,
		LimitPerStudent: in.LimitPerStudent,
		Price:           in.Price,
		Probabilities:   in.Probabilities,
		CreatedAt:       app.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	app.log.Info("pack created", zap.String("pack_id", pack.ID))
	return pack, nil
}

// startOfMonth returns the first instant of t's calendar month in UTC.
func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// OpenPack opens a pack for the calling student. The pack limit counts
// openings since the start of the current month.
func (app *App) OpenPack(ctx context.Context, s models.Session, packID, idemKey string) (*models.PackOpening, error) {
	if err := policy.RequireStudent(s); err != nil {
		return nil, err
	}

	now := app.now().UTC()
	opening, err := app.db.OpenPack(ctx, models.PackOpening{
		ID:        app.newID(),
		PackID:    packID,
		UserID:    s.UserID,
		CreatedAt: now,
	}, strings.TrimSpace(idemKey), startOfMonth(now), app.drawer.Draw)
	if err != nil {
		app.log.Debug("pack opening failed", zap.String("user_id", s.UserID), zap.String("pack_id", packID), zap.Error(err))
		return nil, err
	}
	app.log.Info("pack opened", zap.String("user_id", s.UserID), zap.String("pack_id", packID), zap.String("card_id", opening.CardID))
	return opening, nil
}
