package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ifcoins/internal/models"
	"ifcoins/internal/policy"
)

// ListCards returns the catalog newest first. Only admins see unavailable cards.
func (app *App) ListCards(ctx context.Context, s models.Session, availableOnly bool) ([]models.Card, error) {
	if s.Role != models.RoleAdmin {
		availableOnly = true
	}
	return read(ctx, app, func(ctx context.Context) ([]models.Card, error) {
		return app.db.ListCards(ctx, availableOnly)
	})
}

func (app *App) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return read(ctx, app, func(ctx context.Context) (*models.Card, error) {
		return app.db.GetCard(ctx, id)
	})
}

// checkCardInput validates in and, when it names an event, that the event exists.
func (app *App) checkCardInput(ctx context.Context, in *models.CardInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := app.validator.Struct(in); err != nil {
		return err
	}
	if in.EventID == nil || *in.EventID == "" {
		in.EventID = nil
		return nil
	}

	_, err := app.db.GetEvent(ctx, *in.EventID)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewValidationError("unknown event",
			models.FieldError{Field: "eventId", Error: "event does not exist"})
	}
	return err
}

func cardFromInput(id string, in models.CardInput) models.Card {
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	return models.Card{
		ID:              id,
		Name:            in.Name,
		Rarity:          in.Rarity,
		Price:           in.Price,
		CopiesAvailable: in.CopiesAvailable,
		Available:       available,
		Description:     strings.TrimSpace(in.Description),
		ImageURL:        strings.TrimSpace(in.ImageURL),
		EventID:         in.EventID,
	}
}

// CreateCard adds a card to the catalog. Cards are available unless the input says otherwise.
func (app *App) CreateCard(ctx context.Context, s models.Session, in models.CardInput) (*models.Card, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	if err := app.checkCardInput(ctx, &in); err != nil {
		return nil, err
	}

	card := cardFromInput(app.newID(), in)
	card.CreatedAt = app.now().UTC()
	card.UpdatedAt = card.CreatedAt

	out, err := app.db.CreateCard(ctx, card)
	if err != nil {
		return nil, err
	}
	app.log.Info("card created", zap.String("card_id", out.ID), zap.String("rarity", string(out.Rarity)))
	return out, nil
}

// UpdateCard replaces the editable fields of a card. Availability and stock are kept
// when the input leaves them out; tracked stock may only be lowered.
func (app *App) UpdateCard(ctx context.Context, s models.Session, id string, in models.CardInput) (*models.Card, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	if err := app.checkCardInput(ctx, &in); err != nil {
		return nil, err
	}

	if in.Available == nil {
		current, err := app.db.GetCard(ctx, id)
		if err != nil {
			return nil, err
		}
		in.Available = &current.Available
	}

	card := cardFromInput(id, in)
	card.UpdatedAt = app.now().UTC()
	return app.db.UpdateCard(ctx, card)
}

// DeleteCard removes a card nobody owns.
func (app *App) DeleteCard(ctx context.Context, s models.Session, id string) error {
	if err := policy.RequireAdmin(s); err != nil {
		return err
	}
	if err := app.db.DeleteCard(ctx, id); err != nil {
		return err
	}
	app.log.Info("card deleted", zap.String("card_id", id))
	return nil
}

func (app *App) SetCardAvailability(ctx context.Context, s models.Session, id string, req models.AvailabilityRequest) (*models.Card, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	if err := app.validator.Struct(req); err != nil {
		return nil, err
	}
	return app.db.SetCardAvailability(ctx, id, *req.Available)
}
