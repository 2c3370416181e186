package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ifcoins/internal/bonus"
	"ifcoins/internal/models"
	"ifcoins/internal/policy"
)

func (app *App) eventFromInput(id string, in models.EventInput) (models.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := app.validator.Struct(in); err != nil {
		return models.Event{}, err
	}

	start, end, err := bonus.ParseWindow(in.StartDate, in.EndDate, time.UTC)
	if err != nil {
		return models.Event{}, models.NewValidationError(err.Error())
	}
	if end.Before(start) {
		return models.Event{}, models.NewValidationError("invalid window",
			models.FieldError{Field: "endDate", Error: "must not be before startDate"})
	}

	multiplier := in.BonusMultiplier
	if multiplier.IsZero() {
		multiplier = bonus.One
	}
	switch {
	case multiplier.LessThan(bonus.One):
		return models.Event{}, models.NewValidationError("invalid multiplier",
			models.FieldError{Field: "bonusMultiplier", Error: "must be at least 1"})
	case multiplier.GreaterThan(bonus.MaxMultiplier):
		return models.Event{}, models.NewValidationError("invalid multiplier",
			models.FieldError{Field: "bonusMultiplier", Error: "must be at most " + bonus.MaxMultiplier.String()})
	case !multiplier.Equal(multiplier.Round(bonus.MultiplierPlaces)):
		return models.Event{}, models.NewValidationError("invalid multiplier",
			models.FieldError{Field: "bonusMultiplier", Error: "must have at most 2 decimal places"})
	}

	return models.Event{
		ID:              id,
		Name:            in.Name,
		StartDate:       start,
		EndDate:         end,
		BonusMultiplier: multiplier,
		Description:     strings.TrimSpace(in.Description),
	}, nil
}

// CreateEvent schedules an event. A zero multiplier defaults to 1.
func (app *App) CreateEvent(ctx context.Context, s models.Session, in models.EventInput) (*models.EventView, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	e, err := app.eventFromInput(app.newID(), in)
	if err != nil {
		return nil, err
	}
	now := app.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	out, err := app.db.CreateEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	app.log.Info("event created", zap.String("event_id", out.ID), zap.Stringer("multiplier", out.BonusMultiplier))
	view := bonus.View(*out, now)
	return &view, nil
}

func (app *App) UpdateEvent(ctx context.Context, s models.Session, id string, in models.EventInput) (*models.EventView, error) {
	if err := policy.RequireAdmin(s); err != nil {
		return nil, err
	}
	e, err := app.eventFromInput(id, in)
	if err != nil {
		return nil, err
	}
	now := app.now().UTC()
	e.UpdatedAt = now

	out, err := app.db.UpdateEvent(ctx, e)
	if err != nil {
		return nil, err
	}
	view := bonus.View(*out, now)
	return &view, nil
}

// DeleteEvent removes an event. Cards linked to it stay in the catalog, detached.
func (app *App) DeleteEvent(ctx context.Context, s models.Session, id string) error {
	if err := policy.RequireAdmin(s); err != nil {
		return err
	}
	if err := app.db.DeleteEvent(ctx, id); err != nil {
		return err
	}
	app.log.Info("event deleted", zap.String("event_id", id))
	return nil
}

// ListEvents returns every event, latest start first, with its current status.
func (app *App) ListEvents(ctx context.Context) ([]models.EventView, error) {
	events, err := read(ctx, app, func(ctx context.Context) ([]models.Event, error) {
		return app.db.ListEvents(ctx)
	})
	if err != nil {
		return nil, err
	}

	now := app.now()
	views := make([]models.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, bonus.View(e, now))
	}
	return views, nil
}

// ActiveEvents returns the events whose window contains the current time.
func (app *App) ActiveEvents(ctx context.Context) ([]models.EventView, error) {
	events, err := read(ctx, app, func(ctx context.Context) ([]models.Event, error) {
		return app.db.ListEvents(ctx)
	})
	if err != nil {
		return nil, err
	}

	now := app.now()
	active := bonus.Active(events, now)
	views := make([]models.EventView, 0, len(active))
	for _, e := range active {
		views = append(views, bonus.View(e, now))
	}
	return views, nil
}
