package app

import (
	"context"
	"time"

	"ifcoins/internal/models"
)

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Stats summarizes grants for the staff dashboards. "Today" is the current UTC day.
func (app *App) Stats(ctx context.Context, s models.Session) (*models.Stats, error) {
	filter := models.RewardFilter{}
	switch s.Role {
	case models.RoleTeacher:
		filter.TeacherID = s.UserID
	case models.RoleAdmin:
	default:
		return nil, models.ErrForbidden
	}

	entries, err := read(ctx, app, func(ctx context.Context) ([]models.RewardLogEntry, error) {
		return app.db.ListRewards(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	accounts, err := read(ctx, app, func(ctx context.Context) ([]models.Account, error) {
		return app.db.ListAccounts(ctx, models.AccountFilter{})
	})
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{Rewards: len(entries)}
	today := startOfDay(app.now())
	rewarded := make(map[string]struct{})
	for _, e := range entries {
		stats.CoinsDistributed += e.Coins
		if !e.CreatedAt.Before(today) {
			stats.CoinsGivenToday += e.Coins
			rewarded[e.StudentID] = struct{}{}
		}
	}
	stats.StudentsRewardedToday = len(rewarded)

	byRole := make(map[models.Role]int)
	for _, acc := range accounts {
		byRole[acc.Role]++
	}
	stats.Students = byRole[models.RoleStudent]
	if s.Role == models.RoleAdmin {
		stats.Users = len(accounts)
		stats.UsersByRole = byRole
	}
	return stats, nil
}
