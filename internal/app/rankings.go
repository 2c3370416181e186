package app

import (
	"context"

	"ifcoins/internal/models"
	"ifcoins/internal/ranking"
)

func (app *App) accounts(ctx context.Context) ([]models.Account, error) {
	return read(ctx, app, func(ctx context.Context) ([]models.Account, error) {
		return app.db.ListAccounts(ctx, models.AccountFilter{})
	})
}

func (app *App) limit(limit int) int {
	if limit <= 0 {
		return app.rankingLimit
	}
	return limit
}

// CoinRanking ranks every account by balance.
func (app *App) CoinRanking(ctx context.Context, limit int) ([]models.RankingEntry, error) {
	accounts, err := app.accounts(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.ByCoins(accounts, app.limit(limit)), nil
}

// CardRanking ranks every account by the number of cards it owns.
func (app *App) CardRanking(ctx context.Context, limit int) ([]models.RankingEntry, error) {
	accounts, err := app.accounts(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := read(ctx, app, app.db.CardTotals)
	if err != nil {
		return nil, err
	}
	return ranking.ByCards(accounts, totals, app.limit(limit)), nil
}
