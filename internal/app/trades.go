package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ifcoins/internal/models"
	"ifcoins/internal/policy"
)

func checkQuantities(field string, cards map[string]int64) error {
	for cardID, qty := range cards {
		if cardID == "" || qty < 1 {
			return models.NewValidationError("invalid quantities",
				models.FieldError{Field: field, Error: "quantities must be positive"})
		}
	}
	return nil
}

// ProposeTrade offers cards and coins to another student in exchange for theirs.
// The proposer must hold what they offer now; holdings are checked again on acceptance.
func (app *App) ProposeTrade(ctx context.Context, s models.Session, req models.TradeProposal) (*models.Trade, error) {
	if err := policy.RequireStudent(s); err != nil {
		return nil, err
	}
	if err := app.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.ToUserID == s.UserID {
		return nil, models.NewValidationError("cannot trade with yourself",
			models.FieldError{Field: "toUserId", Error: "must be another student"})
	}
	if err := checkQuantities("offeredCards", req.OfferedCards); err != nil {
		return nil, err
	}
	if err := checkQuantities("requestedCards", req.RequestedCards); err != nil {
		return nil, err
	}
	if len(req.OfferedCards) == 0 && len(req.RequestedCards) == 0 && req.OfferedCoins == 0 && req.RequestedCoins == 0 {
		return nil, models.NewValidationError("empty trade")
	}

	proposer, err := app.db.GetAccount(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	recipient, err := app.db.GetAccount(ctx, req.ToUserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewValidationError("unknown recipient",
			models.FieldError{Field: "toUserId", Error: "account does not exist"})
	}
	if err != nil {
		return nil, err
	}
	if recipient.Role != models.RoleStudent {
		return nil, models.ErrInvalidRoles
	}
	if proposer.Coins < req.OfferedCoins {
		return nil, models.ErrInsufficientFunds
	}

	if len(req.OfferedCards) > 0 {
		items, err := app.db.ListCollection(ctx, s.UserID)
		if err != nil {
			return nil, err
		}
		held := make(map[string]int64, len(items))
		for _, it := range items {
			held[it.CardID] = it.Quantity
		}
		for cardID, qty := range req.OfferedCards {
			if held[cardID] < qty {
				return nil, models.ErrInsufficientCards
			}
		}
	}

	now := app.now().UTC()
	trade, err := app.db.CreateTrade(ctx, models.Trade{
		ID:             app.newID(),
		FromUserID:     s.UserID,
		ToUserID:       req.ToUserID,
		OfferedCards:   req.OfferedCards,
		OfferedCoins:   req.OfferedCoins,
		RequestedCards: req.RequestedCards,
		RequestedCoins: req.RequestedCoins,
		Status:         models.TradePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	app.log.Info("trade proposed", zap.String("trade_id", trade.ID), zap.String("from", trade.FromUserID), zap.String("to", trade.ToUserID))
	return trade, nil
}

// RespondTrade accepts or rejects a pending trade addressed to the caller.
// Acceptance transfers cards and coins both ways or nothing at all.
func (app *App) RespondTrade(ctx context.Context, s models.Session, tradeID string, accept bool) (*models.Trade, error) {
	if err := policy.RequireStudent(s); err != nil {
		return nil, err
	}

	trade, err := app.db.SettleTrade(ctx, tradeID, s.UserID, accept)
	if err != nil {
		app.log.Debug("trade settlement failed", zap.String("trade_id", tradeID), zap.Bool("accept", accept), zap.Error(err))
		return nil, err
	}
	app.log.Info("trade settled", zap.String("trade_id", trade.ID), zap.String("status", string(trade.Status)))
	return trade, nil
}

// ListTrades returns the trades the caller sent or received, newest first.
func (app *App) ListTrades(ctx context.Context, s models.Session) ([]models.Trade, error) {
	return read(ctx, app, func(ctx context.Context) ([]models.Trade, error) {
		return app.db.ListTrades(ctx, s.UserID)
	})
}
