package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"ifcoins/internal/models"
)

const (
	tradeColumns = `id, from_user_id, to_user_id, offered_cards, offered_coins, requested_cards, requested_coins, status, created_at, updated_at`

	createTradeQuery = `INSERT INTO ifcoins.trades (` + tradeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	getTradeQuery    = `SELECT ` + tradeColumns + ` FROM ifcoins.trades WHERE id = $1;`
	lockTradeQuery   = `SELECT ` + tradeColumns + ` FROM ifcoins.trades WHERE id = $1 FOR UPDATE;`
	listTradesQuery  = `SELECT ` + tradeColumns + ` FROM ifcoins.trades
		WHERE from_user_id = $1 OR to_user_id = $1 ORDER BY created_at DESC, id;`
	setTradeStatusQuery = `UPDATE ifcoins.trades SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + tradeColumns + `;`

	lockOwnershipQuery   = `SELECT quantity FROM ifcoins.user_cards WHERE user_id = $1 AND card_id = $2 FOR UPDATE;`
	deleteOwnershipQuery = `DELETE FROM ifcoins.user_cards WHERE user_id = $1 AND card_id = $2;`
	takeOwnershipQuery   = `UPDATE ifcoins.user_cards SET quantity = quantity - $3 WHERE user_id = $1 AND card_id = $2;`
)

func cardsJSON(cards map[string]int64) (string, error) {
	if cards == nil {
		cards = map[string]int64{}
	}
	b, err := json.Marshal(cards)
	return string(b), err
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	t := &models.Trade{}
	var offered, requested []byte
	var status string
	err := row.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &offered, &t.OfferedCoins, &requested,
		&t.RequestedCoins, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TradeStatus(status)
	if err := json.Unmarshal(offered, &t.OfferedCards); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(requested, &t.RequestedCards); err != nil {
		return nil, err
	}
	return t, nil
}

func (postgresql *PostgreSQL) CreateTrade(ctx context.Context, t models.Trade) (*models.Trade, error) {
	offered, err := cardsJSON(t.OfferedCards)
	if err != nil {
		return nil, err
	}
	requested, err := cardsJSON(t.RequestedCards)
	if err != nil {
		return nil, err
	}

	_, err = postgresql.db.ExecContext(ctx, createTradeQuery, t.ID, t.FromUserID, t.ToUserID, offered, t.OfferedCoins,
		requested, t.RequestedCoins, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, postgresql.fail("CreateTrade", err)
	}
	return &t, nil
}

func (postgresql *PostgreSQL) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	t, err := scanTrade(postgresql.db.QueryRowContext(ctx, getTradeQuery, id))
	if err != nil {
		return nil, postgresql.fail("GetTrade", err)
	}
	return t, nil
}

// ListTrades returns trades sent or received by the user, newest first.
func (postgresql *PostgreSQL) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	rows, err := postgresql.db.QueryContext(ctx, listTradesQuery, userID)
	if err != nil {
		return nil, postgresql.fail("ListTrades", err)
	}
	defer rows.Close()

	trades := make([]models.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, postgresql.fail("ListTrades", err)
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListTrades", err)
	}
	return trades, nil
}

// SettleTrade locks the trade, then on acceptance both accounts in id order, then
// the ownership rows involved, and swaps cards and coins. Any shortfall rolls back
// and leaves the trade pending.
func (postgresql *PostgreSQL) SettleTrade(ctx context.Context, tradeID, actorID string, accept bool) (*models.Trade, error) {
	var out *models.Trade

	err := postgresql.inTx(ctx, "SettleTrade", func(tx *sql.Tx) error {
		trade, err := scanTrade(tx.QueryRowContext(ctx, lockTradeQuery, tradeID))
		if err != nil {
			return err
		}
		if trade.ToUserID != actorID {
			return models.ErrForbidden
		}

		next := models.TradeRejected
		if accept {
			next = models.TradeAccepted
		}
		if !trade.CanTransition(next) {
			return models.ErrConflict
		}

		if accept {
			if err := swap(ctx, tx, trade); err != nil {
				return err
			}
		}

		out, err = scanTrade(tx.QueryRowContext(ctx, setTradeStatusQuery, trade.ID, string(next)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func swap(ctx context.Context, tx *sql.Tx, t *models.Trade) error {
	ids := []string{t.FromUserID, t.ToUserID}
	sort.Strings(ids)
	balances := make(map[string]int64, 2)
	for _, id := range ids {
		acc, err := scanAccount(tx.QueryRowContext(ctx, lockAccountQuery, id))
		if err != nil {
			return err
		}
		balances[id] = acc.Coins
	}

	if balances[t.FromUserID] < t.OfferedCoins || balances[t.ToUserID] < t.RequestedCoins {
		return models.ErrInsufficientFunds
	}

	if err := takeCards(ctx, tx, t.FromUserID, t.OfferedCards); err != nil {
		return err
	}
	if err := takeCards(ctx, tx, t.ToUserID, t.RequestedCards); err != nil {
		return err
	}
	if err := giveCards(ctx, tx, t.ToUserID, t.OfferedCards); err != nil {
		return err
	}
	if err := giveCards(ctx, tx, t.FromUserID, t.RequestedCards); err != nil {
		return err
	}

	if delta := t.RequestedCoins - t.OfferedCoins; delta != 0 {
		if _, err := tx.ExecContext(ctx, addCoinsQuery, delta, t.FromUserID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, addCoinsQuery, -delta, t.ToUserID); err != nil {
			return err
		}
	}
	return nil
}

func sortedCardIDs(cards map[string]int64) []string {
	ids := make([]string, 0, len(cards))
	for id := range cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func takeCards(ctx context.Context, tx *sql.Tx, userID string, cards map[string]int64) error {
	for _, cardID := range sortedCardIDs(cards) {
		want := cards[cardID]
		var have int64
		err := tx.QueryRowContext(ctx, lockOwnershipQuery, userID, cardID).Scan(&have)
		if err == sql.ErrNoRows || (err == nil && have < want) {
			return models.ErrInsufficientCards
		}
		if err != nil {
			return err
		}

		if have == want {
			_, err = tx.ExecContext(ctx, deleteOwnershipQuery, userID, cardID)
		} else {
			_, err = tx.ExecContext(ctx, takeOwnershipQuery, userID, cardID, want)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func giveCards(ctx context.Context, tx *sql.Tx, userID string, cards map[string]int64) error {
	for _, cardID := range sortedCardIDs(cards) {
		if _, err := tx.ExecContext(ctx, addOwnershipQuery, userID, cardID, cards[cardID]); err != nil {
			return err
		}
	}
	return nil
}
