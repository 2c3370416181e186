package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ifcoins/internal/models"
)

const (
	ownershipColumns = `user_id, card_id, quantity, acquired_at`
	packColumns      = `id, name, available, limit_per_student, price, probabilities, created_at`

	lockCardQuery       = `SELECT ` + cardColumns + ` FROM ifcoins.cards WHERE id = $1 FOR UPDATE;`
	lockCandidatesQuery = `SELECT ` + cardColumns + ` FROM ifcoins.cards
		WHERE available AND (copies_available IS NULL OR copies_available > 0) ORDER BY id FOR UPDATE;`
	decrementStockQuery = `UPDATE ifcoins.cards SET copies_available = copies_available - 1, updated_at = now()
		WHERE id = $1 AND copies_available IS NOT NULL;`
	addOwnershipQuery = `INSERT INTO ifcoins.user_cards (user_id, card_id, quantity, acquired_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, card_id) DO UPDATE SET quantity = ifcoins.user_cards.quantity + EXCLUDED.quantity
		RETURNING ` + ownershipColumns + `;`
	getOwnershipQuery   = `SELECT ` + ownershipColumns + ` FROM ifcoins.user_cards WHERE user_id = $1 AND card_id = $2;`
	listCollectionQuery = `SELECT uc.user_id, uc.card_id, uc.quantity, uc.acquired_at,
		c.id, c.name, c.rarity, c.price, c.copies_available, c.available, c.description, c.image_url, c.event_id, c.created_at, c.updated_at
		FROM ifcoins.user_cards uc JOIN ifcoins.cards c ON c.id = uc.card_id
		WHERE uc.user_id = $1 ORDER BY uc.acquired_at DESC, uc.card_id;`
	cardTotalsQuery = `SELECT user_id, SUM(quantity)::bigint FROM ifcoins.user_cards GROUP BY user_id;`

	createPackQuery    = `INSERT INTO ifcoins.packs (` + packColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7);`
	getPackQuery       = `SELECT ` + packColumns + ` FROM ifcoins.packs WHERE id = $1;`
	listPacksQuery     = `SELECT ` + packColumns + ` FROM ifcoins.packs WHERE NOT $1 OR available ORDER BY price, name, id;`
	countOpeningsQuery = `SELECT count(*) FROM ifcoins.pack_openings WHERE user_id = $1 AND pack_id = $2 AND created_at >= $3;`
	insertOpeningQuery = `INSERT INTO ifcoins.pack_openings (id, pack_id, user_id, card_id, created_at) VALUES ($1, $2, $3, $4, $5);`
	getOpeningQuery    = `SELECT id, pack_id, user_id, card_id, created_at FROM ifcoins.pack_openings WHERE id = $1;`
)

func scanOwnership(row rowScanner) (*models.UserCard, error) {
	uc := &models.UserCard{}
	if err := row.Scan(&uc.UserID, &uc.CardID, &uc.Quantity, &uc.AcquiredAt); err != nil {
		return nil, err
	}
	return uc, nil
}

func scanPack(row rowScanner) (*models.Pack, error) {
	p := &models.Pack{}
	var probabilities []byte
	err := row.Scan(&p.ID, &p.Name, &p.Available, &p.LimitPerStudent, &p.Price, &probabilities, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(probabilities, &p.Probabilities); err != nil {
		return nil, fmt.Errorf("decode probabilities of pack %s: %w", p.ID, err)
	}
	return p, nil
}

// acquire debits price from buyerID, takes one copy of cardID out of tracked stock
// and merges it into the buyer's collection. Both rows must already be locked.
func acquire(ctx context.Context, tx *sql.Tx, buyerID, cardID string, price int64) (*models.UserCard, error) {
	if _, err := tx.ExecContext(ctx, addCoinsQuery, -price, buyerID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, decrementStockQuery, cardID); err != nil {
		return nil, err
	}
	return scanOwnership(tx.QueryRowContext(ctx, addOwnershipQuery, buyerID, cardID, 1))
}

// PurchaseCard locks the buyer then the card, checks the purchase rules and
// applies debit, stock decrement and ownership merge in one transaction.
func (postgresql *PostgreSQL) PurchaseCard(ctx context.Context, buyerID, cardID, idemKey string) (*models.UserCard, error) {
	var out *models.UserCard

	err := postgresql.inTx(ctx, "PurchaseCard", func(tx *sql.Tx) error {
		if idemKey != "" {
			storedCardID, fresh, err := claimKey(ctx, tx, buyerID, OpPurchase, idemKey, cardID)
			if err != nil {
				return err
			}
			if !fresh {
				if storedCardID != cardID {
					return models.ErrKeyReused
				}
				out, err = scanOwnership(tx.QueryRowContext(ctx, getOwnershipQuery, buyerID, storedCardID))
				return err
			}
		}

		buyer, err := scanAccount(tx.QueryRowContext(ctx, lockAccountQuery, buyerID))
		if err != nil {
			return err
		}
		card, err := scanCard(tx.QueryRowContext(ctx, lockCardQuery, cardID))
		if err != nil {
			return err
		}
		if err := models.CheckPurchase(*card, *buyer); err != nil {
			return err
		}

		out, err = acquire(ctx, tx, buyer.ID, card.ID, card.Price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCollection returns the user's cards, most recently acquired first.
func (postgresql *PostgreSQL) ListCollection(ctx context.Context, userID string) ([]models.CollectionItem, error) {
	rows, err := postgresql.db.QueryContext(ctx, listCollectionQuery, userID)
	if err != nil {
		return nil, postgresql.fail("ListCollection", err)
	}
	defer rows.Close()

	items := make([]models.CollectionItem, 0)
	for rows.Next() {
		var (
			item    models.CollectionItem
			rarity  string
			copies  sql.NullInt64
			eventID sql.NullString
		)
		err := rows.Scan(&item.UserID, &item.CardID, &item.Quantity, &item.AcquiredAt,
			&item.Card.ID, &item.Card.Name, &rarity, &item.Card.Price, &copies, &item.Card.Available,
			&item.Card.Description, &item.Card.ImageURL, &eventID, &item.Card.CreatedAt, &item.Card.UpdatedAt)
		if err != nil {
			return nil, postgresql.fail("ListCollection", err)
		}
		item.Card.Rarity = models.Rarity(rarity)
		item.Card.CopiesAvailable = nullInt(copies)
		item.Card.EventID = nullString(eventID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListCollection", err)
	}
	return items, nil
}

func (postgresql *PostgreSQL) CardTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := postgresql.db.QueryContext(ctx, cardTotalsQuery)
	if err != nil {
		return nil, postgresql.fail("CardTotals", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var (
			userID string
			total  int64
		)
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, postgresql.fail("CardTotals", err)
		}
		totals[userID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("CardTotals", err)
	}
	return totals, nil
}

func (postgresql *PostgreSQL) CreatePack(ctx context.Context, pack models.Pack) (*models.Pack, error) {
	probabilities, err := json.Marshal(pack.Probabilities)
	if err != nil {
		return nil, err
	}
	_, err = postgresql.db.ExecContext(ctx, createPackQuery, pack.ID, pack.Name, pack.Available,
		pack.LimitPerStudent, pack.Price, string(probabilities), pack.CreatedAt)
	if err != nil {
		return nil, postgresql.fail("CreatePack", err)
	}
	return &pack, nil
}

func (postgresql *PostgreSQL) GetPack(ctx context.Context, id string) (*models.Pack, error) {
	pack, err := scanPack(postgresql.db.QueryRowContext(ctx, getPackQuery, id))
	if err != nil {
		return nil, postgresql.fail("GetPack", err)
	}
	return pack, nil
}

// ListPacks returns packs cheapest first.
func (postgresql *PostgreSQL) ListPacks(ctx context.Context, availableOnly bool) ([]models.Pack, error) {
	rows, err := postgresql.db.QueryContext(ctx, listPacksQuery, availableOnly)
	if err != nil {
		return nil, postgresql.fail("ListPacks", err)
	}
	defer rows.Close()

	packs := make([]models.Pack, 0)
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			return nil, postgresql.fail("ListPacks", err)
		}
		packs = append(packs, *pack)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListPacks", err)
	}
	return packs, nil
}

// OpenPack locks the buyer, enforces the pack's availability, limit and price,
// then locks the acquirable cards, lets draw pick one and grants it.
func (postgresql *PostgreSQL) OpenPack(ctx context.Context, opening models.PackOpening, idemKey string, since time.Time, draw models.DrawFunc) (*models.PackOpening, error) {
	var out *models.PackOpening

	err := postgresql.inTx(ctx, "OpenPack", func(tx *sql.Tx) error {
		if idemKey != "" {
			id, fresh, err := claimKey(ctx, tx, opening.UserID, OpOpenPack, idemKey, opening.ID)
			if err != nil {
				return err
			}
			if !fresh {
				out, err = loadOpening(ctx, tx, id)
				if err == nil && out.PackID != opening.PackID {
					return models.ErrKeyReused
				}
				return err
			}
		}

		pack, err := scanPack(tx.QueryRowContext(ctx, getPackQuery, opening.PackID))
		if err != nil {
			return err
		}
		if !pack.Available {
			return models.ErrPackUnavailable
		}

		buyer, err := scanAccount(tx.QueryRowContext(ctx, lockAccountQuery, opening.UserID))
		if err != nil {
			return err
		}

		var opened int
		if err := tx.QueryRowContext(ctx, countOpeningsQuery, buyer.ID, pack.ID, since).Scan(&opened); err != nil {
			return err
		}
		if opened >= pack.LimitPerStudent {
			return models.ErrPackLimitReached
		}
		if buyer.Coins < pack.Price {
			return models.ErrInsufficientFunds
		}

		candidates, err := lockCandidates(ctx, tx)
		if err != nil {
			return err
		}
		card, err := draw(*pack, candidates)
		if err != nil {
			return err
		}

		if _, err := acquire(ctx, tx, buyer.ID, card.ID, pack.Price); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertOpeningQuery, opening.ID, pack.ID, buyer.ID, card.ID, opening.CreatedAt); err != nil {
			return err
		}

		if card.CopiesAvailable != nil {
			left := *card.CopiesAvailable - 1
			card.CopiesAvailable = &left
		}
		opening.CardID = card.ID
		opening.Card = &card
		out = &opening
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockCandidates(ctx context.Context, tx *sql.Tx) ([]models.Card, error) {
	rows, err := tx.QueryContext(ctx, lockCandidatesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

func loadOpening(ctx context.Context, tx *sql.Tx, id string) (*models.PackOpening, error) {
	o := &models.PackOpening{}
	err := tx.QueryRowContext(ctx, getOpeningQuery, id).Scan(&o.ID, &o.PackID, &o.UserID, &o.CardID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	card, err := scanCard(tx.QueryRowContext(ctx, getCardQuery, o.CardID))
	if err != nil {
		return nil, err
	}
	o.Card = card
	return o, nil
}
