package storage

import (
	"context"
	"database/sql"

	"ifcoins/internal/models"
)

const (
	cardColumns  = `id, name, rarity, price, copies_available, available, description, image_url, event_id, created_at, updated_at`
	eventColumns = `id, name, start_date, end_date, bonus_multiplier, description, created_at, updated_at`

	createCardQuery    = `INSERT INTO ifcoins.cards (` + cardColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	lockCardStockQuery = `SELECT copies_available FROM ifcoins.cards WHERE id = $1 FOR UPDATE;`
	updateCardQuery    = `UPDATE ifcoins.cards SET name = $2, rarity = $3, price = $4, copies_available = COALESCE($5, copies_available),
		available = $6, description = $7, image_url = $8, event_id = $9, updated_at = $10 WHERE id = $1 RETURNING ` + cardColumns + `;`
	deleteCardQuery          = `DELETE FROM ifcoins.cards WHERE id = $1;`
	setCardAvailabilityQuery = `UPDATE ifcoins.cards SET available = $2, updated_at = now() WHERE id = $1 RETURNING ` + cardColumns + `;`
	getCardQuery             = `SELECT ` + cardColumns + ` FROM ifcoins.cards WHERE id = $1;`
	listCardsQuery           = `SELECT ` + cardColumns + ` FROM ifcoins.cards WHERE NOT $1 OR available ORDER BY created_at DESC, id;`

	createEventQuery = `INSERT INTO ifcoins.events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	updateEventQuery = `UPDATE ifcoins.events SET name = $2, start_date = $3, end_date = $4, bonus_multiplier = $5,
		description = $6, updated_at = $7 WHERE id = $1 RETURNING ` + eventColumns + `;`
	deleteEventQuery = `DELETE FROM ifcoins.events WHERE id = $1;`
	getEventQuery    = `SELECT ` + eventColumns + ` FROM ifcoins.events WHERE id = $1;`
	listEventsQuery  = `SELECT ` + eventColumns + ` FROM ifcoins.events ORDER BY start_date DESC, id;`
)

func scanCard(row rowScanner) (*models.Card, error) {
	card := &models.Card{}
	var (
		rarity  string
		copies  sql.NullInt64
		eventID sql.NullString
	)
	err := row.Scan(&card.ID, &card.Name, &rarity, &card.Price, &copies, &card.Available,
		&card.Description, &card.ImageURL, &eventID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	card.Rarity = models.Rarity(rarity)
	card.CopiesAvailable = nullInt(copies)
	card.EventID = nullString(eventID)
	return card, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.BonusMultiplier,
		&e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func cardArgs(card models.Card) []any {
	return []any{card.ID, card.Name, string(card.Rarity), card.Price, card.CopiesAvailable, card.Available,
		card.Description, card.ImageURL, card.EventID}
}

// CreateCard inserts a card. An unknown event id fails with ErrConflict.
func (postgresql *PostgreSQL) CreateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	args := append(cardArgs(card), card.CreatedAt, card.UpdatedAt)
	if _, err := postgresql.db.ExecContext(ctx, createCardQuery, args...); err != nil {
		return nil, postgresql.fail("CreateCard", err)
	}
	return &card, nil
}

// UpdateCard replaces the editable fields of a card, keeping its creation time.
// A nil CopiesAvailable keeps the stock; the card row is locked so a concurrent
// purchase cannot slip between the stock check and the update.
func (postgresql *PostgreSQL) UpdateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	var updated *models.Card
	err := postgresql.inTx(ctx, "UpdateCard", func(tx *sql.Tx) error {
		var copies sql.NullInt64
		if err := tx.QueryRowContext(ctx, lockCardStockQuery, card.ID).Scan(&copies); err != nil {
			return err
		}
		if err := models.CheckStockEdit(nullInt(copies), card.CopiesAvailable); err != nil {
			return err
		}

		args := append(cardArgs(card), card.UpdatedAt)
		var err error
		updated, err = scanCard(tx.QueryRowContext(ctx, updateCardQuery, args...))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCard removes a card nobody owns. Owned cards fail with ErrConflict.
func (postgresql *PostgreSQL) DeleteCard(ctx context.Context, id string) error {
	result, err := postgresql.db.ExecContext(ctx, deleteCardQuery, id)
	if err != nil {
		return postgresql.fail("DeleteCard", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgresql.fail("DeleteCard", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (postgresql *PostgreSQL) SetCardAvailability(ctx context.Context, id string, available bool) (*models.Card, error) {
	card, err := scanCard(postgresql.db.QueryRowContext(ctx, setCardAvailabilityQuery, id, available))
	if err != nil {
		return nil, postgresql.fail("SetCardAvailability", err)
	}
	return card, nil
}

func (postgresql *PostgreSQL) GetCard(ctx context.Context, id string) (*models.Card, error) {
	card, err := scanCard(postgresql.db.QueryRowContext(ctx, getCardQuery, id))
	if err != nil {
		return nil, postgresql.fail("GetCard", err)
	}
	return card, nil
}

// ListCards returns cards newest first, only available ones when availableOnly is set.
func (postgresql *PostgreSQL) ListCards(ctx context.Context, availableOnly bool) ([]models.Card, error) {
	rows, err := postgresql.db.QueryContext(ctx, listCardsQuery, availableOnly)
	if err != nil {
		return nil, postgresql.fail("ListCards", err)
	}
	defer rows.Close()

	cards := make([]models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, postgresql.fail("ListCards", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListCards", err)
	}
	return cards, nil
}

func (postgresql *PostgreSQL) CreateEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	_, err := postgresql.db.ExecContext(ctx, createEventQuery, e.ID, e.Name, e.StartDate, e.EndDate,
		e.BonusMultiplier.String(), e.Description, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return nil, postgresql.fail("CreateEvent", err)
	}
	return &e, nil
}

func (postgresql *PostgreSQL) UpdateEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	updated, err := scanEvent(postgresql.db.QueryRowContext(ctx, updateEventQuery, e.ID, e.Name, e.StartDate,
		e.EndDate, e.BonusMultiplier.String(), e.Description, e.UpdatedAt))
	if err != nil {
		return nil, postgresql.fail("UpdateEvent", err)
	}
	return updated, nil
}

// DeleteEvent removes the event; the foreign keys detach its cards and ledger entries.
func (postgresql *PostgreSQL) DeleteEvent(ctx context.Context, id string) error {
	result, err := postgresql.db.ExecContext(ctx, deleteEventQuery, id)
	if err != nil {
		return postgresql.fail("DeleteEvent", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgresql.fail("DeleteEvent", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (postgresql *PostgreSQL) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(postgresql.db.QueryRowContext(ctx, getEventQuery, id))
	if err != nil {
		return nil, postgresql.fail("GetEvent", err)
	}
	return e, nil
}

// ListEvents returns events, latest start first.
func (postgresql *PostgreSQL) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := postgresql.db.QueryContext(ctx, listEventsQuery)
	if err != nil {
		return nil, postgresql.fail("ListEvents", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, postgresql.fail("ListEvents", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresql.fail("ListEvents", err)
	}
	return events, nil
}
