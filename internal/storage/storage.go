// Package storage persists accounts, the reward ledger, the card catalog,
// ownership, events, packs and trades. It defines the Storage interface with
// a PostgreSQL implementation and an in-memory one used for local runs and tests.
//
// Every mutating method is all-or-nothing: a returned error means no write took effect.
package storage

import (
	"context"
	"time"

	"ifcoins/internal/models"
)

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

// Idempotency operation names.
const (
	OpGrant    = "grant"
	OpPurchase = "purchase"
	OpOpenPack = "open_pack"
)

// Storage defines the methods required for data storage operations.
type Storage interface {
	// Close releases the underlying resources.
	Close()

	// Accounts.
	CreateAccount(ctx context.Context, acc models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)

	// GrantCoins credits entry.Coins to entry.StudentID and appends entry to the ledger
	// in one unit. A non-empty idemKey already used by entry.TeacherID returns the
	// original entry without writing.
	GrantCoins(ctx context.Context, entry models.RewardLogEntry, idemKey string) (*models.RewardLogEntry, error)
	ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.RewardLogEntry, error)

	// Card catalog.
	CreateCard(ctx context.Context, card models.Card) (*models.Card, error)
	UpdateCard(ctx context.Context, card models.Card) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	SetCardAvailability(ctx context.Context, id string, available bool) (*models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	ListCards(ctx context.Context, availableOnly bool) ([]models.Card, error)

	// PurchaseCard debits the buyer, decrements tracked stock and merges ownership.
	PurchaseCard(ctx context.Context, buyerID, cardID, idemKey string) (*models.UserCard, error)
	ListCollection(ctx context.Context, userID string) ([]models.CollectionItem, error)
	// CardTotals returns the total owned card quantity per account id.
	CardTotals(ctx context.Context) (map[string]int64, error)

	// Packs.
	CreatePack(ctx context.Context, pack models.Pack) (*models.Pack, error)
	GetPack(ctx context.Context, id string) (*models.Pack, error)
	ListPacks(ctx context.Context, availableOnly bool) ([]models.Pack, error)
	// OpenPack checks the pack's limit counting openings since the given time, debits
	// the price and grants the card chosen by draw among acquirable candidates.
	OpenPack(ctx context.Context, opening models.PackOpening, idemKey string, since time.Time, draw models.DrawFunc) (*models.PackOpening, error)

	// Events.
	CreateEvent(ctx context.Context, e models.Event) (*models.Event, error)
	UpdateEvent(ctx context.Context, e models.Event) (*models.Event, error)
	// DeleteEvent removes the event and detaches its cards.
	DeleteEvent(ctx context.Context, id string) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)

	// Trades.
	CreateTrade(ctx context.Context, t models.Trade) (*models.Trade, error)
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)
	// SettleTrade moves a pending trade to accepted or rejected on behalf of its recipient.
	// Acceptance transfers cards and coins both ways atomically.
	SettleTrade(ctx context.Context, tradeID, actorID string, accept bool) (*models.Trade, error)

	// PurgeIdempotencyKeys deletes keys recorded before the given time.
	PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
}
