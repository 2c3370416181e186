// Package models defines the data structures used throughout the application.
// It includes accounts, the reward ledger, the card catalog, ownership records,
// events, packs and trades, together with the request and response payloads of the API.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session identifies the authenticated caller of an operation.
// It is passed explicitly to every use case instead of being looked up from ambient state.
type Session struct {
	UserID string
	Role   Role
}

// Account represents a user of the system.
// It holds the user's identity, immutable role and current coin balance.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Coins        int64     `json:"coins"`
	RA           string    `json:"ra,omitempty"`
	Class        string    `json:"class,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AccountFilter narrows account listings. A nil Role lists every account.
type AccountFilter struct {
	Role *Role
}

// RewardLogEntry is an immutable record of a coin grant from a teacher or admin to a student.
// Coins is the credited amount, BaseCoins the requested amount before any event multiplier.
type RewardLogEntry struct {
	ID         string          `json:"id"`
	TeacherID  string          `json:"teacherId"`
	StudentID  string          `json:"studentId"`
	Coins      int64           `json:"coins"`
	BaseCoins  int64           `json:"baseCoins"`
	Multiplier decimal.Decimal `json:"multiplier"`
	EventID    *string         `json:"eventId,omitempty"`
	Reason     string          `json:"reason"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// SameGrant reports whether other asks for the same grant as e: the same
// recipient, base amount and reason.
func (e RewardLogEntry) SameGrant(other RewardLogEntry) bool {
	return e.StudentID == other.StudentID && e.BaseCoins == other.BaseCoins && e.Reason == other.Reason
}

// RewardFilter narrows ledger listings. Empty ids are not applied.
type RewardFilter struct {
	TeacherID string
	StudentID string
	Limit     int
}

// Rarity classifies a card.
type Rarity string

// Card rarities, from the most to the least common.
const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// Rarities lists the rarities from the most to the least common.
var Rarities = []Rarity{RarityCommon, RarityRare, RarityLegendary, RarityMythic}

// Valid reports whether r is one of the fixed rarities.
func (r Rarity) Valid() bool {
	for _, v := range Rarities {
		if r == v {
			return true
		}
	}
	return false
}

// Card is a collectible item definition.
// A nil CopiesAvailable means unlimited stock.
type Card struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Rarity          Rarity    `json:"rarity"`
	Price           int64     `json:"price"`
	CopiesAvailable *int64    `json:"copiesAvailable"`
	Available       bool      `json:"available"`
	Description     string    `json:"description,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	EventID         *string   `json:"eventId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UserCard records how many copies of a card a user owns.
// There is at most one UserCard per (UserID, CardID) pair.
type UserCard struct {
	UserID     string    `json:"userId"`
	CardID     string    `json:"cardId"`
	Quantity   int64     `json:"quantity"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// CollectionItem is an ownership record joined with its card.
type CollectionItem struct {
	UserCard
	Card Card `json:"card"`
}

// EventStatus is derived from an event's window and the current time. It is never stored.
type EventStatus string

// Event statuses.
const (
	EventUpcoming EventStatus = "upcoming"
	EventActive   EventStatus = "active"
	EventFinished EventStatus = "finished"
)

// Event is a time-bounded period during which a bonus multiplier may apply to rewards.
type Event struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	BonusMultiplier decimal.Decimal `json:"bonusMultiplier"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// EventView is an event together with its status at request time.
type EventView struct {
	Event
	Status EventStatus `json:"status"`
}

// Pack is a purchasable bundle that yields one random card drawn by rarity weights.
// Probabilities are percentages per rarity summing to 100.
type Pack struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Available       bool           `json:"available"`
	LimitPerStudent int            `json:"limitPerStudent"`
	Price           int64          `json:"price"`
	Probabilities   map[Rarity]int `json:"probabilities"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// PackOpening records one opened pack and the card it yielded.
type PackOpening struct {
	ID        string    `json:"id"`
	PackID    string    `json:"packId"`
	UserID    string    `json:"userId"`
	CardID    string    `json:"cardId"`
	Card      *Card     `json:"card,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DrawFunc picks the card a pack yields among the acquirable candidates.
type DrawFunc func(pack Pack, candidates []Card) (Card, error)

// TradeStatus is the state of a trade. Only pending trades may change.
type TradeStatus string

// Trade statuses.
const (
	TradePending  TradeStatus = "pending"
	TradeAccepted TradeStatus = "accepted"
	TradeRejected TradeStatus = "rejected"
)

// Trade is a proposed exchange of cards and coins between two students.
type Trade struct {
	ID             string           `json:"id"`
	FromUserID     string           `json:"fromUserId"`
	ToUserID       string           `json:"toUserId"`
	OfferedCards   map[string]int64 `json:"offeredCards"`
	OfferedCoins   int64            `json:"offeredCoins"`
	RequestedCards map[string]int64 `json:"requestedCards"`
	RequestedCoins int64            `json:"requestedCoins"`
	Status         TradeStatus      `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Stats is the staff dashboard summary. Teachers see their own grants; admins
// see every grant plus user counts.
type Stats struct {
	CoinsGivenToday       int64        `json:"coinsGivenToday"`
	StudentsRewardedToday int          `json:"studentsRewardedToday"`
	Students              int          `json:"students"`
	Rewards               int          `json:"rewards"`
	CoinsDistributed      int64        `json:"coinsDistributed"`
	Users                 int          `json:"users,omitempty"`
	UsersByRole           map[Role]int `json:"usersByRole,omitempty"`
}

// RankingEntry is one row of a ranking view.
type RankingEntry struct {
	Position  int    `json:"position"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Class     string `json:"class,omitempty"`
	Value     int64  `json:"value"`
}

// SignUpRequest represents the signup request payload.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	RA       string `json:"ra"`
	Class    string `json:"class"`
}

// SignInRequest represents the sign-in request payload.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents the authentication response payload.
// It contains the generated token upon successful authentication.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account,omitempty"`
}

// ErrorResponse represents a generic error response payload.
// It contains a string describing the encountered error.
type ErrorResponse struct {
	Errors string       `json:"errors"`
	Fields []FieldError `json:"fields,omitempty"`
}

// GrantRequest represents the payload for granting coins to a student.
// The recipient is identified either by id or by email.
type GrantRequest struct {
	RecipientID    string `json:"recipientId" validate:"required_without=RecipientEmail"`
	RecipientEmail string `json:"recipientEmail" validate:"omitempty,email"`
	Amount         int64  `json:"amount"`
	Reason         string `json:"reason" validate:"required"`
	EventLinked    bool   `json:"eventLinked"`
	IdempotencyKey string `json:"-"`
}

// CardInput carries the admin-editable fields of a card.
type CardInput struct {
	Name            string  `json:"name" validate:"required"`
	Rarity          Rarity  `json:"rarity" validate:"required,oneof=common rare legendary mythic"`
	Price           int64   `json:"price" validate:"gte=0"`
	CopiesAvailable *int64  `json:"copiesAvailable" validate:"omitempty,gte=0"`
	Available       *bool   `json:"available"`
	Description     string  `json:"description"`
	ImageURL        string  `json:"imageUrl" validate:"omitempty,url"`
	EventID         *string `json:"eventId"`
}

// AvailabilityRequest toggles whether a card can be acquired.
type AvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// EventInput carries the admin-editable fields of an event.
// Dates are either YYYY-MM-DD or RFC 3339; a date-only end covers the whole day.
type EventInput struct {
	Name            string          `json:"name" validate:"required"`
	StartDate       string          `json:"startDate" validate:"required"`
	EndDate         string          `json:"endDate" validate:"required"`
	BonusMultiplier decimal.Decimal `json:"bonusMultiplier"`
	Description     string          `json:"description"`
}

// PackInput carries the admin-editable fields of a pack.
type PackInput struct {
	Name            string         `json:"name" validate:"required"`
	Available       *bool          `json:"available"`
	LimitPerStudent int            `json:"limitPerStudent" validate:"gte=1"`
	Price           int64          `json:"price" validate:"gte=0"`
	Probabilities   map[Rarity]int `json:"probabilities" validate:"required"`
}

// TradeProposal represents the payload for proposing a trade.
type TradeProposal struct {
	ToUserID       string           `json:"toUserId" validate:"required"`
	OfferedCards   map[string]int64 `json:"offeredCards"`
	OfferedCoins   int64            `json:"offeredCoins" validate:"gte=0"`
	RequestedCards map[string]int64 `json:"requestedCards"`
	RequestedCoins int64            `json:"requestedCoins" validate:"gte=0"`
}
