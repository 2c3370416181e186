package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

var epoch = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	c := &clock{now: epoch}
	return NewMemory(c.Now)
}

func addAccount(t *testing.T, m *Memory, id string, role models.Role, coins int64) {
	t.Helper()
	_, err := m.CreateAccount(context.Background(), models.Account{
		ID:        id,
		Role:      role,
		Name:      id,
		Email:     id + "@example.com",
		Coins:     coins,
		CreatedAt: epoch,
	})
	require.NoError(t, err)
}

func addCard(t *testing.T, m *Memory, id string, price int64, copies *int64) {
	t.Helper()
	_, err := m.CreateCard(context.Background(), models.Card{
		ID:              id,
		Name:            id,
		Rarity:          models.RarityCommon,
		Price:           price,
		CopiesAvailable: copies,
		Available:       true,
		CreatedAt:       epoch,
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestMemory_CreateAccount_DuplicateEmail(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "ana", models.RoleStudent, 0)

	_, err := m.CreateAccount(context.Background(), models.Account{ID: "other", Email: "ANA@example.com", Role: models.RoleStudent})
	assert.ErrorIs(t, err, models.ErrConflict)

	acc, err := m.GetAccountByEmail(context.Background(), "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana", acc.ID)
}

func TestMemory_ListAccounts(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "carol", models.RoleStudent, 0)
	addAccount(t, m, "bob", models.RoleTeacher, 0)
	addAccount(t, m, "alice", models.RoleStudent, 0)

	all, err := m.ListAccounts(context.Background(), models.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].ID)
	assert.Equal(t, "carol", all[2].ID)

	students, err := m.ListAccounts(context.Background(), models.AccountFilter{Role: ptr(models.RoleStudent)})
	require.NoError(t, err)
	require.Len(t, students, 2)
	for _, s := range students {
		assert.Equal(t, models.RoleStudent, s.Role)
	}
}

func TestMemory_GrantCoins(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "teacher", models.RoleTeacher, 0)
	addAccount(t, m, "student", models.RoleStudent, 10)

	entry := models.RewardLogEntry{
		ID: "r1", TeacherID: "teacher", StudentID: "student",
		Coins: 30, BaseCoins: 15, Multiplier: decimal.NewFromInt(2), Reason: "quiz", CreatedAt: epoch,
	}
	_, err := m.GrantCoins(context.Background(), entry, "key-1")
	require.NoError(t, err)

	acc, err := m.GetAccount(context.Background(), "student")
	require.NoError(t, err)
	assert.Equal(t, int64(40), acc.Coins)

	t.Run("replay returns the stored entry", func(t *testing.T) {
		again := entry
		again.ID = "r2"
		got, err := m.GrantCoins(context.Background(), again, "key-1")
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)

		acc, err := m.GetAccount(context.Background(), "student")
		require.NoError(t, err)
		assert.Equal(t, int64(40), acc.Coins)
	})

	t.Run("key reused for another grant", func(t *testing.T) {
		other := entry
		other.ID = "r5"
		other.BaseCoins = 50
		other.Coins = 50
		_, err := m.GrantCoins(context.Background(), other, "key-1")
		assert.ErrorIs(t, err, models.ErrKeyReused)
		assert.ErrorIs(t, err, models.ErrConflict)

		other = entry
		other.ID = "r6"
		other.Reason = "homework"
		_, err = m.GrantCoins(context.Background(), other, "key-1")
		assert.ErrorIs(t, err, models.ErrConflict)

		acc, err := m.GetAccount(context.Background(), "student")
		require.NoError(t, err)
		assert.Equal(t, int64(40), acc.Coins)
	})

	t.Run("teacher recipient is rejected", func(t *testing.T) {
		bad := entry
		bad.ID = "r3"
		bad.StudentID = "teacher"
		_, err := m.GrantCoins(context.Background(), bad, "")
		assert.ErrorIs(t, err, models.ErrInvalidRoles)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		bad := entry
		bad.ID = "r4"
		bad.StudentID = "ghost"
		_, err := m.GrantCoins(context.Background(), bad, "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	entries, err := m.ListRewards(context.Background(), models.RewardFilter{StudentID: "student"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Multiplier.Equal(decimal.NewFromInt(2)))
}

func TestMemory_GrantCoins_Concurrent(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "teacher", models.RoleTeacher, 0)
	addAccount(t, m, "student", models.RoleStudent, 0)

	const grants = 50
	var wg sync.WaitGroup
	for i := 0; i < grants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.GrantCoins(context.Background(), models.RewardLogEntry{
				ID: fmt.Sprintf("r%d", i), TeacherID: "teacher", StudentID: "student",
				Coins: 3, BaseCoins: 3, Multiplier: decimal.NewFromInt(1), Reason: "r",
			}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	acc, err := m.GetAccount(context.Background(), "student")
	require.NoError(t, err)
	entries, err := m.ListRewards(context.Background(), models.RewardFilter{StudentID: "student"})
	require.NoError(t, err)

	var sum int64
	for _, e := range entries {
		sum += e.Coins
	}
	assert.Len(t, entries, grants)
	assert.Equal(t, sum, acc.Coins)
}

func TestMemory_ListRewards_Limit(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "teacher", models.RoleTeacher, 0)
	addAccount(t, m, "student", models.RoleStudent, 0)

	for i := 0; i < 5; i++ {
		_, err := m.GrantCoins(context.Background(), models.RewardLogEntry{
			ID: fmt.Sprintf("r%d", i), TeacherID: "teacher", StudentID: "student",
			Coins: 1, Reason: "r", CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		}, "")
		require.NoError(t, err)
	}

	entries, err := m.ListRewards(context.Background(), models.RewardFilter{TeacherID: "teacher", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "r4", entries[0].ID)
	assert.Equal(t, "r3", entries[1].ID)
}

func TestMemory_PurchaseCard(t *testing.T) {
	testCases := []struct {
		name    string
		coins   int64
		card    models.Card
		wantErr error
	}{
		{
			name:  "unlimited stock",
			coins: 100,
			card:  models.Card{ID: "c", Price: 40, Available: true},
		},
		{
			name:    "unavailable",
			coins:   100,
			card:    models.Card{ID: "c", Price: 40, Available: false},
			wantErr: models.ErrCardUnavailable,
		},
		{
			name:    "out of stock",
			coins:   100,
			card:    models.Card{ID: "c", Price: 40, Available: true, CopiesAvailable: ptr(int64(0))},
			wantErr: models.ErrOutOfStock,
		},
		{
			name:    "insufficient funds",
			coins:   39,
			card:    models.Card{ID: "c", Price: 40, Available: true},
			wantErr: models.ErrInsufficientFunds,
		},
		{
			name:  "exact balance",
			coins: 40,
			card:  models.Card{ID: "c", Price: 40, Available: true, CopiesAvailable: ptr(int64(1))},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMemory(t)
			addAccount(t, m, "s", models.RoleStudent, tc.coins)
			_, err := m.CreateCard(context.Background(), tc.card)
			require.NoError(t, err)

			uc, err := m.PurchaseCard(context.Background(), "s", "c", "")
			acc, getErr := m.GetAccount(context.Background(), "s")
			require.NoError(t, getErr)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.coins, acc.Coins)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), uc.Quantity)
			assert.Equal(t, tc.coins-tc.card.Price, acc.Coins)

			card, err := m.GetCard(context.Background(), "c")
			require.NoError(t, err)
			if tc.card.CopiesAvailable != nil {
				assert.Equal(t, *tc.card.CopiesAvailable-1, *card.CopiesAvailable)
			} else {
				assert.Nil(t, card.CopiesAvailable)
			}
		})
	}
}

func TestMemory_PurchaseCard_MergesOwnership(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "c", 10, nil)

	_, err := m.PurchaseCard(context.Background(), "s", "c", "")
	require.NoError(t, err)
	uc, err := m.PurchaseCard(context.Background(), "s", "c", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), uc.Quantity)

	items, err := m.ListCollection(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Quantity)
	assert.Equal(t, "c", items[0].Card.ID)

	totals, err := m.CardTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals["s"])
}

func TestMemory_PurchaseCard_Idempotent(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "c", 10, nil)

	for i := 0; i < 3; i++ {
		uc, err := m.PurchaseCard(context.Background(), "s", "c", "once")
		require.NoError(t, err)
		assert.Equal(t, int64(1), uc.Quantity)
	}

	acc, err := m.GetAccount(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, int64(90), acc.Coins)

	addCard(t, m, "other", 10, nil)
	_, err = m.PurchaseCard(context.Background(), "s", "other", "once")
	assert.ErrorIs(t, err, models.ErrConflict)

	acc, err = m.GetAccount(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, int64(90), acc.Coins)
}

func TestMemory_PurchaseCard_NoOversell(t *testing.T) {
	m := newTestMemory(t)
	addCard(t, m, "c", 1, ptr(int64(3)))

	const buyers = 20
	for i := 0; i < buyers; i++ {
		addAccount(t, m, fmt.Sprintf("s%d", i), models.RoleStudent, 5)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.PurchaseCard(context.Background(), fmt.Sprintf("s%d", i), "c", "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrOutOfStock)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	card, err := m.GetCard(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, int64(0), *card.CopiesAvailable)
}

func TestMemory_UpdateCard_Stock(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "tracked", 10, ptr(int64(1)))
	addCard(t, m, "unlimited", 10, nil)
	_, err := m.PurchaseCard(context.Background(), "s", "tracked", "")
	require.NoError(t, err)

	edit := func(id string, copies *int64) (*models.Card, error) {
		return m.UpdateCard(context.Background(), models.Card{
			ID: id, Name: id, Rarity: models.RarityCommon, Price: 10, CopiesAvailable: copies, Available: true,
		})
	}

	card, err := edit("tracked", nil)
	require.NoError(t, err)
	require.NotNil(t, card.CopiesAvailable, "sold-out card must stay tracked")
	assert.Equal(t, int64(0), *card.CopiesAvailable)

	var vErr *models.ValidationError
	_, err = edit("tracked", ptr(int64(5)))
	require.ErrorAs(t, err, &vErr)

	_, err = edit("unlimited", ptr(int64(5)))
	require.ErrorAs(t, err, &vErr)

	card, err = edit("unlimited", nil)
	require.NoError(t, err)
	assert.Nil(t, card.CopiesAvailable)

	stored, err := m.GetCard(context.Background(), "tracked")
	require.NoError(t, err)
	assert.Equal(t, int64(0), *stored.CopiesAvailable)

	_, err = edit("missing", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemory_DeleteCard(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "owned", 10, nil)
	addCard(t, m, "free", 10, nil)
	_, err := m.PurchaseCard(context.Background(), "s", "owned", "")
	require.NoError(t, err)

	assert.ErrorIs(t, m.DeleteCard(context.Background(), "owned"), models.ErrConflict)
	assert.NoError(t, m.DeleteCard(context.Background(), "free"))
	assert.ErrorIs(t, m.DeleteCard(context.Background(), "free"), models.ErrNotFound)
}

func TestMemory_DeleteEvent_DetachesCards(t *testing.T) {
	m := newTestMemory(t)
	_, err := m.CreateEvent(context.Background(), models.Event{
		ID: "e", Name: "Semana", StartDate: epoch, EndDate: epoch.Add(24 * time.Hour), BonusMultiplier: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	_, err = m.CreateCard(context.Background(), models.Card{ID: "c", Available: true, EventID: ptr("e")})
	require.NoError(t, err)

	_, err = m.CreateCard(context.Background(), models.Card{ID: "bad", EventID: ptr("ghost")})
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, m.DeleteEvent(context.Background(), "e"))
	card, err := m.GetCard(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, card.EventID)
}

func TestMemory_CreateEvent_Window(t *testing.T) {
	m := newTestMemory(t)
	_, err := m.CreateEvent(context.Background(), models.Event{
		ID: "e", StartDate: epoch, EndDate: epoch.Add(-time.Hour), BonusMultiplier: decimal.NewFromInt(1),
	})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func firstCandidate(_ models.Pack, candidates []models.Card) (models.Card, error) {
	if len(candidates) == 0 {
		return models.Card{}, models.ErrOutOfStock
	}
	return candidates[0], nil
}

func TestMemory_OpenPack(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "c", 0, ptr(int64(5)))
	_, err := m.CreatePack(ctx, models.Pack{
		ID: "p", Name: "Basic", Available: true, LimitPerStudent: 2, Price: 20,
		Probabilities: map[models.Rarity]int{models.RarityCommon: 100},
	})
	require.NoError(t, err)

	open := func(id, key string) (*models.PackOpening, error) {
		return m.OpenPack(ctx, models.PackOpening{ID: id, PackID: "p", UserID: "s", CreatedAt: epoch}, key, epoch.Add(-time.Hour), firstCandidate)
	}

	first, err := open("o1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "c", first.CardID)
	require.NotNil(t, first.Card)
	assert.Equal(t, int64(4), *first.Card.CopiesAvailable)

	replay, err := open("o-replay", "k1")
	require.NoError(t, err)
	assert.Equal(t, "o1", replay.ID)

	_, err = m.CreatePack(ctx, models.Pack{
		ID: "p2", Name: "Other", Available: true, LimitPerStudent: 1, Price: 1,
		Probabilities: map[models.Rarity]int{models.RarityCommon: 100},
	})
	require.NoError(t, err)
	_, err = m.OpenPack(ctx, models.PackOpening{ID: "o-other", PackID: "p2", UserID: "s", CreatedAt: epoch}, "k1", epoch.Add(-time.Hour), firstCandidate)
	assert.ErrorIs(t, err, models.ErrKeyReused)

	_, err = open("o2", "k2")
	require.NoError(t, err)

	_, err = open("o3", "k3")
	assert.ErrorIs(t, err, models.ErrPackLimitReached)

	acc, err := m.GetAccount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(60), acc.Coins)

	items, err := m.ListCollection(ctx, "s")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Quantity)
}

func TestMemory_OpenPack_Rules(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 10)
	_, err := m.CreatePack(ctx, models.Pack{ID: "closed", Available: false, LimitPerStudent: 1, Price: 1})
	require.NoError(t, err)
	_, err = m.CreatePack(ctx, models.Pack{ID: "pricey", Available: true, LimitPerStudent: 1, Price: 50})
	require.NoError(t, err)
	_, err = m.CreatePack(ctx, models.Pack{ID: "empty", Available: true, LimitPerStudent: 1, Price: 1})
	require.NoError(t, err)

	testCases := []struct {
		pack    string
		wantErr error
	}{
		{pack: "ghost", wantErr: models.ErrNotFound},
		{pack: "closed", wantErr: models.ErrPackUnavailable},
		{pack: "pricey", wantErr: models.ErrInsufficientFunds},
		{pack: "empty", wantErr: models.ErrOutOfStock},
	}
	for _, tc := range testCases {
		t.Run(tc.pack, func(t *testing.T) {
			_, err := m.OpenPack(ctx, models.PackOpening{ID: "o-" + tc.pack, PackID: tc.pack, UserID: "s"}, "", epoch, firstCandidate)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	acc, err := m.GetAccount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(10), acc.Coins)
}

func seedTrade(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	addAccount(t, m, "a", models.RoleStudent, 100)
	addAccount(t, m, "b", models.RoleStudent, 100)
	addCard(t, m, "x", 0, nil)
	addCard(t, m, "y", 0, nil)
	_, err := m.PurchaseCard(ctx, "a", "x", "")
	require.NoError(t, err)
	_, err = m.PurchaseCard(ctx, "b", "y", "")
	require.NoError(t, err)
	_, err = m.PurchaseCard(ctx, "b", "y", "")
	require.NoError(t, err)

	_, err = m.CreateTrade(ctx, models.Trade{
		ID: "t", FromUserID: "a", ToUserID: "b",
		OfferedCards: map[string]int64{"x": 1}, OfferedCoins: 10,
		RequestedCards: map[string]int64{"y": 1}, RequestedCoins: 0,
		Status: models.TradePending, CreatedAt: epoch, UpdatedAt: epoch,
	})
	require.NoError(t, err)
}

func quantities(t *testing.T, m *Memory, userID string) map[string]int64 {
	t.Helper()
	items, err := m.ListCollection(context.Background(), userID)
	require.NoError(t, err)
	out := make(map[string]int64, len(items))
	for _, it := range items {
		out[it.CardID] = it.Quantity
	}
	return out
}

func TestMemory_SettleTrade_Accept(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	seedTrade(t, m)

	_, err := m.SettleTrade(ctx, "t", "a", true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	trade, err := m.SettleTrade(ctx, "t", "b", true)
	require.NoError(t, err)
	assert.Equal(t, models.TradeAccepted, trade.Status)

	assert.Equal(t, map[string]int64{"y": 1}, quantities(t, m, "a"))
	assert.Equal(t, map[string]int64{"x": 1, "y": 1}, quantities(t, m, "b"))

	a, err := m.GetAccount(ctx, "a")
	require.NoError(t, err)
	b, err := m.GetAccount(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(90), a.Coins)
	assert.Equal(t, int64(110), b.Coins)

	_, err = m.SettleTrade(ctx, "t", "b", false)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMemory_SettleTrade_Reject(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	seedTrade(t, m)

	trade, err := m.SettleTrade(ctx, "t", "b", false)
	require.NoError(t, err)
	assert.Equal(t, models.TradeRejected, trade.Status)
	assert.Equal(t, map[string]int64{"x": 1}, quantities(t, m, "a"))
	assert.Equal(t, map[string]int64{"y": 2}, quantities(t, m, "b"))
}

func TestMemory_SettleTrade_InsufficientCards(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	seedTrade(t, m)

	_, err := m.CreateTrade(ctx, models.Trade{
		ID: "t2", FromUserID: "b", ToUserID: "a",
		OfferedCards: map[string]int64{"y": 2}, Status: models.TradePending,
	})
	require.NoError(t, err)
	_, err = m.SettleTrade(ctx, "t", "b", true)
	require.NoError(t, err)

	// b gave one y away, so the second trade can no longer be honoured.
	_, err = m.SettleTrade(ctx, "t2", "a", true)
	assert.ErrorIs(t, err, models.ErrInsufficientCards)

	trade, err := m.GetTrade(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, models.TradePending, trade.Status)
	assert.Equal(t, map[string]int64{"x": 1, "y": 1}, quantities(t, m, "b"))
}

func TestMemory_ListTrades(t *testing.T) {
	m := newTestMemory(t)
	seedTrade(t, m)

	for _, user := range []string{"a", "b"} {
		trades, err := m.ListTrades(context.Background(), user)
		require.NoError(t, err)
		assert.Len(t, trades, 1)
	}
}

func TestMemory_PurgeIdempotencyKeys(t *testing.T) {
	m := newTestMemory(t)
	addAccount(t, m, "s", models.RoleStudent, 100)
	addCard(t, m, "c", 1, nil)
	_, err := m.PurchaseCard(context.Background(), "s", "c", "k")
	require.NoError(t, err)

	purged, err := m.PurgeIdempotencyKeys(context.Background(), epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	// The key is gone, so the same key buys again.
	_, err = m.PurchaseCard(context.Background(), "s", "c", "k")
	require.NoError(t, err)
	acc, err := m.GetAccount(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, int64(98), acc.Coins)
}

func TestMemory_CanceledContext(t *testing.T) {
	m := newTestMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetAccount(ctx, "s")
	assert.True(t, models.IsTransient(err))
}
