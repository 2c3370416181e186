package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ifcoins/internal/models"
)

type ownershipKey struct {
	userID string
	cardID string
}

type idempotencyKey struct {
	userID string
	op     string
	key    string
}

type idempotencyRecord struct {
	resultID  string
	createdAt time.Time
}

// Memory implements Storage in process memory. A single lock serialises every
// operation, which gives the same per-account and per-card linearizability as
// the row locks of the PostgreSQL implementation.
type Memory struct {
	now func() time.Time

	mu       sync.Mutex
	accounts map[string]models.Account
	emails   map[string]string
	rewards  []models.RewardLogEntry
	cards    map[string]models.Card
	owned    map[ownershipKey]models.UserCard
	events   map[string]models.Event
	packs    map[string]models.Pack
	openings []models.PackOpening
	trades   map[string]models.Trade
	idemKeys map[idempotencyKey]idempotencyRecord
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty Memory. A nil now uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:      now,
		accounts: make(map[string]models.Account),
		emails:   make(map[string]string),
		cards:    make(map[string]models.Card),
		owned:    make(map[ownershipKey]models.UserCard),
		events:   make(map[string]models.Event),
		packs:    make(map[string]models.Pack),
		trades:   make(map[string]models.Trade),
		idemKeys: make(map[idempotencyKey]idempotencyRecord),
	}
}

// Close is a no-op.
func (m *Memory) Close() {}

// begin locks the store unless ctx is already done.
func (m *Memory) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return classify(op, err)
	}
	m.mu.Lock()
	return nil
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneCard(c models.Card) models.Card {
	c.CopiesAvailable = cloneInt(c.CopiesAvailable)
	c.EventID = cloneString(c.EventID)
	return c
}

func cloneCards(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTrade(t models.Trade) models.Trade {
	t.OfferedCards = cloneCards(t.OfferedCards)
	t.RequestedCards = cloneCards(t.RequestedCards)
	return t
}

func clonePack(p models.Pack) models.Pack {
	probabilities := make(map[models.Rarity]int, len(p.Probabilities))
	for k, v := range p.Probabilities {
		probabilities[k] = v
	}
	p.Probabilities = probabilities
	return p
}

func cloneReward(e models.RewardLogEntry) models.RewardLogEntry {
	e.EventID = cloneString(e.EventID)
	return e
}

// claim records a fresh idempotency key. Caller holds the lock.
func (m *Memory) claim(userID, op, key, resultID string) {
	k := idempotencyKey{userID: userID, op: op, key: key}
	m.idemKeys[k] = idempotencyRecord{resultID: resultID, createdAt: m.now()}
}

func (m *Memory) CreateAccount(ctx context.Context, acc models.Account) (*models.Account, error) {
	if err := m.begin(ctx, "CreateAccount"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	email := strings.ToLower(acc.Email)
	if _, ok := m.emails[email]; ok {
		return nil, models.ErrConflict
	}
	if _, ok := m.accounts[acc.ID]; ok {
		return nil, models.ErrConflict
	}
	acc.Email = email
	m.accounts[acc.ID] = acc
	m.emails[email] = acc.ID
	return &acc, nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := m.begin(ctx, "GetAccount"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &acc, nil
}

func (m *Memory) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := m.begin(ctx, "GetAccountByEmail"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	acc := m.accounts[id]
	return &acc, nil
}

func (m *Memory) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	if err := m.begin(ctx, "ListAccounts"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	accounts := make([]models.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		if filter.Role != nil && acc.Role != *filter.Role {
			continue
		}
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (m *Memory) GrantCoins(ctx context.Context, entry models.RewardLogEntry, idemKey string) (*models.RewardLogEntry, error) {
	if err := m.begin(ctx, "GrantCoins"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if idemKey != "" {
		if rec, ok := m.idemKeys[idempotencyKey{userID: entry.TeacherID, op: OpGrant, key: idemKey}]; ok {
			for _, e := range m.rewards {
				if e.ID == rec.resultID {
					if !e.SameGrant(entry) {
						return nil, models.ErrKeyReused
					}
					out := cloneReward(e)
					return &out, nil
				}
			}
			return nil, models.ErrNotFound
		}
	}

	if _, ok := m.accounts[entry.TeacherID]; !ok {
		return nil, models.ErrConflict
	}
	recipient, ok := m.accounts[entry.StudentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if recipient.Role != models.RoleStudent {
		return nil, models.ErrInvalidRoles
	}

	recipient.Coins += entry.Coins
	m.accounts[recipient.ID] = recipient
	m.rewards = append(m.rewards, cloneReward(entry))
	if idemKey != "" {
		m.claim(entry.TeacherID, OpGrant, idemKey, entry.ID)
	}
	return &entry, nil
}

func (m *Memory) ListRewards(ctx context.Context, filter models.RewardFilter) ([]models.RewardLogEntry, error) {
	if err := m.begin(ctx, "ListRewards"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	entries := make([]models.RewardLogEntry, 0)
	for _, e := range m.rewards {
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		entries = append(entries, cloneReward(e))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (m *Memory) validateCardRefs(card models.Card) error {
	if card.EventID != nil {
		if _, ok := m.events[*card.EventID]; !ok {
			return models.ErrConflict
		}
	}
	return nil
}

func (m *Memory) CreateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	if err := m.begin(ctx, "CreateCard"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if _, ok := m.cards[card.ID]; ok {
		return nil, models.ErrConflict
	}
	if err := m.validateCardRefs(card); err != nil {
		return nil, err
	}
	m.cards[card.ID] = cloneCard(card)
	out := cloneCard(card)
	return &out, nil
}

// UpdateCard replaces the editable fields of a card. A nil CopiesAvailable keeps the stock.
func (m *Memory) UpdateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	if err := m.begin(ctx, "UpdateCard"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	current, ok := m.cards[card.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := m.validateCardRefs(card); err != nil {
		return nil, err
	}
	if err := models.CheckStockEdit(current.CopiesAvailable, card.CopiesAvailable); err != nil {
		return nil, err
	}
	if card.CopiesAvailable == nil {
		card.CopiesAvailable = current.CopiesAvailable
	}
	card.CreatedAt = current.CreatedAt
	m.cards[card.ID] = cloneCard(card)
	out := cloneCard(card)
	return &out, nil
}

func (m *Memory) DeleteCard(ctx context.Context, id string) error {
	if err := m.begin(ctx, "DeleteCard"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if _, ok := m.cards[id]; !ok {
		return models.ErrNotFound
	}
	for k := range m.owned {
		if k.cardID == id {
			return models.ErrConflict
		}
	}
	delete(m.cards, id)
	return nil
}

func (m *Memory) SetCardAvailability(ctx context.Context, id string, available bool) (*models.Card, error) {
	if err := m.begin(ctx, "SetCardAvailability"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	card.Available = available
	card.UpdatedAt = m.now()
	m.cards[id] = card
	out := cloneCard(card)
	return &out, nil
}

func (m *Memory) GetCard(ctx context.Context, id string) (*models.Card, error) {
	if err := m.begin(ctx, "GetCard"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := cloneCard(card)
	return &out, nil
}

func (m *Memory) ListCards(ctx context.Context, availableOnly bool) ([]models.Card, error) {
	if err := m.begin(ctx, "ListCards"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	cards := make([]models.Card, 0, len(m.cards))
	for _, c := range m.cards {
		if availableOnly && !c.Available {
			continue
		}
		cards = append(cards, cloneCard(c))
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

// acquire mirrors the PostgreSQL helper. Caller holds the lock and has checked the rules.
func (m *Memory) acquire(buyer models.Account, card models.Card, price int64) models.UserCard {
	buyer.Coins -= price
	m.accounts[buyer.ID] = buyer

	if card.CopiesAvailable != nil {
		left := *card.CopiesAvailable - 1
		card.CopiesAvailable = &left
		card.UpdatedAt = m.now()
		m.cards[card.ID] = card
	}

	return m.give(buyer.ID, card.ID, 1)
}

func (m *Memory) give(userID, cardID string, qty int64) models.UserCard {
	k := ownershipKey{userID: userID, cardID: cardID}
	uc, ok := m.owned[k]
	if !ok {
		uc = models.UserCard{UserID: userID, CardID: cardID, AcquiredAt: m.now()}
	}
	uc.Quantity += qty
	m.owned[k] = uc
	return uc
}

func (m *Memory) PurchaseCard(ctx context.Context, buyerID, cardID, idemKey string) (*models.UserCard, error) {
	if err := m.begin(ctx, "PurchaseCard"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if idemKey != "" {
		if rec, ok := m.idemKeys[idempotencyKey{userID: buyerID, op: OpPurchase, key: idemKey}]; ok {
			if rec.resultID != cardID {
				return nil, models.ErrKeyReused
			}
			uc, ok := m.owned[ownershipKey{userID: buyerID, cardID: rec.resultID}]
			if !ok {
				return nil, models.ErrNotFound
			}
			return &uc, nil
		}
	}

	buyer, ok := m.accounts[buyerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	card, ok := m.cards[cardID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := models.CheckPurchase(card, buyer); err != nil {
		return nil, err
	}

	uc := m.acquire(buyer, cloneCard(card), card.Price)
	if idemKey != "" {
		m.claim(buyerID, OpPurchase, idemKey, cardID)
	}
	return &uc, nil
}

func (m *Memory) ListCollection(ctx context.Context, userID string) ([]models.CollectionItem, error) {
	if err := m.begin(ctx, "ListCollection"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	items := make([]models.CollectionItem, 0)
	for k, uc := range m.owned {
		if k.userID != userID {
			continue
		}
		items = append(items, models.CollectionItem{UserCard: uc, Card: cloneCard(m.cards[k.cardID])})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AcquiredAt.Equal(items[j].AcquiredAt) {
			return items[i].AcquiredAt.After(items[j].AcquiredAt)
		}
		return items[i].CardID < items[j].CardID
	})
	return items, nil
}

func (m *Memory) CardTotals(ctx context.Context) (map[string]int64, error) {
	if err := m.begin(ctx, "CardTotals"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	totals := make(map[string]int64)
	for k, uc := range m.owned {
		totals[k.userID] += uc.Quantity
	}
	return totals, nil
}

func (m *Memory) CreatePack(ctx context.Context, pack models.Pack) (*models.Pack, error) {
	if err := m.begin(ctx, "CreatePack"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if _, ok := m.packs[pack.ID]; ok {
		return nil, models.ErrConflict
	}
	m.packs[pack.ID] = clonePack(pack)
	out := clonePack(pack)
	return &out, nil
}

func (m *Memory) GetPack(ctx context.Context, id string) (*models.Pack, error) {
	if err := m.begin(ctx, "GetPack"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	pack, ok := m.packs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := clonePack(pack)
	return &out, nil
}

func (m *Memory) ListPacks(ctx context.Context, availableOnly bool) ([]models.Pack, error) {
	if err := m.begin(ctx, "ListPacks"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	packs := make([]models.Pack, 0, len(m.packs))
	for _, p := range m.packs {
		if availableOnly && !p.Available {
			continue
		}
		packs = append(packs, clonePack(p))
	}
	sort.Slice(packs, func(i, j int) bool {
		if packs[i].Price != packs[j].Price {
			return packs[i].Price < packs[j].Price
		}
		if packs[i].Name != packs[j].Name {
			return packs[i].Name < packs[j].Name
		}
		return packs[i].ID < packs[j].ID
	})
	return packs, nil
}

func (m *Memory) OpenPack(ctx context.Context, opening models.PackOpening, idemKey string, since time.Time, draw models.DrawFunc) (*models.PackOpening, error) {
	if err := m.begin(ctx, "OpenPack"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if idemKey != "" {
		if rec, ok := m.idemKeys[idempotencyKey{userID: opening.UserID, op: OpOpenPack, key: idemKey}]; ok {
			for _, o := range m.openings {
				if o.ID == rec.resultID {
					if o.PackID != opening.PackID {
						return nil, models.ErrKeyReused
					}
					card := cloneCard(m.cards[o.CardID])
					o.Card = &card
					return &o, nil
				}
			}
			return nil, models.ErrNotFound
		}
	}

	pack, ok := m.packs[opening.PackID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !pack.Available {
		return nil, models.ErrPackUnavailable
	}
	buyer, ok := m.accounts[opening.UserID]
	if !ok {
		return nil, models.ErrNotFound
	}

	opened := 0
	for _, o := range m.openings {
		if o.UserID == buyer.ID && o.PackID == pack.ID && !o.CreatedAt.Before(since) {
			opened++
		}
	}
	if opened >= pack.LimitPerStudent {
		return nil, models.ErrPackLimitReached
	}
	if buyer.Coins < pack.Price {
		return nil, models.ErrInsufficientFunds
	}

	candidates := make([]models.Card, 0, len(m.cards))
	for _, c := range m.cards {
		if c.Acquirable() {
			candidates = append(candidates, cloneCard(c))
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	card, err := draw(clonePack(pack), candidates)
	if err != nil {
		return nil, err
	}
	stored, ok := m.cards[card.ID]
	if !ok || !stored.Acquirable() {
		return nil, models.ErrOutOfStock
	}

	m.acquire(buyer, cloneCard(stored), pack.Price)
	granted := cloneCard(m.cards[card.ID])

	opening.CardID = card.ID
	m.openings = append(m.openings, opening)
	if idemKey != "" {
		m.claim(opening.UserID, OpOpenPack, idemKey, opening.ID)
	}
	opening.Card = &granted
	return &opening, nil
}

func (m *Memory) validateEvent(e models.Event) error {
	if e.EndDate.Before(e.StartDate) {
		return models.NewValidationError("endDate must not be before startDate")
	}
	return nil
}

func (m *Memory) CreateEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	if err := m.begin(ctx, "CreateEvent"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if _, ok := m.events[e.ID]; ok {
		return nil, models.ErrConflict
	}
	if err := m.validateEvent(e); err != nil {
		return nil, err
	}
	m.events[e.ID] = e
	return &e, nil
}

func (m *Memory) UpdateEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	if err := m.begin(ctx, "UpdateEvent"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	current, ok := m.events[e.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := m.validateEvent(e); err != nil {
		return nil, err
	}
	e.CreatedAt = current.CreatedAt
	m.events[e.ID] = e
	return &e, nil
}

func (m *Memory) DeleteEvent(ctx context.Context, id string) error {
	if err := m.begin(ctx, "DeleteEvent"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.events, id)

	for cardID, c := range m.cards {
		if c.EventID != nil && *c.EventID == id {
			c.EventID = nil
			m.cards[cardID] = c
		}
	}
	for i := range m.rewards {
		if e := m.rewards[i].EventID; e != nil && *e == id {
			m.rewards[i].EventID = nil
		}
	}
	return nil
}

func (m *Memory) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if err := m.begin(ctx, "GetEvent"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &e, nil
}

func (m *Memory) ListEvents(ctx context.Context) ([]models.Event, error) {
	if err := m.begin(ctx, "ListEvents"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	events := make([]models.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.After(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (m *Memory) CreateTrade(ctx context.Context, t models.Trade) (*models.Trade, error) {
	if err := m.begin(ctx, "CreateTrade"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if _, ok := m.trades[t.ID]; ok {
		return nil, models.ErrConflict
	}
	_, fromOK := m.accounts[t.FromUserID]
	_, toOK := m.accounts[t.ToUserID]
	if !fromOK || !toOK {
		return nil, models.ErrConflict
	}
	m.trades[t.ID] = cloneTrade(t)
	out := cloneTrade(t)
	return &out, nil
}

func (m *Memory) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	if err := m.begin(ctx, "GetTrade"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := cloneTrade(t)
	return &out, nil
}

func (m *Memory) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	if err := m.begin(ctx, "ListTrades"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	trades := make([]models.Trade, 0)
	for _, t := range m.trades {
		if t.FromUserID == userID || t.ToUserID == userID {
			trades = append(trades, cloneTrade(t))
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].CreatedAt.Equal(trades[j].CreatedAt) {
			return trades[i].CreatedAt.After(trades[j].CreatedAt)
		}
		return trades[i].ID < trades[j].ID
	})
	return trades, nil
}

func (m *Memory) SettleTrade(ctx context.Context, tradeID, actorID string, accept bool) (*models.Trade, error) {
	if err := m.begin(ctx, "SettleTrade"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	t, ok := m.trades[tradeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if t.ToUserID != actorID {
		return nil, models.ErrForbidden
	}

	next := models.TradeRejected
	if accept {
		next = models.TradeAccepted
	}
	if !t.CanTransition(next) {
		return nil, models.ErrConflict
	}

	if accept {
		if err := m.swap(t); err != nil {
			return nil, err
		}
	}

	t.Status = next
	t.UpdatedAt = m.now()
	m.trades[t.ID] = t
	out := cloneTrade(t)
	return &out, nil
}

// swap checks every holding before mutating anything. Caller holds the lock.
func (m *Memory) swap(t models.Trade) error {
	from, ok := m.accounts[t.FromUserID]
	if !ok {
		return models.ErrNotFound
	}
	to, ok := m.accounts[t.ToUserID]
	if !ok {
		return models.ErrNotFound
	}
	if from.Coins < t.OfferedCoins || to.Coins < t.RequestedCoins {
		return models.ErrInsufficientFunds
	}
	if !m.holds(from.ID, t.OfferedCards) || !m.holds(to.ID, t.RequestedCards) {
		return models.ErrInsufficientCards
	}

	m.take(from.ID, t.OfferedCards)
	m.take(to.ID, t.RequestedCards)
	for _, cardID := range sortedCardIDs(t.OfferedCards) {
		m.give(to.ID, cardID, t.OfferedCards[cardID])
	}
	for _, cardID := range sortedCardIDs(t.RequestedCards) {
		m.give(from.ID, cardID, t.RequestedCards[cardID])
	}

	delta := t.RequestedCoins - t.OfferedCoins
	from.Coins += delta
	to.Coins -= delta
	m.accounts[from.ID] = from
	m.accounts[to.ID] = to
	return nil
}

func (m *Memory) holds(userID string, cards map[string]int64) bool {
	for cardID, qty := range cards {
		if m.owned[ownershipKey{userID: userID, cardID: cardID}].Quantity < qty {
			return false
		}
	}
	return true
}

func (m *Memory) take(userID string, cards map[string]int64) {
	for cardID, qty := range cards {
		k := ownershipKey{userID: userID, cardID: cardID}
		uc := m.owned[k]
		uc.Quantity -= qty
		if uc.Quantity == 0 {
			delete(m.owned, k)
			continue
		}
		m.owned[k] = uc
	}
}

func (m *Memory) PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error) {
	if err := m.begin(ctx, "PurgeIdempotencyKeys"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()

	var purged int64
	for k, rec := range m.idemKeys {
		if rec.createdAt.Before(before) {
			delete(m.idemKeys, k)
			purged++
		}
	}
	return purged, nil
}
