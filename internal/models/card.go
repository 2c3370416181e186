package models

import "fmt"

// InStock reports whether at least one copy of the card can still be handed out.
func (c Card) InStock() bool {
	return c.CopiesAvailable == nil || *c.CopiesAvailable > 0
}

// Acquirable reports whether the card may be purchased or drawn from a pack.
func (c Card) Acquirable() bool {
	return c.Available && c.InStock()
}

// CheckPurchase evaluates the purchase rules for a loaded card and buyer,
// in the order unavailable, out of stock, insufficient funds.
func CheckPurchase(card Card, buyer Account) error {
	if !card.Available {
		return ErrCardUnavailable
	}
	if !card.InStock() {
		return ErrOutOfStock
	}
	if buyer.Coins < card.Price {
		return ErrInsufficientFunds
	}
	return nil
}

// CanTransition reports whether a trade may move from its current status to next.
func (t Trade) CanTransition(next TradeStatus) bool {
	return t.Status == TradePending && (next == TradeAccepted || next == TradeRejected)
}

// CheckStockEdit evaluates an admin edit of a card's stock. A nil next keeps the
// current value. Tracked stock only decreases and never becomes unlimited; unlimited
// stock never becomes tracked.
func CheckStockEdit(current, next *int64) error {
	if next == nil {
		return nil
	}
	if current == nil {
		return NewValidationError("stock cannot become tracked",
			FieldError{Field: "copiesAvailable", Error: "card has unlimited stock"})
	}
	if *next > *current {
		return NewValidationError("stock cannot increase",
			FieldError{Field: "copiesAvailable", Error: fmt.Sprintf("must be <= %d", *current)})
	}
	return nil
}
