package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listCardsHandler lists the catalog; ?available=true restricts it to cards on offer.
func (handlers *handlers) listCardsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	cards, err := handlers.app.ListCards(ctx, s, req.URL.Query().Get("available") == "true")
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, cards)
}

func (handlers *handlers) getCardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	card, err := handlers.app.GetCard(ctx, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, card)
}

// purchaseHandler buys one copy of a card for the calling student.
func (handlers *handlers) purchaseHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	uc, err := handlers.app.PurchaseCard(ctx, s, chi.URLParam(req, "id"), req.Header.Get(idempotencyHeader))
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, uc)
}

// collectionHandler lists the caller's cards, or another user's when the route has an id.
func (handlers *handlers) collectionHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	items, err := handlers.app.ListCollection(ctx, s, chi.URLParam(req, "id"))
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, items)
}

func (handlers *handlers) coinRankingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	limit, err := queryInt(req, "limit")
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}

	entries, err := handlers.app.CoinRanking(ctx, limit)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, entries)
}

func (handlers *handlers) cardRankingHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	limit, err := queryInt(req, "limit")
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}

	entries, err := handlers.app.CardRanking(ctx, limit)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, entries)
}

func (handlers *handlers) listEventsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	events, err := handlers.app.ListEvents(ctx)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, events)
}

func (handlers *handlers) activeEventsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	events, err := handlers.app.ActiveEvents(ctx)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, events)
}

func (handlers *handlers) listPacksHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	packs, err := handlers.app.ListPacks(ctx, s)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, packs)
}

// openPackHandler opens a pack for the calling student and returns the card it yielded.
func (handlers *handlers) openPackHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	opening, err := handlers.app.OpenPack(ctx, s, chi.URLParam(req, "id"), req.Header.Get(idempotencyHeader))
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, opening)
}
