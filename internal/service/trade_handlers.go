package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ifcoins/internal/models"
)

func (handlers *handlers) proposeTradeHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var proposal models.TradeProposal
	if err := decodeBody(req, &proposal); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	trade, err := handlers.app.ProposeTrade(ctx, s, proposal)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, trade)
}

func (handlers *handlers) listTradesHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	trades, err := handlers.app.ListTrades(ctx, s)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, trades)
}

// respondTradeHandler returns a handler that accepts or rejects the trade in the route.
func (handlers *handlers) respondTradeHandler(accept bool) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		ctx, cancel := handlers.withTimeout(req)
		defer cancel()

		s, ok := session(res, req)
		if !ok {
			return
		}

		trade, err := handlers.app.RespondTrade(ctx, s, chi.URLParam(req, "id"), accept)
		if err != nil {
			handlers.writeError(res, req, err)
			return
		}
		writeJSON(res, http.StatusOK, trade)
	}
}
