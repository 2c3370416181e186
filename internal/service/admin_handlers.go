package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ifcoins/internal/models"
)

func (handlers *handlers) createCardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var in models.CardInput
	if err := decodeBody(req, &in); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	card, err := handlers.app.CreateCard(ctx, s, in)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, card)
}

func (handlers *handlers) updateCardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var in models.CardInput
	if err := decodeBody(req, &in); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	card, err := handlers.app.UpdateCard(ctx, s, chi.URLParam(req, "id"), in)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, card)
}

func (handlers *handlers) deleteCardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	if err := handlers.app.DeleteCard(ctx, s, chi.URLParam(req, "id")); err != nil {
		handlers.writeError(res, req, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (handlers *handlers) cardAvailabilityHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var availability models.AvailabilityRequest
	if err := decodeBody(req, &availability); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	card, err := handlers.app.SetCardAvailability(ctx, s, chi.URLParam(req, "id"), availability)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, card)
}

func (handlers *handlers) createEventHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var in models.EventInput
	if err := decodeBody(req, &in); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	event, err := handlers.app.CreateEvent(ctx, s, in)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, event)
}

func (handlers *handlers) updateEventHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var in models.EventInput
	if err := decodeBody(req, &in); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	event, err := handlers.app.UpdateEvent(ctx, s, chi.URLParam(req, "id"), in)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusOK, event)
}

func (handlers *handlers) deleteEventHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	if err := handlers.app.DeleteEvent(ctx, s, chi.URLParam(req, "id")); err != nil {
		handlers.writeError(res, req, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (handlers *handlers) createPackHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := handlers.withTimeout(req)
	defer cancel()

	s, ok := session(res, req)
	if !ok {
		return
	}

	var in models.PackInput
	if err := decodeBody(req, &in); err != nil {
		handlers.writeError(res, req, err)
		return
	}

	pack, err := handlers.app.CreatePack(ctx, s, in)
	if err != nil {
		handlers.writeError(res, req, err)
		return
	}
	writeJSON(res, http.StatusCreated, pack)
}
