package service

import (
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"ifcoins/internal/app"
	"ifcoins/internal/pkg/auth"
	"ifcoins/internal/pkg/logger"
)

// Service encapsulates the HTTP server configuration: the handlers, the token
// verifier of protected routes, the run address and the logger.
type Service struct {
	handlers   *handlers
	tokens     *auth.Tokens
	runAddress string
	log        *logger.Logger
}

// NewService creates a Service. Every request is bounded by requestTimeout.
func NewService(app *app.App, tokens *auth.Tokens, runAddress string, requestTimeout time.Duration, l *logger.Logger) *Service {
	return &Service{
		handlers:   newHandlers(app, l, requestTimeout),
		tokens:     tokens,
		runAddress: runAddress,
		log:        l,
	}
}

// NewRouter sets up the routes. Sign-up and sign-in are public; every other
// route requires a valid session token.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(service.log.WithLogging())
	router.Use(middleware.Recoverer)

	h := service.handlers
	router.Post("/api/auth/signup", h.signUpHandler)
	router.Post("/api/auth/signin", h.signInHandler)

	router.Group(func(r chi.Router) {
		r.Use(service.tokens.CheckJWTMiddleware())

		r.Get("/api/me", h.meHandler)
		r.Get("/api/accounts", h.listAccountsHandler)

		r.Post("/api/rewards", h.grantHandler)
		r.Get("/api/rewards", h.listRewardsHandler)
		r.Get("/api/stats", h.statsHandler)

		r.Get("/api/cards", h.listCardsHandler)
		r.Get("/api/cards/{id}", h.getCardHandler)
		r.Post("/api/cards/{id}/purchase", h.purchaseHandler)
		r.Get("/api/collection", h.collectionHandler)
		r.Get("/api/users/{id}/collection", h.collectionHandler)

		r.Get("/api/rankings/coins", h.coinRankingHandler)
		r.Get("/api/rankings/cards", h.cardRankingHandler)

		r.Get("/api/events", h.listEventsHandler)
		r.Get("/api/events/active", h.activeEventsHandler)

		r.Get("/api/packs", h.listPacksHandler)
		r.Post("/api/packs/{id}/open", h.openPackHandler)

		r.Post("/api/trades", h.proposeTradeHandler)
		r.Get("/api/trades", h.listTradesHandler)
		r.Post("/api/trades/{id}/accept", h.respondTradeHandler(true))
		r.Post("/api/trades/{id}/reject", h.respondTradeHandler(false))

		r.Route("/api/admin", func(r chi.Router) {
			r.Post("/cards", h.createCardHandler)
			r.Put("/cards/{id}", h.updateCardHandler)
			r.Delete("/cards/{id}", h.deleteCardHandler)
			r.Put("/cards/{id}/availability", h.cardAvailabilityHandler)

			r.Post("/events", h.createEventHandler)
			r.Put("/events/{id}", h.updateEventHandler)
			r.Delete("/events/{id}", h.deleteEventHandler)

			r.Post("/packs", h.createPackHandler)
		})
	})
	return router
}
