package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/lavita-bot/internal/metrics"
	custommiddleware "github.com/mmeshcher/lavita-bot/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware бота.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	if h.webhook != nil {
		r.Post("/telegram/webhook", h.webhook.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Use(h.operator.Middleware)

		r.Post("/orders/{id}/complete", h.CompleteOrder)
		r.Get("/accounts/{userID}", h.GetAccount)
		r.Get("/accounts/{userID}/orders", h.GetOrders)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
