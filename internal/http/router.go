package http

import (
	"github.com/blisslabs/consulting-reservations/internal/idempotency"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/blisslabs/consulting-reservations/internal/rateLimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, identity Identity) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(identity))
		r.Use(RateLimitMiddleware(rl))
		r.Use(IdempotencyMiddleware(idemp))

		r.Post("/v1/holds", h.CreateHold)
		r.Post("/v1/payments/sessions", h.CreatePaymentSession)
		r.Post("/v1/payments/confirm", h.ConfirmBankTransfer)
		r.Post("/v1/payments/return", h.GatewayReturn)
		r.Get("/v1/reservations", h.ListReservations)
	})

	return r
}
