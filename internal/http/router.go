package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openticket/checkout-service/internal/idempotency"
	"github.com/openticket/checkout-service/internal/observability"
	"github.com/openticket/checkout-service/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(UserIDMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Route("/api/checkout", func(r chi.Router) {
		r.Post("/add", h.AddToCart)
		r.Get("/summary", h.CartSummary)
		r.With(IdempotencyMiddleware(idemp)).Post("/submit", h.SubmitOrder)
		r.Get("/ecpay-return", h.ECPayReturn)
		r.Post("/ecpay-return", h.ECPayReturn)
	})

	r.Get("/v1/orders/{id}", h.GetOrder)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
