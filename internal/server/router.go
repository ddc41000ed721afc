package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"avatarbook/internal/auth"
	"avatarbook/internal/booking"
	"avatarbook/internal/checkout"
	"avatarbook/internal/commons"
	"avatarbook/internal/content"
	"avatarbook/internal/delivery"
	"avatarbook/internal/fulfillment"
	"avatarbook/internal/infrastructure/metrics"
	"avatarbook/internal/payment"
	"avatarbook/internal/product"
)

type Controllers struct {
	Booking     *booking.Controller
	Product     *product.Controller
	Checkout    *checkout.Controller
	Payment     *payment.Controller
	Content     *content.Controller
	Delivery    *delivery.Controller
	Fulfillment *fulfillment.Controller
}

type RouterDeps struct {
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Operators   *auth.OperatorTokens
	RateLimiter *RateLimiter
	// TrustProxy takes the client address from forwarding headers. Without
	// it the rate limiter keys on the TCP peer.
	TrustProxy bool
	// HealthCheck reports whether the store is reachable.
	HealthCheck func(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

func NewRouter(c Controllers, deps RouterDeps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogging(logger, deps.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
			defer cancel()
			if err := deps.HealthCheck(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				commons.WriteJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false}, logger)
				return
			}
		}
		commons.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true}, logger)
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", c.Product.HandleListProducts)
		r.Get("/booking/window", c.Booking.HandleWindow)

		r.Post("/webhooks/payment", c.Payment.HandleWebhook)
		r.Post("/webhooks/content", c.Content.HandleWebhook)

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware(logger))
			}
			r.Post("/checkout", c.Checkout.HandleCheckout)
			r.Post("/orders/{orderNumber}/checkout", c.Checkout.HandleRetry)
			r.Get("/orders/{orderNumber}", c.Delivery.HandleLookup)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireOperator(deps.Operators, auth.PermOrdersAdmin, logger))
			r.Post("/orders/{orderNumber}/regenerate-link", c.Delivery.HandleRegenerate)
			r.Post("/orders/{orderNumber}/resubmit", c.Fulfillment.HandleResubmit)
		})
	})

	return r
}
