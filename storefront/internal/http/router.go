package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/marketplace/storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Cart           *CartHandler
	Checkout       *CheckoutHandler
	Products       *ProductHandler
	// Attempts is nil when the checkout journal is disabled.
	Attempts       *AttemptHandler
	Session        SessionConfig
	Metrics        *metrics.Metrics
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
	Log            logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", healthHandler(cfg.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/{product_id}", cfg.Products.GetProduct)
		r.Get("/shops/{seller_id}/products", cfg.Products.GetShopProducts)

		r.Group(func(r chi.Router) {
			r.Use(Session(cfg.Session))
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
				r.Get("/summary", cfg.Cart.GetSummary)
				r.Post("/items", cfg.Cart.AddItem)
				r.Put("/items", cfg.Cart.UpdateQuantity)
				r.Delete("/items", cfg.Cart.RemoveItem)
				r.Patch("/checkout-info", cfg.Cart.SetCheckoutInfo)
			})
			r.Post("/checkout", cfg.Checkout.Checkout)
		})
	})

	if cfg.Attempts != nil {
		r.Get("/internal/checkout-attempts/{order_id}", cfg.Attempts.GetAttempt)
	}

	r.Route("/checkout", func(r chi.Router) {
		r.Use(Session(cfg.Session))
		r.Get("/success", cfg.Checkout.Success)
		r.Get("/cancel", cfg.Checkout.Cancel)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				out["status"] = "degraded"
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		respondJSON(w, status, out)
	}
}
