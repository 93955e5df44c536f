// Package app wires the HTTP surface of the bundle service.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app/admin"
	"github.com/bundlewise/bundle-service/app/middleware"
	"github.com/bundlewise/bundle-service/app/storefront"
	widgetapp "github.com/bundlewise/bundle-service/app/widget"
)

// NewRouter builds the Chi router with all routes and middleware configured.
func NewRouter(
	adminHandler *admin.Handler,
	storefrontHandler *storefront.Handler,
	widgetHandler *widgetapp.Handler,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Merchant admin API
	r.Mount("/api/v1/bundles", adminHandler.Routes())

	// Public storefront API, consumed by the shopper-facing widget
	r.Mount("/api/bundles", storefrontHandler.Routes())

	// Rendered widget markup for the storefront script tag
	r.Mount("/widget", widgetHandler.Routes())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
