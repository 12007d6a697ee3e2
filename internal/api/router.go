package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/subscription-service/internal/live"
	"github.com/Priya8975/subscription-service/internal/subscription"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the HTTP-layer settings.
type RouterConfig struct {
	AllowedOrigins  []string
	StatsWindowDays int
}

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *subscription.Service, hub *live.Hub, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	subHandler := NewSubscriptionHandler(svc, hub, logger, cfg.StatsWindowDays)

	r.Get("/health", HealthHandler())
	r.Handle("/metrics", promhttp.Handler())
	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Post("/subscribe", subHandler.Subscribe)
		r.Post("/unsubscribe", subHandler.Unsubscribe)
		r.Get("/subscription-stats", subHandler.Stats)
		r.Get("/subscription-details", subHandler.Details)
		r.Get("/export-subscribers", subHandler.Export)
	})

	return r
}
