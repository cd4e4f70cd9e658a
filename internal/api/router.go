package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/internal/api/middleware"
	"github.com/nexus-FayazKhan/Wattnest/internal/handlers"
	"github.com/nexus-FayazKhan/Wattnest/internal/relay"
)

// NewRouter creates and configures the HTTP router around the relay hub.
func NewRouter(logger zerolog.Logger, hub *relay.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - the dashboard SPA connects from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(hub)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Connections directory consumed by the chat client
	r.Get("/api/connections/connected-mentors/{id}", h.ConnectedMentors)
	r.Get("/api/connections/connected-mentees/{id}", h.ConnectedMentees)

	// Realtime transport
	r.Get("/ws", hub.ServeWS)

	return r
}
