package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/anonq/internal/api/middleware"
	"github.com/eldtechnologies/anonq/internal/handlers"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024)) // 16KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir()))))

	// Visitor routes (session token cookie, no login)
	r.Get("/", h.Home)
	r.Post("/send-message", h.SendMessage)

	// Admin login/logout
	r.Get("/admin/login", h.LoginPage)
	r.Post("/admin/login", h.Login)
	r.Post("/admin/logout", h.Logout)

	// Admin routes (require session)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth().RequireAdmin)

		r.Get("/admin", h.Summary)
		r.Get("/admin/conversation/{id}", h.Conversation)
		r.Post("/admin/reply/{id}", h.Reply)
	})

	return r
}

// staticDir returns the path to static files directory.
func staticDir() string {
	// Check if running from app directory (production container)
	if _, err := os.Stat("/app/web/static"); err == nil {
		return "/app/web/static"
	}
	return "web/static"
}
