package api

import (
	"net/http"
	"time"

	"shoplocal-backend/internal/config"
	"shoplocal-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds everything the router setup needs, primarily
// handlers and configuration.
type RouterDependencies struct {
	SessionHandler *handlers.SessionHandlers
	Config         *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- CORS Configuration ---
	// The widget is injected into arbitrary host pages, so the API must be
	// callable from any origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// --- Widget Session API ---
	if deps.SessionHandler == nil {
		panic("SessionHandler dependency is nil in router setup")
	}
	r.Route("/api/session", func(r chi.Router) {
		r.Post("/start", deps.SessionHandler.HandleStartSession)
		r.Post("/message", deps.SessionHandler.HandleSendMessage)
		r.Get("/{sessionID}", deps.SessionHandler.HandleGetSession)
	})

	return r
}
