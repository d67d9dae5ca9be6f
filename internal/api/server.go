// Package api provides the HTTP API server and handlers for the ShelfScout application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db              *sqlite.Store
	cache           *store.Store
	searchIndex     *search.SearchIndex
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *RateLimiter
	recRateLimiter  *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	db *sqlite.Store,
	cache *store.Store,
	searchIndex *search.SearchIndex,
	services *Services,
	logger *slog.Logger,
) *Server {
	s := &Server{
		db:              db,
		cache:           cache,
		searchIndex:     searchIndex,
		services:        services,
		router:          chi.NewRouter(),
		logger:          logger,
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
		recRateLimiter:  NewRateLimiter(30, time.Minute, 10),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("ShelfScout API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerOnboardingRoutes()
	s.registerDashboardRoutes()
	s.registerRecommendationRoutes()
	s.registerLibraryRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. Order matters: the
// auth middleware must run before the onboarding gate, which reads the
// user from context.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
	s.router.Use(s.onboardingGate)
	s.router.Use(RateLimitMiddleware(s.authRateLimiter, s.logger, "/api/v1/auth/"))
	s.router.Use(RateLimitMiddleware(s.recRateLimiter, s.logger, "/api/v1/recommendations"))
}
