// Package api provides the HTTP API server and handlers for the Maple application.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mapleapp/maple-server/internal/service"
	"github.com/mapleapp/maple-server/internal/sse"
	"github.com/mapleapp/maple-server/internal/store"
)

// Version is the API version reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	services        *Services
	sseHandler      *sse.Handler
	sseManager      *sse.Manager
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("Maple API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:           st,
		services:        services,
		sseManager:      sseManager,
		router:          router,
		api:             humaAPI,
		logger:          logger,
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
	}

	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, NewSSEAuthenticator(services.Auth), logger)
		router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerTagRoutes()
	s.registerPaperRoutes()
	s.registerRecordingRoutes()
	s.registerPromptRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// NewSSEAuthenticator resolves the event stream's user from the request.
// Browsers cannot set headers on EventSource connections, so a token
// query parameter is accepted alongside the Authorization header.
func NewSSEAuthenticator(auth *service.AuthService) sse.Authenticator {
	return func(r *http.Request) (string, error) {
		token := r.URL.Query().Get("token")
		if token == "" {
			header := r.Header.Get("Authorization")
			token = strings.TrimPrefix(header, "Bearer ")
		}

		claims, err := auth.Verify(token)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}
}
