// Package api provides the HTTP surface of the music box: NFC association
// sessions, the playlist catalog, status, and the SSE event stream.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/catalog"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/hardware"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/service"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/sse"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	association *service.AssociationService
	catalog     catalog.Catalog
	reader      hardware.ReaderPort
	sseHandler  *sse.Handler
	validator   *validation.Validator

	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	association *service.AssociationService,
	cat catalog.Catalog,
	reader hardware.ReaderPort,
	sseHandler *sse.Handler,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		association: association,
		catalog:     cat,
		reader:      reader,
		sseHandler:  sseHandler,
		validator:   validation.New(),
		router:      router,
		logger:      logger,
	}

	// Middleware must be registered before humachi.New mounts the
	// OpenAPI routes; chi panics otherwise.
	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("MusicBox API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerNfcRoutes()
	s.registerPlaylistRoutes()

	if sseHandler != nil {
		router.Get("/api/v1/events/stream", sseHandler.ServeHTTP)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	// The web UI is served from the box itself or a dev machine on the
	// same LAN.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}
