package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/tempohq/tempo/internal/api/ws"
	"github.com/tempohq/tempo/internal/auth"
	"github.com/tempohq/tempo/internal/config"
	"github.com/tempohq/tempo/internal/rules"
	"github.com/tempohq/tempo/internal/server/middleware"
	redisstore "github.com/tempohq/tempo/internal/store/redis"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/timing"
)

// Deps carries the wired application services the server exposes.
type Deps struct {
	Tasks  *task.Store
	Timer  *timing.Tracker
	Rules  *rules.Store
	Auth   *auth.Service       // nil when no owner password is configured
	PubSub *redisstore.PubSub  // nil when Redis is not configured
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub // nil without Redis
	cfg        *config.Config
}

// New creates a Server with all routes wired. When no owner password is
// configured the API runs open and the auth routes are not mounted.
func New(cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	protected := cfg.Auth.Password != ""

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated, rate-limited group for the login endpoint.
	// 2. The main group, token-protected when a password is configured.
	router.Route("/api/v1", func(r chi.Router) {
		if protected {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(context.Background(), 5, 10))

				authConfig := huma.DefaultConfig("Tempo Auth API", "1.0.0")
				authConfig.Servers = []*huma.Server{
					{URL: "/api/v1"},
				}
				authAPI := humachi.New(r, authConfig)
				registerAuthRoutes(authAPI, deps.Auth)
			})
		}

		r.Group(func(r chi.Router) {
			if protected {
				r.Use(middleware.Auth(cfg.Auth.JWTSecret))
			}
			r.Use(middleware.RateLimitByIP(context.Background(), 100, 200))

			apiConfig := huma.DefaultConfig("Tempo API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, deps)
		})
	})

	// WebSocket routes require Redis for the event fan-out.
	if deps.PubSub != nil {
		hub := ws.NewHub(deps.PubSub)
		s.wsHub = hub
		router.Route("/ws", func(r chi.Router) {
			if protected {
				r.Use(middleware.Auth(cfg.Auth.JWTSecret))
			}
			registerWSRoutes(r, hub)
		})
		log.Info().Msg("websocket event stream enabled")
	}

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Hub returns the websocket hub, or nil when Redis is not configured.
func (s *Server) Hub() *ws.Hub { return s.wsHub }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
