package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/localhook/localhook/internal/auth"
	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/relay"
	"github.com/localhook/localhook/internal/storage"
)

// Server is the single HTTP surface: management API, webhook receiver and
// the realtime gateway, all on one router.
type Server struct {
	cfg      config.Config
	store    storage.Storage
	auth     *auth.Service
	registry *relay.Registry
	gateway  *relay.Gateway
	router   *chi.Mux
	log      zerolog.Logger
	http     *http.Server
}

func NewServer(cfg config.Config, store storage.Storage, authSvc *auth.Service, registry *relay.Registry, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		auth:     authSvc,
		registry: registry,
		gateway:  relay.NewGateway(cfg.Relay, registry, authSvc, cfg.Server.Origin, log),
		log:      log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	authHandler := NewAuthHandler(s.auth, s.cfg.Server.Origin, int(s.cfg.Auth.SessionAbsoluteTTL.Seconds()))
	epHandler := NewEndpointHandler(s.store, s.cfg.Server.Origin)
	hookHandler := NewHookHandler(s.store, s.registry, s.log)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public webhook receiver, one handler shared across all allowed verbs.
	r.Route("/hook/{id}", func(r chi.Router) {
		r.Get("/", hookHandler.Handle)
		r.Post("/", hookHandler.Handle)
		r.Put("/", hookHandler.Handle)
		r.Patch("/", hookHandler.Handle)
		r.Delete("/", hookHandler.Handle)
	})

	// Realtime gateway. Authentication happens inside the handshake.
	r.Get("/ws", s.gateway.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(s.auth))

			r.Post("/logout", authHandler.Logout)
			r.Post("/sessions/revoke-others", authHandler.RevokeOthers)

			r.Post("/endpoints", epHandler.Create)
			r.Get("/endpoints", epHandler.List)
			r.Get("/endpoints/{id}", epHandler.Get)
			r.Delete("/endpoints/{id}", epHandler.Delete)

			r.Post("/invites", authHandler.CreateInvite)
			r.Get("/invites", authHandler.ListInvites)
		})
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
