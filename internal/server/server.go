// Package server wires the HTTP surface: router, middleware, and route-level
// role policy.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/handler"
	"github.com/attestly/attestly/internal/keys"
	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/openapi"
	"github.com/attestly/attestly/internal/server/middleware"
	"github.com/attestly/attestly/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host             string
	Port             int
	ShutdownTimeout  time.Duration
	CORSOrigins      []string
	PublicRatePerMin int // validate endpoint, per IP
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             8080,
		ShutdownTimeout:  30 * time.Second,
		CORSOrigins:      []string{"*"},
		PublicRatePerMin: 60,
	}
}

// Server is the top-level HTTP server. It owns the chi router and holds the
// injected store, authenticator, and key manager.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	auth       *auth.Authenticator
	keys       *keys.Manager
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authn *auth.Authenticator, manager *keys.Manager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		auth:   authn,
		keys:   manager,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// Health checks, no auth.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// API description, no auth.
	r.Get("/openapi.json", s.handleOpenAPI)

	keyHandler := handler.NewKeyHandler(s.keys)
	certHandler := handler.NewCertificateHandler(s.store)

	r.Route("/api/v1", func(r chi.Router) {
		// Key management. Creation admits issuer keys and the bootstrap
		// credential; the manager narrows what each may create. Everything
		// else is admin-only.
		r.Route("/keys", func(r chi.Router) {
			r.With(middleware.RequireRoles(s.auth, true, model.RoleAdmin, model.RoleIssuer)).
				Post("/", keyHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(s.auth, false, model.RoleAdmin))
				r.Get("/", keyHandler.List)
				r.Get("/{target}", keyHandler.Get)
				r.Patch("/{target}", keyHandler.Update)
				r.Delete("/{target}", keyHandler.Deactivate)
			})
		})

		// Certificates.
		r.Route("/certificates", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(s.auth, false, model.RoleAdmin, model.RoleIssuer))
				r.Post("/", certHandler.Create)
				r.Get("/", certHandler.List)
			})

			r.With(middleware.RequireRoles(s.auth, false, model.RoleAdmin, model.RoleIssuer, model.RoleReader)).
				Get("/{code}", certHandler.Get)

			r.With(middleware.RequireRoles(s.auth, false, model.RoleAdmin)).
				Delete("/{code}", certHandler.Revoke)
		})

		// Public validation lookup, rate-limited per IP.
		r.With(middleware.PublicRateLimit(s.cfg.PublicRatePerMin)).
			Get("/validate/{code}", certHandler.Validate)
	})

	s.router = r
}

// handleHealthz is a liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe; 503 when the store is unreachable.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded: " + err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// handleOpenAPI serves the generated API description.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := openapi.Generate(fmt.Sprintf("http://%s:%d", s.cfg.Host, s.cfg.Port))
	data, err := doc.MarshalJSON()
	if err != nil {
		http.Error(w, "failed to render OpenAPI spec", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// ListenAndServe starts the server and blocks until SIGINT or SIGTERM, then
// drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
