package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/server/handler"
	"github.com/alanyoungcy/tradejournal/internal/server/middleware"
	"github.com/alanyoungcy/tradejournal/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// RateLimit is the number of requests one client IP may make per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Accounts *handler.AccountHandler
	Trades   *handler.TradeHandler
	Imports  *handler.ImportHandler
	Stats    *handler.StatsHandler
	Journal  *handler.JournalHandler
}

// Deps are the collaborators the middleware chain needs.
type Deps struct {
	Authn   middleware.Authenticator
	Limiter domain.RateLimiter // nil disables rate limiting
	Hub     *ws.Hub            // nil disables GET /ws
}

// Server is the HTTP + WebSocket API server for the trade journal.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered. Health, signup
// and login are public; every other route requires a session.
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "http"))

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      routes(cfg, handlers, deps, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func routes(cfg Config, h Handlers, deps Deps, logger *slog.Logger) http.Handler {
	private := http.NewServeMux()

	private.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	private.HandleFunc("GET /api/auth/me", h.Auth.Me)

	private.HandleFunc("GET /api/accounts", h.Accounts.List)
	private.HandleFunc("POST /api/accounts", h.Accounts.Create)
	private.HandleFunc("PUT /api/accounts/{id}", h.Accounts.Update)
	private.HandleFunc("DELETE /api/accounts/{id}", h.Accounts.Delete)
	private.HandleFunc("POST /api/accounts/{id}/default", h.Accounts.SetDefault)

	private.HandleFunc("GET /api/trades", h.Trades.List)
	private.HandleFunc("POST /api/trades", h.Trades.Create)
	private.HandleFunc("GET /api/trades/export", h.Trades.Export)
	private.HandleFunc("POST /api/trades/import", h.Imports.Import)
	private.HandleFunc("GET /api/trades/{id}", h.Trades.Get)
	private.HandleFunc("PATCH /api/trades/{id}", h.Trades.Update)
	private.HandleFunc("DELETE /api/trades/{id}", h.Trades.Delete)
	private.HandleFunc("GET /api/imports", h.Imports.ListArchives)

	private.HandleFunc("GET /api/stats", h.Stats.Summary)

	private.HandleFunc("GET /api/journal", h.Journal.List)
	private.HandleFunc("POST /api/journal", h.Journal.Create)
	private.HandleFunc("GET /api/journal/{id}", h.Journal.Get)
	private.HandleFunc("PUT /api/journal/{id}", h.Journal.Update)
	private.HandleFunc("DELETE /api/journal/{id}", h.Journal.Delete)

	if deps.Hub != nil {
		private.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("POST /api/auth/signup", h.Auth.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("/", middleware.Auth(deps.Authn, logger)(private))

	var root http.Handler = mux
	if deps.Limiter != nil && cfg.RateLimit > 0 {
		root = middleware.RateLimit(deps.Limiter, cfg.RateLimit, cfg.RateWindow, logger)(root)
	}
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)
	return root
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
