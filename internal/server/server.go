// Package server assembles the HTTP server: it is the composition root
// where the database, the identity backend client, the LinkedIn handshake,
// the orchestrator, and the handlers are wired together and bound to routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/linkup/internal/auth"
	"github.com/sakif/linkup/internal/backend"
	"github.com/sakif/linkup/internal/config"
	"github.com/sakif/linkup/internal/handler"
	"github.com/sakif/linkup/internal/linkedin"
	"github.com/sakif/linkup/internal/middleware"
	sqliteRepo "github.com/sakif/linkup/internal/repository/sqlite"
	"github.com/sakif/linkup/internal/session"
)

// Server owns the router, the database connection, and the orchestrator.
// The database is closed during graceful shutdown, after in-flight requests
// have drained.
type Server struct {
	router   *chi.Mux
	cfg      config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *session.Orchestrator
}

// New wires the full dependency chain. Each layer only receives the
// interface it needs: the orchestrator sees the store and backend
// interfaces, the handlers see the orchestrator, the router sees handlers.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	mode, err := cfg.SessionMode()
	if err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.TokenSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token service: %w", err)
	}

	var identity backend.IdentityBackend
	if cfg.BackendBaseURL != "" {
		identity = backend.NewHTTPClient(cfg.BackendBaseURL, nil, logger)
	}

	var handshake *linkedin.Handshake
	var importer *linkedin.ExchangeClient
	if cfg.LinkedIn.Enabled() {
		lcfg := linkedin.Config{
			AuthURL:        cfg.LinkedIn.AuthURL,
			ClientID:       cfg.LinkedIn.ClientID,
			RedirectURI:    cfg.LinkedIn.RedirectURI,
			CallbackScheme: cfg.LinkedIn.CallbackScheme,
			Scopes:         cfg.LinkedIn.Scopes,
			ExchangeURL:    cfg.LinkedIn.ExchangeURL,
			ImportURL:      cfg.LinkedIn.ImportURL,
			ProfileURL:     cfg.LinkedIn.ProfileURL,
			EmailURL:       cfg.LinkedIn.EmailURL,
		}
		importer = linkedin.NewExchangeClient(lcfg, nil, logger)
		// No user agent on the server side: clients follow the redirect that
		// HandleLinkedInLogin issues.
		handshake = linkedin.NewHandshake(lcfg, nil, importer, logger)
	}

	sessions, err := session.New(session.Config{
		Mode:      mode,
		Backend:   identity,
		Store:     db,
		Locals:    db,
		Passwords: auth.NewPasswordService(),
		Tokens:    tokens,
		Handshake: handshake,
		Importer:  importer,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session orchestrator: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// setupRoutes binds middleware and handlers. Middleware order: request ID,
// real IP, recoverer, then our logger — the logger runs innermost so it sees
// the request ID and the status the recoverer may have written.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	h := handler.NewAuthHandler(s.sessions, s.logger)

	s.router.Get("/healthz", h.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/register", h.HandleRegister)
		r.Post("/register/phone", h.HandleRegisterPhone)
		r.Post("/guest", h.HandleGuest)
		r.Post("/apple", h.HandleApple)

		// Routes below require a live session token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", h.HandleMe)
			r.Post("/logout", h.HandleLogout)
			r.Post("/upgrade", h.HandleUpgrade)
			r.Post("/session/refresh", h.HandleRefresh)
			r.Post("/import/confirm", h.HandleConfirmImport)
		})
	})

	s.router.Route("/auth/linkedin", func(r chi.Router) {
		r.Get("/login", h.HandleLinkedInLogin)
		r.Get("/callback", h.HandleLinkedInCallback)
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	s.sessions.Start()
	go s.drainEvents()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("mode", s.cfg.Mode),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// drainEvents consumes the orchestrator's failure/notification channel so
// emits are never dropped for lack of a listener. Each event is already in
// the response that triggered it; this is the operator-facing copy.
func (s *Server) drainEvents() {
	for ev := range s.sessions.Events() {
		s.logger.Warn("session event",
			slog.String("kind", ev.Kind),
			slog.String("message", ev.Message),
		)
	}
}
