// Package server is the composition root: it opens every resource the API
// needs, wires handlers to routes and runs the HTTP server until a signal
// arrives.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → document store (mongo.Client or memory.Store)
//	  → sessions DB (sqlite.DB) → auth.SQLStore → auth.SessionManager
//	  → diagnostic sink (diag.FileSink)
//	  → services (users, events, categories, auth)
//	  → handlers → chi routes
//
// Nothing below this package constructs its own dependencies, so tests can
// build a Server around an in-memory store with NewWithDeps.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/agenda-api/internal/auth"
	"github.com/sakif/agenda-api/internal/config"
	"github.com/sakif/agenda-api/internal/diag"
	"github.com/sakif/agenda-api/internal/handler"
	"github.com/sakif/agenda-api/internal/metrics"
	"github.com/sakif/agenda-api/internal/middleware"
	"github.com/sakif/agenda-api/internal/repository"
	"github.com/sakif/agenda-api/internal/repository/memory"
	"github.com/sakif/agenda-api/internal/repository/mongo"
	"github.com/sakif/agenda-api/internal/repository/sqlite"
	"github.com/sakif/agenda-api/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Deps are the long-lived resources a Server owns and closes.
type Deps struct {
	Store    repository.Store
	Sessions *sqlite.DB
	Sink     diag.Sink
}

// Server holds the router and the resources behind it.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	deps   Deps

	sessions *auth.SessionManager
}

// New opens the document store, the sessions database and the diagnostic
// log described by cfg, then builds the Server. On error, whatever was
// already opened is closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	sink, err := diag.Open(cfg.DiagLogPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening diagnostic log: %w", err)
	}

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		sink.Record(fmt.Sprintf("Erro ao conectar ao MongoDB: %v", err))
		_ = sink.Close()
		return nil, err
	}

	sessionsDB, err := sqlite.New(cfg.Session.DBPath)
	if err != nil {
		_ = store.Close(context.Background())
		_ = sink.Close()
		return nil, fmt.Errorf("opening sessions database: %w", err)
	}

	return NewWithDeps(cfg, logger, Deps{Store: store, Sessions: sessionsDB, Sink: sink})
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	if cfg.Driver == config.StoreMemory {
		logger.Warn("using in-memory document store; data is lost on restart")
		return memory.New(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, mongo.Options{
		URI:         cfg.MongoURI,
		Database:    cfg.Database,
		MaxPoolSize: uint64(cfg.MaxPoolSize),
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to document store: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.Database))
	return client, nil
}

// NewWithDeps builds a Server around resources the caller already opened.
// The Server takes ownership and closes them in Close.
func NewWithDeps(cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.Sink == nil {
		deps.Sink = diag.Discard
	}

	store := auth.NewSQLStore(deps.Sessions, auth.CookieOptions(cfg.Session.MaxAge, cfg.Production()), cfg.Session.Secret)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		deps:     deps,
		sessions: auth.NewSessionManager(store),
	}

	purgeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := store.PurgeExpired(purgeCtx); err != nil {
		logger.Warn("could not purge expired sessions", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("purged expired sessions", slog.Int64("count", n))
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes mounts every route.
//
//	GET  /            welcome                 public
//	GET  /healthz     store ping              public
//	GET  /metrics     Prometheus              public
//	POST /login       start session           public, rate limited
//	POST /logout      end session             public
//	POST /usuarios    register                public
//	*    /usuarios... /eventos... /categorias...   session required
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.HTTPMiddleware)

	sink := s.deps.Sink
	passwords := auth.NewPasswordServiceWithCost(s.config.BcryptCost)

	users := handler.NewResourceHandler(
		service.NewUserService(s.deps.Store, passwords, sink, s.logger),
		handler.UserMessages, s.logger)
	events := handler.NewResourceHandler(
		service.NewEventService(s.deps.Store, sink, s.logger),
		handler.EventMessages, s.logger)
	categories := handler.NewResourceHandler(
		service.NewCategoryService(s.deps.Store, sink, s.logger),
		handler.CategoryMessages, s.logger)
	authHandler := handler.NewAuthHandler(
		service.NewAuthService(s.deps.Store, passwords, sink, s.logger),
		s.sessions, sink, s.logger)

	limiter := middleware.NewRateLimiter(s.config.LoginRatePerMinute, s.logger)

	// Public
	s.router.Get("/", handler.HandleRoot)
	s.router.Get("/healthz", handler.HandleHealth(s.deps.Store))
	s.router.Handle("/metrics", metrics.Handler())
	s.router.With(limiter.Middleware).Post("/login", authHandler.HandleLogin)
	s.router.Post("/logout", authHandler.HandleLogout)
	s.router.Post("/usuarios", users.HandleCreate)

	// Session required
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(s.sessions, sink, s.logger))

		r.Get("/usuarios", users.HandleList)
		r.Get("/usuarios/{id}", users.HandleGet)
		r.Put("/usuarios/{id}", users.HandleUpdate)
		r.Delete("/usuarios/{id}", users.HandleDelete)

		r.Post("/eventos", events.HandleCreate)
		r.Get("/eventos", events.HandleList)
		r.Get("/eventos/{id}", events.HandleGet)
		r.Put("/eventos/{id}", events.HandleUpdate)
		r.Delete("/eventos/{id}", events.HandleDelete)

		r.Post("/categorias", categories.HandleCreate)
		r.Get("/categorias", categories.HandleList)
		r.Get("/categorias/{id}", categories.HandleGet)
		r.Put("/categorias/{id}", categories.HandleUpdate)
		r.Delete("/categorias/{id}", categories.HandleDelete)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes every owned resource.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("environment", s.config.Environment),
			slog.String("store", s.config.Store.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the document store, the sessions database and the
// diagnostic log. Errors are logged, and the first one is returned.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if s.deps.Store != nil {
		if err := s.deps.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing document store: %w", err))
		}
	}
	if s.deps.Sessions != nil {
		if err := s.deps.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing sessions database: %w", err))
		}
	}
	if c, ok := s.deps.Sink.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing diagnostic log: %w", err))
		}
	}

	for _, err := range errs {
		s.logger.Error("shutdown", slog.String("error", err.Error()))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
