// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides which URL patterns map to
// which handlers, what middleware runs, and how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go reads Config → server.New
//	server.New creates:   sqlite.DB → UserService → UserHandler
//	                      sqlite.DB → HealthHandler
//
// This is the "composition root" pattern: every dependency is wired here,
// rather than scattered across the codebase.
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
	"github.com/go-chi/cors"

	"github.com/sakif/medremind/internal/handler"
	"github.com/sakif/medremind/internal/middleware"
	sqliteRepo "github.com/sakif/medremind/internal/repository/sqlite"
	"github.com/sakif/medremind/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
	// AllowedOrigins for CORS. Empty allows any origin, which is what the
	// mobile app and Expo dev tools need.
	AllowedOrigins []string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and closes it on shutdown to
// flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo to keep it apart from the
// modernc.org/sqlite driver.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/health          → liveness + database ping
//	POST   /api/users           → create account (201, 409 on duplicate email)
//	GET    /api/users/{email}   → fetch account (404 when absent)
//	PUT    /api/users/{email}   → partial update
//	DELETE /api/users/{email}   → delete account
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Recoverer → CORS → Logger. CORS runs before the
// logger so preflight requests are answered without reaching a route.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Use(middleware.Logger(s.logger))

	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) implements repository.UserRepository
	//   UserService receives the repository interface
	//   UserHandler receives the service
	userService := service.NewUserService(s.db, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Post("/users", userHandler.HandleCreate)
		r.Get("/users/{email}", userHandler.HandleGet)
		r.Put("/users/{email}", userHandler.HandleUpdate)
		r.Delete("/users/{email}", userHandler.HandleDelete)
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection
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

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api", s.config.Port)),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
