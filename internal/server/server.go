// Package server is the composition root: it opens the database, builds
// repositories, services and handlers, and mounts them on a chi router.
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
	"github.com/go-chi/httprate"

	"github.com/sakif/learnpath/internal/auth"
	"github.com/sakif/learnpath/internal/config"
	"github.com/sakif/learnpath/internal/handler"
	"github.com/sakif/learnpath/internal/middleware"
	"github.com/sakif/learnpath/internal/notify"
	sqliteRepo "github.com/sakif/learnpath/internal/repository/sqlite"
	"github.com/sakif/learnpath/internal/service"
)

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// Deps are collaborators that main chooses at startup. Tests swap in fakes.
type Deps struct {
	Notifier  notify.Notifier
	Passwords *auth.PasswordService
}

// New opens the database and wires the whole dependency graph.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(deps); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB exposes the repository, for seeding and tests.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts every route.
//
//	GET    /healthz
//	GET    /auth/{provider}/login
//	GET    /auth/{provider}/callback             optional auth: links when signed in
//	GET    /auth/register                        pending provider identity
//	POST   /auth/register | /auth/login | /auth/logout
//	GET    /api/tracks                           optional auth
//	GET    /api/tracks/{trackID}/progress
//	GET    /api/courses/{courseID}/progress
//	GET    /api/me | PATCH /api/me | DELETE /api/me
//	GET    /api/me/latest-lesson | /api/me/submissions | /api/me/providers
//	GET    /api/lessons/{lessonID}/completion | PUT | DELETE
//	POST   /api/lessons/{lessonID}/submissions
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. RealIP must run
// before httprate.LimitByIP so the limiter keys on the client, not the proxy.
func (s *Server) setupRoutes(deps Deps) error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret)
	if err != nil {
		return err
	}

	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(s.logger)
	}

	var providers []*auth.Provider
	if gh := s.config.Auth.GitHub; gh.Enabled() {
		if gh.BaseURL != "" {
			providers = append(providers, auth.NewGitHubEnterpriseProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL, gh.BaseURL))
		} else {
			providers = append(providers, auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL))
		}
	}
	if g := s.config.Auth.Google; g.Enabled() {
		providers = append(providers, auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.CallbackURL))
	}
	for _, p := range providers {
		s.logger.Info("identity provider enabled", slog.String("provider", p.Name()))
	}

	// *sqlite.DB implements every repository interface.
	users := service.NewUserService(s.db, s.db, s.db, passwords, notifier, s.logger)
	progress := service.NewProgressService(s.db, s.db, s.db, s.logger)
	completions := service.NewCompletionService(s.db, s.db, s.logger)
	submissions := service.NewSubmissionService(s.db, s.db, s.logger)

	secure := s.config.Server.SecureCookies
	authHandler := handler.NewAuthHandler(providers, users, tokens, secure, s.logger)
	userHandler := handler.NewUserHandler(users, completions, submissions, secure, s.logger)
	progressHandler := handler.NewProgressHandler(progress, s.logger)
	lessonHandler := handler.NewLessonHandler(completions, submissions, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.Route("/auth", func(r chi.Router) {
		if limit := s.config.Server.AuthRateLimit; limit > 0 {
			r.Use(httprate.LimitByIP(limit, time.Minute))
		}
		r.Get("/{provider}/login", authHandler.HandleProviderLogin)
		r.With(auth.OptionalAuth(tokens)).Get("/{provider}/callback", authHandler.HandleProviderCallback)
		r.Get("/register", authHandler.HandlePendingRegistration)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalAuth(tokens)).Get("/tracks", progressHandler.HandleListTracks)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/tracks/{trackID}/progress", progressHandler.HandleTrackProgress)
			r.Get("/courses/{courseID}/progress", progressHandler.HandleCourseProgress)

			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
			r.Delete("/me", userHandler.HandleDeleteMe)
			r.Get("/me/latest-lesson", userHandler.HandleLatestLesson)
			r.Get("/me/submissions", userHandler.HandleListSubmissions)
			r.Get("/me/providers", userHandler.HandleListProviders)

			r.Get("/lessons/{lessonID}/completion", lessonHandler.HandleGetCompletion)
			r.Put("/lessons/{lessonID}/completion", lessonHandler.HandleComplete)
			r.Delete("/lessons/{lessonID}/completion", lessonHandler.HandleUncomplete)
			r.Post("/lessons/{lessonID}/submissions", lessonHandler.HandleSubmit)
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
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
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.AppURL),
			slog.String("database", s.config.DB.Path),
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
