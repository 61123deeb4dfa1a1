// Package server is the composition root: it opens storage, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
//	config → sqlite.DB, upload.Store → services → handlers → chi router
//
// Everything is wired in New, so tests can build a complete server around a
// temporary database and drive it through Handler().
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/config"
	"github.com/sakif/studyhub/internal/handler"
	"github.com/sakif/studyhub/internal/middleware"
	sqliteRepo "github.com/sakif/studyhub/internal/repository/sqlite"
	"github.com/sakif/studyhub/internal/service"
	"github.com/sakif/studyhub/internal/upload"
	"github.com/sakif/studyhub/internal/validation"
	"github.com/sakif/studyhub/web"
)

const shutdownTimeout = 30 * time.Second

// Server owns the database and the upload directory handle; both are closed
// when the server stops.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	uploads *upload.Store
}

// New opens the database and upload directory named by cfg and wires the
// router. Call Close when done, or let Start do it on shutdown.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	uploads, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening upload dir: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		uploads: uploads,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires the dependency graph and mounts every route.
//
// Middleware order: request id, real ip, request logging, panic recovery,
// then session loading so every handler can read the caller's identity.
func (s *Server) setupRoutes() error {
	sessions, err := auth.NewSessionManager(s.config.SecretKey, s.config.SessionTTL, s.config.SecureCookies())
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return err
	}
	validate, err := validation.New()
	if err != nil {
		return err
	}
	views, err := handler.NewRenderer(web.FS, s.logger)
	if err != nil {
		return err
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.db.Users(), passwords, validate, s.logger)
	questionService := service.NewQuestionService(s.db.Questions(), s.db.Answers(), s.uploads, validate, s.logger)
	taskService := service.NewTaskService(s.db.Tasks(), validate, s.logger)
	gradeService := service.NewGradeService()

	authHandler := handler.NewAuthHandler(authService, sessions, views, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, authService, views, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, views, s.logger)
	gradeHandler := handler.NewGradeHandler(gradeService, views, s.logger)
	uploadHandler := handler.NewUploadHandler(s.uploads, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(handler.FlashSigner(s.config.SecretKey))
	s.router.Use(auth.LoadSession(sessions, s.logger))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.router.Get("/uploads/{filename}", uploadHandler.HandleServe)

	// Open to everyone.
	s.router.Get("/", questionHandler.HandleIndex)
	s.router.Get("/register", authHandler.HandleRegisterForm)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/login", authHandler.HandleLoginForm)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/logout", authHandler.HandleLogout)
	s.router.Get("/question/{id}", questionHandler.HandleQuestion)
	s.router.Post("/question/{id}", questionHandler.HandleAnswer)

	// Login required; anonymous callers are redirected to /login.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin(handler.LoginRequired()))

		r.Get("/ask", questionHandler.HandleAskForm)
		r.Post("/ask", questionHandler.HandleAsk)
		r.Get("/accept_answer/{answerID}", questionHandler.HandleAccept)
		r.Get("/tasks", taskHandler.HandleList)
		r.Post("/tasks", taskHandler.HandleAdd)
		r.Get("/toggle_task/{id}", taskHandler.HandleToggle)
		r.Get("/grades", gradeHandler.HandleForm)
		r.Post("/grades", gradeHandler.HandleProject)
	})

	return nil
}

// handleHealth reports whether the process is up and the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unavailable"))
		return
	}
	w.Write([]byte("ok"))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the upload directory.
func (s *Server) Close() error {
	return errors.Join(s.uploads.Close(), s.db.Close())
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully: it stops
// accepting connections, waits up to shutdownTimeout for in-flight requests,
// and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
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
