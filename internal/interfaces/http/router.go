package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/account-notification-service/internal/application"
	"github.com/ipede/account-notification-service/internal/infrastructure/config"
	"github.com/ipede/account-notification-service/internal/infrastructure/database"
	"github.com/ipede/account-notification-service/internal/infrastructure/email"
	"github.com/ipede/account-notification-service/internal/infrastructure/repository"
	"github.com/ipede/account-notification-service/internal/interfaces/http/handlers"
	"github.com/ipede/account-notification-service/internal/interfaces/http/middleware/ratelimit"
	"go.uber.org/zap"
)

type Router struct {
	router *chi.Mux
	db     *database.Postgres
}

func NewRouter(
	db *database.Postgres,
	cfg *config.Config,
	logger *zap.Logger,
) (*Router, error) {
	accountRepo := repository.NewAccountRepository(db, logger)
	verificationRepo := repository.NewVerificationRepository(db, logger)

	formatter := email.NewTemplateFormatter(logger)
	sender := email.NewSMTPSender(&cfg.SMTP, logger)

	dispatcher, err := application.NewDispatcher(formatter, sender, logger)
	if err != nil {
		return nil, err
	}
	eventRouter := application.NewEventRouter(dispatcher, logger)

	accountService := application.NewAccountService(
		accountRepo, verificationRepo, eventRouter, cfg.VerificationTTL, logger)

	accountHandler := handlers.NewAccountHandler(accountService, logger)

	// Create router with middleware
	router := createRouter()

	rateLimiter := ratelimit.NewRateLimiter(100, 200, 3*time.Minute)
	router.Use(rateLimiter.Middleware)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := db.Ping(); err != nil {
				logger.Error("Database health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Database connection failed"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Alive"))
		})
	})

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/verify-email", accountHandler.HandleVerifyEmail)
		r.Delete("/verifications/{key}", accountHandler.HandleCancelVerification)
		r.Post("/request-password-reset", accountHandler.HandleRequestPasswordReset)
		r.Post("/request-username-reminder", accountHandler.HandleUsernameReminder)
	})

	return &Router{router: router, db: db}, nil
}

func createRouter() *chi.Mux {
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))

	return router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
