package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbouquin/artisia/internal"
	"github.com/tbouquin/artisia/internal/ai"
	"github.com/tbouquin/artisia/internal/ai/gemini"
	aimock "github.com/tbouquin/artisia/internal/ai/mock"
	"github.com/tbouquin/artisia/internal/billing"
	"github.com/tbouquin/artisia/internal/email"
	"github.com/tbouquin/artisia/internal/handler"
	"github.com/tbouquin/artisia/internal/invite"
	"github.com/tbouquin/artisia/internal/jobs"
	"github.com/tbouquin/artisia/internal/metrics"
	"github.com/tbouquin/artisia/internal/middleware"
	"github.com/tbouquin/artisia/internal/report"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/service"
	"github.com/tbouquin/artisia/internal/storage"
	"github.com/tbouquin/artisia/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize file storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		TemplatesDir: "web/templates",
		Logger:       logger,
		IsDev:        cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize email service
	emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, "web/templates/email", logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	// Initialize AI provider
	aiProvider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("AI provider initialization failed: %w", err)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Initialize Stripe billing. Nil when not configured; the billing
	// handler degrades to read-only plan display in that case.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProMonthlyPriceID: cfg.StripeProMonthlyPriceID,
			ProYearlyPriceID:  cfg.StripeProYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: STRIPE_SECRET_KEY not set")
	}

	// Initialize services
	userService := service.NewUserService(repo, logger)
	settingsService := service.NewSettingsService(repo, logger)
	quotaService := service.NewQuotaService(repo, logger)
	clientService := service.NewClientService(db, repo, logger)
	quoteService := service.NewQuoteService(repo, clientService, quotaService, settingsService, logger)
	companyService := service.NewCompanyService(repo, store, service.NewImagingProcessor(), logger)
	documentService := service.NewDocumentService(quoteService, companyService, settingsService, store, logger)
	pdfGenerator := report.NewPDFGenerator()

	inviteValidator := invite.New(cfg.InviteCodesEnabled, cfg.ValidInviteCodes)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Rate limiters: one window for credential endpoints, a tighter
	// per-minute budget for the AI extraction endpoint.
	authLimiter := middleware.NewRateLimiter(10, 15*time.Minute, logger)
	authLimitMw := middleware.NewRateLimitMiddleware(authLimiter, logger)
	aiLimiter := middleware.NewRateLimiter(30, time.Minute, logger)
	aiLimitMw := middleware.NewRateLimitMiddleware(aiLimiter, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, emailService, inviteValidator, renderer, logger, isSecure)
	dashboardHandler := handler.NewDashboardHandler(repo, quoteService, quotaService, renderer, logger)
	quoteHandler := handler.NewQuoteHandler(quoteService, settingsService, documentService, pdfGenerator, renderer, logger, isSecure)
	clientHandler := handler.NewClientHandler(clientService, renderer, logger, isSecure)
	settingsHandler := handler.NewSettingsHandler(userService, settingsService, renderer, logger, isSecure)
	companyHandler := handler.NewCompanyHandler(companyService, renderer, logger, isSecure)
	aiHandler := handler.NewAIHandler(aiProvider, quotaService, logger)
	imageProxyHandler := handler.NewImageProxyHandler(logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, quotaService, renderer, cfg.BaseURL, billing.PriceConfig{
		ProMonthlyPriceID: cfg.StripeProMonthlyPriceID,
		ProYearlyPriceID:  cfg.StripeProYearlyPriceID,
	}, logger, isSecure)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServer(http.Dir("web/static"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Uploaded files (local storage only; R2 serves from its own URL)
	if cfg.StorageProvider == "local" {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Auth routes (public)
	authHandler.RegisterRoutes(mux, authLimitMw.Limit)

	// Middleware stacks for protected routes
	withUser := middleware.Stack(authMw.WithUser)
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)

	// Application routes
	dashboardHandler.RegisterRoutes(mux, withUser, requireUser)
	quoteHandler.RegisterRoutes(mux, requireUser)
	clientHandler.RegisterRoutes(mux, requireUser)
	settingsHandler.RegisterRoutes(mux, requireUser)
	companyHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)
	aiHandler.RegisterRoutes(mux, middleware.Stack(aiLimitMw.Limit, authMw.WithUser, authMw.RequireUser))
	imageProxyHandler.RegisterRoutes(mux, requireUser)

	// Stripe webhooks (public, signature-verified)
	if billingService != nil {
		webhookHandler := handler.NewWebhookHandler(billingService, userService, logger)
		webhookHandler.RegisterRoutes(mux)
	}

	// Outer middleware: security headers, request logging, metrics
	root := securityMw.Handler(loggingMw.Handler(metrics.Middleware(mux)))

	// ==========================================================================
	// Background worker
	// ==========================================================================

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	if cfg.WorkerEnabled {
		w, err := worker.New(db, repo, worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPollInterval,
			JobTimeout:   cfg.WorkerJobTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		w.Register(jobs.NewSendQuoteEmailHandler(repo, emailService, cfg.BaseURL, logger))
		w.Register(jobs.NewWeeklyReportHandler(repo, emailService, cfg.BaseURL, logger))
		w.Start(workerCtx)
		defer w.Stop()

		go runWeeklyReportScheduler(workerCtx, repo, logger)
	}

	go runSessionCleanup(workerCtx, userService, logger)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage creates the file storage backend selected by configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case "r2":
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// newAIProvider creates the AI extraction provider selected by configuration.
func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	switch cfg.AIProvider {
	case "gemini":
		p, err := gemini.New(gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return aimock.New(logger), nil
	}
}

// runWeeklyReportScheduler enqueues weekly summary jobs for users who
// opted in. Runs every Monday at 08:00 server time.
func runWeeklyReportScheduler(ctx context.Context, repo *repository.Queries, logger *slog.Logger) {
	for {
		next := nextMonday(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		users, err := repo.ListUsersWithWeeklyReport(ctx)
		if err != nil {
			logger.Error("weekly report scheduling failed", "error", err)
			continue
		}
		for _, u := range users {
			if _, err := worker.EnqueueWeeklyReport(ctx, repo, u.ID); err != nil {
				logger.Error("failed to enqueue weekly report", "user_id", u.ID, "error", err)
			}
		}
		logger.Info("Weekly reports scheduled", "count", len(users))
	}
}

// nextMonday returns the next Monday at 08:00 after t.
func nextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	next := time.Date(t.Year(), t.Month(), t.Day(), 8, 0, 0, 0, t.Location()).AddDate(0, 0, days)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// runSessionCleanup periodically purges expired sessions and tokens.
func runSessionCleanup(ctx context.Context, users service.UserService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := users.DeleteExpiredSessions(ctx); err != nil {
				logger.Error("session cleanup failed", "error", err)
			}
			if err := users.DeleteExpiredEmailVerificationTokens(ctx); err != nil {
				logger.Error("verification token cleanup failed", "error", err)
			}
			if err := users.DeleteExpiredPasswordResetTokens(ctx); err != nil {
				logger.Error("password reset token cleanup failed", "error", err)
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
