package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/auth"
	"github.com/sendbridge/sendbridge-engine/pkg/config"
	"github.com/sendbridge/sendbridge-engine/pkg/database"
	"github.com/sendbridge/sendbridge-engine/pkg/handlers"
	"github.com/sendbridge/sendbridge-engine/pkg/middleware"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
	"github.com/sendbridge/sendbridge-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run through database/sql; the app itself uses a pgx pool.
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cache, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if cache != nil {
		defer cache.Close()
	}

	// Repositories
	submissionRepo := repositories.NewSubmissionRepository(db)
	reviewerRepo := repositories.NewReviewerRepository(db)
	fieldRepo := repositories.NewExtractedFieldRepository(db)
	provenanceRepo := repositories.NewProvenanceRepository(db)
	commentRepo := repositories.NewReviewCommentRepository(db)
	correctionRepo := repositories.NewCorrectionRepository(db)

	// Services
	var notifier services.Notifier
	if cfg.Notifier.SMTPHost != "" {
		notifier = services.NewSMTPNotifier(cfg.Notifier, logger)
	} else {
		notifier = services.NewLogNotifier(logger)
	}

	analyticsService := services.NewAnalyticsService(
		fieldRepo, correctionRepo, provenanceRepo, commentRepo,
		submissionRepo, reviewerRepo, cache, logger)
	workflowService := services.NewWorkflowService(submissionRepo, reviewerRepo, notifier, logger)
	assignmentService := services.NewAssignmentService(submissionRepo, reviewerRepo, notifier, logger)
	ingestService := services.NewIngestService(submissionRepo, fieldRepo, analyticsService, logger)
	reviewService := services.NewReviewService(fieldRepo, commentRepo, correctionRepo, provenanceRepo, analyticsService, logger)
	exportService := services.NewExportService(correctionRepo, cfg.Export, logger)

	// HTTP surface
	authMiddleware := auth.NewMiddleware(cfg.Auth, logger)
	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSubmissionsHandler(
		workflowService, assignmentService, analyticsService,
		submissionRepo, fieldRepo, commentRepo, correctionRepo,
		logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewFieldsHandler(ingestService, reviewService, fieldRepo, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewCommentsHandler(reviewService, commentRepo, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAnalyticsHandler(analyticsService, exportService, logger).RegisterRoutes(mux, authMiddleware)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting sendbridge-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
