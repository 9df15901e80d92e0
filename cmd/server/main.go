package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/lernio/lernio-backend/internal/config"
	"github.com/lernio/lernio-backend/internal/database"
	"github.com/lernio/lernio-backend/internal/evaluation"
	"github.com/lernio/lernio-backend/internal/handler"
	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/logger"
	"github.com/lernio/lernio-backend/internal/repository"
	"github.com/lernio/lernio-backend/internal/router"
	"github.com/lernio/lernio-backend/internal/service"
	"github.com/lernio/lernio-backend/internal/validator"
	"github.com/lernio/lernio-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Lernio Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	certificateRepo := repository.NewCertificateRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	// ─── Initialize LLM Gateway + Evaluator ────────────────────────────
	llmClient := llm.NewClient(cfg, llm.NewRedisCache(rdb), log)
	evaluator := evaluation.New(llmClient, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	assessmentService := service.NewAssessmentService(assessmentRepo, questionRepo, rdb, log)
	generationService := service.NewGenerationService(llmClient, assessmentRepo, questionRepo, log)
	certificateService := service.NewCertificateService(certificateRepo, log)
	progressService := service.NewProgressService(progressRepo, log)
	reviewService := service.NewReviewService(reviewRepo, log)
	completionService := service.NewCompletionService(certificateService, progressService, rdb, log)
	monitorPublisher := service.NewMonitorPublisher(rdb, log)
	sessionService := service.NewSessionService(
		sessionRepo,
		assessmentRepo,
		questionRepo,
		generationService,
		evaluator,
		monitorPublisher,
		completionService,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Assessment:  handler.NewAssessmentHandler(assessmentService, generationService),
		Session:     handler.NewSessionHandler(sessionService),
		Certificate: handler.NewCertificateHandler(certificateService),
		Progress:    handler.NewProgressHandler(progressService),
		Review:      handler.NewReviewHandler(reviewService),
		WS:          handler.NewWSHandler(rdb, assessmentService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	analyticsWorker := worker.NewAnalyticsWorker(pool, rdb, log)
	reviewWorker := worker.NewReviewWorker(reviewRepo, rdb, log)

	go analyticsWorker.Start(workerCtx)
	go reviewWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
