package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/database"
	"github.com/timisisipi/oposai-backend/internal/handler"
	"github.com/timisisipi/oposai-backend/internal/logger"
	"github.com/timisisipi/oposai-backend/internal/repository"
	"github.com/timisisipi/oposai-backend/internal/router"
	"github.com/timisisipi/oposai-backend/internal/service"
	"github.com/timisisipi/oposai-backend/internal/session"
	"github.com/timisisipi/oposai-backend/internal/tutor"
	"github.com/timisisipi/oposai-backend/internal/validator"
	"github.com/timisisipi/oposai-backend/internal/worker"
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
		Msg("Starting OposAI Backend")

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
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	explanationRepo := repository.NewExplanationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)

	tutorClient := tutor.NewClient(
		&http.Client{Timeout: cfg.TutorTimeout},
		cfg.OpenAIBaseURL,
		cfg.OpenAIAPIKey,
		cfg.TutorPrimaryModel,
		cfg.TutorFallbackModel,
		cfg.TutorMaxTokens,
	)
	tutorService := tutor.NewService(
		questionRepo,
		attemptRepo,
		explanationRepo,
		tutorClient,
		rdb,
		cfg.TutorTimeout,
		log,
	)

	// ─── Initialize Session Registry ──────────────────────────────────
	// Answer and mark mirrors go through Redis queues; the persist worker
	// moves them into PostgreSQL in the background.
	queuePersister := worker.NewQueuePersister(rdb)

	registry := session.NewRegistry(session.Collaborators{
		Questions: questionRepo,
		Attempts:  attemptRepo,
		Answers:   queuePersister,
		Marks:     queuePersister,
		Scorer:    attemptRepo,
		Tutor:     tutorService,
	}, session.Options{
		QuestionBudget: int(cfg.QuestionTimeLimit / time.Second),
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Attempt: handler.NewAttemptHandler(registry, attemptRepo, questionRepo, log),
		Tutor:   handler.NewTutorHandler(tutorService, log),
		WS:      handler.NewWSHandler(registry, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	persistWorker := worker.NewPersistWorker(answerRepo, rdb, log)
	go persistWorker.Start(workerCtx)

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

	// 2. Stop session timers.
	registry.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
