package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/database"
	"github.com/rehearsely/rehearse-backend/internal/handler"
	"github.com/rehearsely/rehearse-backend/internal/logger"
	"github.com/rehearsely/rehearse-backend/internal/repository"
	"github.com/rehearsely/rehearse-backend/internal/router"
	"github.com/rehearsely/rehearse-backend/internal/service"
	"github.com/rehearsely/rehearse-backend/internal/validator"
	"github.com/rehearsely/rehearse-backend/internal/worker"
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
		Msg("Starting Rehearse Backend")

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
	sessionRepo := repository.NewSessionRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	streakRepo := repository.NewStreakRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	notifier := service.NewRedisNotifier(rdb, log)
	supplier := service.NewQuestionSupplier(questionRepo, rdb, log)
	scorer := service.NewResponseScorer(service.ProfileFromConfig(cfg))
	tracker := service.NewPerformanceTracker(historyRepo, log)
	engine := service.NewSessionEngine(sessionRepo, supplier, scorer, tracker, rdb, cfg, log)
	scheduler := service.NewPracticeScheduler(scheduleRepo, streakRepo, sessionRepo, notifier, log)

	// Completed sessions feed the practice streak.
	engine.OnCompletion(scheduler.HandleCompletion)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session:   handler.NewSessionHandler(engine, sessionRepo),
		Analytics: handler.NewAnalyticsHandler(tracker, scheduler, sessionRepo),
		Schedule:  handler.NewScheduleHandler(scheduler),
		Question:  handler.NewQuestionHandler(questionRepo),
		WS:        handler.NewWSHandler(rdb, sessionRepo, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	historyWorker := worker.NewHistoryWorker(historyRepo, rdb, log)
	reminderWorker := worker.NewReminderWorker(scheduler, cfg.ReminderSweepInterval, log)

	go historyWorker.Start(workerCtx)
	go reminderWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

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
