package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/database"
	"github.com/aitrainer/trainer-backend/internal/handler"
	"github.com/aitrainer/trainer-backend/internal/kvstore"
	"github.com/aitrainer/trainer-backend/internal/logger"
	"github.com/aitrainer/trainer-backend/internal/metrics"
	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/practice"
	"github.com/aitrainer/trainer-backend/internal/repository"
	"github.com/aitrainer/trainer-backend/internal/router"
	"github.com/aitrainer/trainer-backend/internal/service"
	"github.com/aitrainer/trainer-backend/internal/validator"
	"github.com/aitrainer/trainer-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		zlog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting AI Trainer Backend")

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

	store := kvstore.NewRedisStore(rdb)
	m := metrics.New()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	bankRepo := repository.NewQuestionBankRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	practiceRepo := repository.NewPracticeSessionRepository(pool)
	mistakeRepo := repository.NewMistakeRepository(pool)
	resultRepo := repository.NewExamResultRepository(pool)
	statsRepo := repository.NewStatisticsRepository(pool)

	// ─── Load Question Bank ────────────────────────────────────────────
	// Loaded BEFORE accepting traffic; every feature reads from it.
	loader := bank.NewLoader(bankRepo, bank.NewAssetStore(cfg.AssetBaseURL), bank.NewKVCache(store, cfg.BankCacheTTL), log)
	bankService := service.NewBankService(loader, m, log)
	if _, err := bankService.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load question bank")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	notebook := mistake.NewNotebook(mistakeRepo, log)

	authService := service.NewAuthService(cfg, rdb, userRepo, log)
	practiceService := service.NewPracticeService(
		bankService,
		practice.NewKVLocalStore(store),
		practiceRepo,
		kvstore.NewQueue(rdb, config.WorkerKey.PersistPracticeQueue),
		statsRepo,
		notebook,
		kvstore.NewQueue(rdb, config.WorkerKey.PersistAttemptsQueue),
		m,
		log,
	)
	// Exam timers outlive requests; they stop with ctx.
	examService := service.NewExamService(ctx, cfg, bankService, resultRepo, statsRepo, notebook, store, m, log)
	mistakeService := service.NewMistakeService(notebook, bankService, log)
	dashboardService := service.NewDashboardService(authService, statsRepo, examService, bankService)

	// Sign-out drops everything the user holds in memory.
	unsubscribe := authService.OnAuthStateChange(func(_ context.Context, event service.AuthEvent, userID string) {
		if event != service.AuthEventSignedOut {
			return
		}
		practiceService.ForgetUser(userID)
		examService.ForgetUser(userID)
		mistakeService.ForgetUser(userID)
	})
	defer unsubscribe()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Bank:      handler.NewBankHandler(bankService),
		Practice:  handler.NewPracticeHandler(practiceService),
		Exam:      handler.NewExamHandler(examService),
		Mistake:   handler.NewMistakeHandler(mistakeService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		WS:        handler.NewWSHandler(examService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	practiceWorker := worker.NewPracticeSyncWorker(rdb, practiceRepo, log)
	attemptWorker := worker.NewAttemptWorker(rdb, attemptRepo, log)

	workers.Add(2)
	go func() { defer workers.Done(); practiceWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); attemptWorker.Start(workerCtx) }()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, bankService, handlers, m, cfg)

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

	// ─── Signals ───────────────────────────────────────────────────────
	// SIGHUP reloads the question bank; SIGINT/SIGTERM shut down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	var sig os.Signal
	for sig = range quit {
		if sig != syscall.SIGHUP {
			break
		}
		reloadBank(ctx, bankService, log)
	}

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop exam timers. In-flight exams stay in Redis and resume on restart.
	examService.Shutdown()

	// 3. Stop background workers and wait for their buffers to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

func reloadBank(ctx context.Context, bankService *service.BankService, log zerolog.Logger) {
	reloadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := bankService.Load(reloadCtx); err != nil {
		log.Error().Err(err).Msg("Question bank reload failed, keeping the current bank")
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
