package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/config"
	"github.com/mahin/bachelor-expenses-go/internal/handler"
	"github.com/mahin/bachelor-expenses-go/internal/infra/cache"
	"github.com/mahin/bachelor-expenses-go/internal/infra/gemini"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/infra/resilience"
	"github.com/mahin/bachelor-expenses-go/internal/infra/sqlitedoc"
	"github.com/mahin/bachelor-expenses-go/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.String("fast_model", cfg.GeminiFastModel),
		zap.String("deep_model", cfg.GeminiDeepModel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("coach_debounce", cfg.CoachDebounce),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Float64("survival_daily_floor", cfg.SurvivalDailyFloor),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "bachelor-expenses")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	store, err := sqlitedoc.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}
	defer store.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("gemini")

	// --- Advice generator ---
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, coaching requests will fail upstream")
	}
	advisor := gemini.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.GeminiAPIURL,
		cfg.GeminiAPIKey,
		cfg.GeminiFastModel,
		cfg.GeminiDeepModel,
		cb,
		resilienceCfg,
		metrics,
		logger,
	)

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, metrics, logger)
	coachSvc := service.NewCoachService(
		ledgerSvc,
		advisor,
		cache.New[*service.AnalysisRecord](cfg.CacheTTL),
		metrics,
		logger,
		cfg.CoachDebounce,
	)
	defer coachSvc.Close()
	authSvc := service.NewAuthService(store, ledgerSvc, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, coachSvc, authSvc, store, metrics, cfg.SurvivalDailyFloor, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
