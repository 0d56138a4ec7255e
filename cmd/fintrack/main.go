package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/finance"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     parseLogLevel(cfg.LogLevel),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	store, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open data backend", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher finance.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("AMQP not configured, transaction events disabled")
	}

	summaryCache := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)

	authService := auth.NewService(store, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	reportService := finance.NewReportService(store, summaryCache, logger)
	categoryService := finance.NewCategoryService(store, logger)
	transactionService := finance.NewTransactionService(store, store, publisher, reportService, logger)

	srv := apphttp.NewServer(cfg, authService, categoryService, transactionService, reportService, logger)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			log.FieldOperation, log.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
