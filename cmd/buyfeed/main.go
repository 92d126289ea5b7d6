// ====================================
// File: cmd/buyfeed/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-buyfeed/internal/app"
	"github.com/rovshanmuradov/solana-buyfeed/internal/config"
	"github.com/rovshanmuradov/solana-buyfeed/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (json/yaml), optional")
	flag.Parse()

	// .env необязателен
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.JSONLogging {
		log, err = logger.CreateJSONLogger(cfg.DebugLogging)
	} else {
		log, err = logger.CreatePrettyLogger(cfg.DebugLogging)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(cfg, log)
	if err != nil {
		log.Error("Failed to initialize", zap.Error(err))
		os.Exit(1)
	}

	log.Info("🚀 Starting buy feed",
		zap.Int("wallets", len(cfg.Wallets)),
		zap.Duration("interval", cfg.PollInterval()))

	if err := runner.Run(ctx); err != nil {
		log.Error("Buy feed stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("👋 Buy feed stopped")
}
