// internal/app/runner.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/api"
	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain/birdeye"
	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain/helius"
	"github.com/rovshanmuradov/solana-buyfeed/internal/config"
	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"github.com/rovshanmuradov/solana-buyfeed/internal/export"
	"github.com/rovshanmuradov/solana-buyfeed/internal/metadata"
	"github.com/rovshanmuradov/solana-buyfeed/internal/monitor"
	"go.uber.org/zap"
)

// Runner wires the monitor, its data sources and the HTTP surface.
type Runner struct {
	logger    *zap.Logger
	config    *config.Config
	bus       *events.Bus
	scheduler *monitor.Scheduler
	server    *api.Server
	shutdown  *ShutdownHandler
}

// NewRunner builds every component from cfg. Nothing is started yet.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	shutdown := NewShutdownHandler(logger, 15*time.Second)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	retry := blockchain.DefaultRetryPolicy()
	retry.MaxTries = cfg.FetchMaxTries()

	bus := events.NewBus(logger, 256)
	shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bus.Shutdown(ctx)
	})

	source := helius.NewClient(cfg.HeliusAPIKey, cfg.HeliusBaseURL, logger,
		helius.WithHTTPClient(httpClient),
		helius.WithRetryPolicy(retry))

	var (
		lookup    monitor.MetadataLookup
		cacheSize func() int
	)
	if cfg.BirdeyeAPIKey != "" {
		md := birdeye.NewClient(cfg.BirdeyeAPIKey, cfg.BirdeyeBaseURL, logger,
			birdeye.WithHTTPClient(httpClient),
			birdeye.WithRetryPolicy(retry))
		cache := metadata.NewTokenMetadataCache(md, cfg.MetadataCacheMax, logger)
		lookup = cache
		cacheSize = cache.Len
	} else {
		logger.Warn("birdeye_api_key is not set, tokens will be shown as Unknown")
	}

	poller := monitor.NewWalletPoller(source, monitor.NewBuyClassifier(lookup), logger)

	scheduler := monitor.NewScheduler(&monitor.SchedulerConfig{
		Poller:       poller,
		Logger:       logger,
		Interval:     cfg.PollInterval(),
		FeedCapacity: cfg.FeedCapacity,
		Concurrency:  cfg.PollConcurrency,
		Publisher:    bus,
	})
	shutdown.AddFunc("scheduler", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return scheduler.Shutdown(ctx)
	})

	if cfg.JournalPath != "" {
		journal, err := export.OpenJournal(cfg.JournalPath, bus, logger)
		if err != nil {
			_ = shutdown.Shutdown()
			return nil, err
		}
		// журнал закрывается раньше шины, поэтому регистрируется после неё
		shutdown.Add("journal", journal)
	}

	hub := api.NewHub(bus, scheduler.ReadFeed, logger)
	server := api.NewServer(&api.ServerConfig{
		Monitor:   scheduler,
		Exporter:  export.NewFeedExporter(logger),
		Hub:       hub,
		CacheSize: cacheSize,
		Logger:    logger,
	})

	return &Runner{
		logger:    logger,
		config:    cfg,
		bus:       bus,
		scheduler: scheduler,
		server:    server,
		shutdown:  shutdown,
	}, nil
}

// Run starts monitoring the configured wallets (if any) and serves HTTP
// until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		if err := r.shutdown.Shutdown(); err != nil {
			r.logger.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if len(r.config.Wallets) > 0 {
		if _, err := r.scheduler.Start(ctx, r.config.Wallets); err != nil {
			return fmt.Errorf("start monitoring configured wallets: %w", err)
		}
	} else {
		r.logger.Info("No wallets configured, waiting for POST /api/monitor")
	}

	return r.server.Run(ctx, r.config.ListenAddr)
}
