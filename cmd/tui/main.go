package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-buyfeed/internal/export"
	"github.com/rovshanmuradov/solana-buyfeed/internal/logger"
	"github.com/rovshanmuradov/solana-buyfeed/internal/ui"
)

func main() {
	var (
		serverURL = flag.String("url", "http://localhost:8080", "buyfeed server base URL")
		interval  = flag.Duration("interval", ui.DefaultRefreshInterval, "feed refresh interval")
		exportDir = flag.String("export-dir", "exports", "directory for feed exports")
		logFile   = flag.String("log-file", "", "file receiving log entries evicted from the log pane")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var spill *logger.SafeFileWriter
	if *logFile != "" {
		w, err := logger.NewSafeFileWriter(*logFile, time.Second, zap.NewNop())
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer w.Close()
		spill = w
	}

	logBuffer := logger.NewLogBuffer(500, spill)
	tuiLogger, err := logger.CreateTUILoggerWithBuffer(*debug, logBuffer)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = tuiLogger.Sync() }()

	model := ui.NewFeedModel(ui.FeedModelConfig{
		Client:    ui.NewFeedClient(*serverURL, *interval),
		Exporter:  export.NewFeedExporter(tuiLogger),
		Logs:      logBuffer,
		Logger:    tuiLogger,
		Interval:  *interval,
		ExportDir: *exportDir,
	})

	tuiLogger.Info("Feed viewer started", zap.String("url", *serverURL))

	program := tea.NewProgram(
		ui.NewSafeModel(model, tuiLogger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		tuiLogger.Error("TUI program error", zap.Error(err))
		log.Fatalf("TUI error: %v", err)
	}
}
