package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"github.com/rovshanmuradov/solana-buyfeed/internal/logger"
	"go.uber.org/zap"
)

// Journal appends every newly committed buy to a CSV file. Rows are in
// commit order, newest first within a round.
type Journal struct {
	writer *logger.SafeCSVWriter
	sub    events.Subscription
	logger *zap.Logger
}

// OpenJournal opens (or creates) the journal at path and subscribes it to
// feed updates on bus.
func OpenJournal(path string, bus *events.Bus, log *zap.Logger) (*Journal, error) {
	log = log.Named("journal")

	writer, err := logger.NewSafeCSVWriter(path, CSVHeaders(), 5*time.Second, log)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	j := &Journal{writer: writer, logger: log}
	j.sub = bus.Subscribe(events.FeedUpdated, j)

	log.Info("Buy journal enabled", zap.String("file", path))
	return j, nil
}

// Handle implements events.Handler.
func (j *Journal) Handle(_ context.Context, event events.Event) error {
	update, ok := event.(events.FeedUpdatedEvent)
	if !ok {
		return nil
	}

	for _, buy := range update.Added {
		if err := j.writer.WriteRecord(CSVRecord(buy)); err != nil {
			return fmt.Errorf("journal buy %s: %w", buy.Signature, err)
		}
	}

	j.logger.Debug("Buys journaled",
		zap.String("round", update.Round),
		zap.Int("count", len(update.Added)))
	return nil
}

// Close unsubscribes and flushes the file.
func (j *Journal) Close() error {
	j.sub.Unsubscribe()
	return j.writer.Close()
}
