// internal/monitor/poller.go
package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/observability"
	"go.uber.org/zap"
)

// Poller fetches and classifies the recent buys of one wallet.
type Poller interface {
	Poll(ctx context.Context, wallet string) []domain.TransactionEvent
}

// WalletPoller implements Poller on top of a TransactionSource.
type WalletPoller struct {
	source     blockchain.TransactionSource
	classifier *BuyClassifier
	logger     *zap.Logger
}

// NewWalletPoller creates a poller.
func NewWalletPoller(source blockchain.TransactionSource, classifier *BuyClassifier, logger *zap.Logger) *WalletPoller {
	return &WalletPoller{
		source:     source,
		classifier: classifier,
		logger:     logger.Named("poller"),
	}
}

// Poll returns the wallet's buys sorted newest first. Fetch failures are
// logged and yield an empty result so one wallet never blocks the others.
// Watermark filtering is left to the caller.
func (p *WalletPoller) Poll(ctx context.Context, wallet string) []domain.TransactionEvent {
	start := time.Now()

	txs, err := p.source.FetchRecent(ctx, wallet)
	if err != nil {
		observability.RecordPoll("error")
		p.logger.Warn("failed to fetch wallet transactions",
			zap.String("wallet", wallet),
			zap.Error(err))
		return []domain.TransactionEvent{}
	}

	events := make([]domain.TransactionEvent, 0, len(txs))
	for _, tx := range txs {
		event, ok := p.classifier.Classify(ctx, tx, wallet)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})

	observability.RecordPoll("ok")
	observability.RecordBuysClassified(len(events))

	p.logger.Debug("wallet polled",
		zap.String("wallet", wallet),
		zap.Int("transactions", len(txs)),
		zap.Int("buys", len(events)),
		zap.Duration("elapsed", time.Since(start)))

	return events
}
