// internal/monitor/classifier.go
package monitor

import (
	"context"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

// MetadataLookup resolves display metadata for a mint; nil means unknown.
type MetadataLookup interface {
	Lookup(ctx context.Context, mint string) *domain.TokenMetadata
}

// BuyClassifier decides whether a raw transaction is a buy by a given wallet.
type BuyClassifier struct {
	metadata MetadataLookup
}

// NewBuyClassifier creates a classifier. metadata may be nil, in which case
// every event carries the Unknown defaults.
func NewBuyClassifier(metadata MetadataLookup) *BuyClassifier {
	return &BuyClassifier{metadata: metadata}
}

// Classify returns the normalized buy and true, or false when tx is not a buy
// for wallet. A miss is not an error.
func (c *BuyClassifier) Classify(ctx context.Context, tx domain.RawTransaction, wallet string) (domain.TransactionEvent, bool) {
	transfer, lamports, ok := MatchBuy(tx, wallet)
	if !ok {
		return domain.TransactionEvent{}, false
	}

	event := domain.NewBuyEvent(
		tx.Signature,
		wallet,
		transfer.Mint,
		transfer.TokenAmount,
		float64(lamports)/domain.LamportsPerSOL,
		tx.Timestamp,
	)

	if c.metadata != nil {
		if md := c.metadata.Lookup(ctx, transfer.Mint); md != nil {
			if md.Symbol != "" {
				event.TokenSymbol = md.Symbol
			}
			if md.Name != "" {
				event.TokenName = md.Name
			}
		}
	}

	return event, true
}

// MatchBuy applies the buy predicate.
//
// It returns the first token transfer (in record order) received by wallet
// whose mint is not native SOL, and the total lamports wallet sent. ok is
// false unless such a transfer exists and wallet sent at least one positive
// native amount. Only the first qualifying transfer is reported even when the
// wallet received several tokens in one transaction.
func MatchBuy(tx domain.RawTransaction, wallet string) (transfer domain.TokenTransfer, lamports int64, ok bool) {
	found := false
	for _, t := range tx.TokenTransfers {
		if t.ToUserAccount == wallet && t.Mint != domain.NativeMint {
			transfer = t
			found = true
			break
		}
	}
	if !found {
		return domain.TokenTransfer{}, 0, false
	}

	spent := false
	for _, n := range tx.NativeTransfers {
		if n.FromUserAccount != wallet {
			continue
		}
		lamports += n.Amount
		if n.Amount > 0 {
			spent = true
		}
	}
	if !spent {
		return domain.TokenTransfer{}, 0, false
	}

	return transfer, lamports, true
}
