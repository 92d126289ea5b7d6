// internal/domain/event.go
package domain

import (
	"time"
)

// EventTypeBuy is the only classification the feed currently emits.
const EventTypeBuy = "BUY"

// NativeMint is the pseudo-address Helius reports for SOL (wrapped SOL mint).
const NativeMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL converts native transfer amounts into whole SOL.
const LamportsPerSOL = 1_000_000_000.0

const (
	UnknownSymbol = "Unknown"
	UnknownName   = "Unknown Token"
)

// TransactionEvent is a normalized buy record shown in the feed.
type TransactionEvent struct {
	Signature    string  `json:"signature"`
	Wallet       string  `json:"wallet"`
	TokenAddress string  `json:"tokenAddress"`
	TokenSymbol  string  `json:"tokenSymbol"`
	TokenName    string  `json:"tokenName"`
	TokenAmount  float64 `json:"tokenAmount"`
	SolSpent     float64 `json:"solSpent"`
	Time         string  `json:"time"`
	Type         string  `json:"type"`
	Timestamp    int64   `json:"timestamp"`
}

// NewBuyEvent fills the derived fields (type tag, ISO-8601 time) of a buy.
func NewBuyEvent(signature, wallet, mint string, tokenAmount, solSpent float64, timestamp int64) TransactionEvent {
	return TransactionEvent{
		Signature:    signature,
		Wallet:       wallet,
		TokenAddress: mint,
		TokenSymbol:  UnknownSymbol,
		TokenName:    UnknownName,
		TokenAmount:  tokenAmount,
		SolSpent:     solSpent,
		Time:         FormatTimestamp(timestamp),
		Type:         EventTypeBuy,
		Timestamp:    timestamp,
	}
}

// FormatTimestamp renders epoch seconds the way JavaScript's toISOString does.
func FormatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05.000Z")
}

// TokenMetadata holds display metadata for a token mint.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// RawTransaction is the subset of an indexed transaction the classifier reads.
type RawTransaction struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	Type            string           `json:"type,omitempty"`
	Source          string           `json:"source,omitempty"`
	FeePayer        string           `json:"feePayer,omitempty"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
}

// TokenTransfer represents a token movement between accounts.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer represents a SOL transfer; Amount is in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}
