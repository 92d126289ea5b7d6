// internal/monitor/watermark.go
package monitor

import (
	"sync"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

// WatermarkTracker stores the newest timestamp seen per wallet.
// A wallet without an entry has watermark 0.
type WatermarkTracker struct {
	mu    sync.RWMutex
	marks map[string]int64
}

func NewWatermarkTracker() *WatermarkTracker {
	return &WatermarkTracker{marks: make(map[string]int64)}
}

// Get returns the wallet's watermark.
func (w *WatermarkTracker) Get(wallet string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.marks[wallet]
}

// Advance raises the watermark to the newest timestamp in events. It never
// lowers it.
func (w *WatermarkTracker) Advance(wallet string, events []domain.TransactionEvent) {
	if len(events) == 0 {
		return
	}
	newest := maxTimestamp(events)

	w.mu.Lock()
	defer w.mu.Unlock()
	if newest > w.marks[wallet] {
		w.marks[wallet] = newest
	}
}

// FilterNew returns the events strictly newer than the wallet's watermark.
func (w *WatermarkTracker) FilterNew(wallet string, events []domain.TransactionEvent) []domain.TransactionEvent {
	mark := w.Get(wallet)

	fresh := make([]domain.TransactionEvent, 0, len(events))
	for _, e := range events {
		if e.Timestamp > mark {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

// Reset replaces all watermarks. Wallets missing from marks are forgotten.
func (w *WatermarkTracker) Reset(marks map[string]int64) {
	next := make(map[string]int64, len(marks))
	for wallet, ts := range marks {
		next[wallet] = ts
	}

	w.mu.Lock()
	w.marks = next
	w.mu.Unlock()
}

// Snapshot returns a copy of all watermarks.
func (w *WatermarkTracker) Snapshot() map[string]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string]int64, len(w.marks))
	for wallet, ts := range w.marks {
		out[wallet] = ts
	}
	return out
}

func maxTimestamp(events []domain.TransactionEvent) int64 {
	var newest int64
	for _, e := range events {
		if e.Timestamp > newest {
			newest = e.Timestamp
		}
	}
	return newest
}
