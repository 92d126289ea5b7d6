// internal/monitor/feed.go
package monitor

import (
	"sort"
	"sync"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

// DefaultFeedCapacity is the number of buys kept for display.
const DefaultFeedCapacity = 100

// FeedStore is a bounded list of buys ordered newest first.
type FeedStore struct {
	mu       sync.RWMutex
	events   []domain.TransactionEvent
	capacity int
}

// NewFeedStore creates an empty feed. capacity <= 0 selects DefaultFeedCapacity.
func NewFeedStore(capacity int) *FeedStore {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &FeedStore{
		events:   make([]domain.TransactionEvent, 0, capacity),
		capacity: capacity,
	}
}

// Replace discards the current contents and stores events sorted and truncated.
func (f *FeedStore) Replace(events []domain.TransactionEvent) {
	next := make([]domain.TransactionEvent, len(events))
	copy(next, events)
	next = f.normalize(next)

	f.mu.Lock()
	f.events = next
	f.mu.Unlock()
}

// Merge prepends events, re-sorts and truncates. It returns the feed length.
func (f *FeedStore) Merge(events []domain.TransactionEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(events) == 0 {
		return len(f.events)
	}

	next := make([]domain.TransactionEvent, 0, len(events)+len(f.events))
	next = append(next, events...)
	next = append(next, f.events...)
	f.events = f.normalize(next)

	return len(f.events)
}

// Snapshot returns a copy of the feed sorted newest first.
func (f *FeedStore) Snapshot() []domain.TransactionEvent {
	f.mu.RLock()
	out := make([]domain.TransactionEvent, len(f.events))
	copy(out, f.events)
	f.mu.RUnlock()

	sortDescending(out)
	return out
}

// Len returns the number of stored events.
func (f *FeedStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}

// Capacity returns the maximum number of stored events.
func (f *FeedStore) Capacity() int {
	return f.capacity
}

func (f *FeedStore) normalize(events []domain.TransactionEvent) []domain.TransactionEvent {
	sortDescending(events)
	if len(events) > f.capacity {
		events = append(make([]domain.TransactionEvent, 0, f.capacity), events[:f.capacity]...)
	}
	return events
}

func sortDescending(events []domain.TransactionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
}
