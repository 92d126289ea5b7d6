// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// Monitoring lifecycle events
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"

	// Feed events
	FeedUpdated EventType = "feed.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MonitoringStartedEvent is emitted once a start round has been committed.
type MonitoringStartedEvent struct {
	BaseEvent
	Wallets  []string
	FeedSize int
}

// MonitoringStoppedEvent is emitted when the recurring poll is cancelled.
type MonitoringStoppedEvent struct {
	BaseEvent
	Reason string // "stop", "shutdown"
}

// FeedUpdatedEvent carries the feed after a round merged new buys.
type FeedUpdatedEvent struct {
	BaseEvent
	Round  string // "start" or "tick"
	Merged int
	Added  []domain.TransactionEvent // buys first seen in this round
	Feed   []domain.TransactionEvent
}

// NewMonitoringStarted builds a MonitoringStartedEvent stamped with now.
func NewMonitoringStarted(wallets []string, feedSize int) MonitoringStartedEvent {
	return MonitoringStartedEvent{
		BaseEvent: BaseEvent{EventType: MonitoringStarted, EventTime: time.Now()},
		Wallets:   wallets,
		FeedSize:  feedSize,
	}
}

// NewMonitoringStopped builds a MonitoringStoppedEvent stamped with now.
func NewMonitoringStopped(reason string) MonitoringStoppedEvent {
	return MonitoringStoppedEvent{
		BaseEvent: BaseEvent{EventType: MonitoringStopped, EventTime: time.Now()},
		Reason:    reason,
	}
}

// NewFeedUpdated builds a FeedUpdatedEvent stamped with now.
func NewFeedUpdated(round string, added, feed []domain.TransactionEvent) FeedUpdatedEvent {
	return FeedUpdatedEvent{
		BaseEvent: BaseEvent{EventType: FeedUpdated, EventTime: time.Now()},
		Round:     round,
		Merged:    len(added),
		Added:     added,
		Feed:      feed,
	}
}
