// internal/events/handler.go
package events

import (
	"context"
)

// Handler реагирует на события монитора (старт, остановка, обновление ленты).
// Handle вызывается из горутины шины и не должен блокироваться надолго.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc позволяет подписать обычную функцию.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is returned by Bus.Subscribe.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id    string
	bus   *Bus
	event EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.event)
}
