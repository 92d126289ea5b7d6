package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SnapshotThenUpdates(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	initial := []domain.TransactionEvent{domain.NewBuyEvent("sig1", walletA, mintX, 1, 0.1, 100)}
	hub := NewHub(bus, func() []domain.TransactionEvent { return initial }, zaptest.NewLogger(t))
	defer hub.Close()

	conn := dialHub(t, hub)

	snap := readMessage(t, conn)
	assert.Equal(t, MessageSnapshot, snap.Type)
	require.Len(t, snap.Feed, 1)
	assert.Equal(t, "sig1", snap.Feed[0].Signature)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	added := []domain.TransactionEvent{domain.NewBuyEvent("sig2", walletA, mintX, 2, 0.2, 200)}
	feed := append(append([]domain.TransactionEvent{}, added...), initial...)
	require.NoError(t, bus.PublishSync(context.Background(), events.NewFeedUpdated("tick", added, feed)))

	update := readMessage(t, conn)
	assert.Equal(t, MessageFeed, update.Type)
	assert.Equal(t, "tick", update.Round)
	assert.Equal(t, 1, update.Merged)
	require.Len(t, update.Feed, 2)
	assert.Equal(t, "sig2", update.Feed[0].Signature)

	require.NoError(t, bus.PublishSync(context.Background(), events.NewMonitoringStopped("stop")))
	assert.Equal(t, MessageStopped, readMessage(t, conn).Type)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	hub := NewHub(bus, func() []domain.TransactionEvent { return nil }, zaptest.NewLogger(t))
	conn := dialHub(t, hub)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()

	assert.Equal(t, 0, hub.Clients())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UpdateDuringSnapshotIsDelivered(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	added := []domain.TransactionEvent{domain.NewBuyEvent("sig1", walletA, mintX, 1, 0.1, 100)}

	// раунд коммитится, пока клиент получает снимок
	var once sync.Once
	snapshot := func() []domain.TransactionEvent {
		once.Do(func() {
			assert.NoError(t, bus.Publish(events.NewFeedUpdated("tick", added, added)))
		})
		return nil
	}

	hub := NewHub(bus, snapshot, zaptest.NewLogger(t))
	defer hub.Close()

	conn := dialHub(t, hub)

	assert.Equal(t, MessageSnapshot, readMessage(t, conn).Type)

	update := readMessage(t, conn)
	assert.Equal(t, MessageFeed, update.Type)
	require.Len(t, update.Feed, 1)
	assert.Equal(t, "sig1", update.Feed[0].Signature)
}
