package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-buyfeed/internal/api"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/export"
	"github.com/rovshanmuradov/solana-buyfeed/internal/logger"
	"github.com/rovshanmuradov/solana-buyfeed/internal/monitor"
)

const (
	walletA = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	mintX   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testFeed() []domain.TransactionEvent {
	e2 := domain.NewBuyEvent("sig2", walletA, mintX, 1500, 0.25, 1_700_000_200)
	e2.TokenSymbol = "USDC"
	e2.TokenName = "USD Coin"
	e1 := domain.NewBuyEvent("sig1", walletA, mintX, 10, 0.1, 1_700_000_100)
	return []domain.TransactionEvent{e2, e1}
}

func newFeedServer(t *testing.T, feed []domain.TransactionEvent) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/monitor", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(feed)
	})
	mux.HandleFunc("GET /api/monitor/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.StatusResponse{
			State:        monitor.StateRunning,
			Wallets:      []string{walletA},
			FeedSize:     len(feed),
			FeedCapacity: 100,
			PollInterval: "1m0s",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, url string) *FeedModel {
	t.Helper()
	log := zaptest.NewLogger(t)
	return NewFeedModel(FeedModelConfig{
		Client:    NewFeedClient(url, time.Second),
		Exporter:  export.NewFeedExporter(log),
		Logs:      logger.NewLogBuffer(16, nil),
		Logger:    log,
		Interval:  time.Second,
		ExportDir: t.TempDir(),
	})
}

func runCmd(t *testing.T, m *FeedModel, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestFeedModel_LoadsFeed(t *testing.T) {
	srv := newFeedServer(t, testFeed())
	m := newTestModel(t, srv.URL)

	runCmd(t, m, m.fetch())

	require.NoError(t, m.lastErr)
	require.Len(t, m.feed, 2)
	assert.Equal(t, monitor.StateRunning, m.status.State)

	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-11-14 22:16:40", rows[0][0])
	assert.Equal(t, "USDC", rows[0][2])
	assert.Equal(t, "1.50K", rows[0][4])
	assert.Equal(t, "0.2500", rows[0][5])
	assert.Equal(t, domain.UnknownSymbol, rows[1][2])

	view := m.View()
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "feed: 2/100")
}

func TestFeedModel_FetchErrorKeepsPreviousFeed(t *testing.T) {
	srv := newFeedServer(t, testFeed())
	m := newTestModel(t, srv.URL)
	runCmd(t, m, m.fetch())
	require.Len(t, m.feed, 2)

	broken := NewFeedModel(FeedModelConfig{Client: NewFeedClient(srv.URL+"/missing", time.Second)})
	m.client = broken.client
	runCmd(t, m, m.fetch())

	assert.Error(t, m.lastErr)
	assert.Len(t, m.feed, 2)
	assert.Contains(t, m.View(), "✗")
}

func TestFeedModel_ExportKey(t *testing.T) {
	srv := newFeedServer(t, testFeed())
	m := newTestModel(t, srv.URL)
	runCmd(t, m, m.fetch())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	runCmd(t, m, cmd)

	require.NoError(t, m.lastErr)
	assert.Contains(t, m.notice, "Exported 2 buys")

	entries, err := os.ReadDir(m.exportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), ".csv")
}

func TestFeedModel_QuitAndToggles(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:0")
	require.True(t, m.showLogs)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	assert.False(t, m.showLogs)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFeedModel_LogsNewBuys(t *testing.T) {
	buf := logger.NewLogBuffer(16, nil)
	log, err := logger.CreateTUILoggerWithBuffer(false, buf)
	require.NoError(t, err)
	m := NewFeedModel(FeedModelConfig{Logs: buf, Logger: log})

	m.Update(feedLoadedMsg{feed: testFeed()[1:]})
	assert.Empty(t, buf.GetRecentLogs(10))

	m.Update(feedLoadedMsg{feed: testFeed()})
	require.NoError(t, log.Sync())
	logs := buf.GetRecentLogs(10)
	require.Len(t, logs, 1)
	assert.Equal(t, "New buys detected", logs[0].Message)
	assert.Contains(t, m.renderLogs(), "New buys detected")
}

func TestShortenAndFormat(t *testing.T) {
	assert.Equal(t, "7xKXt…sgAsU", shorten(walletA))
	assert.Equal(t, "short", shorten("short"))
	assert.Equal(t, "2.50M", formatAmount(2_500_000))
	assert.Equal(t, "0.5000", formatAmount(0.5))
}
