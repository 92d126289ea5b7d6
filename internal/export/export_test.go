package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	walletA = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	walletB = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	mintX   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintY   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func generateTestFeed() []domain.TransactionEvent {
	a1 := domain.NewBuyEvent("sigA1", walletA, mintX, 100, 0.5, 1_700_000_100)
	a1.TokenSymbol = "USDC"
	a2 := domain.NewBuyEvent("sigA2", walletA, mintY, 5, 1.5, 1_700_000_300)
	b1 := domain.NewBuyEvent("sigB1", walletB, mintX, 42, 2.5, 1_700_000_200)
	b1.TokenSymbol = "USDC"
	return []domain.TransactionEvent{a2, b1, a1}
}

func TestFeedExportCSV(t *testing.T) {
	exporter := NewFeedExporter(zap.NewNop())

	var buf bytes.Buffer
	count, err := exporter.Write(&buf, generateTestFeed(), ExportOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "sigA2", rows[1][8])
	assert.Equal(t, "1.500000000", rows[1][7])
	assert.Equal(t, "2023-11-14T22:18:20.000Z", rows[1][0])
}

func TestFeedExportJSONSummary(t *testing.T) {
	exporter := NewFeedExporter(zap.NewNop())

	var buf bytes.Buffer
	_, err := exporter.Write(&buf, generateTestFeed(), ExportOptions{Format: FormatJSON})
	require.NoError(t, err)

	var decoded struct {
		BuyCount int                       `json:"buy_count"`
		Buys     []domain.TransactionEvent `json:"buys"`
		Summary  ExportSummary             `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 3, decoded.BuyCount)
	assert.Equal(t, "sigA2", decoded.Buys[0].Signature)

	s := decoded.Summary
	assert.Equal(t, 2, s.UniqueWallets)
	assert.Equal(t, 2, s.UniqueTokens)
	assert.InDelta(t, 4.5, s.TotalSOLSpent, 1e-9)
	assert.Equal(t, "2023-11-14T22:15:00.000Z", s.Oldest)
	assert.Equal(t, "2023-11-14T22:18:20.000Z", s.Newest)
	require.Len(t, s.TopTokens, 2)
	assert.Equal(t, mintX, s.TopTokens[0].TokenAddress)
	assert.Equal(t, 2, s.TopTokens[0].Wallets)
	require.Len(t, s.Wallets, 2)
	assert.Equal(t, walletB, s.Wallets[0].Wallet)
}

func TestFeedExportFilters(t *testing.T) {
	tests := []struct {
		name    string
		options ExportOptions
		want    []string
	}{
		{name: "wallet", options: ExportOptions{WalletFilter: walletA}, want: []string{"sigA2", "sigA1"}},
		{name: "token", options: ExportOptions{TokenFilter: mintX}, want: []string{"sigB1", "sigA1"}},
		{name: "since", options: ExportOptions{Since: 1_700_000_200}, want: []string{"sigA2", "sigB1"}},
		{name: "until", options: ExportOptions{Until: 1_700_000_100}, want: []string{"sigA1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterEvents(generateTestFeed(), tt.options)
			sigs := make([]string, len(got))
			for i, e := range got {
				sigs[i] = e.Signature
			}
			assert.Equal(t, tt.want, sigs)
		})
	}
}

func TestExportToDir(t *testing.T) {
	exporter := NewFeedExporter(zaptest.NewLogger(t))
	dir := t.TempDir()

	path, err := exporter.ExportToDir(generateTestFeed(), ExportOptions{
		Format:       FormatCSV,
		WalletFilter: walletA,
		OutputDir:    dir,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "buys_7xKXtg2C_"))
	assert.True(t, strings.HasSuffix(path, ".csv"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	_, err = exporter.ExportToDir(generateTestFeed(), ExportOptions{WalletFilter: "nobody", OutputDir: dir})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestJournalAppendsAddedBuys(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	path := filepath.Join(t.TempDir(), "journal", "buys.csv")
	journal, err := OpenJournal(path, bus, zaptest.NewLogger(t))
	require.NoError(t, err)

	feed := generateTestFeed()
	require.NoError(t, bus.PublishSync(context.Background(), events.NewFeedUpdated("tick", feed[:2], feed)))
	require.NoError(t, journal.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "sigA2", rows[1][8])
	assert.Equal(t, "sigB1", rows[2][8])
}
