package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat maps a query value to an ExportFormat. Empty means JSON.
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	Since        int64  // unix seconds, inclusive; 0 disables
	Until        int64  // unix seconds, inclusive; 0 disables
	WalletFilter string // only buys by this wallet
	TokenFilter  string // only buys of this mint
	OutputDir    string
}

// FeedExporter writes feed snapshots as CSV or JSON.
type FeedExporter struct {
	logger *zap.Logger
}

// NewFeedExporter creates a new feed exporter
func NewFeedExporter(logger *zap.Logger) *FeedExporter {
	return &FeedExporter{
		logger: logger.Named("export"),
	}
}

// CSVHeaders returns the column names used by CSV exports and the journal.
func CSVHeaders() []string {
	return []string{
		"time", "timestamp", "wallet", "token_address", "token_symbol",
		"token_name", "token_amount", "sol_spent", "signature",
	}
}

// CSVRecord renders one buy as a CSV row matching CSVHeaders.
func CSVRecord(e domain.TransactionEvent) []string {
	return []string{
		e.Time,
		strconv.FormatInt(e.Timestamp, 10),
		e.Wallet,
		e.TokenAddress,
		e.TokenSymbol,
		e.TokenName,
		strconv.FormatFloat(e.TokenAmount, 'f', -1, 64),
		strconv.FormatFloat(e.SolSpent, 'f', 9, 64),
		e.Signature,
	}
}

// Write filters events and encodes them to w. It returns the number of
// exported buys.
func (fe *FeedExporter) Write(w io.Writer, events []domain.TransactionEvent, options ExportOptions) (int, error) {
	filtered := filterEvents(events, options)

	var err error
	switch options.Format {
	case FormatCSV:
		err = writeCSV(w, filtered)
	case FormatJSON, "":
		err = writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(filtered), nil
}

// ExportToDir writes a timestamped export file into options.OutputDir.
func (fe *FeedExporter) ExportToDir(events []domain.TransactionEvent, options ExportOptions) (string, error) {
	if len(filterEvents(events, options)) == 0 {
		return "", fmt.Errorf("no buys match the export criteria")
	}
	if options.Format == "" {
		options.Format = FormatJSON
	}

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, generateFilename(options, time.Now()))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	count, err := fe.Write(file, events, options)
	if err != nil {
		return "", err
	}

	fe.logger.Info("Feed exported",
		zap.String("file", outputPath),
		zap.Int("count", count),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterEvents(events []domain.TransactionEvent, options ExportOptions) []domain.TransactionEvent {
	filtered := make([]domain.TransactionEvent, 0, len(events))
	for _, e := range events {
		if options.Since > 0 && e.Timestamp < options.Since {
			continue
		}
		if options.Until > 0 && e.Timestamp > options.Until {
			continue
		}
		if options.WalletFilter != "" && e.Wallet != options.WalletFilter {
			continue
		}
		if options.TokenFilter != "" && e.TokenAddress != options.TokenFilter {
			continue
		}
		filtered = append(filtered, e)
	}

	// порядок ленты: новые сверху
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})
	return filtered
}

func generateFilename(options ExportOptions, now time.Time) string {
	prefix := "buys_all"
	if options.WalletFilter != "" {
		prefix = "buys_" + shorten(options.WalletFilter)
	}
	if options.TokenFilter != "" {
		prefix += "_" + shorten(options.TokenFilter)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), options.Format)
}

func shorten(addr string) string {
	if len(addr) > 8 {
		return addr[:8]
	}
	return addr
}

func writeCSV(w io.Writer, events []domain.TransactionEvent) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range events {
		if err := writer.Write(CSVRecord(e)); err != nil {
			return fmt.Errorf("failed to write buy: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, events []domain.TransactionEvent) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time                 `json:"export_time"`
		BuyCount   int                       `json:"buy_count"`
		Buys       []domain.TransactionEvent `json:"buys"`
		Summary    ExportSummary             `json:"summary"`
	}{
		ExportTime: time.Now().UTC(),
		BuyCount:   len(events),
		Buys:       events,
		Summary:    calculateSummary(events),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported buys
type ExportSummary struct {
	TotalBuys     int           `json:"total_buys"`
	UniqueWallets int           `json:"unique_wallets"`
	UniqueTokens  int           `json:"unique_tokens"`
	TotalSOLSpent float64       `json:"total_sol_spent"`
	AvgSOLSpent   float64       `json:"avg_sol_spent"`
	Oldest        string        `json:"oldest,omitempty"`
	Newest        string        `json:"newest,omitempty"`
	Wallets       []WalletStats `json:"wallets"`
	TopTokens     []TokenStats  `json:"top_tokens"`
}

// WalletStats aggregates buys of one wallet.
type WalletStats struct {
	Wallet   string  `json:"wallet"`
	BuyCount int     `json:"buy_count"`
	SOLSpent float64 `json:"sol_spent"`
}

// TokenStats aggregates buys of one token across wallets.
type TokenStats struct {
	TokenAddress string  `json:"token_address"`
	TokenSymbol  string  `json:"token_symbol"`
	BuyCount     int     `json:"buy_count"`
	Wallets      int     `json:"wallets"`
	SOLSpent     float64 `json:"sol_spent"`
}

func calculateSummary(events []domain.TransactionEvent) ExportSummary {
	summary := ExportSummary{
		TotalBuys: len(events),
		Wallets:   []WalletStats{},
		TopTokens: []TokenStats{},
	}
	if len(events) == 0 {
		return summary
	}

	wallets := make(map[string]*WalletStats)
	tokens := make(map[string]*TokenStats)
	tokenWallets := make(map[string]map[string]struct{})

	var oldest, newest int64 = events[0].Timestamp, events[0].Timestamp
	for _, e := range events {
		summary.TotalSOLSpent += e.SolSpent
		if e.Timestamp < oldest {
			oldest = e.Timestamp
		}
		if e.Timestamp > newest {
			newest = e.Timestamp
		}

		ws, ok := wallets[e.Wallet]
		if !ok {
			ws = &WalletStats{Wallet: e.Wallet}
			wallets[e.Wallet] = ws
		}
		ws.BuyCount++
		ws.SOLSpent += e.SolSpent

		ts, ok := tokens[e.TokenAddress]
		if !ok {
			ts = &TokenStats{TokenAddress: e.TokenAddress, TokenSymbol: e.TokenSymbol}
			tokens[e.TokenAddress] = ts
			tokenWallets[e.TokenAddress] = make(map[string]struct{})
		}
		ts.BuyCount++
		ts.SOLSpent += e.SolSpent
		tokenWallets[e.TokenAddress][e.Wallet] = struct{}{}
	}

	summary.UniqueWallets = len(wallets)
	summary.UniqueTokens = len(tokens)
	summary.AvgSOLSpent = summary.TotalSOLSpent / float64(len(events))
	summary.Oldest = domain.FormatTimestamp(oldest)
	summary.Newest = domain.FormatTimestamp(newest)

	for _, ws := range wallets {
		summary.Wallets = append(summary.Wallets, *ws)
	}
	sort.Slice(summary.Wallets, func(i, j int) bool {
		if summary.Wallets[i].SOLSpent != summary.Wallets[j].SOLSpent {
			return summary.Wallets[i].SOLSpent > summary.Wallets[j].SOLSpent
		}
		return summary.Wallets[i].Wallet < summary.Wallets[j].Wallet
	})

	for mint, ts := range tokens {
		ts.Wallets = len(tokenWallets[mint])
		summary.TopTokens = append(summary.TopTokens, *ts)
	}
	sort.Slice(summary.TopTokens, func(i, j int) bool {
		a, b := summary.TopTokens[i], summary.TopTokens[j]
		if a.Wallets != b.Wallets {
			return a.Wallets > b.Wallets
		}
		if a.BuyCount != b.BuyCount {
			return a.BuyCount > b.BuyCount
		}
		return a.TokenAddress < b.TokenAddress
	})

	return summary
}
