package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-buyfeed/internal/api"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/export"
	"github.com/rovshanmuradov/solana-buyfeed/internal/logger"
	"github.com/rovshanmuradov/solana-buyfeed/internal/monitor"
	"github.com/rovshanmuradov/solana-buyfeed/internal/ui/style"
)

const (
	// DefaultRefreshInterval задает частоту опроса сервера
	DefaultRefreshInterval = 5 * time.Second

	logPaneLines = 5
)

// FeedModelConfig holds the dependencies of the feed viewer.
type FeedModelConfig struct {
	Client    *FeedClient
	Exporter  *export.FeedExporter
	Logs      *logger.LogBuffer
	Logger    *zap.Logger
	Interval  time.Duration
	ExportDir string
}

// Messages
type (
	refreshTickMsg time.Time

	feedLoadedMsg struct {
		feed   []domain.TransactionEvent
		status api.StatusResponse
		err    error
	}

	exportedMsg struct {
		path  string
		count int
		err   error
	}
)

// FeedModel is the bubbletea model of the buy feed viewer.
type FeedModel struct {
	client    *FeedClient
	exporter  *export.FeedExporter
	logs      *logger.LogBuffer
	logger    *zap.Logger
	interval  time.Duration
	exportDir string

	keys   KeyMap
	help   help.Model
	table  table.Model
	styles style.Styles

	feed       []domain.TransactionEvent
	seen       map[string]struct{}
	status     api.StatusResponse
	lastErr    error
	notice     string
	lastUpdate time.Time
	showLogs   bool

	width  int
	height int
}

// NewFeedModel creates the feed viewer model.
func NewFeedModel(cfg FeedModelConfig) *FeedModel {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	t := table.New(
		table.WithColumns(feedColumns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	palette := style.DefaultPalette()
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Foreground(palette.Secondary).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(palette.Background).
		Background(palette.Primary)
	t.SetStyles(ts)

	return &FeedModel{
		client:    cfg.Client,
		exporter:  cfg.Exporter,
		logs:      cfg.Logs,
		logger:    cfg.Logger.Named("tui"),
		interval:  cfg.Interval,
		exportDir: cfg.ExportDir,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		table:     t,
		styles:    style.DefaultStyles(),
		seen:      make(map[string]struct{}),
		showLogs:  cfg.Logs != nil,
	}
}

func feedColumns() []table.Column {
	return []table.Column{
		{Title: "Time (UTC)", Width: 19},
		{Title: "Wallet", Width: 13},
		{Title: "Token", Width: 10},
		{Title: "Name", Width: 18},
		{Title: "Amount", Width: 16},
		{Title: "SOL", Width: 10},
		{Title: "Signature", Width: 13},
	}
}

// Init starts the first fetch and the refresh timer.
func (m *FeedModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.scheduleRefresh())
}

// Update handles bubbletea messages.
func (m *FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.fetch(), m.scheduleRefresh())

	case feedLoadedMsg:
		m.applyFeed(msg)
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.notice = ""
			m.lastErr = fmt.Errorf("export failed: %w", msg.err)
			m.logger.Error("Export failed", zap.Error(msg.err))
			return m, nil
		}
		m.notice = fmt.Sprintf("Exported %d buys to %s", msg.count, msg.path)
		m.logger.Info("Feed exported", zap.String("path", msg.path), zap.Int("count", msg.count))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch()
		case key.Matches(msg, m.keys.ExportCSV):
			return m, m.exportFeed(export.FormatCSV)
		case key.Matches(msg, m.keys.ExportJSON):
			return m, m.exportFeed(export.FormatJSON)
		case key.Matches(msg, m.keys.ToggleLogs):
			m.showLogs = !m.showLogs && m.logs != nil
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *FeedModel) applyFeed(msg feedLoadedMsg) {
	if msg.err != nil {
		m.lastErr = msg.err
		m.logger.Warn("Failed to refresh feed", zap.Error(msg.err))
		return
	}
	m.lastErr = nil

	fresh := 0
	seen := make(map[string]struct{}, len(msg.feed))
	for _, e := range msg.feed {
		if _, ok := m.seen[e.Signature]; !ok {
			fresh++
		}
		seen[e.Signature] = struct{}{}
	}
	// первый снимок не считается новыми покупками
	if fresh > 0 && !m.lastUpdate.IsZero() {
		m.logger.Info("New buys detected", zap.Int("count", fresh))
	}

	m.seen = seen
	m.feed = msg.feed
	m.status = msg.status
	m.lastUpdate = time.Now()
	m.table.SetRows(feedRows(msg.feed))
}

func feedRows(feed []domain.TransactionEvent) []table.Row {
	rows := make([]table.Row, 0, len(feed))
	for _, e := range feed {
		rows = append(rows, table.Row{
			time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02 15:04:05"),
			shorten(e.Wallet),
			e.TokenSymbol,
			e.TokenName,
			formatAmount(e.TokenAmount),
			fmt.Sprintf("%.4f", e.SolSpent),
			shorten(e.Signature),
		})
	}
	return rows
}

func (m *FeedModel) fetch() tea.Cmd {
	client := m.client
	timeout := m.interval
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		feed, err := client.Feed(ctx)
		if err != nil {
			return feedLoadedMsg{err: err}
		}
		status, err := client.Status(ctx)
		return feedLoadedMsg{feed: feed, status: status, err: err}
	}
}

func (m *FeedModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m *FeedModel) exportFeed(format export.ExportFormat) tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	feed := make([]domain.TransactionEvent, len(m.feed))
	copy(feed, m.feed)
	exporter := m.exporter
	opts := export.ExportOptions{Format: format, OutputDir: m.exportDir}

	return func() tea.Msg {
		path, err := exporter.ExportToDir(feed, opts)
		return exportedMsg{path: path, count: len(feed), err: err}
	}
}

func (m *FeedModel) resize() {
	if m.height == 0 {
		return
	}
	// заголовок, статус, уведомление, рамка таблицы, помощь
	reserved := 8
	if m.showLogs {
		reserved += logPaneLines + 2
	}
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
	m.table.SetWidth(m.width - 4)
	m.help.Width = m.width
}

// View renders the viewer.
func (m *FeedModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("◎ Solana Buy Feed"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	switch {
	case m.lastErr != nil:
		b.WriteString(m.styles.Error.Render("✗ " + m.lastErr.Error()))
	case m.notice != "":
		b.WriteString(m.styles.Notice.Render(m.notice))
	}
	b.WriteString("\n")

	if len(m.feed) == 0 {
		b.WriteString(m.styles.Container.Render(m.styles.Status.Render("No buys yet")))
	} else {
		b.WriteString(m.styles.Container.Render(m.table.View()))
	}
	b.WriteString("\n")

	if m.showLogs {
		b.WriteString(m.renderLogs())
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *FeedModel) renderStatus() string {
	st := m.status
	state := m.styles.Stopped.Render(string(monitor.StateStopped))
	if st.State != "" {
		state = m.styles.Stopped.Render(string(st.State))
	}
	if st.State == monitor.StateRunning {
		state = m.styles.Running.Render(string(st.State))
	}

	parts := []string{
		state,
		fmt.Sprintf("wallets: %d", len(st.Wallets)),
		fmt.Sprintf("feed: %d/%d", st.FeedSize, st.FeedCapacity),
	}
	if st.PollInterval != "" {
		parts = append(parts, "every "+st.PollInterval)
	}
	if st.LastRound != nil {
		parts = append(parts, "last round "+st.LastRound.Local().Format("15:04:05"))
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, "updated "+m.lastUpdate.Format("15:04:05"))
	}
	return m.styles.Status.Render(strings.Join(parts, " │ "))
}

func (m *FeedModel) renderLogs() string {
	entries := m.logs.GetRecentLogs(logPaneLines)
	lines := make([]string, 0, logPaneLines)
	for _, e := range entries {
		levelStyle := m.styles.LogInfo
		switch e.Level {
		case "error", "fatal", "panic":
			levelStyle = m.styles.LogError
		case "warn":
			levelStyle = m.styles.LogWarn
		}
		line := fmt.Sprintf("%s %s %s",
			m.styles.LogTime.Render(e.Timestamp.Format("15:04:05")),
			levelStyle.Render(strings.ToUpper(e.Level)),
			e.Message)
		if errText, ok := e.Fields["error"].(string); ok {
			line += " " + m.styles.LogError.Render(errText)
		}
		lines = append(lines, line)
	}
	for len(lines) < logPaneLines {
		lines = append(lines, "")
	}
	return m.styles.LogPane.Render(strings.Join(lines, "\n"))
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:5] + "…" + s[len(s)-5:]
}

func formatAmount(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.2fK", v/1_000)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
