// Package api exposes the monitor over HTTP: start/stop/read of the feed,
// status, export and a websocket stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/export"
	"github.com/rovshanmuradov/solana-buyfeed/internal/monitor"
	"github.com/rovshanmuradov/solana-buyfeed/internal/observability"
	"go.uber.org/zap"
)

// Monitor is the subset of monitor.Scheduler the API drives.
type Monitor interface {
	Start(ctx context.Context, wallets []string) (monitor.StartResult, error)
	Stop()
	ReadFeed() []domain.TransactionEvent
	Status() monitor.Status
}

// ServerConfig configuration for Server
type ServerConfig struct {
	Monitor   Monitor
	Exporter  *export.FeedExporter
	Hub       *Hub       // nil disables /api/monitor/ws
	CacheSize func() int // metadata cache size for /status, optional
	Logger    *zap.Logger
}

// Server serves the HTTP API.
type Server struct {
	monitor   Monitor
	exporter  *export.FeedExporter
	hub       *Hub
	cacheSize func() int
	logger    *zap.Logger
	startedAt time.Time
}

func NewServer(config *ServerConfig) *Server {
	return &Server{
		monitor:   config.Monitor,
		exporter:  config.Exporter,
		hub:       config.Hub,
		cacheSize: config.CacheSize,
		logger:    config.Logger.Named("api"),
		startedAt: time.Now(),
	}
}

// StartRequest is the POST /api/monitor body.
type StartRequest struct {
	Wallets []string `json:"wallets"`
}

// StartResponse is returned after monitoring started.
type StartResponse struct {
	Message string        `json:"message"`
	Status  monitor.State `json:"status"`
	Wallets []string      `json:"wallets"`
}

// StatusResponse is the JSON response for /api/monitor/status.
type StatusResponse struct {
	State          monitor.State    `json:"state"`
	Wallets        []string         `json:"wallets"`
	Watermarks     map[string]int64 `json:"watermarks"`
	FeedSize       int              `json:"feedSize"`
	FeedCapacity   int              `json:"feedCapacity"`
	PollInterval   string           `json:"pollInterval"`
	LastRound      *time.Time       `json:"lastRound,omitempty"`
	MetadataCached int              `json:"metadataCached"`
	Uptime         string           `json:"uptime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /api/monitor", s.handleStart)
	mux.HandleFunc("GET /api/monitor", s.handleFeed)
	mux.HandleFunc("DELETE /api/monitor", s.handleStop)
	mux.HandleFunc("GET /api/monitor/status", s.handleStatus)
	mux.HandleFunc("GET /api/monitor/export", s.handleExport)
	if s.hub != nil {
		mux.Handle("GET /api/monitor/ws", s.hub)
	}

	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Раунд старта не должен обрываться, если клиент отключился.
	res, err := s.monitor.Start(context.WithoutCancel(r.Context()), req.Wallets)
	if err != nil {
		var cfgErr *monitor.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: cfgErr.Error()})
		case errors.Is(err, monitor.ErrStartSuperseded):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			s.logger.Error("Failed to start monitoring", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to start monitoring"})
		}
		return
	}

	writeJSON(w, http.StatusOK, StartResponse{
		Message: "Monitoring started",
		Status:  res.Status,
		Wallets: res.TrackedWallets,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.ReadFeed())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Monitoring stopped",
		"status":  string(monitor.StateStopped),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.monitor.Status()

	resp := StatusResponse{
		State:        st.State,
		Wallets:      st.TrackedWallets,
		Watermarks:   st.Watermarks,
		FeedSize:     st.FeedSize,
		FeedCapacity: st.FeedCapacity,
		PollInterval: st.Interval.String(),
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
	}
	if !st.LastRound.IsZero() {
		last := st.LastRound
		resp.LastRound = &last
	}
	if s.cacheSize != nil {
		resp.MetadataCached = s.cacheSize()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	options := export.ExportOptions{
		Format:       format,
		WalletFilter: q.Get("wallet"),
		TokenFilter:  q.Get("token"),
	}

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="buys_%s.%s"`, time.Now().UTC().Format("20060102_150405"), format))

	if _, err := s.exporter.Write(w, s.monitor.ReadFeed(), options); err != nil {
		s.logger.Warn("Export failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
