// internal/monitor/scheduler.go
package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"github.com/rovshanmuradov/solana-buyfeed/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultConcurrency  = 4
)

// EventPublisher receives lifecycle and feed notifications.
type EventPublisher interface {
	Publish(event events.Event) error
}

// SchedulerConfig configuration for Scheduler
type SchedulerConfig struct {
	Poller       Poller
	Logger       *zap.Logger
	Interval     time.Duration // период опроса, 60s по умолчанию
	FeedCapacity int           // размер ленты, 100 по умолчанию
	Concurrency  int           // одновременных запросов к источнику
	RoundTimeout time.Duration // лимит на один раунд, по умолчанию Interval
	Publisher    EventPublisher
}

// StartResult is returned to the caller of Start.
type StartResult struct {
	Status         State    `json:"status"`
	TrackedWallets []string `json:"wallets"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State          State            `json:"state"`
	TrackedWallets []string         `json:"wallets"`
	Watermarks     map[string]int64 `json:"watermarks"`
	FeedSize       int              `json:"feedSize"`
	FeedCapacity   int              `json:"feedCapacity"`
	Interval       time.Duration    `json:"-"`
	LastRound      time.Time        `json:"lastRound"`
}

// Scheduler owns the tracked wallet set, the watermarks and the feed, and
// drives polling on a recurring timer.
//
// Every round collects all per-wallet results before taking the write lock,
// so readers see either the previous feed or the next one. Each Start and
// Stop bumps a generation counter; a round only commits if its generation is
// still current, which discards results from superseded configurations.
type Scheduler struct {
	mu         sync.RWMutex
	state      State
	wallets    []string
	watermarks *WatermarkTracker
	feed       *FeedStore
	generation uint64
	cancel     context.CancelFunc
	lastRound  time.Time

	poller       Poller
	interval     time.Duration
	concurrency  int
	roundTimeout time.Duration
	publisher    EventPublisher
	logger       *zap.Logger
	wg           sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(config *SchedulerConfig) *Scheduler {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	roundTimeout := config.RoundTimeout
	if roundTimeout <= 0 {
		roundTimeout = interval
	}

	return &Scheduler{
		state:        StateStopped,
		watermarks:   NewWatermarkTracker(),
		feed:         NewFeedStore(config.FeedCapacity),
		poller:       config.Poller,
		interval:     interval,
		concurrency:  concurrency,
		roundTimeout: roundTimeout,
		publisher:    config.Publisher,
		logger:       config.Logger.Named("scheduler"),
	}
}

// Start replaces the tracked wallet set and (re)arms monitoring.
//
// Any previous timer is cancelled before polling begins. The initial round
// polls every wallet, then the new wallet set, watermarks and feed are
// committed together and the timer is armed.
func (s *Scheduler) Start(ctx context.Context, wallets []string) (StartResult, error) {
	tracked, err := NormalizeWallets(wallets)
	if err != nil {
		return StartResult{}, err
	}

	genCtx, genCancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = genCancel
	s.state = StateStarting
	s.mu.Unlock()

	s.logger.Info("📊 Starting monitoring",
		zap.Int("wallets", len(tracked)),
		zap.Duration("interval", s.interval))

	begin := time.Now()

	// Раунд прерывается и при отмене ctx вызывающего, и при новом Start/Stop.
	pollCtx, pollCancel := context.WithTimeout(ctx, s.roundTimeout)
	stopAfter := context.AfterFunc(genCtx, pollCancel)
	results := s.pollAll(pollCtx, tracked)
	stopAfter()
	pollCancel()

	var all []domain.TransactionEvent
	marks := make(map[string]int64, len(tracked))
	for i, wallet := range tracked {
		marks[wallet] = maxTimestamp(results[i])
		all = append(all, results[i]...)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		genCancel()
		observability.RecordRoundDiscarded()
		s.logger.Info("Start superseded before commit, discarding results",
			zap.Int("wallets", len(tracked)))
		return StartResult{}, ErrStartSuperseded
	}
	// отметки предыдущего запуска: уже виденные покупки не считаются новыми
	var added []domain.TransactionEvent
	for i, wallet := range tracked {
		added = append(added, s.watermarks.FilterNew(wallet, results[i])...)
	}
	sortDescending(added)

	s.wallets = tracked
	s.watermarks.Reset(marks)
	s.feed.Replace(all)
	s.state = StateRunning
	s.lastRound = time.Now()
	feedSize := s.feed.Len()
	feed := s.feed.Snapshot()

	s.wg.Add(1)
	go s.run(genCtx, gen)
	s.mu.Unlock()

	observability.RecordRound("start", time.Since(begin).Seconds(), len(added), feedSize, len(tracked), time.Now().Unix())
	s.publish(events.NewMonitoringStarted(copyStrings(tracked), feedSize))
	s.publish(events.NewFeedUpdated("start", added, feed))

	s.logger.Info("✅ Monitoring started",
		zap.Int("wallets", len(tracked)),
		zap.Int("feed_size", feedSize),
		zap.Duration("elapsed", time.Since(begin)))

	return StartResult{
		Status:         StateRunning,
		TrackedWallets: copyStrings(tracked),
	}, nil
}

// Stop cancels the timer. The feed and watermarks stay readable until the
// next Start.
func (s *Scheduler) Stop() {
	s.stop("stop")
}

func (s *Scheduler) stop(reason string) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.state = StateStopped
	s.mu.Unlock()

	s.publish(events.NewMonitoringStopped(reason))
	s.logger.Info("🛑 Monitoring stopped", zap.String("reason", reason))
}

// Shutdown stops monitoring and waits for the timer goroutine to exit.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stop("shutdown")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timeout waiting for polling goroutine to finish")
		return ctx.Err()
	}
}

// Tick runs one incremental round immediately. It is what the timer calls.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.RLock()
	state, gen := s.state, s.generation
	s.mu.RUnlock()

	if state != StateRunning {
		return ErrNotRunning
	}
	s.tick(ctx, gen)
	return nil
}

// ReadFeed returns the feed newest first, in any state.
func (s *Scheduler) ReadFeed() []domain.TransactionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feed.Snapshot()
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TrackedWallets returns a copy of the tracked wallet set.
func (s *Scheduler) TrackedWallets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStrings(s.wallets)
}

// Watermark returns the wallet's current watermark.
func (s *Scheduler) Watermark(wallet string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermarks.Get(wallet)
}

// Status returns a consistent view of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:          s.state,
		TrackedWallets: copyStrings(s.wallets),
		Watermarks:     s.watermarks.Snapshot(),
		FeedSize:       s.feed.Len(),
		FeedCapacity:   s.feed.Capacity(),
		Interval:       s.interval,
		LastRound:      s.lastRound,
	}
}

// run fires tick every interval until ctx is cancelled.
func (s *Scheduler) run(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Polling loop stopped", zap.Uint64("generation", gen))
			return
		case <-ticker.C:
			s.tick(ctx, gen)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	s.mu.RLock()
	if s.state != StateRunning || s.generation != gen {
		s.mu.RUnlock()
		return
	}
	wallets := copyStrings(s.wallets)
	s.mu.RUnlock()

	begin := time.Now()

	roundCtx, cancel := context.WithTimeout(ctx, s.roundTimeout)
	results := s.pollAll(roundCtx, wallets)
	cancel()

	s.mu.Lock()
	if s.state != StateRunning || s.generation != gen {
		s.mu.Unlock()
		observability.RecordRoundDiscarded()
		s.logger.Debug("Discarding results of superseded round", zap.Uint64("generation", gen))
		return
	}

	var fresh []domain.TransactionEvent
	for i, wallet := range wallets {
		newEvents := s.watermarks.FilterNew(wallet, results[i])
		if len(newEvents) == 0 {
			continue
		}
		s.watermarks.Advance(wallet, newEvents)
		fresh = append(fresh, newEvents...)
	}
	sortDescending(fresh)
	feedSize := s.feed.Merge(fresh)
	s.lastRound = time.Now()
	var feed []domain.TransactionEvent
	if len(fresh) > 0 {
		feed = s.feed.Snapshot()
	}
	s.mu.Unlock()

	observability.RecordRound("tick", time.Since(begin).Seconds(), len(fresh), feedSize, len(wallets), time.Now().Unix())

	if len(fresh) > 0 {
		s.publish(events.NewFeedUpdated("tick", fresh, feed))
		s.logger.Info("New buys detected",
			zap.Int("count", len(fresh)),
			zap.Int("feed_size", feedSize))
	} else {
		s.logger.Debug("No new buys", zap.Int("wallets", len(wallets)))
	}
}

// pollAll polls every wallet with bounded concurrency. results[i] belongs to
// wallets[i].
func (s *Scheduler) pollAll(ctx context.Context, wallets []string) [][]domain.TransactionEvent {
	results := make([][]domain.TransactionEvent, len(wallets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, wallet := range wallets {
		g.Go(func() error {
			results[i] = s.poller.Poll(gCtx, wallet)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scheduler) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Debug("Failed to publish event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// NormalizeWallets trims, deduplicates (keeping first occurrence order) and
// validates a wallet set. Each address must be a base58 Solana public key.
func NormalizeWallets(wallets []string) ([]string, error) {
	seen := make(map[string]struct{}, len(wallets))
	out := make([]string, 0, len(wallets))

	for _, raw := range wallets {
		wallet := strings.TrimSpace(raw)
		if wallet == "" {
			return nil, &ConfigurationError{Reason: "empty wallet address"}
		}
		if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
			return nil, &ConfigurationError{Reason: "malformed wallet address", Wallet: wallet}
		}
		if _, dup := seen[wallet]; dup {
			continue
		}
		seen[wallet] = struct{}{}
		out = append(out, wallet)
	}

	if len(out) == 0 {
		return nil, &ConfigurationError{Reason: "wallet set is empty"}
	}
	return out, nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
