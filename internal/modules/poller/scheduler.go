// Package poller refreshes the live status of every channel someone cares
// about: favourites plus whatever a view currently shows.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	DefaultInterval     = 90 * time.Second
	DefaultBatchSize    = 100
	DefaultBatchTimeout = 20 * time.Second
)

// StatusFetcher reports the channels among ids that are currently live.
type StatusFetcher interface {
	FetchChannelStatuses(ctx context.Context, ids []string) ([]channelDomain.Snapshot, error)
}

// ChannelRegistry is the part of the registry the scheduler drives.
type ChannelRegistry interface {
	InterestSet() []string
	UpsertMany(entries []registry.Entry) []channelDomain.Delta
}

// TransitionInspector is handed every delta produced by a completed batch.
type TransitionInspector interface {
	InspectAll(deltas []channelDomain.Delta) int
}

// Poster runs closures on the control loop.
type Poster interface {
	Post(fn func()) bool
}

// Config holds scheduler tunables. Zero values fall back to defaults.
type Config struct {
	Interval     time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > DefaultBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	return cfg
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Ticks          uint64    `json:"ticks"`
	SkippedTicks   uint64    `json:"skipped_ticks"`
	FailedBatches  uint64    `json:"failed_batches"`
	PendingBatches int32     `json:"pending_batches"`
	LastTick       time.Time `json:"last_tick"`
	LastSuccess    time.Time `json:"last_success"`
}

// Scheduler polls the interest set on a fixed interval. Ticks and batch
// completions run on the control loop; fetches run on their own goroutines.
type Scheduler struct {
	fetcher   StatusFetcher
	registry  ChannelRegistry
	inspector TransitionInspector
	loop      Poster
	cfg       Config
	logger    *slog.Logger

	// pending counts outstanding batches of the current tick.
	pending atomic.Int32
	ticks   atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64

	statsMu     sync.RWMutex
	lastTick    time.Time
	lastSuccess time.Time

	runMu   sync.Mutex
	running bool
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewScheduler(
	fetcher StatusFetcher,
	reg ChannelRegistry,
	inspector TransitionInspector,
	loop Poster,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		fetcher:   fetcher,
		registry:  reg,
		inspector: inspector,
		loop:      loop,
		cfg:       sanitizeConfig(cfg),
		logger:    logger.With("component", "scheduler"),
		now:       time.Now,
	}
}

// Run polls immediately, then on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return oops.In("poller").Errorf("scheduler already running")
	}
	s.running = true
	s.runMu.Unlock()

	s.logger.Info("starting scheduler",
		"interval", s.cfg.Interval,
		"batch_size", s.cfg.BatchSize,
		"batch_timeout", s.cfg.BatchTimeout,
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled, waiting for outstanding batches")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick schedules one polling round on the control loop.
func (s *Scheduler) Tick(ctx context.Context) bool {
	return s.loop.Post(func() { s.tick(ctx) })
}

func (s *Scheduler) tick(ctx context.Context) {
	if n := s.pending.Load(); n > 0 {
		s.skipped.Add(1)
		s.logger.Warn("previous poll still outstanding, skipping tick", "pending_batches", n)
		return
	}

	ids := s.registry.InterestSet()
	batches := lo.Chunk(ids, s.cfg.BatchSize)
	s.pending.Store(int32(len(batches)))
	s.ticks.Add(1)
	s.statsMu.Lock()
	s.lastTick = s.now()
	s.statsMu.Unlock()

	if len(batches) == 0 {
		s.logger.Debug("nothing to poll")
		return
	}

	s.logger.Debug("polling channels", "channels", len(ids), "batches", len(batches))
	for _, batch := range batches {
		s.fetch(ctx, batch, true)
	}
}

// Refresh polls ids right away, outside the regular tick. Used when channels
// enter the interest set so their status does not wait for the next tick.
func (s *Scheduler) Refresh(ctx context.Context, ids []string) {
	ids = lo.Uniq(lo.Compact(ids))
	for _, batch := range lo.Chunk(ids, s.cfg.BatchSize) {
		s.fetch(ctx, batch, false)
	}
}

func (s *Scheduler) fetch(ctx context.Context, batch []string, counted bool) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
		snapshots, err := s.fetcher.FetchChannelStatuses(fetchCtx, batch)
		cancel()

		if !s.loop.Post(func() { s.complete(batch, snapshots, err, counted) }) {
			s.logger.Debug("control loop stopped, dropping batch result", "channels", len(batch))
		}
	}()
}

// complete applies one batch result. Ids the API did not report are offline;
// a failed batch leaves every status untouched until the next tick.
func (s *Scheduler) complete(batch []string, snapshots []channelDomain.Snapshot, err error, counted bool) {
	if counted {
		s.pending.Add(-1)
	}
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("status batch failed, will retry next tick", "channels", len(batch), "error", err)
		return
	}

	reported := lo.SliceToMap(snapshots, func(snap channelDomain.Snapshot) (string, channelDomain.Snapshot) {
		return snap.ID, snap
	})
	entries := lo.Map(batch, func(id string, _ int) registry.Entry {
		if snap, ok := reported[id]; ok {
			return registry.Entry{ID: id, Update: snap.Status()}
		}
		return registry.Entry{ID: id, Update: channelDomain.OfflineUpdate()}
	})

	deltas := s.registry.UpsertMany(entries)
	emitted := s.inspector.InspectAll(deltas)

	s.statsMu.Lock()
	s.lastSuccess = s.now()
	s.statsMu.Unlock()

	s.logger.Debug("status batch applied",
		"channels", len(batch),
		"live", len(reported),
		"notifications", emitted,
	)
}

// Stats returns current counters.
func (s *Scheduler) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return Stats{
		Ticks:          s.ticks.Load(),
		SkippedTicks:   s.skipped.Load(),
		FailedBatches:  s.failed.Load(),
		PendingBatches: s.pending.Load(),
		LastTick:       s.lastTick,
		LastSuccess:    s.lastSuccess,
	}
}
