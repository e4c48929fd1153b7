// Package poller runs inbox syncs on a fixed interval.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/logging"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// Syncer is the operation a Poller repeats.
type Syncer interface {
	Sync(ctx context.Context) (inapp.MergeResult, error)
}

// Config contains configuration for the sync poller.
type Config struct {
	// Interval is how often to sync.
	// Default: 60s
	Interval time.Duration

	// SyncOnStart runs one sync as soon as the poller starts.
	SyncOnStart bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    60 * time.Second,
		SyncOnStart: true,
	}
}

// Stats summarizes the poller's history.
type Stats struct {
	Syncs     int
	Failures  int
	LastSync  time.Time
	LastError error
}

// Poller periodically syncs the inbox. Syncs never overlap.
type Poller struct {
	config Config
	syncer Syncer
	prune  func(ctx context.Context) error
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
	stats   Stats
}

// Option configures a Poller.
type Option func(*Poller)

// WithPruner runs fn after every sync, e.g. to apply event retention.
func WithPruner(fn func(ctx context.Context) error) Option {
	return func(p *Poller) { p.prune = fn }
}

// New creates a Poller.
func New(config Config, syncer Syncer, opts ...Option) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	p := &Poller{
		config:  config,
		syncer:  syncer,
		logger:  logging.Component("sync-poller"),
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Info().
		Dur("interval", p.config.Interval).
		Bool("sync_on_start", p.config.SyncOnStart).
		Msg("sync poller starting")

	p.wg.Add(1)
	go p.runLoop()

	if p.config.SyncOnStart {
		p.requestSync()
	}
	return nil
}

// Stop halts the polling loop and waits for an in-flight sync.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}

	p.logger.Info().Msg("sync poller stopping")
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("sync poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// SyncNow asks the loop to sync immediately. Requests made while one is
// already pending are coalesced.
func (p *Poller) SyncNow() error {
	if !p.IsRunning() {
		return ErrPollerNotRunning
	}
	p.requestSync()
	return nil
}

// Stats returns a snapshot of the poller's counters.
func (p *Poller) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// LastSync returns when the last successful sync finished.
func (p *Poller) LastSync() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats.LastSync, !p.stats.LastSync.IsZero()
}

func (p *Poller) requestSync() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) runLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.syncOnce()
		case <-p.trigger:
			p.syncOnce()
		}
	}
}

func (p *Poller) syncOnce() {
	ctx := p.ctx
	start := time.Now()

	result, err := p.syncer.Sync(ctx)

	p.mu.Lock()
	if err != nil {
		p.stats.Failures++
		p.stats.LastError = err
	} else {
		p.stats.Syncs++
		p.stats.LastSync = time.Now()
		p.stats.LastError = nil
	}
	p.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warn().Err(err).Msg("sync failed")
		return
	}

	p.logger.Debug().
		Bool("inbox_changed", result.InboxChanged).
		Int("delivered", len(result.Delivered)).
		Dur("elapsed", time.Since(start)).
		Msg("synced")

	if p.prune != nil {
		if err := p.prune(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("prune failed")
		}
	}
}
