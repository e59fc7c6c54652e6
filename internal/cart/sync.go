// Package cart holds the authoritative in-memory cart state for active
// sessions and the debounced channel that persists it.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shopcart/internal/model"
)

// SyncTarget persists a full cart snapshot. Writes are full-replace and
// therefore idempotent; the target must discard snapshots whose sequence
// number is not newer than the last one it applied.
type SyncTarget interface {
	SaveCart(ctx context.Context, snap model.CartSnapshot) error
}

// SyncerConfig holds debounce and retry settings for outbound cart writes.
type SyncerConfig struct {
	// Window is the settling period after the last mutation before a write
	// is actually sent.
	Window time.Duration

	// WriteTimeout bounds each outbound write attempt.
	WriteTimeout time.Duration

	// MaxRetries is the number of additional attempts after a failed write.
	MaxRetries int

	// RetryBackoff is the base delay between attempts, scaled linearly.
	RetryBackoff time.Duration
}

// DefaultSyncerConfig returns the default sync settings.
func DefaultSyncerConfig() SyncerConfig {
	return SyncerConfig{
		Window:       300 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// Syncer coalesces bursts of local cart mutations into at most one outbound
// write per settling window. The write always carries the most recent snapshot
// at the moment the timer fires, never an intermediate one. Local state is
// never rolled back on failure; instead the syncer turns dirty until a later
// write succeeds.
type Syncer struct {
	target SyncTarget
	cfg    SyncerConfig
	logger zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *model.CartSnapshot
	seq     uint64
	dirty   bool
	closed  bool
	wg      sync.WaitGroup
}

// NewSyncer creates a syncer for one cart. Zero config fields fall back to
// the defaults.
func NewSyncer(target SyncTarget, cfg SyncerConfig, logger zerolog.Logger) *Syncer {
	def := DefaultSyncerConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return &Syncer{
		target: target,
		cfg:    cfg,
		logger: logger.With().Str("component", "cart-syncer").Logger(),
	}
}

// Schedule resets the debounce timer with a new snapshot. A snapshot scheduled
// before the previous one was sent replaces it entirely.
func (s *Syncer) Schedule(snap model.CartSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	snap.Seq = s.seq
	s.pending = &snap
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Window, s.fire)
}

// Flush sends a snapshot immediately, superseding any pending debounced one.
// Used for removals, where a stale later write could resurrect a deleted line,
// and on shutdown.
func (s *Syncer) Flush(snap model.CartSnapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	snap.Seq = s.seq
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.write(snap)
	}()
}

// Dirty reports whether local state holds changes the backend may not have.
func (s *Syncer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Close stops the timer, sends any pending snapshot synchronously and waits
// for in-flight writes to finish.
func (s *Syncer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	snap := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if snap != nil {
		s.write(*snap)
	}
	s.wg.Wait()
}

// fire runs when the debounce window elapses.
func (s *Syncer) fire() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.timer = nil
	if snap == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.write(*snap)
}

// write pushes one snapshot with bounded retry. The cart write is a full
// replace, so retrying is safe. After exhausting retries the snapshot is
// dropped and the syncer is marked dirty.
func (s *Syncer) write(snap model.CartSnapshot) {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * s.cfg.RetryBackoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		err = s.target.SaveCart(ctx, snap)
		cancel()

		if err == nil {
			s.mu.Lock()
			// Only a write of the latest sequence proves the backend is
			// caught up.
			if snap.Seq == s.seq && s.pending == nil {
				s.dirty = false
			}
			s.mu.Unlock()

			s.logger.Debug().
				Str("cart_id", snap.CartID.String()).
				Uint64("seq", snap.Seq).
				Int("item_count", len(snap.Items)).
				Msg("cart snapshot persisted")
			return
		}

		s.logger.Warn().
			Err(err).
			Str("cart_id", snap.CartID.String()).
			Uint64("seq", snap.Seq).
			Int("attempt", attempt+1).
			Msg("cart sync write failed")
	}

	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()

	s.logger.Error().
		Err(err).
		Str("cart_id", snap.CartID.String()).
		Uint64("seq", snap.Seq).
		Msg("cart sync abandoned after retries, local state kept")
}
