package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTarget captures every snapshot it receives, optionally failing the
// first N writes.
type recordingTarget struct {
	mu        sync.Mutex
	snapshots []model.CartSnapshot
	failures  int
}

func (t *recordingTarget) SaveCart(ctx context.Context, snap model.CartSnapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failures > 0 {
		t.failures--
		return errors.New("write failed")
	}
	t.snapshots = append(t.snapshots, snap)
	return nil
}

func (t *recordingTarget) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.snapshots)
}

func (t *recordingTarget) last() model.CartSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshots[len(t.snapshots)-1]
}

func testSyncerConfig() SyncerConfig {
	return SyncerConfig{
		Window:       20 * time.Millisecond,
		WriteTimeout: time.Second,
		MaxRetries:   2,
		RetryBackoff: 5 * time.Millisecond,
	}
}

func snapshotWithItems(items ...model.CartItemPatch) model.CartSnapshot {
	return model.CartSnapshot{
		CartID: uuid.New(),
		UserID: "user-1",
		Items:  items,
	}
}

func TestSyncer_Schedule_CoalescesBurst(t *testing.T) {
	target := &recordingTarget{}
	syncer := NewSyncer(target, testSyncerConfig(), zerolog.Nop())
	defer syncer.Close()

	first := snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 1, IsSelect: true})
	second := snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 5, IsSelect: true})

	syncer.Schedule(first)
	syncer.Schedule(second)

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 5*time.Millisecond)

	// Only the latest snapshot of the burst went out
	sent := target.last()
	require.Len(t, sent.Items, 1)
	assert.Equal(t, 5, sent.Items[0].Quantity)

	// No further write follows
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, target.count())
}

func TestSyncer_Schedule_SeparateWindowsWriteSeparately(t *testing.T) {
	target := &recordingTarget{}
	syncer := NewSyncer(target, testSyncerConfig(), zerolog.Nop())
	defer syncer.Close()

	syncer.Schedule(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 1}))
	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 5*time.Millisecond)

	syncer.Schedule(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 2}))
	require.Eventually(t, func() bool { return target.count() == 2 }, time.Second, 5*time.Millisecond)

	// Sequence numbers are strictly increasing across writes
	assert.Greater(t, target.snapshots[1].Seq, target.snapshots[0].Seq)
}

func TestSyncer_Flush_SupersedesPending(t *testing.T) {
	target := &recordingTarget{}
	syncer := NewSyncer(target, testSyncerConfig(), zerolog.Nop())
	defer syncer.Close()

	syncer.Schedule(snapshotWithItems(
		model.CartItemPatch{ProductID: "P001", Quantity: 1},
		model.CartItemPatch{ProductID: "P002", Quantity: 1},
	))
	syncer.Flush(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 1}))

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 5*time.Millisecond)

	// The flushed snapshot went out and the debounced one was dropped
	assert.Len(t, target.last().Items, 1)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, target.count())
}

func TestSyncer_Write_RetriesThenSucceeds(t *testing.T) {
	target := &recordingTarget{failures: 2}
	syncer := NewSyncer(target, testSyncerConfig(), zerolog.Nop())
	defer syncer.Close()

	syncer.Flush(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 1}))

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, syncer.Dirty())
}

func TestSyncer_Write_DirtyAfterExhaustedRetries(t *testing.T) {
	target := &recordingTarget{failures: 10}
	syncer := NewSyncer(target, testSyncerConfig(), zerolog.Nop())

	syncer.Flush(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 1}))
	syncer.Close()

	assert.Equal(t, 0, target.count())
	assert.True(t, syncer.Dirty())
}

func TestSyncer_Close_FlushesPending(t *testing.T) {
	target := &recordingTarget{}
	cfg := testSyncerConfig()
	cfg.Window = time.Hour // debounce would never fire on its own
	syncer := NewSyncer(target, cfg, zerolog.Nop())

	syncer.Schedule(snapshotWithItems(model.CartItemPatch{ProductID: "P001", Quantity: 3}))
	syncer.Close()

	require.Equal(t, 1, target.count())
	assert.Equal(t, 3, target.last().Items[0].Quantity)

	// A closed syncer ignores further work
	syncer.Schedule(snapshotWithItems(model.CartItemPatch{ProductID: "P002", Quantity: 1}))
	syncer.Flush(snapshotWithItems(model.CartItemPatch{ProductID: "P003", Quantity: 1}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, target.count())
}

func TestNewSyncer_ZeroConfigUsesDefaults(t *testing.T) {
	syncer := NewSyncer(&recordingTarget{}, SyncerConfig{}, zerolog.Nop())

	def := DefaultSyncerConfig()
	assert.Equal(t, def.Window, syncer.cfg.Window)
	assert.Equal(t, def.WriteTimeout, syncer.cfg.WriteTimeout)
	assert.Equal(t, 0, syncer.cfg.MaxRetries) // zero means no retries, kept as-is
	assert.Equal(t, def.RetryBackoff, syncer.cfg.RetryBackoff)
}
