package cart

import (
	"testing"
	"time"

	"shopcart/internal/model"
	"shopcart/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetOrCreate(t *testing.T) {
	target := &recordingTarget{}
	m := NewManager(target, pricing.NewResolver(pricing.StrategyFirst), nil, testSyncerConfig(), zerolog.Nop())
	defer m.Close()

	_, ok := m.Get("user-1")
	assert.False(t, ok)

	cartID := uuid.New()
	seed := []model.CartLine{
		lineFor(model.Product{ID: "P001", Price: 100000, Stock: 10}, 2, true),
	}
	st := m.GetOrCreate(cartID, "user-1", seed)
	require.NotNil(t, st)
	assert.Equal(t, cartID, st.CartID())
	assert.Len(t, st.Lines(), 1)

	// Second call returns the same store; the new seed is ignored because
	// in-memory state is authoritative during a session
	again := m.GetOrCreate(uuid.New(), "user-1", nil)
	assert.Same(t, st, again)
	assert.Len(t, again.Lines(), 1)

	got, ok := m.Get("user-1")
	require.True(t, ok)
	assert.Same(t, st, got)
}

func TestManager_Close_FlushesPendingWrites(t *testing.T) {
	target := &recordingTarget{}
	cfg := testSyncerConfig()
	cfg.Window = time.Hour
	m := NewManager(target, pricing.NewResolver(pricing.StrategyFirst), nil, cfg, zerolog.Nop())

	st := m.GetOrCreate(uuid.New(), "user-1", []model.CartLine{
		lineFor(model.Product{ID: "P001", Price: 100000, Stock: 10}, 1, true),
	})
	st.SetQuantity("P001", 4)

	m.Close()

	require.Equal(t, 1, target.count())
	assert.Equal(t, 4, target.last().Items[0].Quantity)

	// Stores are dropped on close
	_, ok := m.Get("user-1")
	assert.False(t, ok)
}
