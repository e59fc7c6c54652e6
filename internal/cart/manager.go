package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopcart/internal/model"
	"shopcart/internal/pricing"
)

// Manager owns one Store per active user session, each with its own debounced
// syncer bound to the shared persistence target.
type Manager struct {
	target SyncTarget
	pricer *pricing.Resolver
	badge  BadgePublisher
	cfg    SyncerConfig
	logger zerolog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a store manager. badge may be nil.
func NewManager(
	target SyncTarget,
	pricer *pricing.Resolver,
	badge BadgePublisher,
	cfg SyncerConfig,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		target: target,
		pricer: pricer,
		badge:  badge,
		cfg:    cfg,
		logger: logger.With().Str("component", "cart-manager").Logger(),
		stores: make(map[string]*Store),
	}
}

// Get returns the store for a user if one is active.
func (m *Manager) Get(userID string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[userID]
	return st, ok
}

// GetOrCreate returns the active store for a user, seeding a new one from the
// given lines when none exists. The seed is ignored for an existing store:
// in-memory state stays authoritative during a session.
func (m *Manager) GetOrCreate(cartID uuid.UUID, userID string, seed []model.CartLine) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[userID]; ok {
		return st
	}

	syncer := NewSyncer(m.target, m.cfg, m.logger.With().Str("cart_id", cartID.String()).Logger())
	st := NewStore(cartID, userID, m.pricer, syncer, m.badge, m.logger)
	st.ReplaceAll(seed)
	m.stores[userID] = st

	m.logger.Debug().
		Str("user_id", userID).
		Str("cart_id", cartID.String()).
		Int("line_count", len(seed)).
		Msg("cart store created")

	return st
}

// Close flushes pending writes for every store and drops them. Called on
// shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, st := range m.stores {
		stores = append(stores, st)
	}
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	for _, st := range stores {
		st.syncer.Close()
	}

	m.logger.Info().Int("store_count", len(stores)).Msg("cart stores closed")
}
