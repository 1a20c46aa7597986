// Package store provides in-memory implementations of the engine's
// persistence interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/conveyly/assignment-engine/engine"
)

// =============================================================================
// MEMORY STORE - Implements all engine store interfaces
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	settings map[engine.FeeEarnerID]engine.FeeEarnerSettings
	blocks   map[engine.BlockID]engine.AvailabilityBlock
	matters  map[engine.MatterID]engine.Matter
	roles    map[roleKey]map[string]bool // tenant+user -> role set
}

type roleKey struct {
	Tenant engine.TenantID
	UserID string
}

func NewMemory() *Memory {
	return &Memory{
		settings: make(map[engine.FeeEarnerID]engine.FeeEarnerSettings),
		blocks:   make(map[engine.BlockID]engine.AvailabilityBlock),
		matters:  make(map[engine.MatterID]engine.Matter),
		roles:    make(map[roleKey]map[string]bool),
	}
}

// -----------------------------------------------------------------------------
// SettingsStore
// -----------------------------------------------------------------------------

func (m *Memory) GetSettings(_ context.Context, id engine.FeeEarnerID) (*engine.FeeEarnerSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) UpsertSettings(_ context.Context, s engine.FeeEarnerSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.FeeEarnerID] = s
	return nil
}

func (m *Memory) ListConfigured(_ context.Context, tenantID engine.TenantID) ([]engine.FeeEarnerSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.FeeEarnerSettings
	for _, s := range m.settings {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeeEarnerID < out[j].FeeEarnerID })
	return out, nil
}

// -----------------------------------------------------------------------------
// AvailabilityStore
// -----------------------------------------------------------------------------

func (m *Memory) SaveBlock(_ context.Context, b engine.AvailabilityBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = b
	return nil
}

func (m *Memory) GetBlock(_ context.Context, id engine.BlockID) (*engine.AvailabilityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok || b.DeletedAt != nil {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListBlocks(_ context.Context, feeEarnerID engine.FeeEarnerID) ([]engine.AvailabilityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.AvailabilityBlock
	for _, b := range m.blocks {
		if b.FeeEarnerID == feeEarnerID && b.DeletedAt == nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *Memory) DeleteBlock(_ context.Context, id engine.BlockID, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[id]
	if !ok || b.DeletedAt != nil {
		return engine.ErrBlockNotFound
	}
	b.DeletedAt = &deletedAt
	m.blocks[id] = b
	return nil
}

func (m *Memory) HasActiveBlock(_ context.Context, feeEarnerID engine.FeeEarnerID, day time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.blocks {
		if b.FeeEarnerID == feeEarnerID && b.DeletedAt == nil && b.Covers(day) {
			return true, nil
		}
	}
	return false, nil
}

// -----------------------------------------------------------------------------
// MatterStore
// -----------------------------------------------------------------------------

func (m *Memory) SaveMatter(_ context.Context, matter engine.Matter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matters[matter.ID] = matter
	return nil
}

func (m *Memory) GetMatter(_ context.Context, id engine.MatterID) (*engine.Matter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matter, ok := m.matters[id]
	if !ok {
		return nil, nil
	}
	return &matter, nil
}

func (m *Memory) CountActiveMatters(_ context.Context, feeEarnerID engine.FeeEarnerID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, matter := range m.matters {
		if matter.AssignedFeeEarnerID == feeEarnerID && matter.Status.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountMattersAssignedSince(_ context.Context, feeEarnerID engine.FeeEarnerID, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, matter := range m.matters {
		if matter.AssignedFeeEarnerID == feeEarnerID && !matter.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) SetAssignedFeeEarner(_ context.Context, id engine.MatterID, feeEarnerID engine.FeeEarnerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	matter, ok := m.matters[id]
	if !ok {
		return engine.ErrMatterNotFound
	}
	matter.AssignedFeeEarnerID = feeEarnerID
	m.matters[id] = matter
	return nil
}

// -----------------------------------------------------------------------------
// Authorizer
// -----------------------------------------------------------------------------

func (m *Memory) GrantRole(tenantID engine.TenantID, userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := roleKey{Tenant: tenantID, UserID: userID}
	if m.roles[k] == nil {
		m.roles[k] = make(map[string]bool)
	}
	m.roles[k][role] = true
}

func (m *Memory) HasRole(_ context.Context, tenantID engine.TenantID, actorID string, roles []string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	held := m.roles[roleKey{Tenant: tenantID, UserID: actorID}]
	for _, r := range roles {
		if held[r] {
			return true, nil
		}
	}
	return false, nil
}
