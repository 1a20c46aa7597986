/*
store.go - Persistence and capability interfaces for the engine

PURPOSE:
  Defines the boundary between the assignment logic and the outside
  world. The engine never talks to a database or an auth system
  directly; it consumes these interfaces. Different implementations can
  use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  SettingsStore:     Fee-earner assignment configuration (upsert/get/list)
  AvailabilityStore: Date-ranged unavailability blocks (soft-deleted)
  MatterStore:       The matter fields this engine reads and the one it writes
  Authorizer:        Opaque role check (auth policy lives elsewhere)

SOFT DELETE CONTRACT:
  Availability blocks are tombstoned, never hard-deleted. Every read
  method on AvailabilityStore excludes tombstoned rows, so callers
  never have to filter them.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - engine/store/memory.go: In-memory for testing

SEE ALSO:
  - workload.go, assign.go: Consumers of these interfaces
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// SETTINGS STORE
// =============================================================================

type SettingsStore interface {
	// GetSettings returns the settings row for a fee earner, or nil if
	// the fee earner is not configured for assignment.
	GetSettings(ctx context.Context, id FeeEarnerID) (*FeeEarnerSettings, error)

	// UpsertSettings creates or replaces the settings row, keyed on
	// fee-earner identity.
	UpsertSettings(ctx context.Context, settings FeeEarnerSettings) error

	// ListConfigured returns all settings rows for a tenant. Fee earners
	// without a row are by definition absent from the result.
	ListConfigured(ctx context.Context, tenantID TenantID) ([]FeeEarnerSettings, error)
}

// =============================================================================
// AVAILABILITY STORE
// =============================================================================

type AvailabilityStore interface {
	// SaveBlock inserts or replaces an availability block.
	SaveBlock(ctx context.Context, block AvailabilityBlock) error

	// GetBlock returns a block by ID, or nil if absent or tombstoned.
	GetBlock(ctx context.Context, id BlockID) (*AvailabilityBlock, error)

	// ListBlocks returns all non-tombstoned blocks for a fee earner.
	ListBlocks(ctx context.Context, feeEarnerID FeeEarnerID) ([]AvailabilityBlock, error)

	// DeleteBlock tombstones a block. Returns ErrBlockNotFound if the
	// block is absent or already tombstoned.
	DeleteBlock(ctx context.Context, id BlockID, deletedAt time.Time) error

	// HasActiveBlock reports whether any non-tombstoned block's date
	// range contains the given day. Overlapping blocks are permitted;
	// the result is the same whether one or five blocks cover the day.
	HasActiveBlock(ctx context.Context, feeEarnerID FeeEarnerID, day time.Time) (bool, error)
}

// =============================================================================
// MATTER STORE - External matter subsystem, narrowed to what we need
// =============================================================================

type MatterStore interface {
	// GetMatter returns a matter, or nil if it doesn't exist.
	GetMatter(ctx context.Context, id MatterID) (*Matter, error)

	// CountActiveMatters counts matters assigned to the fee earner whose
	// status is open (new or active).
	CountActiveMatters(ctx context.Context, feeEarnerID FeeEarnerID) (int, error)

	// CountMattersAssignedSince counts matters assigned to the fee
	// earner that were created on or after the given instant.
	CountMattersAssignedSince(ctx context.Context, feeEarnerID FeeEarnerID, since time.Time) (int, error)

	// SetAssignedFeeEarner writes the matter's assignment field.
	SetAssignedFeeEarner(ctx context.Context, id MatterID, feeEarnerID FeeEarnerID) error
}

// =============================================================================
// AUTHORIZER - Opaque capability check
// =============================================================================

// Actor identifies the authenticated caller of an operation. Identity
// resolution happens outside this subsystem.
type Actor struct {
	ID string
}

// ManagerRoles are the roles allowed to execute assignments and manage
// other fee earners' availability.
var ManagerRoles = []string{"manager", "partner", "admin"}

// Authorizer answers role-membership questions. The policy behind it
// (role definitions, tenant membership) is out of scope here.
type Authorizer interface {
	HasRole(ctx context.Context, tenantID TenantID, actorID string, roles []string) (bool, error)
}
