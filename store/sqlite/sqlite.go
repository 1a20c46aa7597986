/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements SettingsStore, AvailabilityStore, MatterStore and
  Authorizer using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.SettingsStore:     Fee-earner assignment configuration
  engine.AvailabilityStore: Unavailability blocks (soft-deleted)
  engine.MatterStore:       Matter reads and assignment writes
  engine.Authorizer:        Tenant role membership

SOFT DELETE:
  availability_blocks carries a deleted_at tombstone. No DELETE
  statement ever runs against that table; every read filters
  deleted_at IS NULL.

KEY TABLES:
  fee_earner_settings: One row per configured fee earner
  availability_blocks: Date-ranged unavailability records
  matters:             The matter slice this engine touches
  tenant_roles:        Role membership for capability checks

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/conveyly.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/conveyly/assignment-engine/engine"
)

const dateFormat = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fee_earner_settings (
		fee_earner_id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		max_concurrent_matters INTEGER NOT NULL,
		max_new_matters_per_week INTEGER NOT NULL,
		matter_types_json TEXT NOT NULL,
		min_transaction_value TEXT,
		max_transaction_value TEXT,
		accepts_auto_assignment INTEGER NOT NULL,
		assignment_priority INTEGER NOT NULL,
		working_days_json TEXT NOT NULL,
		working_hours_start TEXT,
		working_hours_end TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settings_tenant
		ON fee_earner_settings(tenant_id);

	CREATE TABLE IF NOT EXISTS availability_blocks (
		id TEXT PRIMARY KEY,
		fee_earner_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		availability_type TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	);

	-- Hot path: "does any live block cover today" per fee earner
	CREATE INDEX IF NOT EXISTS idx_blocks_fee_earner_range
		ON availability_blocks(fee_earner_id, start_date, end_date)
		WHERE deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS matters (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		matter_type TEXT NOT NULL,
		transaction_value TEXT NOT NULL,
		status TEXT NOT NULL,
		assigned_fee_earner_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: active-matter counts per fee earner
	CREATE INDEX IF NOT EXISTS idx_matters_assignee_status
		ON matters(assigned_fee_earner_id, status);
	CREATE INDEX IF NOT EXISTS idx_matters_assignee_created
		ON matters(assigned_fee_earner_id, created_at);

	CREATE TABLE IF NOT EXISTS tenant_roles (
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		PRIMARY KEY (tenant_id, user_id, role)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// UpsertSettings creates or replaces a settings row, keyed on fee earner.
func (s *Store) UpsertSettings(ctx context.Context, settings engine.FeeEarnerSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matterTypes, _ := json.Marshal(settings.MatterTypes)
	workingDays, _ := json.Marshal(settings.WorkingDays)

	query := `
		INSERT INTO fee_earner_settings
		(fee_earner_id, tenant_id, max_concurrent_matters, max_new_matters_per_week,
		 matter_types_json, min_transaction_value, max_transaction_value,
		 accepts_auto_assignment, assignment_priority, working_days_json,
		 working_hours_start, working_hours_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fee_earner_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			max_concurrent_matters = excluded.max_concurrent_matters,
			max_new_matters_per_week = excluded.max_new_matters_per_week,
			matter_types_json = excluded.matter_types_json,
			min_transaction_value = excluded.min_transaction_value,
			max_transaction_value = excluded.max_transaction_value,
			accepts_auto_assignment = excluded.accepts_auto_assignment,
			assignment_priority = excluded.assignment_priority,
			working_days_json = excluded.working_days_json,
			working_hours_start = excluded.working_hours_start,
			working_hours_end = excluded.working_hours_end,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		settings.FeeEarnerID,
		settings.TenantID,
		settings.MaxConcurrentMatters,
		settings.MaxNewMattersPerWeek,
		string(matterTypes),
		nullDecimal(settings.MinTransactionValue),
		nullDecimal(settings.MaxTransactionValue),
		boolToInt(settings.AcceptsAutoAssignment),
		settings.AssignmentPriority,
		string(workingDays),
		nullString(settings.WorkingHoursStart),
		nullString(settings.WorkingHoursEnd),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

// GetSettings returns the settings row for a fee earner, or nil.
func (s *Store) GetSettings(ctx context.Context, id engine.FeeEarnerID) (*engine.FeeEarnerSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.querySettings(ctx,
		selectSettings+" WHERE fee_earner_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListConfigured returns all settings rows for a tenant, ordered by
// fee-earner ID for stable enumeration.
func (s *Store) ListConfigured(ctx context.Context, tenantID engine.TenantID) ([]engine.FeeEarnerSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySettings(ctx,
		selectSettings+" WHERE tenant_id = ? ORDER BY fee_earner_id", tenantID)
}

const selectSettings = `
	SELECT fee_earner_id, tenant_id, max_concurrent_matters, max_new_matters_per_week,
	       matter_types_json, min_transaction_value, max_transaction_value,
	       accepts_auto_assignment, assignment_priority, working_days_json,
	       working_hours_start, working_hours_end, created_at, updated_at
	FROM fee_earner_settings`

func (s *Store) querySettings(ctx context.Context, query string, args ...any) ([]engine.FeeEarnerSettings, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []engine.FeeEarnerSettings
	for rows.Next() {
		var settings engine.FeeEarnerSettings
		var matterTypes, workingDays, createdAt, updatedAt string
		var minValue, maxValue, hoursStart, hoursEnd sql.NullString
		var acceptsAuto int

		if err := rows.Scan(
			&settings.FeeEarnerID, &settings.TenantID,
			&settings.MaxConcurrentMatters, &settings.MaxNewMattersPerWeek,
			&matterTypes, &minValue, &maxValue,
			&acceptsAuto, &settings.AssignmentPriority, &workingDays,
			&hoursStart, &hoursEnd, &createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(matterTypes), &settings.MatterTypes)
		json.Unmarshal([]byte(workingDays), &settings.WorkingDays)
		settings.AcceptsAutoAssignment = acceptsAuto != 0
		settings.MinTransactionValue = parseDecimal(minValue)
		settings.MaxTransactionValue = parseDecimal(maxValue)
		settings.WorkingHoursStart = hoursStart.String
		settings.WorkingHoursEnd = hoursEnd.String
		settings.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		settings.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		out = append(out, settings)
	}
	return out, rows.Err()
}

// =============================================================================
// AVAILABILITY STORE
// =============================================================================

// SaveBlock inserts or replaces an availability block.
func (s *Store) SaveBlock(ctx context.Context, b engine.AvailabilityBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deletedAt *string
	if b.DeletedAt != nil {
		t := b.DeletedAt.UTC().Format(time.RFC3339)
		deletedAt = &t
	}

	query := `
		INSERT INTO availability_blocks
		(id, fee_earner_id, tenant_id, start_date, end_date, availability_type,
		 notes, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			availability_type = excluded.availability_type,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.FeeEarnerID, b.TenantID,
		b.StartDate.Format(dateFormat),
		b.EndDate.Format(dateFormat),
		b.Type,
		b.Notes,
		b.CreatedAt.UTC().Format(time.RFC3339),
		b.UpdatedAt.UTC().Format(time.RFC3339),
		deletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save availability block: %w", err)
	}
	return nil
}

// GetBlock returns a block by ID. Tombstoned blocks read as absent.
func (s *Store) GetBlock(ctx context.Context, id engine.BlockID) (*engine.AvailabilityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks, err := s.queryBlocks(ctx,
		selectBlocks+" WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

// ListBlocks returns all live blocks for a fee earner, earliest first.
func (s *Store) ListBlocks(ctx context.Context, feeEarnerID engine.FeeEarnerID) ([]engine.AvailabilityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBlocks(ctx,
		selectBlocks+" WHERE fee_earner_id = ? AND deleted_at IS NULL ORDER BY start_date", feeEarnerID)
}

// DeleteBlock tombstones a block. The row itself is never removed.
func (s *Store) DeleteBlock(ctx context.Context, id engine.BlockID, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE availability_blocks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		deletedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to delete availability block: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrBlockNotFound
	}
	return nil
}

// HasActiveBlock reports whether any live block covers the given day.
func (s *Store) HasActiveBlock(ctx context.Context, feeEarnerID engine.FeeEarnerID, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM availability_blocks
		WHERE fee_earner_id = ? AND deleted_at IS NULL
		  AND start_date <= ? AND end_date >= ?`,
		feeEarnerID,
		engine.DateOf(day).Format(dateFormat),
		engine.DateOf(day).Format(dateFormat),
	).Scan(&count)
	return count > 0, err
}

const selectBlocks = `
	SELECT id, fee_earner_id, tenant_id, start_date, end_date, availability_type,
	       notes, created_at, updated_at, deleted_at
	FROM availability_blocks`

func (s *Store) queryBlocks(ctx context.Context, query string, args ...any) ([]engine.AvailabilityBlock, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability blocks: %w", err)
	}
	defer rows.Close()

	var out []engine.AvailabilityBlock
	for rows.Next() {
		var b engine.AvailabilityBlock
		var startDate, endDate, createdAt, updatedAt string
		var notes, deletedAt sql.NullString

		if err := rows.Scan(&b.ID, &b.FeeEarnerID, &b.TenantID,
			&startDate, &endDate, &b.Type, &notes,
			&createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}

		b.StartDate, _ = time.Parse(dateFormat, startDate)
		b.EndDate, _ = time.Parse(dateFormat, endDate)
		b.Notes = notes.String
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		if deletedAt.Valid {
			t, _ := time.Parse(time.RFC3339, deletedAt.String)
			b.DeletedAt = &t
		}

		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// MATTER STORE
// =============================================================================

// SaveMatter inserts or replaces a matter record. The matter subsystem
// proper lives elsewhere; this store carries the slice the engine needs.
func (s *Store) SaveMatter(ctx context.Context, m engine.Matter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO matters
		(id, tenant_id, matter_type, transaction_value, status, assigned_fee_earner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			matter_type = excluded.matter_type,
			transaction_value = excluded.transaction_value,
			status = excluded.status,
			assigned_fee_earner_id = excluded.assigned_fee_earner_id
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.TenantID, m.MatterType,
		m.TransactionValue.String(),
		m.Status,
		nullString(string(m.AssignedFeeEarnerID)),
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save matter: %w", err)
	}
	return nil
}

// GetMatter returns a matter by ID, or nil.
func (s *Store) GetMatter(ctx context.Context, id engine.MatterID) (*engine.Matter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, matter_type, transaction_value, status, assigned_fee_earner_id, created_at
		FROM matters WHERE id = ?`, id)

	var m engine.Matter
	var value, createdAt string
	var assignee sql.NullString
	if err := row.Scan(&m.ID, &m.TenantID, &m.MatterType, &value, &m.Status, &assignee, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get matter: %w", err)
	}

	m.TransactionValue, _ = decimal.NewFromString(value)
	m.AssignedFeeEarnerID = engine.FeeEarnerID(assignee.String)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

// CountActiveMatters counts open matters assigned to a fee earner.
func (s *Store) CountActiveMatters(ctx context.Context, feeEarnerID engine.FeeEarnerID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matters
		WHERE assigned_fee_earner_id = ? AND status IN ('new', 'active')`,
		feeEarnerID,
	).Scan(&count)
	return count, err
}

// CountMattersAssignedSince counts a fee earner's matters created on or
// after the given instant.
func (s *Store) CountMattersAssignedSince(ctx context.Context, feeEarnerID engine.FeeEarnerID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matters
		WHERE assigned_fee_earner_id = ? AND created_at >= ?`,
		feeEarnerID,
		since.UTC().Format(time.RFC3339),
	).Scan(&count)
	return count, err
}

// SetAssignedFeeEarner writes the matter's assignment field.
func (s *Store) SetAssignedFeeEarner(ctx context.Context, id engine.MatterID, feeEarnerID engine.FeeEarnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE matters SET assigned_fee_earner_id = ? WHERE id = ?",
		feeEarnerID, id)
	if err != nil {
		return fmt.Errorf("failed to assign matter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrMatterNotFound
	}
	return nil
}

// ListMattersByTenant returns all matters for a tenant, newest first.
func (s *Store) ListMattersByTenant(ctx context.Context, tenantID engine.TenantID) ([]engine.Matter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, matter_type, transaction_value, status, assigned_fee_earner_id, created_at
		FROM matters WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matters: %w", err)
	}
	defer rows.Close()

	var out []engine.Matter
	for rows.Next() {
		var m engine.Matter
		var value, createdAt string
		var assignee sql.NullString
		if err := rows.Scan(&m.ID, &m.TenantID, &m.MatterType, &value, &m.Status, &assignee, &createdAt); err != nil {
			return nil, err
		}
		m.TransactionValue, _ = decimal.NewFromString(value)
		m.AssignedFeeEarnerID = engine.FeeEarnerID(assignee.String)
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// AUTHORIZER
// =============================================================================

// GrantRole records a role membership for a user within a tenant.
func (s *Store) GrantRole(ctx context.Context, tenantID engine.TenantID, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_roles (tenant_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(tenant_id, user_id, role) DO NOTHING`,
		tenantID, userID, role)
	return err
}

// HasRole reports whether the user holds any of the given roles in the
// tenant.
func (s *Store) HasRole(ctx context.Context, tenantID engine.TenantID, actorID string, roles []string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(roles) == 0 {
		return false, nil
	}

	query := "SELECT COUNT(*) FROM tenant_roles WHERE tenant_id = ? AND user_id = ? AND role IN (?"
	args := []any{tenantID, actorID, roles[0]}
	for _, r := range roles[1:] {
		query += ", ?"
		args = append(args, r)
	}
	query += ")"

	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count > 0, err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
