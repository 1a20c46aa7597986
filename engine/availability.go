/*
availability.go - Date-ranged unavailability blocks

PURPOSE:
  Fee earners mark themselves unavailable with availability blocks:
  holiday, sick leave, training, or reduced capacity. Any block whose
  date range covers "today" makes the fee earner unavailable for
  assignment, regardless of its type.

LIFECYCLE:
  Blocks are created and edited by the fee earner themselves or by a
  manager. Deletion is a tombstone timestamp; rows are never removed.
  At read time a block is classified as active (today inside the
  range), upcoming (starts in the future) or past.

OVERLAP POLICY:
  Overlapping blocks for the same fee earner are allowed. Availability
  is a binary question ("is there at least one active block?") so
  overlap never changes the outcome.

SEE ALSO:
  - workload.go: consumes HasActiveBlock for the availability bit
  - store/sqlite/sqlite.go: persistence
*/
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AVAILABILITY BLOCK
// =============================================================================

type AvailabilityType string

const (
	BlockHoliday         AvailabilityType = "holiday"
	BlockSick            AvailabilityType = "sick"
	BlockTraining        AvailabilityType = "training"
	BlockReducedCapacity AvailabilityType = "reduced_capacity"
)

func (t AvailabilityType) Valid() bool {
	switch t {
	case BlockHoliday, BlockSick, BlockTraining, BlockReducedCapacity:
		return true
	}
	return false
}

// AvailabilityBlock is a date range during which a fee earner is
// unavailable for new work. Dates are inclusive calendar days.
type AvailabilityBlock struct {
	ID          BlockID
	FeeEarnerID FeeEarnerID
	TenantID    TenantID

	StartDate time.Time
	EndDate   time.Time // inclusive; equals StartDate for single-day blocks

	Type  AvailabilityType
	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // tombstone; nil = live
}

// BlockStatus is the read-time classification of a block.
type BlockStatus string

const (
	BlockActive   BlockStatus = "active"
	BlockUpcoming BlockStatus = "upcoming"
	BlockPast     BlockStatus = "past"
)

// Status classifies the block relative to the given instant.
func (b AvailabilityBlock) Status(now time.Time) BlockStatus {
	today := DateOf(now)
	if today.Before(DateOf(b.StartDate)) {
		return BlockUpcoming
	}
	if today.After(DateOf(b.EndDate)) {
		return BlockPast
	}
	return BlockActive
}

// Covers reports whether the block's inclusive range contains the day.
func (b AvailabilityBlock) Covers(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(b.StartDate)) && !d.After(DateOf(b.EndDate))
}

// Validate checks field-level rules for a block.
func (b AvailabilityBlock) Validate() error {
	if b.FeeEarnerID == "" {
		return &ValidationError{Field: "feeEarnerId", Message: "fee earner id is required"}
	}
	if b.TenantID == "" {
		return &ValidationError{Field: "tenantId", Message: "tenant id is required"}
	}
	if !b.Type.Valid() {
		return &ValidationError{Field: "availabilityType", Message: "unknown availability type"}
	}
	if b.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Message: "start date is required"}
	}
	if DateOf(b.EndDate).Before(DateOf(b.StartDate)) {
		return &ValidationError{Field: "endDate", Message: "end date before start date"}
	}
	return nil
}

// =============================================================================
// BLOCK SERVICE - CRUD with authorization
// =============================================================================

// BlockService manages availability blocks. Fee earners may manage
// their own blocks; managers may manage anyone's.
type BlockService struct {
	Store AvailabilityStore
	Auth  Authorizer
}

// CreateBlockInput carries the caller-supplied fields for a new block.
type CreateBlockInput struct {
	FeeEarnerID FeeEarnerID
	TenantID    TenantID
	StartDate   time.Time
	EndDate     *time.Time // nil = single-day block on StartDate
	Type        AvailabilityType
	Notes       string
}

// CreateBlock validates and persists a new availability block.
func (s *BlockService) CreateBlock(ctx context.Context, actor Actor, in CreateBlockInput, now time.Time) (*AvailabilityBlock, error) {
	if err := s.authorize(ctx, actor, in.TenantID, in.FeeEarnerID); err != nil {
		return nil, err
	}

	end := in.StartDate
	if in.EndDate != nil {
		end = *in.EndDate
	}
	block := AvailabilityBlock{
		ID:          BlockID(uuid.NewString()),
		FeeEarnerID: in.FeeEarnerID,
		TenantID:    in.TenantID,
		StartDate:   DateOf(in.StartDate),
		EndDate:     DateOf(end),
		Type:        in.Type,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.SaveBlock(ctx, block); err != nil {
		return nil, &StoreError{Op: "availability.save", Err: err}
	}
	return &block, nil
}

// UpdateBlockInput carries the editable fields of a block. Nil fields
// are left unchanged.
type UpdateBlockInput struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      *AvailabilityType
	Notes     *string
}

// UpdateBlock applies a partial update to an existing block.
func (s *BlockService) UpdateBlock(ctx context.Context, actor Actor, id BlockID, in UpdateBlockInput, now time.Time) (*AvailabilityBlock, error) {
	block, err := s.Store.GetBlock(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "availability.get", Err: err}
	}
	if block == nil {
		return nil, ErrBlockNotFound
	}
	if err := s.authorize(ctx, actor, block.TenantID, block.FeeEarnerID); err != nil {
		return nil, err
	}

	if in.StartDate != nil {
		block.StartDate = DateOf(*in.StartDate)
	}
	if in.EndDate != nil {
		block.EndDate = DateOf(*in.EndDate)
	}
	if in.Type != nil {
		block.Type = *in.Type
	}
	if in.Notes != nil {
		block.Notes = *in.Notes
	}
	block.UpdatedAt = now

	if err := block.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.SaveBlock(ctx, *block); err != nil {
		return nil, &StoreError{Op: "availability.save", Err: err}
	}
	return block, nil
}

// DeleteBlock tombstones a block.
func (s *BlockService) DeleteBlock(ctx context.Context, actor Actor, id BlockID, now time.Time) error {
	block, err := s.Store.GetBlock(ctx, id)
	if err != nil {
		return &StoreError{Op: "availability.get", Err: err}
	}
	if block == nil {
		return ErrBlockNotFound
	}
	if err := s.authorize(ctx, actor, block.TenantID, block.FeeEarnerID); err != nil {
		return err
	}
	if err := s.Store.DeleteBlock(ctx, id, now); err != nil {
		return &StoreError{Op: "availability.delete", Err: err}
	}
	return nil
}

// ClassifiedBlock pairs a block with its read-time status.
type ClassifiedBlock struct {
	Block  AvailabilityBlock
	Status BlockStatus
}

// ListBlocks returns a fee earner's live blocks, classified against now.
func (s *BlockService) ListBlocks(ctx context.Context, feeEarnerID FeeEarnerID, now time.Time) ([]ClassifiedBlock, error) {
	blocks, err := s.Store.ListBlocks(ctx, feeEarnerID)
	if err != nil {
		return nil, &StoreError{Op: "availability.list", Err: err}
	}
	out := make([]ClassifiedBlock, len(blocks))
	for i, b := range blocks {
		out[i] = ClassifiedBlock{Block: b, Status: b.Status(now)}
	}
	return out, nil
}

// authorize allows the fee earner on their own blocks, managers on any.
func (s *BlockService) authorize(ctx context.Context, actor Actor, tenantID TenantID, owner FeeEarnerID) error {
	if actor.ID == string(owner) {
		return nil
	}
	ok, err := s.Auth.HasRole(ctx, tenantID, actor.ID, ManagerRoles)
	if err != nil {
		return &StoreError{Op: "auth.hasRole", Err: err}
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
