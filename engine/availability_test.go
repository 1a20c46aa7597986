package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conveyly/assignment-engine/engine"
	memstore "github.com/conveyly/assignment-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newBlockService(mem *memstore.Memory) *engine.BlockService {
	mem.GrantRole(testTenant, managerID, "manager")
	return &engine.BlockService{Store: mem, Auth: mem}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreateBlock_EndBeforeStartRejected(t *testing.T) {
	// GIVEN: endDate one day before startDate
	// WHEN: Creating the block
	// THEN: ValidationError, and nothing is persisted

	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	end := day(2025, time.March, 10)
	_, err := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.March, 11),
		EndDate:     &end,
		Type:        engine.BlockHoliday,
	}, testNow)

	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	blocks, _ := mem.ListBlocks(context.Background(), "fe-a")
	if len(blocks) != 0 {
		t.Errorf("no block should be persisted, found %d", len(blocks))
	}
}

func TestCreateBlock_UnknownTypeRejected(t *testing.T) {
	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	_, err := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.March, 11),
		Type:        "sabbatical",
	}, testNow)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateBlock_NilEndDateMeansSingleDay(t *testing.T) {
	// GIVEN: No end date
	// WHEN: Creating the block
	// THEN: End equals start

	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	block, err := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.March, 11),
		Type:        engine.BlockSick,
	}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !block.EndDate.Equal(block.StartDate) {
		t.Errorf("expected single-day block, got %v..%v", block.StartDate, block.EndDate)
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestBlockStatus_Classification(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		want       engine.BlockStatus
	}{
		{"covers today", testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 1), engine.BlockActive},
		{"starts today", engine.DateOf(testNow), testNow.AddDate(0, 0, 3), engine.BlockActive},
		{"ends today", testNow.AddDate(0, 0, -3), engine.DateOf(testNow), engine.BlockActive},
		{"starts tomorrow", testNow.AddDate(0, 0, 1), testNow.AddDate(0, 0, 5), engine.BlockUpcoming},
		{"ended yesterday", testNow.AddDate(0, 0, -5), testNow.AddDate(0, 0, -1), engine.BlockPast},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := engine.AvailabilityBlock{StartDate: tc.start, EndDate: tc.end}
			if got := b.Status(testNow); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

// =============================================================================
// UPDATE & DELETE
// =============================================================================

func TestUpdateBlock_NotesOnlyLeavesDatesUnchanged(t *testing.T) {
	// GIVEN: An existing block
	// WHEN: Updating only the notes
	// THEN: Dates and type unchanged

	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	created, err := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.April, 1),
		Type:        engine.BlockTraining,
	}, testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "court advocacy course"
	updated, err := svc.UpdateBlock(context.Background(), manager(), created.ID,
		engine.UpdateBlockInput{Notes: &notes}, testNow)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !updated.StartDate.Equal(created.StartDate) || !updated.EndDate.Equal(created.EndDate) {
		t.Error("dates must not change on a notes-only update")
	}
	if updated.Type != engine.BlockTraining {
		t.Errorf("type must not change, got %s", updated.Type)
	}
	if updated.Notes != notes {
		t.Errorf("expected notes %q, got %q", notes, updated.Notes)
	}
}

func TestUpdateBlock_InvalidRangeRejected(t *testing.T) {
	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	created, _ := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.April, 1),
		Type:        engine.BlockHoliday,
	}, testNow)

	badEnd := day(2025, time.March, 1)
	_, err := svc.UpdateBlock(context.Background(), manager(), created.ID,
		engine.UpdateBlockInput{EndDate: &badEnd}, testNow)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteBlock_TombstoneRestoresAvailability(t *testing.T) {
	// GIVEN: An active block making the fee earner unavailable
	// WHEN: Soft-deleting it
	// THEN: The block disappears from reads and availability returns

	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	block, _ := svc.CreateBlock(context.Background(), manager(), engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   testNow.AddDate(0, 0, -1),
		EndDate:     ptrTime(testNow.AddDate(0, 0, 5)),
		Type:        engine.BlockHoliday,
	}, testNow)

	blocked, _ := mem.HasActiveBlock(context.Background(), "fe-a", testNow)
	if !blocked {
		t.Fatal("expected active block before deletion")
	}

	if err := svc.DeleteBlock(context.Background(), manager(), block.ID, testNow); err != nil {
		t.Fatalf("delete: %v", err)
	}

	blocked, _ = mem.HasActiveBlock(context.Background(), "fe-a", testNow)
	if blocked {
		t.Error("tombstoned block must not affect availability")
	}
	listed, _ := svc.ListBlocks(context.Background(), "fe-a", testNow)
	if len(listed) != 0 {
		t.Errorf("tombstoned block must not be listed, got %d", len(listed))
	}

	// Deleting again reports not found.
	if err := svc.DeleteBlock(context.Background(), manager(), block.ID, testNow); !errors.Is(err, engine.ErrBlockNotFound) {
		t.Errorf("expected ErrBlockNotFound on double delete, got %v", err)
	}
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func TestBlockService_OwnerMayManageOwnBlocks(t *testing.T) {
	// A fee earner needs no role to manage their own availability.
	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	owner := engine.Actor{ID: "fe-a"}
	_, err := svc.CreateBlock(context.Background(), owner, engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.May, 1),
		Type:        engine.BlockHoliday,
	}, testNow)
	if err != nil {
		t.Fatalf("owner should manage own blocks: %v", err)
	}
}

func TestBlockService_StrangerRejected(t *testing.T) {
	mem := memstore.NewMemory()
	svc := newBlockService(mem)

	stranger := engine.Actor{ID: "user-other"}
	_, err := svc.CreateBlock(context.Background(), stranger, engine.CreateBlockInput{
		FeeEarnerID: "fe-a",
		TenantID:    testTenant,
		StartDate:   day(2025, time.May, 1),
		Type:        engine.BlockHoliday,
	}, testNow)
	if !errors.Is(err, engine.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
