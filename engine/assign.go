/*
assign.go - Assignment execution

PURPOSE:
  Commits an assignment to a matter, either automatically (engine picks
  the single best eligible candidate) or manually (a human picks, the
  engine writes unconditionally). Both paths require a manager-level
  capability.

AUTOMATIC SELECTION ORDER:
  Among ELIGIBLE candidates only:
    1. highest assignment priority
    2. lowest unrounded capacity percentage
    3. fee-earner ID ascending (determinism)
  This is intentionally simpler than the advisory weighted score in
  scoring.go; it only ever sees candidates that already passed every
  hard constraint.

RACE PROTECTION:
  Workload is read before the assignment is written, so two concurrent
  auto-assignments could otherwise both see the same candidate as
  having room and collectively exceed maxConcurrentMatters. Automatic
  assignment therefore serializes per fee earner: it takes a mutex
  keyed by fee-earner ID, recomputes that candidate's workload under
  the lock, and only writes if the candidate is still eligible. If the
  recheck fails it moves on to the next candidate in selection order.

MANUAL OVERRIDE:
  Manual assignment bypasses eligibility and capacity checks entirely.
  A manager may knowingly overload a fee earner; the UI shows the
  computed warnings but the engine does not block the write. There is
  no capacity invariant to protect, so no lock is taken.
*/
package engine

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AssignmentEngine executes assignment decisions.
type AssignmentEngine struct {
	Calc    *WorkloadCalculator
	Matters MatterStore
	Auth    Authorizer

	locks keyedMutex
}

// AutoAssign selects and commits the best eligible fee earner for the
// matter. Returns ErrNoEligibleCandidate when nobody qualifies so the
// caller can offer manual assignment instead.
func (e *AssignmentEngine) AutoAssign(ctx context.Context, actor Actor, matterID MatterID, now time.Time) (FeeEarnerID, error) {
	matter, err := e.loadMatter(ctx, matterID)
	if err != nil {
		return "", err
	}
	if err := e.requireManager(ctx, actor, matter.TenantID); err != nil {
		return "", err
	}

	candidates, err := e.Calc.CandidatesForTenant(ctx, matter.TenantID, now)
	if err != nil {
		return "", err
	}

	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsEligible(c, matter.MatterType, matter.TransactionValue) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return "", ErrNoEligibleCandidate
	}

	sortForAutoSelection(eligible)

	// Try candidates in selection order. The lock serializes decisions
	// per fee earner; the recheck closes the read-then-write window.
	for _, c := range eligible {
		id := c.Settings.FeeEarnerID
		assigned, err := e.tryAssign(ctx, matter, c.Settings, now)
		if err != nil {
			return "", err
		}
		if assigned {
			return id, nil
		}
	}
	return "", ErrNoEligibleCandidate
}

// tryAssign takes the candidate's lock, revalidates eligibility from
// fresh counts, and writes the assignment if the candidate still has
// room. Returns false (no error) when the candidate filled up between
// the initial read and the lock.
func (e *AssignmentEngine) tryAssign(ctx context.Context, matter *Matter, settings FeeEarnerSettings, now time.Time) (bool, error) {
	id := settings.FeeEarnerID
	unlock := e.locks.lock(string(id))
	defer unlock()

	snap, err := e.Calc.computeWithSettings(ctx, settings, now)
	if err != nil {
		return false, err
	}
	fresh := Candidate{Settings: settings, Workload: snap}
	if !IsEligible(fresh, matter.MatterType, matter.TransactionValue) {
		return false, nil
	}

	if err := e.Matters.SetAssignedFeeEarner(ctx, matter.ID, id); err != nil {
		return false, &StoreError{Op: "matters.assign", Err: err}
	}
	return true, nil
}

// ManualAssign writes a human-chosen assignment. Eligibility and
// capacity checks are intentionally skipped.
func (e *AssignmentEngine) ManualAssign(ctx context.Context, actor Actor, matterID MatterID, feeEarnerID FeeEarnerID) error {
	matter, err := e.loadMatter(ctx, matterID)
	if err != nil {
		return err
	}
	if err := e.requireManager(ctx, actor, matter.TenantID); err != nil {
		return err
	}
	if feeEarnerID == "" {
		return &ValidationError{Field: "feeEarnerId", Message: "fee earner id is required"}
	}
	if err := e.Matters.SetAssignedFeeEarner(ctx, matter.ID, feeEarnerID); err != nil {
		return &StoreError{Op: "matters.assign", Err: err}
	}
	return nil
}

func (e *AssignmentEngine) loadMatter(ctx context.Context, id MatterID) (*Matter, error) {
	matter, err := e.Matters.GetMatter(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "matters.get", Err: err}
	}
	if matter == nil {
		return nil, ErrMatterNotFound
	}
	return matter, nil
}

func (e *AssignmentEngine) requireManager(ctx context.Context, actor Actor, tenantID TenantID) error {
	ok, err := e.Auth.HasRole(ctx, tenantID, actor.ID, ManagerRoles)
	if err != nil {
		return &StoreError{Op: "auth.hasRole", Err: err}
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// sortForAutoSelection orders eligible candidates by the automatic
// selection strategy: priority descending, then unrounded capacity
// ascending, then fee-earner ID for a stable outcome.
func sortForAutoSelection(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Workload, candidates[j].Workload
		if a.AssignmentPriority != b.AssignmentPriority {
			return a.AssignmentPriority > b.AssignmentPriority
		}
		if a.CapacityPercent != b.CapacityPercent {
			return a.CapacityPercent < b.CapacityPercent
		}
		return a.FeeEarnerID < b.FeeEarnerID
	})
}

// =============================================================================
// KEYED MUTEX - Per-fee-earner serialization
// =============================================================================

// keyedMutex hands out one mutex per key. Entries are never evicted;
// the population is bounded by the number of fee earners.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
