/*
workload.go - Point-in-time workload calculation

PURPOSE:
  Derives a WorkloadSnapshot for one fee earner from three inputs:
  - persisted FeeEarnerSettings (capacity limits, priority, opt-in)
  - matter counts (active matters, new matters this week)
  - availability blocks (any active block = unavailable)

UNCONFIGURED FEE EARNERS:
  A fee earner with no settings row gets a zeroed snapshot with
  SettingsConfigured=false and IsAvailable=false. Such fee earners are
  invisible to eligibility filtering and advisory ranking alike.

WEEK BOUNDARY:
  "This week" starts at the most recent Sunday (weekday 0) at midnight
  UTC, per StartOfWeek.

CLOCK INJECTION:
  Every computation takes `now` explicitly. There is no hidden call to
  time.Now inside the calculator, so tests pin the clock.
*/
package engine

import (
	"context"
	"time"
)

// WorkloadCalculator derives capacity snapshots. Snapshots are
// recomputed on every call and never cached.
type WorkloadCalculator struct {
	Settings     SettingsStore
	Matters      MatterStore
	Availability AvailabilityStore
}

// ComputeWorkload builds the capacity snapshot for a fee earner as of now.
func (c *WorkloadCalculator) ComputeWorkload(ctx context.Context, id FeeEarnerID, now time.Time) (WorkloadSnapshot, error) {
	settings, err := c.Settings.GetSettings(ctx, id)
	if err != nil {
		return WorkloadSnapshot{}, &StoreError{Op: "settings.get", Err: err}
	}
	if settings == nil {
		// Not configured for assignment: all zero, unavailable.
		return WorkloadSnapshot{FeeEarnerID: id}, nil
	}
	return c.computeWithSettings(ctx, *settings, now)
}

// computeWithSettings is the shared path for callers that already hold
// the settings row (bulk ranking avoids N extra settings reads).
func (c *WorkloadCalculator) computeWithSettings(ctx context.Context, settings FeeEarnerSettings, now time.Time) (WorkloadSnapshot, error) {
	id := settings.FeeEarnerID

	active, err := c.Matters.CountActiveMatters(ctx, id)
	if err != nil {
		return WorkloadSnapshot{}, &StoreError{Op: "matters.countActive", Err: err}
	}

	thisWeek, err := c.Matters.CountMattersAssignedSince(ctx, id, StartOfWeek(now))
	if err != nil {
		return WorkloadSnapshot{}, &StoreError{Op: "matters.countWeek", Err: err}
	}

	blocked, err := c.Availability.HasActiveBlock(ctx, id, now)
	if err != nil {
		return WorkloadSnapshot{}, &StoreError{Op: "availability.active", Err: err}
	}

	return WorkloadSnapshot{
		FeeEarnerID:           id,
		ActiveMatterCount:     active,
		MaxConcurrentMatters:  settings.MaxConcurrentMatters,
		NewMattersThisWeek:    thisWeek,
		MaxNewMattersPerWeek:  settings.MaxNewMattersPerWeek,
		CapacityPercent:       capacityPercent(active, settings.MaxConcurrentMatters),
		WeeklyCapacityPercent: capacityPercent(thisWeek, settings.MaxNewMattersPerWeek),
		IsAvailable:           !blocked,
		AcceptsAutoAssignment: settings.AcceptsAutoAssignment,
		AssignmentPriority:    settings.AssignmentPriority,
		SettingsConfigured:    true,
	}, nil
}

// Candidate pairs a configured fee earner's settings with their
// freshly computed workload. Both the eligibility filter and the
// advisory ranker consume candidates.
type Candidate struct {
	Settings FeeEarnerSettings
	Workload WorkloadSnapshot
}

// CandidatesForTenant computes a candidate for every configured fee
// earner of a tenant, in stable fee-earner-ID order (the stores return
// settings ordered by ID).
func (c *WorkloadCalculator) CandidatesForTenant(ctx context.Context, tenantID TenantID, now time.Time) ([]Candidate, error) {
	configured, err := c.Settings.ListConfigured(ctx, tenantID)
	if err != nil {
		return nil, &StoreError{Op: "settings.list", Err: err}
	}

	candidates := make([]Candidate, 0, len(configured))
	for _, settings := range configured {
		snap, err := c.computeWithSettings(ctx, settings, now)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Settings: settings, Workload: snap})
	}
	return candidates, nil
}
