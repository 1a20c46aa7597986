/*
Package engine implements the capacity-aware fee-earner assignment engine.

PURPOSE:
  This package decides which fee earner (a staff member who can own a
  legal matter) should handle an incoming matter. It combines:
  - Workload calculation: how loaded is each fee earner right now?
  - Availability blocks: who is on holiday, off sick, or in training?
  - Eligibility filtering: who is structurally able to take this matter?
  - Scoring & ranking: an advisory, human-readable recommendation list
  - Assignment execution: automatic selection or manual override

KEY CONCEPTS IN THIS FILE (types.go):
  - FeeEarnerSettings: per-fee-earner assignment configuration
  - Matter: the external case record (read mostly, assignment written)
  - WorkloadSnapshot: point-in-time capacity view, never cached
  - AssignmentRecommendation: a scored advisory entry with rationale

DESIGN PRINCIPLES:
  1. Explicit clocks: every computation takes `now` so tests are
     deterministic and "today" is never an implicit global
  2. Precision: transaction values use decimal.Decimal, never float
  3. Recompute, don't cache: WorkloadSnapshot is derived on every
     request; a stale snapshot must never drive an assignment
  4. Two named strategies: automatic selection (priority, then lowest
     capacity) and advisory ranking (weighted score) are deliberately
     distinct and may disagree

USAGE:
  calc := &engine.WorkloadCalculator{Settings: s, Matters: m, Availability: a}
  snap, err := calc.ComputeWorkload(ctx, "fe-123", time.Now())

SEE ALSO:
  - workload.go: WorkloadSnapshot computation
  - eligibility.go: hard-constraint filtering for auto-assignment
  - scoring.go: weighted advisory ranking
  - assign.go: assignment execution and locking
*/
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FeeEarnerID string
type MatterID string
type TenantID string
type BlockID string

// =============================================================================
// MATTER - External case record (owned by the matter-management subsystem)
// =============================================================================

type MatterStatus string

const (
	MatterNew       MatterStatus = "new"
	MatterActive    MatterStatus = "active"
	MatterCompleted MatterStatus = "completed"
	MatterCancelled MatterStatus = "cancelled"
)

// IsOpen reports whether the matter counts against its fee earner's
// concurrent-matter capacity.
func (s MatterStatus) IsOpen() bool {
	return s == MatterNew || s == MatterActive
}

// Matter is the slice of the external matter record this engine touches.
// The engine reads MatterType, TransactionValue and Status, and writes
// AssignedFeeEarnerID. Everything else belongs to the matter subsystem.
type Matter struct {
	ID                  MatterID
	TenantID            TenantID
	MatterType          string
	TransactionValue    decimal.Decimal
	Status              MatterStatus
	AssignedFeeEarnerID FeeEarnerID // empty = unassigned
	CreatedAt           time.Time
}

// =============================================================================
// FEE EARNER SETTINGS - Assignment configuration, one row per fee earner
// =============================================================================

// FeeEarnerSettings configures how a fee earner participates in
// assignment. Absence of a row means "not configured": the fee earner
// is invisible to both eligibility filtering and advisory ranking.
type FeeEarnerSettings struct {
	FeeEarnerID FeeEarnerID
	TenantID    TenantID

	MaxConcurrentMatters int
	MaxNewMattersPerWeek int

	// MatterTypes the fee earner handles. Empty = all types accepted.
	MatterTypes []string

	// Transaction value bounds. Nil = unbounded on that side.
	MinTransactionValue *decimal.Decimal
	MaxTransactionValue *decimal.Decimal

	AcceptsAutoAssignment bool

	// AssignmentPriority 1-10; higher wins automatic selection.
	AssignmentPriority int

	WorkingDays       []time.Weekday
	WorkingHoursStart string // "15:04" clock time
	WorkingHoursEnd   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HandlesMatterType reports whether the fee earner accepts the given
// matter type. An empty MatterTypes set accepts everything.
func (s FeeEarnerSettings) HandlesMatterType(matterType string) bool {
	if len(s.MatterTypes) == 0 {
		return true
	}
	for _, t := range s.MatterTypes {
		if t == matterType {
			return true
		}
	}
	return false
}

// ValueWithinBounds reports whether a transaction value satisfies the
// configured min/max bounds. A missing bound always satisfies its side.
func (s FeeEarnerSettings) ValueWithinBounds(value decimal.Decimal) bool {
	if s.MinTransactionValue != nil && value.LessThan(*s.MinTransactionValue) {
		return false
	}
	if s.MaxTransactionValue != nil && value.GreaterThan(*s.MaxTransactionValue) {
		return false
	}
	return true
}

// Validate checks field-level rules before persisting settings.
func (s FeeEarnerSettings) Validate() error {
	if s.FeeEarnerID == "" {
		return &ValidationError{Field: "feeEarnerId", Message: "fee earner id is required"}
	}
	if s.TenantID == "" {
		return &ValidationError{Field: "tenantId", Message: "tenant id is required"}
	}
	if s.MaxConcurrentMatters < 0 {
		return &ValidationError{Field: "maxConcurrentMatters", Message: "must not be negative"}
	}
	if s.MaxNewMattersPerWeek < 0 {
		return &ValidationError{Field: "maxNewMattersPerWeek", Message: "must not be negative"}
	}
	if s.AssignmentPriority < 1 || s.AssignmentPriority > 10 {
		return &ValidationError{Field: "assignmentPriority", Message: "must be between 1 and 10"}
	}
	for _, d := range s.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return &ValidationError{Field: "workingDays", Message: fmt.Sprintf("invalid weekday %d", d)}
		}
	}
	if s.MinTransactionValue != nil && s.MaxTransactionValue != nil &&
		s.MinTransactionValue.GreaterThan(*s.MaxTransactionValue) {
		return &ValidationError{Field: "minTransactionValue", Message: "minimum exceeds maximum"}
	}
	for _, hours := range []struct{ field, value string }{
		{"workingHoursStart", s.WorkingHoursStart},
		{"workingHoursEnd", s.WorkingHoursEnd},
	} {
		if hours.value == "" {
			continue
		}
		if _, err := time.Parse("15:04", hours.value); err != nil {
			return &ValidationError{Field: hours.field, Message: "must be HH:MM clock time"}
		}
	}
	return nil
}

// =============================================================================
// WORKLOAD SNAPSHOT - Point-in-time capacity view (computed, never cached)
// =============================================================================

// WorkloadSnapshot is a fee earner's capacity at one instant. It is
// recomputed on every request; callers must never reuse a snapshot
// across requests.
//
// Percentages are kept unrounded. All threshold comparisons (eligibility,
// capacity bands) use the unrounded value so a 99.6% load cannot round
// its way into or out of eligibility. Rounding happens only at the
// display boundary (DisplayCapacityPercent and friends).
type WorkloadSnapshot struct {
	FeeEarnerID FeeEarnerID

	ActiveMatterCount    int
	MaxConcurrentMatters int
	NewMattersThisWeek   int
	MaxNewMattersPerWeek int

	CapacityPercent       float64
	WeeklyCapacityPercent float64

	IsAvailable           bool
	AcceptsAutoAssignment bool
	AssignmentPriority    int
	SettingsConfigured    bool
}

// DisplayCapacityPercent is the rounded percentage for presentation.
func (w WorkloadSnapshot) DisplayCapacityPercent() int {
	return int(math.Round(w.CapacityPercent))
}

// DisplayWeeklyCapacityPercent is the rounded weekly percentage for presentation.
func (w WorkloadSnapshot) DisplayWeeklyCapacityPercent() int {
	return int(math.Round(w.WeeklyCapacityPercent))
}

// capacityPercent computes used/max as a percentage, returning 0 when
// max is 0 rather than dividing by zero.
func capacityPercent(used, max int) float64 {
	if max == 0 {
		return 0
	}
	return float64(used) / float64(max) * 100
}

// =============================================================================
// ASSIGNMENT RECOMMENDATION - Advisory ranking entry (per-request only)
// =============================================================================

// AssignmentRecommendation is one entry in the advisory ranking shown
// to a human making a manual assignment. It exists only for the
// duration of a single assignment-decision request.
type AssignmentRecommendation struct {
	FeeEarnerID FeeEarnerID
	Score       int

	// ReasonTokens, in factor evaluation order. Joined they form the
	// human-readable rationale for the score.
	ReasonTokens []string

	Workload WorkloadSnapshot
}

// Reason renders the rationale as a single display string.
func (r AssignmentRecommendation) Reason() string {
	out := ""
	for i, tok := range r.ReasonTokens {
		if i > 0 {
			out += "; "
		}
		out += tok
	}
	return out
}

// =============================================================================
// TIME HELPERS
// =============================================================================

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the most recent week start (Sunday, weekday 0)
// on or before the given instant, at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	day := DateOf(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
