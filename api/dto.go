/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

PERCENTAGES:
  Workload percentages cross this boundary rounded to whole numbers.
  The engine keeps unrounded values for threshold decisions; clients
  only ever see display values.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/conveyly/assignment-engine/engine"
)

// =============================================================================
// FEE EARNER SETTINGS
// =============================================================================

// SettingsDTO represents fee-earner assignment settings in responses.
type SettingsDTO struct {
	FeeEarnerID           string   `json:"fee_earner_id"`
	TenantID              string   `json:"tenant_id"`
	MaxConcurrentMatters  int      `json:"max_concurrent_matters"`
	MaxNewMattersPerWeek  int      `json:"max_new_matters_per_week"`
	MatterTypes           []string `json:"matter_types"`
	MinTransactionValue   *string  `json:"min_transaction_value,omitempty"`
	MaxTransactionValue   *string  `json:"max_transaction_value,omitempty"`
	AcceptsAutoAssignment bool     `json:"accepts_auto_assignment"`
	AssignmentPriority    int      `json:"assignment_priority"`
	WorkingDays           []int    `json:"working_days"`
	WorkingHoursStart     string   `json:"working_hours_start,omitempty"`
	WorkingHoursEnd       string   `json:"working_hours_end,omitempty"`
}

// UpsertSettingsRequest is the request to create or replace settings.
type UpsertSettingsRequest struct {
	TenantID              string   `json:"tenant_id"`
	MaxConcurrentMatters  int      `json:"max_concurrent_matters"`
	MaxNewMattersPerWeek  int      `json:"max_new_matters_per_week"`
	MatterTypes           []string `json:"matter_types"`
	MinTransactionValue   *string  `json:"min_transaction_value,omitempty"`
	MaxTransactionValue   *string  `json:"max_transaction_value,omitempty"`
	AcceptsAutoAssignment bool     `json:"accepts_auto_assignment"`
	AssignmentPriority    int      `json:"assignment_priority"`
	WorkingDays           []int    `json:"working_days"`
	WorkingHoursStart     string   `json:"working_hours_start,omitempty"`
	WorkingHoursEnd       string   `json:"working_hours_end,omitempty"`
}

// =============================================================================
// WORKLOAD
// =============================================================================

// WorkloadDTO is the display form of a workload snapshot.
type WorkloadDTO struct {
	FeeEarnerID           string `json:"fee_earner_id"`
	ActiveMatterCount     int    `json:"active_matter_count"`
	MaxConcurrentMatters  int    `json:"max_concurrent_matters"`
	NewMattersThisWeek    int    `json:"new_matters_this_week"`
	MaxNewMattersPerWeek  int    `json:"max_new_matters_per_week"`
	CapacityPercent       int    `json:"capacity_percent"`
	WeeklyCapacityPercent int    `json:"weekly_capacity_percent"`
	IsAvailable           bool   `json:"is_available"`
	AcceptsAutoAssignment bool   `json:"accepts_auto_assignment"`
	AssignmentPriority    int    `json:"assignment_priority"`
	SettingsConfigured    bool   `json:"settings_configured"`
}

func workloadDTO(w engine.WorkloadSnapshot) WorkloadDTO {
	return WorkloadDTO{
		FeeEarnerID:           string(w.FeeEarnerID),
		ActiveMatterCount:     w.ActiveMatterCount,
		MaxConcurrentMatters:  w.MaxConcurrentMatters,
		NewMattersThisWeek:    w.NewMattersThisWeek,
		MaxNewMattersPerWeek:  w.MaxNewMattersPerWeek,
		CapacityPercent:       w.DisplayCapacityPercent(),
		WeeklyCapacityPercent: w.DisplayWeeklyCapacityPercent(),
		IsAvailable:           w.IsAvailable,
		AcceptsAutoAssignment: w.AcceptsAutoAssignment,
		AssignmentPriority:    w.AssignmentPriority,
		SettingsConfigured:    w.SettingsConfigured,
	}
}

// =============================================================================
// AVAILABILITY BLOCKS
// =============================================================================

// BlockDTO represents an availability block with its classification.
type BlockDTO struct {
	ID          string `json:"id"`
	FeeEarnerID string `json:"fee_earner_id"`
	TenantID    string `json:"tenant_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Type        string `json:"availability_type"`
	Notes       string `json:"notes,omitempty"`
	Status      string `json:"status,omitempty"`
}

func blockDTO(b engine.AvailabilityBlock, status engine.BlockStatus) BlockDTO {
	return BlockDTO{
		ID:          string(b.ID),
		FeeEarnerID: string(b.FeeEarnerID),
		TenantID:    string(b.TenantID),
		StartDate:   b.StartDate.Format("2006-01-02"),
		EndDate:     b.EndDate.Format("2006-01-02"),
		Type:        string(b.Type),
		Notes:       b.Notes,
		Status:      string(status),
	}
}

// CreateBlockRequest is the request to create an availability block.
type CreateBlockRequest struct {
	FeeEarnerID string  `json:"fee_earner_id"`
	TenantID    string  `json:"tenant_id"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
	Type        string  `json:"availability_type"`
	Notes       string  `json:"notes,omitempty"`
}

// UpdateBlockRequest is a partial update; omitted fields are unchanged.
type UpdateBlockRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Type      *string `json:"availability_type,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// =============================================================================
// RECOMMENDATIONS & ASSIGNMENT
// =============================================================================

// RecommendationDTO is one entry of the advisory ranking.
type RecommendationDTO struct {
	FeeEarnerID string      `json:"fee_earner_id"`
	Score       int         `json:"score"`
	Reason      string      `json:"reason"`
	Tokens      []string    `json:"reason_tokens"`
	Workload    WorkloadDTO `json:"workload"`
}

// ManualAssignRequest names the human-chosen assignee.
type ManualAssignRequest struct {
	FeeEarnerID string `json:"fee_earner_id"`
}

// AssignmentResultDTO reports a committed assignment.
type AssignmentResultDTO struct {
	MatterID    string `json:"matter_id"`
	FeeEarnerID string `json:"fee_earner_id"`
	Method      string `json:"method"` // "auto" or "manual"
}

// =============================================================================
// MATTERS
// =============================================================================

// MatterDTO represents the matter slice this service exposes.
type MatterDTO struct {
	ID                  string `json:"id"`
	TenantID            string `json:"tenant_id"`
	MatterType          string `json:"matter_type"`
	TransactionValue    string `json:"transaction_value"`
	Status              string `json:"status"`
	AssignedFeeEarnerID string `json:"assigned_fee_earner_id,omitempty"`
	CreatedAt           string `json:"created_at"`
}

func matterDTO(m engine.Matter) MatterDTO {
	return MatterDTO{
		ID:                  string(m.ID),
		TenantID:            string(m.TenantID),
		MatterType:          m.MatterType,
		TransactionValue:    m.TransactionValue.String(),
		Status:              string(m.Status),
		AssignedFeeEarnerID: string(m.AssignedFeeEarnerID),
		CreatedAt:           m.CreatedAt.Format(time.RFC3339),
	}
}

// CreateMatterRequest registers a matter with the engine's store.
type CreateMatterRequest struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenant_id"`
	MatterType       string `json:"matter_type"`
	TransactionValue string `json:"transaction_value"`
	Status           string `json:"status"`
}
