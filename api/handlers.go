/*
handlers.go - HTTP API handlers for the assignment engine

PURPOSE:
  Exposes the fee-earner assignment engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Fee earners:
    GET  /api/fee-earners/{id}/workload      Capacity snapshot
    GET  /api/fee-earners/{id}/settings      Assignment settings
    PUT  /api/fee-earners/{id}/settings      Upsert settings
    GET  /api/fee-earners/{id}/availability  List availability blocks
    POST /api/fee-earners/{id}/availability  Create availability block

  Availability blocks:
    PUT    /api/availability/{id}            Edit block
    DELETE /api/availability/{id}            Soft-delete block

  Matters:
    POST /api/matters                        Register a matter
    GET  /api/matters/{id}                   Matter details
    GET  /api/matters/{id}/recommendations   Advisory ranking
    POST /api/matters/{id}/auto-assign       Automatic assignment
    POST /api/matters/{id}/assign            Manual assignment

IDENTITY:
  The caller's identity arrives in the X-Actor-Id header, resolved
  upstream by the authentication layer. A missing header is a 401.
  Role checks happen in the engine through the Authorizer.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing identity
  - 403: Role check failed
  - 404: Matter, settings or block not found
  - 409: No eligible fee earner (client should offer manual assignment)
  - 500: Store or internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/conveyly/assignment-engine/engine"
	"github.com/conveyly/assignment-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Calc   *engine.WorkloadCalculator
	Ranker *engine.Ranker
	Engine *engine.AssignmentEngine
	Blocks *engine.BlockService

	// Now returns the request clock; overridable in tests.
	Now func() time.Time
}

// NewHandler wires the engine components around a single store.
func NewHandler(store *sqlite.Store) *Handler {
	calc := &engine.WorkloadCalculator{
		Settings:     store,
		Matters:      store,
		Availability: store,
	}
	return &Handler{
		Store:  store,
		Calc:   calc,
		Ranker: &engine.Ranker{Calc: calc},
		Engine: &engine.AssignmentEngine{Calc: calc, Matters: store, Auth: store},
		Blocks: &engine.BlockService{Store: store, Auth: store},
		Now:    time.Now,
	}
}

// actor extracts the caller identity. Authentication itself happens
// upstream; this layer only consumes the resolved identity.
func actor(r *http.Request) (engine.Actor, bool) {
	id := r.Header.Get("X-Actor-Id")
	return engine.Actor{ID: id}, id != ""
}

// =============================================================================
// WORKLOAD HANDLERS
// =============================================================================

// GetWorkload returns the capacity snapshot for a fee earner.
func (h *Handler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	id := engine.FeeEarnerID(chi.URLParam(r, "id"))

	snap, err := h.Calc.ComputeWorkload(r.Context(), id, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workloadDTO(snap))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns a fee earner's assignment settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	id := engine.FeeEarnerID(chi.URLParam(r, "id"))

	settings, err := h.Store.GetSettings(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "Fee earner not configured for assignment", nil)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(*settings))
}

// UpsertSettings creates or replaces a fee earner's settings.
func (h *Handler) UpsertSettings(w http.ResponseWriter, r *http.Request) {
	id := engine.FeeEarnerID(chi.URLParam(r, "id"))

	var req UpsertSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings := engine.FeeEarnerSettings{
		FeeEarnerID:           id,
		TenantID:              engine.TenantID(req.TenantID),
		MaxConcurrentMatters:  req.MaxConcurrentMatters,
		MaxNewMattersPerWeek:  req.MaxNewMattersPerWeek,
		MatterTypes:           req.MatterTypes,
		AcceptsAutoAssignment: req.AcceptsAutoAssignment,
		AssignmentPriority:    req.AssignmentPriority,
		WorkingHoursStart:     req.WorkingHoursStart,
		WorkingHoursEnd:       req.WorkingHoursEnd,
	}
	for _, d := range req.WorkingDays {
		settings.WorkingDays = append(settings.WorkingDays, time.Weekday(d))
	}

	var err error
	if settings.MinTransactionValue, err = parseMoney(req.MinTransactionValue); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid min_transaction_value", err)
		return
	}
	if settings.MaxTransactionValue, err = parseMoney(req.MaxTransactionValue); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_transaction_value", err)
		return
	}

	if err := settings.Validate(); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.Store.UpsertSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(settings))
}

func settingsDTO(s engine.FeeEarnerSettings) SettingsDTO {
	dto := SettingsDTO{
		FeeEarnerID:           string(s.FeeEarnerID),
		TenantID:              string(s.TenantID),
		MaxConcurrentMatters:  s.MaxConcurrentMatters,
		MaxNewMattersPerWeek:  s.MaxNewMattersPerWeek,
		MatterTypes:           s.MatterTypes,
		AcceptsAutoAssignment: s.AcceptsAutoAssignment,
		AssignmentPriority:    s.AssignmentPriority,
		WorkingHoursStart:     s.WorkingHoursStart,
		WorkingHoursEnd:       s.WorkingHoursEnd,
	}
	if s.MinTransactionValue != nil {
		v := s.MinTransactionValue.String()
		dto.MinTransactionValue = &v
	}
	if s.MaxTransactionValue != nil {
		v := s.MaxTransactionValue.String()
		dto.MaxTransactionValue = &v
	}
	for _, d := range s.WorkingDays {
		dto.WorkingDays = append(dto.WorkingDays, int(d))
	}
	return dto
}

func parseMoney(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// AVAILABILITY HANDLERS
// =============================================================================

// ListAvailability returns a fee earner's blocks, classified as
// active/upcoming/past against the request clock.
func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	id := engine.FeeEarnerID(chi.URLParam(r, "id"))

	classified, err := h.Blocks.ListBlocks(r.Context(), id, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]BlockDTO, len(classified))
	for i, cb := range classified {
		dtos[i] = blockDTO(cb.Block, cb.Status)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAvailability creates a block for a fee earner.
func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id", nil)
		return
	}
	id := engine.FeeEarnerID(chi.URLParam(r, "id"))

	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	var end *time.Time
	if req.EndDate != nil {
		e, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
			return
		}
		end = &e
	}

	block, err := h.Blocks.CreateBlock(r.Context(), act, engine.CreateBlockInput{
		FeeEarnerID: id,
		TenantID:    engine.TenantID(req.TenantID),
		StartDate:   start,
		EndDate:     end,
		Type:        engine.AvailabilityType(req.Type),
		Notes:       req.Notes,
	}, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, blockDTO(*block, block.Status(h.Now())))
}

// UpdateAvailability applies a partial edit to a block.
func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id", nil)
		return
	}
	id := engine.BlockID(chi.URLParam(r, "id"))

	var req UpdateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var in engine.UpdateBlockInput
	if req.StartDate != nil {
		t, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
		in.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
			return
		}
		in.EndDate = &t
	}
	if req.Type != nil {
		t := engine.AvailabilityType(*req.Type)
		in.Type = &t
	}
	in.Notes = req.Notes

	block, err := h.Blocks.UpdateBlock(r.Context(), act, id, in, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blockDTO(*block, block.Status(h.Now())))
}

// DeleteAvailability soft-deletes a block.
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id", nil)
		return
	}
	id := engine.BlockID(chi.URLParam(r, "id"))

	if err := h.Blocks.DeleteBlock(r.Context(), act, id, h.Now()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// MATTER HANDLERS
// =============================================================================

// CreateMatter registers a matter. Matter ownership lives with the
// surrounding practice-management system; this endpoint carries the
// slice the engine needs.
func (h *Handler) CreateMatter(w http.ResponseWriter, r *http.Request) {
	var req CreateMatterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "id and tenant_id are required", nil)
		return
	}

	value, err := decimal.NewFromString(req.TransactionValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction_value", err)
		return
	}
	status := engine.MatterStatus(req.Status)
	if status == "" {
		status = engine.MatterNew
	}

	matter := engine.Matter{
		ID:               engine.MatterID(req.ID),
		TenantID:         engine.TenantID(req.TenantID),
		MatterType:       req.MatterType,
		TransactionValue: value,
		Status:           status,
		CreatedAt:        h.Now(),
	}
	if err := h.Store.SaveMatter(r.Context(), matter); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save matter", err)
		return
	}
	writeJSON(w, http.StatusCreated, matterDTO(matter))
}

// GetMatter returns a matter.
func (h *Handler) GetMatter(w http.ResponseWriter, r *http.Request) {
	id := engine.MatterID(chi.URLParam(r, "id"))

	matter, err := h.Store.GetMatter(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get matter", err)
		return
	}
	if matter == nil {
		writeError(w, http.StatusNotFound, "Matter not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, matterDTO(*matter))
}

// GetRecommendations returns the advisory ranking for a matter. Every
// configured fee earner appears, including unavailable and
// over-capacity ones, so the requester can see why each is or isn't a
// good fit. The top entry is NOT guaranteed to match what auto-assign
// would pick; the two strategies are deliberately distinct.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	id := engine.MatterID(chi.URLParam(r, "id"))

	matter, err := h.Store.GetMatter(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get matter", err)
		return
	}
	if matter == nil {
		writeError(w, http.StatusNotFound, "Matter not found", nil)
		return
	}

	recs, err := h.Ranker.Rank(r.Context(), matter.TenantID, *matter, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]RecommendationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = RecommendationDTO{
			FeeEarnerID: string(rec.FeeEarnerID),
			Score:       rec.Score,
			Reason:      rec.Reason(),
			Tokens:      rec.ReasonTokens,
			Workload:    workloadDTO(rec.Workload),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": dtos})
}

// AutoAssign runs automatic assignment for a matter.
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id", nil)
		return
	}
	id := engine.MatterID(chi.URLParam(r, "id"))

	feeEarnerID, err := h.Engine.AutoAssign(r.Context(), act, id, h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssignmentResultDTO{
		MatterID:    string(id),
		FeeEarnerID: string(feeEarnerID),
		Method:      "auto",
	})
}

// ManualAssign commits a human-chosen assignment.
func (h *Handler) ManualAssign(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-Id", nil)
		return
	}
	id := engine.MatterID(chi.URLParam(r, "id"))

	var req ManualAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.ManualAssign(r.Context(), act, id, engine.FeeEarnerID(req.FeeEarnerID)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssignmentResultDTO{
		MatterID:    string(id),
		FeeEarnerID: req.FeeEarnerID,
		Method:      "manual",
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeEngineError maps engine error taxonomy to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNoEligibleCandidate):
		// 409 with a distinct code so clients can offer manual assignment.
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "No eligible fee earner",
			"code":  "no_eligible_candidate",
		})
	case errors.Is(err, engine.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Not permitted", nil)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
