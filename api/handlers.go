/*
handlers.go - HTTP API handlers for the contribution engine

PURPOSE:
  Exposes period editing and contribution calculation via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  subscription and contribution packages.

ENDPOINTS:
  Periods:
    GET    /api/periods                         List periods
    POST   /api/periods                         Create period
    GET    /api/periods/{id}                    Get period
    DELETE /api/periods/{id}                    Delete period
    POST   /api/periods/{id}/validate           Readiness report

  Wages:
    POST   /api/periods/{id}/wages              Add wage sub-period
    PUT    /api/periods/{id}/wages/{wageID}     Replace wage sub-period
    DELETE /api/periods/{id}/wages/{wageID}     Remove wage sub-period

  Calculations:
    POST   /api/calculations                    Calculate stored or inline periods
    GET    /api/calculations                    Recent runs
    GET    /api/calculations/{id}               One recorded run

  Tables:
    GET    /api/tables                          Loaded tables and row counts

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Apply the command through PeriodStore.UpdatePeriod, or calculate
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with a status derived from the error kind:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Statutory-minimum fallback needs confirmation
  - 422: Bound violation, regime crossing, table lookup miss
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"github.com/warp/contribution-engine/tables"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Periods   subscription.PeriodStore
	Runs      contribution.RunLog
	Tables    *tables.Set
	Engine    *contribution.Engine
	Validator *subscription.Validator
	Log       zerolog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given stores and tables.
func NewHandler(periods subscription.PeriodStore, runs contribution.RunLog, set *tables.Set, log zerolog.Logger) *Handler {
	return &Handler{
		Periods:   periods,
		Runs:      runs,
		Tables:    set,
		Engine:    contribution.NewEngine(set, log),
		Validator: subscription.NewValidator(set),
		Log:       log,
	}
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Periods.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// CreatePeriod stores a new period without wages. Declared wages are added
// through the wage endpoints so every one passes validation.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if _, err := h.Periods.GetPeriod(r.Context(), req.ID); err == nil {
		writeError(w, http.StatusConflict, "Period already exists", nil)
		return
	}

	p := req.toPeriod()
	if !p.Worker.Valid() {
		h.fail(w, "Invalid period", core.Invalid("worker_category", "unknown worker category %q", p.Worker))
		return
	}
	if err := h.Periods.SavePeriod(r.Context(), p); err != nil {
		h.fail(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPeriod returns one period with its wages.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Periods.GetPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Period not found", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePeriod removes a period.
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Periods.DeletePeriod(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidatePeriod reports whether a period is ready for calculation.
func (h *Handler) ValidatePeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Periods.GetPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Period not found", err)
		return
	}
	errs := h.Validator.ValidatePeriod(p)
	dto := ValidationDTO{PeriodID: p.ID, Ready: len(errs) == 0, Errors: make([]ErrorResponse, 0, len(errs))}
	for _, e := range errs {
		dto.Errors = append(dto.Errors, toErrorResponse(errorTitle(e), e))
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// WAGE HANDLERS
// =============================================================================

// AddWage validates and appends a wage sub-period.
func (h *Handler) AddWage(w http.ResponseWriter, r *http.Request) {
	var req WageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Periods.UpdatePeriod(r.Context(), chi.URLParam(r, "id"),
		func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			return h.Validator.AddWage(p, req.toWage())
		})
	if err != nil {
		h.fail(w, "Wage rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// EditWage replaces a wage sub-period.
func (h *Handler) EditWage(w http.ResponseWriter, r *http.Request) {
	var req WageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	wageID := chi.URLParam(r, "wageID")
	p, err := h.Periods.UpdatePeriod(r.Context(), chi.URLParam(r, "id"),
		func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			return h.Validator.EditWage(p, wageID, req.toWage())
		})
	if err != nil {
		h.fail(w, "Wage rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RemoveWage drops a wage sub-period.
func (h *Handler) RemoveWage(w http.ResponseWriter, r *http.Request) {
	wageID := chi.URLParam(r, "wageID")
	p, err := h.Periods.UpdatePeriod(r.Context(), chi.URLParam(r, "id"),
		func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			return h.Validator.RemoveWage(p, wageID)
		})
	if err != nil {
		h.fail(w, "Wage not removed", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate runs the engine over stored periods or the inline periods of
// the request. Inline periods are not stored.
//
// Status:
//   - 201: recorded, at least one period calculated
//   - 409: some periods wait for fallback confirmation (not recorded)
//   - 422: every period failed (recorded)
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	if len(req.PeriodIDs) > 0 && len(req.Periods) > 0 {
		writeError(w, http.StatusBadRequest, "Use either period_ids or periods", nil)
		return
	}
	opts := contribution.Options{
		ConfirmFallback: req.ConfirmFallback,
		ConfirmPeriods:  req.ConfirmPeriods,
	}

	var periods []subscription.SubscriptionPeriod
	if len(req.Periods) > 0 {
		var err error
		periods, opts.Rejected, err = h.inlinePeriods(req.Periods)
		if err != nil {
			h.fail(w, "Invalid periods", err)
			return
		}
	} else {
		var err error
		periods, err = h.selectPeriods(r, req.PeriodIDs)
		if err != nil {
			h.fail(w, "Failed to load periods", err)
			return
		}
	}

	calc := h.Engine.Calculate(periods, opts)
	if len(calc.PendingConfirmation) > 0 {
		writeJSON(w, http.StatusConflict, calc)
		return
	}
	if err := h.Runs.RecordRun(r.Context(), calc); err != nil {
		h.fail(w, "Failed to record calculation", err)
		return
	}
	status := http.StatusCreated
	if errors.Is(calc.Err, core.ErrNoValidPeriods) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, calc)
}

func (h *Handler) selectPeriods(r *http.Request, ids []string) ([]subscription.SubscriptionPeriod, error) {
	if len(ids) == 0 {
		return h.Periods.ListPeriods(r.Context())
	}
	out := make([]subscription.SubscriptionPeriod, 0, len(ids))
	for _, id := range ids {
		p, err := h.Periods.GetPeriod(r.Context(), id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// inlinePeriods builds request periods and replays their wages through the
// validator. A rejected wage fails only its own period.
func (h *Handler) inlinePeriods(reqs []InlinePeriodRequest) ([]subscription.SubscriptionPeriod, map[string]error, error) {
	periods := make([]subscription.SubscriptionPeriod, 0, len(reqs))
	rejected := map[string]error{}
	seen := map[string]bool{}
	for i, req := range reqs {
		p := req.toPeriod(i)
		if seen[p.ID] {
			return nil, nil, core.Invalid("id", "duplicate period id %s", p.ID)
		}
		seen[p.ID] = true
		if !p.Worker.Valid() {
			return nil, nil, core.Invalid("worker_category", "period %s: unknown worker category %q", p.ID, p.Worker)
		}
		rebuilt, err := h.Validator.Replay(p)
		if err != nil {
			rejected[p.ID] = err
		} else {
			p = rebuilt
		}
		periods = append(periods, p)
	}
	return periods, rejected, nil
}

// ListCalculations returns recorded runs, newest first.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, "Failed to list calculations", err)
		return
	}
	if runs == nil {
		runs = []contribution.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetCalculation returns one recorded run.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Calculation not found", err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

// ListTables returns the loaded table keys with their row counts.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tables.Summary())
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, core.ErrBoundViolation),
		errors.Is(err, core.ErrRegimeCrossing),
		errors.Is(err, core.ErrLookupMiss),
		errors.Is(err, core.ErrNoValidPeriods):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorTitle(err error) string {
	switch {
	case errors.Is(err, core.ErrBoundViolation):
		return "bound violation"
	case errors.Is(err, core.ErrRegimeCrossing):
		return "regime crossing"
	case errors.Is(err, core.ErrValidation):
		return "validation error"
	default:
		return "error"
	}
}

// fail writes err with its mapped status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg(message)
	}
	writeError(w, status, message, err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, toErrorResponse(message, err))
}
