/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain values
  (periods, wages, breakdown rows, summaries) already carry JSON tags and
  are returned as-is; the types here cover request bodies and the error
  envelope.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Periods:      CreatePeriodRequest, WageRequest, ValidationDTO
  Calculations: CalculateRequest, InlinePeriodRequest
  Errors:       ErrorResponse, BoundDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers via subscription.Validator, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - subscription/types.go: SubscriptionPeriod, WageSubPeriod
*/
package api

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

// =============================================================================
// PERIOD REQUESTS
// =============================================================================

// CreatePeriodRequest creates a period. Omitted selections take their
// documented defaults: every insurance type, no reduction.
type CreatePeriodRequest struct {
	ID             string                           `json:"id"`
	CategoryCode   string                           `json:"category_code"`
	WorkerCategory core.WorkerCategory              `json:"worker_category"`
	Start          core.Date                        `json:"start"`
	End            core.Date                        `json:"end"`
	Grade          int                              `json:"grade"`
	VariableStart  core.Date                        `json:"variable_start"`
	VariableEnd    core.Date                        `json:"variable_end"`
	Insurance      *subscription.InsuranceSelection `json:"insurance"`
	Reductions     *subscription.ReductionSelection `json:"reductions"`
}

func (r CreatePeriodRequest) toPeriod() subscription.SubscriptionPeriod {
	p := subscription.NewPeriod(r.ID, r.CategoryCode, r.WorkerCategory, r.Start, r.End)
	p.Grade = r.Grade
	p.VariableStart = r.VariableStart
	p.VariableEnd = r.VariableEnd
	if r.Insurance != nil {
		p.Insurance = *r.Insurance
	}
	if r.Reductions != nil {
		p.Reductions = *r.Reductions
	}
	return p
}

// WageRequest adds or replaces a wage sub-period. An empty end means
// open-ended.
type WageRequest struct {
	ID     string          `json:"id"`
	Kind   core.WageKind   `json:"kind"`
	Start  core.Date       `json:"start"`
	End    core.Date       `json:"end"`
	Amount decimal.Decimal `json:"amount"`
}

func (r WageRequest) toWage() subscription.WageSubPeriod {
	return subscription.WageSubPeriod{ID: r.ID, Kind: r.Kind, Start: r.Start, End: r.End, Amount: r.Amount}
}

// ValidationDTO is the readiness report of one period.
type ValidationDTO struct {
	PeriodID string          `json:"period_id"`
	Ready    bool            `json:"ready"`
	Errors   []ErrorResponse `json:"errors"`
}

// =============================================================================
// CALCULATION REQUESTS
// =============================================================================

// CalculateRequest selects the periods to calculate: stored periods by id,
// or inline periods that are calculated without being stored. With neither,
// every stored period is calculated.
type CalculateRequest struct {
	PeriodIDs       []string              `json:"period_ids"`
	Periods         []InlinePeriodRequest `json:"periods"`
	ConfirmFallback bool                  `json:"confirm_fallback"`
	ConfirmPeriods  []string              `json:"confirm_periods"`
}

// InlinePeriodRequest is a period declared in a calculation request
// together with its wages.
type InlinePeriodRequest struct {
	ID             string                           `json:"id"`
	CategoryCode   string                           `json:"category_code"`
	WorkerCategory core.WorkerCategory              `json:"worker_category"`
	Start          core.Date                        `json:"start"`
	End            core.Date                        `json:"end"`
	Grade          int                              `json:"grade"`
	VariableStart  core.Date                        `json:"variable_start"`
	VariableEnd    core.Date                        `json:"variable_end"`
	Insurance      *subscription.InsuranceSelection `json:"insurance"`
	Reductions     *subscription.ReductionSelection `json:"reductions"`
	Wages          []WageRequest                    `json:"wages"`
}

func (r InlinePeriodRequest) toPeriod(n int) subscription.SubscriptionPeriod {
	if r.ID == "" {
		r.ID = fmt.Sprintf("inline-%d", n+1)
	}
	p := CreatePeriodRequest{
		ID:             r.ID,
		CategoryCode:   r.CategoryCode,
		WorkerCategory: r.WorkerCategory,
		Start:          r.Start,
		End:            r.End,
		Grade:          r.Grade,
		VariableStart:  r.VariableStart,
		VariableEnd:    r.VariableEnd,
		Insurance:      r.Insurance,
		Reductions:     r.Reductions,
	}.toPeriod()
	for _, w := range r.Wages {
		p.Wages = append(p.Wages, w.toWage())
	}
	return p
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the error envelope of every failed request.
type ErrorResponse struct {
	Error   string    `json:"error"`
	Details string    `json:"details,omitempty"`
	Field   string    `json:"field,omitempty"`
	Bound   *BoundDTO `json:"bound,omitempty"`
}

// BoundDTO details a statutory bound violation.
type BoundDTO struct {
	WageKind string          `json:"wage_kind"`
	Amount   decimal.Decimal `json:"amount"`
	Side     core.BoundKind  `json:"side"`
	Bound    decimal.Decimal `json:"bound"`
	Overlap  core.Period     `json:"overlap"`
}

func toErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Error: message}
	if err == nil {
		return resp
	}
	resp.Details = err.Error()

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	var be *core.BoundViolationError
	if errors.As(err, &be) {
		resp.Bound = &BoundDTO{
			WageKind: be.WageKind,
			Amount:   be.Amount,
			Side:     be.Kind,
			Bound:    be.Bound,
			Overlap:  be.Overlap,
		}
	}
	return resp
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
