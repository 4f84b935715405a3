/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built period sets that replace the stored periods with
	realistic data for demos. Each scenario declares periods and adds their
	wages through the validator, so loaded data obeys the same rules as
	data entered through the wage endpoints.

AVAILABLE SCENARIOS:

	private-sector:      Category 3, 2018-2019, one basic wage
	government-minimum:  Category 1, 2021, no wage (fallback confirmation)
	business-owner:      Self-payer before and after the cutover
	transport-grade:     Grouped transport worker across the cutover
	mixed:               All of the above together

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "private-sector"}

NOTE:

	Scenarios delete every stored period first. Only use in development.

SEE ALSO:
  - handlers.go: Period and wage handlers
  - tables.yaml: Tables the scenarios are written against
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "private-sector",
		Name:        "Private Sector",
		Description: "Standard employment 2018-2019 with a single basic wage",
		Category:    "detailed",
	},
	{
		ID:          "government-minimum",
		Name:        "Government Minimum",
		Description: "Post-cutover period without a declared wage, priced at the statutory minimum once confirmed",
		Category:    "detailed",
	},
	{
		ID:          "business-owner",
		Name:        "Business Owner",
		Description: "Self-payer split at the cutover, combined rate on the employer side",
		Category:    "detailed",
	},
	{
		ID:          "transport-grade",
		Name:        "Transport Grade",
		Description: "Grade 2 transport worker crossing the cutover",
		Category:    "grouped",
	},
	{
		ID:          "mixed",
		Name:        "Mixed",
		Description: "Every scenario together, for the aggregation matrix",
		Category:    "mixed",
	},
}

// scenarioPeriod is a period plus the wages added to it in order.
type scenarioPeriod struct {
	period subscription.SubscriptionPeriod
	wages  []subscription.WageSubPeriod
}

func month(year int, m time.Month) core.Date { return core.MonthStart(year, m) }

func basicWage(id string, start core.Date, amount int64) subscription.WageSubPeriod {
	return subscription.WageSubPeriod{ID: id, Kind: core.WageBasic, Start: start, Amount: core.MustDecimal(fmt.Sprint(amount))}
}

func scenarioPeriods(id string) ([]scenarioPeriod, bool) {
	private := scenarioPeriod{
		period: subscription.NewPeriod("private-2018", "3", core.WorkerStandard, month(2018, time.January), month(2019, time.December)),
		wages:  []subscription.WageSubPeriod{basicWage("private-2018-basic", month(2018, time.January), 1000)},
	}

	government := scenarioPeriod{
		period: subscription.NewPeriod("government-2021", "1", core.WorkerStandard, month(2021, time.January), month(2021, time.December)),
	}

	ownerPre := scenarioPeriod{
		period: subscription.NewPeriod("owner-2019", "3", core.WorkerBusinessOwner, month(2019, time.January), month(2019, time.December)),
		wages:  []subscription.WageSubPeriod{basicWage("owner-2019-basic", month(2019, time.January), 1200)},
	}
	ownerPost := scenarioPeriod{
		period: subscription.NewPeriod("owner-2020", "3", core.WorkerBusinessOwner, month(2020, time.January), month(2020, time.June)),
		wages: []subscription.WageSubPeriod{{
			ID: "owner-2020-income", Kind: core.WageIncome, Start: month(2020, time.January), Amount: core.MustDecimal("1800"),
		}},
	}

	transport := subscription.NewPeriod("transport-2019", "7", core.WorkerTransport, month(2019, time.July), month(2020, time.June))
	transport.Grade = 2

	switch id {
	case "private-sector":
		return []scenarioPeriod{private}, true
	case "government-minimum":
		return []scenarioPeriod{government}, true
	case "business-owner":
		return []scenarioPeriod{ownerPre, ownerPost}, true
	case "transport-grade":
		return []scenarioPeriod{{period: transport}}, true
	case "mixed":
		return []scenarioPeriod{private, government, ownerPre, ownerPost, {period: transport}}, true
	}
	return nil, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the stored periods with a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioPeriods(req.ScenarioID); !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	periods, err := h.Periods.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	set, _ := scenarioPeriods(id)

	existing, err := h.Periods.ListPeriods(ctx)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if err := h.Periods.DeletePeriod(ctx, p.ID); err != nil {
			return err
		}
	}

	for _, sp := range set {
		p := sp.period
		for _, wage := range sp.wages {
			if p, err = h.Validator.AddWage(p, wage); err != nil {
				return fmt.Errorf("scenario %s period %s: %w", id, p.ID, err)
			}
		}
		if err := h.Periods.SavePeriod(ctx, p); err != nil {
			return err
		}
	}
	h.Log.Info().Str("scenario", id).Int("periods", len(set)).Msg("scenario loaded")
	return nil
}
