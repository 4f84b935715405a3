package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

const (
	repoTables  = "../../../tables.yaml"
	repoPeriods = "../../../periods.example.yaml"
)

// =============================================================================
// PERIODS FILE
// =============================================================================

func TestDecodePeriods_YAMLAndJSONAgree(t *testing.T) {
	yamlDoc := `
periods:
  - category_code: "3"
    worker_category: standard
    start: 2018-01
    end: "2018-12"
    wages:
      - {id: w1, kind: basic, start: "2018-01", amount: 1000}
    reductions: {new_hire: true}
`
	jsonDoc := `{"periods": [{
		"category_code": "3", "worker_category": "standard", "start": "2018-01", "end": "2018-12",
		"wages": [{"id": "w1", "kind": "basic", "start": "2018-01", "amount": 1000}],
		"reductions": {"new_hire": true}
	}]}`

	fromYAML, err := decodePeriods([]byte(yamlDoc), true)
	require.NoError(t, err)
	fromJSON, err := decodePeriods([]byte(jsonDoc), false)
	require.NoError(t, err)

	require.Len(t, fromYAML, 1)
	assert.Equal(t, fromJSON, fromYAML)

	p := fromYAML[0]
	assert.Equal(t, "period-1", p.ID)
	assert.Equal(t, core.NewDate(2018, time.December, 1), p.End)
	assert.Equal(t, subscription.DefaultInsuranceSelection(), p.Insurance, "omitted insurance keeps defaults")
	assert.True(t, p.Reductions.NewHire)
	require.Len(t, p.Wages, 1)
	assert.True(t, p.Wages[0].Amount.Equal(core.MustDecimal("1000")))
}

func TestDecodePeriods_RejectsUnknownFields(t *testing.T) {
	_, err := decodePeriods([]byte(`{"periods": [{"id": "x", "salary": 3}]}`), false)
	assert.Error(t, err)

	_, err = decodePeriods([]byte("periods:\n  - id: x\n    salary: 3\n"), true)
	assert.Error(t, err)
}

func TestLoadPeriods_ExampleFile(t *testing.T) {
	periods, err := loadPeriods(repoPeriods)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, "private-2018", periods[0].ID)
	assert.Equal(t, 2, periods[2].Grade)
}

// =============================================================================
// COMMANDS
// =============================================================================

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCalcCommand_JSON(t *testing.T) {
	out, err := execute(t, "calc", "--tables", repoTables, "--log-level", "disabled",
		"--periods", repoPeriods, "--confirm=true", "--output", "json", "--record=false")
	require.NoError(t, err, out)

	var calc contribution.Calculation
	require.NoError(t, json.Unmarshal([]byte(out), &calc), out)
	require.Len(t, calc.Results, 3)
	assert.Zero(t, calc.Failed())
	assert.Equal(t, []core.WageKind{core.WageUnified}, calc.Results[1].Fallback)
	assert.True(t, calc.GrandTotal.IsPositive())
}

func TestCalcCommand_NeedsConfirmation(t *testing.T) {
	_, err := execute(t, "calc", "--tables", repoTables, "--log-level", "disabled",
		"--periods", repoPeriods, "--confirm=false", "--output", "text", "--record=false")

	assert.True(t, errors.Is(err, core.ErrConfirmationRequired))
}

func TestCalcCommand_Text(t *testing.T) {
	out, err := execute(t, "calc", "--tables", repoTables, "--log-level", "disabled",
		"--periods", repoPeriods, "--confirm=true", "--output", "text", "--record=false")

	require.NoError(t, err, out)
	assert.Contains(t, out, "Period private-2018")
	assert.Contains(t, out, "transport/grade 2")
	assert.Contains(t, out, "Grand total:")
}

func TestCalcCommand_RejectedWageFailsOnlyItsPeriod(t *testing.T) {
	// GIVEN: One period with a basic wage under the minimum and one valid period
	dir := t.TempDir()
	path := filepath.Join(dir, "periods.json")
	doc := `{"periods": [
		{"id": "low", "category_code": "3", "worker_category": "standard", "start": "2016-01", "end": "2016-06",
		 "wages": [{"id": "w1", "kind": "basic", "start": "2016-01", "amount": 500}]},
		{"id": "good", "category_code": "3", "worker_category": "standard", "start": "2018-01", "end": "2018-12",
		 "insurance": {"pension": true},
		 "wages": [{"id": "w2", "kind": "basic", "start": "2018-01", "amount": 1000}]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	// WHEN: Calculating the file
	out, err := execute(t, "calc", "--tables", repoTables, "--log-level", "disabled",
		"--periods", path, "--confirm=false", "--output", "json", "--record=false")

	// THEN: The bad period carries its error and the good one is priced
	require.NoError(t, err, out)
	var calc contribution.Calculation
	require.NoError(t, json.Unmarshal([]byte(out), &calc), out)
	require.Len(t, calc.Results, 2)
	assert.Equal(t, "low", calc.Results[0].PeriodID)
	assert.Contains(t, calc.Results[0].Error, "wage w1")
	assert.True(t, calc.Results[0].Total.IsZero())
	assert.Equal(t, "good", calc.Results[1].PeriodID)
	assert.Empty(t, calc.Results[1].Error)
	assert.Equal(t, 1, calc.Failed())
	assert.Equal(t, "3120.00", calc.GrandTotal.StringFixed(2))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "periods.json")
	doc := `{"periods": [
		{"id": "low", "category_code": "3", "worker_category": "standard", "start": "2016-01", "end": "2016-06",
		 "wages": [{"id": "w1", "kind": "basic", "start": "2016-01", "amount": 500}]},
		{"id": "gov", "category_code": "1", "worker_category": "standard", "start": "2021-01", "end": "2021-12"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := execute(t, "validate", "--tables", repoTables, "--log-level", "disabled", "--periods", path)

	assert.True(t, errors.Is(err, errPeriodsInvalid))
	assert.Contains(t, out, "❌ low")
	assert.Contains(t, out, "below minimum 800.00")
	assert.Contains(t, out, "✅ gov")
	assert.Contains(t, out, "no unified wage declared")
}
