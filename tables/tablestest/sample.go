// Package tablestest provides a small, fully known table set for tests.
//
// Categories: "1" (government), "3" (private sector).
//
// Notable values:
//   - "3" pension 11/15 in both regimes, sickness 0/0 (skipped)
//   - new_hire 5 and small_enterprise 12 both reduce pension
//   - disabled_employee 3 reduces injury (employer 1)
//   - limits_basic min 800 from 2015, limits_unified 2021 range min 1500
//   - no construction tables
package tablestest

import (
	"testing"

	"github.com/warp/contribution-engine/tables"
)

// Raw returns a fresh copy of the sample tables.
func Raw() tables.Raw {
	return tables.Raw{
		tables.KeyRatesPre: {
			{"# category", "insurance", "employee_basic", "employer_basic", "employee_variable", "employer_variable"},
			{"1", "pension", "10", "12", "10", "12"},
			{"1", "bonus", "0", "5", "0", "5"},
			{"3", "pension", "11", "15", "11", "15"},
			{"3", "bonus", "0", "4", "0", "4"},
			{"3", "sickness", "0", "0", "0", "0"},
			{"3", "unemployment", "1", "2", "1", "2"},
			{"3", "injury", "0", "1", "0", "1"},
		},
		tables.KeyRatesPost: {
			{"1", "pension", "10", "12"},
			{"1", "bonus", "0", "5"},
			{"1", "sickness", "0", "0"},
			{"1", "unemployment", "0", "0"},
			{"1", "injury", "0", "0"},
			{"3", "pension", "11", "15"},
			{"3", "bonus", "0", "4"},
			{"3", "sickness", "0", "0"},
			{"3", "unemployment", "1", "2"},
			{"3", "injury", "0", "1"},
		},
		tables.KeyReductionsPre: {
			{"new_hire", "pension", "5"},
			{"small_enterprise", "pension", "12"},
			{"disabled_employee", "injury", "3"},
		},
		tables.KeyReductionsPost: {
			{"new_hire", "pension", "5"},
			{"small_enterprise", "pension", "12"},
			{"disabled_employee", "injury", "3"},
		},
		"limits_basic": {
			{"1970-01-01", "100", "5000"},
			{"2015-01-01", "800", "10000"},
		},
		"limits_variable": {
			{"1984-04-01", "", "4000"},
		},
		"limits_unified": {
			{"2020-01-01", "2020-12-31", "1200", "12000"},
			{"2021-01-01", "2021-12-31", "1500", "15000"},
		},
		"limits_income": {
			{"2020-01-01", "", "1000", "20000"},
		},
		"grouped_transport_pre": {
			{"2010-01-01", "2019-12-31", "900", "200", "1100", "250"},
		},
		"grouped_transport_post": {
			{"2020-01-01", "", "1000", "230", "1200", "280"},
		},
		"grouped_irregular_pre": {
			{"2000-01-01", "2019-12-31", "600", "120"},
		},
		"grouped_irregular_post": {
			{"2020-01-01", "", "700", "150"},
		},
	}
}

// Set resolves Raw and fails the test on error.
func Set(t testing.TB) *tables.Set {
	t.Helper()
	set, err := tables.Resolve(Raw())
	if err != nil {
		t.Fatalf("resolve sample tables: %v", err)
	}
	return set
}
