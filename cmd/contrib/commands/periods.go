package commands

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"gopkg.in/yaml.v3"
)

// PeriodsFile is the on-disk list of declared periods read by calc and
// validate. YAML files use the same field names as JSON.
type PeriodsFile struct {
	Periods []PeriodEntry `json:"periods"`
}

// PeriodEntry is one declared period. Omitted selections take their
// defaults: every insurance type, no reduction.
type PeriodEntry struct {
	ID             string                           `json:"id"`
	CategoryCode   string                           `json:"category_code"`
	WorkerCategory core.WorkerCategory              `json:"worker_category"`
	Start          core.Date                        `json:"start"`
	End            core.Date                        `json:"end"`
	Grade          int                              `json:"grade"`
	VariableStart  core.Date                        `json:"variable_start"`
	VariableEnd    core.Date                        `json:"variable_end"`
	Wages          []subscription.WageSubPeriod     `json:"wages"`
	Insurance      *subscription.InsuranceSelection `json:"insurance"`
	Reductions     *subscription.ReductionSelection `json:"reductions"`
}

func (e PeriodEntry) period(n int) subscription.SubscriptionPeriod {
	id := e.ID
	if id == "" {
		id = fmt.Sprintf("period-%d", n+1)
	}
	p := subscription.NewPeriod(id, e.CategoryCode, e.WorkerCategory, e.Start, e.End)
	p.Grade = e.Grade
	p.VariableStart = e.VariableStart
	p.VariableEnd = e.VariableEnd
	p.Wages = e.Wages
	if e.Insurance != nil {
		p.Insurance = *e.Insurance
	}
	if e.Reductions != nil {
		p.Reductions = *e.Reductions
	}
	return p
}

// loadPeriods reads a JSON or YAML periods file, chosen by extension.
func loadPeriods(path string) ([]subscription.SubscriptionPeriod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}
	return decodePeriods(data, isYAML(path))
}

func isYAML(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// decodePeriods decodes YAML by way of JSON so both formats share the JSON
// field names and the date/decimal text codecs.
func decodePeriods(data []byte, fromYAML bool) ([]subscription.SubscriptionPeriod, error) {
	if fromYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse periods yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert periods yaml: %w", err)
		}
		data = converted
	}

	var file PeriodsFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse periods: %w", err)
	}
	periods := make([]subscription.SubscriptionPeriod, len(file.Periods))
	for i, e := range file.Periods {
		periods[i] = e.period(i)
	}
	return periods, nil
}
