package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/store/sqlite"
	"github.com/warp/contribution-engine/subscription"
)

// calcCmd represents the calc command
var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate contributions for a periods file",
	Long: `Calculates contributions for every period of a JSON or YAML periods file.

Declared wages are replayed through the same validation as the API. A
period with a rejected wage is reported with its error while the other
periods are still calculated. A period whose mandatory wage kind has no declared wage needs --confirm to be
priced at the statutory minimum.

Flags:
  --periods   periods file (required)
  --confirm   allow statutory-minimum fallback
  --output    text or json (default text)
  --record    store the run in the SQLite database (DB_PATH)

Example:
  contrib calc --periods periods.json
  contrib calc --periods periods.yaml --confirm --output json
  contrib calc --periods periods.json --tables tables.yaml --record`,
	RunE: runCalc,
}

var (
	calcPeriods string
	calcConfirm bool
	calcOutput  string
	calcRecord  bool
)

func init() {
	rootCmd.AddCommand(calcCmd)

	calcCmd.Flags().StringVar(&calcPeriods, "periods", "", "periods file (JSON or YAML, required)")
	calcCmd.Flags().BoolVar(&calcConfirm, "confirm", false, "price missing mandatory wages at the statutory minimum")
	calcCmd.Flags().StringVar(&calcOutput, "output", "text", "output format (text|json)")
	calcCmd.Flags().BoolVar(&calcRecord, "record", false, "record the run in the database")

	calcCmd.MarkFlagRequired("periods")
}

func runCalc(cmd *cobra.Command, args []string) error {
	if calcOutput != "text" && calcOutput != "json" {
		return fmt.Errorf("--output must be text or json")
	}
	cfg, log, set, err := setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	periods, err := loadPeriods(calcPeriods)
	if err != nil {
		return err
	}
	opts := contribution.Options{ConfirmFallback: calcConfirm, Rejected: map[string]error{}}
	validator := subscription.NewValidator(set)
	for i, p := range periods {
		rebuilt, err := validator.Replay(p)
		if err != nil {
			opts.Rejected[p.ID] = err
			continue
		}
		periods[i] = rebuilt
	}

	engine := contribution.NewEngine(set, log)
	calc := engine.Calculate(periods, opts)
	if len(calc.PendingConfirmation) > 0 {
		return fmt.Errorf("%w for %s: rerun with --confirm to use the statutory minimum",
			core.ErrConfirmationRequired, strings.Join(calc.PendingConfirmation, ", "))
	}

	out := cmd.OutOrStdout()
	if calcOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(calc); err != nil {
			return err
		}
	} else {
		printCalculation(out, calc)
	}

	if calcRecord {
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		if err := store.RecordRun(context.Background(), calc); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		log.Info().Str("calculation", calc.ID).Str("db", cfg.DBPath).Msg("run recorded")
	}
	return calc.Err
}

// =============================================================================
// TEXT OUTPUT
// =============================================================================

const rule = "───────────────────────────────────────────────────────────────────────────────"

func printCalculation(w io.Writer, calc *contribution.Calculation) {
	fmt.Fprintf(w, "Calculation %s\n", calc.ID)
	for _, r := range calc.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "  Period %s  category %s  %s (%s)\n", r.PeriodID, r.CategoryCode, r.Worker, r.Mode)
		if !r.OK() {
			fmt.Fprintf(w, "  ERROR: %s\n", r.Error)
			continue
		}
		if len(r.Fallback) > 0 {
			fmt.Fprintf(w, "  statutory minimum used for: %v\n", r.Fallback)
		}
		for _, row := range r.Rows {
			fmt.Fprintf(w, "  %-22s %s..%s %3d mo  wage %10s  total wage %12s  ee %6s%% %10s  er %6s%% %10s  = %12s\n",
				row.Label, row.Period.Start, row.Period.End, row.Months,
				money(row.MonthlyWage), money(row.TotalWage),
				row.EmployeeRate.String(), money(row.EmployeeAmount),
				row.EmployerRate.String(), money(row.EmployerAmount),
				money(row.TotalAmount))
		}
		fmt.Fprintf(w, "  Period total: %s\n", money(r.Total))
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Summary               pre basic          pre variable       post")
	for _, c := range calc.Summary.Categories {
		printBuckets(w, "category "+c.CategoryCode, c.Buckets)
	}
	printBuckets(w, "all categories", calc.Summary.Totals)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Grand total: %s\n", money(calc.GrandTotal))
	if calc.Err != nil {
		fmt.Fprintf(w, "  %s\n", calc.Err)
	}
}

func printBuckets(w io.Writer, label string, b contribution.Buckets) {
	fmt.Fprintf(w, "  %-20s %3d mo %12s   %3d mo %12s   %3d mo %12s\n", label,
		b.PreBasic.Months, money(b.PreBasic.Contribution),
		b.PreVariable.Months, money(b.PreVariable.Contribution),
		b.Post.Months, money(b.Post.Contribution))
}
