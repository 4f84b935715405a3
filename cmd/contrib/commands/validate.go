package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a periods file without calculating",
	Long: `Replays every declared wage through the wage checks and reports, per
period, whether it is ready for calculation.

Exit status is non-zero when any period has a problem.

Example:
  contrib validate --periods periods.json`,
	RunE: runValidate,
}

var validatePeriods string

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validatePeriods, "periods", "", "periods file (JSON or YAML, required)")
	validateCmd.MarkFlagRequired("periods")
}

var errPeriodsInvalid = errors.New("periods file has problems")

func runValidate(cmd *cobra.Command, args []string) error {
	_, _, set, err := setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	periods, err := loadPeriods(validatePeriods)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	validator := subscription.NewValidator(set)
	bad := 0
	for _, p := range periods {
		var problems []error
		rebuilt, err := validator.Replay(p)
		if err != nil {
			problems = append(problems, err)
		}
		problems = append(problems, validator.ValidatePeriod(rebuilt)...)

		if len(problems) == 0 {
			fmt.Fprintf(out, "✅ %s ready (%d wages)\n", p.ID, len(rebuilt.Wages))
		} else {
			bad++
			fmt.Fprintf(out, "❌ %s\n", p.ID)
			for _, e := range problems {
				fmt.Fprintf(out, "   - %s\n", e)
			}
		}
		if kind, ok := p.Worker.MandatoryWageKind(p.Start); ok && len(p.WagesOf(kind)) == 0 {
			fmt.Fprintf(out, "   note: no %s wage declared, calc needs --confirm\n", kind)
		}
	}

	if bad > 0 {
		return fmt.Errorf("%w: %d of %d periods", errPeriodsInvalid, bad, len(periods))
	}
	return nil
}

func money(d decimal.Decimal) string { return d.StringFixed(core.MoneyPlaces) }
