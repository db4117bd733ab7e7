package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Policy *config.Policy `json:"policy,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <policy.cue>",
		Short: "Validate a policy file",
		Long: `Validate a CUE policy file against the policy schema and print the
effective policy with defaults filled in.

Example:
  gridsync validate ./gridsync.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	f.VerboseLog("validating %s", path)

	pol, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if !errors.As(err, &cfgErr) {
			return WrapExitError(ExitCommandError, "failed to read policy", err)
		}
		if ferr := f.Error(ErrCodeInvalidPolicy, cfgErr.Error(), ValidationResult{Errors: []string{cfgErr.Error()}}); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "policy invalid", err)
	}

	text := fmt.Sprintf("✓ %s is valid\n"+
		"  pricing.large_trade_percent:   %d\n"+
		"  pricing.large_trade_min_units: %d\n"+
		"  pricing.increase_percent:      %d\n"+
		"  reward.percent:                %d\n",
		path,
		pol.Pricing.LargeTradePercent,
		pol.Pricing.LargeTradeMinUnits,
		pol.Pricing.IncreasePercent,
		pol.Reward.Percent,
	)
	return f.Success(ValidationResult{Valid: true, Policy: &pol}, text)
}
