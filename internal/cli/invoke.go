package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Database string
	Policy   string
	As       string
	Listing  uint64
	Units    uint64
	Price    uint64

	// TxGenerator overrides the tx id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TxGenerator engine.TxIDGenerator
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <kind>",
		Short: "Execute one command against the ledger",
		Long: `Execute one command against the ledger and print its receipt.

Kinds: register-producer, register-consumer, deactivate-producer,
deactivate-consumer, list-energy-units, buy-energy.

The command is journaled whether it is applied or rejected. A rejection
exits with code 1.

Examples:
  gridsync invoke register-producer --db ./grid.db --as alice
  gridsync invoke list-energy-units --db ./grid.db --as alice --units 100 --price 10
  gridsync invoke buy-energy --db ./grid.db --as bob --listing 1 --units 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.As, "as", "", "calling principal (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "CUE policy file; must match the policy the database was first written with (defaults apply when empty)")
	cmd.Flags().Uint64Var(&opts.Listing, "listing", 0, "listing id (buy-energy)")
	cmd.Flags().Uint64Var(&opts.Units, "units", 0, "units to list or buy")
	cmd.Flags().Uint64Var(&opts.Price, "price", 0, "price per unit (list-energy-units)")

	return cmd
}

func runInvoke(opts *InvokeOptions, kindArg string, cmd *cobra.Command) error {
	kind, err := ir.ParseKind(kindArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid command kind", err)
	}
	command := ir.Command{
		Kind:      kind,
		Caller:    opts.As,
		ListingID: opts.Listing,
		Units:     opts.Units,
		Price:     opts.Price,
	}

	ctx := cmd.Context()
	sess, err := openSession(ctx, opts.Database, opts.Policy, opts.TxGenerator, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := sess.engine.Execute(ctx, command)
	if err != nil {
		if engine.IsMalformed(err) {
			return WrapExitError(ExitCommandError, "malformed command", err)
		}
		return WrapExitError(ExitCommandError, "failed to execute command", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if rec.OK() {
		return f.Success(rec, receiptLine(rec)+"\n")
	}

	if err := f.Error(ErrCodeRejected, rec.Case, rec); err != nil {
		return err
	}
	if !f.JSON() {
		fmt.Fprintln(f.Writer, receiptLine(rec))
	}
	return NewExitError(ExitFailure, fmt.Sprintf("command rejected: %s", rec.Case))
}
