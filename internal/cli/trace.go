package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Principal string
	Listing   uint64
	TxID      string
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []store.Entry `json:"entries"`
	Total   int           `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled commands and their receipts",
		Long: `List journaled commands and their receipts in seq order.

--principal matches commands the principal issued and trades where it was
the seller. --listing matches receipts that reference the listing. Both
filters may be combined. --tx shows the single command with that tx id.

Examples:
  gridsync trace --db ./grid.db
  gridsync trace --db ./grid.db --principal alice
  gridsync trace --db ./grid.db --listing 1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Principal, "principal", "", "filter by principal")
	cmd.Flags().Uint64Var(&opts.Listing, "listing", 0, "filter by listing id")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "show one command by tx id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	var entries []store.Entry
	if opts.TxID != "" {
		entry, err := st.ReadReceipt(ctx, opts.TxID)
		if err != nil {
			msg := fmt.Sprintf("tx %s not found", opts.TxID)
			if ferr := f.Error(ErrCodeNotFound, msg, err.Error()); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, msg, err)
		}
		entries = []store.Entry{entry}
	} else {
		entries, err = st.ReadTrace(ctx, store.TraceFilter{
			Principal: opts.Principal,
			ListingID: opts.Listing,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
	}

	return f.Success(TraceResult{Entries: entries, Total: len(entries)}, traceText(entries))
}

func traceText(entries []store.Entry) string {
	if len(entries) == 0 {
		return "No commands found.\n"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  tx=%s\n", receiptLine(e.Receipt), e.Receipt.TxID)
	}
	fmt.Fprintf(&b, "%d command(s)\n", len(entries))
	return b.String()
}
