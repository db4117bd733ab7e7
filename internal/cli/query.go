package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
)

// QueryOptions holds flags for the query commands.
type QueryOptions struct {
	*RootOptions
	Database string
}

// NewQueryCommand creates the query command with one subcommand per read
// path.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read ledger records",
		Long: `Read producer, consumer and listing records from the materialized state.

Examples:
  gridsync query producer alice --db ./grid.db
  gridsync query listing 1 --db ./grid.db --format json
  gridsync query listings alice --db ./grid.db`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")

	cmd.AddCommand(newQuerySubcommand(opts, "producer <principal>", "Show a producer record", queryProducer))
	cmd.AddCommand(newQuerySubcommand(opts, "consumer <principal>", "Show a consumer record", queryConsumer))
	cmd.AddCommand(newQuerySubcommand(opts, "listing <id>", "Show a listing", queryListing))
	cmd.AddCommand(newQuerySubcommand(opts, "listings <owner>", "Show every listing of a producer", queryListingsByOwner))

	return cmd
}

// queryFunc looks up one key and returns the record, or false when absent.
type queryFunc func(l *ledger.Ledger, key string) (ir.IRValue, bool, error)

func newQuerySubcommand(opts *QueryOptions, use, short string, fn queryFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0], fn)
		},
	}
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, key string, fn queryFunc) error {
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := loadLedger(cmd.Context(), st)
	if err != nil {
		return err
	}

	record, found, err := fn(l, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if !found {
		msg := fmt.Sprintf("%s %s not found", strings.Fields(cmd.Use)[0], key)
		if err := f.Error(ErrCodeNotFound, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Success(record, canonical(record)+"\n")
}

func queryProducer(l *ledger.Ledger, key string) (ir.IRValue, bool, error) {
	p, ok := l.ProducerInfo(ledger.Principal(key))
	if !ok {
		return nil, false, nil
	}
	return engine.EncodeProducer(p), true, nil
}

func queryConsumer(l *ledger.Ledger, key string) (ir.IRValue, bool, error) {
	c, ok := l.ConsumerInfo(ledger.Principal(key))
	if !ok {
		return nil, false, nil
	}
	return engine.EncodeConsumer(c), true, nil
}

func queryListing(l *ledger.Ledger, key string) (ir.IRValue, bool, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("listing id %q: %w", key, err)
	}
	lst, ok := l.Listing(id)
	if !ok {
		return nil, false, nil
	}
	return engine.EncodeListing(lst), true, nil
}

// queryListingsByOwner never reports absence; an owner without listings
// yields an empty array.
func queryListingsByOwner(l *ledger.Ledger, key string) (ir.IRValue, bool, error) {
	listings := l.ListingsByOwner(ledger.Principal(key))
	out := make(ir.IRArray, 0, len(listings))
	for _, lst := range listings {
		out = append(out, engine.EncodeListing(lst))
	}
	return out, true, nil
}
