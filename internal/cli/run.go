package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/harness"
	"github.com/roach88/gridsync/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Policy   string

	// TxGenerator overrides the tx id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TxGenerator engine.TxIDGenerator
}

// Batch is a file of commands executed in order. Steps use the scenario
// step format; an expect clause is checked against the receipt case.
type Batch struct {
	Steps []harness.Step `yaml:"steps"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Receipts   []ir.Receipt `json:"receipts"`
	Applied    int          `json:"applied"`
	Rejected   int          `json:"rejected"`
	Mismatches []string     `json:"mismatches,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Execute a batch of commands through the engine loop",
		Long: `Execute a batch of commands in order through the single-writer engine loop.

The batch file lists steps in the scenario format:

  steps:
    - {as: alice, do: register-producer}
    - {as: alice, do: list-energy-units, units: 100, price: 10}
    - {as: bob, do: buy-energy, listing: 1, units: 50, expect: {case: NotRegistered}}

Every step is journaled. The run exits with code 1 when a step's expect
case does not match its receipt. Ctrl-C stops after the current command.

Examples:
  gridsync run batch.yaml --db ./grid.db
  gridsync run batch.yaml --db ./grid.db --policy gridsync.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "CUE policy file; must match the policy the database was first written with (defaults apply when empty)")

	return cmd
}

// LoadBatch reads and parses a batch file. Unknown fields are rejected.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}
	if len(b.Steps) == 0 {
		return nil, errors.New("batch has no steps")
	}
	for i, step := range b.Steps {
		if _, err := step.Command(); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return &b, nil
}

func runBatch(opts *RunOptions, path string, cmd *cobra.Command) error {
	batch, err := LoadBatch(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid batch", err)
	}

	log := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sess, err := openSession(ctx, opts.Database, opts.Policy, opts.TxGenerator, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- sess.engine.Run(ctx)
	}()

	result, runErr := submitBatch(ctx, sess.engine, batch)

	sess.engine.Stop()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("engine loop exited", "error", err)
	}
	if runErr != nil {
		return WrapExitError(ExitCommandError, "batch aborted", runErr)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if err := f.Success(result, batchText(result)); err != nil {
		return err
	}
	if len(result.Mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d step(s) did not match their expect case", len(result.Mismatches)))
	}
	return nil
}

func submitBatch(ctx context.Context, eng *engine.Engine, batch *Batch) (BatchResult, error) {
	result := BatchResult{Receipts: make([]ir.Receipt, 0, len(batch.Steps))}
	for i, step := range batch.Steps {
		command, err := step.Command()
		if err != nil {
			return result, fmt.Errorf("steps[%d]: %w", i, err)
		}
		rec, err := eng.Submit(ctx, command)
		if err != nil {
			return result, fmt.Errorf("steps[%d]: %w", i, err)
		}

		result.Receipts = append(result.Receipts, rec)
		if rec.OK() {
			result.Applied++
		} else {
			result.Rejected++
		}
		if step.Expect != nil && step.Expect.Case != rec.Case {
			result.Mismatches = append(result.Mismatches,
				fmt.Sprintf("steps[%d]: expected case %q, got %q", i, step.Expect.Case, rec.Case))
		}
	}
	return result, nil
}

func batchText(r BatchResult) string {
	var b bytes.Buffer
	for _, rec := range r.Receipts {
		fmt.Fprintln(&b, receiptLine(rec))
	}
	fmt.Fprintf(&b, "%d applied, %d rejected\n", r.Applied, r.Rejected)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "✗ %s\n", m)
	}
	return b.String()
}
