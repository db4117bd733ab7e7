package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gridsync/internal/config"
	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/store"
	"github.com/roach88/gridsync/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Load the policy (defaults plus the scenario's CUE overrides)
//  2. Execute steps through the engine, checking expect clauses
//  3. Replay the journal and compare with the materialized state
//  4. Evaluate assertions against the final ledger
//
// An error is returned only when the scenario cannot be run at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	pol := config.Default()
	if scenario.Policy != "" {
		var err error
		pol, err = config.LoadString(scenario.Policy)
		if err != nil {
			return nil, fmt.Errorf("scenario policy: %w", err)
		}
	}

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eng := engine.New(st, testutil.NewSequentialTxGenerator("tx"),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLedgerOptions(pol.LedgerOptions()...),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		cmd, err := step.Command()
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		rec, err := eng.Execute(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, traceEvent(cmd, rec))

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Expect, rec.Case, rec.Result) {
				result.AddError(msg)
			}
		}
	}

	if _, err := engine.VerifyReplay(ctx, st); err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
	}

	result.State = eng.Ledger().Snapshot()
	result.StateHash, err = engine.StateHash(result.State)
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
