package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/ir"
)

// CanonicalTrace renders a result as canonical JSON: the scenario name, every
// receipt in seq order and the final state.
func CanonicalTrace(name string, result *Result) ([]byte, error) {
	trace := make(ir.IRArray, 0, len(result.Trace))
	for _, ev := range result.Trace {
		trace = append(trace, ir.IRObject{
			"seq":        ir.IRInt(ev.Seq),
			"tx_id":      ir.IRString(ev.TxID),
			"command_id": ir.IRString(ev.CommandID),
			"kind":       ir.IRString(ev.Kind),
			"caller":     ir.IRString(ev.Caller),
			"args":       ev.Args,
			"case":       ir.IRString(ev.Case),
			"result":     ev.Result,
		})
	}

	return ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(name),
		"trace":    trace,
		"state":    engine.EncodeState(result.State),
	})
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden. Returns an error only if the
// scenario could not run; mismatches fail t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := CanonicalTrace(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
