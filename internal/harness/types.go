package harness

import (
	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
)

// TraceEvent is one receipt in the scenario trace.
type TraceEvent struct {
	Seq       int64       `json:"seq"`
	TxID      string      `json:"tx_id"`
	CommandID string      `json:"command_id"`
	Kind      ir.Kind     `json:"kind"`
	Caller    string      `json:"caller"`
	Args      ir.IRObject `json:"args"`
	Case      string      `json:"case"`
	Result    ir.IRObject `json:"result"`
}

func traceEvent(cmd ir.Command, rec ir.Receipt) TraceEvent {
	return TraceEvent{
		Seq:       rec.Seq,
		TxID:      rec.TxID,
		CommandID: rec.CommandID,
		Kind:      cmd.Kind,
		Caller:    cmd.Caller,
		Args:      cmd.Args(),
		Case:      rec.Case,
		Result:    rec.Result,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause, assertion and the replay check
	// succeeded.
	Pass bool `json:"pass"`

	// Trace holds every receipt in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final ledger state.
	State ledger.State `json:"state"`

	// StateHash fingerprints State.
	StateHash string `json:"state_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CountCase returns how many receipts carry the given case.
func (r *Result) CountCase(c string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Case == c {
			n++
		}
	}
	return n
}
