package engine

import (
	"context"
	"fmt"

	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/policy"
	"github.com/roach88/gridsync/internal/store"
)

// ReplayReport summarizes a replay.
type ReplayReport struct {
	// Entries is the number of journal entries re-applied.
	Entries int `json:"entries"`

	// Applied and Rejected split Entries by receipt case.
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`

	// Pricing and Reward are the policies the journal is bound to, or the
	// defaults for an empty journal.
	Pricing policy.Pricing `json:"pricing"`
	Reward  policy.Reward  `json:"reward"`

	// StateHash fingerprints the rebuilt ledger.
	StateHash string `json:"state_hash"`

	// State is the rebuilt ledger state.
	State ledger.State `json:"-"`
}

// Replay rebuilds a ledger from empty by re-applying the journal in seq
// order. Each entry is checked as it is applied: the seq must be contiguous,
// the command id must recompute, and the receipt case and result must match
// what was stored. The first divergence stops the replay with a
// *ReplayMismatchError.
//
// The policies come from the store, and the same code path as Execute
// produces the outcomes, so a replay of an untampered journal is
// byte-identical.
func Replay(ctx context.Context, s *store.Store) (ReplayReport, error) {
	pol, bound, err := s.LoadPolicy(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	if !bound {
		pol = store.Policy{Pricing: policy.DefaultPricing(), Reward: policy.DefaultReward()}
	}

	entries, err := s.ReadJournal(ctx, 1)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	l := ledger.New(ledger.WithPricing(pol.Pricing), ledger.WithReward(pol.Reward))
	report := ReplayReport{Pricing: pol.Pricing, Reward: pol.Reward}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		want := int64(i + 1)
		got := entry.Receipt.Seq
		if got != want {
			return report, &ReplayMismatchError{Seq: want, Field: "seq", Want: fmt.Sprint(want), Got: fmt.Sprint(got)}
		}

		id, err := ir.CommandID(got, entry.Command)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", got, err)
		}
		if id != entry.Receipt.CommandID {
			return report, &ReplayMismatchError{Seq: got, Field: "command_id", Want: entry.Receipt.CommandID, Got: id}
		}

		out, err := apply(l, entry.Command)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", got, err)
		}
		if out.Case != entry.Receipt.Case {
			return report, &ReplayMismatchError{Seq: got, Field: "case", Want: entry.Receipt.Case, Got: out.Case}
		}
		if err := compareResults(got, entry.Receipt.Result, out.Result); err != nil {
			return report, err
		}

		report.Entries++
		if out.Case == ir.CaseOK {
			report.Applied++
		} else {
			report.Rejected++
		}
	}

	report.State = l.Snapshot()
	report.StateHash, err = StateHash(report.State)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	return report, nil
}

// VerifyReplay replays the journal and compares the rebuilt state with the
// materialized state in the store.
func VerifyReplay(ctx context.Context, s *store.Store) (ReplayReport, error) {
	report, err := Replay(ctx, s)
	if err != nil {
		return report, err
	}

	stored, err := s.LoadState(ctx)
	if err != nil {
		return report, fmt.Errorf("verify replay: %w", err)
	}
	storedHash, err := StateHash(stored)
	if err != nil {
		return report, fmt.Errorf("verify replay: %w", err)
	}
	if storedHash != report.StateHash {
		return report, &ReplayMismatchError{Field: "state", Want: storedHash, Got: report.StateHash}
	}
	return report, nil
}

func compareResults(seq int64, want, got ir.IRObject) error {
	w, err := ir.MarshalCanonical(want)
	if err != nil {
		return fmt.Errorf("replay seq %d: %w", seq, err)
	}
	g, err := ir.MarshalCanonical(got)
	if err != nil {
		return fmt.Errorf("replay seq %d: %w", seq, err)
	}
	if string(w) != string(g) {
		return &ReplayMismatchError{Seq: seq, Field: "result", Want: string(w), Got: string(g)}
	}
	return nil
}
