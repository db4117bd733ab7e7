package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/gridsync/internal/config"
	"github.com/roach88/gridsync/internal/engine"
	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/store"
)

// session is an open database with a recovered engine on top.
type session struct {
	store  *store.Store
	engine *engine.Engine
	policy config.Policy
}

// loadPolicy returns the default policy when path is empty.
func loadPolicy(path string) (config.Policy, error) {
	if path == "" {
		return config.Default(), nil
	}
	pol, err := config.Load(path)
	if err != nil {
		return config.Policy{}, WrapExitError(ExitCommandError, "failed to load policy", err)
	}
	return pol, nil
}

func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openSession opens the database, builds an engine with the policy at
// policyPath and recovers it from the materialized state.
func openSession(ctx context.Context, dbPath, policyPath string, txGen engine.TxIDGenerator, log *slog.Logger) (*session, error) {
	pol, err := loadPolicy(policyPath)
	if err != nil {
		return nil, err
	}
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	if txGen == nil {
		txGen = engine.UUIDv7Generator{}
	}

	eng := engine.New(st, txGen,
		engine.WithLedgerOptions(pol.LedgerOptions()...),
		engine.WithLogger(log),
	)
	if err := eng.Recover(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to recover engine", err)
	}
	return &session{store: st, engine: eng, policy: pol}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// loadLedger rebuilds a read-only ledger from the materialized state.
func loadLedger(ctx context.Context, st *store.Store) (*ledger.Ledger, error) {
	state, err := st.LoadState(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	l, err := ledger.FromState(state)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	return l, nil
}

// canonical renders an IR value for text output.
func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

// receiptLine renders a receipt as a single text line.
func receiptLine(rec ir.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s %s -> %s", rec.Seq, rec.Caller, rec.Kind, rec.Case)
	if len(rec.Result) > 0 {
		fmt.Fprintf(&b, " %s", canonical(rec.Result))
	}
	return b.String()
}
