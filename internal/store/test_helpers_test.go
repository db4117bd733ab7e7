package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/gridsync/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReceipt builds a receipt for cmd at seq with a derived command id.
func createTestReceipt(cmd ir.Command, seq int64, outcome string, result ir.IRObject) ir.Receipt {
	if result == nil {
		result = ir.IRObject{}
	}
	return ir.Receipt{
		Seq:       seq,
		TxID:      "tx-" + string(rune('a'+seq-1)),
		CommandID: ir.MustCommandID(seq, cmd),
		Kind:      cmd.Kind,
		Caller:    cmd.Caller,
		Case:      outcome,
		Result:    result,
	}
}

func mustCommit(t *testing.T, s *Store, cmd ir.Command, rec ir.Receipt, ch Changes) {
	t.Helper()
	inserted, err := s.Commit(context.Background(), cmd, rec, ch)
	if err != nil {
		t.Fatalf("Commit(seq=%d) failed: %v", rec.Seq, err)
	}
	if !inserted {
		t.Fatalf("Commit(seq=%d) was not inserted", rec.Seq)
	}
}
