package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/gridsync/internal/ir"
)

// Entry is one journaled command together with its receipt.
type Entry struct {
	Command ir.Command `json:"command"`
	Receipt ir.Receipt `json:"receipt"`
}

// TraceFilter narrows ReadTrace. Zero values match everything.
type TraceFilter struct {
	// Principal matches commands the principal issued and trades where it
	// was the seller.
	Principal string
	// ListingID matches receipts that reference the listing.
	ListingID uint64
}

const journalSelect = `
	SELECT c.seq, c.id, c.tx_id, c.kind, c.caller, c.args, r.outcome, r.result
	FROM commands c
	JOIN receipts r ON r.seq = c.seq
`

// ReadJournal returns every entry with seq >= fromSeq, ordered by seq ASC.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadJournal(ctx context.Context, fromSeq int64) ([]Entry, error) {
	return s.queryEntries(ctx, journalSelect+`WHERE c.seq >= ? ORDER BY c.seq ASC`, fromSeq)
}

// ReadTrace returns journal entries matching the filter, ordered by seq ASC.
func (s *Store) ReadTrace(ctx context.Context, f TraceFilter) ([]Entry, error) {
	var where []string
	var args []any
	if f.Principal != "" {
		where = append(where, "(c.caller = ? OR r.counterparty = ?)")
		args = append(args, f.Principal, f.Principal)
	}
	if f.ListingID != 0 {
		where = append(where, "r.listing_id = ?")
		args = append(args, int64(f.ListingID))
	}

	query := journalSelect
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + " "
	}
	query += "ORDER BY c.seq ASC"
	return s.queryEntries(ctx, query, args...)
}

// ReadReceipt retrieves the entry for a transaction id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadReceipt(ctx context.Context, txID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, journalSelect+`WHERE c.tx_id = ? ORDER BY c.seq ASC LIMIT 1`, txID)
	return scanEntry(row)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		rec                  ir.Receipt
		kind, caller         string
		argsJSON, resultJSON string
	)
	if err := sc.Scan(&rec.Seq, &rec.CommandID, &rec.TxID, &kind, &caller, &argsJSON, &rec.Case, &resultJSON); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}

	args, err := unmarshalObject(argsJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("seq %d: %w", rec.Seq, err)
	}
	cmd, err := ir.CommandFromArgs(ir.Kind(kind), caller, args)
	if err != nil {
		return Entry{}, fmt.Errorf("seq %d: %w", rec.Seq, err)
	}
	rec.Result, err = unmarshalObject(resultJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("seq %d: %w", rec.Seq, err)
	}
	rec.Kind = cmd.Kind
	rec.Caller = cmd.Caller

	return Entry{Command: cmd, Receipt: rec}, nil
}
