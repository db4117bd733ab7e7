package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
)

const metaNextListingID = "next_listing_id"

// Changes are the ledger records a command touched, in their post-command
// form. A rejected command has no changes.
type Changes struct {
	Producers     []ledger.Producer
	Consumers     []ledger.Consumer
	Listings      []ledger.Listing
	NextListingID uint64 // 0 leaves the stored counter unchanged

	// Policy binds the journal on its first commit. Later commits may
	// repeat it; a different policy fails the commit with ErrPolicyMismatch.
	Policy *Policy
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Producers) == 0 && len(c.Consumers) == 0 &&
		len(c.Listings) == 0 && c.NextListingID == 0 && c.Policy == nil
}

// Commit journals a command with its receipt and upserts the changed
// records, all in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING on the command row: committing a command
// id that is already journaled writes nothing and returns inserted=false.
func (s *Store) Commit(ctx context.Context, cmd ir.Command, rec ir.Receipt, ch Changes) (inserted bool, err error) {
	argsJSON, err := marshalObject(cmd.Args())
	if err != nil {
		return false, fmt.Errorf("commit seq %d: %w", rec.Seq, err)
	}
	resultJSON, err := marshalObject(rec.Result)
	if err != nil {
		return false, fmt.Errorf("commit seq %d: %w", rec.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("commit seq %d: begin tx: %w", rec.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commands
		(seq, id, tx_id, kind, caller, args, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.Seq,
		rec.CommandID,
		rec.TxID,
		string(cmd.Kind),
		cmd.Caller,
		argsJSON,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("commit seq %d: insert command: %w", rec.Seq, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit seq %d: rows affected: %w", rec.Seq, err)
	}
	if n == 0 {
		return false, nil
	}

	listingID, counterparty := receiptSubjects(rec.Result)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (seq, outcome, result, listing_id, counterparty)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Seq, rec.Case, resultJSON, listingID, counterparty)
	if err != nil {
		return false, fmt.Errorf("commit seq %d: insert receipt: %w", rec.Seq, err)
	}

	if err := writeChanges(ctx, tx, ch); err != nil {
		return false, fmt.Errorf("commit seq %d: %w", rec.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seq %d: %w", rec.Seq, err)
	}
	return true, nil
}

// receiptSubjects extracts the trace index columns from a receipt result.
func receiptSubjects(result ir.IRObject) (listingID sql.NullInt64, counterparty sql.NullString) {
	if id, ok := result.Int("listing_id"); ok {
		listingID = sql.NullInt64{Int64: id, Valid: true}
	}
	if seller, ok := result.String("seller"); ok {
		counterparty = sql.NullString{String: seller, Valid: true}
	}
	return listingID, counterparty
}

func writeChanges(ctx context.Context, tx *sql.Tx, ch Changes) error {
	if ch.Policy != nil {
		if err := bindPolicy(ctx, tx, *ch.Policy); err != nil {
			return err
		}
	}

	for _, p := range ch.Producers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO producers (principal, active, total_energy_sold, earnings, reward_points)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(principal) DO UPDATE SET
				active = excluded.active,
				total_energy_sold = excluded.total_energy_sold,
				earnings = excluded.earnings,
				reward_points = excluded.reward_points
		`, string(p.Principal), p.Active, int64(p.TotalEnergySold), int64(p.Earnings), int64(p.RewardPoints))
		if err != nil {
			return fmt.Errorf("upsert producer %s: %w", p.Principal, err)
		}
	}

	for _, c := range ch.Consumers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO consumers (principal, active, reward_points)
			VALUES (?, ?, ?)
			ON CONFLICT(principal) DO UPDATE SET
				active = excluded.active,
				reward_points = excluded.reward_points
		`, string(c.Principal), c.Active, int64(c.RewardPoints))
		if err != nil {
			return fmt.Errorf("upsert consumer %s: %w", c.Principal, err)
		}
	}

	for _, l := range ch.Listings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO listings (id, owner, units, price_per_unit)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				units = excluded.units,
				price_per_unit = excluded.price_per_unit
		`, int64(l.ID), string(l.Owner), int64(l.Units), int64(l.PricePerUnit))
		if err != nil {
			return fmt.Errorf("upsert listing %d: %w", l.ID, err)
		}
	}

	if ch.NextListingID != 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, metaNextListingID, int64(ch.NextListingID))
		if err != nil {
			return fmt.Errorf("update %s: %w", metaNextListingID, err)
		}
	}

	return nil
}
