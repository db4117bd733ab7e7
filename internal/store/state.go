package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridsync/internal/ledger"
)

// LoadState reads the materialized ledger state. Producers and consumers are
// ordered by principal, listings by id, matching ledger.Snapshot.
func (s *Store) LoadState(ctx context.Context) (ledger.State, error) {
	var st ledger.State
	var err error

	if st.Producers, err = s.loadProducers(ctx); err != nil {
		return ledger.State{}, err
	}
	if st.Consumers, err = s.loadConsumers(ctx); err != nil {
		return ledger.State{}, err
	}
	if st.Listings, err = s.loadListings(ctx); err != nil {
		return ledger.State{}, err
	}

	var next int64
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaNextListingID).Scan(&next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		st.NextListingID = 1
	case err != nil:
		return ledger.State{}, fmt.Errorf("load %s: %w", metaNextListingID, err)
	default:
		st.NextListingID = uint64(next)
	}

	return st, nil
}

func (s *Store) loadProducers(ctx context.Context) ([]ledger.Producer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, active, total_energy_sold, earnings, reward_points
		FROM producers
		ORDER BY principal COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query producers: %w", err)
	}
	defer rows.Close()

	out := []ledger.Producer{}
	for rows.Next() {
		var (
			principal              string
			active                 bool
			sold, earnings, points int64
		)
		if err := rows.Scan(&principal, &active, &sold, &earnings, &points); err != nil {
			return nil, fmt.Errorf("scan producer: %w", err)
		}
		out = append(out, ledger.Producer{
			Principal:       ledger.Principal(principal),
			Active:          active,
			TotalEnergySold: uint64(sold),
			Earnings:        uint64(earnings),
			RewardPoints:    uint64(points),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate producers: %w", err)
	}
	return out, nil
}

func (s *Store) loadConsumers(ctx context.Context) ([]ledger.Consumer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, active, reward_points
		FROM consumers
		ORDER BY principal COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query consumers: %w", err)
	}
	defer rows.Close()

	out := []ledger.Consumer{}
	for rows.Next() {
		var (
			principal string
			active    bool
			points    int64
		)
		if err := rows.Scan(&principal, &active, &points); err != nil {
			return nil, fmt.Errorf("scan consumer: %w", err)
		}
		out = append(out, ledger.Consumer{
			Principal:    ledger.Principal(principal),
			Active:       active,
			RewardPoints: uint64(points),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consumers: %w", err)
	}
	return out, nil
}

func (s *Store) loadListings(ctx context.Context) ([]ledger.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, units, price_per_unit
		FROM listings
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	out := []ledger.Listing{}
	for rows.Next() {
		var (
			id, units, price int64
			owner            string
		)
		if err := rows.Scan(&id, &owner, &units, &price); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, ledger.Listing{
			ID:           uint64(id),
			Owner:        ledger.Principal(owner),
			Units:        uint64(units),
			PricePerUnit: uint64(price),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}
