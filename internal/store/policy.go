package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridsync/internal/policy"
)

// ErrPolicyMismatch is returned when a commit carries a policy that differs
// from the one the journal is bound to.
var ErrPolicyMismatch = errors.New("policy mismatch")

// Policy is the pricing and reward configuration a journal is written under.
// It is bound on the first commit and never changes afterwards.
type Policy struct {
	Pricing policy.Pricing
	Reward  policy.Reward
}

const (
	metaPolicyLargeTradePercent  = "policy.large_trade_percent"
	metaPolicyLargeTradeMinUnits = "policy.large_trade_min_units"
	metaPolicyIncreasePercent    = "policy.increase_percent"
	metaPolicyRewardPercent      = "policy.reward_percent"
)

func (p Policy) metaRows() [][2]any {
	return [][2]any{
		{metaPolicyLargeTradePercent, int64(p.Pricing.LargeTradePercent)},
		{metaPolicyLargeTradeMinUnits, int64(p.Pricing.LargeTradeMinUnits)},
		{metaPolicyIncreasePercent, int64(p.Pricing.IncreasePercent)},
		{metaPolicyRewardPercent, int64(p.Reward.Percent)},
	}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadPolicy returns the policy the journal is bound to. The bool is false
// when no command has been committed yet.
func (s *Store) LoadPolicy(ctx context.Context) (Policy, bool, error) {
	return loadPolicy(ctx, s.db)
}

func loadPolicy(ctx context.Context, q rowQuerier) (Policy, bool, error) {
	var p Policy
	fields := []struct {
		key string
		dst *uint64
	}{
		{metaPolicyLargeTradePercent, &p.Pricing.LargeTradePercent},
		{metaPolicyLargeTradeMinUnits, &p.Pricing.LargeTradeMinUnits},
		{metaPolicyIncreasePercent, &p.Pricing.IncreasePercent},
		{metaPolicyRewardPercent, &p.Reward.Percent},
	}

	found := 0
	for _, f := range fields {
		var v int64
		err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, f.key).Scan(&v)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			return Policy{}, false, fmt.Errorf("load %s: %w", f.key, err)
		}
		*f.dst = uint64(v)
		found++
	}

	switch found {
	case 0:
		return Policy{}, false, nil
	case len(fields):
		return p, true, nil
	default:
		return Policy{}, false, fmt.Errorf("load policy: %d of %d keys present", found, len(fields))
	}
}

// bindPolicy stores p if the journal has no policy yet, and fails with
// ErrPolicyMismatch if it is bound to a different one.
func bindPolicy(ctx context.Context, tx *sql.Tx, p Policy) error {
	stored, ok, err := loadPolicy(ctx, tx)
	if err != nil {
		return err
	}
	if ok {
		if stored != p {
			return fmt.Errorf("%w: journal has %+v, commit has %+v", ErrPolicyMismatch, stored, p)
		}
		return nil
	}

	for _, row := range p.metaRows() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, row[0], row[1]); err != nil {
			return fmt.Errorf("bind policy: %w", err)
		}
	}
	return nil
}
