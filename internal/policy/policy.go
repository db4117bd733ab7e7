// Package policy holds the pure pricing and reward functions applied to every
// trade. Nothing here touches ledger state; both policies are plain values
// that can be evaluated on their own.
package policy

import (
	"fmt"
	"math/bits"

	"github.com/roach88/gridsync/internal/amount"
)

// Defaults for the observed policy.
const (
	// DefaultLargeTradePercent is the share of a listing's remaining units a
	// single purchase must reach (inclusive) to count as a large trade.
	DefaultLargeTradePercent = 75

	// DefaultLargeTradeMinUnits is an absolute floor for large trades.
	// Zero disables the floor.
	DefaultLargeTradeMinUnits = 0

	// DefaultIncreasePercent is the price bump applied after a large trade.
	DefaultIncreasePercent = 10

	// DefaultRewardPercent is the share of trade value paid out as points.
	DefaultRewardPercent = 5
)

// Pricing decides when a purchase moves the listing price and by how much.
type Pricing struct {
	LargeTradePercent  uint64 `json:"large_trade_percent"`
	LargeTradeMinUnits uint64 `json:"large_trade_min_units"`
	IncreasePercent    uint64 `json:"increase_percent"`
}

// DefaultPricing returns the observed pricing policy.
func DefaultPricing() Pricing {
	return Pricing{
		LargeTradePercent:  DefaultLargeTradePercent,
		LargeTradeMinUnits: DefaultLargeTradeMinUnits,
		IncreasePercent:    DefaultIncreasePercent,
	}
}

// Validate rejects policies that could never be evaluated.
func (p Pricing) Validate() error {
	if p.LargeTradePercent == 0 || p.LargeTradePercent > 100 {
		return fmt.Errorf("large_trade_percent must be in [1, 100], got %d", p.LargeTradePercent)
	}
	if p.IncreasePercent > 1000 {
		return fmt.Errorf("increase_percent must be in [0, 1000], got %d", p.IncreasePercent)
	}
	return nil
}

// Qualifies reports whether purchasing units out of unitsBefore is a large
// trade. The percentage boundary is inclusive.
func (p Pricing) Qualifies(unitsBefore, units uint64) bool {
	if units == 0 || units < p.LargeTradeMinUnits {
		return false
	}
	// units*100 >= unitsBefore*percent, compared as 128-bit products.
	lhsHi, lhsLo := bits.Mul64(units, 100)
	rhsHi, rhsLo := bits.Mul64(unitsBefore, p.LargeTradePercent)
	if lhsHi != rhsHi {
		return lhsHi > rhsHi
	}
	return lhsLo >= rhsLo
}

// AdjustPrice returns the listing price after a purchase of units out of
// unitsBefore. Large trades add ceil(current*IncreasePercent/100) once per
// trade; other trades leave the price unchanged. The result is never below
// current.
func (p Pricing) AdjustPrice(current, unitsBefore, units uint64) (uint64, error) {
	if !p.Qualifies(unitsBefore, units) {
		return current, nil
	}
	bump, err := amount.PercentCeil(current, p.IncreasePercent)
	if err != nil {
		return 0, err
	}
	return amount.Add(current, bump)
}

// Reward computes loyalty points from trade value.
type Reward struct {
	Percent uint64 `json:"percent"`
}

// DefaultReward returns the observed reward policy.
func DefaultReward() Reward {
	return Reward{Percent: DefaultRewardPercent}
}

// Validate rejects reward rates above 100%.
func (r Reward) Validate() error {
	if r.Percent > 100 {
		return fmt.Errorf("reward percent must be in [0, 100], got %d", r.Percent)
	}
	return nil
}

// Points returns floor(value*Percent/100). Producer and consumer each earn
// this amount for the same trade.
func (r Reward) Points(value uint64) (uint64, error) {
	return amount.PercentFloor(value, r.Percent)
}

// AdjustPrice applies the default pricing policy.
func AdjustPrice(current, unitsBefore, units uint64) (uint64, error) {
	return DefaultPricing().AdjustPrice(current, unitsBefore, units)
}

// ComputeReward applies the default reward policy.
func ComputeReward(value uint64) (uint64, error) {
	return DefaultReward().Points(value)
}
