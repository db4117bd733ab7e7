// Package amount provides checked arithmetic for ledger quantities.
//
// Every quantity (units, prices, earnings, points) is a uint64 bounded by
// Max. Operations that would leave that range return ErrOverflow instead of
// wrapping.
package amount

import (
	"errors"
	"math"
)

// Max bounds every stored quantity. Values stay within the signed 64-bit
// range so they round-trip through SQLite INTEGER columns and canonical JSON
// integers without loss.
const Max uint64 = math.MaxInt64

// ErrOverflow is returned when a result would exceed Max.
var ErrOverflow = errors.New("amount overflow")

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	if a > Max || b > Max-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Mul returns a*b.
func Mul(a, b uint64) (uint64, error) {
	if a > Max || b > Max {
		return 0, ErrOverflow
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > Max/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// Sub returns a-b. Callers validate b <= a first; an underflow here is a
// programming error and panics.
func Sub(a, b uint64) uint64 {
	if b > a {
		panic("amount: subtraction underflow")
	}
	return a - b
}

// PercentFloor returns floor(a*pct/100) without forming the full product.
func PercentFloor(a, pct uint64) (uint64, error) {
	whole, rem, err := percentParts(a, pct)
	if err != nil {
		return 0, err
	}
	return Add(whole, rem/100)
}

// PercentCeil returns ceil(a*pct/100) without forming the full product.
func PercentCeil(a, pct uint64) (uint64, error) {
	whole, rem, err := percentParts(a, pct)
	if err != nil {
		return 0, err
	}
	part := rem / 100
	if rem%100 != 0 {
		part++
	}
	return Add(whole, part)
}

// percentParts splits a*pct into (a/100)*pct and (a%100)*pct.
func percentParts(a, pct uint64) (whole, rem uint64, err error) {
	whole, err = Mul(a/100, pct)
	if err != nil {
		return 0, 0, err
	}
	// a%100 < 100, so the remainder product fits whenever pct <= Max/100.
	rem, err = Mul(a%100, pct)
	if err != nil {
		return 0, 0, err
	}
	return whole, rem, nil
}
