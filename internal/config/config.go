// Package config loads the gridsync policy file.
//
// Policies are written in CUE and unified with an embedded schema, so range
// checks and defaults live in one place:
//
//	pricing: large_trade_percent: 80
//	reward: percent: 2
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/policy"
)

//go:embed schema.cue
var schemaCUE string

// Policy is the pricing and reward configuration for a ledger.
type Policy struct {
	Pricing policy.Pricing `json:"pricing"`
	Reward  policy.Reward  `json:"reward"`
}

// Default returns the built-in policy.
func Default() Policy {
	return Policy{
		Pricing: policy.DefaultPricing(),
		Reward:  policy.DefaultReward(),
	}
}

// Validate checks both policies.
func (p Policy) Validate() error {
	if err := p.Pricing.Validate(); err != nil {
		return err
	}
	return p.Reward.Validate()
}

// LedgerOptions returns the options that install this policy on a ledger.
func (p Policy) LedgerOptions() []ledger.Option {
	return []ledger.Option{
		ledger.WithPricing(p.Pricing),
		ledger.WithReward(p.Reward),
	}
}

// Error is a policy file error with its source position, when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates a CUE policy file.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return compile(data, path)
}

// LoadString validates CUE policy source. Used by tests and the harness.
func LoadString(src string) (Policy, error) {
	return compile([]byte(src), "policy.cue")
}

func compile(src []byte, filename string) (Policy, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Policy{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Policy"))

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Policy{}, formatCUEError(err)
	}

	v := def.Unify(user)
	if err := v.Validate(); err != nil {
		return Policy{}, formatCUEError(err)
	}

	var p Policy
	fields := []struct {
		path string
		dst  *uint64
	}{
		{"pricing.large_trade_percent", &p.Pricing.LargeTradePercent},
		{"pricing.large_trade_min_units", &p.Pricing.LargeTradeMinUnits},
		{"pricing.increase_percent", &p.Pricing.IncreasePercent},
		{"reward.percent", &p.Reward.Percent},
	}
	for _, f := range fields {
		n, err := uintField(v, f.path)
		if err != nil {
			return Policy{}, err
		}
		*f.dst = n
	}

	if err := p.Validate(); err != nil {
		return Policy{}, &Error{Field: "policy", Message: err.Error()}
	}
	return p, nil
}

// uintField reads a concrete integer, falling back to the schema default.
func uintField(v cue.Value, path string) (uint64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, &Error{Field: path, Message: "missing", Pos: v.Pos()}
	}
	if d, ok := f.Default(); ok {
		f = d
	}
	n, err := f.Uint64()
	if err != nil {
		return 0, &Error{Field: path, Message: "must be a concrete non-negative integer", Pos: f.Pos()}
	}
	return n, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Field: "cue", Message: first.Error()}
}
