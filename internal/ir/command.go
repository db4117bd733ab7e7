package ir

import (
	"fmt"
	"math"
)

// Kind names a ledger operation.
type Kind string

const (
	KindRegisterProducer   Kind = "register-producer"
	KindRegisterConsumer   Kind = "register-consumer"
	KindDeactivateProducer Kind = "deactivate-producer"
	KindDeactivateConsumer Kind = "deactivate-consumer"
	KindListEnergyUnits    Kind = "list-energy-units"
	KindBuyEnergy          Kind = "buy-energy"
)

// Kinds lists every command kind in a stable order.
var Kinds = []Kind{
	KindRegisterProducer,
	KindRegisterConsumer,
	KindDeactivateProducer,
	KindDeactivateConsumer,
	KindListEnergyUnits,
	KindBuyEnergy,
}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown command kind %q", s)
}

// Command is one authenticated request against the ledger. Caller is the
// principal supplied by the hosting environment.
type Command struct {
	Kind      Kind   `json:"kind"`
	Caller    string `json:"caller"`
	ListingID uint64 `json:"listing_id,omitempty"`
	Units     uint64 `json:"units,omitempty"`
	Price     uint64 `json:"price,omitempty"`
}

// Validate checks that the command is well formed. It does not check
// ledger preconditions; those produce rejection receipts.
func (c Command) Validate() error {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Caller == "" {
		return fmt.Errorf("%s: caller is required", c.Kind)
	}
	fields := []struct {
		name string
		v    uint64
	}{{"listing", c.ListingID}, {"units", c.Units}, {"price", c.Price}}
	for _, f := range fields {
		if f.v > math.MaxInt64 {
			return fmt.Errorf("%s: %s %d exceeds journal range", c.Kind, f.name, f.v)
		}
	}
	return nil
}

// Args returns the arguments the kind uses, for journaling and hashing.
func (c Command) Args() IRObject {
	switch c.Kind {
	case KindListEnergyUnits:
		return IRObject{"units": Uint(c.Units), "price": Uint(c.Price)}
	case KindBuyEnergy:
		return IRObject{"listing": Uint(c.ListingID), "units": Uint(c.Units)}
	default:
		return IRObject{}
	}
}

// CommandFromArgs rebuilds a command from its journaled form.
func CommandFromArgs(kind Kind, caller string, args IRObject) (Command, error) {
	cmd := Command{Kind: kind, Caller: caller}
	fields := map[string]*uint64{
		"listing": &cmd.ListingID,
		"units":   &cmd.Units,
		"price":   &cmd.Price,
	}
	for key, v := range args {
		dst, ok := fields[key]
		if !ok {
			return Command{}, fmt.Errorf("%s: unexpected arg %q", kind, key)
		}
		n, ok := v.(IRInt)
		if !ok || n < 0 {
			return Command{}, fmt.Errorf("%s: arg %q must be a non-negative integer", kind, key)
		}
		*dst = uint64(n)
	}
	return cmd, cmd.Validate()
}
