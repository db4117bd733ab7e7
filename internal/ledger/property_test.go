package ledger

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// op is one randomly drawn ledger call.
type op struct {
	kind   string
	caller Principal
	id     uint64
	units  uint64
	price  uint64
}

func drawOp(t *rapid.T, label string) op {
	principals := []Principal{"p0", "p1", "p2", "c0", "c1", "c2"}
	return op{
		kind:   rapid.SampledFrom([]string{"register-producer", "register-consumer", "list", "buy", "buy", "buy", "deactivate-producer", "deactivate-consumer"}).Draw(t, label+".kind"),
		caller: rapid.SampledFrom(principals).Draw(t, label+".caller"),
		id:     rapid.Uint64Range(0, 6).Draw(t, label+".id"),
		units:  rapid.Uint64Range(0, 3000).Draw(t, label+".units"),
		price:  rapid.Uint64Range(0, 50).Draw(t, label+".price"),
	}
}

func (o op) apply(l *Ledger) error {
	var err error
	switch o.kind {
	case "register-producer":
		_, err = l.RegisterProducer(o.caller)
	case "register-consumer":
		_, err = l.RegisterConsumer(o.caller)
	case "list":
		_, err = l.ListEnergyUnits(o.caller, o.units, o.price)
	case "buy":
		_, err = l.BuyEnergy(o.caller, o.id, o.units)
	case "deactivate-producer":
		_, err = l.DeactivateProducer(o.caller)
	case "deactivate-consumer":
		_, err = l.DeactivateConsumer(o.caller)
	default:
		panic(fmt.Sprintf("unknown op %q", o.kind))
	}
	return err
}

func TestProperty_TransitionsPreserveInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		n := rapid.IntRange(1, 60).Draw(t, "n")

		for i := 0; i < n; i++ {
			o := drawOp(t, fmt.Sprintf("op%d", i))
			before := l.Snapshot()

			var listingBefore Listing
			if o.kind == "buy" {
				listingBefore, _ = l.Listing(o.id)
			}

			err := o.apply(l)
			after := l.Snapshot()

			if err != nil {
				if !IsRejection(err) {
					t.Fatalf("op %d %+v: non-taxonomy error %v", i, o, err)
				}
				assertSameState(t, before, after)
				continue
			}

			assertMonotonic(t, before, after)

			if o.kind == "buy" {
				listingAfter, _ := l.Listing(o.id)
				if listingAfter.Units != listingBefore.Units-o.units {
					t.Fatalf("units not conserved: %d - %d != %d", listingBefore.Units, o.units, listingAfter.Units)
				}
				seller := findProducer(before, listingBefore.Owner)
				sellerAfter := findProducer(after, listingBefore.Owner)
				if sellerAfter.TotalEnergySold-seller.TotalEnergySold != o.units {
					t.Fatalf("energy sold grew by %d, want %d", sellerAfter.TotalEnergySold-seller.TotalEnergySold, o.units)
				}
				buyer := findConsumer(before, o.caller)
				buyerAfter := findConsumer(after, o.caller)
				producerGain := sellerAfter.RewardPoints - seller.RewardPoints
				consumerGain := buyerAfter.RewardPoints - buyer.RewardPoints
				if producerGain != consumerGain {
					t.Fatalf("reward asymmetry: producer +%d, consumer +%d", producerGain, consumerGain)
				}
				value := o.units * listingBefore.PricePerUnit
				if producerGain != value*5/100 {
					t.Fatalf("reward %d for value %d", producerGain, value)
				}
			}
		}
	})
}

func TestProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		ops := make([]op, n)
		for i := range ops {
			ops[i] = drawOp(t, fmt.Sprintf("op%d", i))
		}

		a, b := New(), New()
		for i, o := range ops {
			errA, errB := o.apply(a), o.apply(b)
			if CodeOf(errA) != CodeOf(errB) {
				t.Fatalf("op %d: outcomes diverged: %v vs %v", i, errA, errB)
			}
		}
		assertSameState(t, a.Snapshot(), b.Snapshot())
	})
}

func assertSameState(t *rapid.T, want, got State) {
	if fmt.Sprintf("%+v", want) != fmt.Sprintf("%+v", got) {
		t.Fatalf("state changed:\nwant %+v\ngot  %+v", want, got)
	}
}

func assertMonotonic(t *rapid.T, before, after State) {
	for _, p := range before.Producers {
		q := findProducer(after, p.Principal)
		if q.Earnings < p.Earnings || q.TotalEnergySold < p.TotalEnergySold || q.RewardPoints < p.RewardPoints {
			t.Fatalf("producer %s counters decreased: %+v -> %+v", p.Principal, p, q)
		}
	}
	for _, c := range before.Consumers {
		d := findConsumer(after, c.Principal)
		if d.RewardPoints < c.RewardPoints {
			t.Fatalf("consumer %s points decreased", c.Principal)
		}
	}
	for _, ls := range before.Listings {
		var found bool
		for _, m := range after.Listings {
			if m.ID != ls.ID {
				continue
			}
			found = true
			if m.PricePerUnit < ls.PricePerUnit {
				t.Fatalf("listing %d price decreased %d -> %d", ls.ID, ls.PricePerUnit, m.PricePerUnit)
			}
			if m.Units > ls.Units {
				t.Fatalf("listing %d units grew", ls.ID)
			}
		}
		if !found {
			t.Fatalf("listing %d disappeared", ls.ID)
		}
	}
	if after.NextListingID < before.NextListingID {
		t.Fatalf("listing id counter went backwards")
	}
}

func findProducer(s State, p Principal) Producer {
	for _, rec := range s.Producers {
		if rec.Principal == p {
			return rec
		}
	}
	return Producer{}
}

func findConsumer(s State, p Principal) Consumer {
	for _, rec := range s.Consumers {
		if rec.Principal == p {
			return rec
		}
	}
	return Consumer{}
}
