package ledger

import (
	"sort"

	"github.com/roach88/gridsync/internal/amount"
)

// book tracks listings and allocates their ids. Ids start at 1 and are
// never reused. Not safe for concurrent use on its own.
type book struct {
	listings map[uint64]*Listing
	nextID   uint64
}

func newBook() *book {
	return &book{
		listings: make(map[uint64]*Listing),
		nextID:   1,
	}
}

// add validates quantity and price, then stores a new listing.
// The owner check happens in Ledger, which holds the registry.
func (b *book) add(owner Principal, units, price uint64) (Listing, error) {
	if units == 0 || units > amount.Max {
		return Listing{}, reject(ErrInvalidQuantity, owner, 0)
	}
	if price == 0 || price > amount.Max {
		return Listing{}, reject(ErrInvalidPrice, owner, 0)
	}
	id := b.nextID
	next, err := amount.Add(id, 1)
	if err != nil {
		return Listing{}, overflow(err, owner)
	}

	rec := &Listing{ID: id, Owner: owner, Units: units, PricePerUnit: price}
	b.listings[id] = rec
	b.nextID = next
	return *rec, nil
}

func (b *book) get(id uint64) (Listing, bool) {
	rec, ok := b.listings[id]
	if !ok {
		return Listing{}, false
	}
	return *rec, true
}

// reduce applies a validated purchase: units drop by purchased and the price
// becomes newPrice. Callers have already checked purchased <= Units and
// newPrice >= PricePerUnit.
func (b *book) reduce(id, purchased, newPrice uint64) Listing {
	rec := b.listings[id]
	rec.Units = amount.Sub(rec.Units, purchased)
	rec.PricePerUnit = newPrice
	return *rec
}

func (b *book) byOwner(owner Principal) []Listing {
	var out []Listing
	for _, rec := range b.listings {
		if rec.Owner == owner {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *book) sorted() []Listing {
	out := make([]Listing, 0, len(b.listings))
	for _, rec := range b.listings {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
