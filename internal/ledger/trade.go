package ledger

import "github.com/roach88/gridsync/internal/amount"

// tradePlan holds every post-commit value for a purchase. Building a plan
// never mutates; committing one cannot fail.
type tradePlan struct {
	summary  TradeSummary
	producer Producer
	consumer Consumer
}

// BuyEnergy purchases units from listing id on behalf of caller.
//
// Validation order: listing exists (NoSuchListing), caller is an active
// consumer (NotRegistered), 0 < units <= remaining (InsufficientUnits).
// Value, new price, points and every credited counter are computed and
// overflow-checked before anything is written; the listing and both parties
// then change together.
func (l *Ledger) BuyEnergy(caller Principal, id, units uint64) (TradeSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	plan, err := l.planTrade(caller, id, units)
	if err != nil {
		return TradeSummary{}, err
	}
	l.commitTrade(plan)
	return plan.summary, nil
}

// planTrade is the validating and settling phases of a purchase. A
// rejection here leaves the ledger untouched.
func (l *Ledger) planTrade(caller Principal, id, units uint64) (tradePlan, error) {
	listing, ok := l.book.get(id)
	if !ok {
		return tradePlan{}, reject(ErrNoSuchListing, caller, id)
	}
	buyer, err := l.registry.activeConsumer(caller)
	if err != nil {
		return tradePlan{}, err
	}
	if units == 0 || units > listing.Units {
		return tradePlan{}, reject(ErrInsufficientUnits, caller, id)
	}

	value, err := amount.Mul(units, listing.PricePerUnit)
	if err != nil {
		return tradePlan{}, tradeOverflow(err, caller, id)
	}
	newPrice, err := l.pricing.AdjustPrice(listing.PricePerUnit, listing.Units, units)
	if err != nil {
		return tradePlan{}, tradeOverflow(err, caller, id)
	}
	points, err := l.reward.Points(value)
	if err != nil {
		return tradePlan{}, tradeOverflow(err, caller, id)
	}

	// The owner is always a producer: listings are only created by
	// producers and records are never destroyed.
	seller, _ := l.registry.producer(listing.Owner)
	producer, err := producerCredit(seller, units, value, points)
	if err != nil {
		return tradePlan{}, err
	}
	consumer, err := consumerCredit(*buyer, points)
	if err != nil {
		return tradePlan{}, err
	}

	after := listing
	after.Units = amount.Sub(listing.Units, units)
	after.PricePerUnit = newPrice

	return tradePlan{
		summary: TradeSummary{
			ListingID: id,
			Buyer:     caller,
			Seller:    listing.Owner,
			Units:     units,
			PricePaid: listing.PricePerUnit,
			Value:     value,
			Points:    points,
			NewPrice:  newPrice,
			Listing:   after,
			Settlement: Settlement{
				From:   caller,
				To:     listing.Owner,
				Amount: value,
			},
		},
		producer: producer,
		consumer: consumer,
	}, nil
}

// commitTrade is the committed phase.
func (l *Ledger) commitTrade(p tradePlan) {
	l.book.reduce(p.summary.ListingID, p.summary.Units, p.summary.NewPrice)
	l.registry.creditProducer(p.producer)
	l.registry.creditConsumer(p.consumer)
}

func tradeOverflow(err error, who Principal, id uint64) error {
	le, ok := overflow(err, who).(*Error)
	if !ok {
		return err
	}
	le.ListingID = id
	return le
}
