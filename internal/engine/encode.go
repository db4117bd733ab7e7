package engine

import (
	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
)

// Receipt result encoders. Keys are snake_case; the store indexes
// "listing_id" and "seller" for trace filtering.

// EncodeProducer renders a producer record.
func EncodeProducer(p ledger.Producer) ir.IRObject {
	return ir.IRObject{
		"principal":         ir.IRString(p.Principal),
		"active":            ir.IRBool(p.Active),
		"total_energy_sold": ir.Uint(p.TotalEnergySold),
		"earnings":          ir.Uint(p.Earnings),
		"reward_points":     ir.Uint(p.RewardPoints),
	}
}

// EncodeConsumer renders a consumer record.
func EncodeConsumer(c ledger.Consumer) ir.IRObject {
	return ir.IRObject{
		"principal":     ir.IRString(c.Principal),
		"active":        ir.IRBool(c.Active),
		"reward_points": ir.Uint(c.RewardPoints),
	}
}

// EncodeListing renders a listing record.
func EncodeListing(l ledger.Listing) ir.IRObject {
	return ir.IRObject{
		"listing_id":     ir.Uint(l.ID),
		"owner":          ir.IRString(l.Owner),
		"units":          ir.Uint(l.Units),
		"price_per_unit": ir.Uint(l.PricePerUnit),
	}
}

func tradeResult(s ledger.TradeSummary) ir.IRObject {
	return ir.IRObject{
		"listing_id":      ir.Uint(s.ListingID),
		"buyer":           ir.IRString(s.Buyer),
		"seller":          ir.IRString(s.Seller),
		"units":           ir.Uint(s.Units),
		"price_paid":      ir.Uint(s.PricePaid),
		"value":           ir.Uint(s.Value),
		"points":          ir.Uint(s.Points),
		"new_price":       ir.Uint(s.NewPrice),
		"remaining_units": ir.Uint(s.Listing.Units),
		"settlement": ir.IRObject{
			"from":   ir.IRString(s.Settlement.From),
			"to":     ir.IRString(s.Settlement.To),
			"amount": ir.Uint(s.Settlement.Amount),
		},
	}
}

func rejectionResult(e *ledger.Error) ir.IRObject {
	obj := ir.IRObject{
		"message": ir.IRString(e.Message),
	}
	if e.Principal != "" {
		obj["principal"] = ir.IRString(e.Principal)
	}
	if e.ListingID != 0 {
		obj["listing_id"] = ir.Uint(e.ListingID)
	}
	return obj
}

// EncodeState renders a ledger state as an IRObject for hashing and
// canonical output.
func EncodeState(st ledger.State) ir.IRObject {
	producers := make(ir.IRArray, 0, len(st.Producers))
	for _, p := range st.Producers {
		producers = append(producers, EncodeProducer(p))
	}
	consumers := make(ir.IRArray, 0, len(st.Consumers))
	for _, c := range st.Consumers {
		consumers = append(consumers, EncodeConsumer(c))
	}
	listings := make(ir.IRArray, 0, len(st.Listings))
	for _, l := range st.Listings {
		listings = append(listings, EncodeListing(l))
	}
	return ir.IRObject{
		"producers":       producers,
		"consumers":       consumers,
		"listings":        listings,
		"next_listing_id": ir.Uint(st.NextListingID),
	}
}

// StateHash fingerprints a ledger state.
func StateHash(st ledger.State) (string, error) {
	return ir.StateHash(EncodeState(st))
}
