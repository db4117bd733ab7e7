package ledger

// Principal is an opaque participant identity supplied by the caller.
// The ledger compares principals for equality and never generates them.
type Principal string

// Producer is a registered energy seller.
type Producer struct {
	Principal       Principal `json:"principal"`
	Active          bool      `json:"active"`
	TotalEnergySold uint64    `json:"total_energy_sold"`
	Earnings        uint64    `json:"earnings"`
	RewardPoints    uint64    `json:"reward_points"`
}

// Consumer is a registered energy buyer.
type Consumer struct {
	Principal    Principal `json:"principal"`
	Active       bool      `json:"active"`
	RewardPoints uint64    `json:"reward_points"`
}

// Listing is a producer's offer. Units is the remaining quantity; a listing
// with zero units stays queryable but can no longer be bought from.
type Listing struct {
	ID           uint64    `json:"id"`
	Owner        Principal `json:"owner"`
	Units        uint64    `json:"units"`
	PricePerUnit uint64    `json:"price_per_unit"`
}

// Exhausted reports whether every unit has been sold.
func (l Listing) Exhausted() bool {
	return l.Units == 0
}

// Settlement is the value transfer a trade requests from the environment.
// The ledger records it but does not move funds.
type Settlement struct {
	From   Principal `json:"from"`
	To     Principal `json:"to"`
	Amount uint64    `json:"amount"`
}

// TradeSummary describes a committed purchase.
type TradeSummary struct {
	ListingID  uint64     `json:"listing_id"`
	Buyer      Principal  `json:"buyer"`
	Seller     Principal  `json:"seller"`
	Units      uint64     `json:"units"`
	PricePaid  uint64     `json:"price_paid"`
	Value      uint64     `json:"value"`
	Points     uint64     `json:"points"`
	NewPrice   uint64     `json:"new_price"`
	Listing    Listing    `json:"listing"`
	Settlement Settlement `json:"settlement"`
}

// State is a complete, ordered copy of the ledger's records. Producers and
// consumers are sorted by principal, listings by id.
type State struct {
	Producers     []Producer `json:"producers"`
	Consumers     []Consumer `json:"consumers"`
	Listings      []Listing  `json:"listings"`
	NextListingID uint64     `json:"next_listing_id"`
}
