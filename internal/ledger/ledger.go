package ledger

import (
	"fmt"
	"sync"

	"github.com/roach88/gridsync/internal/policy"
)

// Ledger is the state-transition core: registry plus listing book, with the
// pricing and reward policies applied on every trade.
//
// Thread-safety: all methods are safe for concurrent use. Writes are
// serialized by an exclusive lock held across validation and commit.
type Ledger struct {
	mu       sync.RWMutex
	registry *registry
	book     *book
	pricing  policy.Pricing
	reward   policy.Reward
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPricing replaces the default pricing policy.
func WithPricing(p policy.Pricing) Option {
	return func(l *Ledger) {
		l.pricing = p
	}
}

// WithReward replaces the default reward policy.
func WithReward(r policy.Reward) Option {
	return func(l *Ledger) {
		l.reward = r
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		registry: newRegistry(),
		book:     newBook(),
		pricing:  policy.DefaultPricing(),
		reward:   policy.DefaultReward(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromState rebuilds a ledger from a snapshot, checking the structural
// invariants a snapshot must satisfy.
func FromState(s State, opts ...Option) (*Ledger, error) {
	l := New(opts...)

	for _, p := range s.Producers {
		if l.registry.registered(p.Principal) {
			return nil, fmt.Errorf("restore: principal %q registered twice", p.Principal)
		}
		rec := p
		l.registry.producers[p.Principal] = &rec
	}
	for _, c := range s.Consumers {
		if l.registry.registered(c.Principal) {
			return nil, fmt.Errorf("restore: principal %q registered twice", c.Principal)
		}
		rec := c
		l.registry.consumers[c.Principal] = &rec
	}

	next := s.NextListingID
	if next == 0 {
		next = 1
	}
	for _, ls := range s.Listings {
		if ls.ID == 0 || ls.ID >= next {
			return nil, fmt.Errorf("restore: listing id %d outside [1, %d)", ls.ID, next)
		}
		if _, dup := l.book.listings[ls.ID]; dup {
			return nil, fmt.Errorf("restore: listing id %d appears twice", ls.ID)
		}
		if _, ok := l.registry.producers[ls.Owner]; !ok {
			return nil, fmt.Errorf("restore: listing %d owner %q is not a producer", ls.ID, ls.Owner)
		}
		if ls.PricePerUnit == 0 {
			return nil, fmt.Errorf("restore: listing %d has zero price", ls.ID)
		}
		rec := ls
		l.book.listings[ls.ID] = &rec
	}
	l.book.nextID = next

	return l, nil
}

// Pricing returns the pricing policy in effect.
func (l *Ledger) Pricing() policy.Pricing {
	return l.pricing
}

// Reward returns the reward policy in effect.
func (l *Ledger) Reward() policy.Reward {
	return l.reward
}

// RegisterProducer creates a producer record for caller with zero counters.
// Fails with AlreadyRegistered when caller holds any record.
func (l *Ledger) RegisterProducer(caller Principal) (Producer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.registerProducer(caller)
}

// RegisterConsumer creates a consumer record for caller.
// Fails with AlreadyRegistered when caller holds any record.
func (l *Ledger) RegisterConsumer(caller Principal) (Consumer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.registerConsumer(caller)
}

// DeactivateProducer flips caller's producer record to inactive. Existing
// listings stay purchasable; new listings are refused.
func (l *Ledger) DeactivateProducer(caller Principal) (Producer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.deactivateProducer(caller)
}

// DeactivateConsumer flips caller's consumer record to inactive.
func (l *Ledger) DeactivateConsumer(caller Principal) (Consumer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.deactivateConsumer(caller)
}

// ListEnergyUnits offers units at price on behalf of owner and returns the
// new listing.
func (l *Ledger) ListEnergyUnits(owner Principal, units, price uint64) (Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.registry.activeProducer(owner); err != nil {
		return Listing{}, err
	}
	return l.book.add(owner, units, price)
}

// ProducerInfo returns a copy of p's producer record.
func (l *Ledger) ProducerInfo(p Principal) (Producer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.producer(p)
}

// ConsumerInfo returns a copy of p's consumer record.
func (l *Ledger) ConsumerInfo(p Principal) (Consumer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.consumer(p)
}

// Listing returns a copy of listing id.
func (l *Ledger) Listing(id uint64) (Listing, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.book.get(id)
}

// ListingsByOwner returns owner's listings ordered by id, exhausted ones
// included.
func (l *Ledger) ListingsByOwner(owner Principal) []Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.book.byOwner(owner)
}

// Snapshot returns an ordered copy of every record.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Producers:     l.registry.sortedProducers(),
		Consumers:     l.registry.sortedConsumers(),
		Listings:      l.book.sorted(),
		NextListingID: l.book.nextID,
	}
}
