package ledger

import (
	"errors"
	"sort"

	"github.com/roach88/gridsync/internal/amount"
)

// registry tracks producer and consumer records. It is not safe for
// concurrent use on its own; Ledger serializes access.
type registry struct {
	producers map[Principal]*Producer
	consumers map[Principal]*Consumer
}

func newRegistry() *registry {
	return &registry{
		producers: make(map[Principal]*Producer),
		consumers: make(map[Principal]*Consumer),
	}
}

// registered reports whether p holds either kind of record.
func (r *registry) registered(p Principal) bool {
	_, isProducer := r.producers[p]
	_, isConsumer := r.consumers[p]
	return isProducer || isConsumer
}

func (r *registry) registerProducer(p Principal) (Producer, error) {
	if r.registered(p) {
		return Producer{}, reject(ErrAlreadyRegistered, p, 0)
	}
	rec := &Producer{Principal: p, Active: true}
	r.producers[p] = rec
	return *rec, nil
}

func (r *registry) registerConsumer(p Principal) (Consumer, error) {
	if r.registered(p) {
		return Consumer{}, reject(ErrAlreadyRegistered, p, 0)
	}
	rec := &Consumer{Principal: p, Active: true}
	r.consumers[p] = rec
	return *rec, nil
}

// activeProducer returns the record only when it exists and is active.
func (r *registry) activeProducer(p Principal) (*Producer, error) {
	rec, ok := r.producers[p]
	if !ok || !rec.Active {
		return nil, reject(ErrNotRegistered, p, 0)
	}
	return rec, nil
}

func (r *registry) activeConsumer(p Principal) (*Consumer, error) {
	rec, ok := r.consumers[p]
	if !ok || !rec.Active {
		return nil, reject(ErrNotRegistered, p, 0)
	}
	return rec, nil
}

func (r *registry) deactivateProducer(p Principal) (Producer, error) {
	rec, err := r.activeProducer(p)
	if err != nil {
		return Producer{}, err
	}
	rec.Active = false
	return *rec, nil
}

func (r *registry) deactivateConsumer(p Principal) (Consumer, error) {
	rec, err := r.activeConsumer(p)
	if err != nil {
		return Consumer{}, err
	}
	rec.Active = false
	return *rec, nil
}

// producerCredit computes the record a credit would produce without
// applying it.
func producerCredit(cur Producer, energy, earnings, points uint64) (Producer, error) {
	next := cur
	var err error
	if next.TotalEnergySold, err = amount.Add(cur.TotalEnergySold, energy); err != nil {
		return Producer{}, overflow(err, cur.Principal)
	}
	if next.Earnings, err = amount.Add(cur.Earnings, earnings); err != nil {
		return Producer{}, overflow(err, cur.Principal)
	}
	if next.RewardPoints, err = amount.Add(cur.RewardPoints, points); err != nil {
		return Producer{}, overflow(err, cur.Principal)
	}
	return next, nil
}

func consumerCredit(cur Consumer, points uint64) (Consumer, error) {
	next := cur
	var err error
	if next.RewardPoints, err = amount.Add(cur.RewardPoints, points); err != nil {
		return Consumer{}, overflow(err, cur.Principal)
	}
	return next, nil
}

// creditProducer stores a record computed by producerCredit.
func (r *registry) creditProducer(next Producer) {
	*r.producers[next.Principal] = next
}

func (r *registry) creditConsumer(next Consumer) {
	*r.consumers[next.Principal] = next
}

func (r *registry) producer(p Principal) (Producer, bool) {
	rec, ok := r.producers[p]
	if !ok {
		return Producer{}, false
	}
	return *rec, true
}

func (r *registry) consumer(p Principal) (Consumer, bool) {
	rec, ok := r.consumers[p]
	if !ok {
		return Consumer{}, false
	}
	return *rec, true
}

func (r *registry) sortedProducers() []Producer {
	out := make([]Producer, 0, len(r.producers))
	for _, rec := range r.producers {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal < out[j].Principal })
	return out
}

func (r *registry) sortedConsumers() []Consumer {
	out := make([]Consumer, 0, len(r.consumers))
	for _, rec := range r.consumers {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal < out[j].Principal })
	return out
}

// overflow maps an amount error onto the ledger taxonomy.
func overflow(err error, who Principal) error {
	if errors.Is(err, amount.ErrOverflow) {
		return reject(ErrOverflow, who, 0)
	}
	return err
}
