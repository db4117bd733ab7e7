// Package ledger implements the energy trading state-transition core.
//
// The ledger owns two record sets: the participant registry (producers and
// consumers) and the listing book. Every write operation validates against
// the current records, computes the complete set of post-commit values with
// checked arithmetic, and only then mutates. A rejection therefore leaves the
// ledger bit-for-bit unchanged.
//
// # Operations
//
// Writes: RegisterProducer, RegisterConsumer, DeactivateProducer,
// DeactivateConsumer, ListEnergyUnits, BuyEnergy.
//
// Reads: ProducerInfo, ConsumerInfo, Listing, ListingsByOwner, Snapshot.
//
// # Concurrency
//
// Reads share an RWMutex; each write holds it exclusively for its whole
// validate-then-commit step. The ledger starts no goroutines and never
// retries. Ordering between writes belongs to the caller (see package
// engine).
//
// # Determinism
//
// Given the same sequence of operations and the same policies, the ledger
// always reaches the same State. Snapshot returns records in sorted order so
// the state can be hashed and compared across replays.
package ledger
