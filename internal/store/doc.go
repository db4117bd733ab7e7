// Package store provides SQLite-backed durable storage for the gridsync
// journal and the materialized ledger state.
//
// The store keeps:
//   - Commands: every submitted command, keyed by logical seq
//   - Receipts: the outcome of each command, applied or rejected
//   - Producers, consumers, listings, meta: the ledger state after the
//     last committed command
//
// A command, its receipt and the records it changed are written in one SQL
// transaction, so the materialized state never runs ahead of the journal.
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Journal
// reads use ORDER BY seq ASC so replays see identical input.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Quantities are stored as INTEGER. The ledger bounds them to the int64
// range so they round-trip exactly.
package store
