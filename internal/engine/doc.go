// Package engine runs gridsync commands against the ledger and the journal.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every command is sequenced, applied and committed by one writer at a time.
// Execute serializes callers directly; Run drains a FIFO queue of submitted
// commands in one goroutine and answers each on its reply channel.
//
// Command Flow:
//  1. Command validated (kind, caller, journal range)
//  2. Stamped with the next seq from the logical Clock
//  3. Applied to the in-memory ledger (applied or rejected)
//  4. Command, receipt and changed records committed in one SQL transaction
//
// Rejections are journaled like applied commands. They carry the error code
// as the receipt case and leave the ledger unchanged.
//
// Logical Clock:
// All commands are stamped with a monotonic seq from Clock.Next().
// Wall-clock time is never used for ordering.
//
// Replay:
// Replay rebuilds a ledger from an empty state by re-applying the journal in
// seq order. VerifyReplay checks every receipt and the final state hash
// against what was stored; any divergence is a *ReplayMismatchError.
package engine
