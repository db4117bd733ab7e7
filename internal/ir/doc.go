// Package ir defines the records exchanged between the gridsync engine, its
// journal and its clients: commands, receipts and the constrained value
// model they are encoded with.
//
// This package imports nothing internal. Key constraints:
//   - NO float types anywhere; quantities are integers
//   - JSON tags use snake_case
//   - Ordering uses the logical seq, never wall-clock time
//   - Content hashes use RFC 8785 canonical JSON with domain separation
package ir
