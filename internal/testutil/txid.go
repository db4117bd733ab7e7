package testutil

import (
	"fmt"
	"sync"
)

// SequentialTxGenerator generates predictable transaction ids:
// "<prefix>-000001", "<prefix>-000002", ...
//
// The same scenario with a fresh generator produces byte-identical
// receipts, which keeps golden traces stable. It never runs out.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTxGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTxGenerator creates a generator. An empty prefix means "tx".
func NewSequentialTxGenerator(prefix string) *SequentialTxGenerator {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.TxIDGenerator.
func (g *SequentialTxGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}
