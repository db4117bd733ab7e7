package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialTxGenerator_Sequence(t *testing.T) {
	gen := NewSequentialTxGenerator("scn")

	assert.Equal(t, "scn-000001", gen.Generate())
	assert.Equal(t, "scn-000002", gen.Generate())
	assert.Equal(t, "scn-000003", gen.Generate())
}

func TestSequentialTxGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequentialTxGenerator("")
	assert.Equal(t, "tx-000001", gen.Generate())
}

func TestSequentialTxGenerator_FreshGeneratorsAgree(t *testing.T) {
	a := NewSequentialTxGenerator("tx")
	b := NewSequentialTxGenerator("tx")
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestSequentialTxGenerator_Concurrent(t *testing.T) {
	gen := NewSequentialTxGenerator("tx")
	const n = 100

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
