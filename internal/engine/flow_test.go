package engine

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridsync/internal/testutil"
)

var _ TxIDGenerator = (*testutil.SequentialTxGenerator)(nil)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	gen := UUIDv7Generator{}
	token := gen.Generate()

	assert.Len(t, token, 36)
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Uniqueness(t *testing.T) {
	gen := UUIDv7Generator{}
	const iterations = 1000

	tokens := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		token := gen.Generate()
		require.False(t, tokens[token], "token %s generated twice", token)
		tokens[token] = true
	}
}

func TestSequentialTxGenerator_DrivesReceipts(t *testing.T) {
	e, _ := newTestEngine(t)
	for i, cmd := range largeTradeCommands() {
		rec := mustExecute(t, e, cmd)
		assert.Equal(t, fmt.Sprintf("tx-%06d", i+1), rec.TxID)
	}
}
