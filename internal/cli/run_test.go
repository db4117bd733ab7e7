package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tradeBatch = `
steps:
  - {as: alice, do: register-producer}
  - {as: bob, do: register-consumer}
  - {as: alice, do: list-energy-units, units: 2000, price: 10}
  - {as: bob, do: buy-energy, listing: 1, units: 1500, expect: {case: ok}}
  - {as: carol, do: buy-energy, listing: 1, units: 1, expect: {case: NotRegistered}}
`

func TestRun_Batch(t *testing.T) {
	db := tempDB(t)
	batch := writeFile(t, "batch.yaml", tradeBatch)

	out := mustExecute(t, "run", batch, "--db", db)
	assert.Contains(t, out, "#4 bob buy-energy -> ok")
	assert.Contains(t, out, "#5 carol buy-energy -> NotRegistered")
	assert.Contains(t, out, "4 applied, 1 rejected")

	out = mustExecute(t, "query", "listing", "1", "--db", db)
	assert.Contains(t, out, `"price_per_unit":11`)
}

func TestRun_BatchJSON(t *testing.T) {
	batch := writeFile(t, "batch.yaml", tradeBatch)

	out := mustExecute(t, "run", batch, "--db", tempDB(t), "--format", "json")
	var result struct {
		Receipts []map[string]any `json:"receipts"`
		Applied  int              `json:"applied"`
		Rejected int              `json:"rejected"`
	}
	decodeData(t, out, &result)
	assert.Len(t, result.Receipts, 5)
	assert.Equal(t, 4, result.Applied)
	assert.Equal(t, 1, result.Rejected)
}

func TestRun_ExpectMismatchExitsOne(t *testing.T) {
	batch := writeFile(t, "batch.yaml", `
steps:
  - {as: alice, do: register-producer, expect: {case: NotRegistered}}
`)

	out, err := execute(t, "run", batch, "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `steps[0]: expected case "NotRegistered", got "ok"`)
}

func TestRun_InvalidBatch(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "steps: []\n"},
		{"unknown_field", "commands: []\n"},
		{"unknown_kind", "steps: [{as: a, do: mint}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := writeFile(t, "batch.yaml", tt.content)
			_, err := execute(t, "run", batch, "--db", tempDB(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid batch")
		})
	}
}

func TestRun_MalformedStepAborts(t *testing.T) {
	batch := writeFile(t, "batch.yaml", `
steps:
  - {as: alice, do: register-producer}
  - {as: "", do: register-consumer}
`)
	db := tempDB(t)

	_, err := execute(t, "run", batch, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "steps[1]")

	// The first step was committed before the abort.
	out := mustExecute(t, "trace", "--db", db)
	assert.Contains(t, out, "1 command(s)")
}

func TestLoadBatch_MissingFile(t *testing.T) {
	_, err := LoadBatch(t.TempDir() + "/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read batch file")
}
