package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type traceData struct {
	Entries []struct {
		Receipt struct {
			Seq    int64  `json:"seq"`
			TxID   string `json:"tx_id"`
			Caller string `json:"caller"`
			Case   string `json:"case"`
		} `json:"receipt"`
	} `json:"entries"`
	Total int `json:"total"`
}

func (d traceData) seqs() []int64 {
	out := make([]int64, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, e.Receipt.Seq)
	}
	return out
}

func TestTrace_All(t *testing.T) {
	db := tempDB(t)
	seedTrade(t, db)

	out := mustExecute(t, "trace", "--db", db)
	assert.Contains(t, out, "#1 alice register-producer -> ok")
	assert.Contains(t, out, "#4 bob buy-energy -> ok")
	assert.Contains(t, out, "4 command(s)")
}

func TestTrace_Filters(t *testing.T) {
	db := tempDB(t)
	seedTrade(t, db)

	tests := []struct {
		name string
		args []string
		want []int64
	}{
		{"seller_sees_trade", []string{"--principal", "alice"}, []int64{1, 3, 4}},
		{"buyer", []string{"--principal", "bob"}, []int64{2, 4}},
		{"listing", []string{"--listing", "1"}, []int64{3, 4}},
		{"combined", []string{"--principal", "bob", "--listing", "1"}, []int64{4}},
		{"no_match", []string{"--principal", "zed"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"trace", "--db", db, "--format", "json"}, tt.args...)
			var data traceData
			decodeData(t, mustExecute(t, args...), &data)
			assert.Equal(t, tt.want, data.seqs())
			assert.Equal(t, len(tt.want), data.Total)
		})
	}
}

func TestTrace_ByTxID(t *testing.T) {
	db := tempDB(t)
	seedTrade(t, db)

	var all traceData
	decodeData(t, mustExecute(t, "trace", "--db", db, "--format", "json"), &all)
	require.Len(t, all.Entries, 4)
	tx := all.Entries[2].Receipt.TxID

	var one traceData
	decodeData(t, mustExecute(t, "trace", "--db", db, "--tx", tx, "--format", "json"), &one)
	assert.Equal(t, []int64{3}, one.seqs())
}

func TestTrace_UnknownTxID(t *testing.T) {
	db := tempDB(t)
	seedTrade(t, db)

	out, err := execute(t, "trace", "--db", db, "--tx", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "tx nope not found")
}
