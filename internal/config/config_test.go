package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/policy"
)

func TestLoadString_Empty(t *testing.T) {
	p, err := LoadString(``)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadString_Overrides(t *testing.T) {
	p, err := LoadString(`
pricing: {
	large_trade_percent: 50
	increase_percent:    20
}
reward: percent: 10
`)
	require.NoError(t, err)

	assert.Equal(t, policy.Pricing{LargeTradePercent: 50, LargeTradeMinUnits: 0, IncreasePercent: 20}, p.Pricing)
	assert.Equal(t, policy.Reward{Percent: 10}, p.Reward)
}

func TestLoadString_PartialKeepsDefaults(t *testing.T) {
	p, err := LoadString(`pricing: large_trade_min_units: 100`)
	require.NoError(t, err)

	assert.Equal(t, uint64(75), p.Pricing.LargeTradePercent)
	assert.Equal(t, uint64(100), p.Pricing.LargeTradeMinUnits)
	assert.Equal(t, uint64(10), p.Pricing.IncreasePercent)
	assert.Equal(t, uint64(5), p.Reward.Percent)
}

func TestLoadString_Rejects(t *testing.T) {
	tests := map[string]string{
		"percent zero":        `pricing: large_trade_percent: 0`,
		"percent above 100":   `pricing: large_trade_percent: 101`,
		"increase above 1000": `pricing: increase_percent: 1001`,
		"negative min units":  `pricing: large_trade_min_units: -1`,
		"reward above 100":    `reward: percent: 101`,
		"float":               `reward: percent: 2.5`,
		"string":              `reward: percent: "5"`,
		"unknown field":       `pricing: surge: 3`,
		"unknown section":     `fees: flat: 1`,
		"syntax error":        `pricing: {`,
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadString(src)
			require.Error(t, err)
			var ce *Error
			assert.True(t, errors.As(err, &ce), "want *config.Error, got %T: %v", err, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridsync.cue")
	require.NoError(t, os.WriteFile(path, []byte("pricing: increase_percent: 25\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), p.Pricing.IncreasePercent)
}

func TestLoad_ErrorCarriesPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("reward: {\n\tpercent: 500\n}\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "percent")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestLedgerOptions(t *testing.T) {
	p := Default()
	p.Pricing.IncreasePercent = 30
	p.Reward.Percent = 1

	l := ledger.New(p.LedgerOptions()...)
	assert.Equal(t, p.Pricing, l.Pricing())
	assert.Equal(t, p.Reward, l.Reward())
}
