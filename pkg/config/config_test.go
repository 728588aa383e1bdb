package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arbcore/pkg/state"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoad_OverridesLayerOnTopOfDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbcore.yaml")
	contents := []byte(`
calculator:
  min_roi_percent: 0.75
  include_orderbook_venues: false
state:
  kind: lockmap
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Calculator.MinROIPercent)
	assert.False(t, cfg.Calculator.IncludeOrderbookVenues)
	assert.Equal(t, state.KindLockMap, cfg.StateKind())
	// Untouched defaults survive the overlay.
	assert.Equal(t, Default().Calculator.BFSMaxHops, cfg.Calculator.BFSMaxHops)
}

func TestDefault_StateKindFallsBackToShardedMap(t *testing.T) {
	cfg := Default()
	assert.Equal(t, state.KindShardedMap, cfg.StateKind())
}

func TestToCalculatorConfig_RoundTripsFields(t *testing.T) {
	cfg := Default()
	calcCfg := cfg.ToCalculatorConfig()
	assert.Equal(t, cfg.Calculator.MinROIPercent, calcCfg.MinROIPercent)
	assert.Equal(t, cfg.Calculator.BFSMaxHops, calcCfg.BFSMaxHops)
	assert.Equal(t, cfg.Calculator.IncludeOrderbookVenues, calcCfg.IncludeOrderbookVenues)
}
