package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 7, cfg.BoardWidth)
	require.Equal(t, 7, cfg.BoardHeight)
	require.Equal(t, OrderWithMustplay|OrderFromCenter, cfg.SolverMoveOrdering)
	require.True(t, cfg.SolverShrinkProofs)
	require.Equal(t, 1<<18, cfg.TtSize)
	require.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadEnvConfigOverrides(t *testing.T) {
	t.Cleanup(func() { configStore.Update(DefaultConfig()) })
	t.Setenv("HEXSOLVE_BOARD_WIDTH", "11")
	t.Setenv("HEXSOLVE_SHRINK_PROOFS", "false")
	t.Setenv("HEXSOLVE_LISTEN_ADDR", ":9999")
	t.Setenv("HEXSOLVE_TT_SIZE", "not-a-number")

	cfg := LoadEnvConfig()
	require.Equal(t, 11, cfg.BoardWidth)
	require.False(t, cfg.SolverShrinkProofs)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, DefaultConfig().TtSize, cfg.TtSize,
		"unparsable values fall back to the default")

	require.Equal(t, cfg, GetConfig(), "loading installs the global config")
}

func TestConfigStoreUpdate(t *testing.T) {
	original := GetConfig()
	t.Cleanup(func() { configStore.Update(original) })

	changed := original
	changed.BoardWidth = 9
	configStore.Update(changed)
	require.Equal(t, 9, GetConfig().BoardWidth)
}

func TestBuildersHonorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IceFindAllReversers = true
	cfg.BoardUseInference = false
	cfg.SolverUseDecomps = false
	cfg.SolverUsePriorOrder = false

	ice := NewICEngineFromConfig(cfg)
	require.True(t, ice.FindAllPatternReversers)
	require.True(t, ice.FindPresimplicialPairs)

	cb, err := NewConstBoard(cfg.BoardWidth, cfg.BoardHeight)
	require.NoError(t, err)
	h := NewHexBoardFromConfig(cfg, cb, ice)
	require.False(t, h.UseInference)
	require.True(t, h.UseConnections)

	s := NewSolverFromConfig(cfg)
	require.False(t, s.UseDecompositions)
	require.Equal(t, cfg.TtSize, s.Positions().TT.Capacity())
}
