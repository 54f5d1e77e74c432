package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestTickArrayWindowCentersOnCurrentTick(t *testing.T) {
	// spacing 60 -> 3600 ticks per array; tick 100 sits in [0, 3600).
	got := tickArrayWindow(100, 60)
	require.Equal(t, []int32{-7200, -3600, 0, 3600, 7200}, got)

	// Negative ticks floor toward the array below zero.
	got = tickArrayWindow(-1, 60)
	require.Equal(t, []int32{-10800, -7200, -3600, 0, 3600}, got)
}

func TestBinArrayWindowCentersOnActiveID(t *testing.T) {
	require.Equal(t, []int64{-2, -1, 0, 1, 2}, binArrayWindow(0))
	require.Equal(t, []int64{-3, -2, -1, 0, 1}, binArrayWindow(-types.BinsPerArray))
}

func TestBitmapHasSignedIndexes(t *testing.T) {
	var bitmap [16]uint64
	// Index 0 maps to bit 512 (word 8, bit 0); index -512 to bit 0.
	bitmap[8] = 1
	bitmap[0] = 1

	require.True(t, bitmapHas(bitmap, 0))
	require.True(t, bitmapHas(bitmap, -512))
	require.False(t, bitmapHas(bitmap, 1))
	require.False(t, bitmapHas(bitmap, 600))
	require.False(t, bitmapHas(bitmap, -600))
}

func TestDeriveDependenciesWindows(t *testing.T) {
	var cfg types.Pubkey
	cfg[0] = 1
	ps := &types.PoolState{
		Venue: types.VenueConcentrated,
		Concentrated: &types.ConcentratedPayload{
			AmmConfig:   cfg,
			TickSpacing: 10,
			CurrentTick: 650, // array size 600, center start 600
		},
	}
	_, _, tickIdx, binIdx, ammConfig, err := deriveDependencies(ps)
	require.NoError(t, err)
	require.Equal(t, []int32{-600, 0, 600, 1200, 1800}, tickIdx)
	require.Empty(t, binIdx)
	require.NotNil(t, ammConfig)
	require.Equal(t, cfg, *ammConfig)
}
