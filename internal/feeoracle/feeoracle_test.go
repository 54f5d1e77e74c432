package feeoracle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

// Inverting cp.go's CPExactInput forward formula for these reserves and
// actualOut gives Δxₙ ≈ 9,950,130,668, an implied fee of ~50bps:
// Δxₙ = amountIn·(10000−feeBps), so 1,000,000·9950 ≈ 9.95e9.
func TestInferFeeBpsFromObservedSwap(t *testing.T) {
	bps, ok := InferFeeBps(1_000_000_000, 500_000_000, 1_000_000, 497_012)
	require.True(t, ok)
	require.InDelta(t, 50, int(bps), 1)
}

func TestOracleObserveSkipsBondingCurveRegion(t *testing.T) {
	o := New()
	var pool types.Pubkey
	pool[0] = 7
	_, learned := o.Observe(pool, types.DirAtoB, Observation{
		ReserveIn: 20_000_001, ReserveOut: 1, AmountIn: 1_000_000, ActualOut: 1,
	})
	require.False(t, learned)
	_, ok := o.Lookup(pool, types.DirAtoB)
	require.False(t, ok)
}

func TestOracleObserveSkipsDust(t *testing.T) {
	o := New()
	var pool types.Pubkey
	pool[0] = 8
	_, learned := o.Observe(pool, types.DirAtoB, Observation{
		ReserveIn: 1_000_000_000, ReserveOut: 500_000_000, AmountIn: 9_999, ActualOut: 4_970,
	})
	require.False(t, learned)
}

func TestOracleObserveCachesFirstInference(t *testing.T) {
	o := New()
	var pool types.Pubkey
	pool[0] = 9
	bps1, learned1 := o.Observe(pool, types.DirAtoB, Observation{
		ReserveIn: 1_000_000_000, ReserveOut: 500_000_000, AmountIn: 1_000_000, ActualOut: 497_012,
	})
	require.True(t, learned1)

	bps2, learned2 := o.Observe(pool, types.DirAtoB, Observation{
		ReserveIn: 2_000_000_000, ReserveOut: 900_000_000, AmountIn: 2_000_000, ActualOut: 800_000,
	})
	require.False(t, learned2)
	require.Equal(t, bps1, bps2)
}
