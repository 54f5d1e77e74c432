package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

func singleTickArray(startIndex int32, spacing int32, initializedLocalIdx int) *types.TickArray {
	ticks := make([]types.TickState, TicksPerArrayConstant)
	ticks[initializedLocalIdx] = types.TickState{Initialized: true}
	return &types.TickArray{Pool: types.Pubkey{}, StartIndex: startIndex, Ticks: ticks}
}

func TestConcentratedExactInputPartialStepWithinRange(t *testing.T) {
	spacing := int32(60)
	// One initialized boundary far to the right (index 59 -> tick 59*60=3540)
	// so the walk has somewhere to target without actually reaching it.
	arr := singleTickArray(0, spacing, 59)
	arrays := &TickArraySet{TickSpacing: spacing, Arrays: map[int32]*types.TickArray{0: arr}}

	sqrtPrice := uint128.New(0, 1) // 1.0 in Q64.64 (2^64), tick 0
	liquidity := uint128.From64(1_000_000_000)

	q, err := ConcentratedExactInput(sqrtPrice, liquidity, 0, spacing, false, 1_000_000, 30, arrays)
	require.NoError(t, err)
	require.Greater(t, q.AmountOut, uint64(0))
	require.Greater(t, q.FeePaid, uint64(0))
	// price increasing (zeroForOne=false): new sqrt price must be >= old.
	require.True(t, q.NewSqrtPriceX64.Big().Cmp(sqrtPrice.Big()) >= 0)
	// partial step: a modest input shouldn't reach the only initialized
	// tick boundary 3540 ticks away, so the walk stays at tick 0.
	require.Equal(t, int32(0), q.NewTick)
}

func TestConcentratedExactInputZeroLiquidity(t *testing.T) {
	spacing := int32(60)
	arrays := &TickArraySet{TickSpacing: spacing, Arrays: map[int32]*types.TickArray{}}
	_, err := ConcentratedExactInput(uint128.New(0, 1), uint128.Zero, 0, spacing, false, 100, 30, arrays)
	require.Error(t, err)
	require.True(t, solerrors.Is(err, solerrors.KindInsufficientLiquidity))
}

func TestConcentratedExactInputMissingTickArray(t *testing.T) {
	spacing := int32(60)
	arrays := &TickArraySet{TickSpacing: spacing, Arrays: map[int32]*types.TickArray{}}
	_, err := ConcentratedExactInput(uint128.New(0, 1), uint128.From64(1_000_000), 0, spacing, false, 100, 30, arrays)
	require.Error(t, err)
	require.True(t, solerrors.Is(err, solerrors.KindMissingDependency))
}

func TestTickToSqrtPriceX64AtZeroIsUnity(t *testing.T) {
	got := tickToSqrtPriceX64(0)
	require.Equal(t, q64.String(), got.String())
}

func TestTickToSqrtPriceX64MonotoneIncreasing(t *testing.T) {
	p0 := tickToSqrtPriceX64(0)
	p1 := tickToSqrtPriceX64(60)
	pNeg := tickToSqrtPriceX64(-60)
	require.True(t, p1.Cmp(p0) > 0)
	require.True(t, pNeg.Cmp(p0) < 0)
}
