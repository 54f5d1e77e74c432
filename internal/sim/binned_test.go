package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

func singleBinArray(index int64, startBinID int32) *types.BinArray {
	return &types.BinArray{Index: index, StartBinID: startBinID}
}

func TestGetTotalFeeBpsAdditiveComposition(t *testing.T) {
	// base + variable, no cross-bin compounding.
	p := FeeParams{BinStep: 10, BaseFactor: 5000, BaseFeePowerFactor: 0, VariableFeeControl: 0}
	base := GetBaseFeeBps(p.BaseFactor, p.BinStep, p.BaseFeePowerFactor)
	require.Equal(t, base, GetTotalFeeBps(p))

	p.VariableFeeControl = 2_000_000
	p.VolatilityAccumulator = 1_000
	total := GetTotalFeeBps(p)
	variable := GetVariableFeeBps(p.VariableFeeControl, p.VolatilityAccumulator, p.BinStep)
	require.Equal(t, base+variable, total)
}

func TestGetTotalFeeBpsCapsAtMax(t *testing.T) {
	p := FeeParams{BinStep: 100, BaseFactor: 60000, BaseFeePowerFactor: 2, MaxFeeBps: 500}
	require.Equal(t, uint64(500), GetTotalFeeBps(p))
}

func TestBinnedExactInputPartialFillWithinBin(t *testing.T) {
	arr := singleBinArray(0, 0)
	arr.Bins[5] = types.Bin{AmountX: 0, AmountY: 500_000_000}
	arrays := &BinArraySet{BinStep: 10, Arrays: map[int64]*types.BinArray{0: arr}}
	fee := FeeParams{BinStep: 10, BaseFactor: 1, BaseFeePowerFactor: 0}

	q, err := BinnedExactInput(5, true, 10_000, fee, arrays)
	require.NoError(t, err)
	require.Greater(t, q.AmountOut, uint64(0))
	require.LessOrEqual(t, q.AmountOut, uint64(500_000_000))
	require.Greater(t, q.FeePaid, uint64(0))
	// A small input against deep bin liquidity should not cross out of
	// the starting bin.
	require.Equal(t, int32(5), q.NewActiveID)
}

func TestBinnedExactInputCrossesEmptyBins(t *testing.T) {
	arr := singleBinArray(0, 0)
	arr.Bins[5] = types.Bin{AmountY: 100} // tiny liquidity, forces a crossing
	arr.Bins[4] = types.Bin{AmountY: 500_000_000}
	arrays := &BinArraySet{BinStep: 10, Arrays: map[int64]*types.BinArray{0: arr}}
	fee := FeeParams{BinStep: 10, BaseFactor: 1, BaseFeePowerFactor: 0}

	// swapXForY walks id downward; bin 5's shallow liquidity forces a
	// crossing into bin 4.
	q, err := BinnedExactInput(5, true, 1_000_000, fee, arrays)
	require.NoError(t, err)
	require.Greater(t, q.AmountOut, uint64(0))
	require.LessOrEqual(t, q.NewActiveID, int32(5))
}

func TestBinnedExactInputMissingBinArray(t *testing.T) {
	arrays := &BinArraySet{BinStep: 10, Arrays: map[int64]*types.BinArray{}}
	fee := FeeParams{BinStep: 10, BaseFactor: 1}
	_, err := BinnedExactInput(5, true, 1_000, fee, arrays)
	require.Error(t, err)
	require.True(t, solerrors.Is(err, solerrors.KindMissingDependency))
}

func TestBinnedExactInputZeroAmount(t *testing.T) {
	arrays := &BinArraySet{BinStep: 10, Arrays: map[int64]*types.BinArray{}}
	fee := FeeParams{BinStep: 10, BaseFactor: 1}
	_, err := BinnedExactInput(5, true, 0, fee, arrays)
	require.Error(t, err)
	require.True(t, solerrors.Is(err, solerrors.KindMathOverflow))
}
