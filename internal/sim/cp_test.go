package sim

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	solerrors "github.com/aerofoil/solmev/internal/errors"
)

func TestCPExactInputFeeDeductedFromInput(t *testing.T) {
	const baseReserve = 3_000_000
	const quoteReserve = 9_000_000
	const amountIn = 555_555
	const feeBps = 25 // lpFeeBps=20 + protocolFeeBps=5

	q, err := CPExactInput(baseReserve, quoteReserve, amountIn, feeBps)
	require.NoError(t, err)

	wantFeePaid := uint64(amountIn * 25 / 10000)
	require.Equal(t, uint64(1388), wantFeePaid)
	require.Equal(t, wantFeePaid, q.FeePaid)

	wantNewBase := baseReserve + (amountIn - wantFeePaid)
	require.Equal(t, wantNewBase, q.NewReserveIn)
	require.Equal(t, quoteReserve-q.Out, q.NewReserveOut)

	dxn := new(big.Int).SetInt64(amountIn * (10000 - feeBps))
	numerator := new(big.Int).Mul(big.NewInt(quoteReserve), dxn)
	denom := new(big.Int).Add(new(big.Int).Mul(big.NewInt(baseReserve), big.NewInt(10000)), dxn)
	wantOut := new(big.Int).Quo(numerator, denom)
	require.Equal(t, wantOut.Uint64(), q.Out)
}

func TestCPExactInputInsufficientLiquidity(t *testing.T) {
	// With a positive reserveIn the formula keeps out strictly below
	// reserveOut, so an empty side is what reports insufficient liquidity.
	_, err := CPExactInput(100, 0, 1_000_000_000, 30)
	require.Error(t, err)
	require.True(t, solerrors.Is(err, solerrors.KindInsufficientLiquidity))
}

func TestCPExactOutputRoundTrip(t *testing.T) {
	// getAmountIn(out) -> dx must round up, so getAmountOut(dx) >= out.
	const reserveIn, reserveOut, feeBps = 1_000_000, 2_000_000, 30
	const wantOut = 50_000

	dx, err := CPExactOutput(reserveIn, reserveOut, wantOut, feeBps)
	require.NoError(t, err)

	q, err := CPExactInput(reserveIn, reserveOut, dx, feeBps)
	require.NoError(t, err)
	require.GreaterOrEqual(t, q.Out, uint64(wantOut))
}

func TestCPKInvariantNonDecrease(t *testing.T) {
	const reserveIn, reserveOut, feeBps = 5_000_000, 8_000_000, 30
	for _, amt := range []uint64{1_000, 50_000, 1_000_000} {
		q, err := CPExactInput(reserveIn, reserveOut, amt, feeBps)
		require.NoError(t, err)
		kBefore := new(big.Int).Mul(big.NewInt(reserveIn), big.NewInt(reserveOut))
		kAfter := new(big.Int).Mul(new(big.Int).SetUint64(q.NewReserveIn), new(big.Int).SetUint64(q.NewReserveOut))
		require.True(t, kAfter.Cmp(kBefore) >= 0, "k must not decrease: before=%s after=%s", kBefore, kAfter)
	}
}
