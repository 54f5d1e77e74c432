package opportunity

import (
	"testing"

	"github.com/stretchr/testify/require"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

func TestGasCost(t *testing.T) {
	require.Equal(t, uint64(200), GasCost(200_000, 1_000))
}

func TestApplySlippage(t *testing.T) {
	require.Equal(t, uint64(9950), ApplySlippage(10_000, 50))
	require.Equal(t, uint64(0), ApplySlippage(10_000, 10000))
}

func TestScanPicksBestAndAccepts(t *testing.T) {
	var pool types.Pubkey
	pool[0] = 1

	enter := func(_ types.Pubkey, _ types.Direction, amountIn uint64) (uint64, error) {
		return amountIn * 2, nil // intermediate doubles
	}
	exit := func(_ types.Pubkey, _ types.Direction, amountIn uint64) (uint64, error) {
		// final grows slightly beyond 2x input, profit scales with size
		return amountIn + amountIn/100, nil
	}

	res := Scan(types.DirAtoB, enter, exit, pool, 1000, 500, 0, 50)
	require.True(t, res.Accepted)
	require.Equal(t, uint64(1_000_000_000), res.Best.InputAmount)
}

func TestScanRejectsBelowThreshold(t *testing.T) {
	var pool types.Pubkey
	pool[0] = 2

	enter := func(_ types.Pubkey, _ types.Direction, amountIn uint64) (uint64, error) {
		return amountIn, nil
	}
	exit := func(_ types.Pubkey, _ types.Direction, amountIn uint64) (uint64, error) {
		return amountIn + 1, nil // positive but tiny gross profit
	}

	res := Scan(types.DirAtoB, enter, exit, pool, 100, 0, 1, 50)
	require.False(t, res.Accepted)
	require.Equal(t, RejectBelowThreshold, res.Reject)
}

func TestScanRejectsNoSpread(t *testing.T) {
	var pool types.Pubkey
	pool[0] = 4

	identity := func(_ types.Pubkey, _ types.Direction, amountIn uint64) (uint64, error) {
		return amountIn, nil // zero gross profit on every candidate
	}

	res := Scan(types.DirAtoB, identity, identity, pool, 100, 0, 1, 50)
	require.False(t, res.Accepted)
	require.Equal(t, RejectNoSpread, res.Reject)
}

func TestScanSimFailureWhenAllCandidatesError(t *testing.T) {
	var pool types.Pubkey
	pool[0] = 3

	failing := func(_ types.Pubkey, _ types.Direction, _ uint64) (uint64, error) {
		return 0, errShort
	}
	res := Scan(types.DirAtoB, failing, failing, pool, 0, 0, 0, 50)
	require.False(t, res.Accepted)
	require.Equal(t, RejectSimFailure, res.Reject)
}

func TestScanCarriesSimErrorKind(t *testing.T) {
	var pool types.Pubkey
	pool[0] = 5

	drained := func(_ types.Pubkey, _ types.Direction, _ uint64) (uint64, error) {
		return 0, solerrors.New(solerrors.KindInsufficientLiquidity, "output would exceed reserve")
	}
	res := Scan(types.DirAtoB, drained, drained, pool, 0, 0, 0, 50)
	require.False(t, res.Accepted)
	require.Equal(t, RejectInsufficientLiquidity, res.Reject)
}

func TestReasonFromError(t *testing.T) {
	cases := []struct {
		err  error
		want RejectReason
	}{
		{solerrors.New(solerrors.KindInsufficientLiquidity, "x"), RejectInsufficientLiquidity},
		{solerrors.New(solerrors.KindMathOverflow, "x"), RejectMathOverflow},
		{solerrors.New(solerrors.KindSlippage, "x"), RejectSlippageExceeded},
		{solerrors.New(solerrors.KindBondingCurve, "x"), RejectBondingCurve},
		{solerrors.New(solerrors.KindStale, "x"), RejectStaleData},
		{solerrors.New(solerrors.KindMissingDependency, "no_tick_array"), RejectMissingTopology},
		{solerrors.New(solerrors.KindNoCounterpart, "x"), RejectUnknown},
		{errShort, RejectSimFailure},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ReasonFromError(c.err), "for %v", c.err)
	}
}

var errShort = simErr("sim failed")

type simErr string

func (e simErr) Error() string { return string(e) }
