// Package sim is the simulation kernel: exact integer swap math for all
// four venue families plus the multi-hop composer. No floats anywhere on
// the swap path — every amount is lamports/raw-token-units, and fee
// arithmetic stays in basis points.
package sim

import (
	"math/big"

	solerrors "github.com/aerofoil/solmev/internal/errors"
)

// CPQuote is the result of one constant-product swap simulation.
type CPQuote struct {
	Out            uint64
	FeePaid        uint64
	NewReserveIn   uint64
	NewReserveOut  uint64
	PriceImpactBps uint32
}

const bpsDenominator = 10000

// CPExactInput runs the constant-product engine for an exact-input swap:
//
//	Δxₙ = amountIn · (10000 − feeBps)
//	out = (reserveOut · Δxₙ) / (reserveIn · 10000 + Δxₙ)
//	feePaid = floor(amountIn · feeBps / 10000)
//	newReserveIn = reserveIn + (amountIn − feePaid)
//	newReserveOut = reserveOut − out
func CPExactInput(reserveIn, reserveOut, amountIn uint64, feeBps uint32) (CPQuote, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return CPQuote{}, solerrors.New(solerrors.KindInsufficientLiquidity, "empty pool")
	}
	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)
	aIn := new(big.Int).SetUint64(amountIn)
	fee := big.NewInt(int64(feeBps))
	denom := big.NewInt(bpsDenominator)

	dxn := new(big.Int).Mul(aIn, new(big.Int).Sub(denom, fee)) // Δxₙ

	numerator := new(big.Int).Mul(rOut, dxn)
	denomTerm := new(big.Int).Add(new(big.Int).Mul(rIn, denom), dxn)
	if denomTerm.Sign() == 0 {
		return CPQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero denominator")
	}
	out := new(big.Int).Quo(numerator, denomTerm)

	if out.Cmp(rOut) >= 0 {
		return CPQuote{}, solerrors.New(solerrors.KindInsufficientLiquidity, "output would exceed reserve")
	}
	if out.Sign() == 0 && amountIn > 0 {
		return CPQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero output for positive input")
	}

	feePaid := amountIn * uint64(feeBps) / bpsDenominator
	newReserveIn := reserveIn + (amountIn - feePaid)
	newReserveOut := reserveOut - out.Uint64()

	impact := priceImpactBps(rIn, rOut, new(big.Int).Quo(dxn, denom), out)

	return CPQuote{
		Out:            out.Uint64(),
		FeePaid:        feePaid,
		NewReserveIn:   newReserveIn,
		NewReserveOut:  newReserveOut,
		PriceImpactBps: impact,
	}, nil
}

// CPExactOutput runs the constant-product engine's exact-output (ceiling) formula:
//
//	Δx = reserveIn · Δy · 10000 / ((reserveOut − Δy)(10000 − feeBps)) + 1
func CPExactOutput(reserveIn, reserveOut, amountOut uint64, feeBps uint32) (uint64, error) {
	if amountOut >= reserveOut {
		return 0, solerrors.New(solerrors.KindInsufficientLiquidity, "requested output exceeds reserve")
	}
	rIn := new(big.Int).SetUint64(reserveIn)
	dy := new(big.Int).SetUint64(amountOut)
	rOutMinusDy := new(big.Int).Sub(new(big.Int).SetUint64(reserveOut), dy)
	denom := new(big.Int).Mul(rOutMinusDy, big.NewInt(int64(bpsDenominator-feeBps)))
	if denom.Sign() <= 0 {
		return 0, solerrors.New(solerrors.KindMathOverflow, "non-positive denominator")
	}
	numerator := new(big.Int).Mul(rIn, new(big.Int).Mul(dy, big.NewInt(bpsDenominator)))
	dx := new(big.Int).Quo(numerator, denom)
	dx.Add(dx, big.NewInt(1)) // ceiling
	return dx.Uint64(), nil
}

// priceImpactBps approximates the swap's price impact in basis points:
// the relative gap between the executed price (out per net input unit)
// and the pre-trade spot price (reserveOut per reserveIn).
func priceImpactBps(reserveIn, reserveOut, amountInNet, out *big.Int) uint32 {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 || amountInNet.Sign() == 0 {
		return 0
	}
	spot := new(big.Int).Mul(out, reserveIn)
	exec := new(big.Int).Mul(amountInNet, reserveOut)
	if exec.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(exec, spot)
	if diff.Sign() < 0 {
		diff.Neg(diff)
	}
	diff.Mul(diff, big.NewInt(bpsDenominator))
	ratio := new(big.Int).Quo(diff, exec)
	if !ratio.IsUint64() {
		return ^uint32(0)
	}
	v := ratio.Uint64()
	if v > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}
