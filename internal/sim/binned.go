package sim

import (
	"math/big"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

// BinArraySet is the frozen set of bin arrays a Binned simulation may read.
type BinArraySet struct {
	BinStep uint16
	Arrays  map[int64]*types.BinArray // keyed by array index
}

// FeeParams carries the Binned venue's composed-fee inputs: the base fee
// derived from binStep·baseFactor, plus the variable fee derived from the
// volatility accumulator.
type FeeParams struct {
	BinStep               uint16
	BaseFactor            uint16
	BaseFeePowerFactor    uint8
	ProtocolShareBps      uint16
	VariableFeeControl    uint32
	VolatilityAccumulator uint32
	MaxFeeBps             uint32 // venue-wide cap; 0 disables the cap
}

// GetBaseFeeBps computes the base fee component in basis points:
// baseFactor * binStep * 10 * 10^baseFeePowerFactor, matching the venue's
// documented base-fee formula.
func GetBaseFeeBps(baseFactor uint16, binStep uint16, baseFeePowerFactor uint8) uint64 {
	v := uint64(baseFactor) * uint64(binStep) * 10
	for i := uint8(0); i < baseFeePowerFactor; i++ {
		v *= 10
	}
	return v
}

// GetVariableFeeBps computes the variable fee component from the
// volatility accumulator: variableFeeControl * (volatilityAccumulator *
// binStep)^2, scaled down per the venue's documented divisor, then
// ceiling-divided into basis points.
func GetVariableFeeBps(variableFeeControl uint32, volatilityAccumulator uint32, binStep uint16) uint64 {
	if variableFeeControl == 0 || volatilityAccumulator == 0 {
		return 0
	}
	square := new(big.Int).Mul(
		big.NewInt(int64(volatilityAccumulator)*int64(binStep)),
		big.NewInt(int64(volatilityAccumulator)*int64(binStep)),
	)
	v := new(big.Int).Mul(square, big.NewInt(int64(variableFeeControl)))
	v.Add(v, big.NewInt(99_999_999_999))
	v.Quo(v, big.NewInt(100_000_000_000))
	return v.Uint64()
}

// GetTotalFeeBps composes base + variable fee, capped at maxFeeBps when
// maxFeeBps is non-zero. The decoder exposes the raw fee fields; this is
// where they get composed into one rate.
func GetTotalFeeBps(p FeeParams) uint64 {
	total := GetBaseFeeBps(p.BaseFactor, p.BinStep, p.BaseFeePowerFactor) + GetVariableFeeBps(p.VariableFeeControl, p.VolatilityAccumulator, p.BinStep)
	if p.MaxFeeBps > 0 && total > uint64(p.MaxFeeBps) {
		return uint64(p.MaxFeeBps)
	}
	return total
}

// qmul64 multiplies two Q64.64 fixed-point values, rescaling back to
// Q64.64 afterward.
func qmul64(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Rsh(p, 64)
}

// qpow64 raises a Q64.64 fixed-point base to the signed integer power n by
// exponentiation by squaring, inverting (q64² / result) for negative n.
func qpow64(base *big.Int, n int32) *big.Int {
	neg := n < 0
	if neg {
		n = -n
	}
	result := new(big.Int).Set(q64) // 1.0 in Q64.64
	b := new(big.Int).Set(base)
	for n > 0 {
		if n&1 == 1 {
			result = qmul64(result, b)
		}
		b = qmul64(b, b)
		n >>= 1
	}
	if neg {
		rec := new(big.Int).Mul(q64, q64)
		result = rec.Quo(rec, result)
	}
	return result
}

// binPriceQ64 returns (1 + binStep/10000)^binID in Q64.64 fixed point,
// entirely in integers: the base ratio is fixed-point exact, and
// exponentiation by squaring keeps every intermediate rescaled to Q64.64
// so magnitude never drifts. No floats on the swap path — the final
// output amounts below are derived from this integer price via
// qDivByPrice/qMulByPrice, not floating division.
func binPriceQ64(binID int32, binStep uint16) *big.Int {
	base := new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(int64(10000+binStep)), 64), big.NewInt(10000))
	return qpow64(base, binID)
}

// qDivByPrice computes floor(amount / price) for a Q64.64 price,
// saturating at the u64 ceiling rather than silently wrapping.
func qDivByPrice(amount uint64, priceQ64 *big.Int) uint64 {
	n := new(big.Int).Mul(new(big.Int).SetUint64(amount), q64)
	n.Quo(n, priceQ64)
	if !n.IsUint64() {
		return ^uint64(0)
	}
	return n.Uint64()
}

// qMulByPrice computes floor(amount * price) for a Q64.64 price,
// saturating at the u64 ceiling rather than silently wrapping.
func qMulByPrice(amount uint64, priceQ64 *big.Int) uint64 {
	n := new(big.Int).Mul(new(big.Int).SetUint64(amount), priceQ64)
	n.Quo(n, q64)
	if !n.IsUint64() {
		return ^uint64(0)
	}
	return n.Uint64()
}

// BinnedQuote is the outcome of a bin-walk simulation.
type BinnedQuote struct {
	AmountOut   uint64
	FeePaid     uint64
	NewActiveID int32
}

// BinnedExactInput walks bins starting at activeID in the direction of the
// swap (swapXForY moves id downward, swapYForX moves id upward), consuming each
// bin's available liquidity on the output side, applying the composed fee,
// and stepping until the input is exhausted or the next required bin array
// is absent from the frozen set.
func BinnedExactInput(
	activeID int32,
	swapXForY bool,
	amountIn uint64,
	fee FeeParams,
	arrays *BinArraySet,
) (BinnedQuote, error) {
	if amountIn == 0 {
		return BinnedQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero input amount")
	}
	feeBps := GetTotalFeeBps(fee)
	if feeBps >= bpsDenominator {
		return BinnedQuote{}, solerrors.New(solerrors.KindMathOverflow, "composed fee rate %d bps exceeds 100%%", feeBps)
	}
	remaining := new(big.Int).SetUint64(amountIn)
	var out big.Int
	var feeTotal big.Int
	id := activeID

	for i := 0; i < 10_000; i++ {
		if remaining.Sign() <= 0 {
			break
		}
		arrIdx := binArrayIndexFor(id)
		arr, ok := arrays.Arrays[arrIdx]
		if !ok {
			return BinnedQuote{}, solerrors.New(solerrors.KindMissingDependency, "missing_bin_array")
		}
		bin := arr.Bins[binIndexInArray(id)]

		var available uint64
		if swapXForY {
			available = bin.AmountY
		} else {
			available = bin.AmountX
		}
		if available == 0 {
			id = step(id, swapXForY)
			continue
		}

		price := binPriceQ64(id, fee.BinStep)
		var grossInForFull uint64
		if swapXForY {
			grossInForFull = qDivByPrice(available, price)
		} else {
			grossInForFull = qMulByPrice(available, price)
		}
		grossInForFull = grossFromNetU64(grossInForFull, feeBps)
		if grossInForFull == 0 {
			// rounding made the bin's liquidity free; skip it rather
			// than emit output for zero consumed input
			id = step(id, swapXForY)
			continue
		}

		if remaining.Cmp(new(big.Int).SetUint64(grossInForFull)) >= 0 {
			feeBig := new(big.Int).Mul(new(big.Int).SetUint64(grossInForFull), new(big.Int).SetUint64(feeBps))
			feeThisBin := feeBig.Quo(feeBig, big.NewInt(bpsDenominator)).Uint64()
			out.Add(&out, new(big.Int).SetUint64(available))
			feeTotal.Add(&feeTotal, new(big.Int).SetUint64(feeThisBin))
			remaining.Sub(remaining, new(big.Int).SetUint64(grossInForFull))
			id = step(id, swapXForY)
			continue
		}

		netBig := new(big.Int).Mul(remaining, new(big.Int).SetUint64(bpsDenominator-feeBps))
		netIn := netBig.Quo(netBig, big.NewInt(bpsDenominator)).Uint64()
		feeThisBin := remaining.Uint64() - netIn
		var outThisBin uint64
		if swapXForY {
			outThisBin = qMulByPrice(netIn, price)
		} else {
			outThisBin = qDivByPrice(netIn, price)
		}
		if outThisBin > available {
			outThisBin = available
		}
		out.Add(&out, new(big.Int).SetUint64(outThisBin))
		feeTotal.Add(&feeTotal, new(big.Int).SetUint64(feeThisBin))
		remaining.SetUint64(0)
	}

	if out.Sign() == 0 {
		return BinnedQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero output for positive input")
	}
	if !out.IsUint64() {
		return BinnedQuote{}, solerrors.New(solerrors.KindMathOverflow, "output exceeds u64")
	}

	return BinnedQuote{
		AmountOut:   out.Uint64(),
		FeePaid:     feeTotal.Uint64(),
		NewActiveID: id,
	}, nil
}

func grossFromNetU64(net uint64, feeBps uint64) uint64 {
	if feeBps >= bpsDenominator {
		return net
	}
	g := new(big.Int).Mul(new(big.Int).SetUint64(net), big.NewInt(bpsDenominator))
	g.Quo(g, big.NewInt(int64(bpsDenominator-feeBps)))
	return g.Uint64()
}

func step(id int32, swapXForY bool) int32 {
	if swapXForY {
		return id - 1
	}
	return id + 1
}

func binArrayIndexFor(binID int32) int64 {
	n := int64(types.BinsPerArray)
	idx := int64(binID) / n
	if int64(binID)%n < 0 {
		idx--
	}
	return idx
}

func binIndexInArray(binID int32) int32 {
	n := int32(types.BinsPerArray)
	idx := binID % n
	if idx < 0 {
		idx += n
	}
	return idx
}
