package sim

import (
	"math/big"

	"lukechampine.com/uint128"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

// maxTickWalkIterations bounds the tick-walk loop, mirroring the upstream
// program's own safety cap.
const maxTickWalkIterations = 100

// q64 is the Q64.64 fixed-point scale used for sqrtPriceX64.
var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

// TickArraySet is the frozen, queryable set of tick arrays a Concentrated
// simulation may read: only arrays present in the pool's frozen topology,
// never a live cache lookup mid-simulation.
type TickArraySet struct {
	TickSpacing int32
	Arrays      map[int32]*types.TickArray // keyed by StartIndex
}

func arrayStartIndex(tick, spacing int32) int32 {
	ticksPerArray := int32(TicksPerArrayConstant)
	size := spacing * ticksPerArray
	if size == 0 {
		return 0
	}
	idx := tick / size
	if tick%size < 0 {
		idx--
	}
	return idx * size
}

// TicksPerArrayConstant mirrors the CLMM venue's fixed tick-array width.
const TicksPerArrayConstant = 60

// ConcentratedQuote is the outcome of a tick-walk simulation.
type ConcentratedQuote struct {
	AmountOut      uint64
	FeePaid        uint64
	NewSqrtPriceX64 uint128.Uint128
	NewTick        int32
	NewLiquidity   uint128.Uint128
}

// ConcentratedExactInput walks the tick space in the direction of the
// swap, applying the closed-form CLMM swap-within-range formulas on each
// step and crossing ticks (adjusting liquidity by liquidityNet) whenever a
// step consumes an entire range.
func ConcentratedExactInput(
	sqrtPriceX64 uint128.Uint128,
	liquidity uint128.Uint128,
	currentTick int32,
	spacing int32,
	zeroForOne bool,
	amountIn uint64,
	feeBps uint32,
	arrays *TickArraySet,
) (ConcentratedQuote, error) {
	if amountIn == 0 {
		return ConcentratedQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero input amount")
	}
	if liquidity.IsZero() {
		return ConcentratedQuote{}, solerrors.New(solerrors.KindInsufficientLiquidity, "zero liquidity at current tick")
	}

	price := sqrtPriceX64.Big()
	liq := liquidity.Big()
	remaining := new(big.Int).SetUint64(amountIn)
	var out big.Int
	var feeTotal big.Int
	tick := currentTick

	for i := 0; ; i++ {
		if i >= maxTickWalkIterations {
			return ConcentratedQuote{}, solerrors.New(solerrors.KindMathOverflow, "swap computation exceeded maximum iterations")
		}
		if remaining.Sign() <= 0 {
			break
		}

		startIdx := arrayStartIndex(tick, spacing)
		arr, ok := arrays.Arrays[startIdx]
		if !ok {
			return ConcentratedQuote{}, solerrors.New(solerrors.KindMissingDependency, "no_tick_array")
		}

		nextTick, nextState, found := findNextInitializedTick(arr, tick, spacing, zeroForOne)
		if !found {
			// no more initialized ticks within the frozen set; stop here
			break
		}

		targetPrice := tickToSqrtPriceX64(nextTick)

		stepOut, stepIn, stepFee, newPrice := swapStep(price, targetPrice, liq, remaining, feeBps, zeroForOne)
		out.Add(&out, stepOut)
		feeTotal.Add(&feeTotal, stepFee)
		remaining.Sub(remaining, new(big.Int).Add(stepIn, stepFee))
		price = newPrice

		if price.Cmp(targetPrice) == 0 {
			if nextState.Initialized {
				delta := nextState.LiquidityNet.BigInt()
				if zeroForOne {
					delta = new(big.Int).Neg(delta)
				}
				liq = new(big.Int).Add(liq, delta)
				if liq.Sign() < 0 {
					liq = big.NewInt(0)
				}
			}
			if zeroForOne {
				tick = nextTick - 1
			} else {
				tick = nextTick
			}
		} else {
			break // remaining consumed within this range
		}
	}

	if out.Sign() == 0 {
		return ConcentratedQuote{}, solerrors.New(solerrors.KindMathOverflow, "zero output for positive input")
	}
	if !out.IsUint64() {
		return ConcentratedQuote{}, solerrors.New(solerrors.KindMathOverflow, "output exceeds u64")
	}

	return ConcentratedQuote{
		AmountOut:       out.Uint64(),
		FeePaid:         feeTotal.Uint64(),
		NewSqrtPriceX64: uint128.FromBig(price),
		NewTick:         tick,
		NewLiquidity:    uint128.FromBig(liq),
	}, nil
}

// swapStep computes the closed-form CLMM swap within [priceCurrent,
// priceTarget] for the given liquidity and remaining input, returning
// (amountOut, amountInNet, feeAmount, newPrice).
func swapStep(priceCurrent, priceTarget, liquidity, amountRemaining *big.Int, feeBps uint32, zeroForOne bool) (*big.Int, *big.Int, *big.Int, *big.Int) {
	// amountRemaining is gross (includes fee); fee is deducted first.
	netRemaining := new(big.Int).Mul(amountRemaining, big.NewInt(int64(bpsDenominator-feeBps)))
	netRemaining.Quo(netRemaining, big.NewInt(bpsDenominator))

	var maxIn *big.Int
	if zeroForOne {
		maxIn = deltaX(liquidity, priceTarget, priceCurrent)
	} else {
		maxIn = deltaY(liquidity, priceCurrent, priceTarget)
	}

	if netRemaining.Cmp(maxIn) >= 0 {
		// fully consumes this range
		var out *big.Int
		if zeroForOne {
			out = deltaY(liquidity, priceTarget, priceCurrent)
		} else {
			out = deltaX(liquidity, priceCurrent, priceTarget)
		}
		// fee on a range-exhausting step is proportional to the consumed
		// input, not the whole remaining amount
		consumedGross := grossFromNet(maxIn, feeBps)
		fee := new(big.Int).Sub(consumedGross, maxIn)
		return out, maxIn, fee, new(big.Int).Set(priceTarget)
	}

	// partial step: solve for new price given netRemaining input
	var newPrice *big.Int
	if zeroForOne {
		newPrice = priceFromDeltaX(liquidity, priceCurrent, netRemaining)
	} else {
		newPrice = priceFromDeltaY(liquidity, priceCurrent, netRemaining)
	}
	var out *big.Int
	if zeroForOne {
		out = deltaY(liquidity, newPrice, priceCurrent)
	} else {
		out = deltaX(liquidity, priceCurrent, newPrice)
	}
	fee := new(big.Int).Sub(amountRemaining, netRemaining)
	return out, netRemaining, fee, newPrice
}

func grossFromNet(net *big.Int, feeBps uint32) *big.Int {
	if bpsDenominator == feeBps {
		return new(big.Int).Set(net)
	}
	g := new(big.Int).Mul(net, big.NewInt(bpsDenominator))
	g.Quo(g, big.NewInt(int64(bpsDenominator-feeBps)))
	return g
}

// deltaX = L * (1/priceLow - 1/priceHigh), i.e.
// L * (priceHigh - priceLow) * q64 / (priceLow * priceHigh).
func deltaX(liquidity, priceLow, priceHigh *big.Int) *big.Int {
	if priceLow.Sign() == 0 || priceHigh.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(liquidity, new(big.Int).Sub(priceHigh, priceLow))
	num.Mul(num, q64)
	denom := new(big.Int).Mul(priceLow, priceHigh)
	return num.Quo(num, denom)
}

// deltaY = L * (priceHigh - priceLow) / q64.
func deltaY(liquidity, priceLow, priceHigh *big.Int) *big.Int {
	d := new(big.Int).Sub(priceHigh, priceLow)
	if d.Sign() < 0 {
		d.Neg(d)
	}
	out := new(big.Int).Mul(liquidity, d)
	return out.Quo(out, q64)
}

// priceFromDeltaX solves for the new sqrt price after consuming dx of
// token0 starting at priceCurrent, price decreasing (zeroForOne).
func priceFromDeltaX(liquidity, priceCurrent, dx *big.Int) *big.Int {
	if dx.Sign() == 0 {
		return new(big.Int).Set(priceCurrent)
	}
	lq := new(big.Int).Mul(liquidity, q64)
	denom := new(big.Int).Add(lq, new(big.Int).Mul(dx, priceCurrent))
	if denom.Sign() == 0 {
		return new(big.Int).Set(priceCurrent)
	}
	num := new(big.Int).Mul(lq, priceCurrent)
	return num.Quo(num, denom)
}

// priceFromDeltaY solves for the new sqrt price after consuming dy of
// token1 starting at priceCurrent, price increasing.
func priceFromDeltaY(liquidity, priceCurrent, dy *big.Int) *big.Int {
	if liquidity.Sign() == 0 {
		return new(big.Int).Set(priceCurrent)
	}
	delta := new(big.Int).Mul(dy, q64)
	delta.Quo(delta, liquidity)
	return new(big.Int).Add(priceCurrent, delta)
}

// q128 is the Q0.128 scale used internally by tickToSqrtPriceX64 for extra
// precision ahead of the integer square root.
var q128 = new(big.Int).Lsh(big.NewInt(1), 128)

// oneTickUpQ128 and oneTickDownQ128 are 1.0001 and 1/1.0001 in Q0.128
// fixed point, the per-bit multiplier exponentiation-by-squaring applies.
var oneTickUpQ128 = new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(10001), 128), big.NewInt(10000))
var oneTickDownQ128 = new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(10000), 128), big.NewInt(10001))

// qmul128 multiplies two Q0.128 fixed-point values, rescaling back to
// Q0.128 afterward.
func qmul128(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Rsh(p, 128)
}

// qpow128 raises a Q0.128 fixed-point base to the integer power n via
// exponentiation by squaring, rescaling to Q0.128 after every multiply so
// intermediate magnitudes stay bounded regardless of n.
func qpow128(base *big.Int, n int32) *big.Int {
	result := new(big.Int).Set(q128) // 1.0 in Q0.128
	b := new(big.Int).Set(base)
	for n > 0 {
		if n&1 == 1 {
			result = qmul128(result, b)
		}
		b = qmul128(b, b)
		n >>= 1
	}
	return result
}

// tickToSqrtPriceX64 computes sqrtPriceX64 = sqrt(1.0001^tick) in Q64.64,
// entirely in integers: price = 1.0001^tick is raised in Q0.128 fixed point
// by repeated squaring, then big.Int.Sqrt takes its exact integer square
// root — since price is held at 2^128 scale, sqrt(price·2^128) is already
// sqrt(price)·2^64, the Q64.64 representation the tick walk needs. No
// floats anywhere in this path.
func tickToSqrtPriceX64(tick int32) *big.Int {
	n := tick
	base := oneTickUpQ128
	if n < 0 {
		n = -n
		base = oneTickDownQ128
	}
	ratioQ128 := qpow128(base, n)
	return new(big.Int).Sqrt(ratioQ128)
}

// findNextInitializedTick scans arr.Ticks (covering [arr.StartIndex,
// arr.StartIndex+spacing*TicksPerArrayConstant)) for the next initialized
// tick strictly past `from` in the direction of the swap.
func findNextInitializedTick(arr *types.TickArray, from int32, spacing int32, zeroForOne bool) (int32, types.TickState, bool) {
	if zeroForOne {
		for i := len(arr.Ticks) - 1; i >= 0; i-- {
			tickIdx := arr.StartIndex + int32(i)*spacing
			if tickIdx >= from {
				continue
			}
			if arr.Ticks[i].Initialized {
				return tickIdx, arr.Ticks[i], true
			}
		}
	} else {
		for i := 0; i < len(arr.Ticks); i++ {
			tickIdx := arr.StartIndex + int32(i)*spacing
			if tickIdx <= from {
				continue
			}
			if arr.Ticks[i].Initialized {
				return tickIdx, arr.Ticks[i], true
			}
		}
	}
	return 0, types.TickState{}, false
}
