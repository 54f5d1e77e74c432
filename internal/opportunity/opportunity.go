// Package opportunity implements the candidate ladder search, profit
// arithmetic, and rejection taxonomy for a backrun opportunity.
package opportunity

import (
	"errors"

	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/types"
)

// RejectReason is the fixed taxonomy emitted at every decision point.
type RejectReason string

const (
	RejectMissingTopology       RejectReason = "MissingTopology"
	RejectMissingReserves       RejectReason = "MissingReserves"
	RejectStaleData             RejectReason = "StaleData"
	RejectNoPool                RejectReason = "NoPool"
	RejectNoSpread              RejectReason = "NoSpread"
	RejectBelowThreshold        RejectReason = "BelowThreshold"
	RejectSimFailure            RejectReason = "SimFailure"
	RejectBondingCurve          RejectReason = "BondingCurve"
	RejectDustInput             RejectReason = "DustInput"
	RejectWeirdFlow             RejectReason = "WeirdFlow"
	RejectEmptyPool             RejectReason = "EmptyPool"
	RejectSlippageExceeded      RejectReason = "SlippageExceeded"
	RejectInsufficientLiquidity RejectReason = "InsufficientLiquidity"
	RejectMathOverflow          RejectReason = "MathOverflow"
	RejectUnknown               RejectReason = "Unknown"
)

// Ladder is the declared candidate input sizes, in the venue's quote unit
// (lamports for SOL-quoted pools): 0.01, 0.05, 0.1, 0.25, 0.5, and 1.0 SOL.
var Ladder = []uint64{
	10_000_000,    // 0.01 SOL
	50_000_000,    // 0.05 SOL
	100_000_000,   // 0.1 SOL
	250_000_000,   // 0.25 SOL
	500_000_000,   // 0.5 SOL
	1_000_000_000, // 1.0 SOL
}

// ReasonFromError maps a simulation error's kind onto the rejection
// taxonomy, so each decision point reports the specific failure instead
// of collapsing everything into SimFailure.
func ReasonFromError(err error) RejectReason {
	var se *solerrors.Error
	if !errors.As(err, &se) {
		return RejectSimFailure
	}
	switch se.Kind {
	case solerrors.KindSlippage:
		return RejectSlippageExceeded
	case solerrors.KindInsufficientLiquidity:
		return RejectInsufficientLiquidity
	case solerrors.KindMathOverflow:
		return RejectMathOverflow
	case solerrors.KindBondingCurve:
		return RejectBondingCurve
	case solerrors.KindStale, solerrors.KindConvergenceFailed:
		return RejectStaleData
	case solerrors.KindMissingDependency:
		return RejectMissingTopology
	case solerrors.KindDecodeFailed:
		return RejectSimFailure
	default:
		return RejectUnknown
	}
}

// SwapSimFunc simulates one swap leg against a given pool and direction,
// returning the output amount.
type SwapSimFunc func(pool types.Pubkey, direction types.Direction, amountIn uint64) (amountOut uint64, err error)

// Candidate is one ladder entry's evaluated result.
type Candidate struct {
	InputAmount  uint64
	Intermediate uint64
	FinalAmount  uint64
	GrossProfit  int64 // final - input, may be negative
}

// Result is the outcome of an opportunity scan for one victim leg.
type Result struct {
	Accepted     bool
	Reject       RejectReason
	Best         Candidate
	GasCost      uint64
	Tip          uint64
	NetProfit    int64
	MinOutIn     uint64 // minOut for our entry leg after slippage
	MinOutExit   uint64 // minOut for our exit leg after slippage
}

// GasCost computes gasCost = computeUnitLimit · computeUnitPrice /
// 1_000_000 (computeUnitPrice is in micro-lamports per compute unit).
func GasCost(computeUnitLimit uint64, computeUnitPriceMicroLamports uint64) uint64 {
	return computeUnitLimit * computeUnitPriceMicroLamports / 1_000_000
}

// ApplySlippage computes minOut_i = expectedOut_i · (10000 − slippageBps)
// / 10000.
func ApplySlippage(expectedOut uint64, slippageBps uint32) uint64 {
	if slippageBps >= 10000 {
		return 0
	}
	return expectedOut * uint64(10000-slippageBps) / 10000
}

// Scan searches the candidate ladder for the size maximizing gross profit,
// given a victim's direction, then evaluates gas/tip/net profit and slippage
// floors. enterSim simulates our entry swap (opposite victim direction) on
// the post-victim pool state; exitSim simulates our exit swap (same
// direction as victim) on the resulting state.
func Scan(victimDirection types.Direction, enterSim, exitSim SwapSimFunc, pool types.Pubkey, gasCost, tip uint64, minProfitThreshold int64, slippageBps uint32) Result {
	enterDir := opposite(victimDirection)

	var best Candidate
	haveBest := false
	var lastErr error

	for _, c := range Ladder {
		intermediate, err := enterSim(pool, enterDir, c)
		if err != nil {
			lastErr = err
			continue
		}
		if intermediate == 0 {
			continue
		}
		final, err := exitSim(pool, victimDirection, intermediate)
		if err != nil {
			lastErr = err
			continue
		}
		gross := int64(final) - int64(c)
		if !haveBest || gross > best.GrossProfit {
			best = Candidate{InputAmount: c, Intermediate: intermediate, FinalAmount: final, GrossProfit: gross}
			haveBest = true
		}
	}

	if !haveBest {
		if lastErr != nil {
			return Result{Accepted: false, Reject: ReasonFromError(lastErr)}
		}
		return Result{Accepted: false, Reject: RejectSimFailure}
	}

	if best.GrossProfit <= 0 {
		return Result{Accepted: false, Reject: RejectNoSpread, Best: best, GasCost: gasCost, Tip: tip, NetProfit: best.GrossProfit - int64(gasCost) - int64(tip)}
	}

	net := best.GrossProfit - int64(gasCost) - int64(tip)
	if net < minProfitThreshold {
		return Result{Accepted: false, Reject: RejectBelowThreshold, Best: best, GasCost: gasCost, Tip: tip, NetProfit: net}
	}

	return Result{
		Accepted:   true,
		Best:       best,
		GasCost:    gasCost,
		Tip:        tip,
		NetProfit:  net,
		MinOutIn:   ApplySlippage(best.Intermediate, slippageBps),
		MinOutExit: ApplySlippage(best.FinalAmount, slippageBps),
	}
}

func opposite(d types.Direction) types.Direction {
	if d == types.DirAtoB {
		return types.DirBtoA
	}
	return types.DirAtoB
}
