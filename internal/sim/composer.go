// Composer threads output->input across a sequence of swap legs. It keeps
// no pool state and makes no scratch copy of reserves: each leg is quoted
// through the caller's QuoteFunc against whatever reserves that function
// reads.
package sim

import (
	"fmt"

	"github.com/aerofoil/solmev/internal/types"
)

// LegResult is one hop's simulated outcome within a composed path.
type LegResult struct {
	Leg    types.SwapLeg
	Output uint64
	Fee    uint64
}

// PathResult is the outcome of composing a full multi-hop path.
type PathResult struct {
	Valid     bool
	Error     string
	Legs      []LegResult
	NetOutput int64 // signed: for circular paths, netOutput - netInput in starting-mint units
	Circular  bool
}

var zeroMint types.Pubkey

// ValidatePath checks leg-to-leg token continuity and rejects placeholder
// mints (all-zero) before a path is composed.
func ValidatePath(legs []types.SwapLeg) (circular bool, err error) {
	if len(legs) == 0 {
		return false, fmt.Errorf("empty path")
	}
	for i, leg := range legs {
		if leg.InputMint == zeroMint || leg.OutputMint == zeroMint {
			return false, fmt.Errorf("placeholder mint at leg %d", i)
		}
		if i > 0 && legs[i-1].OutputMint != leg.InputMint {
			return false, fmt.Errorf("Token discontinuity at leg %d", i-1)
		}
	}
	circular = legs[0].InputMint == legs[len(legs)-1].OutputMint
	return circular, nil
}

// QuoteFunc simulates a single leg against a caller-supplied reserve
// snapshot and returns the output amount and fee paid. The composer
// provides the threaded input amount; the quoter is responsible for
// reading the right reserves for leg.Pool.
type QuoteFunc func(leg types.SwapLeg, inputAmount uint64) (output uint64, fee uint64, err error)

// ComposePath executes legs in sequence, threading output_i into
// input_{i+1}. The first leg's InputAmount is the path's entry amount.
func ComposePath(legs []types.SwapLeg, quote QuoteFunc) PathResult {
	circular, err := ValidatePath(legs)
	if err != nil {
		return PathResult{Valid: false, Error: err.Error()}
	}

	results := make([]LegResult, 0, len(legs))
	amount := legs[0].InputAmount
	startAmount := amount

	for _, leg := range legs {
		out, fee, err := quote(leg, amount)
		if err != nil {
			return PathResult{Valid: false, Error: err.Error(), Legs: results}
		}
		results = append(results, LegResult{Leg: leg, Output: out, Fee: fee})
		amount = out
	}

	res := PathResult{Valid: true, Legs: results, Circular: circular}
	if circular {
		res.NetOutput = int64(amount) - int64(startAmount)
	} else {
		res.NetOutput = int64(amount)
	}
	return res
}
