// Package feeoracle infers the effective fee rate for venues whose fee is
// not a first-class pool field (bonding-pair CP).
package feeoracle

import (
	"math/big"
	"sync"

	"github.com/aerofoil/solmev/internal/types"
)

// Key identifies a learned fee by pool and swap direction.
type Key struct {
	Pool      types.Pubkey
	Direction types.Direction
}

// Observation is a single confirmed swap used to infer the fee.
type Observation struct {
	ReserveIn  uint64
	ReserveOut uint64
	AmountIn   uint64
	ActualOut  uint64
}

// bondingCurveRatioThreshold and dustThreshold gate which observations are
// eligible for learning: skip when reserveIn/reserveOut > 10000 (still in
// the bonding-curve region) or amountIn < 10_000 raw units (dust).
const (
	bondingCurveRatioThreshold = 10000
	dustThreshold              = 10_000
)

// Oracle caches the first successfully inferred fee per (pool, direction)
// and reuses it for subsequent simulations.
type Oracle struct {
	mu    sync.RWMutex
	known map[Key]uint32
}

// New constructs an empty Oracle.
func New() *Oracle {
	return &Oracle{known: make(map[Key]uint32)}
}

// Lookup returns the learned fee in bps for (pool, direction), if any.
func (o *Oracle) Lookup(pool types.Pubkey, dir types.Direction) (uint32, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.known[Key{Pool: pool, Direction: dir}]
	return v, ok
}

// Observe attempts to learn the fee from a confirmed swap. Returns
// (impliedBps, learned). Does not overwrite an existing cached value:
// "Cache and reuse for subsequent sims" implies the first successful
// inference wins.
func (o *Oracle) Observe(pool types.Pubkey, dir types.Direction, obs Observation) (uint32, bool) {
	key := Key{Pool: pool, Direction: dir}

	o.mu.RLock()
	_, already := o.known[key]
	o.mu.RUnlock()
	if already {
		v, _ := o.Lookup(pool, dir)
		return v, false
	}

	if obs.ReserveOut == 0 || obs.ReserveIn/obs.ReserveOut > bondingCurveRatioThreshold {
		return 0, false
	}
	if obs.AmountIn < dustThreshold {
		return 0, false
	}

	bps, ok := InferFeeBps(obs.ReserveIn, obs.ReserveOut, obs.AmountIn, obs.ActualOut)
	if !ok {
		return 0, false
	}

	o.mu.Lock()
	o.known[key] = bps
	o.mu.Unlock()
	return bps, true
}

// InferFeeBps solves backward from an observed CP swap for the effective
// fee: given actualOut, solve for Δxₙ such that
//
//	actualOut = (reserveOut · Δxₙ) / (reserveIn · 10000 + Δxₙ)
//
// i.e. Δxₙ = actualOut · reserveIn · 10000 / (reserveOut − actualOut). Δxₙ
// is itself defined (cp.go's CPExactInput) as amountIn · (10000 − feeBps),
// a quantity scaled by 10000 relative to the raw amountIn, so it must be
// compared and divided against amountIn scaled the same way:
//
//	impliedBps = round((amountIn·10000 − Δxₙ) / amountIn)
func InferFeeBps(reserveIn, reserveOut, amountIn, actualOut uint64) (uint32, bool) {
	if actualOut >= reserveOut || amountIn == 0 {
		return 0, false
	}
	rIn := new(big.Int).SetUint64(reserveIn)
	denom := new(big.Int).SetUint64(reserveOut - actualOut)
	if denom.Sign() == 0 {
		return 0, false
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(actualOut), rIn)
	num.Mul(num, big.NewInt(10000))
	dxn := new(big.Int).Quo(num, denom)

	dx := new(big.Int).SetUint64(amountIn)
	dxScaled := new(big.Int).Mul(dx, big.NewInt(10000))
	if dxn.Cmp(dxScaled) > 0 {
		return 0, false
	}
	diff := new(big.Int).Sub(dxScaled, dxn)
	// round to nearest: add half the divisor before truncating
	half := new(big.Int).Quo(dx, big.NewInt(2))
	diff.Add(diff, half)
	bps := new(big.Int).Quo(diff, dx)
	if !bps.IsUint64() {
		return 0, false
	}
	return uint32(bps.Uint64()), true
}
