package main

import (
	"fmt"
	"time"

	"github.com/aerofoil/solmev/internal/cache"
	"github.com/aerofoil/solmev/internal/codec"
	solerrors "github.com/aerofoil/solmev/internal/errors"
	"github.com/aerofoil/solmev/internal/opportunity"
	"github.com/aerofoil/solmev/internal/sim"
	"github.com/aerofoil/solmev/internal/txdecode"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
	"github.com/aerofoil/solmev/internal/venue/raydiumclmm"
)

// fallbackFeeBps is used only for a CP pool with no Fee field and no
// fee-oracle observation yet.
const fallbackFeeBps = 25

// venueQuoter simulates one swap leg against a pool's current cached
// state plus speculative overlay, dispatching to the sim kernel the
// pool's venue uses.
type venueQuoter struct {
	e    *engine
	pool types.Pubkey
	ps   *types.PoolState
	ft   *types.FrozenTopology
	slot uint64 // slot the cached pool state was committed at
}

// newQuoter builds a quoter for pool if it has both cached pool state and
// a frozen topology; the caller has already gated on Active lifecycle.
func (e *engine) newQuoter(pool types.Pubkey) (*venueQuoter, bool) {
	entry, ok := e.caches.Pools.GetEntry(pool)
	if !ok {
		return nil, false
	}
	ft, ok := e.topo.FrozenTopology(pool)
	if !ok {
		return nil, false
	}
	return &venueQuoter{e: e, pool: pool, ps: entry.Value, ft: ft, slot: entry.Slot}, true
}

// reserves returns the pool's base/quote vault balances with the
// speculative overlay's pending deltas already applied.
func (q *venueQuoter) reserves() (base, quote uint64, ok bool) {
	baseEntry, baseOK := q.e.caches.Vaults.GetEntry(q.ft.BaseVault)
	quoteEntry, quoteOK := q.e.caches.Vaults.GetEntry(q.ft.QuoteVault)
	if !baseOK || !quoteOK {
		return 0, 0, false
	}
	b, qt := q.e.overlay.ApplyToBalance(q.pool, baseEntry.Value.Amount, quoteEntry.Value.Amount)
	return b, qt, true
}

// cpFeeBps resolves a CP-family pool's fee: the pool's own Fee field if
// set, else a learned fee-oracle observation, else fallbackFeeBps.
func (q *venueQuoter) cpFeeBps(dir types.Direction) uint32 {
	var fee *types.FeeBps
	switch q.ps.Venue {
	case types.VenueCPPair:
		fee = q.ps.CPPair.Fee
	case types.VenueCPBook:
		fee = q.ps.CPBook.Fee
	}
	if fee != nil {
		return fee.Total()
	}
	if bps, ok := q.e.fees.Lookup(q.pool, dir); ok {
		return bps
	}
	return fallbackFeeBps
}

// evidenceInputs returns the CP-family reserves/fee a decision was
// computed from, for the evidence sink's recomputation columns. Returns
// zeros for non-CP venues: their sim inputs (tick/bin-array state) aren't
// scalar enough to persist per row, so offline validation is scoped to
// the CP kernel.
func (q *venueQuoter) evidenceInputs(dir types.Direction) (reserveIn, reserveOut uint64, feeBps uint32) {
	switch q.ps.Venue {
	case types.VenueCPPair, types.VenueCPBook:
		base, quote, ok := q.reserves()
		if !ok {
			return 0, 0, 0
		}
		feeBps = q.cpFeeBps(dir)
		if dir == types.DirAtoB {
			return base, quote, feeBps
		}
		return quote, base, feeBps
	default:
		return 0, 0, 0
	}
}

// concentratedFeeBps resolves a Concentrated pool's trade fee from its
// cached ammConfig account. The kernel takes the fee as a parameter, so
// this is the one place it gets sourced — never hard-coded.
func (q *venueQuoter) concentratedFeeBps() (uint32, error) {
	cfgRef := q.ft.AmmConfigRef
	if cfgRef == nil {
		return 0, solerrors.New(solerrors.KindMissingDependency, "pool %s topology has no amm config ref", q.pool)
	}
	entry, ok := q.e.caches.AmmConfigs.GetEntry(*cfgRef)
	if !ok {
		return 0, solerrors.New(solerrors.KindMissingDependency, "amm config %s not cached", *cfgRef)
	}
	cfg, err := raydiumclmm.DecodeAmmConfig(entry.Value)
	if err != nil {
		return 0, solerrors.Wrap(solerrors.KindDecodeFailed, err, "amm config %s", *cfgRef)
	}
	return cfg.TradeFeeBps(), nil
}

// Pre-scan rejection thresholds: the dust floor mirrors the fee oracle's
// (a victim below it is precision noise), the bonding-curve ratio marks
// CP pools whose reserves are still too lopsided for CP math to hold,
// and the lag bound caps how far behind the victim's slot the cached
// pool state may be before a backrun decision is untrustworthy.
const (
	dustInputThreshold = 10_000
	bondingCurveRatio  = 10_000
	maxPoolLagSlots    = 512
)

// preScanReject classifies conditions that make an opportunity scan
// pointless before any simulation runs: stale pool state, dust-sized
// victims, and CP pools that are empty or still in their bonding-curve
// region.
func (q *venueQuoter) preScanReject(leg types.SwapLeg, txSlot uint64) (opportunity.RejectReason, bool) {
	if txSlot > 0 && q.slot+maxPoolLagSlots < txSlot {
		return opportunity.RejectStaleData, true
	}
	if leg.InputAmount < dustInputThreshold {
		return opportunity.RejectDustInput, true
	}
	switch q.ps.Venue {
	case types.VenueCPPair, types.VenueCPBook:
		base, quote, ok := q.reserves()
		if !ok {
			return opportunity.RejectMissingReserves, true
		}
		reserveIn, reserveOut := base, quote
		if leg.Direction == types.DirBtoA {
			reserveIn, reserveOut = quote, base
		}
		if reserveIn == 0 || reserveOut == 0 {
			return opportunity.RejectEmptyPool, true
		}
		if reserveIn/reserveOut > bondingCurveRatio {
			return opportunity.RejectBondingCurve, true
		}
	}
	return "", false
}

// backSolveInput recovers an exact-output victim's effective input from
// its requested output via the exact-output formula. Only CP-family
// reserves admit the closed form.
func (q *venueQuoter) backSolveInput(dir types.Direction, amountOut uint64) (uint64, error) {
	switch q.ps.Venue {
	case types.VenueCPPair, types.VenueCPBook:
		base, quote, ok := q.reserves()
		if !ok {
			return 0, solerrors.New(solerrors.KindMissingDependency, "missing reserves for %s", q.pool)
		}
		reserveIn, reserveOut := base, quote
		if dir == types.DirBtoA {
			reserveIn, reserveOut = quote, base
		}
		return sim.CPExactOutput(reserveIn, reserveOut, amountOut, q.cpFeeBps(dir))
	}
	return 0, fmt.Errorf("quote: exact-output back-solve unsupported for venue %q", q.ps.Venue)
}

// quote simulates amountIn of dir against the pool's current state,
// dispatching to the venue family's sim kernel.
func (q *venueQuoter) quote(dir types.Direction, amountIn uint64) (uint64, error) {
	start := time.Now()
	defer func() {
		q.e.metrics.SimLatency.Observe(time.Since(start).Seconds())
	}()

	switch q.ps.Venue {
	case types.VenueCPPair, types.VenueCPBook:
		base, quote, ok := q.reserves()
		if !ok {
			return 0, solerrors.New(solerrors.KindMissingDependency, "missing reserves for %s", q.pool)
		}
		reserveIn, reserveOut := base, quote
		if dir == types.DirBtoA {
			reserveIn, reserveOut = quote, base
		}
		res, err := sim.CPExactInput(reserveIn, reserveOut, amountIn, q.cpFeeBps(dir))
		if err != nil {
			return 0, err
		}
		return res.Out, nil

	case types.VenueConcentrated:
		p := q.ps.Concentrated
		feeBps, err := q.concentratedFeeBps()
		if err != nil {
			return 0, err
		}
		arrays := &sim.TickArraySet{TickSpacing: int32(p.TickSpacing), Arrays: make(map[int32]*types.TickArray)}
		for _, idx := range q.ft.RequiredTickArrayIndexes {
			if arr, ok, _ := q.e.caches.TickArrays.GetOrVirtual(cache.TickArrayKey{Pool: q.pool, StartIndex: idx}); ok {
				arrays.Arrays[idx] = arr
			}
		}
		zeroForOne := dir == types.DirAtoB
		res, err := sim.ConcentratedExactInput(p.SqrtPriceX64, p.Liquidity, p.CurrentTick, int32(p.TickSpacing), zeroForOne, amountIn, feeBps, arrays)
		if err != nil {
			return 0, err
		}
		return res.AmountOut, nil

	case types.VenueBinned:
		p := q.ps.Binned
		arrays := &sim.BinArraySet{BinStep: p.BinStep, Arrays: make(map[int64]*types.BinArray)}
		for _, idx := range q.ft.RequiredBinArrayIndexes {
			if arr, ok, _ := q.e.caches.BinArrays.GetOrVirtual(cache.BinArrayKey{Pool: q.pool, Index: idx}); ok {
				arrays.Arrays[idx] = arr
			}
		}
		feeParams := sim.FeeParams{
			BinStep:               p.BinStep,
			BaseFactor:            p.BaseFactor,
			BaseFeePowerFactor:    p.BaseFeePowerFactor,
			ProtocolShareBps:      p.ProtocolShare,
			VariableFeeControl:    p.VariableFeeControl,
			VolatilityAccumulator: p.VolatilityAccumulator,
		}
		swapXForY := dir == types.DirAtoB
		res, err := sim.BinnedExactInput(p.ActiveID, swapXForY, amountIn, feeParams, arrays)
		if err != nil {
			return 0, err
		}
		return res.AmountOut, nil
	}
	return 0, fmt.Errorf("quote: unsupported venue %q", q.ps.Venue)
}

// asSimFunc adapts quote to opportunity.SwapSimFunc's signature.
func (q *venueQuoter) asSimFunc() opportunity.SwapSimFunc {
	return func(_ types.Pubkey, dir types.Direction, amountIn uint64) (uint64, error) {
		return q.quote(dir, amountIn)
	}
}

// isVenueProgram reports whether id is one of the five registered venue
// program IDs.
func isVenueProgram(id types.Pubkey) bool {
	switch id {
	case venue.PumpSwapProgramID, venue.RaydiumAMMProgramID, venue.RaydiumCPMMProgramID,
		venue.RaydiumCLMMProgramID, venue.MeteoraDLMMProgramID:
		return true
	}
	return false
}

// extractVictimLeg scans a resolved message for the first instruction
// addressed to a registered venue program whose accounts include a pool
// this engine already has cached state for, and extracts the swap leg's
// input amount at the Anchor-convention data offset (8, following the
// 8-byte discriminator — the same layout pump's own SwapInstruction.Data
// writes).
//
// Direction is not recoverable from a third-party instruction without a
// per-venue decoder this tree doesn't have: pump's own account order
// fixes BaseVault before QuoteVault regardless of which side of the pair
// is actually being sold, so position carries no signal either. AtoB is
// assumed; this is a disclosed simplification, not a best-effort guess.
//
// sawVenueIx reports whether any venue-program instruction was present
// at all, so a swap against a pool this engine has never cached can be
// rejected as NoPool rather than silently dropped.
func extractVictimLeg(resolved txdecode.Resolved, msg txdecode.Message, caches *cache.Caches) (leg types.SwapLeg, poolKey types.Pubkey, found bool, sawVenueIx bool) {
	keys := resolved.AccountKeys
	for _, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) {
			continue
		}
		programID := keys[ix.ProgramIDIndex]
		if !isVenueProgram(programID) {
			continue
		}
		sawVenueIx = true

		var pool types.Pubkey
		matched := false
		for _, idx := range ix.AccountIndexes {
			if int(idx) >= len(keys) {
				continue
			}
			if _, ok := caches.Pools.GetEntry(keys[idx]); ok {
				pool = keys[idx]
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		amountIn, err := codec.U64(ix.Data, 8)
		if err != nil {
			continue
		}

		leg = types.SwapLeg{
			ProgramID:   programID,
			Pool:        pool,
			Direction:   types.DirAtoB,
			InputAmount: amountIn,
			ExactSide:   types.ExactInput,
		}
		if minOut, err := codec.U64(ix.Data, 16); err == nil {
			leg.MinOutputAmount = minOut
		}
		if flag, err := codec.U8(ix.Data, 24); err == nil && flag == 1 {
			leg.ExactSide = types.ExactOutput
		}
		return leg, pool, true, true
	}
	return types.SwapLeg{}, types.Pubkey{}, false, sawVenueIx
}
