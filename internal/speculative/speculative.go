// Package speculative maintains the per-pool vault-delta overlay: the
// predicted effect of unconfirmed (pending) transactions layered on top of
// the committed cache.
package speculative

import (
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/aerofoil/solmev/internal/types"
)

// Overlay tracks, per pool, the sum of pending vault deltas not yet
// confirmed on-chain. Idempotent by transaction signature: applying the
// same signature twice has no additional effect.
type Overlay struct {
	mu          sync.RWMutex
	byPool      map[types.Pubkey]poolOverlay
	bySig       map[[64]byte]types.PendingEntry
	appliedAtMs map[[64]byte]int64
}

type poolOverlay struct {
	vaultA math.Int
	vaultB math.Int
	sigs   map[[64]byte]struct{}
}

// NewOverlay constructs an empty Overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		byPool:      make(map[types.Pubkey]poolOverlay),
		bySig:       make(map[[64]byte]types.PendingEntry),
		appliedAtMs: make(map[[64]byte]int64),
	}
}

// Apply layers a pending entry's deltas onto the overlay. A repeat of a
// signature already applied is a no-op (idempotence by signature).
func (o *Overlay) Apply(entry types.PendingEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, seen := o.bySig[entry.Signature]; seen {
		return
	}
	o.bySig[entry.Signature] = entry
	o.appliedAtMs[entry.Signature] = time.Now().UnixMilli()

	for _, d := range entry.Deltas {
		po, ok := o.byPool[d.Pool]
		if !ok {
			po = poolOverlay{vaultA: math.ZeroInt(), vaultB: math.ZeroInt(), sigs: make(map[[64]byte]struct{})}
		}
		po.vaultA = po.vaultA.Add(d.VaultADelta)
		po.vaultB = po.vaultB.Add(d.VaultBDelta)
		po.sigs[entry.Signature] = struct{}{}
		o.byPool[d.Pool] = po
	}
}

// Remove reverses a previously-applied entry's deltas, used when a pending
// transaction is confirmed (the committed cache now reflects it directly)
// or dropped.
func (o *Overlay) Remove(signature [64]byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removeLocked(signature)
}

func (o *Overlay) removeLocked(signature [64]byte) {
	entry, ok := o.bySig[signature]
	if !ok {
		return
	}
	delete(o.bySig, signature)
	delete(o.appliedAtMs, signature)

	for _, d := range entry.Deltas {
		po, ok := o.byPool[d.Pool]
		if !ok {
			continue
		}
		po.vaultA = po.vaultA.Sub(d.VaultADelta)
		po.vaultB = po.vaultB.Sub(d.VaultBDelta)
		delete(po.sigs, signature)
		if len(po.sigs) == 0 {
			delete(o.byPool, d.Pool)
		} else {
			o.byPool[d.Pool] = po
		}
	}
}

// SweepExpired removes every pending entry applied more than maxAge ago
// and returns the removed signatures. A pending transaction that never
// confirms must not pin its predicted deltas forever.
func (o *Overlay) SweepExpired(nowMs int64, maxAge time.Duration) [][64]byte {
	o.mu.Lock()
	defer o.mu.Unlock()

	var expired [][64]byte
	for sig, appliedAt := range o.appliedAtMs {
		if nowMs-appliedAt > maxAge.Milliseconds() {
			expired = append(expired, sig)
		}
	}
	for _, sig := range expired {
		o.removeLocked(sig)
	}
	return expired
}

// Entry returns the pending entry applied under signature, if present.
func (o *Overlay) Entry(signature [64]byte) (types.PendingEntry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.bySig[signature]
	return e, ok
}

// PendingCount reports how many pending signatures currently overlay pool.
func (o *Overlay) PendingCount(pool types.Pubkey) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.byPool[pool].sigs)
}

// PoolSnapshot is the overlay's aggregate view of one pool: the summed
// pending deltas, the constituent pending signatures, and the highest
// slot among them (the speculative slot — how far ahead of confirmed
// state the overlay is reaching).
type PoolSnapshot struct {
	VaultADelta     math.Int
	VaultBDelta     math.Int
	SpeculativeSlot uint64 // max Slot across pending entries; 0 when none
	PendingSigs     [][64]byte
}

// Snapshot returns the pool's current overlay state as one consistent
// unit (zero deltas and no signatures if no pending entries touch it).
func (o *Overlay) Snapshot(pool types.Pubkey) PoolSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	po, ok := o.byPool[pool]
	if !ok {
		return PoolSnapshot{VaultADelta: math.ZeroInt(), VaultBDelta: math.ZeroInt()}
	}
	snap := PoolSnapshot{
		VaultADelta: po.vaultA,
		VaultBDelta: po.vaultB,
		PendingSigs: make([][64]byte, 0, len(po.sigs)),
	}
	for sig := range po.sigs {
		snap.PendingSigs = append(snap.PendingSigs, sig)
		if entry, ok := o.bySig[sig]; ok && entry.Slot > snap.SpeculativeSlot {
			snap.SpeculativeSlot = entry.Slot
		}
	}
	return snap
}

// ApplyToBalance adds the pool's overlay onto a committed vault balance
// pair, clamping at zero (a vault balance can never go negative; a
// speculative overlay that would drive it below zero indicates a stale or
// conflicting pending entry and is clamped rather than propagated).
func (o *Overlay) ApplyToBalance(pool types.Pubkey, baseAmount, quoteAmount uint64) (uint64, uint64) {
	snap := o.Snapshot(pool)

	base := math.NewIntFromUint64(baseAmount).Add(snap.VaultADelta)
	quote := math.NewIntFromUint64(quoteAmount).Add(snap.VaultBDelta)
	if base.IsNegative() {
		base = math.ZeroInt()
	}
	if quote.IsNegative() {
		quote = math.ZeroInt()
	}
	return base.Uint64(), quote.Uint64()
}

// InferDeltas derives a PendingEntry's PoolDelta set from a decoded swap
// leg: the input mint's vault gains InputAmount, the output side is
// estimated from the simulated quote.
func InferDeltas(pool types.Pubkey, direction types.Direction, inputAmount, estimatedOutput uint64) []types.PoolDelta {
	in := math.NewIntFromUint64(inputAmount)
	out := math.NewIntFromUint64(estimatedOutput).Neg()

	if direction == types.DirAtoB {
		return []types.PoolDelta{{Pool: pool, VaultADelta: in, VaultBDelta: out}}
	}
	return []types.PoolDelta{{Pool: pool, VaultADelta: out, VaultBDelta: in}}
}
