package speculative

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestOverlayApplyRemoveIdempotent(t *testing.T) {
	o := NewOverlay()
	var pool types.Pubkey
	pool[0] = 3

	var sig [64]byte
	sig[0] = 1
	deltas := InferDeltas(pool, types.DirAtoB, 1_000_000, 497_012)
	entry := types.PendingEntry{Signature: sig, Slot: 10, Deltas: deltas}

	o.Apply(entry)
	snap := o.Snapshot(pool)
	require.Equal(t, "1000000", snap.VaultADelta.String())
	require.Equal(t, "-497012", snap.VaultBDelta.String())
	require.Equal(t, uint64(10), snap.SpeculativeSlot)
	require.Equal(t, [][64]byte{sig}, snap.PendingSigs)

	// Re-applying the same signature is a no-op.
	o.Apply(entry)
	snap2 := o.Snapshot(pool)
	require.True(t, snap.VaultADelta.Equal(snap2.VaultADelta))
	require.True(t, snap.VaultBDelta.Equal(snap2.VaultBDelta))
	require.Len(t, snap2.PendingSigs, 1)

	o.Remove(sig)
	snap3 := o.Snapshot(pool)
	require.True(t, snap3.VaultADelta.IsZero())
	require.True(t, snap3.VaultBDelta.IsZero())
	require.Zero(t, snap3.SpeculativeSlot)
	require.Empty(t, snap3.PendingSigs)
}

// The speculative slot folds the max over every pending entry touching
// the pool, and falls back as the newest entry clears.
func TestSnapshotSpeculativeSlotIsMaxOfPending(t *testing.T) {
	o := NewOverlay()
	var pool types.Pubkey
	pool[0] = 6

	var sigA, sigB [64]byte
	sigA[0], sigB[0] = 7, 8
	o.Apply(types.PendingEntry{Signature: sigA, Slot: 100, Deltas: InferDeltas(pool, types.DirAtoB, 10, 5)})
	o.Apply(types.PendingEntry{Signature: sigB, Slot: 250, Deltas: InferDeltas(pool, types.DirAtoB, 10, 5)})

	snap := o.Snapshot(pool)
	require.Equal(t, uint64(250), snap.SpeculativeSlot)
	require.Len(t, snap.PendingSigs, 2)

	o.Remove(sigB)
	snap = o.Snapshot(pool)
	require.Equal(t, uint64(100), snap.SpeculativeSlot)
	require.Equal(t, [][64]byte{sigA}, snap.PendingSigs)
}

func TestOverlaySweepExpired(t *testing.T) {
	o := NewOverlay()
	var pool types.Pubkey
	pool[0] = 5

	var sig [64]byte
	sig[0] = 3
	o.Apply(types.PendingEntry{
		Signature: sig,
		Deltas:    InferDeltas(pool, types.DirAtoB, 100, 50),
	})
	require.Equal(t, 1, o.PendingCount(pool))

	// Nothing is old enough yet.
	require.Empty(t, o.SweepExpired(time.Now().UnixMilli(), time.Minute))
	require.Equal(t, 1, o.PendingCount(pool))

	// An hour in the future, the entry has long expired.
	expired := o.SweepExpired(time.Now().Add(time.Hour).UnixMilli(), time.Minute)
	require.Equal(t, [][64]byte{sig}, expired)
	require.Equal(t, 0, o.PendingCount(pool))
	snap := o.Snapshot(pool)
	require.True(t, snap.VaultADelta.IsZero())
	require.True(t, snap.VaultBDelta.IsZero())
}

func TestRecorderAccuracyWindow(t *testing.T) {
	r := NewRecorder(10, 100)

	var sig1, sig2 [64]byte
	sig1[0], sig2[0] = 1, 2

	r.Predict(sig1, 1_000_000, 2_000_000)
	require.True(t, r.Observe(sig1, 1_000_500, 2_001_000)) // both within 10 bps

	r.Predict(sig2, 1_000_000, 2_000_000)
	require.True(t, r.Observe(sig2, 1_100_000, 2_000_000)) // first side off by ~909 bps

	frac, n := r.Accuracy()
	require.Equal(t, 4, n)
	require.InDelta(t, 0.75, frac, 0.001)
}

func TestRecorderForgetDropsUnscoredPrediction(t *testing.T) {
	r := NewRecorder(10, 10)
	var sig [64]byte
	sig[0] = 9
	r.Predict(sig, 100, 200)
	r.Forget(sig)
	require.False(t, r.Observe(sig, 100, 200))
	_, n := r.Accuracy()
	require.Zero(t, n)
}

func TestOverlayApplyToBalanceClampsAtZero(t *testing.T) {
	o := NewOverlay()
	var pool types.Pubkey
	pool[0] = 4

	var sig [64]byte
	sig[0] = 2
	deltas := InferDeltas(pool, types.DirBtoA, 5_000, 1_000_000)
	o.Apply(types.PendingEntry{Signature: sig, Slot: 1, Deltas: deltas})

	base, quote := o.ApplyToBalance(pool, 100, 100)
	require.Equal(t, uint64(0), base)
	require.Equal(t, uint64(5100), quote)
}
