package topology

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/cache"
	"github.com/aerofoil/solmev/internal/types"
)

func cpPairPool(pool, baseVault, quoteVault types.Pubkey) *types.PoolState {
	return &types.PoolState{
		Pool:  pool,
		Venue: types.VenueCPPair,
		CPPair: &types.CPPairPayload{
			BaseVault:  baseVault,
			QuoteVault: quoteVault,
		},
	}
}

func resolveCPPair(ps *types.PoolState) (baseVault, quoteVault types.Pubkey, tickIdx []int32, binIdx []int64, ammConfig *types.Pubkey, err error) {
	p := ps.CPPair
	return p.BaseVault, p.QuoteVault, nil, nil, p.AmmConfig, nil
}

// Convergence gate: a pool only activates once every dependency is
// committed from a source/slot combination the predicate accepts.
func TestFreezeThenActivateConvergence(t *testing.T) {
	caches := cache.NewCaches()
	var pool, base, quote types.Pubkey
	pool[0], base[0], quote[0] = 1, 2, 3

	caches.Pools.Commit(pool, cpPairPool(pool, base, quote), 10, 1, types.SourceGRPC)

	o := NewOracle(caches, resolveCPPair, 0, nil)
	require.NoError(t, o.FreezePool(pool, 10, 1000))
	require.Equal(t, types.LifecycleFrozen, o.State(pool))

	// Vaults not yet committed: activation must stay Incomplete.
	state, reason := o.TryActivate(pool)
	require.Equal(t, types.LifecycleIncomplete, state)
	require.Equal(t, ReasonMissingVault, reason)

	caches.Vaults.Commit(base, &types.VaultBalance{Amount: 100}, 10, 1, types.SourceGRPC)
	caches.Vaults.Commit(quote, &types.VaultBalance{Amount: 100}, 10, 1, types.SourceGRPC)

	state, reason = o.TryActivate(pool)
	require.Equal(t, types.LifecycleActive, state)
	require.Equal(t, IncompleteReason(""), reason)
}

// A vault bootstrapped before the gRPC subscription started is not
// convergent; a later live update (or a bootstrap snapshot at or past the
// subscription start) is.
func TestTryActivateConvergenceGate(t *testing.T) {
	caches := cache.NewCaches()
	var pool, base, quote types.Pubkey
	pool[0], base[0], quote[0] = 10, 11, 12

	caches.Pools.Commit(pool, cpPairPool(pool, base, quote), 100, 1, types.SourceGRPC)

	o := NewOracle(caches, resolveCPPair, 200, nil)
	require.NoError(t, o.FreezePool(pool, 100, 0))

	caches.Vaults.Commit(base, &types.VaultBalance{Amount: 100}, 100, 1, types.SourceBootstrap)
	caches.Vaults.Commit(quote, &types.VaultBalance{Amount: 100}, 205, 1, types.SourceBootstrap)

	state, reason := o.TryActivate(pool)
	require.Equal(t, types.LifecycleIncomplete, state)
	require.Equal(t, ReasonConvergence, reason)

	// A live-stream update for the stale vault converges it.
	caches.Vaults.Commit(base, &types.VaultBalance{Amount: 101}, 210, 1, types.SourceGRPC)
	state, _ = o.TryActivate(pool)
	require.Equal(t, types.LifecycleActive, state)
}

func TestAllowPoolWriteBlocksStaleSourcesOnceFrozen(t *testing.T) {
	caches := cache.NewCaches()
	var pool, base, quote types.Pubkey
	pool[0], base[0], quote[0] = 13, 14, 15

	caches.Pools.Commit(pool, cpPairPool(pool, base, quote), 100, 1, types.SourceGRPC)
	o := NewOracle(caches, resolveCPPair, 200, nil)

	// Anything goes before the pool is frozen.
	require.True(t, o.AllowPoolWrite(pool, types.SourceBootstrap, 50))

	require.NoError(t, o.FreezePool(pool, 100, 0))
	require.False(t, o.AllowPoolWrite(pool, types.SourceBootstrap, 50))
	require.True(t, o.AllowPoolWrite(pool, types.SourceBootstrap, 200))
	require.True(t, o.AllowPoolWrite(pool, types.SourceGRPC, 50))
}

func TestDiagnoseMissingAccumulatesAllGaps(t *testing.T) {
	caches := cache.NewCaches()
	var pool, base, quote types.Pubkey
	pool[0], base[0], quote[0] = 4, 5, 6

	caches.Pools.Commit(pool, cpPairPool(pool, base, quote), 1, 1, types.SourceGRPC)

	o := NewOracle(caches, resolveCPPair, 0, nil)
	require.NoError(t, o.FreezePool(pool, 1, 0))

	err := o.DiagnoseMissing(pool)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing base vault")
	require.Contains(t, err.Error(), "missing quote vault")
}

func TestDependentPoolsReverseIndex(t *testing.T) {
	caches := cache.NewCaches()
	var pool, base, quote types.Pubkey
	pool[0], base[0], quote[0] = 7, 8, 9

	caches.Pools.Commit(pool, cpPairPool(pool, base, quote), 1, 1, types.SourceGRPC)
	o := NewOracle(caches, resolveCPPair, 0, nil)
	require.NoError(t, o.FreezePool(pool, 1, 0))

	deps := o.DependentPools(base)
	require.Equal(t, []types.Pubkey{pool}, deps)
}
