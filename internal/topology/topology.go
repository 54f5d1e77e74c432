// Package topology implements the pool lifecycle state machine and the
// topology oracle that gates activation on the convergence predicate.
package topology

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/aerofoil/solmev/internal/cache"
	"github.com/aerofoil/solmev/internal/types"
)

// IncompleteReason is the structured reason a pool failed to activate.
type IncompleteReason string

const (
	ReasonMissingVault     IncompleteReason = "missing_vault"
	ReasonMissingArray     IncompleteReason = "missing_array"
	ReasonMissingAmmConfig IncompleteReason = "missing_amm_config"
	ReasonConvergence      IncompleteReason = "convergence"
	ReasonAllVirtualArrays IncompleteReason = "all_virtual_arrays"
)

// poolRecord tracks one pool's lifecycle state plus its current frozen
// topology.
type poolRecord struct {
	state  types.LifecycleState
	frozen *types.FrozenTopology
	reason IncompleteReason
}

// DependencyResolver derives a pool's dependency set: vaults, required
// tick/bin array indexes, and an optional ammConfig reference.
type DependencyResolver func(pool *types.PoolState) (baseVault, quoteVault types.Pubkey, tickArrayIdx []int32, binArrayIdx []int64, ammConfig *types.Pubkey, err error)

// Oracle owns pool lifecycle transitions and frozen topologies.
type Oracle struct {
	mu      sync.Mutex
	records map[types.Pubkey]*poolRecord
	reverse map[types.Pubkey]map[types.Pubkey]struct{} // account -> pools depending on it

	caches                *cache.Caches
	resolve               DependencyResolver
	subscriptionStartSlot uint64
	staticAmmConfigs      map[types.Pubkey]struct{}
}

// NewOracle constructs an Oracle. staticAmmConfigs is the narrow
// allowlist: keep it narrow and assert on reads — only pubkeys in this
// set may satisfy the convergence predicate's static-account clause.
func NewOracle(caches *cache.Caches, resolve DependencyResolver, subscriptionStartSlot uint64, staticAmmConfigs map[types.Pubkey]struct{}) *Oracle {
	return &Oracle{
		records:               make(map[types.Pubkey]*poolRecord),
		reverse:               make(map[types.Pubkey]map[types.Pubkey]struct{}),
		caches:                caches,
		resolve:               resolve,
		subscriptionStartSlot: subscriptionStartSlot,
		staticAmmConfigs:      staticAmmConfigs,
	}
}

// State returns a pool's current lifecycle state (Discovered if unseen).
func (o *Oracle) State(pool types.Pubkey) types.LifecycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[pool]
	if !ok {
		return types.LifecycleDiscovered
	}
	return r.state
}

// FrozenTopology returns the pool's current frozen topology, if any.
func (o *Oracle) FrozenTopology(pool types.Pubkey) (*types.FrozenTopology, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[pool]
	if !ok || r.frozen == nil {
		return nil, false
	}
	return r.frozen, true
}

// FreezePool transitions a pool to Frozen: valid from Discovered or
// Refreshing. Reads the current PoolState, derives dependencies, builds
// and installs a FrozenTopology atomically.
func (o *Oracle) FreezePool(pool types.Pubkey, slot uint64, nowMs int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.records[pool]
	if ok && r.state != types.LifecycleDiscovered && r.state != types.LifecycleRefreshing {
		return fmt.Errorf("topology: freezePool invalid from state %s", r.state)
	}

	entry, found := o.caches.Pools.GetEntry(pool)
	if !found {
		return fmt.Errorf("topology: no cached pool state for %s", pool)
	}
	ps := entry.Value

	baseVault, quoteVault, tickIdx, binIdx, ammConfig, err := o.resolve(ps)
	if err != nil {
		return fmt.Errorf("topology: derivePoolDependencies: %w", err)
	}

	frozen := &types.FrozenTopology{
		Pool:                     pool,
		Venue:                    ps.Venue,
		BaseVault:                baseVault,
		QuoteVault:               quoteVault,
		RequiredTickArrayIndexes: tickIdx,
		RequiredBinArrayIndexes:  binIdx,
		AmmConfigRef:             ammConfig,
		FrozenAtSlot:             slot,
		FrozenAtMs:               nowMs,
	}

	if !ok {
		r = &poolRecord{}
		o.records[pool] = r
	}
	r.state = types.LifecycleFrozen
	r.frozen = frozen

	o.indexReverse(pool, frozen)
	return nil
}

func (o *Oracle) indexReverse(pool types.Pubkey, ft *types.FrozenTopology) {
	add := func(acct types.Pubkey) {
		set, ok := o.reverse[acct]
		if !ok {
			set = make(map[types.Pubkey]struct{})
			o.reverse[acct] = set
		}
		set[pool] = struct{}{}
	}
	add(ft.BaseVault)
	add(ft.QuoteVault)
	if ft.AmmConfigRef != nil {
		add(*ft.AmmConfigRef)
	}
}

// DependentPools returns pools whose frozen topology references account,
// an O(1)-per-pool reverse index.
func (o *Oracle) DependentPools(account types.Pubkey) []types.Pubkey {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.reverse[account]
	if !ok {
		return nil
	}
	out := make([]types.Pubkey, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// isValidDependency implements the convergence predicate: an account is
// only trustworthy once it's been observed on the live gRPC stream, or
// bootstrapped at/after the subscription start slot, or is a known-static
// config.
func (o *Oracle) isValidDependency(source types.Source, slot uint64, isStaticAmmConfig bool) bool {
	if source == types.SourceGRPC {
		return true
	}
	if source == types.SourceBootstrap && slot >= o.subscriptionStartSlot {
		return true
	}
	return isStaticAmmConfig
}

// TryActivate attempts Frozen -> Active, short-circuiting on the first
// unmet dependency.
func (o *Oracle) TryActivate(pool types.Pubkey) (types.LifecycleState, IncompleteReason) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.records[pool]
	if !ok || r.frozen == nil {
		return types.LifecycleIncomplete, ReasonMissingVault
	}
	ft := r.frozen

	baseEntry, baseOK := o.caches.Vaults.GetEntry(ft.BaseVault)
	if !baseOK {
		r.state, r.reason = types.LifecycleIncomplete, ReasonMissingVault
		return r.state, r.reason
	}
	quoteEntry, quoteOK := o.caches.Vaults.GetEntry(ft.QuoteVault)
	if !quoteOK {
		r.state, r.reason = types.LifecycleIncomplete, ReasonMissingVault
		return r.state, r.reason
	}

	if !o.isValidDependency(baseEntry.Source, baseEntry.Slot, false) ||
		!o.isValidDependency(quoteEntry.Source, quoteEntry.Slot, false) {
		r.state, r.reason = types.LifecycleIncomplete, ReasonConvergence
		return r.state, r.reason
	}

	realArrayCount := 0
	for _, idx := range ft.RequiredTickArrayIndexes {
		key := cache.TickArrayKey{Pool: pool, StartIndex: idx}
		_, found, virtual := o.caches.TickArrays.GetOrVirtual(key)
		if !found && !virtual {
			r.state, r.reason = types.LifecycleIncomplete, ReasonMissingArray
			return r.state, r.reason
		}
		if found {
			realArrayCount++
		}
	}
	for _, idx := range ft.RequiredBinArrayIndexes {
		key := cache.BinArrayKey{Pool: pool, Index: idx}
		_, found, virtual := o.caches.BinArrays.GetOrVirtual(key)
		if !found && !virtual {
			r.state, r.reason = types.LifecycleIncomplete, ReasonMissingArray
			return r.state, r.reason
		}
		if found {
			realArrayCount++
		}
	}
	requiredArrays := len(ft.RequiredTickArrayIndexes) + len(ft.RequiredBinArrayIndexes)
	if requiredArrays > 0 && realArrayCount == 0 {
		r.state, r.reason = types.LifecycleIncomplete, ReasonAllVirtualArrays
		return r.state, r.reason
	}

	if ft.AmmConfigRef != nil {
		isStatic := o.isStaticAmmConfig(*ft.AmmConfigRef)
		cfgEntry, found := o.caches.AmmConfigs.GetEntry(*ft.AmmConfigRef)
		if !found {
			r.state, r.reason = types.LifecycleIncomplete, ReasonMissingAmmConfig
			return r.state, r.reason
		}
		if !o.isValidDependency(cfgEntry.Source, cfgEntry.Slot, isStatic) {
			r.state, r.reason = types.LifecycleIncomplete, ReasonConvergence
			return r.state, r.reason
		}
	}

	r.state = types.LifecycleActive
	r.reason = ""
	return r.state, ""
}

// DiagnoseMissing walks every account a pool's frozen topology depends on
// and accumulates one error per missing entry, instead of TryActivate's
// first-failure short-circuit. Intended for logging/evidence context when
// a pool stays Incomplete across several refresh cycles and an operator
// needs to see the whole unmet dependency set at once.
func (o *Oracle) DiagnoseMissing(pool types.Pubkey) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.records[pool]
	if !ok || r.frozen == nil {
		return fmt.Errorf("topology: %s has no frozen topology", pool)
	}
	ft := r.frozen

	var errs error
	if _, ok := o.caches.Vaults.GetEntry(ft.BaseVault); !ok {
		errs = multierr.Append(errs, fmt.Errorf("topology: missing base vault %s", ft.BaseVault))
	}
	if _, ok := o.caches.Vaults.GetEntry(ft.QuoteVault); !ok {
		errs = multierr.Append(errs, fmt.Errorf("topology: missing quote vault %s", ft.QuoteVault))
	}
	for _, idx := range ft.RequiredTickArrayIndexes {
		key := cache.TickArrayKey{Pool: pool, StartIndex: idx}
		if _, found, virtual := o.caches.TickArrays.GetOrVirtual(key); !found && !virtual {
			errs = multierr.Append(errs, fmt.Errorf("topology: missing tick array %d", idx))
		}
	}
	for _, idx := range ft.RequiredBinArrayIndexes {
		key := cache.BinArrayKey{Pool: pool, Index: idx}
		if _, found, virtual := o.caches.BinArrays.GetOrVirtual(key); !found && !virtual {
			errs = multierr.Append(errs, fmt.Errorf("topology: missing bin array %d", idx))
		}
	}
	if ft.AmmConfigRef != nil {
		if _, found := o.caches.AmmConfigs.GetEntry(*ft.AmmConfigRef); !found {
			errs = multierr.Append(errs, fmt.Errorf("topology: missing amm config %s", *ft.AmmConfigRef))
		}
	}
	return errs
}

// isStaticAmmConfig asserts membership in the narrow allowlist: callers
// must not misclassify a dynamic config as static.
func (o *Oracle) isStaticAmmConfig(cfg types.Pubkey) bool {
	_, ok := o.staticAmmConfigs[cfg]
	return ok
}

// AllowPoolWrite reports whether an update from source at slot may
// mutate pool's cached state. A pool not yet frozen accepts anything; a
// frozen pool only accepts live-stream updates and bootstrap snapshots
// at or after the subscription start slot.
func (o *Oracle) AllowPoolWrite(pool types.Pubkey, source types.Source, slot uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[pool]
	if !ok || r.state == types.LifecycleDiscovered {
		return true
	}
	return o.isValidDependency(source, slot, false)
}

// Refresh transitions Active -> Refreshing when a pool's dependency set
// drifts. Callers re-freeze and re-activate after.
func (o *Oracle) Refresh(pool types.Pubkey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[pool]
	if !ok {
		return fmt.Errorf("topology: refresh of unknown pool %s", pool)
	}
	if r.state != types.LifecycleActive {
		return fmt.Errorf("topology: refresh invalid from state %s", r.state)
	}
	r.state = types.LifecycleRefreshing
	return nil
}

// Retire transitions any state to Retired.
func (o *Oracle) Retire(pool types.Pubkey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[pool]
	if !ok {
		r = &poolRecord{}
		o.records[pool] = r
	}
	r.state = types.LifecycleRetired
}
