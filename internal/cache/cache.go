// Package cache implements the per-entity account stores: pool, vault,
// tick-array, bin-array, ammConfig, ALT, and open-orders. Each store
// accepts updates only when strictly newer by (slot, writeVersion) — a
// monotone cache that never regresses on a reordered or replayed update.
package cache

import (
	"sync"

	"github.com/aerofoil/solmev/internal/types"
)

// Entry wraps a cached value with its provenance.
type Entry[V any] struct {
	Value        V
	Slot         uint64
	WriteVersion uint64
	Source       types.Source
}

// tombstone marks a key as known-non-existent (distinct from "missing").
type tombstone struct{}

// Store is a generic single-writer, many-reader cache keyed by K, storing
// values of type V, accepting commits in strict (slot, writeVersion)
// order.
type Store[K comparable, V any] struct {
	mu         sync.RWMutex
	entries    map[K]Entry[V]
	tombstones map[K]tombstone

	hits    uint64
	rejects uint64
}

// NewStore constructs an empty Store.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		entries:    make(map[K]Entry[V]),
		tombstones: make(map[K]tombstone),
	}
}

// GetEntry returns the cached entry for key, if any.
func (s *Store[K, V]) GetEntry(key K) (Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// IsTombstoned reports whether key was explicitly marked non-existent.
func (s *Store[K, V]) IsTombstoned(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tombstones[key]
	return ok
}

// Commit accepts value for key only if (slot, writeVersion) is strictly
// newer than whatever is cached. Returns true if the write was applied.
func (s *Store[K, V]) Commit(key K, value V, slot, writeVersion uint64, source types.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		if !newer(slot, writeVersion, existing.Slot, existing.WriteVersion) {
			s.rejects++
			return false
		}
	}
	s.entries[key] = Entry[V]{Value: value, Slot: slot, WriteVersion: writeVersion, Source: source}
	delete(s.tombstones, key)
	s.hits++
	return true
}

// MarkNonExistent records a tombstone for key: used when a bitmap says a
// bin/tick array is uninitialized.
func (s *Store[K, V]) MarkNonExistent(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[key] = tombstone{}
}

// GetOrVirtual returns the cached value, or ok=false with virtual=true if
// tombstoned, or ok=false/virtual=false if genuinely missing.
func (s *Store[K, V]) GetOrVirtual(key K) (value V, ok bool, virtual bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, found := s.entries[key]; found {
		return e.Value, true, false
	}
	if _, tomb := s.tombstones[key]; tomb {
		var zero V
		return zero, false, true
	}
	var zero V
	return zero, false, false
}

// Stats returns (hits, rejects) commit counters.
func (s *Store[K, V]) Stats() (hits, rejects uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.rejects
}

func newer(slot, wv, exSlot, exWV uint64) bool {
	if slot != exSlot {
		return slot > exSlot
	}
	return wv > exWV
}

// TickArrayKey identifies a tick array by (pool, startIndex).
type TickArrayKey struct {
	Pool       types.Pubkey
	StartIndex int32
}

// BinArrayKey identifies a bin array by (pool, index).
type BinArrayKey struct {
	Pool  types.Pubkey
	Index int64
}

// Caches bundles one store per entity type: pool, vault, tick-array,
// bin-array, ammConfig, ALT, and open-orders.
type Caches struct {
	Pools      *Store[types.Pubkey, *types.PoolState]
	Vaults     *Store[types.Pubkey, *types.VaultBalance]
	TickArrays *Store[TickArrayKey, *types.TickArray]
	BinArrays  *Store[BinArrayKey, *types.BinArray]
	AmmConfigs *Store[types.Pubkey, []byte]
	ALTs       *Store[types.Pubkey, []types.Pubkey]
	OpenOrders *Store[types.Pubkey, []byte]
}

// NewCaches constructs an empty Caches bundle.
func NewCaches() *Caches {
	return &Caches{
		Pools:      NewStore[types.Pubkey, *types.PoolState](),
		Vaults:     NewStore[types.Pubkey, *types.VaultBalance](),
		TickArrays: NewStore[TickArrayKey, *types.TickArray](),
		BinArrays:  NewStore[BinArrayKey, *types.BinArray](),
		AmmConfigs: NewStore[types.Pubkey, []byte](),
		ALTs:       NewStore[types.Pubkey, []types.Pubkey](),
		OpenOrders: NewStore[types.Pubkey, []byte](),
	}
}
