// Package altcache stores resolved address-lookup-table contents and
// persists a deduplicated hotlist of discovered ALT addresses to a
// `{version, updatedAt, alts:[base58,...]}` JSON file.
package altcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/cache"
	"github.com/aerofoil/solmev/internal/types"
)

// Fetcher retrieves an ALT's full account list from the chain, used to
// backfill a cache miss.
type Fetcher func(ctx context.Context, table types.Pubkey) ([]types.Pubkey, uint64, uint64, error)

// Cache wraps a generic Store keyed by ALT pubkey, adding a background
// fetch-on-miss path and hotlist persistence.
type Cache struct {
	store   *cache.Store[types.Pubkey, []types.Pubkey]
	fetch   Fetcher
	mu      sync.Mutex
	hotlist map[types.Pubkey]struct{}
}

// New constructs an empty Cache around fetch. Prefetch returns an error
// when fetch is nil.
func New(fetch Fetcher) *Cache {
	return &Cache{
		store:   cache.NewStore[types.Pubkey, []types.Pubkey](),
		fetch:   fetch,
		hotlist: make(map[types.Pubkey]struct{}),
	}
}

// Lookup is a synchronous, non-blocking cache read, the contract
// txdecode.ALTLookup requires.
func (c *Cache) Lookup(table types.Pubkey) ([]types.Pubkey, bool) {
	e, ok := c.store.GetEntry(table)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Commit installs a resolved ALT under the store's standard monotone
// discipline and records it in the hotlist.
func (c *Cache) Commit(table types.Pubkey, accounts []types.Pubkey, slot, writeVersion uint64, source types.Source) bool {
	applied := c.store.Commit(table, accounts, slot, writeVersion, source)
	if applied {
		c.mu.Lock()
		c.hotlist[table] = struct{}{}
		c.mu.Unlock()
	}
	return applied
}

// BackfillMiss fetches a missed ALT in the background and commits it on
// success. Fire-and-forget: the caller must not block the critical worker
// waiting on an RPC round trip.
func (c *Cache) BackfillMiss(ctx context.Context, table types.Pubkey) {
	if c.fetch == nil {
		return
	}
	go func() {
		accounts, slot, wv, err := c.fetch(ctx, table)
		if err != nil {
			return
		}
		c.Commit(table, accounts, slot, wv, types.SourceBootstrap)
	}()
}

// Prefetch synchronously backfills a batch of tables, for use during
// bootstrap before the gRPC stream is caught up.
func (c *Cache) Prefetch(ctx context.Context, tables []types.Pubkey) error {
	if c.fetch == nil {
		return fmt.Errorf("altcache: no fetcher configured")
	}
	for _, table := range tables {
		accounts, slot, wv, err := c.fetch(ctx, table)
		if err != nil {
			return fmt.Errorf("altcache: prefetch %s: %w", table, err)
		}
		c.Commit(table, accounts, slot, wv, types.SourceBootstrap)
	}
	return nil
}

// hotlistFile is the on-disk JSON shape persisted to ALTHotlistPath.
type hotlistFile struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	ALTs      []string  `json:"alts"`
}

const hotlistVersion = 1

// SaveHotlist writes the deduplicated set of discovered ALT addresses to
// path as base58-encoded strings.
func (c *Cache) SaveHotlist(path string) error {
	c.mu.Lock()
	alts := make([]string, 0, len(c.hotlist))
	for table := range c.hotlist {
		alts = append(alts, table.String())
	}
	c.mu.Unlock()

	f := hotlistFile{Version: hotlistVersion, UpdatedAt: time.Now(), ALTs: alts}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("altcache: marshal hotlist: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// LoadHotlist reads a previously persisted hotlist and records its
// entries as known ALT addresses (without their contents — those must
// still be resolved via Lookup/fetch), appending to any already in
// memory rather than replacing them.
func (c *Cache) LoadHotlist(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("altcache: read hotlist: %w", err)
	}

	var f hotlistFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("altcache: unmarshal hotlist: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range f.ALTs {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			continue
		}
		c.hotlist[pk] = struct{}{}
	}
	return nil
}
