// Package bundle builds atomic multi-transaction bundles, submits them to a
// Jito-style relay with retry/backoff, and tracks their lifecycle in an
// LRU-capped in-memory registry.
package bundle

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aerofoil/solmev/internal/types"
)

// Status is a bundle's lifecycle state in the registry.
type Status string

const (
	StatusBuilt     Status = "built"
	StatusSubmitted Status = "submitted"
	StatusLanded    Status = "landed"
	StatusFailed    Status = "failed"
)

// Record is one bundle's tracked lifecycle state.
type Record struct {
	Bundle   types.Bundle
	Status   Status
	RelayID  string
	SubmitMs int64
	LastErr  error
}

// Registry tracks submitted bundles, evicting the least-recently-used
// entry once it hits capacity.
type Registry struct {
	cache *lru.Cache[string, *Record]
}

// NewRegistry constructs a Registry capped at capacity entries.
func NewRegistry(capacity int) *Registry {
	c, err := lru.New[string, *Record](capacity)
	if err != nil {
		// capacity <= 0: fall back to a minimal usable size rather than
		// panicking on a config mistake.
		c, _ = lru.New[string, *Record](1)
	}
	return &Registry{cache: c}
}

// Put installs or overwrites a bundle record.
func (r *Registry) Put(rec *Record) {
	r.cache.Add(rec.Bundle.ID, rec)
}

// Get returns a bundle's current record.
func (r *Registry) Get(id string) (*Record, bool) {
	return r.cache.Get(id)
}

// Transition updates a tracked bundle's status in place.
func (r *Registry) Transition(id string, status Status, relayID string, submitErr error) {
	rec, ok := r.cache.Get(id)
	if !ok {
		return
	}
	rec.Status = status
	if relayID != "" {
		rec.RelayID = relayID
	}
	if status == StatusSubmitted {
		rec.SubmitMs = nowMs()
	}
	rec.LastErr = submitErr
}

// Len reports the number of tracked bundles.
func (r *Registry) Len() int { return r.cache.Len() }

func nowMs() int64 { return time.Now().UnixMilli() }
