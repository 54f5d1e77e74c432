package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestCommitMonotone(t *testing.T) {
	s := NewStore[types.Pubkey, int]()
	var key types.Pubkey
	key[0] = 1

	require.True(t, s.Commit(key, 10, 100, 1, types.SourceGRPC))
	require.False(t, s.Commit(key, 20, 100, 1, types.SourceGRPC), "same (slot,wv) must be rejected")
	require.False(t, s.Commit(key, 20, 99, 5, types.SourceGRPC), "older slot must be rejected")
	require.True(t, s.Commit(key, 20, 100, 2, types.SourceGRPC), "same slot, higher write version accepted")
	require.True(t, s.Commit(key, 30, 101, 0, types.SourceGRPC), "higher slot accepted")

	e, ok := s.GetEntry(key)
	require.True(t, ok)
	require.Equal(t, 30, e.Value)

	_, rejects := s.Stats()
	require.Equal(t, uint64(2), rejects)
}

func TestGetOrVirtual(t *testing.T) {
	s := NewStore[types.Pubkey, int]()
	var key types.Pubkey
	key[0] = 2

	_, ok, virtual := s.GetOrVirtual(key)
	require.False(t, ok)
	require.False(t, virtual)

	s.MarkNonExistent(key)
	_, ok, virtual = s.GetOrVirtual(key)
	require.False(t, ok)
	require.True(t, virtual)

	s.Commit(key, 5, 1, 1, types.SourceBootstrap)
	v, ok, virtual := s.GetOrVirtual(key)
	require.True(t, ok)
	require.False(t, virtual)
	require.Equal(t, 5, v)
}
