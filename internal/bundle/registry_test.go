package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestRegistryPutGetTransition(t *testing.T) {
	r := NewRegistry(2)
	b := types.Bundle{ID: "a"}
	r.Put(&Record{Bundle: b, Status: StatusBuilt})

	rec, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, StatusBuilt, rec.Status)

	r.Transition("a", StatusSubmitted, "relay-id-1", nil)
	rec, ok = r.Get("a")
	require.True(t, ok)
	require.Equal(t, StatusSubmitted, rec.Status)
	require.Equal(t, "relay-id-1", rec.RelayID)
}

func TestRegistryEvictsLRU(t *testing.T) {
	r := NewRegistry(1)
	r.Put(&Record{Bundle: types.Bundle{ID: "a"}, Status: StatusBuilt})
	r.Put(&Record{Bundle: types.Bundle{ID: "b"}, Status: StatusBuilt})

	_, ok := r.Get("a")
	require.False(t, ok, "a should have been evicted")
	_, ok = r.Get("b")
	require.True(t, ok)
}
