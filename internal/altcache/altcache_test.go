package altcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestLookupMissThenCommit(t *testing.T) {
	c := New(nil)
	var table types.Pubkey
	table[0] = 1

	_, ok := c.Lookup(table)
	require.False(t, ok)

	var acct types.Pubkey
	acct[1] = 2
	require.True(t, c.Commit(table, []types.Pubkey{acct}, 10, 1, types.SourceGRPC))

	got, ok := c.Lookup(table)
	require.True(t, ok)
	require.Equal(t, []types.Pubkey{acct}, got)
}

func TestSaveAndLoadHotlist(t *testing.T) {
	c := New(nil)
	var table types.Pubkey
	table[0] = 9
	c.Commit(table, []types.Pubkey{table}, 1, 1, types.SourceBootstrap)

	dir := t.TempDir()
	path := filepath.Join(dir, "hotlist.json")
	require.NoError(t, c.SaveHotlist(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "\"version\"")
	require.Contains(t, string(raw), "\"alts\"")

	c2 := New(nil)
	require.NoError(t, c2.LoadHotlist(path))
}

func TestLoadHotlistMissingFileIsNotError(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.LoadHotlist("/nonexistent/path/hotlist.json"))
}
