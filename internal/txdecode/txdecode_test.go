package txdecode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func buildLegacyMessage(numKeys int, ixData []byte) []byte {
	buf := []byte{1, 0, 1} // header: 1 sig, 0 ro-signed, 1 ro-unsigned
	buf = append(buf, byte(numKeys))
	for i := 0; i < numKeys; i++ {
		key := make([]byte, 32)
		key[0] = byte(i + 1)
		buf = append(buf, key...)
	}
	buf = append(buf, make([]byte, 32)...) // blockhash
	buf = append(buf, 1)                   // 1 instruction
	buf = append(buf, 0)                   // program index
	buf = append(buf, 2, 0, 1)              // 2 accounts: idx 0, idx 1
	buf = append(buf, byte(len(ixData)))
	buf = append(buf, ixData...)
	return buf
}

func TestParseMessageLegacy(t *testing.T) {
	data := buildLegacyMessage(3, []byte{0xAA, 0xBB})
	msg, err := ParseMessage(data)
	require.NoError(t, err)
	require.False(t, msg.IsVersioned)
	require.Len(t, msg.StaticAccountKeys, 3)
	require.Len(t, msg.Instructions, 1)
	require.Equal(t, []byte{0xAA, 0xBB}, msg.Instructions[0].Data)
}

func TestResolveNoLookupsPassesThroughStatic(t *testing.T) {
	data := buildLegacyMessage(2, nil)
	msg, err := ParseMessage(data)
	require.NoError(t, err)

	resolved, ok := Resolve(msg, func(types.Pubkey) ([]types.Pubkey, bool) { return nil, false })
	require.True(t, ok)
	require.Equal(t, msg.StaticAccountKeys, resolved.AccountKeys)
}

func TestResolveBindsWritableThenReadonly(t *testing.T) {
	var table types.Pubkey
	table[0] = 0xFE

	var a, b, c types.Pubkey
	a[1] = 1
	b[1] = 2
	c[1] = 3

	msg := Message{
		IsVersioned:       true,
		StaticAccountKeys: []types.Pubkey{a},
		AddressTableLookups: []AddressTableLookup{
			{Key: table, WritableIndexes: []uint8{0}, ReadonlyIndexes: []uint8{1}},
		},
	}

	lookup := func(key types.Pubkey) ([]types.Pubkey, bool) {
		if key == table {
			return []types.Pubkey{b, c}, true
		}
		return nil, false
	}

	resolved, ok := Resolve(msg, lookup)
	require.True(t, ok)
	require.Equal(t, []types.Pubkey{a, b, c}, resolved.AccountKeys)
}

func TestResolveReportsAltMisses(t *testing.T) {
	var missingTable types.Pubkey
	missingTable[0] = 0x01

	msg := Message{
		IsVersioned:         true,
		StaticAccountKeys:   []types.Pubkey{},
		AddressTableLookups: []AddressTableLookup{{Key: missingTable, WritableIndexes: []uint8{0}}},
	}

	resolved, ok := Resolve(msg, func(types.Pubkey) ([]types.Pubkey, bool) { return nil, false })
	require.False(t, ok)
	require.Equal(t, []types.Pubkey{missingTable}, resolved.AltMisses)
}
