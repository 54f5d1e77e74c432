package txdecode

import "github.com/aerofoil/solmev/internal/types"

// ALTLookup resolves an address lookup table's full account list.
type ALTLookup func(table types.Pubkey) ([]types.Pubkey, bool)

// Resolved is a message's fully bound account-keys list, in binding
// order: staticKeys ++ loadedWritable ++ loadedReadonly.
type Resolved struct {
	AccountKeys []types.Pubkey
	AltMisses   []types.Pubkey
}

// Resolve binds msg's address table lookups against lookup, consulted
// synchronously. A miss produces a structured AltMisses entry and
// success=false; it never blocks (lookup is a cache read, not a fetch).
func Resolve(msg Message, lookup ALTLookup) (Resolved, bool) {
	if !msg.IsVersioned || len(msg.AddressTableLookups) == 0 {
		return Resolved{AccountKeys: msg.StaticAccountKeys}, true
	}

	var loadedWritable, loadedReadonly []types.Pubkey
	var misses []types.Pubkey

	for _, lu := range msg.AddressTableLookups {
		table, ok := lookup(lu.Key)
		if !ok {
			misses = append(misses, lu.Key)
			continue
		}
		for _, idx := range lu.WritableIndexes {
			if int(idx) >= len(table) {
				misses = append(misses, lu.Key)
				continue
			}
			loadedWritable = append(loadedWritable, table[idx])
		}
		for _, idx := range lu.ReadonlyIndexes {
			if int(idx) >= len(table) {
				misses = append(misses, lu.Key)
				continue
			}
			loadedReadonly = append(loadedReadonly, table[idx])
		}
	}

	if len(misses) > 0 {
		return Resolved{AltMisses: misses}, false
	}

	keys := make([]types.Pubkey, 0, len(msg.StaticAccountKeys)+len(loadedWritable)+len(loadedReadonly))
	keys = append(keys, msg.StaticAccountKeys...)
	keys = append(keys, loadedWritable...)
	keys = append(keys, loadedReadonly...)

	return Resolved{AccountKeys: keys}, true
}
