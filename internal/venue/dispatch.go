// Package venue dispatches an AccountUpdate to the venue-specific decoder
// by owner byte-equality: unknown owners are skipped/non-target, known
// owners with a non-matching discriminator are skipped/non-pool, and known
// owner + matching discriminator but a decode failure is an error that
// bumps a per-venue poolDecodeFailed counter.
package venue

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/types"
)

var (
	PumpSwapProgramID    = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	RaydiumAMMProgramID  = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RaydiumCPMMProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	RaydiumCLMMProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	MeteoraDLMMProgramID = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
)

// Outcome is the classification of a dispatch attempt, separate from a
// successful decode so callers can bump the right counter.
type Outcome string

const (
	OutcomeDecoded    Outcome = "decoded"
	OutcomeNonTarget  Outcome = "non_target" // unknown owner
	OutcomeNonPool    Outcome = "non_pool"   // known owner, discriminator mismatch
	OutcomeDecodeFail Outcome = "decode_failed"
)

// Decoder is implemented by each venue package.
type Decoder interface {
	Venue() types.Venue
	ProgramID() solana.PublicKey
	Discriminator() [8]byte
	IsPool(data []byte) bool
	DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error)
}

var registry []Decoder

// Register adds a venue decoder to the dispatch table. Called from each
// venue package's init().
func Register(d Decoder) { registry = append(registry, d) }

// Dispatch classifies and, when possible, decodes an AccountUpdate into a
// PoolState. The returned Venue is set whenever the owner matched a
// registered program (including on decode failure, so per-venue failure
// counters attribute correctly) and empty for non-target owners.
func Dispatch(owner solana.PublicKey, pubkey solana.PublicKey, data []byte) (*types.PoolState, types.Venue, Outcome, error) {
	for _, d := range registry {
		if d.ProgramID() != owner {
			continue
		}
		if !d.IsPool(data) {
			continue
		}
		ps, err := d.DecodePool(pubkey, data)
		if err != nil {
			return nil, d.Venue(), OutcomeDecodeFail, err
		}
		return ps, d.Venue(), OutcomeDecoded, nil
	}
	for _, d := range registry {
		if d.ProgramID() == owner {
			return nil, d.Venue(), OutcomeNonPool, nil
		}
	}
	return nil, "", OutcomeNonTarget, nil
}
