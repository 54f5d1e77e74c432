// Package pump decodes the bonding-pair constant-product venue (PumpSwap
// style AMM pools). This is a CP-Pair family whose fee is not a
// first-class pool field and must instead be learned by the fee oracle.
package pump

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

// PoolDataSize is the minimum expected account length for a bonding pair.
const PoolDataSize = 211

const (
	offBump       = 8
	offIndex      = 9
	offCreator    = 11
	offBaseMint   = offCreator + 32
	offQuoteMint  = offBaseMint + 32
	offLPMint     = offQuoteMint + 32
	offBaseVault  = offLPMint + 32
	offQuoteVault = offBaseVault + 32
)

var poolDiscriminator = [8]byte{0xf1, 0x9a, 0x6d, 0x04, 0x11, 0xb1, 0x6d, 0xbc} // anchor("account","Pool")-shaped tag

type Venue struct{}

func init() { venue.Register(Venue{}) }

func (Venue) Venue() types.Venue          { return types.VenueCPPair }
func (Venue) ProgramID() solana.PublicKey { return venue.PumpSwapProgramID }
func (Venue) Discriminator() [8]byte      { return poolDiscriminator }

func (v Venue) IsPool(data []byte) bool {
	if len(data) < PoolDataSize {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == v.Discriminator()
}

// DecodePool zero-copy parses a bonding-pair account into a CP-Pair
// PoolState. No reserves are read here — for this venue reserves live in
// the vault cache, not the pool account.
func (v Venue) DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error) {
	if !v.IsPool(data) {
		return nil, fmt.Errorf("pump: discriminator mismatch or short account")
	}
	baseMint, err := codec.Pubkey(data, offBaseMint)
	if err != nil {
		return nil, fmt.Errorf("pump: base mint: %w", err)
	}
	quoteMint, err := codec.Pubkey(data, offQuoteMint)
	if err != nil {
		return nil, fmt.Errorf("pump: quote mint: %w", err)
	}
	lpMint, err := codec.Pubkey(data, offLPMint)
	if err != nil {
		return nil, fmt.Errorf("pump: lp mint: %w", err)
	}
	baseVault, err := codec.Pubkey(data, offBaseVault)
	if err != nil {
		return nil, fmt.Errorf("pump: base vault: %w", err)
	}
	quoteVault, err := codec.Pubkey(data, offQuoteVault)
	if err != nil {
		return nil, fmt.Errorf("pump: quote vault: %w", err)
	}

	return &types.PoolState{
		Pool:  pubkey,
		Venue: types.VenueCPPair,
		CPPair: &types.CPPairPayload{
			BaseMint:   baseMint,
			QuoteMint:  quoteMint,
			BaseVault:  baseVault,
			QuoteVault: quoteVault,
			LPMint:     lpMint,
			Fee:        nil, // sourced from the fee oracle; see internal/feeoracle
		},
	}, nil
}
