// Package raydiumcpmm decodes the CP-Pair venue whose fee is sourced from
// a separate AmmConfig account rather than living on the pool itself.
package raydiumcpmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

// Span is the fixed account length, including the 8-byte discriminator.
const Span = 584

var poolDiscriminator = [8]byte{0xf7, 0x13, 0xb6, 0x88, 0x2a, 0x9d, 0xbb, 0x1e}

// Offsets below already include the 8-byte discriminator prefix.
const (
	offAmmConfig   = 8
	offToken0Vault = offAmmConfig + 32*2 // skip PoolCreator
	offToken1Vault = offToken0Vault + 32
	offLPMint      = offToken1Vault + 32
	offToken0Mint  = offLPMint + 32
	offToken1Mint  = offToken0Mint + 32
)

type Venue struct{}

func init() { venue.Register(Venue{}) }

func (Venue) Venue() types.Venue          { return types.VenueCPPair }
func (Venue) ProgramID() solana.PublicKey { return venue.RaydiumCPMMProgramID }
func (Venue) Discriminator() [8]byte      { return poolDiscriminator }

func (v Venue) IsPool(data []byte) bool {
	if len(data) < Span {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == v.Discriminator()
}

func (v Venue) DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error) {
	if !v.IsPool(data) {
		return nil, fmt.Errorf("raydiumcpmm: discriminator mismatch or short account")
	}
	ammConfig, err := codec.Pubkey(data, offAmmConfig)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: amm config: %w", err)
	}
	token0Vault, err := codec.Pubkey(data, offToken0Vault)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: token0 vault: %w", err)
	}
	token1Vault, err := codec.Pubkey(data, offToken1Vault)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: token1 vault: %w", err)
	}
	lpMint, err := codec.Pubkey(data, offLPMint)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: lp mint: %w", err)
	}
	token0Mint, err := codec.Pubkey(data, offToken0Mint)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: token0 mint: %w", err)
	}
	token1Mint, err := codec.Pubkey(data, offToken1Mint)
	if err != nil {
		return nil, fmt.Errorf("raydiumcpmm: token1 mint: %w", err)
	}

	return &types.PoolState{
		Pool:  pubkey,
		Venue: types.VenueCPPair,
		CPPair: &types.CPPairPayload{
			BaseMint:   token0Mint,
			QuoteMint:  token1Mint,
			BaseVault:  token0Vault,
			QuoteVault: token1Vault,
			LPMint:     lpMint,
			Fee:        nil, // not decoded from the AmmConfig account; the quoter uses the fee oracle or its fallback fee
			AmmConfig:  &ammConfig,
		},
	}, nil
}
