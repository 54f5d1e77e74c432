// Package raydiumamm decodes the CP-Book venue: a constant-product pool
// that carries an open-orders/market reference alongside its vaults, and
// whose effective reserves are PnL-adjusted against open orders before a
// swap is simulated.
package raydiumamm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

// Span is the fixed on-chain account length for a Raydium V4 pool.
const Span = 752

// Field offsets within the raw account, derived from the sequential
// layout of the upstream pool struct (24 u64 header fields, 8 PnL/open
// time fields, the swap-amount block, then the pubkey block).
const (
	offTradeFeeNumerator   = 18 * 8
	offTradeFeeDenominator = 19 * 8
	offVaultBlock          = 24*8 + 8*8 + (16 + 16 + 8 + 16 + 16 + 8)
)

const (
	offBaseVault  = offVaultBlock
	offQuoteVault = offBaseVault + 32
	offBaseMint   = offQuoteVault + 32
	offQuoteMint  = offBaseMint + 32
	offLPMint     = offQuoteMint + 32
	offOpenOrders = offLPMint + 32
	offMarketID   = offOpenOrders + 32
)

type Venue struct{}

func init() { venue.Register(Venue{}) }

func (Venue) Venue() types.Venue          { return types.VenueCPBook }
func (Venue) ProgramID() solana.PublicKey { return venue.RaydiumAMMProgramID }
func (Venue) Discriminator() [8]byte      { return [8]byte{} } // no Anchor tag; dispatch by owner+length

func (Venue) IsPool(data []byte) bool { return len(data) == Span }

func (v Venue) DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error) {
	if !v.IsPool(data) {
		return nil, fmt.Errorf("raydiumamm: expected %d bytes, got %d", Span, len(data))
	}
	feeNum, err := codec.U64(data, offTradeFeeNumerator)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: fee numerator: %w", err)
	}
	feeDen, err := codec.U64(data, offTradeFeeDenominator)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: fee denominator: %w", err)
	}
	baseVault, err := codec.Pubkey(data, offBaseVault)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: base vault: %w", err)
	}
	quoteVault, err := codec.Pubkey(data, offQuoteVault)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: quote vault: %w", err)
	}
	baseMint, err := codec.Pubkey(data, offBaseMint)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: base mint: %w", err)
	}
	quoteMint, err := codec.Pubkey(data, offQuoteMint)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: quote mint: %w", err)
	}
	lpMint, err := codec.Pubkey(data, offLPMint)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: lp mint: %w", err)
	}
	openOrders, err := codec.Pubkey(data, offOpenOrders)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: open orders: %w", err)
	}
	marketID, err := codec.Pubkey(data, offMarketID)
	if err != nil {
		return nil, fmt.Errorf("raydiumamm: market id: %w", err)
	}

	var feeBps uint32
	if feeDen != 0 {
		feeBps = uint32(feeNum * 10000 / feeDen)
	}

	return &types.PoolState{
		Pool:  pubkey,
		Venue: types.VenueCPBook,
		CPBook: &types.CPBookPayload{
			CPPairPayload: types.CPPairPayload{
				BaseMint:   baseMint,
				QuoteMint:  quoteMint,
				BaseVault:  baseVault,
				QuoteVault: quoteVault,
				LPMint:     lpMint,
				Fee:        &types.FeeBps{LP: feeBps},
			},
			OpenOrders: openOrders,
			MarketID:   marketID,
		},
	}, nil
}
