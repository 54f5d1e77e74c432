// Package raydiumclmm decodes the Concentrated venue: a tick-array based
// CLMM pool, plus its tick-array accounts.
package raydiumclmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"cosmossdk.io/math"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

// PoolSpan is the fixed account length for a CLMM pool, including the
// 8-byte discriminator.
const PoolSpan = 1544

// TicksPerArray mirrors the upstream program's fixed array width.
const TicksPerArray = 60

var poolDiscriminator = [8]byte{0xf7, 0xc6, 0x0c, 0x5a, 0x4d, 0x7f, 0x29, 0xdd}
var tickArrayDiscriminator = [8]byte{0xc0, 0x7a, 0xfb, 0xdb, 0x80, 0x15, 0x82, 0x23}

type Venue struct{}

func init() { venue.Register(Venue{}) }

func (Venue) Venue() types.Venue          { return types.VenueConcentrated }
func (Venue) ProgramID() solana.PublicKey { return venue.RaydiumCLMMProgramID }
func (Venue) Discriminator() [8]byte      { return poolDiscriminator }

func (v Venue) IsPool(data []byte) bool {
	if len(data) < PoolSpan {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == v.Discriminator()
}

// DecodePool walks the CLMM account layout field by field, mirroring the
// upstream program's struct order: bump, ammConfig, owner, two mints, two
// vaults, observationKey, decimals, tickSpacing, liquidity, sqrtPriceX64,
// tickCurrent, observation fields, fee-growth globals, protocol fees,
// swap-amount counters, status, reward infos, then the tick-array bitmap.
func (v Venue) DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error) {
	if !v.IsPool(data) {
		return nil, fmt.Errorf("raydiumclmm: discriminator mismatch or short account")
	}
	off := 8
	off += 1 // bump

	ammConfig, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: amm config: %w", err)
	}
	off += 32
	off += 32 // owner

	token0, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: token mint 0: %w", err)
	}
	off += 32
	token1, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: token mint 1: %w", err)
	}
	off += 32
	vault0, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: token vault 0: %w", err)
	}
	off += 32
	vault1, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: token vault 1: %w", err)
	}
	off += 32
	off += 32 // observationKey
	off += 1  // mintDecimals0
	off += 1  // mintDecimals1

	tickSpacing, err := codec.U16(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: tick spacing: %w", err)
	}
	off += 2

	liqLo, liqHi, err := codec.U128LE(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: liquidity: %w", err)
	}
	off += 16
	liquidity := uint128.New(liqLo, liqHi)

	priceLo, priceHi, err := codec.U128LE(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: sqrt price: %w", err)
	}
	off += 16
	sqrtPrice := uint128.New(priceLo, priceHi)

	tickCurrent, err := codec.I32(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: tick current: %w", err)
	}
	off += 4
	off += 2 // observationIndex
	off += 2 // observationUpdateDuration
	off += 16 // feeGrowthGlobal0X64
	off += 16 // feeGrowthGlobal1X64
	off += 8  // protocolFeesToken0
	off += 8  // protocolFeesToken1
	off += 16 * 4 // 4 swap-amount u128 counters
	off += 1      // status
	off += 7      // padding

	const rewardInfoSize = 1 + 8 + 8 + 8 + 16 + 8 + 8 + 32 + 32 + 32 + 16
	off += rewardInfoSize * 3

	var bitmap [16]uint64
	for i := 0; i < 16; i++ {
		w, err := codec.U64(data, off)
		if err != nil {
			return nil, fmt.Errorf("raydiumclmm: tick array bitmap word %d: %w", i, err)
		}
		bitmap[i] = w
		off += 8
	}

	return &types.PoolState{
		Pool:  pubkey,
		Venue: types.VenueConcentrated,
		Concentrated: &types.ConcentratedPayload{
			Token0Mint:      token0,
			Token1Mint:      token1,
			Token0Vault:     vault0,
			Token1Vault:     vault1,
			AmmConfig:       ammConfig,
			TickSpacing:     tickSpacing,
			SqrtPriceX64:    sqrtPrice,
			Liquidity:       liquidity,
			CurrentTick:     tickCurrent,
			TickArrayBitmap: bitmap,
		},
	}, nil
}

// FeeRateDenominator scales AmmConfig fee rates: a tradeFeeRate of 2500
// is 0.25%.
const FeeRateDenominator = 1_000_000

// AmmConfig is the Concentrated venue's fee-config account. The trade fee
// is a numerator over FeeRateDenominator; the simulator must use this
// rate, never a hard-coded one.
type AmmConfig struct {
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
}

// ammConfig field offsets: discriminator(8), bump(1), index(2), owner(32),
// then the fee-rate block.
const (
	offCfgProtocolFeeRate = 8 + 1 + 2 + 32
	offCfgTradeFeeRate    = offCfgProtocolFeeRate + 4
	offCfgTickSpacing     = offCfgTradeFeeRate + 4
	offCfgFundFeeRate     = offCfgTickSpacing + 2
)

// DecodeAmmConfig reads the fee-config fields at their fixed offsets.
func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	protocolFeeRate, err := codec.U32(data, offCfgProtocolFeeRate)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: protocol fee rate: %w", err)
	}
	tradeFeeRate, err := codec.U32(data, offCfgTradeFeeRate)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: trade fee rate: %w", err)
	}
	tickSpacing, err := codec.U16(data, offCfgTickSpacing)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: config tick spacing: %w", err)
	}
	fundFeeRate, err := codec.U32(data, offCfgFundFeeRate)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: fund fee rate: %w", err)
	}
	return &AmmConfig{
		ProtocolFeeRate: protocolFeeRate,
		TradeFeeRate:    tradeFeeRate,
		TickSpacing:     tickSpacing,
		FundFeeRate:     fundFeeRate,
	}, nil
}

// TradeFeeBps converts the config's trade fee rate to basis points.
func (c *AmmConfig) TradeFeeBps() uint32 {
	return uint32(uint64(c.TradeFeeRate) * 10000 / FeeRateDenominator)
}

// IsTickArray reports whether data is a tick-array account for this venue.
func IsTickArray(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == tickArrayDiscriminator
}

// DecodeTickArray parses a tick-array account: discriminator, pool ref,
// startTickIndex, then TicksPerArray fixed ticks each carrying liquidityNet
// (i128) and liquidityGross (u128).
func DecodeTickArray(pool solana.PublicKey, data []byte) (*types.TickArray, error) {
	if !IsTickArray(data) {
		return nil, fmt.Errorf("raydiumclmm: not a tick array account")
	}
	off := 8
	off += 32 // poolId ref (recomputed from argument pool, not re-read)

	startIndex, err := codec.I32(data, off)
	if err != nil {
		return nil, fmt.Errorf("raydiumclmm: tick array start index: %w", err)
	}
	off += 4

	ticks := make([]types.TickState, 0, TicksPerArray)
	const tickSize = 4 + 16 + 16 + 16 + 16 + 1 + 13 // index + liquidityNet + liquidityGross + 2 feeGrowth + initialized + padding, approximate upstream layout
	for i := 0; i < TicksPerArray; i++ {
		base := off + i*tickSize
		if base+tickSize > len(data) {
			break
		}
		liqNetLo, liqNetHi, err := codec.U128LE(data, base+4)
		if err != nil {
			return nil, fmt.Errorf("raydiumclmm: tick %d liquidityNet: %w", i, err)
		}
		liqGrossLo, liqGrossHi, err := codec.U128LE(data, base+20)
		if err != nil {
			return nil, fmt.Errorf("raydiumclmm: tick %d liquidityGross: %w", i, err)
		}
		liquidityGross := uint128.New(liqGrossLo, liqGrossHi)
		liquidityNet := i128FromTwosComplement(liqNetLo, liqNetHi)
		initialized := liquidityGross.Big().Sign() != 0
		ticks = append(ticks, types.TickState{
			Initialized:    initialized,
			LiquidityNet:   liquidityNet,
			LiquidityGross: liquidityGross,
		})
	}

	return &types.TickArray{
		Pool:       pool,
		StartIndex: startIndex,
		Ticks:      ticks,
	}, nil
}

// i128FromTwosComplement interprets a 128-bit little-endian two's
// complement pair as a signed math.Int, used for liquidityNet which can be
// negative (liquidity removed when the tick is crossed downward).
func i128FromTwosComplement(lo, hi uint64) math.Int {
	u := uint128.New(lo, hi)
	if hi>>63 == 0 {
		return math.NewIntFromBigInt(u.Big())
	}
	// negative: two's complement over 128 bits -> -(~u + 1)
	notLo := ^lo
	notHi := ^hi
	inc := uint128.New(notLo, notHi)
	one := uint128.From64(1)
	mag := inc.Add(one)
	return math.NewIntFromBigInt(mag.Big()).Neg()
}
