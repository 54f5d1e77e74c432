// Package meteoradlmm decodes the Binned venue: a discretized-bin AMM
// pool plus its bin-array accounts.
package meteoradlmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

var poolDiscriminator = [8]byte{0xf1, 0x9a, 0x6d, 0xc8, 0xaf, 0xee, 0x42, 0x1c}
var binArrayDiscriminator = [8]byte{0x5c, 0xfa, 0x61, 0xcd, 0x1b, 0xda, 0xf9, 0x45}

type Venue struct{}

func init() { venue.Register(Venue{}) }

func (Venue) Venue() types.Venue          { return types.VenueBinned }
func (Venue) ProgramID() solana.PublicKey { return venue.MeteoraDLMMProgramID }
func (Venue) Discriminator() [8]byte      { return poolDiscriminator }

func (v Venue) IsPool(data []byte) bool {
	if len(data) < 600 {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == v.Discriminator()
}

// DecodePool follows the upstream program's field order exactly,
// including its one documented quirk: the oracle field sits at a fixed
// offset (552) reached by a direct jump rather than accumulation through
// the two reward-info entries, because the reward-info padding does not
// tile evenly with the preceding fields.
func (v Venue) DecodePool(pubkey solana.PublicKey, data []byte) (*types.PoolState, error) {
	if !v.IsPool(data) {
		return nil, fmt.Errorf("meteoradlmm: discriminator mismatch or short account")
	}
	off := 8

	baseFactor, err := codec.U16(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: base factor: %w", err)
	}
	off += 2
	off += 2 // filterPeriod
	off += 2 // decayPeriod
	off += 2 // reductionFactor

	variableFeeControl, err := codec.U32(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: variable fee control: %w", err)
	}
	off += 4

	maxVolatilityAccumulator, err := codec.U32(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: max volatility accumulator: %w", err)
	}
	off += 4
	off += 4 // minBinId
	off += 4 // maxBinId

	protocolShare, err := codec.U16(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: protocol share: %w", err)
	}
	off += 2

	baseFeePowerFactor, err := codec.U8(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: base fee power factor: %w", err)
	}
	off += 1
	off += 5 // parameters padding

	volatilityAccumulator, err := codec.U32(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: volatility accumulator: %w", err)
	}
	off += 4
	volatilityReference, err := codec.U32(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: volatility reference: %w", err)
	}
	off += 4
	off += 4 // indexReference
	off += 4 // vParameters padding

	lastUpdateTimestamp, err := codec.I64(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: last update timestamp: %w", err)
	}
	off += 8
	off += 8 // vParameters trailing padding

	off += 1 // bumpSeed
	off += 2 // binStepSeed
	off += 1 // pairType

	activeID, err := codec.I32(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: active id: %w", err)
	}
	off += 4

	binStep, err := codec.U16(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: bin step: %w", err)
	}
	off += 2
	off += 1 // status
	off += 1 // requireBaseFactorSeed
	off += 2 // baseFactorSeed
	off += 1 // activationType
	off += 1 // creatorPoolOnOffControl

	tokenXMint, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: token x mint: %w", err)
	}
	off += 32
	tokenYMint, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: token y mint: %w", err)
	}
	off += 32
	reserveX, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: reserve x: %w", err)
	}
	off += 32
	reserveY, err := codec.Pubkey(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: reserve y: %w", err)
	}
	_ = off

	oracleOff := 552
	oracle, err := codec.Pubkey(data, oracleOff)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: oracle: %w", err)
	}
	off = oracleOff + 32

	var bitmap [16]uint64
	for i := 0; i < 16; i++ {
		w, err := codec.U64(data, off)
		if err != nil {
			return nil, fmt.Errorf("meteoradlmm: bin array bitmap word %d: %w", i, err)
		}
		bitmap[i] = w
		off += 8
	}

	return &types.PoolState{
		Pool:  pubkey,
		Venue: types.VenueBinned,
		Binned: &types.BinnedPayload{
			TokenXMint:               tokenXMint,
			TokenYMint:               tokenYMint,
			ReserveX:                 reserveX,
			ReserveY:                 reserveY,
			Oracle:                   oracle,
			BinStep:                  binStep,
			ActiveID:                 activeID,
			BaseFactor:               baseFactor,
			BaseFeePowerFactor:       baseFeePowerFactor,
			ProtocolShare:            protocolShare,
			VariableFeeControl:       variableFeeControl,
			MaxVolatilityAccumulator: maxVolatilityAccumulator,
			VolatilityAccumulator:    volatilityAccumulator,
			VolatilityReference:      volatilityReference,
			LastUpdateTimestamp:      lastUpdateTimestamp,
			BinArrayBitmap:           bitmap,
		},
	}, nil
}

// IsBinArray reports whether data is a bin-array account for this venue.
func IsBinArray(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	var got [8]byte
	copy(got[:], data[:8])
	return got == binArrayDiscriminator
}

// DecodeBinArray parses a bin-array account: discriminator, index (i64),
// lbPair ref, then BinsPerArray fixed bins of (amountX, amountY) u64 pairs.
func DecodeBinArray(lbPair solana.PublicKey, data []byte) (*types.BinArray, error) {
	if !IsBinArray(data) {
		return nil, fmt.Errorf("meteoradlmm: not a bin array account")
	}
	off := 8
	index, err := codec.I64(data, off)
	if err != nil {
		return nil, fmt.Errorf("meteoradlmm: bin array index: %w", err)
	}
	off += 8
	off += 32 // lbPair ref (recomputed from argument, not re-read)

	var arr types.BinArray
	arr.LBPair = lbPair
	arr.Index = index
	arr.StartBinID = int32(index) * types.BinsPerArray

	for i := 0; i < types.BinsPerArray; i++ {
		base := off + i*16
		if base+16 > len(data) {
			break
		}
		amountX, err := codec.U64(data, base)
		if err != nil {
			return nil, fmt.Errorf("meteoradlmm: bin %d amount x: %w", i, err)
		}
		amountY, err := codec.U64(data, base+8)
		if err != nil {
			return nil, fmt.Errorf("meteoradlmm: bin %d amount y: %w", i, err)
		}
		arr.Bins[i] = types.Bin{AmountX: amountX, AmountY: amountY}
	}
	return &arr, nil
}
