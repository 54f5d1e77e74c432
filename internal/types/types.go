// Package types holds the shared data model: account updates, the
// tagged-variant pool state, tick/bin arrays, topology snapshots, and the
// pipeline's intermediate result types.
package types

import (
	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Pubkey is a 32-byte opaque identifier. Equality is bytewise.
type Pubkey = solana.PublicKey

// Source identifies where an AccountUpdate or TxUpdate originated.
type Source string

const (
	SourceBootstrap Source = "bootstrap"
	SourceGRPC      Source = "grpc"
	SourcePending   Source = "pending"
)

// AccountUpdate is a leaf event: a single account's data at a point in the
// chain's history, ordered by (Slot, WriteVersion).
type AccountUpdate struct {
	Pubkey       Pubkey
	Owner        Pubkey
	Slot         uint64
	WriteVersion uint64
	Data         []byte
	Source       Source
}

// Venue is the closed set of AMM families this engine understands.
type Venue string

const (
	VenueCPPair       Venue = "cp-pair"      // bonding-pair constant product (PumpSwap)
	VenueCPBook       Venue = "cp-book"      // constant product w/ open-orders ref (Raydium V4)
	VenueConcentrated Venue = "concentrated" // tick-array CLMM (Raydium CLMM)
	VenueBinned       Venue = "binned"       // discretized bin AMM (Meteora DLMM)
)

// BinsPerArray is the venue constant for the Binned family's bin array size.
const BinsPerArray = 70

// FeeBps is a fee rate expressed in basis points (1/10000).
type FeeBps struct {
	LP       uint32
	Protocol uint32
}

// Total returns LP + Protocol basis points.
func (f FeeBps) Total() uint32 { return f.LP + f.Protocol }

// CPPairPayload carries the venue-specific fields for a bonding-pair CP pool.
type CPPairPayload struct {
	BaseMint   Pubkey
	QuoteMint  Pubkey
	BaseVault  Pubkey
	QuoteVault Pubkey
	LPMint     Pubkey
	Fee        *FeeBps // optional: sourced from fee_config PDA or the fee oracle
	AmmConfig  *Pubkey // optional: set when the fee lives in a separate config account
	BaseRes    uint64  // cached reserves, 0 if unknown
	QuoteRes   uint64
}

// CPBookPayload extends CPPairPayload with an open-orders reference.
type CPBookPayload struct {
	CPPairPayload
	OpenOrders Pubkey
	MarketID   Pubkey
}

// ConcentratedPayload carries CLMM fields.
type ConcentratedPayload struct {
	Token0Mint      Pubkey
	Token1Mint      Pubkey
	Token0Vault     Pubkey
	Token1Vault     Pubkey
	AmmConfig       Pubkey
	TickSpacing     uint16
	SqrtPriceX64    uint128.Uint128
	Liquidity       uint128.Uint128
	CurrentTick     int32
	TickArrayBitmap [16]uint64
}

// BinnedPayload carries Meteora-DLMM-style fields.
type BinnedPayload struct {
	TokenXMint               Pubkey
	TokenYMint               Pubkey
	ReserveX                 Pubkey
	ReserveY                 Pubkey
	Oracle                   Pubkey
	BinStep                  uint16
	ActiveID                 int32
	BaseFactor               uint16
	BaseFeePowerFactor       uint8
	ProtocolShare            uint16
	VariableFeeControl       uint32
	MaxVolatilityAccumulator uint32
	VolatilityAccumulator    uint32
	VolatilityReference      uint32
	LastUpdateTimestamp      int64
	BinArrayBitmap           [16]uint64 // existence bitmap
}

// PoolState is the tagged-variant pool representation. Exactly one of the
// payload pointers is non-nil, matching Venue.
type PoolState struct {
	Pool         Pubkey
	Venue        Venue
	Slot         uint64
	WriteVersion uint64

	CPPair       *CPPairPayload
	CPBook       *CPBookPayload
	Concentrated *ConcentratedPayload
	Binned       *BinnedPayload
}

// TickState is a single initialized (or virtual) tick within a TickArray.
type TickState struct {
	Initialized       bool
	LiquidityNet      math.Int // i128
	LiquidityGross    uint128.Uint128
	FeeGrowthOutside0 uint128.Uint128
	FeeGrowthOutside1 uint128.Uint128
}

// TickArray tiles the tick space for a Concentrated pool.
type TickArray struct {
	Pool       Pubkey
	StartIndex int32
	Ticks      []TickState // length = ticks-per-array for the venue
}

// Bin is a single discretized price bucket within a BinArray.
type Bin struct {
	AmountX uint64
	AmountY uint64
}

// BinArray tiles the bin space for a Binned pool.
type BinArray struct {
	LBPair     Pubkey
	Index      int64
	StartBinID int32
	Bins       [BinsPerArray]Bin
}

// VaultBalance is a decoded SPL token account balance.
type VaultBalance struct {
	Pubkey       Pubkey
	Amount       uint64
	Mint         Pubkey
	Slot         uint64
	WriteVersion uint64
}

// FrozenTopology is the immutable snapshot of exactly which accounts a
// simulation for Pool may read.
type FrozenTopology struct {
	Pool                     Pubkey
	Venue                    Venue
	BaseVault                Pubkey
	QuoteVault               Pubkey
	RequiredTickArrayIndexes []int32
	RequiredBinArrayIndexes  []int64
	AmmConfigRef             *Pubkey
	FrozenAtSlot             uint64
	FrozenAtMs               int64
}

// LifecycleState is a pool's position in the Discovered→...→Retired machine.
type LifecycleState string

const (
	LifecycleDiscovered LifecycleState = "Discovered"
	LifecycleFrozen     LifecycleState = "Frozen"
	LifecycleIncomplete LifecycleState = "Incomplete"
	LifecycleActive     LifecycleState = "Active"
	LifecycleRefreshing LifecycleState = "Refreshing"
	LifecycleRetired    LifecycleState = "Retired"
)

// Direction is the swap direction for a CP-family pool.
type Direction string

const (
	DirAtoB Direction = "AtoB"
	DirBtoA Direction = "BtoA"
)

// ExactSide distinguishes exact-input from exact-output swap legs.
type ExactSide string

const (
	ExactInput  ExactSide = "input"
	ExactOutput ExactSide = "output"
)

// SwapLeg is one hop of a (possibly multi-hop) swap.
type SwapLeg struct {
	ProgramID       Pubkey
	Pool            Pubkey
	Direction       Direction
	InputMint       Pubkey
	OutputMint      Pubkey
	InputAmount     uint64
	MinOutputAmount uint64
	ExactSide       ExactSide
}

// SimResult is the outcome of simulating one swap leg.
type SimResult struct {
	Success        bool
	OutputAmount   uint64
	NewPoolState   *PoolState
	PriceImpactBps uint32
	FeePaid        uint64
	Err            error
	LatencyNanos   int64
}

// PoolDelta is a pending transaction's predicted effect on a pool's vaults.
type PoolDelta struct {
	Pool        Pubkey
	VaultADelta math.Int // i128
	VaultBDelta math.Int // i128
}

// PendingEntry is an unconfirmed transaction's set of predicted deltas.
type PendingEntry struct {
	Signature [64]byte
	Slot      uint64
	Deltas    []PoolDelta
}

// Bundle is an ordered set of signed transactions submitted atomically.
type Bundle struct {
	ID           string
	Transactions [][]byte // wire-encoded, signed
	Tip          uint64
	TipAccount   Pubkey
	Blockhash    [32]byte
	CreatedAtMs  int64
}
