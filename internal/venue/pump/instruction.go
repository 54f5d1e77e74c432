package pump

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/anchor"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
)

// GlobalConfig is the bonding-pair venue's singleton config account,
// referenced in every swap instruction's account list.
var GlobalConfig = solana.MustPublicKeyFromBase58("ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw")

// SwapAccounts is the binding account order for a bonding-pair swap
// instruction: [pool, globalConfig, baseVault, quoteVault, userBaseAta,
// userQuoteAta, userAuth, tokenProgram...].
type SwapAccounts struct {
	Pool          solana.PublicKey
	GlobalConfig  solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	UserBaseAta   solana.PublicKey
	UserQuoteAta  solana.PublicKey
	UserAuth      solana.PublicKey
	TokenProgram  solana.PublicKey
	TokenProgram2 solana.PublicKey
}

// SwapInstruction encodes the bonding-pair swap wire contract:
// discriminator(8) || amountIn(u64 LE) || minOut(u64 LE) || exactSideFlag(u8).
type SwapInstruction struct {
	bin.BaseVariant
	AmountIn  uint64
	MinOut    uint64
	ExactSide types.ExactSide
	accounts  SwapAccounts
}

// NewSwapInstruction builds the instruction for one SwapLeg against this
// venue, with the account order and data layout DecodePool's callers
// expect.
func NewSwapInstruction(accounts SwapAccounts, amountIn, minOut uint64, exactSide types.ExactSide) *SwapInstruction {
	inst := &SwapInstruction{
		AmountIn:  amountIn,
		MinOut:    minOut,
		ExactSide: exactSide,
		accounts:  accounts,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}

func (inst *SwapInstruction) ProgramID() solana.PublicKey { return venue.PumpSwapProgramID }

func (inst *SwapInstruction) Accounts() []*solana.AccountMeta {
	a := inst.accounts
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.Pool, false, false),
		solana.NewAccountMeta(a.GlobalConfig, false, false),
		solana.NewAccountMeta(a.BaseVault, true, false),
		solana.NewAccountMeta(a.QuoteVault, true, false),
		solana.NewAccountMeta(a.UserBaseAta, true, false),
		solana.NewAccountMeta(a.UserQuoteAta, true, false),
		solana.NewAccountMeta(a.UserAuth, true, true),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.TokenProgram2, false, false),
	}
}

// Data encodes discriminator(8) || amountIn(u64 LE) || minOut(u64 LE) ||
// exactSideFlag(u8). exactSideFlag is 0 for an exact-input leg, 1 for
// exact-output.
func (inst *SwapInstruction) Data() ([]byte, error) {
	name := "swap"
	if inst.ExactSide == types.ExactOutput {
		name = "swap_exact_out"
	}
	disc := anchor.GetDiscriminator("global", name)

	buf := new(bytes.Buffer)
	if _, err := buf.Write(disc); err != nil {
		return nil, fmt.Errorf("pump: write discriminator: %w", err)
	}
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(inst.AmountIn, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("pump: encode amountIn: %w", err)
	}
	if err := enc.WriteUint64(inst.MinOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("pump: encode minOut: %w", err)
	}
	var flag uint8
	if inst.ExactSide == types.ExactOutput {
		flag = 1
	}
	if err := enc.WriteUint8(flag); err != nil {
		return nil, fmt.Errorf("pump: encode exactSideFlag: %w", err)
	}
	return buf.Bytes(), nil
}
