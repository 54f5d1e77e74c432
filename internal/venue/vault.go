package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
)

// tokenAccountSize is the SPL Token program's fixed account length.
const tokenAccountSize = 165

// IsTokenAccount reports whether owner is the SPL Token program and data
// is shaped like a token account rather than a mint or multisig, which the
// same program also owns.
func IsTokenAccount(owner solana.PublicKey, data []byte) bool {
	return owner == solana.TokenProgramID && len(data) == tokenAccountSize
}

// DecodeVaultBalance reads a token account's mint and amount fields:
// mint@0, owner@32, amount@64, the SPL Token program's fixed account
// layout.
func DecodeVaultBalance(pubkey solana.PublicKey, data []byte) (*types.VaultBalance, error) {
	mint, err := codec.Pubkey(data, 0)
	if err != nil {
		return nil, fmt.Errorf("venue: vault mint: %w", err)
	}
	amount, err := codec.U64(data, 64)
	if err != nil {
		return nil, fmt.Errorf("venue: vault amount: %w", err)
	}
	return &types.VaultBalance{Pubkey: pubkey, Mint: mint, Amount: amount}, nil
}
