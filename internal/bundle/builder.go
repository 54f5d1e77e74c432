package bundle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/aerofoil/solmev/internal/types"
)

// Builder assembles the ordered [victimRaw, ourEnterTx, ourExitTx] bundle
// shape, attaching a tip instruction to the last of our transactions and
// signing with the configured payer.
type Builder struct {
	payer solana.PrivateKey
}

// NewBuilder constructs a Builder bound to a signing payer.
func NewBuilder(payer solana.PrivateKey) *Builder {
	return &Builder{payer: payer}
}

// BuildBackrun assembles a backrun bundle: the victim's raw wire bytes
// followed by our entry and exit transactions, the exit carrying a tip
// transfer to tipAccount.
func (b *Builder) BuildBackrun(victimRaw []byte, enterIxs, exitIxs []solana.Instruction, tipLamports uint64, tipAccount solana.PublicKey, blockhash solana.Hash) (*types.Bundle, error) {
	enterTx, err := b.buildSigned(enterIxs, blockhash)
	if err != nil {
		return nil, fmt.Errorf("bundle: build enter tx: %w", err)
	}

	exitIxs = append(exitIxs, system.NewTransferInstruction(tipLamports, b.payer.PublicKey(), tipAccount).Build())
	exitTx, err := b.buildSigned(exitIxs, blockhash)
	if err != nil {
		return nil, fmt.Errorf("bundle: build exit tx: %w", err)
	}

	var hashArr [32]byte
	copy(hashArr[:], blockhash[:])

	return &types.Bundle{
		Transactions: [][]byte{victimRaw, enterTx, exitTx},
		Tip:          tipLamports,
		TipAccount:   tipAccount,
		Blockhash:    hashArr,
	}, nil
}

func (b *Builder) buildSigned(ixs []solana.Instruction, blockhash solana.Hash) ([]byte, error) {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(b.payer.PublicKey()))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if b.payer.PublicKey().Equals(key) {
			return &b.payer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return tx.MarshalBinary()
}
