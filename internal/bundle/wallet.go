package bundle

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/aerofoil/solmev/internal/bootstrap"
)

// WSOL is the wrapped-SOL mint, the quote side our own enter/exit legs
// are funded in before a bundle is submitted.
var WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Wallet resolves and funds the associated token accounts a bundle's
// enter/exit legs need, ahead of BuildBackrun assembling the transactions.
type Wallet struct {
	client *bootstrap.Client
}

// NewWallet constructs a Wallet backed by client for account lookups.
func NewWallet(client *bootstrap.Client) *Wallet {
	return &Wallet{client: client}
}

// TokenBalance returns the owner's associated token account for mint and
// its current balance, used to decide whether WSOL needs covering before
// an enter leg is built.
func (w *Wallet) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, uint64, error) {
	res, err := w.client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: "jsonParsed"},
	)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if len(res.Value) == 0 {
		return solana.PublicKey{}, 0, errors.New("bundle: no token account found")
	}
	balRes, err := w.client.GetTokenAccountBalance(ctx, res.Value[0].Pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("bundle: get token account balance: %w", err)
	}
	amt, err := strconv.ParseUint(balRes.Value.Amount, 10, 64)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("bundle: parse token amount: %w", err)
	}
	return res.Value[0].Pubkey, amt, nil
}

// EnsureATA returns owner's associated token account for mint, building
// a create-ATA instruction into extra if the account does not exist yet.
func (w *Wallet) EnsureATA(ctx context.Context, owner, mint solana.PublicKey) (ata solana.PublicKey, extra []solana.Instruction, err error) {
	ata, _, err = solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("bundle: find associated token address: %w", err)
	}
	res, err := w.client.GetAccountInfo(ctx, ata)
	if err == nil && res != nil && res.Value != nil {
		return ata, nil, nil
	}
	createIx, err := associatedtokenaccount.NewCreateInstruction(owner, owner, mint).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("bundle: build create-ATA instruction: %w", err)
	}
	return ata, []solana.Instruction{createIx}, nil
}

// CoverWSOL returns the instructions that fund owner's WSOL account with
// amount lamports of native SOL and sync it, creating the account first
// if it does not exist. These are prepended to an enter leg's swap
// instructions so the leg's input side is funded within the same
// transaction.
func (w *Wallet) CoverWSOL(ctx context.Context, owner solana.PublicKey, amount uint64) ([]solana.Instruction, error) {
	wsolAccount, extra, err := w.EnsureATA(ctx, owner, WSOL)
	if err != nil {
		return nil, err
	}
	ixs := append([]solana.Instruction{}, extra...)

	transferIx, err := system.NewTransferInstruction(amount, owner, wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("bundle: build wsol transfer instruction: %w", err)
	}
	ixs = append(ixs, transferIx)

	syncIx, err := token.NewSyncNativeInstruction(wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("bundle: build sync-native instruction: %w", err)
	}
	ixs = append(ixs, syncIx)
	return ixs, nil
}

// CloseWSOL returns the instruction unwrapping owner's WSOL account back
// to native SOL, appended to an exit leg once the backrun swap is done.
func (w *Wallet) CloseWSOL(owner solana.PublicKey) (solana.Instruction, error) {
	wsolAccount, _, err := solana.FindAssociatedTokenAddress(owner, WSOL)
	if err != nil {
		return nil, fmt.Errorf("bundle: find associated token address: %w", err)
	}
	closeIx, err := token.NewCloseAccountInstruction(wsolAccount, owner, owner, []solana.PublicKey{}).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("bundle: build close-account instruction: %w", err)
	}
	return closeIx, nil
}
