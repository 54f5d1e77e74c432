package bootstrap

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client is the rate-limited RPC surface used at the two bootstrap
// suspension points: initial pool/vault hydration before the gRPC stream
// catches up, and on-miss ALT fetch.
type Client struct {
	rpcClient *rpc.Client
	limiter   *RateLimiter
}

// NewClient constructs a Client against endpoint, admitting at most
// requestsPerSecond calls through the shared RateLimiter.
func NewClient(endpoint string, requestsPerSecond int) *Client {
	return &Client{
		rpcClient: rpc.New(endpoint),
		limiter:   NewRateLimiter(requestsPerSecond),
	}
}

// GetAccountInfo fetches a single account at processed commitment,
// used to hydrate a pool, vault, tick array, bin array, or amm config
// during bootstrap.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentProcessed,
	})
}

// GetMultipleAccounts fetches several accounts in one round trip.
func (c *Client) GetMultipleAccounts(ctx context.Context, accounts []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpcClient.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentProcessed,
	})
}

// GetProgramAccounts runs a filtered program-account scan, used to
// discover pools by venue program ID and mint pair at startup.
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpcClient.GetProgramAccountsWithOpts(ctx, programID, opts)
}

// GetTokenAccountsByOwner fetches owner's token accounts for a given
// mint, used to resolve or verify a wallet's ATA before funding it.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpcClient.GetTokenAccountsByOwner(ctx, owner, conf, opts)
}

// GetTokenAccountBalance fetches a single token account's balance.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpcClient.GetTokenAccountBalance(ctx, account, commitment)
}

// GetLatestBlockhash fetches a blockhash for bundle transaction
// construction in internal/bundle.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	res, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

// clockAccountDataSize is the fixed wire size of the sysvar clock account.
const clockAccountDataSize = 40

// Clock mirrors the sysvar clock account, used to compare a pool's
// frozen-at slot against wall-clock time for staleness checks.
type Clock struct {
	Slot                uint64
	EpochStartTime      uint64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       uint64
}

// GetClock reads and decodes the sysvar clock account.
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	resp, err := c.GetAccountInfo(ctx, solana.SysVarClockPubkey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: fetch clock account: %w", err)
	}
	if resp.Value == nil {
		return nil, errors.New("bootstrap: clock account not found")
	}
	data := resp.Value.Data.GetBinary()
	if len(data) != clockAccountDataSize {
		return nil, fmt.Errorf("bootstrap: clock account data length %d, want %d", len(data), clockAccountDataSize)
	}
	return &Clock{
		Slot:                binary.LittleEndian.Uint64(data[0:8]),
		EpochStartTime:      binary.LittleEndian.Uint64(data[8:16]),
		Epoch:               binary.LittleEndian.Uint64(data[16:24]),
		LeaderScheduleEpoch: binary.LittleEndian.Uint64(data[24:32]),
		UnixTimestamp:       binary.LittleEndian.Uint64(data[32:40]),
	}, nil
}
