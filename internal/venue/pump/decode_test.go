package pump

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func buildPoolData(t *testing.T, baseMint, quoteMint, lpMint, baseVault, quoteVault solana.PublicKey) []byte {
	t.Helper()
	data := make([]byte, PoolDataSize)
	copy(data[:8], poolDiscriminator[:])
	copy(data[offBaseMint:offBaseMint+32], baseMint[:])
	copy(data[offQuoteMint:offQuoteMint+32], quoteMint[:])
	copy(data[offLPMint:offLPMint+32], lpMint[:])
	copy(data[offBaseVault:offBaseVault+32], baseVault[:])
	copy(data[offQuoteVault:offQuoteVault+32], quoteVault[:])
	return data
}

func TestPumpDecodePool(t *testing.T) {
	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()
	lpMint := solana.NewWallet().PublicKey()
	baseVault := solana.NewWallet().PublicKey()
	quoteVault := solana.NewWallet().PublicKey()
	data := buildPoolData(t, baseMint, quoteMint, lpMint, baseVault, quoteVault)

	v := Venue{}
	require.True(t, v.IsPool(data))

	pool := solana.NewWallet().PublicKey()
	ps, err := v.DecodePool(pool, data)
	require.NoError(t, err)
	require.Equal(t, pool, ps.Pool)
	require.NotNil(t, ps.CPPair)
	require.Equal(t, baseMint, ps.CPPair.BaseMint)
	require.Equal(t, quoteMint, ps.CPPair.QuoteMint)
	require.Equal(t, lpMint, ps.CPPair.LPMint)
	require.Equal(t, baseVault, ps.CPPair.BaseVault)
	require.Equal(t, quoteVault, ps.CPPair.QuoteVault)
	// No static tier table: fee stays nil pending the fee oracle's
	// implied-fee inference.
	require.Nil(t, ps.CPPair.Fee)
}

func TestPumpIsPoolRejectsWrongDiscriminator(t *testing.T) {
	data := make([]byte, PoolDataSize)
	copy(data[:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	v := Venue{}
	require.False(t, v.IsPool(data))
}

func TestPumpIsPoolRejectsShortData(t *testing.T) {
	data := make([]byte, PoolDataSize-1)
	copy(data[:8], poolDiscriminator[:])
	v := Venue{}
	require.False(t, v.IsPool(data))
}

func TestPumpDecodePoolFailsOnDiscriminatorMismatch(t *testing.T) {
	data := make([]byte, PoolDataSize)
	v := Venue{}
	_, err := v.DecodePool(solana.NewWallet().PublicKey(), data)
	require.Error(t, err)
}
