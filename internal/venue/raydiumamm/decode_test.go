package raydiumamm

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestRaydiumAMMDecodePool(t *testing.T) {
	data := make([]byte, Span)
	binary.LittleEndian.PutUint64(data[offTradeFeeNumerator:], 25)
	binary.LittleEndian.PutUint64(data[offTradeFeeDenominator:], 10000)

	baseVault := solana.NewWallet().PublicKey()
	quoteVault := solana.NewWallet().PublicKey()
	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()
	lpMint := solana.NewWallet().PublicKey()
	openOrders := solana.NewWallet().PublicKey()
	marketID := solana.NewWallet().PublicKey()

	copy(data[offBaseVault:offBaseVault+32], baseVault[:])
	copy(data[offQuoteVault:offQuoteVault+32], quoteVault[:])
	copy(data[offBaseMint:offBaseMint+32], baseMint[:])
	copy(data[offQuoteMint:offQuoteMint+32], quoteMint[:])
	copy(data[offLPMint:offLPMint+32], lpMint[:])
	copy(data[offOpenOrders:offOpenOrders+32], openOrders[:])
	copy(data[offMarketID:offMarketID+32], marketID[:])

	v := Venue{}
	require.True(t, v.IsPool(data))

	pool := solana.NewWallet().PublicKey()
	ps, err := v.DecodePool(pool, data)
	require.NoError(t, err)
	require.NotNil(t, ps.CPBook)
	require.Equal(t, baseVault, ps.CPBook.BaseVault)
	require.Equal(t, quoteVault, ps.CPBook.QuoteVault)
	require.Equal(t, baseMint, ps.CPBook.BaseMint)
	require.Equal(t, quoteMint, ps.CPBook.QuoteMint)
	require.Equal(t, openOrders, ps.CPBook.OpenOrders)
	require.Equal(t, marketID, ps.CPBook.MarketID)
	require.NotNil(t, ps.CPBook.Fee)
	require.Equal(t, uint32(25), ps.CPBook.Fee.LP)
}

func TestRaydiumAMMIsPoolRejectsWrongLength(t *testing.T) {
	v := Venue{}
	require.False(t, v.IsPool(make([]byte, Span-1)))
	require.False(t, v.IsPool(make([]byte, Span+1)))
}
