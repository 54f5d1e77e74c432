package raydiumclmm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAmmConfig(t *testing.T) {
	data := make([]byte, 8+1+2+32+4+4+2+4)
	binary.LittleEndian.PutUint32(data[offCfgProtocolFeeRate:], 120_000)
	binary.LittleEndian.PutUint32(data[offCfgTradeFeeRate:], 2_500) // 0.25%
	binary.LittleEndian.PutUint16(data[offCfgTickSpacing:], 60)
	binary.LittleEndian.PutUint32(data[offCfgFundFeeRate:], 40_000)

	cfg, err := DecodeAmmConfig(data)
	require.NoError(t, err)
	require.Equal(t, uint32(2_500), cfg.TradeFeeRate)
	require.Equal(t, uint32(120_000), cfg.ProtocolFeeRate)
	require.Equal(t, uint16(60), cfg.TickSpacing)
	require.Equal(t, uint32(25), cfg.TradeFeeBps())
}

func TestDecodeAmmConfigShortAccount(t *testing.T) {
	_, err := DecodeAmmConfig(make([]byte, 16))
	require.Error(t, err)
}

func TestIsTickArrayRejectsShortOrWrongTag(t *testing.T) {
	require.False(t, IsTickArray(nil))
	require.False(t, IsTickArray(make([]byte, 16)))

	data := make([]byte, 16)
	copy(data, tickArrayDiscriminator[:])
	require.True(t, IsTickArray(data))
}
