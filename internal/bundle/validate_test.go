package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func signedTx() []byte {
	tx := make([]byte, 1+64+8)
	tx[0] = 1
	tx[1] = 0xAB // non-zero signature byte
	return tx
}

func unsignedTx() []byte {
	tx := make([]byte, 1+64+8)
	tx[0] = 1
	return tx
}

func TestValidateRejectsTooOld(t *testing.T) {
	b := &types.Bundle{Transactions: [][]byte{signedTx()}, Tip: TipFloorLamports, CreatedAtMs: 0}
	err := Validate(b, (MaxAgeSeconds+1)*1000)
	require.ErrorIs(t, err, ErrBundleTooOld)
}

func TestValidateRejectsEmpty(t *testing.T) {
	b := &types.Bundle{Transactions: nil, Tip: TipFloorLamports, CreatedAtMs: 1000}
	err := Validate(b, 1000)
	require.ErrorIs(t, err, ErrBundleEmpty)
}

func TestValidateRejectsTooLarge(t *testing.T) {
	txs := make([][]byte, MaxSize+1)
	for i := range txs {
		txs[i] = signedTx()
	}
	b := &types.Bundle{Transactions: txs, Tip: TipFloorLamports, CreatedAtMs: 1000}
	err := Validate(b, 1000)
	require.ErrorIs(t, err, ErrBundleTooLarge)
}

func TestValidateRejectsTipBelowFloor(t *testing.T) {
	b := &types.Bundle{Transactions: [][]byte{signedTx()}, Tip: TipFloorLamports - 1, CreatedAtMs: 1000}
	err := Validate(b, 1000)
	require.ErrorIs(t, err, ErrTipBelowFloor)
}

func TestValidateRejectsUnsigned(t *testing.T) {
	b := &types.Bundle{Transactions: [][]byte{unsignedTx()}, Tip: TipFloorLamports, CreatedAtMs: 1000}
	err := Validate(b, 1000)
	require.ErrorIs(t, err, ErrUnsignedTx)
}

func TestValidateAccepts(t *testing.T) {
	b := &types.Bundle{Transactions: [][]byte{signedTx(), signedTx()}, Tip: TipFloorLamports, CreatedAtMs: 1000}
	require.NoError(t, Validate(b, 1000))
}
