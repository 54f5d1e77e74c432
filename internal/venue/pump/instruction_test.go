package pump

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func TestSwapInstructionDataLayout(t *testing.T) {
	accounts := SwapAccounts{
		Pool:          solana.NewWallet().PublicKey(),
		GlobalConfig:  GlobalConfig,
		BaseVault:     solana.NewWallet().PublicKey(),
		QuoteVault:    solana.NewWallet().PublicKey(),
		UserBaseAta:   solana.NewWallet().PublicKey(),
		UserQuoteAta:  solana.NewWallet().PublicKey(),
		UserAuth:      solana.NewWallet().PublicKey(),
		TokenProgram:  solana.TokenProgramID,
		TokenProgram2: solana.TokenProgramID,
	}

	inst := NewSwapInstruction(accounts, 555_555, 1_000, types.ExactInput)
	data, err := inst.Data()
	require.NoError(t, err)

	// discriminator(8) || amountIn(u64 LE) || minOut(u64 LE) || exactSideFlag(u8)
	require.Len(t, data, 8+8+8+1)
	require.Equal(t, uint64(555_555), leUint64(data[8:16]))
	require.Equal(t, uint64(1_000), leUint64(data[16:24]))
	require.Equal(t, byte(0), data[24])

	require.Equal(t, venueProgramID(), inst.ProgramID())
	require.Len(t, inst.Accounts(), 9)
}

func TestSwapInstructionExactOutputFlag(t *testing.T) {
	accounts := SwapAccounts{UserAuth: solana.NewWallet().PublicKey()}
	inst := NewSwapInstruction(accounts, 1, 2, types.ExactOutput)
	data, err := inst.Data()
	require.NoError(t, err)
	require.Equal(t, byte(1), data[24])
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func venueProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
}
