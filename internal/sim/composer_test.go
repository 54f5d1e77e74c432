package sim

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/types"
)

func mint(seed byte) types.Pubkey {
	var pk types.Pubkey
	pk[0] = seed
	pk[31] = 1 // avoid colliding with the all-zero placeholder mint
	return pk
}

func TestValidatePathCircular(t *testing.T) {
	m1, m2, m3 := mint(1), mint(2), mint(3)
	legs := []types.SwapLeg{
		{InputMint: m1, OutputMint: m2},
		{InputMint: m2, OutputMint: m3},
		{InputMint: m3, OutputMint: m1},
	}
	circular, err := ValidatePath(legs)
	require.NoError(t, err)
	require.True(t, circular)
}

func TestValidatePathDiscontinuity(t *testing.T) {
	m1, m2, m3, m4 := mint(1), mint(2), mint(3), mint(4)
	legs := []types.SwapLeg{
		{InputMint: m1, OutputMint: m2},
		{InputMint: m2, OutputMint: m3},
		{InputMint: m4, OutputMint: m1},
	}
	_, err := ValidatePath(legs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Token discontinuity at leg 1")
}

func TestComposePathThreadsOutputToInput(t *testing.T) {
	m1, m2, m3 := mint(1), mint(2), mint(3)
	legs := []types.SwapLeg{
		{Pool: solana.PublicKey{1}, InputMint: m1, OutputMint: m2, InputAmount: 1000},
		{Pool: solana.PublicKey{2}, InputMint: m2, OutputMint: m3, InputAmount: 0},
	}
	seen := map[solana.PublicKey]uint64{}
	result := ComposePath(legs, func(leg types.SwapLeg, in uint64) (uint64, uint64, error) {
		seen[leg.Pool] = in
		return in * 2, 0, nil
	})
	require.True(t, result.Valid)
	require.Equal(t, uint64(1000), seen[solana.PublicKey{1}])
	require.Equal(t, uint64(2000), seen[solana.PublicKey{2}])
	require.Equal(t, int64(4000), result.NetOutput)
}
