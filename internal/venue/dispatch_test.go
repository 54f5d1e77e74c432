package venue_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/aerofoil/solmev/internal/venue"
	_ "github.com/aerofoil/solmev/internal/venue/pump"
)

// decode(data) succeeds => isPool(data) is
// true; unknown owners are non_target, known owner with a mismatching
// discriminator is non_pool, known owner + matching discriminator but a
// decode failure is decode_failed.
func TestDispatchTaxonomy(t *testing.T) {
	unknownOwner := solana.NewWallet().PublicKey()
	_, vn, outcome, err := venue.Dispatch(unknownOwner, solana.NewWallet().PublicKey(), []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, venue.OutcomeNonTarget, outcome)
	require.Empty(t, vn)

	_, vn, outcome, err = venue.Dispatch(venue.PumpSwapProgramID, solana.NewWallet().PublicKey(), []byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, venue.OutcomeNonPool, outcome)
	require.NotEmpty(t, vn)
}

func TestDispatchUnknownOwnerNeverDecodeFails(t *testing.T) {
	_, _, outcome, err := venue.Dispatch(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), nil)
	require.NoError(t, err)
	require.Equal(t, venue.OutcomeNonTarget, outcome)
}
