package bundle

import (
	"errors"

	"github.com/aerofoil/solmev/internal/types"
)

// Validation constants for a bundle's rejection rules.
const (
	MaxAgeSeconds    = 60
	MaxSize          = 5
	TipFloorLamports = 1000
)

var (
	ErrBundleTooOld   = errors.New("bundle: older than max age")
	ErrBundleEmpty    = errors.New("bundle: empty")
	ErrBundleTooLarge = errors.New("bundle: over size cap")
	ErrTipBelowFloor  = errors.New("bundle: tip under floor")
	ErrUnsignedTx     = errors.New("bundle: contains unsigned transaction")
)

// IsSigned reports whether a wire-encoded transaction's first signature is
// non-zero; later signatures are not inspected. Solana's legacy/v0 wire
// format begins with a compact-u16 signature count followed by that many 64-byte signatures;
// an all-zero signature is the sentinel for "unsigned".
func IsSigned(tx []byte) bool {
	if len(tx) < 65 {
		return false
	}
	sigCount := int(tx[0])
	if sigCount == 0 || len(tx) < 1+sigCount*64 {
		return false
	}
	for i := 0; i < 64; i++ {
		if tx[1+i] != 0 {
			return true
		}
	}
	return false
}

// Validate rejects a bundle that is older than 60s, empty, over the size
// cap, under the tip floor, or carries an unsigned transaction.
func Validate(b *types.Bundle, nowMs int64) error {
	if nowMs-b.CreatedAtMs > MaxAgeSeconds*1000 {
		return ErrBundleTooOld
	}
	if len(b.Transactions) == 0 {
		return ErrBundleEmpty
	}
	if len(b.Transactions) > MaxSize {
		return ErrBundleTooLarge
	}
	if b.Tip < TipFloorLamports {
		return ErrTipBelowFloor
	}
	for _, tx := range b.Transactions {
		if !IsSigned(tx) {
			return ErrUnsignedTx
		}
	}
	return nil
}
