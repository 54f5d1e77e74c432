// Package codec holds the zero-copy primitives shared by every venue
// decoder and the transaction parser: fixed-width little-endian integer
// reads, compact-u16 varints, and base58 boundary conversion. None of these
// allocate a new backing buffer; they read directly out of the slice
// handed in by the caller.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrShortBuffer is returned whenever a fixed read would run past the end
// of the supplied slice.
type ErrShortBuffer struct {
	Need, Have int
}

func (e ErrShortBuffer) Error() string {
	return fmt.Sprintf("codec: need %d bytes, have %d", e.Need, e.Have)
}

func need(data []byte, off, n int) error {
	if off < 0 || off+n > len(data) {
		return ErrShortBuffer{Need: off + n, Have: len(data)}
	}
	return nil
}

// U8 reads a single byte at off.
func U8(data []byte, off int) (uint8, error) {
	if err := need(data, off, 1); err != nil {
		return 0, err
	}
	return data[off], nil
}

// U16 reads a little-endian uint16 at off.
func U16(data []byte, off int) (uint16, error) {
	if err := need(data, off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data[off:]), nil
}

// U32 reads a little-endian uint32 at off.
func U32(data []byte, off int) (uint32, error) {
	if err := need(data, off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data[off:]), nil
}

// U64 reads a little-endian uint64 at off.
func U64(data []byte, off int) (uint64, error) {
	if err := need(data, off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[off:]), nil
}

// I32 reads a little-endian int32 at off.
func I32(data []byte, off int) (int32, error) {
	v, err := U32(data, off)
	return int32(v), err
}

// I64 reads a little-endian int64 at off.
func I64(data []byte, off int) (int64, error) {
	v, err := U64(data, off)
	return int64(v), err
}

// U128LE reads 16 little-endian bytes at off as (lo, hi) uint64 halves.
func U128LE(data []byte, off int) (lo uint64, hi uint64, err error) {
	if err = need(data, off, 16); err != nil {
		return 0, 0, err
	}
	lo = binary.LittleEndian.Uint64(data[off:])
	hi = binary.LittleEndian.Uint64(data[off+8:])
	return lo, hi, nil
}

// Pubkey reads a 32-byte pubkey at off without allocating beyond the
// fixed-size array the solana-go type wraps.
func Pubkey(data []byte, off int) (solana.PublicKey, error) {
	if err := need(data, off, 32); err != nil {
		return solana.PublicKey{}, err
	}
	var pk solana.PublicKey
	copy(pk[:], data[off:off+32])
	return pk, nil
}

// Discriminator returns the first 8 bytes of an account or instruction
// payload, the Anchor-style type tag.
func Discriminator(data []byte) ([8]byte, error) {
	var out [8]byte
	if err := need(data, 0, 8); err != nil {
		return out, err
	}
	copy(out[:], data[:8])
	return out, nil
}

// CompactU16 decodes Solana's 1-3 byte varint ("shortvec") encoding
// starting at off, returning the value and the number of bytes consumed.
// Over-long encodings (a continuation byte present past the point where
// the value is fully represented) are rejected.
func CompactU16(data []byte, off int) (value uint16, n int, err error) {
	var result uint32
	for i := 0; i < 3; i++ {
		if err := need(data, off+i, 1); err != nil {
			return 0, 0, err
		}
		b := data[off+i]
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if i > 0 && b == 0 {
				return 0, 0, fmt.Errorf("codec: compact-u16 over-long encoding")
			}
			if result > 0xffff {
				return 0, 0, fmt.Errorf("codec: compact-u16 overflow")
			}
			if i == 2 && b > 0x03 {
				return 0, 0, fmt.Errorf("codec: compact-u16 over-long encoding")
			}
			return uint16(result), i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("codec: compact-u16 over-long encoding")
}

// Base58Encode is the only place pubkeys cross a base58 boundary
// (logging, evidence sink, hotlist persistence).
func Base58Encode(b []byte) string { return base58.Encode(b) }

// Base58Decode inverts Base58Encode.
func Base58Decode(s string) ([]byte, error) { return base58.Decode(s) }
