// Package txdecode parses raw transaction message bytes into their
// header, account keys, instructions, and (for v0 messages) address table
// lookups.
package txdecode

import (
	"fmt"

	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/types"
)

// versionMask is the high bit of the first message byte that
// discriminates a versioned (v0) message from a legacy one.
const versionMask = 0x80

// Header is the three account-count fields every Solana message carries.
type Header struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into the message's
// resolved account-keys list.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// AddressTableLookup references additional writable/readonly accounts
// loaded from an on-chain ALT.
type AddressTableLookup struct {
	Key             types.Pubkey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// Message is the decoded, but not yet ALT-resolved, transaction message.
type Message struct {
	IsVersioned         bool
	Header              Header
	StaticAccountKeys   []types.Pubkey
	RecentBlockhash     types.Pubkey
	Instructions        []CompiledInstruction
	AddressTableLookups []AddressTableLookup
}

// ParseMessage parses raw message bytes into a Message. The first byte's
// high bit discriminates versioned (v0) vs legacy.
func ParseMessage(data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, fmt.Errorf("txdecode: empty message")
	}

	var msg Message
	off := 0

	first := data[0]
	if first&versionMask != 0 {
		version := first &^ versionMask
		if version != 0 {
			return Message{}, fmt.Errorf("txdecode: unsupported message version %d", version)
		}
		msg.IsVersioned = true
		off = 1
	}

	numSig, err := codec.U8(data, off)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: header: %w", err)
	}
	numROSigned, err := codec.U8(data, off+1)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: header: %w", err)
	}
	numROUnsigned, err := codec.U8(data, off+2)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: header: %w", err)
	}
	msg.Header = Header{numSig, numROSigned, numROUnsigned}
	off += 3

	numKeys, n, err := codec.CompactU16(data, off)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: account-keys count: %w", err)
	}
	off += n

	msg.StaticAccountKeys = make([]types.Pubkey, numKeys)
	for i := 0; i < int(numKeys); i++ {
		pk, err := codec.Pubkey(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: account key %d: %w", i, err)
		}
		msg.StaticAccountKeys[i] = pk
		off += 32
	}

	blockhash, err := codec.Pubkey(data, off)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: recent blockhash: %w", err)
	}
	msg.RecentBlockhash = blockhash
	off += 32

	numIxs, n, err := codec.CompactU16(data, off)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: instructions count: %w", err)
	}
	off += n

	msg.Instructions = make([]CompiledInstruction, numIxs)
	for i := 0; i < int(numIxs); i++ {
		programIdx, err := codec.U8(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: instruction %d program index: %w", i, err)
		}
		off++

		numAccts, n, err := codec.CompactU16(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: instruction %d account count: %w", i, err)
		}
		off += n
		accts := make([]uint8, numAccts)
		for j := range accts {
			b, err := codec.U8(data, off)
			if err != nil {
				return Message{}, fmt.Errorf("txdecode: instruction %d account %d: %w", i, j, err)
			}
			accts[j] = b
			off++
		}

		dataLen, n, err := codec.CompactU16(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: instruction %d data length: %w", i, err)
		}
		off += n
		if err := need(data, off, int(dataLen)); err != nil {
			return Message{}, fmt.Errorf("txdecode: instruction %d data: %w", i, err)
		}
		ixData := make([]byte, dataLen)
		copy(ixData, data[off:off+int(dataLen)])
		off += int(dataLen)

		msg.Instructions[i] = CompiledInstruction{ProgramIDIndex: programIdx, AccountIndexes: accts, Data: ixData}
	}

	if !msg.IsVersioned {
		return msg, nil
	}

	numLookups, n, err := codec.CompactU16(data, off)
	if err != nil {
		return Message{}, fmt.Errorf("txdecode: address table lookups count: %w", err)
	}
	off += n

	msg.AddressTableLookups = make([]AddressTableLookup, numLookups)
	for i := 0; i < int(numLookups); i++ {
		key, err := codec.Pubkey(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: lookup %d key: %w", i, err)
		}
		off += 32

		numW, n, err := codec.CompactU16(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: lookup %d writable count: %w", i, err)
		}
		off += n
		writable := make([]uint8, numW)
		for j := range writable {
			b, err := codec.U8(data, off)
			if err != nil {
				return Message{}, fmt.Errorf("txdecode: lookup %d writable %d: %w", i, j, err)
			}
			writable[j] = b
			off++
		}

		numR, n, err := codec.CompactU16(data, off)
		if err != nil {
			return Message{}, fmt.Errorf("txdecode: lookup %d readonly count: %w", i, err)
		}
		off += n
		readonly := make([]uint8, numR)
		for j := range readonly {
			b, err := codec.U8(data, off)
			if err != nil {
				return Message{}, fmt.Errorf("txdecode: lookup %d readonly %d: %w", i, j, err)
			}
			readonly[j] = b
			off++
		}

		msg.AddressTableLookups[i] = AddressTableLookup{Key: key, WritableIndexes: writable, ReadonlyIndexes: readonly}
	}

	return msg, nil
}

func need(data []byte, off, n int) error {
	if off < 0 || off+n > len(data) {
		return fmt.Errorf("txdecode: need %d bytes at %d, have %d", n, off, len(data))
	}
	return nil
}
