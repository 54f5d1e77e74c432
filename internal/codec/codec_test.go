package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactU16(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint16
		n    int
	}{
		{"single byte", []byte{0x05}, 5, 1},
		{"two bytes", []byte{0x80, 0x01}, 128, 2},
		{"three bytes", []byte{0xff, 0xff, 0x03}, 0xffff, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, n, err := CompactU16(c.in, 0)
			require.NoError(t, err)
			require.Equal(t, c.want, v)
			require.Equal(t, c.n, n)
		})
	}
}

func TestCompactU16OverLong(t *testing.T) {
	_, _, err := CompactU16([]byte{0xff, 0xff, 0x04}, 0)
	require.Error(t, err)
}

func TestFixedReadsShortBuffer(t *testing.T) {
	_, err := U64([]byte{1, 2, 3}, 0)
	require.Error(t, err)
}

func TestU64RoundTrip(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	v, err := U64(data, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestDiscriminator(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	d, err := Discriminator(data)
	require.NoError(t, err)
	require.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, d)
}
