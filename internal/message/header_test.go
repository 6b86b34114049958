package message

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_Encode(t *testing.T) {
	h := Header{ID: 42, MessageType: 7, DataLength: 5}

	encoded := h.Encode()

	require.Len(t, encoded, HeaderLen)
	assert.Equal(t, []byte{
		0, 0, 0, 0, 0, 0, 0, 42,
		0, 0, 0, 7,
		0, 0, 0, 0, 0, 0, 0, 5,
	}, encoded)

	decoded, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.ID)
	assert.Equal(t, int32(7), decoded.MessageType)
	assert.Equal(t, int64(5), decoded.DataLength)
}

func TestHeader_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{name: "zero header", header: Header{}},
		{name: "system message", header: Header{ID: 1, MessageType: TypeAnnouncement, DataLength: 19}},
		{name: "negative id", header: Header{ID: -9, MessageType: 3, DataLength: 0}},
		{
			name:   "extremes",
			header: Header{ID: math.MaxInt64, MessageType: math.MinInt32, DataLength: math.MaxInt64},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeHeader(tt.header.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.header, decoded)

			read, err := ReadHeader(bytes.NewReader(tt.header.Encode()))
			require.NoError(t, err)
			assert.Equal(t, tt.header, read)
		})
	}
}

func TestDecodeHeader_Truncated(t *testing.T) {
	for _, size := range []int{0, 1, 10, HeaderLen - 1} {
		_, err := DecodeHeader(make([]byte, size))
		assert.ErrorIs(t, err, ErrTruncatedHeader, "size %d", size)

		_, err = ReadHeader(bytes.NewReader(make([]byte, size)))
		assert.ErrorIs(t, err, ErrTruncatedHeader, "size %d", size)
	}
}

func TestDecodeHeader_IgnoresTrailingBytes(t *testing.T) {
	h := Header{ID: 3, MessageType: 4, DataLength: 2}
	data := append(h.Encode(), 0xAA, 0xBB)

	decoded, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHeader_IsSystem(t *testing.T) {
	assert.True(t, Header{MessageType: -1}.IsSystem())
	assert.False(t, Header{MessageType: 0}.IsSystem())
	assert.False(t, Header{MessageType: TypeText}.IsSystem())
}
