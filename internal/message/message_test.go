package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typeRaw int32 = 99

// rawMessage carries its payload verbatim.
type rawMessage struct {
	Base
	data    []byte
	loadErr error
}

func newRawMessage(data []byte) *rawMessage {
	return &rawMessage{Base: NewBase(typeRaw), data: data}
}

func (m *rawMessage) PayloadBytes() ([]byte, error) {
	return m.data, nil
}

func (m *rawMessage) LoadPayload(data []byte) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func TestToWire_Frame(t *testing.T) {
	m := newRawMessage([]byte{0x01, 0x02, 0x03})
	m.Header().ID = 1000

	frame, err := ToWire(m)
	require.NoError(t, err)

	require.Len(t, frame, 23)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, frame[20:])
	assert.Equal(t, int64(3), m.Header().DataLength)

	h, err := DecodeHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), h.ID)
	assert.Equal(t, typeRaw, h.MessageType)
	assert.Equal(t, int64(3), h.DataLength)
}

func TestToWire_ResetsDataLength(t *testing.T) {
	m := newRawMessage([]byte("abc"))
	m.Header().DataLength = 500

	_, err := ToWire(m)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Header().DataLength)

	m.data = nil
	frame, err := ToWire(m)
	require.NoError(t, err)
	assert.Len(t, frame, HeaderLen)
	assert.Equal(t, int64(0), m.Header().DataLength)
}

func TestWire_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		[]byte("hello valkyrie"),
		bytes.Repeat([]byte{0xFE}, 4096),
	}

	for _, payload := range payloads {
		sent := newRawMessage(payload)
		frame, err := ToWire(sent)
		require.NoError(t, err)

		received := &rawMessage{}
		require.NoError(t, FromWire(frame, received))
		assert.Equal(t, payload, append([]byte{}, received.data...))
		assert.Equal(t, int64(len(payload)), received.Header().DataLength)
		assert.Equal(t, sent.ID(), received.ID())

		streamed := &rawMessage{}
		require.NoError(t, ReadMessage(bytes.NewReader(frame), streamed))
		assert.Equal(t, received.data, streamed.data)
	}
}

func TestFromWire_Truncated(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		err := FromWire(make([]byte, 10), &rawMessage{})
		assert.ErrorIs(t, err, ErrTruncatedHeader)
	})

	t.Run("short payload", func(t *testing.T) {
		frame := Header{ID: 1, MessageType: typeRaw, DataLength: 8}.Encode()
		frame = append(frame, 1, 2, 3)

		err := FromWire(frame, &rawMessage{})
		assert.ErrorIs(t, err, ErrTruncatedPayload)

		err = ReadMessage(bytes.NewReader(frame), &rawMessage{})
		assert.ErrorIs(t, err, ErrTruncatedPayload)
	})

	t.Run("negative length", func(t *testing.T) {
		frame := Header{ID: 1, MessageType: typeRaw, DataLength: -1}.Encode()

		err := FromWire(frame, &rawMessage{})
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestFromWire_IgnoresBytesAfterPayload(t *testing.T) {
	frame, err := ToWire(newRawMessage([]byte{7, 8}))
	require.NoError(t, err)
	frame = append(frame, 9, 9, 9)

	m := &rawMessage{}
	require.NoError(t, FromWire(frame, m))
	assert.Equal(t, []byte{7, 8}, m.data)
}

func TestFromWire_LoadErrorIsMalformed(t *testing.T) {
	frame, err := ToWire(newRawMessage([]byte{1}))
	require.NoError(t, err)

	err = FromWire(frame, &rawMessage{loadErr: errors.New("boom")})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestText_RoundTrip(t *testing.T) {
	frame, err := ToWire(NewText("привет, peers"))
	require.NoError(t, err)

	got := &Text{}
	require.NoError(t, FromWire(frame, got))
	assert.Equal(t, "привет, peers", got.Body)
	assert.Equal(t, TypeText, got.Header().MessageType)
}

func TestText_InvalidUTF8(t *testing.T) {
	frame := Header{MessageType: TypeText, DataLength: 2}.Encode()
	frame = append(frame, 0xff, 0xfe)

	err := FromWire(frame, &Text{})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
