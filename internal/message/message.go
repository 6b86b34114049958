// Package message implements the envelope exchanged between peers: a fixed
// 20 byte header followed by a type specific payload.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Message is implemented by every concrete message kind. Header must return
// a pointer to the header owned by the message; the framing functions update
// it in place.
type Message interface {
	Header() *Header
	// PayloadBytes returns the payload without a header.
	PayloadBytes() ([]byte, error)
	// LoadPayload parses exactly Header().DataLength bytes.
	LoadPayload(data []byte) error
}

// Base carries the header of a message. Concrete kinds embed it.
type Base struct {
	header Header
}

// NewBase assigns the next process-wide id to a new header of the given type.
func NewBase(messageType int32) Base {
	return Base{header: Header{ID: NextID(), MessageType: messageType}}
}

func (b *Base) Header() *Header {
	return &b.header
}

// ID is meaningful only inside the process that built the message.
func (b *Base) ID() int64 {
	return b.header.ID
}

// ToWire frames m as header followed by payload. DataLength of m's header is
// set to the payload length as a side effect.
func ToWire(m Message) ([]byte, error) {
	payload, err := m.PayloadBytes()
	if err != nil {
		return nil, fmt.Errorf("message.ToWire: %w", err)
	}

	h := m.Header()
	h.DataLength = int64(len(payload))

	frame := make([]byte, 0, HeaderLen+len(payload))
	frame = h.AppendTo(frame)
	return append(frame, payload...), nil
}

// FromWire decodes a frame into m. Bytes after the declared payload are
// ignored.
func FromWire(data []byte, m Message) error {
	h, err := DecodeHeader(data)
	if err != nil {
		return err
	}

	payload, err := payloadOf(h, data[HeaderLen:])
	if err != nil {
		return err
	}

	return load(m, h, payload)
}

// ReadMessage reads one frame from r into m.
func ReadMessage(r io.Reader, m Message) error {
	h, err := ReadHeader(r)
	if err != nil {
		return err
	}
	if h.DataLength < 0 {
		return fmt.Errorf("%w: negative data length %d", ErrMalformedPayload, h.DataLength)
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, h.DataLength)
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedPayload, n, h.DataLength)
		}
		return err
	}

	return load(m, h, buf.Bytes())
}

func payloadOf(h Header, rest []byte) ([]byte, error) {
	if h.DataLength < 0 {
		return nil, fmt.Errorf("%w: negative data length %d", ErrMalformedPayload, h.DataLength)
	}
	if int64(len(rest)) < h.DataLength {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedPayload, len(rest), h.DataLength)
	}
	return rest[:h.DataLength], nil
}

func load(m Message, h Header, payload []byte) error {
	*m.Header() = h
	if err := m.LoadPayload(payload); err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
