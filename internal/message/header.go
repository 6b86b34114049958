package message

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	idLen         = 8
	typeLen       = 4
	dataLengthLen = 8

	// HeaderLen is the fixed size of an encoded Header.
	HeaderLen = idLen + typeLen + dataLengthLen
)

// Header is the metadata block that precedes every payload on the wire.
type Header struct {
	// ID is only unique within the node that created the message.
	ID int64
	// MessageType selects the payload decoder. Negative values are
	// reserved for system messages.
	MessageType int32
	// DataLength is the byte length of the payload following the header.
	DataLength int64
}

// IsSystem reports whether the header belongs to a system message.
func (h Header) IsSystem() bool {
	return h.MessageType < 0
}

// Encode returns the big-endian wire form of the header.
func (h Header) Encode() []byte {
	return h.AppendTo(make([]byte, 0, HeaderLen))
}

// AppendTo appends the wire form of the header to b.
func (h Header) AppendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint64(b, uint64(h.ID))
	b = binary.BigEndian.AppendUint32(b, uint32(h.MessageType))
	return binary.BigEndian.AppendUint64(b, uint64(h.DataLength))
}

// DecodeHeader reads a header from the first HeaderLen bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedHeader, len(b), HeaderLen)
	}

	return Header{
		ID:          int64(binary.BigEndian.Uint64(b[0:idLen])),
		MessageType: int32(binary.BigEndian.Uint32(b[idLen : idLen+typeLen])),
		DataLength:  int64(binary.BigEndian.Uint64(b[idLen+typeLen : HeaderLen])),
	}, nil
}

// ReadHeader consumes exactly HeaderLen bytes from r.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderLen)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedHeader, n, HeaderLen)
		}
		return Header{}, err
	}
	return DecodeHeader(buf)
}
