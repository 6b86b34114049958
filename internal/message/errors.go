package message

import "errors"

var (
	ErrTruncatedHeader    = errors.New("truncated message header")
	ErrTruncatedPayload   = errors.New("truncated message payload")
	ErrMalformedPayload   = errors.New("malformed message payload")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrDuplicateType      = errors.New("message type already registered")
	ErrReservedType       = errors.New("message type is reserved for system messages")
)
