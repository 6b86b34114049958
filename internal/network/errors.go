package network

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid peer network configuration")
	ErrJoin             = errors.New("failed to join peer network")
	ErrNotJoined        = errors.New("peer network is not joined")
	ErrFrameTooLarge    = errors.New("frame exceeds maximum datagram size")
	ErrTransientReceive = errors.New("transient receive error")
)
