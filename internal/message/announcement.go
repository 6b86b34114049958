package message

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// TypeAnnouncement is the system message a node multicasts when it joins or
// leaves a network.
const TypeAnnouncement int32 = -1

type AnnouncementKind uint8

const (
	AnnounceJoined AnnouncementKind = iota + 1
	AnnounceLeft
)

func (k AnnouncementKind) String() string {
	switch k {
	case AnnounceJoined:
		return "joined"
	case AnnounceLeft:
		return "left"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const (
	kindLen       = 1
	nodeIDLen     = 16
	networkLenLen = 2
)

// Announcement payload: kind(1) | node id(16) | network length(2) | network.
type Announcement struct {
	Base
	Kind    AnnouncementKind
	NodeID  uuid.UUID
	Network string
}

func NewAnnouncement(kind AnnouncementKind, network string, nodeID uuid.UUID) *Announcement {
	return &Announcement{
		Base:    NewBase(TypeAnnouncement),
		Kind:    kind,
		NodeID:  nodeID,
		Network: network,
	}
}

func (a *Announcement) PayloadBytes() ([]byte, error) {
	if len(a.Network) > math.MaxUint16 {
		return nil, fmt.Errorf("network identifier too long: %d bytes", len(a.Network))
	}

	b := make([]byte, 0, kindLen+nodeIDLen+networkLenLen+len(a.Network))
	b = append(b, byte(a.Kind))
	b = append(b, a.NodeID[:]...)
	b = binary.BigEndian.AppendUint16(b, uint16(len(a.Network)))
	return append(b, a.Network...), nil
}

func (a *Announcement) LoadPayload(data []byte) error {
	const fixed = kindLen + nodeIDLen + networkLenLen
	if len(data) < fixed {
		return fmt.Errorf("%w: announcement needs %d bytes, got %d", ErrMalformedPayload, fixed, len(data))
	}

	kind := AnnouncementKind(data[0])
	if kind != AnnounceJoined && kind != AnnounceLeft {
		return fmt.Errorf("%w: unknown announcement %s", ErrMalformedPayload, kind)
	}

	networkLen := int(binary.BigEndian.Uint16(data[kindLen+nodeIDLen : fixed]))
	if len(data) != fixed+networkLen {
		return fmt.Errorf("%w: network identifier length %d does not match payload", ErrMalformedPayload, networkLen)
	}

	a.Kind = kind
	copy(a.NodeID[:], data[kindLen:kindLen+nodeIDLen])
	a.Network = string(data[fixed:])
	return nil
}
