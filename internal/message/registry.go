package message

import (
	"fmt"
	"slices"
	"sync"
)

// Factory builds an empty message of one kind, ready for LoadPayload.
type Factory func() Message

// Registry maps message types to the factories that decode them.
type Registry struct {
	mu        sync.RWMutex
	factories map[int32]Factory
}

// NewRegistry returns a registry that already knows the system messages.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[int32]Factory)}
	r.factories[TypeAnnouncement] = func() Message { return &Announcement{} }
	return r
}

// Register adds an application message type. Negative types are reserved.
func (r *Registry) Register(messageType int32, f Factory) error {
	if messageType < 0 {
		return fmt.Errorf("%w: %d", ErrReservedType, messageType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[messageType]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateType, messageType)
	}
	r.factories[messageType] = f
	return nil
}

func (r *Registry) MustRegister(messageType int32, f Factory) {
	if err := r.Register(messageType, f); err != nil {
		panic(err)
	}
}

// Types lists registered message types in ascending order.
func (r *Registry) Types() []int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]int32, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Decode parses a datagram into the message kind named by its header.
func (r *Registry) Decode(data []byte) (Message, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	f, ok := r.factories[h.MessageType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, h.MessageType)
	}

	m := f()
	if err := FromWire(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
