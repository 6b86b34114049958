// Package dispatch decodes datagrams handed over by the receive loop and
// routes the resulting messages to handlers by message type.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"valkyrie/internal/message"
	"valkyrie/internal/metrics"
	"valkyrie/internal/storage/journal"
	"valkyrie/internal/util/logger/sl"
)

// Inbound is a decoded message and where it came from.
type Inbound struct {
	From       net.Addr
	ReceivedAt time.Time
	Message    message.Message
}

type HandlerFunc func(in Inbound) error

// Journal records decoded frames.
type Journal interface {
	Append(e journal.Entry) (uint64, error)
}

type Dispatcher struct {
	network  string
	registry *message.Registry
	journal  Journal
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[int32][]HandlerFunc
}

type Option func(*Dispatcher)

func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(network string, registry *message.Registry, log *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		network:  network,
		registry: registry,
		log:      log.With(slog.String("component", "dispatcher")),
		now:      time.Now,
		handlers: make(map[int32][]HandlerFunc),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New(metrics.DefaultNamespace, nil)
	}
	return d
}

// Handle registers h for messageType. Several handlers per type run in
// registration order.
func (d *Dispatcher) Handle(messageType int32, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[messageType] = append(d.handlers[messageType], h)
}

// HandleDatagram decodes one datagram, journals it and runs its handlers.
// Errors are scoped to this datagram.
func (d *Dispatcher) HandleDatagram(from net.Addr, data []byte) error {
	const op = "dispatch.HandleDatagram"

	m, err := d.registry.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	in := Inbound{From: from, ReceivedAt: d.now(), Message: m}
	h := m.Header()

	d.metrics.MessagesDispatched.WithLabelValues(strconv.Itoa(int(h.MessageType))).Inc()
	d.record(in, data)

	d.mu.RLock()
	handlers := d.handlers[h.MessageType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.log.Debug("no handler for message",
			slog.Int64("id", h.ID),
			slog.Int("type", int(h.MessageType)),
		)
		return nil
	}

	var errs []error
	for _, handle := range handlers {
		if err := handle(in); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: message %d type %d: %w", op, h.ID, h.MessageType, errors.Join(errs...))
	}
	return nil
}

func (d *Dispatcher) record(in Inbound, data []byte) {
	if d.journal == nil {
		return
	}

	h := in.Message.Header()
	frameLen := message.HeaderLen + int(h.DataLength)
	frame := append([]byte(nil), data[:frameLen]...)

	from := ""
	if in.From != nil {
		from = in.From.String()
	}

	_, err := d.journal.Append(journal.Entry{
		ReceivedAt:  in.ReceivedAt,
		Network:     d.network,
		From:        from,
		MessageID:   h.ID,
		MessageType: h.MessageType,
		DataLength:  h.DataLength,
		Frame:       frame,
	})
	if err != nil {
		d.log.Warn("failed to journal frame", slog.Int64("id", h.ID), sl.Err(err))
	}
}
