package network

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"valkyrie/internal/metrics"
	"valkyrie/internal/util/logger/sl"

	"go.uber.org/atomic"
)

type ReceiverState int32

const (
	StateIdle ReceiverState = iota
	StateReceiving
	StateStopped
)

func (s ReceiverState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// receiver reads datagrams from one socket until the socket is closed.
type receiver struct {
	conn    net.PacketConn
	handler DatagramHandler
	log     *slog.Logger
	metrics *metrics.Metrics
	onLive  func()

	state    atomic.Int32
	stopping atomic.Bool
	wg       sync.WaitGroup
}

func newReceiver(
	conn net.PacketConn,
	handler DatagramHandler,
	log *slog.Logger,
	m *metrics.Metrics,
	onLive func(),
) *receiver {
	return &receiver{
		conn:    conn,
		handler: handler,
		log:     log.With(slog.String("component", "receiver")),
		metrics: m,
		onLive:  onLive,
	}
}

func (r *receiver) State() ReceiverState {
	return ReceiverState(r.state.Load())
}

func (r *receiver) start() {
	r.wg.Add(1)
	go r.run()
}

// stop closes the socket, which unblocks a pending read.
func (r *receiver) stop() error {
	r.stopping.Store(true)
	return r.conn.Close()
}

// wait blocks until the loop and the joined callback have returned.
func (r *receiver) wait() {
	r.wg.Wait()
}

func (r *receiver) run() {
	defer r.wg.Done()
	defer r.state.Store(int32(StateStopped))

	r.state.Store(int32(StateReceiving))
	if r.onLive != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.onLive()
		}()
	}

	for {
		buf := make([]byte, MaxDatagramSize)
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if r.stopping.Load() || errors.Is(err, net.ErrClosed) {
				r.log.Debug("socket closed, receive loop stopped")
				return
			}
			r.metrics.ReceiveErrors.Inc()
			r.log.Warn("failed to read datagram",
				sl.Err(fmt.Errorf("%w: %v", ErrTransientReceive, err)),
			)
			continue
		}

		r.metrics.DatagramsReceived.Inc()
		r.metrics.BytesReceived.Add(float64(n))
		r.deliver(from, buf[:n])
	}
}

// deliver hands one datagram to the handler. Failures stay local to the
// datagram.
func (r *receiver) deliver(from net.Addr, data []byte) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.DatagramFailures.Inc()
			r.log.Error("datagram handler panicked",
				slog.String("from", addrString(from)),
				slog.Any("panic", p),
			)
		}
	}()

	if err := r.handler.HandleDatagram(from, data); err != nil {
		r.metrics.DatagramFailures.Inc()
		r.log.Warn("dropping datagram",
			slog.String("from", addrString(from)),
			slog.Int("bytes", len(data)),
			sl.Err(err),
		)
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
