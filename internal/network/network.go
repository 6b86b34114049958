// Package network joins a named peer network over one UDP multicast group
// and runs the receive loop that feeds inbound datagrams to a handler.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"valkyrie/internal/message"
	"valkyrie/internal/metrics"
	"valkyrie/internal/util/logger/sl"

	"github.com/google/uuid"
)

const (
	DefaultIdentifier = "valkyrie"
	DefaultAddress    = "239.199.28.1"
	DefaultPort       = 6781

	// MaxDatagramSize bounds both reads and outgoing frames.
	MaxDatagramSize = 8192

	resolveTimeout  = 3 * time.Second
	announceTimeout = time.Second
)

// DatagramHandler receives every datagram read by the receive loop. A
// returned error is logged and counted; the loop keeps running.
type DatagramHandler interface {
	HandleDatagram(from net.Addr, data []byte) error
}

type DatagramHandlerFunc func(from net.Addr, data []byte) error

func (f DatagramHandlerFunc) HandleDatagram(from net.Addr, data []byte) error {
	return f(from, data)
}

// ListenFunc opens the socket for a group. ifi may be nil.
type ListenFunc func(group *net.UDPAddr, ifi *net.Interface) (net.PacketConn, error)

type options struct {
	address   string
	port      int
	ifaceName string
	log       *slog.Logger
	handler   DatagramHandler
	metrics   *metrics.Metrics
	listen    ListenFunc
	onJoined  func(*PeerNetwork)
	announce  bool
	nodeID    uuid.UUID
}

type Option func(*options)

// WithAddress sets the multicast group. Host names are resolved at
// construction.
func WithAddress(address string) Option {
	return func(o *options) { o.address = address }
}

func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithInterface joins the group on the named interface instead of the
// system default.
func WithInterface(name string) Option {
	return func(o *options) { o.ifaceName = name }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithHandler(h DatagramHandler) Option {
	return func(o *options) { o.handler = h }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithListener replaces the multicast socket opener.
func WithListener(listen ListenFunc) Option {
	return func(o *options) { o.listen = listen }
}

// OnJoined registers a callback run once the receive loop is live. It runs on
// the receiver's goroutine and must not call Leave.
func OnJoined(fn func(*PeerNetwork)) Option {
	return func(o *options) { o.onJoined = fn }
}

// WithAnnouncements multicasts an Announcement when the network is joined and
// left.
func WithAnnouncements(enabled bool) Option {
	return func(o *options) { o.announce = enabled }
}

func WithNodeID(id uuid.UUID) Option {
	return func(o *options) { o.nodeID = id }
}

// PeerNetwork is one named group on a multicast address and port.
type PeerNetwork struct {
	identifier string
	group      *net.UDPAddr
	ifi        *net.Interface
	nodeID     uuid.UUID
	log        *slog.Logger
	handler    DatagramHandler
	metrics    *metrics.Metrics
	listen     ListenFunc
	onJoined   func(*PeerNetwork)
	announce   bool

	mu   sync.Mutex
	conn net.PacketConn
	recv *receiver
}

// New validates the configuration and returns a network that is not yet
// joined. All configuration errors wrap ErrInvalidConfig.
func New(identifier string, opts ...Option) (*PeerNetwork, error) {
	o := options{
		address: DefaultAddress,
		port:    DefaultPort,
		listen:  listenMulticast,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier must not be empty", ErrInvalidConfig)
	}
	if o.port == 0 {
		return nil, fmt.Errorf("%w: port must not be zero", ErrInvalidConfig)
	}
	if o.port < 0 || o.port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, o.port)
	}

	ip, err := resolveGroup(o.address)
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %v", ErrInvalidConfig, o.address, err)
	}

	var ifi *net.Interface
	if o.ifaceName != "" {
		ifi, err = net.InterfaceByName(o.ifaceName)
		if err != nil {
			return nil, fmt.Errorf("%w: interface %q: %v", ErrInvalidConfig, o.ifaceName, err)
		}
	}

	if o.log == nil {
		o.log = slog.Default()
	}
	if o.handler == nil {
		o.handler = DatagramHandlerFunc(func(net.Addr, []byte) error { return nil })
	}
	if o.metrics == nil {
		o.metrics = metrics.New(metrics.DefaultNamespace, nil)
	}
	if o.nodeID == uuid.Nil {
		o.nodeID = uuid.New()
	}

	group := &net.UDPAddr{IP: ip, Port: o.port}

	return &PeerNetwork{
		identifier: identifier,
		group:      group,
		ifi:        ifi,
		nodeID:     o.nodeID,
		log: o.log.With(
			slog.String("network", identifier),
			slog.String("group", group.String()),
		),
		handler:  o.handler,
		metrics:  o.metrics,
		listen:   o.listen,
		onJoined: o.onJoined,
		announce: o.announce,
	}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(identifier string, opts ...Option) *PeerNetwork {
	n, err := New(identifier, opts...)
	if err != nil {
		panic(err)
	}
	return n
}

func resolveGroup(address string) (net.IP, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}

	ip := net.ParseIP(address)
	if ip == nil {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, address)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			if a.IP.To4() != nil {
				ip = a.IP
				break
			}
		}
		if ip == nil {
			return nil, fmt.Errorf("no IPv4 address")
		}
	}

	if ip.To4() == nil {
		return nil, fmt.Errorf("only IPv4 groups are supported")
	}
	if !ip.IsMulticast() {
		return nil, fmt.Errorf("%s is not a multicast address", ip)
	}
	return ip.To4(), nil
}

func (n *PeerNetwork) Identifier() string {
	return n.identifier
}

// Address returns the multicast group address.
func (n *PeerNetwork) Address() net.IP {
	return n.group.IP
}

func (n *PeerNetwork) Port() int {
	return n.group.Port
}

// Group returns the group address and port as one UDP address.
func (n *PeerNetwork) Group() *net.UDPAddr {
	return &net.UDPAddr{IP: n.group.IP, Port: n.group.Port}
}

// NodeID identifies this process in announcements.
func (n *PeerNetwork) NodeID() uuid.UUID {
	return n.nodeID
}

func (n *PeerNetwork) Joined() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn != nil
}

// State reports the state of the current (or last) receive loop.
func (n *PeerNetwork) State() ReceiverState {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.recv == nil {
		return StateIdle
	}
	return n.recv.State()
}

// LocalAddr returns the bound socket address, or nil before Join.
func (n *PeerNetwork) LocalAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	return n.conn.LocalAddr()
}

// Join opens the socket, joins the group and starts the receive loop. It
// returns once the loop is scheduled. Joining an already joined network is a
// no-op. On failure the network stays unjoined and Join may be retried.
func (n *PeerNetwork) Join() error {
	const op = "network.Join"
	log := n.log.With(slog.String("op", op))

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil {
		log.Debug("already joined")
		return nil
	}

	conn, err := n.listen(n.Group(), n.ifi)
	if err != nil {
		log.Error("failed to open multicast socket", sl.Err(err))
		return fmt.Errorf("%w: %s: %v", ErrJoin, n.group, err)
	}

	n.conn = conn
	n.recv = newReceiver(conn, n.handler, n.log, n.metrics, n.handleLive)
	n.recv.start()

	log.Info("joined peer network", slog.String("local_addr", conn.LocalAddr().String()))
	return nil
}

// Leave stops the receive loop, closes the socket and waits for the loop to
// exit. Leaving a network that is not joined is a no-op.
func (n *PeerNetwork) Leave() error {
	const op = "network.Leave"
	log := n.log.With(slog.String("op", op))

	n.mu.Lock()
	recv := n.recv
	if n.conn == nil {
		n.mu.Unlock()
		return nil
	}
	if n.announce {
		ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
		err := n.sendLocked(ctx, message.NewAnnouncement(message.AnnounceLeft, n.identifier, n.nodeID))
		cancel()
		if err != nil {
			log.Warn("failed to announce leave", sl.Err(err))
		}
	}
	n.conn = nil
	n.mu.Unlock()

	err := recv.stop()
	recv.wait()

	if err != nil {
		log.Warn("closing socket", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("left peer network")
	return nil
}

// Send frames m and multicasts it to the group. The header of m is updated
// by the framing step.
func (n *PeerNetwork) Send(ctx context.Context, m message.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sendLocked(ctx, m)
}

func (n *PeerNetwork) sendLocked(ctx context.Context, m message.Message) error {
	if n.conn == nil {
		return ErrNotJoined
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := message.ToWire(m)
	if err != nil {
		return err
	}
	if len(frame) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := n.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer n.conn.SetWriteDeadline(time.Time{})
	}

	written, err := n.conn.WriteTo(frame, n.group)
	if err != nil {
		return fmt.Errorf("send message %d: %w", m.Header().ID, err)
	}

	n.metrics.MessagesSent.Inc()
	n.metrics.BytesSent.Add(float64(written))
	n.log.Debug("message sent",
		slog.Int64("id", m.Header().ID),
		slog.String("type", strconv.Itoa(int(m.Header().MessageType))),
		slog.Int("bytes", written),
	)
	return nil
}

// handleLive is the network-joined event raised by the receive loop.
func (n *PeerNetwork) handleLive() {
	n.log.Info("receive loop live", slog.String("node_id", n.nodeID.String()))

	if n.announce {
		ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
		defer cancel()
		err := n.Send(ctx, message.NewAnnouncement(message.AnnounceJoined, n.identifier, n.nodeID))
		if err != nil {
			n.log.Warn("failed to announce join", sl.Err(err))
		}
	}

	if n.onJoined != nil {
		n.onJoined(n)
	}
}
