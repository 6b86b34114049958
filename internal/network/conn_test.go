package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
)

var errAddrInUse = errors.New("address already in use")

type datagram struct {
	from net.Addr
	data []byte
}

// fakeConn is an in-memory PacketConn. Reads are fed through in and errs,
// writes land in out.
type fakeConn struct {
	in     chan datagram
	errs   chan error
	out    chan []byte
	closed chan struct{}
	once   sync.Once
	local  net.Addr
	dest   chan net.Addr
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan datagram, 16),
		errs:   make(chan error, 16),
		out:    make(chan []byte, 16),
		dest:   make(chan net.Addr, 16),
		closed: make(chan struct{}),
		local:  &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6781},
	}
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case <-c.closed:
		return 0, nil, net.ErrClosed
	default:
	}

	select {
	case d := <-c.in:
		return copy(b, d.data), d.from, nil
	case err := <-c.errs:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}
	c.out <- append([]byte(nil), b...)
	c.dest <- addr
	return len(b), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) LocalAddr() net.Addr { return c.local }
func (c *fakeConn) SetDeadline(time.Time) error { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// fakeListener hands out fresh fakeConns and counts how many were opened.
type fakeListener struct {
	opened atomic.Int32
	fail   atomic.Int32
	mu     sync.Mutex
	conns  []*fakeConn
}

func (l *fakeListener) listen(group *net.UDPAddr, _ *net.Interface) (net.PacketConn, error) {
	if l.fail.Load() > 0 {
		l.fail.Dec()
		return nil, &net.OpError{Op: "listen", Net: "udp4", Err: errAddrInUse}
	}
	l.opened.Inc()

	c := newFakeConn()
	l.mu.Lock()
	l.conns = append(l.conns, c)
	l.mu.Unlock()
	return c, nil
}

func (l *fakeListener) last() *fakeConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conns[len(l.conns)-1]
}
