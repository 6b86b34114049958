package network

import (
	"errors"
	"net"
	"testing"
	"time"

	"valkyrie/internal/message"
	"valkyrie/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var peerAddr = &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 6781}

// decodingHandler decodes with a registry and forwards good messages.
func decodingHandler(out chan<- message.Message) DatagramHandlerFunc {
	registry := message.NewRegistry()
	registry.MustRegister(message.TypeText, func() message.Message { return &message.Text{} })

	return func(_ net.Addr, data []byte) error {
		m, err := registry.Decode(data)
		if err != nil {
			return err
		}
		out <- m
		return nil
	}
}

func joinWithHandler(t *testing.T, h DatagramHandler) (*PeerNetwork, *fakeConn, *metrics.Metrics) {
	t.Helper()

	l := &fakeListener{}
	m := metrics.New("test", nil)
	n := newTestNetwork(t, l, WithHandler(h), WithMetrics(m))
	require.NoError(t, n.Join())
	return n, l.last(), m
}

func textFrame(t *testing.T, body string) []byte {
	t.Helper()

	frame, err := message.ToWire(message.NewText(body))
	require.NoError(t, err)
	return frame
}

func expectText(t *testing.T, out <-chan message.Message, body string) {
	t.Helper()

	select {
	case m := <-out:
		text, ok := m.(*message.Text)
		require.True(t, ok)
		assert.Equal(t, body, text.Body)
	case <-time.After(waitFor):
		t.Fatalf("message %q was not delivered", body)
	}
}

func TestReceiver_SurvivesUndecodableDatagram(t *testing.T) {
	out := make(chan message.Message, 4)
	n, conn, m := joinWithHandler(t, decodingHandler(out))

	conn.in <- datagram{from: peerAddr, data: make([]byte, 10)}
	conn.in <- datagram{from: peerAddr, data: textFrame(t, "still alive")}

	expectText(t, out, "still alive")
	assert.Equal(t, StateReceiving, n.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DatagramFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DatagramsReceived))
}

func TestReceiver_TransientReadError(t *testing.T) {
	out := make(chan message.Message, 4)
	n, conn, m := joinWithHandler(t, decodingHandler(out))

	conn.errs <- errors.New("connection refused")
	conn.in <- datagram{from: peerAddr, data: textFrame(t, "after error")}

	expectText(t, out, "after error")
	assert.Equal(t, StateReceiving, n.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReceiveErrors))
}

func TestReceiver_HandlerPanic(t *testing.T) {
	out := make(chan message.Message, 4)
	next := decodingHandler(out)
	calls := 0
	h := DatagramHandlerFunc(func(from net.Addr, data []byte) error {
		calls++
		if calls == 1 {
			panic("bad handler")
		}
		return next(from, data)
	})

	_, conn, m := joinWithHandler(t, h)

	conn.in <- datagram{from: peerAddr, data: textFrame(t, "first")}
	conn.in <- datagram{from: peerAddr, data: textFrame(t, "second")}

	expectText(t, out, "second")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DatagramFailures))
}

func TestReceiver_DeliversWholeDatagram(t *testing.T) {
	got := make(chan []byte, 1)
	_, conn, m := joinWithHandler(t, DatagramHandlerFunc(func(_ net.Addr, data []byte) error {
		got <- data
		return nil
	}))

	payload := make([]byte, MaxDatagramSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	conn.in <- datagram{from: peerAddr, data: payload}

	select {
	case data := <-got:
		assert.Equal(t, payload, data)
	case <-time.After(waitFor):
		t.Fatal("datagram was not delivered")
	}
	assert.Equal(t, float64(MaxDatagramSize), testutil.ToFloat64(m.BytesReceived))
}

func TestReceiverState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "receiving", StateReceiving.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "state(9)", ReceiverState(9).String())
}
