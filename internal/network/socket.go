package network

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

// listenMulticast binds the wildcard address on the group port with address
// reuse enabled, then joins the group.
func listenMulticast(group *net.UDPAddr, ifi *net.Interface) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseControl}

	conn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(group.Port)))
	if err != nil {
		return nil, fmt.Errorf("bind port %d: %w", group.Port, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join group %s: %w", group.IP, err)
	}
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set multicast interface %s: %w", ifi.Name, err)
		}
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable multicast loopback: %w", err)
	}

	return conn, nil
}
