package probe

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Pinger sends one echo request and returns the round trip.
type Pinger func(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)

// NewPingProbe pings host once per period. A lost reply is an error, so
// Latest keeps the previous round trip.
func NewPingProbe(ping Pinger, host string, period, timeout time.Duration, opts ...Option) *Probe[time.Duration] {
	return New("ping", period, func(ctx context.Context) (time.Duration, error) {
		return ping(ctx, host, timeout)
	}, opts...)
}

const protocolICMP = 1

// ICMPPing sends an ICMP echo to host. It tries an unprivileged datagram
// socket first and falls back to a raw socket.
func ICMPPing(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	dst, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", host, err)
	}

	network := "udp4"
	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		network = "ip4:icmp"
		conn, err = icmp.ListenPacket(network, "0.0.0.0")
		if err != nil {
			return 0, fmt.Errorf("opening icmp socket: %w", err)
		}
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, fmt.Errorf("setting icmp deadline: %w", err)
	}

	id := os.Getpid() & 0xffff
	seq := rand.Intn(0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("hardmon")},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("marshaling echo: %w", err)
	}

	var peer net.Addr = dst
	if network == "udp4" {
		peer = &net.UDPAddr{IP: dst.IP}
	}
	start := time.Now()
	if _, err := conn.WriteTo(wire, peer); err != nil {
		return 0, fmt.Errorf("sending echo to %s: %w", host, err)
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return 0, fmt.Errorf("waiting for echo reply from %s: %w", host, err)
		}
		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// The kernel rewrites the ID on datagram sockets.
		if network != "udp4" && echo.ID != id {
			continue
		}
		return time.Since(start), nil
	}
}
