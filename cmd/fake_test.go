package cmd

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mikaelmello/icmprobe/core"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

var (
	localAddr  = net.IPv4(192, 168, 0, 10).To4()
	targetAddr = net.IPv4(203, 0, 113, 7).To4()
	otherAddr  = net.IPv4(198, 51, 100, 20).To4()
)

// echoTransport answers every request sent to a live address with an echo reply, and
// routers answer time exceeded while the TTL is below hops. With unreachable set, the
// router at hops answers destination unreachable instead.
type echoTransport struct {
	t           *testing.T
	live        map[string]bool
	hops        int
	unreachable bool
	openErr     error
}

func newEchoTransport(t *testing.T, live ...net.IP) *echoTransport {
	transport := &echoTransport{t: t, live: map[string]bool{}, hops: 1}
	for _, ip := range live {
		transport.live[ip.String()] = true
	}
	return transport
}

func (e *echoTransport) Open(ttl int) (core.Socket, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return &echoSocket{transport: e, ttl: ttl}, nil
}

type echoSocket struct {
	transport *echoTransport
	ttl       int
	pending   []byte
	src       net.IP
}

func (s *echoSocket) WriteTo(b []byte, dst net.IP) error {
	t := s.transport.t

	if !s.transport.live[dst.String()] && !s.transport.unreachable {
		return nil
	}

	quoted := append(ipHeader(t, localAddr, dst, len(b)), b[:8]...)
	router := net.IPv4(10, 0, 0, byte(s.ttl)).To4()

	var msg *icmp.Message
	switch {
	case s.ttl < s.transport.hops:
		s.src = router
		msg = &icmp.Message{Type: ipv4.ICMPTypeTimeExceeded, Body: &icmp.TimeExceeded{Data: quoted}}
	case s.transport.unreachable:
		s.src = router
		msg = &icmp.Message{Type: ipv4.ICMPTypeDestinationUnreachable, Code: 1, Body: &icmp.DstUnreach{Data: quoted}}
	default:
		request, err := icmp.ParseMessage(1, b)
		require.NoError(t, err)

		s.src = dst
		msg = &icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: request.Body}
	}

	body, err := msg.Marshal(nil)
	require.NoError(t, err)

	s.pending = append(ipHeader(t, s.src, localAddr, len(body)), body...)
	return nil
}

func (s *echoSocket) ReadFrom(b []byte, timeout time.Duration) (int, net.IP, error) {
	if s.pending == nil {
		return 0, nil, core.ErrWaitExpired
	}

	n := copy(b, s.pending)
	s.pending = nil
	return n, s.src, nil
}

func (s *echoSocket) Close() error {
	return nil
}

func ipHeader(t *testing.T, src, dst net.IP, bodyLen int) []byte {
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + bodyLen,
		TTL:      57,
		Protocol: 1,
		Src:      src,
		Dst:      dst,
	}
	b, err := h.Marshal()
	require.NoError(t, err)
	return b
}

// staticResolver knows a fixed set of hosts and no names
type staticResolver map[string]net.IP

func (r staticResolver) LookupIP(host string) (net.IP, error) {
	if ip, ok := r[host]; ok {
		return ip, nil
	}
	return nil, errors.New("no such host")
}

func (r staticResolver) LookupName(ip net.IP) (string, error) {
	return "", errors.New("no such host")
}

func testResolver() staticResolver {
	return staticResolver{
		"target.example": targetAddr,
		"other.example":  otherAddr,
	}
}

func testSettings() *core.Settings {
	settings := core.DefaultSettings()
	settings.Identifier = 0x1234
	settings.Count = 2
	settings.Interval = 0
	settings.Timeout = 50 * time.Millisecond
	return settings
}
