package core

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

var (
	localAddr  = net.IPv4(192, 168, 0, 10).To4()
	targetAddr = net.IPv4(203, 0, 113, 7).To4()
)

// fakeClock is advanced by the fake sockets instead of sleeping.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// scriptedPacket is delivered delay after the previous read returned.
type scriptedPacket struct {
	delay    time.Duration
	datagram []byte
	src      net.IP
}

// responder decides what the network sends back for a request written with the given ttl.
type responder func(ttl int, request []byte, dst net.IP) []scriptedPacket

type fakeTransport struct {
	clock   *fakeClock
	respond responder
	openErr error
	sendErr error

	opened []int
	closed int
	reads  []time.Duration
}

func newFakeTransport(clock *fakeClock, respond responder) *fakeTransport {
	return &fakeTransport{clock: clock, respond: respond}
}

func (t *fakeTransport) Open(ttl int) (Socket, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}

	t.opened = append(t.opened, ttl)
	return &fakeSocket{transport: t, ttl: ttl}, nil
}

type fakeSocket struct {
	transport *fakeTransport
	ttl       int
	queue     []scriptedPacket
}

func (s *fakeSocket) WriteTo(b []byte, dst net.IP) error {
	if s.transport.sendErr != nil {
		return s.transport.sendErr
	}

	if s.transport.respond != nil {
		s.queue = append(s.queue, s.transport.respond(s.ttl, append([]byte{}, b...), dst)...)
	}
	return nil
}

func (s *fakeSocket) ReadFrom(b []byte, timeout time.Duration) (int, net.IP, error) {
	s.transport.reads = append(s.transport.reads, timeout)

	if len(s.queue) == 0 {
		s.transport.clock.advance(timeout)
		return 0, nil, ErrWaitExpired
	}

	next := s.queue[0]
	if next.delay > timeout {
		s.transport.clock.advance(timeout)
		s.queue[0].delay -= timeout
		return 0, nil, ErrWaitExpired
	}

	s.transport.clock.advance(next.delay)
	s.queue = s.queue[1:]

	return copy(b, next.datagram), next.src, nil
}

func (s *fakeSocket) Close() error {
	s.transport.closed++
	return nil
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LookupIP(host string) (net.IP, error) {
	args := m.Called(host)
	ip, _ := args.Get(0).(net.IP)
	return ip, args.Error(1)
}

func (m *mockResolver) LookupName(ip net.IP) (string, error) {
	args := m.Called(ip.String())
	return args.String(0), args.Error(1)
}

// newTargetResolver returns a resolver that knows the target and names every address after itself.
func newTargetResolver() *mockResolver {
	r := &mockResolver{}
	r.On("LookupIP", "target.example").Return(targetAddr, nil)
	r.On("LookupName", mock.Anything).Return("", nil)
	return r
}

// buildDatagram prepends a 20 byte IPv4 header to a marshalled ICMP message.
func buildDatagram(t *testing.T, src net.IP, ttl int, msg *icmp.Message) []byte {
	body, err := msg.Marshal(nil)
	require.NoError(t, err)

	return prependIPHeader(t, src, localAddr, ttl, body)
}

func prependIPHeader(t *testing.T, src net.IP, dst net.IP, ttl int, body []byte) []byte {
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(body),
		TTL:      ttl,
		Protocol: icmpProtocol,
		Src:      src,
		Dst:      dst,
	}
	hb, err := h.Marshal()
	require.NoError(t, err)

	return append(hb, body...)
}

// echoReplyTo builds the echo reply a target sends back for request.
func echoReplyTo(t *testing.T, request []byte) *icmp.Message {
	msg, err := icmp.ParseMessage(icmpProtocol, request)
	require.NoError(t, err)

	echo, ok := msg.Body.(*icmp.Echo)
	require.True(t, ok)

	return &icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Code: echoCode,
		Body: &icmp.Echo{ID: echo.ID, Seq: echo.Seq, Data: echo.Data},
	}
}

// quote returns what an ICMP error carries about request: its IP header and first 8 bytes.
func quote(t *testing.T, ttl int, request []byte) []byte {
	return prependIPHeader(t, localAddr, targetAddr, ttl, request[:icmpHeaderLen])
}

func timeExceededFor(t *testing.T, request []byte) *icmp.Message {
	return &icmp.Message{
		Type: ipv4.ICMPTypeTimeExceeded,
		Code: 0,
		Body: &icmp.TimeExceeded{Data: quote(t, 1, request)},
	}
}

func unreachableFor(t *testing.T, code int, request []byte) *icmp.Message {
	return &icmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable,
		Code: code,
		Body: &icmp.DstUnreach{Data: quote(t, 1, request)},
	}
}

// routerAddr is the address of the router answering at ttl on simulated paths.
func routerAddr(ttl int) net.IP {
	return net.IPv4(10, 0, 0, byte(ttl)).To4()
}

// pathTo simulates a path where routers answer time exceeded below hops and the target
// answers echo replies from hops onwards, every answer arriving after delay.
func pathTo(t *testing.T, hops int, delay time.Duration) responder {
	return func(ttl int, request []byte, dst net.IP) []scriptedPacket {
		if ttl < hops {
			return []scriptedPacket{{
				delay:    delay,
				datagram: buildDatagram(t, routerAddr(ttl), 255-ttl, timeExceededFor(t, request)),
				src:      routerAddr(ttl),
			}}
		}

		return []scriptedPacket{{
			delay:    delay,
			datagram: buildDatagram(t, dst, 64-hops, echoReplyTo(t, request)),
			src:      dst,
		}}
	}
}
