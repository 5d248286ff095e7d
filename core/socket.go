package core

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// ErrWaitExpired is returned by Socket.ReadFrom when nothing arrives within the bounded wait.
var ErrWaitExpired = errors.New("wait expired")

// SocketSetupError is returned when a raw socket can not be acquired or configured.
// Creating raw sockets usually requires elevated privileges, so this is never retried.
type SocketSetupError struct {
	Op  string
	Err error
}

func (e *SocketSetupError) Error() string {
	return fmt.Sprintf("could not %s raw icmp socket: %s", e.Op, e.Err)
}

func (e *SocketSetupError) Unwrap() error {
	return e.Err
}

// Transport opens sockets able to send ICMP messages and receive whole IPv4 datagrams.
type Transport interface {
	// Open returns a socket whose outgoing datagrams carry the given TTL.
	Open(ttl int) (Socket, error)
}

// Socket is a raw ICMP socket scoped to a single probe attempt.
type Socket interface {
	// WriteTo sends an ICMP message to dst.
	WriteTo(b []byte, dst net.IP) error

	// ReadFrom blocks for at most timeout and reads one datagram, IP header included.
	// It returns ErrWaitExpired if nothing was readable in time.
	ReadFrom(b []byte, timeout time.Duration) (int, net.IP, error)

	Close() error
}

// RawTransport opens privileged raw IPv4 ICMP sockets.
type RawTransport struct{}

// NewRawTransport creates a RawTransport.
func NewRawTransport() *RawTransport {
	return &RawTransport{}
}

// Open opens a raw ICMP socket bound to no particular local address.
func (t *RawTransport) Open(ttl int) (Socket, error) {
	conn, err := net.ListenIP(icmpNetwork, &net.IPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, &SocketSetupError{Op: "open", Err: err}
	}

	raw, err := ipv4.NewRawConn(conn)
	if err != nil {
		conn.Close()
		return nil, &SocketSetupError{Op: "configure", Err: err}
	}

	return &rawSocket{conn: conn, raw: raw, ttl: ttl}, nil
}

// rawSocket writes through an ipv4.RawConn, which includes its own IP header, and reads
// through the underlying IPConn so the received header is kept intact for the codec.
type rawSocket struct {
	conn *net.IPConn
	raw  *ipv4.RawConn
	ttl  int
}

func (s *rawSocket) WriteTo(b []byte, dst net.IP) error {
	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(b),
		TTL:      s.ttl,
		Protocol: icmpProtocol,
		Dst:      dst,
	}

	return s.raw.WriteTo(h, b, nil)
}

func (s *rawSocket) ReadFrom(b []byte, timeout time.Duration) (int, net.IP, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("error while setting read deadline: %w", err)
	}

	n, _, _, addr, err := s.conn.ReadMsgIP(b, nil)
	if err != nil {
		var neterr net.Error
		if errors.As(err, &neterr) && neterr.Timeout() {
			return 0, nil, ErrWaitExpired
		}
		return 0, nil, err
	}

	var src net.IP
	if addr != nil {
		src = addr.IP
	}

	return n, src, nil
}

func (s *rawSocket) Close() error {
	return s.conn.Close()
}
