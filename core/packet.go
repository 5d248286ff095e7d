package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	icmpHeaderLen = 8
	timestampLen  = 8

	// minIncomingLen is the fixed IPv4 header followed by the ICMP header.
	minIncomingLen = ipv4.HeaderLen + icmpHeaderLen
)

// ErrMalformedPacket is returned when received bytes cannot be read as an IPv4 datagram carrying ICMP.
var ErrMalformedPacket = errors.New("malformed packet")

// IncomingPacket contains the fields of a received datagram that matter when classifying a probe reply.
type IncomingPacket struct {
	TTL  int           // time-to-live of the received IP datagram
	Src  net.IP        // source address of the received IP datagram
	Type ipv4.ICMPType // ICMP type
	Code int           // ICMP code
	ID   uint16        // identifier, only meaningful for echo messages
	Seq  uint16        // sequence, only meaningful for echo messages

	// Payload is the echo data of echo messages, the quoted datagram of ICMP errors and
	// the raw body of anything else
	Payload []byte

	body icmp.MessageBody
}

// Checksum computes the ICMP checksum of b.
//
// The buffer is summed as little-endian 16-bit words and the complemented result is
// byte swapped, so writing the returned value in network byte order yields the correct
// wire checksum. The checksum field of b must be zero when computing, and a buffer with
// the checksum patched in sums to zero.
func Checksum(b []byte) uint16 {
	var sum uint32

	even := len(b) &^ 1
	for i := 0; i < even; i += 2 {
		sum += uint32(b[i+1])<<8 | uint32(b[i])
	}

	// a trailing odd byte counts as a low-order byte
	if even < len(b) {
		sum += uint32(b[even])
	}

	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16

	answer := ^uint16(sum)
	return answer>>8 | answer<<8
}

// BuildEchoRequest builds an ICMP Echo Request carrying sentNanos as its payload.
func BuildEchoRequest(id uint16, seq uint16, sentNanos int64) []byte {
	b := make([]byte, icmpHeaderLen+timestampLen)

	b[0] = byte(ipv4.ICMPTypeEcho)
	b[1] = echoCode
	binary.BigEndian.PutUint16(b[4:6], id)
	binary.BigEndian.PutUint16(b[6:8], seq)
	copy(b[icmpHeaderLen:], unixNanoToBytes(sentNanos))

	binary.BigEndian.PutUint16(b[2:4], Checksum(b))

	return b
}

// ParseIncoming parses a datagram read from a raw ICMP socket, IPv4 header included.
// Headers carrying IP options are rejected rather than skipped.
func ParseIncoming(b []byte) (*IncomingPacket, error) {
	if len(b) < minIncomingLen {
		return nil, fmt.Errorf("%w: %d bytes received of min %d", ErrMalformedPacket, len(b), minIncomingLen)
	}

	h, err := ipv4.ParseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPacket, err)
	}
	if h.Version != ipv4.Version {
		return nil, fmt.Errorf("%w: ip version %d", ErrMalformedPacket, h.Version)
	}
	if h.Len != ipv4.HeaderLen {
		return nil, fmt.Errorf("%w: ip header with options (%d bytes)", ErrMalformedPacket, h.Len)
	}
	if h.Protocol != icmpProtocol {
		return nil, fmt.Errorf("%w: ip protocol %d is not icmp", ErrMalformedPacket, h.Protocol)
	}

	msg, err := icmp.ParseMessage(icmpProtocol, b[ipv4.HeaderLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPacket, err)
	}

	pkt := &IncomingPacket{
		TTL:  h.TTL,
		Src:  h.Src,
		Type: msg.Type.(ipv4.ICMPType),
		Code: msg.Code,
		body: msg.Body,
	}

	switch body := msg.Body.(type) {
	case *icmp.Echo:
		pkt.ID = uint16(body.ID)
		pkt.Seq = uint16(body.Seq)
		pkt.Payload = body.Data
	case *icmp.TimeExceeded:
		pkt.Payload = body.Data
	case *icmp.DstUnreach:
		pkt.Payload = body.Data
	case *icmp.ParamProb:
		pkt.Payload = body.Data
	case *icmp.RawBody:
		pkt.Payload = body.Data
	}

	return pkt, nil
}

// Timestamp decodes the send time carried in the payload of an echo message built by BuildEchoRequest.
func (p *IncomingPacket) Timestamp() (time.Time, error) {
	if len(p.Payload) < timestampLen {
		return time.Time{}, fmt.Errorf("%w: missing timestamp, %d bytes of payload received of min %d",
			ErrMalformedPacket, len(p.Payload), timestampLen)
	}

	return bytesToUnixNano(p.Payload[:timestampLen]), nil
}

// QuotedEcho returns the identifier and sequence of the echo request quoted in the
// body of an ICMP error. ok is false when the body does not quote an echo request.
func (p *IncomingPacket) QuotedEcho() (id uint16, seq uint16, ok bool) {
	var quote []byte
	switch body := p.body.(type) {
	case *icmp.TimeExceeded:
		quote = body.Data
	case *icmp.DstUnreach:
		quote = body.Data
	case *icmp.ParamProb:
		quote = body.Data
	default:
		return 0, 0, false
	}

	h, err := ipv4.ParseHeader(quote)
	if err != nil || h.Protocol != icmpProtocol || len(quote) < h.Len+icmpHeaderLen {
		return 0, 0, false
	}

	msg, err := icmp.ParseMessage(icmpProtocol, quote[h.Len:])
	if err != nil || msg.Type != ipv4.ICMPTypeEcho {
		return 0, 0, false
	}

	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return 0, 0, false
	}

	return uint16(echo.ID), uint16(echo.Seq), true
}
