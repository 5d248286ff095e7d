package core

import (
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// Prober sends single ICMP echo requests and classifies whatever answers them.
type Prober struct {
	// id is the identifier written in every echo request, used to tell our replies apart
	// from unrelated ICMP traffic reaching the host.
	id uint16

	transport Transport
	logger    *log.Logger

	// now is the clock used to stamp requests and measure waits.
	now func() time.Time
}

// NewProber creates a Prober that identifies its echo requests with id.
func NewProber(id uint16, transport Transport, logger *log.Logger) *Prober {
	return &Prober{
		id:        id,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
}

// ID returns the identifier of the echo requests sent by this prober.
func (p *Prober) ID() uint16 {
	return p.id
}

// Probe sends one echo request with the given TTL and sequence to dst and waits at most
// timeout for a correlated answer. Every call yields exactly one outcome unless the socket
// could not be set up or used.
func (p *Prober) Probe(dst net.IP, ttl int, seq uint16, timeout time.Duration) (*ProbeOutcome, error) {
	p.logger.Debugf("Opening socket with ttl %d to probe %s", ttl, dst)
	sock, err := p.transport.Open(ttl)
	if err != nil {
		var setupErr *SocketSetupError
		if errors.As(err, &setupErr) {
			return nil, err
		}
		return nil, &SocketSetupError{Op: "open", Err: err}
	}
	defer sock.Close()

	sent := p.now()
	msg := BuildEchoRequest(p.id, seq, sent.UnixNano())

	p.logger.Tracef("Writing ICMP message %x to address %s", msg, dst)
	if err := sock.WriteTo(msg, dst); err != nil {
		return nil, fmt.Errorf("error while sending echo request to %s: %w", dst, err)
	}

	return p.await(sock, seq, sent, timeout)
}

// await reads from sock until a correlated answer arrives or timeout is consumed. Foreign
// and unparsable packets are discarded and the wait continues with whatever time is left.
func (p *Prober) await(sock Socket, seq uint16, sent time.Time, timeout time.Duration) (*ProbeOutcome, error) {
	buffer := make([]byte, maxDatagramSize)
	start := p.now()

	for {
		remaining := timeout - p.now().Sub(start)
		if remaining <= 0 {
			p.logger.Debugf("Echo request %d timed out", seq)
			return buildTimedOutOutcome(seq), nil
		}

		length, src, err := sock.ReadFrom(buffer, remaining)
		if errors.Is(err, ErrWaitExpired) {
			p.logger.Debugf("Echo request %d timed out", seq)
			return buildTimedOutOutcome(seq), nil
		}
		if err != nil {
			return nil, fmt.Errorf("error while reading from socket: %w", err)
		}
		received := p.now()

		p.logger.Tracef("Raw packet received from %s: %x", src, buffer[:length])

		pkt, err := ParseIncoming(buffer[:length])
		if err != nil {
			p.logger.Debugf("Discarding packet: %s", err)
			continue
		}

		outcome, err := p.classify(pkt, seq, sent, received)
		if err != nil {
			p.logger.Debugf("Discarding packet: %s", err)
			continue
		}
		if outcome == nil {
			continue
		}

		if outcome.Src == nil {
			outcome.Src = src
		}
		return outcome, nil
	}
}

// classify turns a parsed packet into an outcome. A nil outcome means the packet belongs
// to someone else.
func (p *Prober) classify(pkt *IncomingPacket, seq uint16, sent time.Time, received time.Time) (*ProbeOutcome, error) {
	switch pkt.Type {
	case ipv4.ICMPTypeEchoReply:
		if pkt.ID != p.id {
			p.logger.Debugf("Echo reply ID does not match prober ID. Expected: %d. Actual: %d.", p.id, pkt.ID)
			return nil, nil
		}

		tstp, err := pkt.Timestamp()
		if err != nil {
			return nil, err
		}

		p.logger.Debugf("Received echo reply %d from %s", pkt.Seq, pkt.Src)
		return &ProbeOutcome{
			Result:  OutcomeReply,
			Seq:     pkt.Seq,
			Src:     pkt.Src,
			Elapsed: received.Sub(sent),
			RTT:     received.Sub(tstp),
			TTL:     pkt.TTL,
		}, nil
	case ipv4.ICMPTypeEcho:
		// our own request looped back when probing a local address
		p.logger.Debug("Ignoring echo request")
		return nil, nil
	}

	// routers do not echo our identifier in the outer header, only in the quoted datagram
	if id, qseq, ok := pkt.QuotedEcho(); ok && (id != p.id || qseq != seq) {
		p.logger.Debugf("ICMP error quotes a foreign echo request. Expected ID %d seq %d. Actual: ID %d seq %d.",
			p.id, seq, id, qseq)
		return nil, nil
	}

	p.logger.Debugf("Received ICMP type %d code %d from %s", pkt.Type, pkt.Code, pkt.Src)
	return &ProbeOutcome{
		Result:      OutcomeProtocolError,
		Seq:         seq,
		Src:         pkt.Src,
		Elapsed:     received.Sub(sent),
		ICMPType:    pkt.Type,
		ICMPCode:    pkt.Code,
		Description: Describe(pkt.Type, pkt.Code),
	}, nil
}
