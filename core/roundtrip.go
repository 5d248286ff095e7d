package core

import (
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// OutcomeResult is the end result of a single probe attempt
type OutcomeResult int

const (
	// OutcomeReply is the result of when an echo request is answered by an echo reply of this session
	OutcomeReply OutcomeResult = iota
	// OutcomeProtocolError is the result of when the network answers with an ICMP error
	OutcomeProtocolError
	// OutcomeTimeout is the result of when nothing correlated arrives before the deadline
	OutcomeTimeout
)

func (r OutcomeResult) String() string {
	switch r {
	case OutcomeReply:
		return "reply"
	case OutcomeProtocolError:
		return "protocol_error"
	case OutcomeTimeout:
		return "timeout"
	}
	return "unknown"
}

// MarshalText lets the result read as its name in json and yaml reports.
func (r OutcomeResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ProbeOutcome is the classified result of one probe attempt.
type ProbeOutcome struct {
	Result OutcomeResult `json:"result" yaml:"result"`
	Seq    uint16        `json:"seq" yaml:"seq"`

	// Src is the address that answered, empty on timeouts
	Src net.IP `json:"src,omitempty" yaml:"src,omitempty"`

	// Elapsed is the time between sending and receiving the answer, zero on timeouts
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// RTT is computed from the timestamp echoed back by the target, replies only
	RTT time.Duration `json:"rtt,omitempty" yaml:"rtt,omitempty"`

	// TTL is the time-to-live of the reply datagram, replies only
	TTL int `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	ICMPType    ipv4.ICMPType `json:"icmpType,omitempty" yaml:"icmpType,omitempty"`
	ICMPCode    int           `json:"icmpCode,omitempty" yaml:"icmpCode,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// RTTMillis returns the round-trip time in milliseconds.
func (o *ProbeOutcome) RTTMillis() float64 {
	return float64(o.RTT) / float64(time.Millisecond)
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (o *ProbeOutcome) ElapsedMillis() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}

// Answered returns whether something answered this attempt.
func (o *ProbeOutcome) Answered() bool {
	return o.Result != OutcomeTimeout
}

// buildTimedOutOutcome builds the outcome of an attempt that got no correlated answer.
func buildTimedOutOutcome(seq uint16) *ProbeOutcome {
	return &ProbeOutcome{
		Result: OutcomeTimeout,
		Seq:    seq,
	}
}
