package core

import (
	"net"

	"golang.org/x/exp/slices"
	"golang.org/x/net/ipv4"
)

// HopRecord holds every attempt made at a single TTL.
type HopRecord struct {
	TTL      int             `json:"ttl" yaml:"ttl"`
	Outcomes []*ProbeOutcome `json:"outcomes" yaml:"outcomes"`

	// Address is the first address that answered at this TTL, if any
	Address net.IP `json:"address,omitempty" yaml:"address,omitempty"`

	// Name is the reverse lookup of Address, or Address itself when the lookup failed
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Terminal is set when the destination answered or reported itself unreachable
	Terminal bool `json:"terminal" yaml:"terminal"`

	// Stats aggregates the attempts of this hop, filled once the hop is finished
	Stats SessionStats `json:"stats" yaml:"stats"`
}

// Route is the result of a TTL sweep towards a target.
type Route struct {
	Target  string       `json:"target" yaml:"target"`
	Address net.IP       `json:"address" yaml:"address"`
	MaxHops int          `json:"maxHops" yaml:"maxHops"`
	Hops    []*HopRecord `json:"hops" yaml:"hops"`

	// Reached is set when the destination answered an echo request
	Reached bool `json:"reached" yaml:"reached"`

	// Unreachable is set when the sweep ended on a destination unreachable error
	Unreachable bool `json:"unreachable" yaml:"unreachable"`

	// Stopped is set when a stop request ended the sweep before it was done
	Stopped bool `json:"stopped" yaml:"stopped"`
}

// Reached returns whether any attempt at this TTL got an echo reply.
func (h *HopRecord) Reached() bool {
	return slices.ContainsFunc(h.Outcomes, func(o *ProbeOutcome) bool {
		return o.Result == OutcomeReply
	})
}

// Unreachable returns whether any attempt at this TTL got a destination unreachable error.
func (h *HopRecord) Unreachable() bool {
	return slices.ContainsFunc(h.Outcomes, func(o *ProbeOutcome) bool {
		return o.Result == OutcomeProtocolError && o.ICMPType == ipv4.ICMPTypeDestinationUnreachable
	})
}

// Answered returns whether anything answered at this TTL.
func (h *HopRecord) Answered() bool {
	return slices.ContainsFunc(h.Outcomes, (*ProbeOutcome).Answered)
}

// finalize classifies and summarizes the hop once its attempt budget is spent.
func (h *HopRecord) finalize() {
	h.Terminal = h.Reached() || h.Unreachable()

	stats := NewStatistics()
	for _, outcome := range h.Outcomes {
		stats.Record(outcome)
	}
	h.Stats = stats.Summarize()
}

// conclude fills the route verdict from its last hop.
func (r *Route) conclude() {
	if len(r.Hops) == 0 {
		return
	}

	last := r.Hops[len(r.Hops)-1]
	r.Reached = last.Reached()
	r.Unreachable = !r.Reached && last.Unreachable()
}
