package cmd

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/mikaelmello/icmprobe/core"
	"github.com/stretchr/testify/assert"
	"golang.org/x/net/ipv4"
)

func TestFormatOutcomeReply(t *testing.T) {
	o := &core.ProbeOutcome{Result: core.OutcomeReply, TTL: 57, RTT: 12345678 * time.Nanosecond}
	assert.Equal(t, "Reply from 203.0.113.7: TTL=57 RTT=12.346 ms", formatOutcome("203.0.113.7", o))
}

func TestFormatOutcomeProtocolError(t *testing.T) {
	o := &core.ProbeOutcome{
		Result:      core.OutcomeProtocolError,
		ICMPType:    ipv4.ICMPTypeDestinationUnreachable,
		ICMPCode:    1,
		Description: core.Describe(ipv4.ICMPTypeDestinationUnreachable, 1),
	}
	assert.Equal(t, "ICMP error from 203.0.113.7: Destination host unreachable (type 3 code 1)",
		formatOutcome("203.0.113.7", o))
}

func TestFormatOutcomeTimeout(t *testing.T) {
	o := &core.ProbeOutcome{Result: core.OutcomeTimeout}
	assert.Equal(t, "Request timed out.", formatOutcome("203.0.113.7", o))
}

func TestFormatHopSilent(t *testing.T) {
	hop := &core.HopRecord{
		TTL:      7,
		Outcomes: []*core.ProbeOutcome{{Result: core.OutcomeTimeout}, {Result: core.OutcomeTimeout}},
	}
	assert.Equal(t, " 7  *  *", formatHop(hop))
}

func TestFormatHopRouter(t *testing.T) {
	hop := &core.HopRecord{
		TTL: 2,
		Outcomes: []*core.ProbeOutcome{
			{Result: core.OutcomeProtocolError, ICMPType: ipv4.ICMPTypeTimeExceeded, Elapsed: 4 * time.Millisecond},
			{Result: core.OutcomeTimeout},
		},
		Address: net.IPv4(10, 0, 0, 2),
		Name:    "router.lan",
	}
	assert.Equal(t, " 2  4ms  *                10.0.0.2  (router.lan)", formatHop(hop))
}

func TestFormatHopLabels(t *testing.T) {
	reached := &core.HopRecord{
		TTL:      12,
		Outcomes: []*core.ProbeOutcome{{Result: core.OutcomeReply, Elapsed: 20 * time.Millisecond}},
		Address:  net.IPv4(203, 0, 113, 7),
		Name:     "203.0.113.7",
	}
	assert.Equal(t, "12  20ms                  203.0.113.7  (203.0.113.7) [Destino]", formatHop(reached))

	unreachable := &core.HopRecord{
		Outcomes: []*core.ProbeOutcome{{Result: core.OutcomeProtocolError, ICMPType: ipv4.ICMPTypeDestinationUnreachable}},
	}
	assert.Equal(t, "[Destination unreachable]", hopLabel(unreachable))

	other := &core.HopRecord{
		Outcomes: []*core.ProbeOutcome{{Result: core.OutcomeProtocolError, ICMPType: ipv4.ICMPTypeParameterProblem}},
	}
	assert.Equal(t, "[ICMP tipo 12]", hopLabel(other))
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	p := newTextPrinter(&out)

	stats := core.NewStatistics()
	stats.Record(&core.ProbeOutcome{Result: core.OutcomeReply, RTT: 10 * time.Millisecond})
	stats.Record(&core.ProbeOutcome{Result: core.OutcomeReply, RTT: 20500 * time.Microsecond})
	stats.Record(&core.ProbeOutcome{Result: core.OutcomeTimeout})

	p.printStats(stats.Summarize())
	assert.Equal(t, "3 packets enviados, 2 recebidos, 33.33% de perda\nRTT min/avg/max = 10/15.25/20.5 ms\n", out.String())
}

func TestPrintStatsEmpty(t *testing.T) {
	var out bytes.Buffer
	p := newTextPrinter(&out)

	p.printStats(core.NewStatistics().Summarize())
	assert.Equal(t, "0 packets enviados, 0 recebidos, n/a% de perda\n", out.String())
}

func TestProgressMark(t *testing.T) {
	assert.Equal(t, "!", progressMark(&core.ProbeOutcome{Result: core.OutcomeReply}))
	assert.Equal(t, "E", progressMark(&core.ProbeOutcome{Result: core.OutcomeProtocolError}))
	assert.Equal(t, ".", progressMark(&core.ProbeOutcome{Result: core.OutcomeTimeout}))
}

func TestFormatRounded(t *testing.T) {
	assert.Equal(t, "1.235", formatRounded(1.23456, 3))
	assert.Equal(t, "20", formatRounded(20, 3))
	assert.Equal(t, "100", formatRounded(100, 2))
}

func TestFormatRouteEnd(t *testing.T) {
	hops := []*core.HopRecord{{TTL: 1}, {TTL: 2}, {TTL: 3}}

	assert.Empty(t, formatRouteEnd("target.example", &core.Route{MaxHops: 30, Hops: hops, Reached: true}))
	assert.Equal(t, "target.example unreachable at hop 3",
		formatRouteEnd("target.example", &core.Route{MaxHops: 30, Hops: hops, Unreachable: true}))
	assert.Equal(t, "trace to target.example stopped after 3 hops",
		formatRouteEnd("target.example", &core.Route{MaxHops: 30, Hops: hops, Stopped: true}))
	assert.Equal(t, "target.example not reached within 30 hops",
		formatRouteEnd("target.example", &core.Route{MaxHops: 30, Hops: hops}))
	assert.Equal(t, "trace to target.example stopped after 0 hops",
		formatRouteEnd("target.example", &core.Route{MaxHops: 30, Stopped: true}))
}
