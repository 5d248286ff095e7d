package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mikaelmello/icmprobe/core"
	"golang.org/x/net/ipv4"
)

// textPrinter writes one line per attempt or hop as it is resolved
type textPrinter struct {
	out io.Writer
}

func newTextPrinter(out io.Writer) *textPrinter {
	return &textPrinter{out: out}
}

func (p *textPrinter) attachSession(s *core.Session) {
	s.AddOnStart(p.printOnStart)
	s.AddOnRecv(p.printOnOutcome)
	s.AddOnFinish(p.printOnEnd)
}

func (p *textPrinter) targetFailed(target string, err error) {
	fmt.Fprintf(p.out, "\n%s: %s\n", target, err)
}

func (p *textPrinter) finish(global *core.Statistics) error {
	fmt.Fprintln(p.out, "\n=== Estatísticas Globais ===")
	p.printStats(global.Summarize())
	return nil
}

func (p *textPrinter) attachTracer(t *core.Tracer) {
	t.AddOnStart(p.printOnTraceStart)
	t.AddOnHop(p.printOnHop)
	t.AddOnFinish(p.printOnTraceEnd)
}

func (p *textPrinter) printOnStart(s *core.Session) {
	fmt.Fprintf(p.out, "\nPING %s (%s)\n", s.Target(), s.Address())
}

func (p *textPrinter) printOnOutcome(s *core.Session, o *core.ProbeOutcome) {
	fmt.Fprintln(p.out, formatOutcome(s.Address().String(), o))
}

func (p *textPrinter) printOnEnd(s *core.Session) {
	fmt.Fprintf(p.out, "\n--- Estatísticas de %s ---\n", s.Target())
	p.printStats(s.Stats.Summarize())
}

func (p *textPrinter) printStats(stats core.SessionStats) {
	loss := "n/a"
	if stats.Loss != nil {
		loss = formatRounded(*stats.Loss, 2)
	}

	fmt.Fprintf(p.out, "%d packets enviados, %d recebidos, %s%% de perda\n", stats.Sent, stats.Received, loss)

	if stats.RTT != nil {
		fmt.Fprintf(p.out, "RTT min/avg/max = %s/%s/%s ms\n",
			formatRounded(stats.RTT.Min, 3), formatRounded(stats.RTT.Avg, 3), formatRounded(stats.RTT.Max, 3))
	}
}

func (p *textPrinter) printOnTraceStart(t *core.Tracer) {
	settings := t.Settings()
	fmt.Fprintf(p.out, "traceroute to %s (%s), %d hops max, %d probes per hop\n\n",
		t.Target(), t.Address(), settings.MaxHops, settings.Tries)
}

func (p *textPrinter) printOnHop(t *core.Tracer, hop *core.HopRecord) {
	fmt.Fprintln(p.out, formatHop(hop))
}

func (p *textPrinter) printOnTraceEnd(t *core.Tracer) {
	if line := formatRouteEnd(t.Target(), t.Route); line != "" {
		fmt.Fprintf(p.out, "\n%s\n", line)
	}
}

// formatRouteEnd tells how a trace that did not reach its target ended
func formatRouteEnd(target string, route *core.Route) string {
	switch {
	case route.Reached:
		return ""
	case route.Unreachable:
		return fmt.Sprintf("%s unreachable at hop %d", target, route.Hops[len(route.Hops)-1].TTL)
	case route.Stopped:
		return fmt.Sprintf("trace to %s stopped after %d hops", target, len(route.Hops))
	}

	return fmt.Sprintf("%s not reached within %d hops", target, route.MaxHops)
}

// formatOutcome renders a single ping attempt
func formatOutcome(dest string, o *core.ProbeOutcome) string {
	switch o.Result {
	case core.OutcomeReply:
		return fmt.Sprintf("Reply from %s: TTL=%d RTT=%s ms", dest, o.TTL, formatRounded(o.RTTMillis(), 3))
	case core.OutcomeProtocolError:
		return fmt.Sprintf("ICMP error from %s: %s (type %d code %d)", dest, o.Description, o.ICMPType, o.ICMPCode)
	}

	return "Request timed out."
}

// formatHop renders a hop as its TTL, one column per attempt, and whoever answered
func formatHop(hop *core.HopRecord) string {
	results := make([]string, 0, len(hop.Outcomes))
	for _, o := range hop.Outcomes {
		if !o.Answered() {
			results = append(results, "*")
			continue
		}
		results = append(results, fmt.Sprintf("%.0fms", o.ElapsedMillis()))
	}

	columns := strings.Join(results, "  ")
	if hop.Address == nil {
		return fmt.Sprintf("%2d  %s", hop.TTL, columns)
	}

	line := fmt.Sprintf("%2d  %-20s  %s  (%s) %s", hop.TTL, columns, hop.Address, hop.Name, hopLabel(hop))
	return strings.TrimRight(line, " ")
}

// hopLabel tells why a hop ended the trace, or names unexpected answers
func hopLabel(hop *core.HopRecord) string {
	if hop.Reached() {
		return "[Destino]"
	}
	if hop.Unreachable() {
		return "[Destination unreachable]"
	}

	for i := len(hop.Outcomes) - 1; i >= 0; i-- {
		o := hop.Outcomes[i]
		if o.Result == core.OutcomeProtocolError && o.ICMPType != ipv4.ICMPTypeTimeExceeded {
			return fmt.Sprintf("[ICMP tipo %d]", int(o.ICMPType))
		}
	}

	return ""
}

// formatRounded rounds v to the given decimals, dropping trailing zeros
func formatRounded(v float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}
