package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/mikaelmello/icmprobe/core"
)

// progressPrinter writes a single character per attempt, keeping the text printer's
// headers and summaries.
type progressPrinter struct {
	*textPrinter
	mutex sync.Mutex
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{textPrinter: newTextPrinter(out)}
}

func (p *progressPrinter) attachSession(s *core.Session) {
	s.AddOnStart(p.printOnStart)
	s.AddOnRecv(p.progressOnOutcome)
	s.AddOnFinish(p.progressOnEnd)
}

func (p *progressPrinter) attachTracer(t *core.Tracer) {
	t.AddOnStart(p.printOnTraceStart)
	t.AddOnRecv(p.progressOnAttempt)
	t.AddOnHop(p.progressOnHop)
	t.AddOnFinish(p.printOnTraceEnd)
}

func (p *progressPrinter) progressOnOutcome(s *core.Session, o *core.ProbeOutcome) {
	p.mark(o)
}

func (p *progressPrinter) progressOnEnd(s *core.Session) {
	fmt.Fprintln(p.out)
	p.printOnEnd(s)
}

func (p *progressPrinter) progressOnAttempt(t *core.Tracer, ttl int, o *core.ProbeOutcome) {
	p.mark(o)
}

func (p *progressPrinter) progressOnHop(t *core.Tracer, hop *core.HopRecord) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if hop.Address != nil {
		fmt.Fprintf(p.out, "  %2d %s\n", hop.TTL, hop.Address)
		return
	}
	fmt.Fprintf(p.out, "  %2d\n", hop.TTL)
}

func (p *progressPrinter) mark(o *core.ProbeOutcome) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	fmt.Fprint(p.out, progressMark(o))
}

func progressMark(o *core.ProbeOutcome) string {
	switch o.Result {
	case core.OutcomeReply:
		return "!"
	case core.OutcomeProtocolError:
		return "E"
	}
	return "."
}
