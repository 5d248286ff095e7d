package core

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Tracer discovers the route to a target by sweeping the TTL of echo requests upwards
// until the target answers, reports itself unreachable, or the hop budget runs out.
type Tracer struct {
	// Route is filled hop by hop while the tracer runs
	Route *Route

	settings *Settings
	prober   *Prober
	resolver Resolver

	// lastSequence is the sequence number of the last sent echo request.
	lastSequence uint16

	// logger is an instance of logrus used to log activities related to this trace
	logger *log.Logger

	// stop is closed when a stop is requested, checked before every attempt
	stop     chan struct{}
	stopOnce sync.Once

	isStarted  bool
	isFinished bool

	stHandlers  []func(*Tracer)
	rtHandlers  []func(*Tracer, int, *ProbeOutcome)
	hopHandlers []func(*Tracer, *HopRecord)
	endHandlers []func(*Tracer)
}

// NewTracer creates a Tracer towards target
func NewTracer(target string, settings *Settings, transport Transport, resolver Resolver) (*Tracer, error) {
	logger := NewLogger(settings.LoggingLevel)

	logger.Debug("Validating settings")
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger.Infof("Resolving address %s", target)
	addr, err := resolveTarget(resolver, target)
	if err != nil {
		return nil, err
	}
	logger.Infof("Address %s resolved to IP Address %s", target, addr)

	tracer := &Tracer{
		Route: &Route{
			Target:  target,
			Address: addr,
			MaxHops: settings.MaxHops,
			Hops:    []*HopRecord{},
		},
		settings: settings,
		prober:   NewProber(settings.Identifier, transport, logger),
		resolver: resolver,
		logger:   logger,
		stop:     make(chan struct{}),
	}

	logger.Infof("Created tracer with id %d, max hops %d, %d tries per hop", settings.Identifier,
		settings.MaxHops, settings.Tries)

	return tracer, nil
}

// Run sweeps the TTL from 1 to the configured max hops. A trace that runs out of hops
// without reaching the target is not an error.
func (t *Tracer) Run() error {
	if t.isFinished {
		return fmt.Errorf("this trace has already finished")
	}
	if t.isStarted {
		return fmt.Errorf("this trace has already started")
	}
	t.isStarted = true

	t.logger.Info("Calling start callbacks")
	for _, f := range t.stHandlers {
		f(t)
	}

	err := t.sweep()

	t.Route.conclude()

	t.logger.Info("Calling ending callbacks")
	for _, f := range t.endHandlers {
		f(t)
	}

	t.isFinished = true
	t.logger.Info("Trace ended")
	return err
}

// RequestStop requests the trace to stop before its next attempt
func (t *Tracer) RequestStop() {
	t.logger.Info("Requesting to end trace")
	t.stopOnce.Do(func() { close(t.stop) })
}

// IsStarted returns whether this trace is started
func (t *Tracer) IsStarted() bool {
	return t.isStarted
}

// IsFinished returns whether this trace is finished
func (t *Tracer) IsFinished() bool {
	return t.isFinished
}

// Address is the resolved address of the target
func (t *Tracer) Address() net.IP {
	return t.Route.Address
}

// Target is the target as given by the caller
func (t *Tracer) Target() string {
	return t.Route.Target
}

// Settings returns the settings of this trace
func (t *Tracer) Settings() Settings {
	return *t.settings
}

// AddOnStart adds a handler function that will be called when the trace starts
func (t *Tracer) AddOnStart(handler func(*Tracer)) {
	t.stHandlers = append(t.stHandlers, handler)
}

// AddOnRecv adds a handler function that will be called after every attempt, with its TTL
func (t *Tracer) AddOnRecv(handler func(*Tracer, int, *ProbeOutcome)) {
	t.rtHandlers = append(t.rtHandlers, handler)
}

// AddOnHop adds a handler function that will be called after every finished hop
func (t *Tracer) AddOnHop(handler func(*Tracer, *HopRecord)) {
	t.hopHandlers = append(t.hopHandlers, handler)
}

// AddOnFinish adds a handler function that will be called when the trace ends
func (t *Tracer) AddOnFinish(handler func(*Tracer)) {
	t.endHandlers = append(t.endHandlers, handler)
}

// sweep probes hop after hop, never starting a hop before the previous one is finished.
func (t *Tracer) sweep() error {
	for ttl := 1; ttl <= t.settings.MaxHops; ttl++ {
		hop, err := t.probeHop(ttl)

		if len(hop.Outcomes) > 0 {
			t.Route.Hops = append(t.Route.Hops, hop)

			for _, f := range t.hopHandlers {
				f(t, hop)
			}
		}

		if err != nil {
			return err
		}

		if hop.Terminal {
			t.logger.Infof("Hop %d is terminal, reached: %t", ttl, hop.Reached())
			return nil
		}

		if isStopRequested(t.stop) {
			t.logger.Info("Stop requested, not probing further hops")
			t.Route.Stopped = true
			return nil
		}
	}

	t.logger.Infof("Target not reached within %d hops", t.settings.MaxHops)
	return nil
}

// probeHop runs the attempt budget at a single TTL. The returned hop is finalized even
// when an error interrupts it.
func (t *Tracer) probeHop(ttl int) (*HopRecord, error) {
	hop := &HopRecord{
		TTL:      ttl,
		Outcomes: make([]*ProbeOutcome, 0, t.settings.Tries),
	}
	defer hop.finalize()

	for i := 0; i < t.settings.Tries; i++ {
		if isStopRequested(t.stop) {
			break
		}

		t.lastSequence++
		outcome, err := t.prober.Probe(t.Route.Address, ttl, t.lastSequence, t.settings.Timeout)
		if err != nil {
			return hop, fmt.Errorf("error while probing hop %d: %w", ttl, err)
		}

		hop.Outcomes = append(hop.Outcomes, outcome)

		if hop.Address == nil && outcome.Answered() && outcome.Src != nil {
			hop.Address = outcome.Src
			hop.Name = t.lookupName(outcome.Src)
		}

		for _, f := range t.rtHandlers {
			f(t, ttl, outcome)
		}
	}

	return hop, nil
}

// lookupName resolves ip to a name, falling back to the literal address.
func (t *Tracer) lookupName(ip net.IP) string {
	name, err := t.resolver.LookupName(ip)
	if err != nil || name == "" {
		t.logger.Debugf("Could not resolve name of %s: %v", ip, err)
		return ip.String()
	}

	return name
}
