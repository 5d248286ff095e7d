package core

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Session is a sequence of echo requests sent to a single target
type Session struct {
	// Stats contain the overall statistics of the session
	Stats *Statistics

	settings *Settings
	prober   *Prober

	// target is the host as given by the caller
	target string

	// addr contains the resolved address of the target host
	addr net.IP

	// lastSequence is the sequence number of the last sent echo request.
	lastSequence uint16

	// logger is an instance of logrus used to log activities related to this session
	logger *log.Logger

	// stop is closed when a stop is requested, checked before every attempt
	stop     chan struct{}
	stopOnce sync.Once

	// isStarted contains whether the session has been started
	isStarted bool

	// isFinished contains whether the session has been finished
	isFinished bool

	// rtHandlers are the callback functions called when an attempt is resolved.
	rtHandlers []func(*Session, *ProbeOutcome)

	// stHandlers are the callback functions called when the session starts.
	stHandlers []func(*Session)

	// endHandlers are the callback functions called when the session ends.
	endHandlers []func(*Session)
}

// NewSession creates a new Session
func NewSession(target string, settings *Settings, transport Transport, resolver Resolver) (*Session, error) {
	logger := NewLogger(settings.LoggingLevel)

	logger.Debug("Validating settings")

	err := settings.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger.Debug("Settings configured correctly")

	logger.Infof("Resolving address %s", target)

	addr, err := resolveTarget(resolver, target)
	if err != nil {
		return nil, err
	}

	logger.Infof("Address %s resolved to IP Address %s", target, addr)

	session := &Session{
		Stats:        NewStatistics(),
		settings:     settings,
		prober:       NewProber(settings.Identifier, transport, logger),
		target:       target,
		addr:         addr,
		lastSequence: 0,
		logger:       logger,
		stop:         make(chan struct{}),
		isStarted:    false,
		isFinished:   false,
	}

	logger.Infof("Created session with id %d, addr %s", settings.Identifier, addr)

	return session, nil
}

// Run executes the sequence of pings
func (s *Session) Run() error {
	if s.isFinished {
		return fmt.Errorf("this session has already finished")
	}
	if s.isStarted {
		return fmt.Errorf("this session has already started")
	}
	s.isStarted = true

	s.logger.Info("Calling start callbacks")
	for _, f := range s.stHandlers {
		f(s)
	}

	err := s.loop()

	s.logger.Info("Calling ending callbacks")
	for _, f := range s.endHandlers {
		f(s)
	}

	s.isFinished = true
	s.logger.Info("Session ended")
	return err
}

// RequestStop requests the stop the execution of the session. The attempt in flight, if
// any, is still resolved.
func (s *Session) RequestStop() {
	s.logger.Info("Requesting to end session")
	s.stopOnce.Do(func() { close(s.stop) })
}

// IsStarted returns whether this session is started
func (s *Session) IsStarted() bool {
	return s.isStarted
}

// IsFinished returns whether this session is finished
func (s *Session) IsFinished() bool {
	return s.isFinished
}

// Address is the resolved address of the target in this session
func (s *Session) Address() net.IP {
	return s.addr
}

// Target is the target of this session as given by the caller
func (s *Session) Target() string {
	return s.target
}

// AddOnRecv adds a handler function that will be called after an echo request is answered or expires
func (s *Session) AddOnRecv(handler func(*Session, *ProbeOutcome)) {
	s.rtHandlers = append(s.rtHandlers, handler)
}

// AddOnStart adds a handler function that will be called when the session starts
func (s *Session) AddOnStart(handler func(*Session)) {
	s.stHandlers = append(s.stHandlers, handler)
}

// AddOnFinish adds a handler function that will be called when the session ends
func (s *Session) AddOnFinish(handler func(*Session)) {
	s.endHandlers = append(s.endHandlers, handler)
}

// loop sends echo requests one at a time until the count is reached or a stop is requested.
func (s *Session) loop() error {
	for !s.reachedRequestLimit() {
		if isStopRequested(s.stop) {
			s.logger.Info("Stop requested, not sending more requests")
			return nil
		}

		s.lastSequence++
		s.logger.Infof("Making a new echo request to address %s with sequence %d", s.addr, s.lastSequence)

		outcome, err := s.prober.Probe(s.addr, s.settings.TTL, s.lastSequence, s.settings.Timeout)
		if err != nil {
			return err
		}

		s.processOutcome(outcome)

		if s.reachedRequestLimit() {
			s.logger.Info("Not firing more requests as we have reached the set count")
			return nil
		}

		if sleepOrStop(s.settings.Interval, s.stop) {
			s.logger.Info("Stop requested while waiting for the next request")
			return nil
		}
	}

	return nil
}

// reachedRequestLimit whether we have reached the request limit of this session.
func (s *Session) reachedRequestLimit() bool {
	return s.settings.Count > 0 && s.Stats.Sent() >= s.settings.Count
}

// processOutcome records an outcome and calls all handlers for it.
func (s *Session) processOutcome(outcome *ProbeOutcome) {
	s.Stats.Record(outcome)

	s.logger.Info("Calling all handlers for latest outcome")
	for _, f := range s.rtHandlers {
		f(s, outcome)
	}
}
