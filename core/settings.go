package core

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	maxTTL      = 255
	maxInterval = time.Hour * 24
)

// Settings contains all configurable properties of a ping session or a route trace.
type Settings struct {
	// TTL is the IP Time to Live of ping echo requests. Route traces sweep their own TTLs.
	TTL int

	// Count is the amount of echo requests sent per ping target, 0 means until stopped.
	Count int

	// Interval is the time waited after an attempt is resolved before the next ping.
	Interval time.Duration

	// Timeout is the time to wait for an answer to each attempt.
	Timeout time.Duration

	// MaxHops is the largest TTL probed by a route trace.
	MaxHops int

	// Tries is the amount of attempts made at each TTL of a route trace.
	Tries int

	// Identifier is written in every echo request and distinguishes our replies from
	// unrelated ICMP traffic reaching the host.
	Identifier uint16

	// LoggingLevel is the logrus level of the logger.
	LoggingLevel uint32
}

// DefaultSettings returns the default settings, change as you wish.
func DefaultSettings() *Settings {
	return &Settings{
		TTL:          64,
		Count:        4,
		Interval:     time.Second,
		Timeout:      time.Second,
		MaxHops:      30,
		Tries:        4,
		Identifier:   0,
		LoggingLevel: uint32(log.WarnLevel),
	}
}

// Validate returns an error describing the first invalid setting, if any.
func (s *Settings) Validate() error {
	return s.validate()
}

func (s *Settings) validate() error {
	if s.TTL <= 0 || s.TTL > maxTTL {
		return fmt.Errorf("ttl %d must be between 1 and %d", s.TTL, maxTTL)
	}

	if s.Count < 0 {
		return fmt.Errorf("count %d must not be negative", s.Count)
	}

	if s.Interval < 0 || s.Interval > maxInterval {
		return fmt.Errorf("interval %s must be between 0 and %s", s.Interval, maxInterval)
	}

	if s.Timeout <= 0 {
		return fmt.Errorf("timeout %s must be positive", s.Timeout)
	}

	if s.MaxHops <= 0 || s.MaxHops > maxTTL {
		return fmt.Errorf("max hops %d must be between 1 and %d", s.MaxHops, maxTTL)
	}

	if s.Tries <= 0 {
		return fmt.Errorf("tries %d must be positive", s.Tries)
	}

	return nil
}
