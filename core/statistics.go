package core

import (
	"math"
	"sync"
)

// Statistics accumulates probe outcomes of one or more sessions. It is safe to read
// while another goroutine records.
type Statistics struct {
	mutex sync.RWMutex

	// sent is the total amount of probe attempts recorded.
	sent int

	// received is the total amount of attempts that got any answer, ICMP errors included.
	received int

	// rtts contains the round-trip times in milliseconds of all echo replies, in order.
	rtts []float64
}

// SessionStats is a snapshot of Statistics with its derived values.
type SessionStats struct {
	Sent     int       `json:"sent" yaml:"sent"`
	Received int       `json:"received" yaml:"received"`
	RTTs     []float64 `json:"rtts" yaml:"rtts"`

	// Loss is the percentage of attempts without answer, nil when nothing was sent.
	Loss *float64 `json:"loss,omitempty" yaml:"loss,omitempty"`

	// RTT summarizes RTTs, nil when there are no samples.
	RTT *RTTSummary `json:"rtt,omitempty" yaml:"rtt,omitempty"`
}

// RTTSummary contains the min/avg/max/mdev of a set of round-trip times, in milliseconds.
type RTTSummary struct {
	Min  float64 `json:"min" yaml:"min"`
	Avg  float64 `json:"avg" yaml:"avg"`
	Max  float64 `json:"max" yaml:"max"`
	MDev float64 `json:"mdev" yaml:"mdev"`
}

// NewStatistics creates an empty Statistics.
func NewStatistics() *Statistics {
	return &Statistics{
		rtts: []float64{},
	}
}

// Record accounts for one probe attempt.
func (s *Statistics) Record(outcome *ProbeOutcome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sent++
	if outcome.Result == OutcomeTimeout {
		return
	}

	s.received++
	if outcome.Result == OutcomeReply {
		s.rtts = append(s.rtts, outcome.RTTMillis())
	}
}

// Sent returns the amount of attempts recorded so far.
func (s *Statistics) Sent() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.sent
}

// Merge adds everything recorded by other into s.
func (s *Statistics) Merge(other *Statistics) {
	snapshot := other.Summarize()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sent += snapshot.Sent
	s.received += snapshot.Received
	s.rtts = append(s.rtts, snapshot.RTTs...)
}

// Summarize derives loss and RTT figures from what has been recorded so far.
func (s *Statistics) Summarize() SessionStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := SessionStats{
		Sent:     s.sent,
		Received: s.received,
		RTTs:     append([]float64{}, s.rtts...),
	}

	if s.sent > 0 {
		loss := float64(s.sent-s.received) / float64(s.sent) * 100
		stats.Loss = &loss
	}

	if len(s.rtts) > 0 {
		stats.RTT = summarizeRTTs(s.rtts)
	}

	return stats
}

// summarizeRTTs computes the summary of a non-empty set of samples.
func summarizeRTTs(rtts []float64) *RTTSummary {
	summary := &RTTSummary{
		Min: math.Inf(1),
		Max: math.Inf(-1),
	}

	var sum, sqsum float64
	for _, rtt := range rtts {
		summary.Min = math.Min(summary.Min, rtt)
		summary.Max = math.Max(summary.Max, rtt)
		sum += rtt
		sqsum += rtt * rtt
	}

	n := float64(len(rtts))
	summary.Avg = sum / n
	summary.MDev = math.Sqrt(math.Max(0, sqsum/n-summary.Avg*summary.Avg))

	return summary
}
