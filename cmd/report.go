package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/mikaelmello/icmprobe/core"
	"gopkg.in/yaml.v3"
)

// targetReport is everything recorded while pinging one target
type targetReport struct {
	Target   string               `json:"target" yaml:"target"`
	Address  net.IP               `json:"address,omitempty" yaml:"address,omitempty"`
	Outcomes []*core.ProbeOutcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Stats    *core.SessionStats   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Error    string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// pingReport is the document written at the end of a ping run
type pingReport struct {
	Targets []*targetReport   `json:"targets" yaml:"targets"`
	Global  core.SessionStats `json:"global" yaml:"global"`
}

// documentReporter collects a whole run and writes it as a single json or yaml document
type documentReporter struct {
	out     io.Writer
	format  string
	targets []*targetReport
}

func newDocumentReporter(out io.Writer, format string) *documentReporter {
	return &documentReporter{out: out, format: format}
}

func (r *documentReporter) attachSession(s *core.Session) {
	report := &targetReport{
		Target:   s.Target(),
		Address:  s.Address(),
		Outcomes: []*core.ProbeOutcome{},
	}
	r.targets = append(r.targets, report)

	s.AddOnRecv(func(_ *core.Session, o *core.ProbeOutcome) {
		report.Outcomes = append(report.Outcomes, o)
	})
	s.AddOnFinish(func(s *core.Session) {
		stats := s.Stats.Summarize()
		report.Stats = &stats
	})
}

func (r *documentReporter) targetFailed(target string, err error) {
	r.targets = append(r.targets, &targetReport{Target: target, Error: err.Error()})
}

func (r *documentReporter) finish(global *core.Statistics) error {
	return writeDocument(r.out, r.format, &pingReport{
		Targets: r.targets,
		Global:  global.Summarize(),
	})
}

func (r *documentReporter) attachTracer(t *core.Tracer) {
	t.AddOnFinish(func(t *core.Tracer) {
		if err := writeDocument(r.out, r.format, t.Route); err != nil {
			fmt.Fprintf(r.out, "could not write report: %s\n", err)
		}
	})
}

// writeDocument encodes v as format into out
func writeDocument(out io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case formatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}

	return fmt.Errorf("unknown output format %q", format)
}
