package cmd

import (
	"io"
	"time"

	"github.com/mikaelmello/icmprobe/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tracerouteCmd = &cobra.Command{
	Use:     "traceroute <host>",
	Aliases: []string{"tracert"},
	Short:   "Discover the routers on the path to a host",
	Long: "traceroute sends echo requests with increasing TTLs, printing every router\n" +
		"that answers until the host itself answers or reports itself unreachable.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadTracerouteSettings(config)
		if err != nil {
			return err
		}

		reporter, err := newTraceReporter(cmd.OutOrStdout(), config)
		if err != nil {
			return err
		}

		tracer, err := newTraceJob(args[0], settings, core.NewRawTransport(), core.NewSystemResolver(), reporter)
		if err != nil {
			return err
		}

		return run(tracer)
	},
}

func init() {
	flags := tracerouteCmd.Flags()

	flags.IntP("max-hops", "m", 30, "largest TTL to probe")
	flags.IntP("tries", "q", 4, "echo requests per TTL")
	flags.DurationP("timeout", "w", 2*time.Second, "time to wait for each answer")

	bindFlag(config, "traceroute.max_hops", flags.Lookup("max-hops"))
	bindFlag(config, "traceroute.tries", flags.Lookup("tries"))
	bindFlag(config, "traceroute.timeout", flags.Lookup("timeout"))
}

// traceReporter is notified of the progress of a trace
type traceReporter interface {
	attachTracer(t *core.Tracer)
}

func newTraceReporter(out io.Writer, v *viper.Viper) (traceReporter, error) {
	format, err := loadFormat(v)
	if err != nil {
		return nil, err
	}

	if format != formatText {
		return newDocumentReporter(out, format), nil
	}
	if v.GetBool("progress") {
		return newProgressPrinter(out), nil
	}
	return newTextPrinter(out), nil
}

// newTraceJob creates a tracer towards target reporting to reporter
func newTraceJob(target string, settings *core.Settings, transport core.Transport, resolver core.Resolver,
	reporter traceReporter) (*core.Tracer, error) {
	tracer, err := core.NewTracer(target, settings, transport, resolver)
	if err != nil {
		return nil, err
	}

	reporter.attachTracer(tracer)
	return tracer, nil
}
