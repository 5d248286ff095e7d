package cmd

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mikaelmello/icmprobe/core"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pingCmd = &cobra.Command{
	Use:   "ping <host>...",
	Short: "Send echo requests to one or more hosts",
	Long: "ping sends echo requests to every host in turn, printing each reply,\n" +
		"the statistics of every host and the statistics of the whole run.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadPingSettings(config)
		if err != nil {
			return err
		}

		reporter, err := newPingReporter(cmd.OutOrStdout(), config)
		if err != nil {
			return err
		}

		job := newPingJob(args, settings, core.NewRawTransport(), core.NewSystemResolver(), reporter)
		return run(job)
	},
}

func init() {
	flags := pingCmd.Flags()

	flags.IntP("count", "c", 4, "echo requests per host, 0 to ping until interrupted")
	flags.DurationP("interval", "i", time.Second, "wait between echo requests")
	flags.DurationP("timeout", "W", time.Second, "time to wait for each answer")

	bindFlag(config, "ping.count", flags.Lookup("count"))
	bindFlag(config, "ping.interval", flags.Lookup("interval"))
	bindFlag(config, "ping.timeout", flags.Lookup("timeout"))
}

// pingReporter is notified of every session of a ping run
type pingReporter interface {
	attachSession(s *core.Session)
	targetFailed(target string, err error)
	finish(global *core.Statistics) error
}

func newPingReporter(out io.Writer, v *viper.Viper) (pingReporter, error) {
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

// pingJob pings its targets one after the other, merging every session in Global
type pingJob struct {
	Global *core.Statistics

	targets   []string
	settings  *core.Settings
	transport core.Transport
	resolver  core.Resolver
	reporter  pingReporter
	logger    *log.Logger

	mutex   sync.Mutex
	current *core.Session
	stopped bool
}

func newPingJob(targets []string, settings *core.Settings, transport core.Transport, resolver core.Resolver,
	reporter pingReporter) *pingJob {
	return &pingJob{
		Global:    core.NewStatistics(),
		targets:   targets,
		settings:  settings,
		transport: transport,
		resolver:  resolver,
		reporter:  reporter,
		logger:    core.NewLogger(settings.LoggingLevel),
	}
}

// Run pings every target. Targets that can not be resolved are reported and skipped,
// socket failures end the whole run.
func (j *pingJob) Run() error {
	failed := 0

	for _, target := range j.targets {
		session, err := j.startSession(target)
		if err != nil {
			j.logger.Errorf("Skipping %s: %s", target, err)
			j.reporter.targetFailed(target, err)
			failed++
			continue
		}
		if session == nil {
			break
		}

		err = session.Run()
		j.Global.Merge(session.Stats)

		var setupErr *core.SocketSetupError
		if errors.As(err, &setupErr) {
			return err
		}
		if err != nil {
			j.logger.Errorf("Pinging %s failed: %s", target, err)
			failed++
		}
	}

	if err := j.reporter.finish(j.Global); err != nil {
		return fmt.Errorf("error while writing report: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets could not be pinged", failed, len(j.targets))
	}
	return nil
}

// startSession creates the session of target, or nothing when a stop was requested.
func (j *pingJob) startSession(target string) (*core.Session, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.stopped {
		return nil, nil
	}

	session, err := core.NewSession(target, j.settings, j.transport, j.resolver)
	if err != nil {
		return nil, err
	}

	j.reporter.attachSession(session)
	j.current = session
	return session, nil
}

// RequestStop stops the current session and skips the remaining targets
func (j *pingJob) RequestStop() {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.stopped = true
	if j.current != nil {
		j.current.RequestStop()
	}
}
