package cmd

import (
	"os"
	"os/signal"
	"syscall"
)

// job is a blocking probing run that can be asked to stop.
type job interface {
	Run() error
	RequestStop()
}

// Runner is the struct that is responsible for running the program
type Runner struct {
	job   job
	sigch chan os.Signal
	endch chan error
	done  chan struct{}
}

// newRunner creates a runner with the initialized values
func newRunner(j job) *Runner {
	return &Runner{
		job:   j,
		sigch: make(chan os.Signal, 1),
		endch: make(chan error, 1),
		done:  make(chan struct{}),
	}
}

// Start starts the runner
func (r *Runner) Start() {
	r.handleSignals()

	go func() {
		err := r.job.Run()
		r.endch <- err
	}()
}

// RequestStop requests the stop of the job
func (r *Runner) RequestStop() {
	r.job.RequestStop()
}

// Wait blocks the caller until the runner finishes
func (r *Runner) Wait() error {
	err := <-r.endch
	signal.Stop(r.sigch)
	close(r.done)
	return err
}

// handleSignals turns interrupts into stop requests, letting the attempt in flight finish.
// The handler exits once Wait returns.
func (r *Runner) handleSignals() {
	signal.Notify(r.sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-r.sigch:
			select {
			case <-r.done:
				return
			default:
			}
			r.RequestStop()
		case <-r.done:
		}
	}()
}

// run starts j and waits for it to finish
func run(j job) error {
	r := newRunner(j)
	r.Start()
	return r.Wait()
}
