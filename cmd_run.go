package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"

	"github.com/tinygo-org/ksched/sim"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// trace is the file that receives every scheduler event.
	trace string

	// color selects coloured output: auto, always or never.
	color string

	// events also prints scheduler events on stdout.
	events bool

	// metrics prints the scheduler metrics after the run.
	metrics bool

	stdout, stderr io.Writer
}

// Name implements subcommands.Command.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.
func (*Run) Synopsis() string {
	return "run a scenario and print its output"
}

// Usage implements subcommands.Command.
func (*Run) Usage() string {
	return `run [flags] <scenario.yaml>

Run a scenario on the hosted kernel until every thread has finished or is
blocked forever. Output of print commands and the results of blocking
commands are printed as they happen, followed by a summary.
`
}

// SetFlags implements subcommands.Command.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.trace, "trace", "", "write every scheduler event to this file")
	f.StringVar(&r.color, "color", "auto", "colour output: auto, always or never")
	f.BoolVar(&r.events, "events", false, "print scheduler events on stdout")
	f.BoolVar(&r.metrics, "metrics", false, "print scheduler metrics after the run")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	stdout, stderr := outputs(r.stdout, r.stderr)
	sc, status := loadScenario(f, stderr)
	if sc == nil {
		return status
	}
	p, err := newPrinter(stdout, r.color)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}

	opts := sim.Options{Output: p.line, Events: true}
	if !r.events {
		opts.Output = func(l sim.Line) {
			if !l.Event {
				p.line(l)
			}
		}
	}
	if r.trace != "" {
		tf, err := openTrace(r.trace)
		if err != nil {
			printErr(stderr, err)
			return subcommands.ExitFailure
		}
		defer tf.Close()
		show := opts.Output
		opts.Output = func(l sim.Line) {
			fmt.Fprintln(tf.w, l.String())
			show(l)
		}
	}

	res, err := sim.Run(sc, opts)
	if res != nil {
		printSummary(stdout, res, r.metrics)
	}
	if err != nil {
		printErr(stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// traceFile is an exclusively locked trace output file. Two runs writing to
// the same trace would interleave their lines.
type traceFile struct {
	lock *flock.Flock
	f    *os.File
	w    *bufio.Writer
}

func openTrace(path string) (*traceFile, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking trace file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("trace file %s is in use by another run", path)
	}
	f, err := os.Create(path)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	return &traceFile{lock: lock, f: f, w: bufio.NewWriter(f)}, nil
}

func (t *traceFile) Close() error {
	err := t.w.Flush()
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	t.lock.Unlock()
	return err
}

func outputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
