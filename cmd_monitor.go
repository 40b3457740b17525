package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"

	"github.com/tinygo-org/ksched/sim"
)

// Monitor implements subcommands.Command for the "monitor" command.
type Monitor struct {
	color  string
	events bool
}

// Name implements subcommands.Command.
func (*Monitor) Name() string {
	return "monitor"
}

// Synopsis implements subcommands.Command.
func (*Monitor) Synopsis() string {
	return "run a scenario with commands typed at the terminal"
}

// Usage implements subcommands.Command.
func (*Monitor) Usage() string {
	return `monitor [flags] <scenario.yaml>

Boot the scenario, then read commands for the main thread from the terminal
(or from stdin when it is not a terminal) instead of its script. Type "help"
for the list of commands and "quit" to let the main thread exit.
`
}

// SetFlags implements subcommands.Command.
func (m *Monitor) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.color, "color", "auto", "colour output: auto, always or never")
	f.BoolVar(&m.events, "events", true, "print scheduler events")
}

// Execute implements subcommands.Command.Execute.
func (m *Monitor) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	sc, status := loadScenario(f, os.Stderr)
	if sc == nil {
		return status
	}
	p, err := newPrinter(os.Stdout, m.color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	var input func() (string, error)
	if isatty.IsTerminal(os.Stdin.Fd()) {
		t, err := tty.Open()
		if err != nil {
			printErr(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer t.Close()
		input = func() (string, error) {
			fmt.Fprint(t.Output(), "> ")
			return t.ReadString()
		}
	} else {
		input = lineReader(os.Stdin)
	}

	res, err := sim.Run(sc, sim.Options{Output: p.line, Events: m.events, Input: input})
	if res != nil {
		printSummary(os.Stdout, res, false)
	}
	if err != nil {
		printErr(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// lineReader returns a function that reads r one line at a time.
func lineReader(r io.Reader) func() (string, error) {
	scanner := bufio.NewScanner(r)
	return func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
}
