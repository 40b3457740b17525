// Command ksched runs scheduler scenarios on the hosted kernel port.
//
//	ksched run [flags] scenario.yaml
//	ksched check scenario.yaml
//	ksched monitor scenario.yaml
//	ksched version
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/tinygo-org/ksched/diagnostics"
	"github.com/tinygo-org/ksched/sim"
	"github.com/tinygo-org/ksched/src/runtime/metrics"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&Run{}, "")
	subcommands.Register(&Check{}, "")
	subcommands.Register(&Monitor{}, "")
	subcommands.Register(&Version{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// printErr prints err in a consistent way to w.
func printErr(w io.Writer, err error) {
	wd, _ := os.Getwd()
	diagnostics.CreateDiagnostics(err).WriteTo(w, wd)
}

// loadScenario loads the single scenario named on the command line.
func loadScenario(f *flag.FlagSet, stderr io.Writer) (*sim.Scenario, subcommands.ExitStatus) {
	if f.NArg() != 1 {
		f.Usage()
		return nil, subcommands.ExitUsageError
	}
	sc, err := sim.Load(f.Arg(0))
	if err != nil {
		printErr(stderr, err)
		return nil, subcommands.ExitFailure
	}
	return sc, subcommands.ExitSuccess
}

// printSummary writes the outcome of a run.
func printSummary(w io.Writer, res *sim.Result, withMetrics bool) {
	fmt.Fprintf(w, "ran %d ticks (%d idle), %d context switches, checksum %04x\n",
		res.Ticks, res.IdleTicks, res.Stats.Switches, res.Checksum)
	for _, t := range res.Blocked() {
		fmt.Fprintf(w, "warning: thread %s (priority %d) never finished: %s\n", t.Name, t.Priority, t.Flags)
	}
	if !withMetrics {
		return
	}
	for _, s := range res.Metrics {
		switch s.Value.Kind() {
		case metrics.KindUint64:
			fmt.Fprintf(w, "%-36s %d\n", s.Name, s.Value.Uint64())
		case metrics.KindFloat64:
			fmt.Fprintf(w, "%-36s %.3f\n", s.Name, s.Value.Float64())
		}
	}
}
