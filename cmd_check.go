package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
)

// Check implements subcommands.Command for the "check" command.
type Check struct {
	stdout, stderr io.Writer
}

// Name implements subcommands.Command.
func (*Check) Name() string {
	return "check"
}

// Synopsis implements subcommands.Command.
func (*Check) Synopsis() string {
	return "validate a scenario without running it"
}

// Usage implements subcommands.Command.
func (*Check) Usage() string {
	return `check <scenario.yaml>

Parse and validate a scenario, and print what it declares.
`
}

// SetFlags implements subcommands.Command.
func (*Check) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (c *Check) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	stdout, stderr := outputs(c.stdout, c.stderr)
	sc, status := loadScenario(f, stderr)
	if sc == nil {
		return status
	}
	cfg := sc.KernelConfig()
	fmt.Fprintf(stdout, "%s: ok\n", sc.File)
	fmt.Fprintf(stdout, "  priorities: %d cooperative, %d preemptible, %d ticks/s\n",
		cfg.NumCoopPriorities, cfg.NumPreemptPriorities, cfg.TicksPerSecond)
	fmt.Fprintf(stdout, "  threads: %d, semaphores: %d, mutexes: %d, interrupts: %d\n",
		len(sc.Threads)+1, len(sc.Semaphores), len(sc.Mutexes), len(sc.Interrupts))
	if sc.Memory > 0 {
		fmt.Fprintf(stdout, "  stacks: %s of %s\n", sc.StackUsage(), sc.Memory)
	} else {
		fmt.Fprintf(stdout, "  stacks: %s\n", sc.StackUsage())
	}
	return subcommands.ExitSuccess
}
