package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"

	"github.com/google/subcommands"

	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/machine"
)

// version of this tool.
const version = "0.3.0"

// Version implements subcommands.Command for the "version" command.
type Version struct{}

// Name implements subcommands.Command.
func (*Version) Name() string {
	return "version"
}

// Synopsis implements subcommands.Command.
func (*Version) Synopsis() string {
	return "print the version"
}

// Usage implements subcommands.Command.
func (*Version) Usage() string {
	return "version\n"
}

// SetFlags implements subcommands.Command.
func (*Version) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Version) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	fmt.Printf("ksched version %s %s/%s (using go version %s, %s port, max %d priorities)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(), machine.Device, kernel.MaxPriorities)
	return subcommands.ExitSuccess
}
