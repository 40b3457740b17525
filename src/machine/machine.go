// Package machine is the hosted port of the kernel. It implements the
// context switch with goroutines and drives the system clock from a virtual
// tick source, so the scheduler can run unmodified on a development machine.
package machine

import (
	"errors"
)

var (
	// ErrTimeLimit is returned by Run when MaxTicks of virtual time passed.
	ErrTimeLimit = errors.New("machine: time limit reached")
	// ErrNotStarted is returned when the port is used before Run.
	ErrNotStarted = errors.New("machine: port is not running")
	// ErrRunning is returned by Run on a port that is already running.
	ErrRunning = errors.New("machine: port is already running")
	// ErrUnknownEntry is returned when a thread was started without an entry.
	ErrUnknownEntry = errors.New("machine: thread has no entry function")
)

// Device is the name of the simulated chip.
const Device = "hosted"

// If true, print verbose debug logs.
const verbose = false
