// Package sync provides the blocking objects of the kernel. They are built
// only on the scheduler's pend and unpend primitives: a waiting thread is
// pended on the object's wait queue and readied by whoever releases it.
package sync

import (
	"errors"

	"github.com/tinygo-org/ksched/src/internal/task"
)

var (
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("sync: timed out")

	// ErrBusy is returned by a NoWait attempt that would have to block.
	ErrBusy = errors.New("sync: object is busy")

	// ErrNotOwner is returned when unlocking a mutex held by another thread.
	ErrNotOwner = errors.New("sync: mutex is not locked by the current thread")
)

func runtimePanic(msg string) {
	task.Panic(msg)
}
