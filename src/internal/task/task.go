// Package task contains the thread object of the kernel and the intrusive
// lists that threads are linked into: the per-priority FIFOs of the ready
// queue and the wait queues of blocking objects.
//
// Nothing in this package takes the interrupt mask. Callers (the scheduler
// and the timeout subsystem) are expected to hold it.
package task

import "strings"

// Flags is the scheduling state of a task.
type Flags uint8

const (
	// Prestart is set on a new task until it is started.
	Prestart Flags = 1 << iota

	// Pending is set while the task is linked into a wait queue.
	Pending

	// Suspended tasks are not made ready until they are resumed.
	Suspended

	// Timing is set while the task has an armed timeout.
	Timing

	// Dead is set when the task has been aborted or has returned.
	Dead

	// Queued is set while the task is linked into the ready queue.
	Queued
)

var flagNames = [...]string{"prestart", "pending", "suspended", "timing", "dead", "queued"}

func (f Flags) String() string {
	if f == 0 {
		return "-"
	}
	var names []string
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Task is a kernel thread as seen by the scheduler. The scheduler never
// allocates or frees tasks: they are owned by whoever created them.
type Task struct {
	// Name is only used for tracing and diagnostics.
	Name string

	prio        int
	flags       Flags
	schedLocked int

	// Links into exactly one List, or none.
	next, prev *Task
	list       *List

	// The wait queue this task is pended on, if any.
	waitQ *WaitQueue

	// Result of the last Swap, set by whoever made the task ready again.
	swapErr error

	// SwapData carries a value from the waker to the woken task, next to
	// the swap result. A joined thread leaves itself here for its joiners.
	SwapData any

	// Tasks waiting for this one to exit.
	joiners WaitQueue

	// Linkage for the timeout subsystem. The scheduler never looks at these.
	TimerNext  *Task
	TimerWhen  uint64
	TimerQueue *WaitQueue
	TimerArmed bool
}

// New returns a task that has not been started yet.
func New(name string, prio int) *Task {
	return &Task{
		Name:  name,
		prio:  prio,
		flags: Prestart,
	}
}

func (t *Task) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Priority returns the priority of the task. Lower values are more urgent.
func (t *Task) Priority() int {
	return t.prio
}

// SetPriority changes the raw priority value. It does not move the task
// between queues; that is up to the scheduler.
func (t *Task) SetPriority(prio int) {
	t.prio = prio
}

// IsHigherThan reports whether t is strictly more urgent than other.
func (t *Task) IsHigherThan(other *Task) bool {
	return t.prio < other.prio
}

// Flags returns the current state bits.
func (t *Task) Flags() Flags {
	return t.flags
}

// Has reports whether any of the given state bits are set.
func (t *Task) Has(f Flags) bool {
	return t.flags&f != 0
}

// Set sets the given state bits.
func (t *Task) Set(f Flags) {
	t.flags |= f
}

// Clear clears the given state bits.
func (t *Task) Clear(f Flags) {
	t.flags &^= f
}

// SchedLocked returns the scheduler lock recursion count.
func (t *Task) SchedLocked() int {
	return t.schedLocked
}

// LockSched increments the scheduler lock count and returns the new value.
func (t *Task) LockSched() int {
	t.schedLocked++
	return t.schedLocked
}

// UnlockSched decrements the scheduler lock count and returns the new value.
func (t *Task) UnlockSched() int {
	if t.schedLocked == 0 {
		Panic("task: scheduler unlock without matching lock")
	}
	t.schedLocked--
	return t.schedLocked
}

// SwapResult returns the value set with SetSwapResult.
func (t *Task) SwapResult() error {
	return t.swapErr
}

// SetSwapResult sets the value that the task's pending Swap returns when
// the task runs again.
func (t *Task) SetSwapResult(err error) {
	t.swapErr = err
}

// WaitQueue returns the wait queue the task is pended on, or nil.
func (t *Task) WaitQueue() *WaitQueue {
	return t.waitQ
}

// Joiners returns the queue of tasks waiting for t to exit.
func (t *Task) Joiners() *WaitQueue {
	return &t.joiners
}

// Linked reports whether the task is on any list.
func (t *Task) Linked() bool {
	return t.list != nil
}

// FatalError is the panic value of a violated kernel invariant. These are
// programmer errors and are never returned as ordinary errors.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "fatal error: " + e.Msg
}

// Panic aborts with a FatalError.
func Panic(msg string) {
	panic(&FatalError{Msg: msg})
}
