package kernel

import (
	"fmt"

	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

// MustSwitch reports whether a thread more urgent than the running one is
// ready. Interrupts must be masked. It is only meaningful when the running
// thread is preemptible.
func (s *Scheduler) MustSwitch() bool {
	s.assertLocked()
	return s.readyQ.highest().IsHigherThan(s.current)
}

// Reschedule switches to a more urgent thread if the running thread may be
// preempted, and releases the interrupt mask either way. key is the state
// returned by the Disable that is still held.
func (s *Scheduler) Reschedule(key interrupt.State) {
	s.assertNotISR("reschedule")
	switch {
	case !s.current.Has(task.Queued):
		// The running thread blocked or was suspended from an interrupt.
		s.swap(key)
	case s.IsPreemptible(s.current) && s.MustSwitch():
		s.stats.Preemptions++
		s.swap(key)
	default:
		s.irq.Restore(key)
	}
}

// RescheduleUnlessISR is Reschedule for code that may run in an interrupt
// handler. Inside a handler it only releases the mask; the switch happens on
// interrupt return.
func (s *Scheduler) RescheduleUnlessISR(key interrupt.State) {
	if s.irq.In() {
		s.irq.Restore(key)
		return
	}
	s.Reschedule(key)
}

// Swap gives up the CPU to the most urgent ready thread and returns once the
// caller runs again. It releases the interrupt mask held with key. The
// return value is whatever the waker set with SetSwapResult.
//
// Blocking objects call Swap right after PendCurrent. Unlike Reschedule it
// ignores the scheduler lock, since blocking is voluntary.
func (s *Scheduler) Swap(key interrupt.State) error {
	s.assertNotISR("swap")
	s.assertLocked()
	return s.swap(key)
}

// swap is the only place where a context switch happens.
func (s *Scheduler) swap(key interrupt.State) error {
	if s.irq.In() {
		kernelPanic("context switch inside interrupt")
	}
	old := s.current
	next := s.readyQ.highest()
	s.slice.elapsed = 0
	if next != old {
		s.current = next
		s.stats.Switches++
		s.trace(Event{Kind: EventSwitch, Thread: old, Other: next})
		s.arch.Switch(old, next)
	}
	s.irq.Restore(key)
	return old.SwapResult()
}

// InterruptReturn is called by the port on exit from the outermost interrupt
// handler. Interrupt handlers only make threads ready or rotate the running
// thread at the end of its time slice; this is where the resulting switch
// happens. Unlike Reschedule, a preemptible thread also gives way to a peer
// of equal priority that is now ahead of it.
func (s *Scheduler) InterruptReturn() {
	if s.irq.In() {
		kernelPanic("interrupt return while still inside a handler")
	}
	key := s.irq.Disable()
	switch {
	case !s.current.Has(task.Queued):
		s.swap(key)
	case s.IsPreemptible(s.current) && s.readyQ.highest() != s.current:
		s.stats.Preemptions++
		s.swap(key)
	default:
		s.irq.Restore(key)
	}
}

// Yield moves the running thread behind the other ready threads of the same
// priority and lets the first of them run.
func (s *Scheduler) Yield() {
	s.assertNotISR("yield")
	key := s.irq.Disable()
	s.stats.Yields++
	s.readyQ.moveToTail(s.current)
	s.trace(Event{Kind: EventYield, Thread: s.current})
	if s.readyQ.highest() == s.current {
		s.irq.Restore(key)
		return
	}
	s.swap(key)
}

// PriorityGet returns the priority of t.
func (s *Scheduler) PriorityGet(t *Thread) int {
	return t.Priority()
}

// PrioritySet changes the priority of t. A ready thread goes to the tail of
// its new level, a pended thread is re-sorted in its wait queue. If the
// change makes another thread more urgent than the running one, it runs.
func (s *Scheduler) PrioritySet(t *Thread, prio int) {
	s.assertNotISR("priority set")
	if t == s.idle {
		kernelPanic("changing the priority of the idle thread")
	}
	if !s.space.ValidThread(prio) {
		kernelPanic(fmt.Sprintf("priority %d out of range [%d, %d]", prio, s.space.Highest(), s.space.Lowest()))
	}
	key := s.irq.Disable()
	switch {
	case t.Has(task.Queued):
		s.readyQ.remove(t)
		t.SetPriority(prio)
		s.readyQ.add(t)
	case t.Has(task.Pending):
		wq := t.WaitQueue()
		wq.Remove(t)
		t.SetPriority(prio)
		wq.Insert(t)
	default:
		t.SetPriority(prio)
	}
	s.trace(Event{Kind: EventPriority, Thread: t, Value: int64(prio)})
	s.Reschedule(key)
}
