package kernel

import (
	"fmt"
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// Start starts a new thread, either right away or after delay. Starting a
// thread that was already started does nothing.
func (s *Scheduler) Start(t *Thread, delay time.Duration) {
	if delay < 0 {
		kernelPanic("negative start delay")
	}
	if t.Priority() != s.space.Idle() && !s.space.ValidThread(t.Priority()) {
		kernelPanic(fmt.Sprintf("invalid priority %d for thread %s", t.Priority(), t.Name))
	}
	key := s.irq.Disable()
	if !t.Has(task.Prestart) {
		s.irq.Restore(key)
		return
	}
	t.Clear(task.Prestart)
	if delay > 0 {
		ticks := s.Ticks(delay)
		t.Set(task.Timing)
		s.timeouts.Add(t, nil, ticks)
		s.trace(Event{Kind: EventStart, Thread: t, Value: ticks})
		s.irq.Restore(key)
		return
	}
	s.trace(Event{Kind: EventStart, Thread: t})
	s.ReadyThread(t)
	s.RescheduleUnlessISR(key)
}

// Suspend keeps t from running until Resume is called. A thread may suspend
// itself.
func (s *Scheduler) Suspend(t *Thread) {
	key := s.irq.Disable()
	if t.Has(task.Suspended | task.Dead) {
		s.irq.Restore(key)
		return
	}
	if t.Has(task.Queued) {
		s.readyQ.remove(t)
	}
	t.Set(task.Suspended)
	s.trace(Event{Kind: EventSuspend, Thread: t})
	if t == s.current && !s.irq.In() {
		s.swap(key)
		return
	}
	s.irq.Restore(key)
}

// Resume undoes Suspend. The thread becomes ready unless it is still waiting
// for something else.
func (s *Scheduler) Resume(t *Thread) {
	key := s.irq.Disable()
	if !t.Has(task.Suspended) {
		s.irq.Restore(key)
		return
	}
	t.Clear(task.Suspended)
	s.trace(Event{Kind: EventResume, Thread: t})
	s.ReadyThread(t)
	s.RescheduleUnlessISR(key)
}

// Abort removes t from every queue, marks it dead and releases the threads
// joining it. When a thread aborts itself, Abort does not return to it.
func (s *Scheduler) Abort(t *Thread) {
	if t == s.idle {
		kernelPanic("aborting the idle thread")
	}
	key := s.irq.Disable()
	if t.Has(task.Dead) {
		s.irq.Restore(key)
		return
	}
	if t.Has(task.Queued) {
		s.readyQ.remove(t)
	}
	if t.Has(task.Pending) {
		s.unpend(t)
	}
	if t.Has(task.Timing) {
		s.timeouts.Abort(t)
		t.Clear(task.Timing)
	}
	t.Set(task.Dead)
	s.trace(Event{Kind: EventAbort, Thread: t})
	s.releaseJoiners(t)
	if t == s.current && !s.irq.In() {
		s.swap(key)
		return
	}
	s.RescheduleUnlessISR(key)
}
