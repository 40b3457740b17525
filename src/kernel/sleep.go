package kernel

import (
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// Sleep puts the running thread to sleep for at least d. A zero duration
// only yields. Sleeping forever is not allowed; suspend the thread instead.
//
// It returns 0 when the full time has passed. If Wakeup ended the sleep
// early, it returns the time that was left, rounded up to whole ticks.
func (s *Scheduler) Sleep(d time.Duration) time.Duration {
	s.assertNotISR("sleep")
	if d == Forever {
		kernelPanic("sleeping forever")
	}
	if d < 0 {
		kernelPanic("negative sleep duration")
	}
	if d == 0 {
		s.Yield()
		return 0
	}
	ticks := s.Ticks(d)

	key := s.irq.Disable()
	cur := s.current
	s.readyQ.remove(cur)
	cur.Set(task.Timing)
	wake := s.timeouts.Now() + uint64(ticks)
	s.timeouts.Add(cur, nil, ticks)
	s.stats.Sleeps++
	s.trace(Event{Kind: EventSleep, Thread: cur, Value: ticks})
	s.swap(key)

	key = s.irq.Disable()
	now := s.timeouts.Now()
	s.irq.Restore(key)
	if now >= wake {
		return 0
	}
	return s.Duration(int64(wake - now))
}

// TimeoutRemaining returns the number of ticks until the timeout of t
// expires: the end of its sleep, of its bounded wait or of its start delay.
// It returns 0 if t has no timeout armed.
func (s *Scheduler) TimeoutRemaining(t *Thread) int64 {
	key := s.irq.Disable()
	ticks, _ := s.timeouts.Remaining(t)
	s.irq.Restore(key)
	return ticks
}

// Wakeup ends the sleep of t early. It does nothing if t is pended on an
// object, since it can only be released by that object, or if t has no
// timeout to cancel.
func (s *Scheduler) Wakeup(t *Thread) {
	key := s.irq.Disable()
	if t.Has(task.Pending) || !s.timeouts.Abort(t) {
		s.irq.Restore(key)
		return
	}
	t.Clear(task.Timing)
	s.stats.Wakeups++
	s.trace(Event{Kind: EventWakeup, Thread: t})
	s.ReadyThread(t)
	s.RescheduleUnlessISR(key)
}

// AbortTimeout cancels the timeout of t, if it has one. Interrupts must be
// masked. Blocking objects call it before readying a thread they unpended.
func (s *Scheduler) AbortTimeout(t *Thread) bool {
	s.assertLocked()
	if !s.timeouts.Abort(t) {
		return false
	}
	t.Clear(task.Timing)
	return true
}

// TimeoutExpired is called by the timer subsystem when the timeout of t
// fires. If t was waiting on wq it is unpended. Either way it is made ready,
// unless it is suspended.
func (s *Scheduler) TimeoutExpired(t *Thread, wq *WaitQueue) {
	key := s.irq.Disable()
	if wq != nil {
		s.unpend(t)
	}
	t.Clear(task.Timing)
	s.stats.Timeouts++
	s.trace(Event{Kind: EventTimeout, Thread: t})
	s.ReadyThread(t)
	s.irq.Restore(key)
}

// ReadyThread makes t ready if nothing else keeps it from running: it must
// be started, not pending, not suspended, not dead, and have no timeout
// armed. Interrupts must be masked.
func (s *Scheduler) ReadyThread(t *Thread) {
	s.assertLocked()
	if t.Has(task.Prestart | task.Pending | task.Suspended | task.Dead | task.Timing | task.Queued) {
		return
	}
	s.AddToReadyQueue(t)
}
