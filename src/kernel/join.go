package kernel

import (
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// Join waits up to timeout for t to exit. It returns nil at once if t is
// already dead, ErrBusy for a NoWait join of a live thread, ErrDeadlock if t
// is the caller or is itself joining the caller, and ErrTimeout when the wait
// expires.
//
// Interrupt handlers may only join with NoWait.
func (s *Scheduler) Join(t *Thread, timeout time.Duration) error {
	if timeout != NoWait {
		s.assertNotISR("blocking join")
	}
	key := s.irq.Disable()
	cur := s.current
	switch {
	case t.Has(task.Dead):
		s.irq.Restore(key)
		return nil
	case timeout == NoWait:
		s.irq.Restore(key)
		return ErrBusy
	case t == cur || t.WaitQueue() == cur.Joiners():
		s.irq.Restore(key)
		return ErrDeadlock
	}
	cur.SwapData = nil
	cur.SetSwapResult(ErrTimeout)
	s.PendCurrent(t.Joiners(), timeout)
	if err := s.swap(key); err != nil {
		return err
	}
	if cur.SwapData != t {
		kernelPanic("join of " + t.Name + " ended by another thread")
	}
	cur.SwapData = nil
	return nil
}

// releaseJoiners readies every thread joining t. Interrupts must be masked.
func (s *Scheduler) releaseJoiners(t *Thread) {
	for j := s.UnpendFirst(t.Joiners()); j != nil; j = s.UnpendFirst(t.Joiners()) {
		s.AbortTimeout(j)
		j.SetSwapResult(nil)
		j.SwapData = t
		s.ReadyThread(j)
	}
}
