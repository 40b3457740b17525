package kernel

import (
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// Pend blocks t on wq. Interrupts must be masked and t must not be in the
// ready queue. Unless timeout is Forever, a timeout is armed that readies t
// again if nobody unpends it first.
func (s *Scheduler) Pend(t *Thread, wq *WaitQueue, timeout time.Duration) {
	s.assertLocked()
	if t.Has(task.Queued) {
		kernelPanic("pending thread " + t.Name + " that is still in the ready queue")
	}
	if timeout < 0 && timeout != Forever {
		kernelPanic("negative timeout")
	}
	wq.Insert(t)
	t.Set(task.Pending)
	s.stats.Pends++

	ticks := int64(-1)
	if timeout != Forever {
		ticks = s.Ticks(timeout)
		t.Set(task.Timing)
		s.timeouts.Add(t, wq, ticks)
	}
	s.trace(Event{Kind: EventPend, Thread: t, Value: ticks})
}

// PendCurrent takes the running thread out of the ready queue and pends it
// on wq. Interrupts must be masked. The caller then calls Swap to actually
// give up the CPU.
func (s *Scheduler) PendCurrent(wq *WaitQueue, timeout time.Duration) {
	s.assertNotISR("PendCurrent")
	s.RemoveFromReadyQueue(s.current)
	s.Pend(s.current, wq, timeout)
}

// UnpendFirst removes and returns the first waiter of wq, or nil if there is
// none. Interrupts must be masked. The thread is not made ready, and its
// timeout, if any, is still armed.
func (s *Scheduler) UnpendFirst(wq *WaitQueue) *Thread {
	s.assertLocked()
	t := wq.First()
	if t == nil {
		return nil
	}
	s.unpend(t)
	return t
}

// Unpend removes t from the wait queue it is pended on. Interrupts must be
// masked and t must be pending.
func (s *Scheduler) Unpend(t *Thread) {
	s.assertLocked()
	s.unpend(t)
}

func (s *Scheduler) unpend(t *Thread) {
	if !t.Has(task.Pending) {
		kernelPanic("unpending thread " + t.Name + " that is not pending")
	}
	t.WaitQueue().Remove(t)
	t.Clear(task.Pending)
	s.trace(Event{Kind: EventUnpend, Thread: t})
}
