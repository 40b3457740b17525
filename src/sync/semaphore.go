package sync

import (
	"fmt"
	"time"

	"github.com/tinygo-org/ksched/src/kernel"
)

// Semaphore is a counting semaphore. Give may be called from interrupt
// handlers, Take may not block in one.
type Semaphore struct {
	sched *kernel.Scheduler
	count uint
	limit uint
	wq    kernel.WaitQueue
}

// NewSemaphore returns a semaphore with the given initial count. The count
// never exceeds limit.
func NewSemaphore(s *kernel.Scheduler, initial, limit uint) (*Semaphore, error) {
	if limit == 0 || initial > limit {
		return nil, fmt.Errorf("sync: invalid semaphore count %d with limit %d", initial, limit)
	}
	return &Semaphore{sched: s, count: initial, limit: limit}, nil
}

// Count returns the current count.
func (sem *Semaphore) Count() uint {
	return sem.count
}

// Waiters returns the number of threads waiting on the semaphore.
func (sem *Semaphore) Waiters() int {
	return sem.wq.Len()
}

// Give releases the most urgent waiter, or increments the count if nobody is
// waiting.
func (sem *Semaphore) Give() {
	s := sem.sched
	key := s.IRQ().Disable()
	if t := s.UnpendFirst(&sem.wq); t != nil {
		s.AbortTimeout(t)
		t.SetSwapResult(nil)
		s.ReadyThread(t)
		s.RescheduleUnlessISR(key)
		return
	}
	if sem.count < sem.limit {
		sem.count++
	}
	s.IRQ().Restore(key)
}

// Take decrements the count, waiting up to timeout for it to become
// positive. It returns ErrBusy for a NoWait take of an empty semaphore and
// ErrTimeout when the wait expires.
func (sem *Semaphore) Take(timeout time.Duration) error {
	s := sem.sched
	key := s.IRQ().Disable()
	if sem.count > 0 {
		sem.count--
		s.IRQ().Restore(key)
		return nil
	}
	if timeout == kernel.NoWait {
		s.IRQ().Restore(key)
		return ErrBusy
	}
	if s.IRQ().In() {
		runtimePanic("sync: blocking semaphore take in an interrupt handler")
	}
	s.Current().SetSwapResult(ErrTimeout)
	s.PendCurrent(&sem.wq, timeout)
	return s.Swap(key)
}

// Reset sets the count to zero. Waiting threads keep waiting.
func (sem *Semaphore) Reset() {
	key := sem.sched.IRQ().Disable()
	sem.count = 0
	sem.sched.IRQ().Restore(key)
}
