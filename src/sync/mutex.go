package sync

import (
	"time"

	"github.com/tinygo-org/ksched/src/kernel"
)

// Mutex is a recursive mutex owned by a thread. It does not do priority
// inheritance: the owner keeps its own priority while others wait.
type Mutex struct {
	sched *kernel.Scheduler
	owner *kernel.Thread

	// Number of times the owner locked the mutex.
	count int

	wq kernel.WaitQueue
}

// NewMutex returns an unlocked mutex.
func NewMutex(s *kernel.Scheduler) *Mutex {
	return &Mutex{sched: s}
}

// Owner returns the thread holding the mutex, or nil.
func (m *Mutex) Owner() *kernel.Thread {
	return m.owner
}

// Lock locks m, waiting up to timeout if another thread holds it. The owner
// may lock it again; every Lock needs a matching Unlock.
func (m *Mutex) Lock(timeout time.Duration) error {
	s := m.sched
	if s.IRQ().In() {
		runtimePanic("sync: mutex lock in an interrupt handler")
	}
	key := s.IRQ().Disable()
	cur := s.Current()
	if m.owner == nil || m.owner == cur {
		m.owner = cur
		m.count++
		s.IRQ().Restore(key)
		return nil
	}
	if timeout == kernel.NoWait {
		s.IRQ().Restore(key)
		return ErrBusy
	}
	cur.SetSwapResult(ErrTimeout)
	s.PendCurrent(&m.wq, timeout)
	return s.Swap(key)
}

// TryLock tries to lock m without waiting and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	return m.Lock(kernel.NoWait) == nil
}

// Unlock undoes one Lock. When the count drops to zero the mutex is handed
// directly to the most urgent waiter.
func (m *Mutex) Unlock() error {
	s := m.sched
	if s.IRQ().In() {
		runtimePanic("sync: mutex unlock in an interrupt handler")
	}
	key := s.IRQ().Disable()
	if m.owner != s.Current() {
		s.IRQ().Restore(key)
		return ErrNotOwner
	}
	m.count--
	if m.count > 0 {
		s.IRQ().Restore(key)
		return nil
	}
	t := s.UnpendFirst(&m.wq)
	m.owner = t
	if t == nil {
		s.IRQ().Restore(key)
		return nil
	}
	m.count = 1
	s.AbortTimeout(t)
	t.SetSwapResult(nil)
	s.ReadyThread(t)
	s.Reschedule(key)
	return nil
}
