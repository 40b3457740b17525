package kernel

import (
	"fmt"
	"math/bits"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// CheckInvariants walks the ready queue and reports the first inconsistency
// it finds. It is meant for tests and debugging.
func (s *Scheduler) CheckInvariants() error {
	q := &s.readyQ
	for level := range q.levels {
		l := &q.levels[level]
		bit := q.bitmap&(1<<level) != 0
		if bit == l.Empty() {
			return fmt.Errorf("level %d: bitmap bit is %v but list length is %d", level, bit, l.Len())
		}
		prio := s.space.Priority(level)
		var err error
		l.Walk(func(t *task.Task) bool {
			switch {
			case t.Priority() != prio:
				err = fmt.Errorf("thread %s with priority %d is on level %d", t.Name, t.Priority(), level)
			case !t.Has(task.Queued):
				err = fmt.Errorf("thread %s is on level %d without the queued flag", t.Name, level)
			case t.Has(task.Pending | task.Dead | task.Suspended):
				err = fmt.Errorf("thread %s is ready while %v", t.Name, t.Flags())
			}
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	if q.bitmap>>uint(len(q.levels)) != 0 {
		return fmt.Errorf("bitmap %#x has bits beyond level %d", q.bitmap, len(q.levels)-1)
	}
	if q.cache != nil {
		if q.bitmap == 0 {
			return fmt.Errorf("cache holds %s but the ready queue is empty", q.cache.Name)
		}
		if want := q.levels[bits.TrailingZeros32(q.bitmap)].Front(); q.cache != want {
			return fmt.Errorf("cache holds %s, lookup gives %s", q.cache.Name, want.Name)
		}
	}
	if s.current != nil && s.current.SchedLocked() < 0 {
		return fmt.Errorf("negative scheduler lock count in %s", s.current.Name)
	}
	return nil
}

// CheckWaitQueue verifies the ordering of a wait queue: descending priority,
// and every waiter marked pending on this queue.
func CheckWaitQueue(wq *WaitQueue) error {
	var prev *Thread
	var err error
	wq.Walk(func(t *task.Task) bool {
		switch {
		case !t.Has(task.Pending):
			err = fmt.Errorf("waiter %s is not marked pending", t.Name)
		case t.WaitQueue() != wq:
			err = fmt.Errorf("waiter %s points at another wait queue", t.Name)
		case prev != nil && t.IsHigherThan(prev):
			err = fmt.Errorf("waiter %s (priority %d) is behind %s (priority %d)", t.Name, t.Priority(), prev.Name, prev.Priority())
		}
		prev = t
		return err == nil
	})
	return err
}
