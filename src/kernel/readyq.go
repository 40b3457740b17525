package kernel

import (
	"math/bits"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// readyQueue holds every runnable thread, including the running one.
//
// Bit i of bitmap is set if and only if levels[i] is non-empty. cache is
// either nil or the thread the bitmap lookup would return; it is filled
// lazily by highest.
type readyQueue struct {
	space  Space
	bitmap uint32
	levels []task.List
	cache  *Thread
}

func newReadyQueue(space Space) readyQueue {
	return readyQueue{
		space:  space,
		levels: make([]task.List, space.Levels()),
	}
}

func (q *readyQueue) add(t *Thread) {
	if t.Has(task.Queued) {
		kernelPanic("adding thread " + t.Name + " to the ready queue twice")
	}
	level := q.space.Level(t.Priority())
	q.bitmap |= 1 << level
	q.levels[level].PushBack(t)
	t.Set(task.Queued)

	switch {
	case q.cache != nil:
		if t.IsHigherThan(q.cache) {
			q.cache = t
		}
	case bits.TrailingZeros32(q.bitmap) == level && q.levels[level].Front() == t:
		// The cache was invalidated, but t is now the head of the most
		// urgent level so it can be filled for free.
		q.cache = t
	}
}

func (q *readyQueue) remove(t *Thread) {
	if !t.Has(task.Queued) {
		kernelPanic("removing thread " + t.Name + " that is not in the ready queue")
	}
	level := q.space.Level(t.Priority())
	q.levels[level].Remove(t)
	t.Clear(task.Queued)
	if q.levels[level].Empty() {
		q.bitmap &^= 1 << level
	}
	if q.cache == t {
		q.cache = nil
	}
}

func (q *readyQueue) highest() *Thread {
	if q.cache != nil {
		return q.cache
	}
	if q.bitmap == 0 {
		kernelPanic("no thread is ready to run")
	}
	q.cache = q.levels[bits.TrailingZeros32(q.bitmap)].Front()
	return q.cache
}

func (q *readyQueue) moveToTail(t *Thread) {
	if !t.Has(task.Queued) {
		kernelPanic("rotating thread " + t.Name + " that is not in the ready queue")
	}
	l := &q.levels[q.space.Level(t.Priority())]
	if l.Back() == t {
		return
	}
	l.Remove(t)
	l.PushBack(t)
	if q.cache == t {
		q.cache = nil
	}
}

// AddToReadyQueue appends t to the tail of its priority level. Interrupts
// must be masked and t must not be in the ready queue already.
func (s *Scheduler) AddToReadyQueue(t *Thread) {
	s.assertLocked()
	s.readyQ.add(t)
	s.trace(Event{Kind: EventReady, Thread: t})
}

// RemoveFromReadyQueue takes t out of the ready queue. Interrupts must be
// masked.
func (s *Scheduler) RemoveFromReadyQueue(t *Thread) {
	s.assertLocked()
	s.readyQ.remove(t)
	s.trace(Event{Kind: EventUnready, Thread: t})
}

// HighestReady returns the thread that should run next. Interrupts must be
// masked. There is always at least the idle thread.
func (s *Scheduler) HighestReady() *Thread {
	s.assertLocked()
	return s.readyQ.highest()
}

// MoveToEndOfPrioQueue moves t behind the other threads of its priority.
// Interrupts must be masked. It is a no-op if t is already last.
func (s *Scheduler) MoveToEndOfPrioQueue(t *Thread) {
	s.assertLocked()
	s.readyQ.moveToTail(t)
}
