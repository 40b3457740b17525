// Package timeout implements the tick-based timeout list the scheduler uses
// for sleeping and for bounded waits. The scheduler only arms and cancels
// timeouts; the list calls back into the scheduler when one expires.
package timeout

import (
	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

// Handler is called, with interrupts masked, for every task whose timeout
// expired. wq is the wait queue the timeout was armed for, or nil for a plain
// sleep.
type Handler func(t *task.Task, wq *task.WaitQueue)

// Queue is a list of armed timeouts sorted by expiry tick. Tasks that expire
// on the same tick are handled in the order they were added.
type Queue struct {
	irq     *interrupt.Controller
	head    *task.Task
	now     uint64
	handler Handler
}

// New returns an empty timeout list at tick 0.
func New(irq *interrupt.Controller) *Queue {
	return &Queue{irq: irq}
}

// SetHandler sets the expiry callback. It must be set before the first
// Announce.
func (q *Queue) SetHandler(fn Handler) {
	q.handler = fn
}

// Now returns the number of ticks announced so far.
func (q *Queue) Now() uint64 {
	return q.now
}

// Add arms a timeout for t that expires ticks from now. A zero tick count
// expires on the next announced tick.
func (q *Queue) Add(t *task.Task, wq *task.WaitQueue, ticks int64) {
	if t.TimerArmed {
		task.Panic("timeout: arming a timeout twice")
	}
	if ticks < 0 {
		task.Panic("timeout: negative tick count")
	}
	t.TimerWhen = q.now + uint64(ticks)
	t.TimerQueue = wq
	t.TimerArmed = true

	// Find the position where we should insert this task in the list.
	p := &q.head
	for *p != nil && (*p).TimerWhen <= t.TimerWhen {
		p = &(*p).TimerNext
	}
	t.TimerNext = *p
	*p = t
}

// Abort cancels the timeout of t. It returns false if there was no armed
// timeout, either because none was added or because it already fired.
func (q *Queue) Abort(t *task.Task) bool {
	if !t.TimerArmed {
		return false
	}
	for p := &q.head; *p != nil; p = &(*p).TimerNext {
		if *p == t {
			*p = t.TimerNext
			break
		}
	}
	t.TimerNext = nil
	t.TimerQueue = nil
	t.TimerArmed = false
	return true
}

// Remaining returns the number of ticks until the timeout of t expires, and
// whether it is armed at all. A zero-tick timeout that has not been
// announced yet has 0 ticks left.
func (q *Queue) Remaining(t *task.Task) (int64, bool) {
	if !t.TimerArmed {
		return 0, false
	}
	if t.TimerWhen <= q.now {
		return 0, true
	}
	return int64(t.TimerWhen - q.now), true
}

// Next returns the number of ticks until the earliest timeout expires.
func (q *Queue) Next() (int64, bool) {
	if q.head == nil {
		return 0, false
	}
	if q.head.TimerWhen <= q.now {
		return 0, true
	}
	return int64(q.head.TimerWhen - q.now), true
}

// Len returns the number of armed timeouts.
func (q *Queue) Len() int {
	n := 0
	for t := q.head; t != nil; t = t.TimerNext {
		n++
	}
	return n
}

// Announce advances time by the given number of ticks and fires every
// timeout that has expired. It is called from the tick interrupt.
func (q *Queue) Announce(ticks int64) {
	mask := q.irq.Disable()
	q.now += uint64(ticks)
	for q.head != nil && q.head.TimerWhen <= q.now {
		t := q.head
		q.head = t.TimerNext
		wq := t.TimerQueue
		t.TimerNext = nil
		t.TimerQueue = nil
		t.TimerArmed = false
		if q.handler != nil {
			q.handler(t, wq)
		}
	}
	q.irq.Restore(mask)
}
