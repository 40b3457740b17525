package timeout

import (
	"testing"

	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

type expiry struct {
	name string
	wq   *task.WaitQueue
	tick uint64
}

func newQueue() (*Queue, *[]expiry) {
	q := New(&interrupt.Controller{})
	var fired []expiry
	q.SetHandler(func(t *task.Task, wq *task.WaitQueue) {
		fired = append(fired, expiry{t.Name, wq, q.Now()})
	})
	return q, &fired
}

func TestExpiryOrder(t *testing.T) {
	q, fired := newQueue()
	a := task.New("a", 0)
	b := task.New("b", 0)
	c := task.New("c", 0)
	var wq task.WaitQueue

	q.Add(a, nil, 5)
	q.Add(b, &wq, 2)
	q.Add(c, nil, 5)

	if next, ok := q.Next(); !ok || next != 2 {
		t.Errorf("Next() = %d, %v, want 2, true", next, ok)
	}

	q.Announce(1)
	if len(*fired) != 0 {
		t.Fatalf("fired %v after 1 tick, want nothing", *fired)
	}
	q.Announce(1)
	if len(*fired) != 1 || (*fired)[0].name != "b" || (*fired)[0].wq != &wq {
		t.Fatalf("fired %v after 2 ticks, want b with its wait queue", *fired)
	}
	q.Announce(10)
	if len(*fired) != 3 || (*fired)[1].name != "a" || (*fired)[2].name != "c" {
		t.Errorf("fired %v, want a before c (same tick, FIFO)", *fired)
	}
	if q.Len() != 0 {
		t.Errorf("queue still holds %d timeouts", q.Len())
	}
}

func TestAbort(t *testing.T) {
	q, fired := newQueue()
	a := task.New("a", 0)
	b := task.New("b", 0)
	q.Add(a, nil, 3)
	q.Add(b, nil, 3)

	if !q.Abort(a) {
		t.Error("Abort of an armed timeout returned false")
	}
	if q.Abort(a) {
		t.Error("second Abort returned true")
	}
	if rem, ok := q.Remaining(b); !ok || rem != 3 {
		t.Errorf("Remaining(b) = %d, %v, want 3, true", rem, ok)
	}
	q.Announce(3)
	if len(*fired) != 1 || (*fired)[0].name != "b" {
		t.Errorf("fired %v, want only b", *fired)
	}
	if q.Abort(b) {
		t.Error("Abort of an expired timeout returned true")
	}
}

func TestZeroTicksFiresOnNextTick(t *testing.T) {
	q, fired := newQueue()
	a := task.New("a", 0)
	q.Add(a, nil, 0)
	if next, ok := q.Next(); !ok || next != 0 {
		t.Errorf("Next() = %d, %v, want 0, true", next, ok)
	}
	q.Announce(1)
	if len(*fired) != 1 {
		t.Errorf("zero-tick timeout did not fire on the next tick")
	}
}
