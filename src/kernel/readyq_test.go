package kernel

import (
	"math/rand"
	"testing"

	"github.com/tinygo-org/ksched/src/internal/task"
)

func newReadyQ(t *testing.T) *readyQueue {
	space, err := NewSpace(16, 15)
	if err != nil {
		t.Fatal(err)
	}
	q := newReadyQueue(space)
	return &q
}

func started(name string, prio int) *Thread {
	th := task.New(name, prio)
	th.Clear(task.Prestart)
	return th
}

func TestReadyQueuePriorityAndFIFO(t *testing.T) {
	q := newReadyQ(t)
	a := started("A", 5)
	b := started("B", 3)
	c := started("C", 5)
	q.add(a)
	q.add(b)
	q.add(c)

	for _, want := range []*Thread{b, a, c} {
		if got := q.highest(); got != want {
			t.Fatalf("highest() = %s, want %s", got, want)
		}
		q.remove(want)
	}
	if q.bitmap != 0 {
		t.Errorf("bitmap = %#x after removing everything, want 0", q.bitmap)
	}
}

func TestReadyQueueBitmap(t *testing.T) {
	q := newReadyQ(t)
	a := started("A", -16)
	b := started("B", 14)
	q.add(a)
	q.add(b)
	if want := uint32(1<<0 | 1<<30); q.bitmap != want {
		t.Errorf("bitmap = %#x, want %#x", q.bitmap, want)
	}
	q.remove(a)
	if want := uint32(1 << 30); q.bitmap != want {
		t.Errorf("bitmap = %#x, want %#x", q.bitmap, want)
	}
}

func TestReadyQueueCacheIsLazy(t *testing.T) {
	q := newReadyQ(t)
	a := started("A", 3)
	b := started("B", 3)
	q.add(a)
	q.add(b)
	if q.cache != a {
		t.Fatalf("cache = %v, want A", q.cache)
	}
	q.remove(a)
	if q.cache != nil {
		t.Errorf("cache = %v after removing the cached thread, want nil", q.cache)
	}
	if got := q.highest(); got != b || q.cache != b {
		t.Errorf("highest() = %v with cache %v, want B for both", got, q.cache)
	}

	// A less urgent thread never displaces the cache.
	c := started("C", 7)
	q.add(c)
	if q.cache != b {
		t.Errorf("cache = %v after adding a less urgent thread, want B", q.cache)
	}
}

func TestReadyQueueAddRemoveRestores(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 100; round++ {
		q := newReadyQ(t)
		n := rnd.Intn(6)
		for i := 0; i < n; i++ {
			q.add(started("x", rnd.Intn(31)-16))
		}
		// Also exercise the state where the cache was invalidated.
		if n > 0 && rnd.Intn(2) == 0 {
			q.cache = nil
		}
		var before *Thread
		if n > 0 {
			before = q.highest()
		}
		bitmap := q.bitmap

		th := started("t", rnd.Intn(31)-16)
		q.add(th)
		q.remove(th)

		if q.bitmap != bitmap {
			t.Fatalf("round %d: bitmap %#x, want %#x", round, q.bitmap, bitmap)
		}
		if q.cache != nil && q.cache != before {
			t.Fatalf("round %d: cache %v, want nil or %v", round, q.cache, before)
		}
		if n > 0 && q.highest() != before {
			t.Fatalf("round %d: highest %v, want %v", round, q.highest(), before)
		}
	}
}

func TestReadyQueueMoveToTail(t *testing.T) {
	q := newReadyQ(t)
	a := started("A", 2)
	b := started("B", 2)
	q.add(a)
	q.add(b)
	q.highest()

	// Already at the tail: nothing changes.
	q.moveToTail(b)
	if q.cache != a || q.levels[q.space.Level(2)].Front() != a || q.levels[q.space.Level(2)].Back() != b {
		t.Fatal("moving the tail thread changed the queue")
	}

	q.moveToTail(a)
	if q.cache != nil {
		t.Errorf("cache = %v after rotating the cached thread, want nil", q.cache)
	}
	if got := q.highest(); got != b {
		t.Errorf("highest() = %v after rotation, want B", got)
	}
}

func TestReadyQueueRandomInvariants(t *testing.T) {
	k := newTestKernel(t)
	rnd := rand.New(rand.NewSource(42))
	var ready []*Thread
	for step := 0; step < 2000; step++ {
		k.locked(func() {
			switch op := rnd.Intn(4); {
			case op == 0 || len(ready) == 0:
				th := started("r", rnd.Intn(30)-16)
				k.AddToReadyQueue(th)
				ready = append(ready, th)
			case op == 1:
				i := rnd.Intn(len(ready))
				k.RemoveFromReadyQueue(ready[i])
				ready = append(ready[:i], ready[i+1:]...)
			case op == 2:
				k.MoveToEndOfPrioQueue(ready[rnd.Intn(len(ready))])
			default:
				k.HighestReady()
			}
		})
		k.check(t)
	}
}

func TestReadyQueueFatal(t *testing.T) {
	k := newTestKernel(t)
	th := k.ready("t", 3)
	expectFatal(t, "twice", func() {
		k.locked(func() { k.AddToReadyQueue(th) })
	})
	expectFatal(t, "interrupts enabled", func() {
		k.RemoveFromReadyQueue(th)
	})
	expectFatal(t, "out of range", func() {
		k.locked(func() { k.AddToReadyQueue(started("bad", 99)) })
	})

	q := newReadyQ(t)
	expectFatal(t, "no thread is ready", func() { q.highest() })
}
