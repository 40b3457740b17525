package sync_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/sync"
)

func TestNewSemaphoreValidates(t *testing.T) {
	e := newEnv(t)
	if _, err := sync.NewSemaphore(e.s, 2, 1); err == nil {
		t.Error("initial count above the limit was accepted")
	}
	if _, err := sync.NewSemaphore(e.s, 0, 0); err == nil {
		t.Error("zero limit was accepted")
	}
}

func TestSemaphoreCountSaturates(t *testing.T) {
	e := newEnv(t)
	sem, err := sync.NewSemaphore(e.s, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	e.run(t, 0, func() {
		if err := sem.Take(kernel.NoWait); !errors.Is(err, sync.ErrBusy) {
			t.Errorf("Take(NoWait) on an empty semaphore = %v, want ErrBusy", err)
		}
		for i := 0; i < 3; i++ {
			sem.Give()
		}
		if sem.Count() != 2 {
			t.Errorf("Count() = %d, want the limit 2", sem.Count())
		}
		if err := sem.Take(kernel.NoWait); err != nil {
			t.Errorf("Take(NoWait) = %v", err)
		}
		sem.Reset()
		if sem.Count() != 0 {
			t.Errorf("Count() after Reset = %d", sem.Count())
		}
	})
}

func TestSemaphoreWakesWaitersInPriorityOrder(t *testing.T) {
	e := newEnv(t)
	sem, _ := sync.NewSemaphore(e.s, 0, 10)
	waiter := func(name string) func() {
		return func() {
			if err := sem.Take(kernel.Forever); err != nil {
				t.Errorf("%s: Take = %v", name, err)
			}
			e.record(name)
		}
	}
	a := e.NewThread("A", 5, waiter("A"))
	b := e.NewThread("B", 3, waiter("B"))
	c := e.NewThread("C", 5, waiter("C"))
	e.run(t, 10, func() {
		e.s.Start(a, 0)
		e.s.Start(b, 0)
		e.s.Start(c, 0)
		if sem.Waiters() != 3 {
			t.Errorf("Waiters() = %d, want 3", sem.Waiters())
		}
		for i := 0; i < 3; i++ {
			sem.Give()
		}
		e.record("main")
	})
	e.checkLog(t, "0:B", "0:A", "0:C", "0:main")
}

func TestSemaphoreTakeTimeout(t *testing.T) {
	e := newEnv(t)
	sem, _ := sync.NewSemaphore(e.s, 0, 1)
	e.run(t, 0, func() {
		err := sem.Take(30 * time.Millisecond)
		if !errors.Is(err, sync.ErrTimeout) {
			t.Errorf("Take = %v, want ErrTimeout", err)
		}
		e.record("timed out")
		if sem.Waiters() != 0 {
			t.Error("timed out thread is still waiting")
		}
	})
	e.checkLog(t, "3:timed out")
}

func TestSemaphoreGiveFromInterrupt(t *testing.T) {
	e := newEnv(t)
	sem, _ := sync.NewSemaphore(e.s, 0, 1)
	consumer := e.NewThread("consumer", -2, func() {
		if err := sem.Take(time.Second); err != nil {
			t.Errorf("Take = %v", err)
		}
		e.record("consumer")
	})
	e.run(t, 0, func() {
		e.s.Start(consumer, 0)
		e.Work(2)
		e.Interrupt(sem.Give)
		e.record("main")
	})
	e.checkLog(t, "2:consumer", "2:main")
	if e.Timeouts().Len() != 0 {
		t.Error("timeout of the released waiter is still armed")
	}
}
