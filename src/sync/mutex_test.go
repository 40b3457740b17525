package sync_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/sync"
)

func TestMutexRecursive(t *testing.T) {
	e := newEnv(t)
	m := sync.NewMutex(e.s)
	e.run(t, 0, func() {
		for i := 0; i < 2; i++ {
			if err := m.Lock(kernel.Forever); err != nil {
				t.Errorf("Lock = %v", err)
				return
			}
		}
		if m.Owner() != e.s.Current() {
			t.Errorf("Owner() = %v", m.Owner())
		}
		m.Unlock()
		if m.Owner() == nil {
			t.Error("mutex released after one of two unlocks")
		}
		m.Unlock()
		if m.Owner() != nil {
			t.Errorf("Owner() = %v after the last unlock", m.Owner())
		}
	})
}

func TestMutexHandover(t *testing.T) {
	e := newEnv(t)
	m := sync.NewMutex(e.s)
	hi := e.NewThread("hi", -1, func() {
		if err := m.Lock(kernel.Forever); err != nil {
			t.Errorf("hi: Lock = %v", err)
		}
		e.record("hi locked")
		if err := m.Unlock(); err != nil {
			t.Errorf("hi: Unlock = %v", err)
		}
	})
	e.run(t, 0, func() {
		m.Lock(kernel.Forever)
		e.s.Start(hi, 0)
		if !m.TryLock() {
			t.Error("owner could not lock again")
		}
		m.Unlock()
		e.Work(1)
		e.record("main unlocking")
		m.Unlock()
		e.record("main unlocked")
	})
	e.checkLog(t, "1:main unlocking", "1:hi locked", "1:main unlocked")
}

func TestMutexNotOwner(t *testing.T) {
	e := newEnv(t)
	m := sync.NewMutex(e.s)
	other := e.NewThread("other", -1, func() {
		if err := m.Unlock(); !errors.Is(err, sync.ErrNotOwner) {
			t.Errorf("Unlock by another thread = %v, want ErrNotOwner", err)
		}
		if m.TryLock() {
			t.Error("TryLock succeeded on a mutex held by main")
		}
		err := m.Lock(20 * time.Millisecond)
		if !errors.Is(err, sync.ErrTimeout) {
			t.Errorf("Lock = %v, want ErrTimeout", err)
		}
		e.record("other gave up")
	})
	e.run(t, 0, func() {
		m.Lock(kernel.Forever)
		e.s.Start(other, 0)
		e.Work(3)
		m.Unlock()
		if m.Owner() != nil {
			t.Errorf("mutex handed to %v after its waiter timed out", m.Owner())
		}
	})
	e.checkLog(t, "2:other gave up")
}
