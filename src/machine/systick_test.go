package machine

import (
	"testing"

	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

func TestSysTick(t *testing.T) {
	irq := &interrupt.Controller{}
	st := NewSysTick(irq)
	var calls []string
	st.Handle(func(ticks int64, now uint64) {
		if !irq.In() {
			t.Error("handler not running in interrupt context")
		}
		calls = append(calls, "first")
	})
	st.Handle(func(ticks int64, now uint64) {
		if ticks != 3 || now != 3 {
			t.Errorf("handler got ticks=%d now=%d, want 3 and 3", ticks, now)
		}
		calls = append(calls, "second")
	})
	st.OnReturn(func() {
		if irq.In() {
			t.Error("return hook called inside the interrupt")
		}
		calls = append(calls, "return")
	})

	st.Advance(0)
	if len(calls) != 0 {
		t.Fatalf("Advance(0) raised an interrupt")
	}
	st.Advance(3)
	if len(calls) != 3 || calls[0] != "first" || calls[1] != "second" || calls[2] != "return" {
		t.Errorf("calls = %v", calls)
	}
	if st.Now() != 3 {
		t.Errorf("Now() = %d, want 3", st.Now())
	}
}

func TestSysTickNested(t *testing.T) {
	irq := &interrupt.Controller{}
	st := NewSysTick(irq)
	returned := false
	st.OnReturn(func() { returned = true })
	irq.Enter()
	st.Advance(1)
	if returned {
		t.Error("return hook ran for a nested interrupt")
	}
	irq.Leave()
}

func TestSysTickAlarms(t *testing.T) {
	irq := &interrupt.Controller{}
	st := NewSysTick(irq)
	var fired []uint64
	st.After(5, func(now uint64) { fired = append(fired, now) })
	st.After(2, func(now uint64) {
		fired = append(fired, now)
		st.After(2, func(now uint64) { fired = append(fired, now+100) })
	})
	if next, ok := st.Next(); !ok || next != 2 {
		t.Fatalf("Next() = %d, %v, want 2, true", next, ok)
	}
	st.Advance(2)
	st.Advance(3)
	want := []uint64{2, 105, 5}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired = %v, want %v", fired, want)
			break
		}
	}
	if _, ok := st.Next(); ok {
		t.Error("alarms left after all fired")
	}
}
