package machine

import (
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

// TickHandler runs inside the tick interrupt. now is the tick count after
// the interrupt was announced.
type TickHandler func(ticks int64, now uint64)

// SysTick is a virtual system timer. Every Advance raises one interrupt that
// announces the elapsed ticks to all handlers, in the order they were added,
// and then fires the alarms that are due. When the outermost handler returns,
// the return hook runs with interrupts enabled; the port uses it to let the
// scheduler preempt the running thread.
type SysTick struct {
	irq      *interrupt.Controller
	handlers []TickHandler
	alarms   []alarm
	onReturn func()
	now      uint64
}

// An alarm is a compare channel of the timer.
type alarm struct {
	at uint64
	fn func(now uint64)
}

// NewSysTick returns a timer that raises interrupts on irq.
func NewSysTick(irq *interrupt.Controller) *SysTick {
	return &SysTick{irq: irq}
}

// Handle adds an interrupt handler.
func (st *SysTick) Handle(h TickHandler) {
	st.handlers = append(st.handlers, h)
}

// OnReturn sets the exception return hook.
func (st *SysTick) OnReturn(fn func()) {
	st.onReturn = fn
}

// Now returns the number of ticks that have been raised so far.
func (st *SysTick) Now() uint64 {
	return st.now
}

// After arms a one-shot alarm that runs fn in interrupt context once the
// given number of ticks has passed. Alarms due on the same tick fire in the
// order they were armed. fn may arm new alarms.
func (st *SysTick) After(ticks int64, fn func(now uint64)) {
	if ticks < 1 {
		ticks = 1
	}
	a := alarm{at: st.now + uint64(ticks), fn: fn}
	i := len(st.alarms)
	for i > 0 && st.alarms[i-1].at > a.at {
		i--
	}
	st.alarms = append(st.alarms, alarm{})
	copy(st.alarms[i+1:], st.alarms[i:])
	st.alarms[i] = a
}

// Next returns the number of ticks until the next alarm.
func (st *SysTick) Next() (int64, bool) {
	if len(st.alarms) == 0 {
		return 0, false
	}
	return int64(st.alarms[0].at - st.now), true
}

// Advance raises a single interrupt for the given number of ticks. It does
// nothing when ticks is not positive.
func (st *SysTick) Advance(ticks int64) {
	if ticks <= 0 {
		return
	}
	st.irq.Enter()
	st.now += uint64(ticks)
	for _, h := range st.handlers {
		h(ticks, st.now)
	}
	for len(st.alarms) != 0 && st.alarms[0].at <= st.now {
		a := st.alarms[0]
		st.alarms = st.alarms[1:]
		a.fn(st.now)
	}
	if st.irq.Leave() && st.onReturn != nil {
		st.onReturn()
	}
}
