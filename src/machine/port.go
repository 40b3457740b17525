package machine

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
	"github.com/tinygo-org/ksched/src/runtime/timeout"
)

// Port runs kernel threads as goroutines. Exactly one of them runs at a
// time: a context switch hands a run permit to the next goroutine and parks
// the old one until it gets the permit back.
type Port struct {
	irq   *interrupt.Controller
	tq    *timeout.Queue
	tick  *SysTick
	sched *kernel.Scheduler
	idle  *kernel.Thread

	// MaxTicks stops the run with ErrTimeLimit before virtual time passes
	// it. Zero means no limit.
	MaxTicks uint64

	threads   map[*kernel.Thread]*thread
	order     []*kernel.Thread
	idleTicks uint64

	running bool
	done    chan struct{}
	once    sync.Once
	err     error
}

// Goroutine state of a thread.
type thread struct {
	entry   func()
	resume  chan struct{}
	started bool
}

// New creates a port and the scheduler that runs on it.
func New(cfg kernel.Config) (*Port, error) {
	irq := &interrupt.Controller{}
	tq := timeout.New(irq)
	p := &Port{
		irq:     irq,
		tq:      tq,
		tick:    NewSysTick(irq),
		threads: make(map[*kernel.Thread]*thread),
		done:    make(chan struct{}),
	}
	s, err := kernel.New(cfg, p, tq, irq)
	if err != nil {
		return nil, err
	}
	p.sched = s
	tq.SetHandler(s.TimeoutExpired)
	p.tick.Handle(func(ticks int64, now uint64) {
		tq.Announce(ticks)
		s.AnnounceTicks(ticks)
	})
	p.tick.OnReturn(s.InterruptReturn)
	p.idle = p.NewThread("idle", s.Space().Idle(), p.idleLoop)
	return p, nil
}

// Scheduler returns the scheduler of this port.
func (p *Port) Scheduler() *kernel.Scheduler {
	return p.sched
}

// IRQ returns the interrupt controller.
func (p *Port) IRQ() *interrupt.Controller {
	return p.irq
}

// Timeouts returns the timeout list.
func (p *Port) Timeouts() *timeout.Queue {
	return p.tq
}

// SysTick returns the system timer, to add interrupt handlers to it.
func (p *Port) SysTick() *SysTick {
	return p.tick
}

// Now returns the current tick count.
func (p *Port) Now() uint64 {
	return p.tq.Now()
}

// IdleTicks returns the number of ticks the idle thread skipped over.
func (p *Port) IdleTicks() uint64 {
	return p.idleTicks
}

// Threads returns every thread created on this port, in creation order. The
// idle thread is first.
func (p *Port) Threads() []*kernel.Thread {
	return p.order
}

// NewThread creates a thread that runs entry once it is started. When entry
// returns the thread is aborted.
func (p *Port) NewThread(name string, prio int, entry func()) *kernel.Thread {
	t := kernel.NewThread(name, prio)
	p.threads[t] = &thread{
		entry:  entry,
		resume: make(chan struct{}, 1),
	}
	p.order = append(p.order, t)
	return t
}

// Run boots the scheduler with main as the running thread and blocks until
// the system has nothing left to do, a thread fails, or the time limit is
// reached. A fatal kernel error is returned as a *kernel.FatalError.
func (p *Port) Run(main *kernel.Thread) error {
	if p.running {
		return ErrRunning
	}
	th := p.threads[main]
	if th == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, main.Name)
	}
	p.running = true
	p.sched.Init(main, p.idle)
	th.started = true
	go p.run(main, th)
	<-p.done
	return p.err
}

// Switch implements kernel.Arch.
func (p *Port) Switch(old, next *kernel.Thread) {
	if verbose {
		println("*** switch:", old.Name, "->", next.Name)
	}
	n := p.threads[next]
	if n == nil {
		task.Panic("machine: switching to unknown thread " + next.Name)
	}
	o := p.threads[old]
	dead := old.Has(task.Dead)

	// Hand over the permit. From here on, the old goroutine must not touch
	// any shared state.
	if !n.started {
		n.started = true
		go p.run(next, n)
	} else {
		n.resume <- struct{}{}
	}
	if dead {
		runtime.Goexit()
	}
	select {
	case <-o.resume:
	case <-p.done:
		runtime.Goexit()
	}
}

// Work keeps the running thread busy for the given number of ticks. Every
// tick raises a timer interrupt, so the thread may be preempted in between.
func (p *Port) Work(ticks int64) {
	for i := int64(0); i < ticks; i++ {
		if p.limitReached(1) {
			p.Fail(ErrTimeLimit)
		}
		p.tick.Advance(1)
	}
}

// Interrupt runs fn as an interrupt handler on the running thread, followed
// by the exception return.
func (p *Port) Interrupt(fn func()) {
	p.irq.Enter()
	fn()
	if p.irq.Leave() {
		p.sched.InterruptReturn()
	}
}

// Fail stops the run with err. It must be called from a running thread and
// does not return.
func (p *Port) Fail(err error) {
	p.finish(err)
	runtime.Goexit()
}

// Err returns the result of the run once it has finished.
func (p *Port) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return ErrNotStarted
	}
}

func (p *Port) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

func (p *Port) run(t *kernel.Thread, th *thread) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch r := r.(type) {
		case *kernel.FatalError:
			p.finish(r)
		case error:
			p.finish(fmt.Errorf("machine: thread %s panicked: %w", t.Name, r))
		default:
			p.finish(fmt.Errorf("machine: thread %s panicked: %v", t.Name, r))
		}
	}()

	// A new thread is entered from the middle of a context switch, with the
	// interrupt mask of the old thread still held.
	p.irq.Enable()
	th.entry()
	p.sched.Abort(t)
}

// idleLoop skips virtual time forward to the next timeout or alarm. With
// neither armed, nothing can ever become ready again and the run is over.
func (p *Port) idleLoop() {
	for {
		ticks, ok := p.nextEvent()
		if !ok {
			p.Fail(nil)
		}
		if ticks == 0 {
			ticks = 1
		}
		if p.limitReached(ticks) {
			p.Fail(ErrTimeLimit)
		}
		p.idleTicks += uint64(ticks)
		p.tick.Advance(ticks)
	}
}

func (p *Port) nextEvent() (int64, bool) {
	ticks, ok := p.tq.Next()
	if alarm, armed := p.tick.Next(); armed && (!ok || alarm < ticks) {
		ticks, ok = alarm, true
	}
	return ticks, ok
}

func (p *Port) limitReached(ticks int64) bool {
	return p.MaxTicks != 0 && p.tq.Now()+uint64(ticks) > p.MaxTicks
}
