// Package kernel implements the thread scheduler of the kernel: the ready
// queue with its priority bitmap, pend/unpend on wait queues, the scheduler
// lock, and the dispatch decisions behind yield, sleep, wakeup and priority
// changes.
//
// The scheduler does not switch CPU contexts, mask interrupts or track time
// itself. Those are provided by an Arch port, an interrupt.Controller and a
// Timeouts implementation passed to New.
//
// All scheduler data is protected by the interrupt mask. Exported functions
// that document "interrupts must be masked" assert that they are.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
)

// Thread is a kernel thread.
type Thread = task.Task

// WaitQueue is a priority ordered queue of pended threads, owned by a
// blocking object.
type WaitQueue = task.WaitQueue

// FatalError is the panic value of a violated scheduler invariant.
type FatalError = task.FatalError

// Thread state bits, as returned by Thread.Flags.
const (
	Prestart  = task.Prestart
	Pending   = task.Pending
	Suspended = task.Suspended
	Timing    = task.Timing
	Dead      = task.Dead
	Queued    = task.Queued
)

// Special durations for Pend, Sleep and Start.
const (
	// Forever waits without a timeout.
	Forever time.Duration = -1

	// NoWait does not wait at all.
	NoWait time.Duration = 0
)

// Arch is the architecture port that performs context switches.
type Arch interface {
	// Switch saves the context of old and resumes next. It returns once old
	// is resumed again. It is called with interrupts masked, and the
	// scheduler has already made next the current thread.
	Switch(old, next *Thread)
}

// Timeouts is the timer subsystem. It calls Scheduler.TimeoutExpired when an
// armed timeout fires.
type Timeouts interface {
	// Add arms a timeout for t that expires after the given number of ticks.
	// wq is the wait queue t is pended on, or nil for a plain sleep.
	Add(t *Thread, wq *WaitQueue, ticks int64)

	// Abort cancels the timeout of t. It reports whether one was armed.
	Abort(t *Thread) bool

	// Remaining returns the ticks left until the timeout of t expires, and
	// whether one is armed.
	Remaining(t *Thread) (int64, bool)

	// Now returns the number of ticks announced so far.
	Now() uint64
}

// Config holds the build-time parameters of the kernel.
type Config struct {
	// Number of cooperative priorities: -NumCoopPriorities .. -1.
	NumCoopPriorities int

	// Number of preemptible priorities: 0 .. NumPreemptPriorities-1.
	// The last one is reserved for the idle thread.
	NumPreemptPriorities int

	// Tick rate of the system clock.
	TicksPerSecond int64
}

// DefaultConfig returns the default kernel configuration.
func DefaultConfig() Config {
	return Config{
		NumCoopPriorities:    16,
		NumPreemptPriorities: 15,
		TicksPerSecond:       100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := NewSpace(c.NumCoopPriorities, c.NumPreemptPriorities); err != nil {
		return err
	}
	if c.TicksPerSecond <= 0 || c.TicksPerSecond > int64(time.Second) {
		return fmt.Errorf("kernel: ticks per second must be in 1..%d, got %d", int64(time.Second), c.TicksPerSecond)
	}
	return nil
}

var errNoCollaborator = errors.New("kernel: arch, timeouts and interrupt controller are required")

// Results of Join.
var (
	// ErrBusy is returned by a NoWait join of a thread that is still alive.
	ErrBusy = errors.New("kernel: thread has not exited")

	// ErrTimeout is returned when a bounded join expires.
	ErrTimeout = errors.New("kernel: timed out")

	// ErrDeadlock is returned when a thread joins itself or a thread that
	// is joining it.
	ErrDeadlock = errors.New("kernel: join would deadlock")
)

// Scheduler is the scheduler of one CPU. There is exactly one on a real
// target; tests create as many as they like.
type Scheduler struct {
	cfg      Config
	space    Space
	irq      *interrupt.Controller
	arch     Arch
	timeouts Timeouts

	readyQ  readyQueue
	current *Thread
	idle    *Thread

	slice  timeSlice
	tracer Tracer
	stats  Stats
}

// New creates a scheduler. It must be initialized with Init before use.
func New(cfg Config, arch Arch, timeouts Timeouts, irq *interrupt.Controller) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if arch == nil || timeouts == nil || irq == nil {
		return nil, errNoCollaborator
	}
	space, _ := NewSpace(cfg.NumCoopPriorities, cfg.NumPreemptPriorities)
	return &Scheduler{
		cfg:      cfg,
		space:    space,
		irq:      irq,
		arch:     arch,
		timeouts: timeouts,
		readyQ:   newReadyQueue(space),
	}, nil
}

// NewThread returns a thread that still needs to be started.
func NewThread(name string, prio int) *Thread {
	return task.New(name, prio)
}

// Init boots the scheduler: main becomes the running thread and idle is made
// ready at the lowest priority.
func (s *Scheduler) Init(main, idle *Thread) {
	if s.current != nil {
		kernelPanic("scheduler initialized twice")
	}
	if idle.Priority() != s.space.Idle() {
		kernelPanic(fmt.Sprintf("idle thread must run at priority %d", s.space.Idle()))
	}
	if !s.space.ValidThread(main.Priority()) {
		kernelPanic(fmt.Sprintf("invalid priority %d for thread %s", main.Priority(), main.Name))
	}
	key := s.irq.Disable()
	main.Clear(task.Prestart)
	idle.Clear(task.Prestart)
	s.idle = idle
	s.current = main
	s.AddToReadyQueue(main)
	s.AddToReadyQueue(idle)
	s.irq.Restore(key)
}

// Config returns the configuration the scheduler was created with.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Space returns the priority space.
func (s *Scheduler) Space() Space {
	return s.space
}

// IRQ returns the interrupt controller. Blocking objects use it to enter the
// critical section before calling into the scheduler.
func (s *Scheduler) IRQ() *interrupt.Controller {
	return s.irq
}

// Current returns the running thread.
func (s *Scheduler) Current() *Thread {
	return s.current
}

// Idle returns the idle thread.
func (s *Scheduler) Idle() *Thread {
	return s.idle
}

// Ticks converts a duration to system clock ticks, rounding up so that a
// positive duration never becomes zero ticks. Durations too long to count
// in ticks saturate at math.MaxInt64.
func (s *Scheduler) Ticks(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	const sec = int64(time.Second)
	tps := s.cfg.TicksPerSecond
	ns := int64(d)
	whole := ns / sec
	// The fraction below adds at most tps.
	if whole > (math.MaxInt64-tps)/tps {
		return math.MaxInt64
	}
	return whole*tps + (ns%sec*tps+sec-1)/sec
}

// Duration converts ticks back to a duration, rounding up. It saturates at
// the longest time.Duration.
func (s *Scheduler) Duration(ticks int64) time.Duration {
	if ticks <= 0 {
		return 0
	}
	const sec = int64(time.Second)
	tps := s.cfg.TicksPerSecond
	whole := ticks / tps
	if whole > math.MaxInt64/sec-1 {
		return math.MaxInt64
	}
	return time.Duration(whole*sec + (ticks%tps*sec+tps-1)/tps)
}

// assertLocked checks that the caller holds the interrupt mask.
func (s *Scheduler) assertLocked() {
	if !s.irq.Disabled() {
		kernelPanic("scheduler state accessed with interrupts enabled")
	}
}

func (s *Scheduler) assertNotISR(op string) {
	if s.irq.In() {
		kernelPanic(op + " called from an interrupt handler")
	}
}

// kernelPanic aborts on a violated scheduler invariant.
func kernelPanic(msg string) {
	task.Panic("kernel: " + msg)
}
