package sim

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/machine"
	"github.com/tinygo-org/ksched/src/runtime/metrics"
	"github.com/tinygo-org/ksched/src/sync"
)

// Options control a run.
type Options struct {
	// Output receives print lines, command results and errors, plus every
	// scheduler event if Events is set.
	Output func(Line)
	Events bool

	// Input replaces the main script when set. The main thread reads one
	// command per call until Input returns io.EOF or the line "quit". The
	// line "help" lists the commands.
	Input func() (string, error)
}

// ThreadState is the state of a thread at the end of a run.
type ThreadState struct {
	Name     string
	Priority int
	Flags    string

	// Blocked is set for a thread that is still waiting for something.
	Blocked bool
}

// Result summarizes a run.
type Result struct {
	Ticks     uint64
	IdleTicks uint64
	Stats     kernel.Stats
	Checksum  uint16
	Lines     int
	Stack     Size
	Threads   []ThreadState
	Metrics   []metrics.Sample
}

// Blocked returns the threads that were still waiting when the run ended.
func (r *Result) Blocked() []ThreadState {
	var blocked []ThreadState
	for _, t := range r.Threads {
		if t.Blocked {
			blocked = append(blocked, t)
		}
	}
	return blocked
}

type runner struct {
	sc   *Scenario
	opts Options
	port *machine.Port
	s    *kernel.Scheduler
	rec  *recorder

	threads map[string]*kernel.Thread
	sems    map[string]*sync.Semaphore
	mutexes map[string]*sync.Mutex

	// The command each thread is executing, and the interrupt command being
	// executed, for error reports.
	at  map[*kernel.Thread]*Command
	isr *Command
}

// Run runs a validated scenario until every thread is done or blocked
// forever. The result is returned even when the run fails.
func Run(sc *Scenario, opts Options) (*Result, error) {
	r, main, err := newRunner(sc, opts)
	if err != nil {
		return nil, err
	}
	err = r.port.Run(main)
	res := r.result()
	if err != nil {
		return res, r.wrap(err)
	}
	return res, nil
}

func newRunner(sc *Scenario, opts Options) (*runner, *kernel.Thread, error) {
	p, err := machine.New(sc.KernelConfig())
	if err != nil {
		return nil, nil, err
	}
	r := &runner{
		sc:      sc,
		opts:    opts,
		port:    p,
		s:       p.Scheduler(),
		threads: make(map[string]*kernel.Thread),
		sems:    make(map[string]*sync.Semaphore),
		mutexes: make(map[string]*sync.Mutex),
		at:      make(map[*kernel.Thread]*Command),
	}
	if sc.MaxTime > 0 {
		p.MaxTicks = uint64(r.ticks(sc.MaxTime))
	}
	r.s.TimeSliceSet(time.Duration(sc.Kernel.TimeSlice.Slice), sc.Kernel.TimeSlice.PriorityCeiling)
	r.rec = newRecorder(p.Now, opts.Output, opts.Events)
	r.s.SetTracer(r.rec)

	for _, spec := range sc.Semaphores {
		sem, err := sync.NewSemaphore(r.s, spec.Initial, spec.Limit)
		if err != nil {
			return nil, nil, err
		}
		r.sems[spec.Name] = sem
	}
	for _, spec := range sc.Mutexes {
		r.mutexes[spec.Name] = sync.NewMutex(r.s)
	}
	for i := range sc.Threads {
		spec := &sc.Threads[i]
		var t *kernel.Thread
		t = p.NewThread(spec.Name, spec.Priority, func() {
			r.exec(t, spec.commands)
		})
		r.threads[spec.Name] = t
	}
	var main *kernel.Thread
	main = p.NewThread("main", sc.MainPriority, func() {
		r.boot()
		r.runMain(main)
	})
	r.threads["main"] = main
	for i := range sc.Interrupts {
		spec := &sc.Interrupts[i]
		r.arm(spec, r.ticks(spec.At), spec.Count)
	}
	return r, main, nil
}

func (r *runner) ticks(d Duration) int64 {
	return r.s.Ticks(time.Duration(d))
}

// boot starts the static threads with the scheduler locked, so that they
// begin to run in priority order once main releases it.
func (r *runner) boot() {
	r.s.Lock()
	for i := range r.sc.Threads {
		spec := &r.sc.Threads[i]
		if spec.Autostarts() {
			r.s.Start(r.threads[spec.Name], time.Duration(spec.Delay))
		}
	}
	r.s.Unlock()
}

func (r *runner) exec(t *kernel.Thread, cmds []Command) {
	for i := range cmds {
		c := &cmds[i]
		r.at[t] = c
		if err := r.do(t, t.Name, c); err != nil {
			r.port.Fail(r.runError(t.Name, c, err))
		}
	}
	delete(r.at, t)
}

func (r *runner) runMain(main *kernel.Thread) {
	if r.opts.Input == nil {
		r.exec(main, r.sc.mainCommands)
		return
	}
	for i := 0; ; i++ {
		line, err := r.opts.Input()
		if err == io.EOF {
			return
		}
		if err != nil {
			r.port.Fail(fmt.Errorf("sim: reading commands: %w", err))
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit":
			return
		case "help":
			r.rec.print("help", main.Name, strings.Join(Commands(), " ")+" quit")
			continue
		}
		c, err := ParseCommand(line)
		if err == nil {
			err = r.sc.CheckCommand(c)
		}
		if err != nil {
			r.rec.print("error", main.Name, err.Error())
			continue
		}
		c.Path = fmt.Sprintf("input[%d]", i)
		r.at[main] = &c
		if err := r.do(main, main.Name, &c); err != nil {
			r.rec.print("error", main.Name, err.Error())
		}
		delete(r.at, main)
	}
}

// arm schedules an interrupt that fires after delay ticks and then count-1
// more times.
func (r *runner) arm(spec *InterruptSpec, delay int64, count int) {
	r.port.SysTick().After(delay, func(uint64) {
		r.rec.print("irq", spec.Name, "")
		for i := range spec.commands {
			c := &spec.commands[i]
			r.isr = c
			if err := r.do(nil, spec.Name, c); err != nil {
				r.port.Fail(r.runError(spec.Name, c, err))
			}
		}
		r.isr = nil
		if count > 1 {
			r.arm(spec, r.ticks(spec.Every), count-1)
		}
	})
}

// do executes one command. self is the running thread, or nil in an
// interrupt. Errors of blocking objects are printed as results; only
// failed checks are returned.
func (r *runner) do(self *kernel.Thread, who string, c *Command) error {
	s := r.s
	arg := func(i int) string { return c.Args[i] }
	timeout := func(i int) time.Duration {
		if len(c.Args) <= i {
			return kernel.Forever
		}
		d, _ := parseTimeout(arg(i))
		return d
	}
	thread := func(i int) *kernel.Thread {
		if arg(i) == "self" {
			return self
		}
		return r.threads[arg(i)]
	}

	switch c.Name {
	case "work":
		n, _ := strconv.ParseInt(arg(0), 10, 64)
		r.port.Work(n)
	case "yield":
		s.Yield()
	case "sleep":
		d, _ := parseDuration(arg(0))
		if left := s.Sleep(d); left > 0 {
			r.rec.print("result", who, fmt.Sprintf("sleep %s: woken with %v left", arg(0), left))
		}
	case "wakeup":
		s.Wakeup(thread(0))
	case "lock":
		s.Lock()
	case "unlock":
		s.Unlock()
	case "priority":
		p, _ := strconv.Atoi(arg(1))
		s.PrioritySet(thread(0), p)
	case "take":
		err := r.sems[arg(0)].Take(timeout(1))
		r.printResult(who, c, err)
	case "give":
		r.sems[arg(0)].Give()
	case "mutex-lock":
		err := r.mutexes[arg(0)].Lock(timeout(1))
		r.printResult(who, c, err)
	case "mutex-unlock":
		err := r.mutexes[arg(0)].Unlock()
		r.printResult(who, c, err)
	case "start":
		var d time.Duration
		if len(c.Args) > 1 {
			d, _ = parseDuration(arg(1))
		}
		s.Start(thread(0), d)
	case "suspend":
		s.Suspend(thread(0))
	case "resume":
		s.Resume(thread(0))
	case "abort":
		s.Abort(thread(0))
	case "join":
		err := s.Join(thread(0), timeout(1))
		r.printResult(who, c, err)
	case "remaining":
		r.rec.print("result", who, fmt.Sprintf("remaining %s: %d ticks", arg(0), s.TimeoutRemaining(thread(0))))
	case "print":
		r.rec.print("print", who, strings.Join(c.Args, " "))
	case "check":
		key := s.IRQ().Disable()
		err := s.CheckInvariants()
		s.IRQ().Restore(key)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", c.Name)
	}
	return nil
}

func (r *runner) printResult(who string, c *Command, err error) {
	text := "ok"
	switch {
	case errors.Is(err, sync.ErrTimeout), errors.Is(err, kernel.ErrTimeout):
		text = "timeout"
	case errors.Is(err, sync.ErrBusy), errors.Is(err, kernel.ErrBusy):
		text = "busy"
	case errors.Is(err, kernel.ErrDeadlock):
		text = "deadlock"
	case errors.Is(err, sync.ErrNotOwner):
		text = "not owner"
	case err != nil:
		text = err.Error()
	}
	r.rec.print("result", who, c.Name+" "+c.Args[0]+": "+text)
}

func (r *runner) runError(who string, c *Command, err error) *RunError {
	return &RunError{
		File:   r.sc.File,
		Tick:   r.port.Now(),
		Path:   c.Path,
		Thread: who,
		Cmd:    c.Text,
		Err:    err,
	}
}

// wrap attaches the failing command to an error that ended the run.
func (r *runner) wrap(err error) error {
	var re *RunError
	if errors.As(err, &re) {
		return err
	}
	if r.isr != nil {
		return r.runError("interrupt", r.isr, err)
	}
	cur := r.s.Current()
	if c := r.at[cur]; c != nil {
		return r.runError(cur.Name, c, err)
	}
	return err
}

func (r *runner) result() *Result {
	res := &Result{
		Ticks:     r.port.Now(),
		IdleTicks: r.port.IdleTicks(),
		Stats:     r.s.Stats(),
		Checksum:  r.rec.checksum(),
		Lines:     r.rec.lines,
		Stack:     r.sc.StackUsage(),
	}
	for _, t := range r.port.Threads() {
		if t == r.s.Idle() {
			continue
		}
		res.Threads = append(res.Threads, ThreadState{
			Name:     t.Name,
			Priority: t.Priority(),
			Flags:    t.Flags().String(),
			Blocked:  !t.Has(kernel.Dead) && t.Has(kernel.Pending|kernel.Suspended),
		})
	}
	for _, d := range metrics.All() {
		res.Metrics = append(res.Metrics, metrics.Sample{Name: d.Name})
	}
	metrics.Read(r.s, res.Metrics)
	return res
}
