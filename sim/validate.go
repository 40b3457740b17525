package sim

import (
	"fmt"
	"regexp"

	"github.com/tinygo-org/ksched/src/kernel"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

type validator struct {
	sc    *Scenario
	space kernel.Space
	names map[string]string // name -> kind
	errs  ErrorList
}

func (v *validator) errorf(path, format string, args ...any) {
	v.errs = append(v.errs, &Error{File: v.sc.File, Path: path, Msg: fmt.Sprintf(format, args...)})
}

func (v *validator) declare(path, name, kind string) {
	switch {
	case !validName.MatchString(name):
		v.errorf(path, "invalid %s name %q", kind, name)
	case v.names[name] != "":
		v.errorf(path, "%s name %q is already used by a %s", kind, name, v.names[name])
	default:
		v.names[name] = kind
	}
}

func (v *validator) lookup(name, kind string) error {
	switch v.names[name] {
	case kind:
		return nil
	case "":
		return fmt.Errorf("unknown %s %q", kind, name)
	default:
		return fmt.Errorf("%q is a %s, not a %s", name, v.names[name], kind)
	}
}

func (v *validator) checkPriority(p int) error {
	if !v.space.ValidThread(p) {
		return fmt.Errorf("priority %d out of range [%d, %d]", p, v.space.Highest(), v.space.Lowest())
	}
	return nil
}

func (v *validator) compile(path string, script Script, isr bool) []Command {
	cmds := make([]Command, 0, len(script))
	for i, line := range script {
		cpath := fmt.Sprintf("%s[%d]", path, i)
		c, err := ParseCommand(line)
		if err == nil {
			err = v.checkCommand(c, isr)
		}
		if err != nil {
			v.errorf(cpath, "%v", err)
			continue
		}
		c.Path = cpath
		cmds = append(cmds, c)
	}
	return cmds
}

// Validate checks the scenario, fills in defaults and parses all scripts.
// All problems are reported at once as an ErrorList.
func (sc *Scenario) Validate() error {
	v := &validator{
		sc: sc,
		names: map[string]string{
			"main":    "thread",
			"idle":    "reserved name",
			"self":    "reserved name",
			"forever": "reserved name",
			"nowait":  "reserved name",
		},
	}
	cfg := sc.KernelConfig()
	if err := cfg.Validate(); err != nil {
		v.errorf("kernel", "%v", err)
		return v.errs
	}
	v.space, _ = kernel.NewSpace(cfg.NumCoopPriorities, cfg.NumPreemptPriorities)
	if ts := sc.Kernel.TimeSlice; ts.Slice > 0 && !v.space.Valid(ts.PriorityCeiling) {
		v.errorf("kernel.time_slice.priority_ceiling", "priority %d out of range", ts.PriorityCeiling)
	}

	for i := range sc.Semaphores {
		sem := &sc.Semaphores[i]
		path := fmt.Sprintf("semaphores[%d]", i)
		v.declare(path+".name", sem.Name, "semaphore")
		switch {
		case sem.Limit == 0:
			v.errorf(path+".limit", "limit must be positive")
		case sem.Initial > sem.Limit:
			v.errorf(path+".initial", "initial count %d is above the limit %d", sem.Initial, sem.Limit)
		}
	}
	for i := range sc.Mutexes {
		v.declare(fmt.Sprintf("mutexes[%d].name", i), sc.Mutexes[i].Name, "mutex")
	}
	for i := range sc.Threads {
		th := &sc.Threads[i]
		path := fmt.Sprintf("threads[%d]", i)
		v.declare(path+".name", th.Name, "thread")
		if err := v.checkPriority(th.Priority); err != nil {
			v.errorf(path+".priority", "%v", err)
		}
		if th.Stack == 0 {
			th.Stack = DefaultStackSize
		}
	}
	for i := range sc.Interrupts {
		irq := &sc.Interrupts[i]
		path := fmt.Sprintf("interrupts[%d]", i)
		v.declare(path+".name", irq.Name, "interrupt")
		switch {
		case irq.Count < 0:
			v.errorf(path+".count", "negative count")
		case irq.Count == 0:
			irq.Count = 1
		}
		if irq.Count > 1 && irq.Every == 0 {
			v.errorf(path+".every", "a repeated interrupt needs a period")
		}
	}
	if err := v.checkPriority(sc.MainPriority); err != nil {
		v.errorf("main_priority", "%v", err)
	}
	if sc.MainStack == 0 {
		sc.MainStack = DefaultStackSize
	}
	if used := sc.StackUsage(); sc.Memory > 0 && used > sc.Memory {
		v.errorf("memory", "thread stacks need %s but only %s is available", used, sc.Memory)
	}

	// Scripts refer to names, so they are checked last.
	for i := range sc.Threads {
		sc.Threads[i].commands = v.compile(fmt.Sprintf("threads[%d].script", i), sc.Threads[i].Script, false)
	}
	for i := range sc.Interrupts {
		sc.Interrupts[i].commands = v.compile(fmt.Sprintf("interrupts[%d].script", i), sc.Interrupts[i].Script, true)
	}
	sc.mainCommands = v.compile("main", sc.Main, false)

	if len(v.errs) != 0 {
		return v.errs
	}
	return nil
}

// CheckCommand checks a command typed at run time, outside of any script.
func (sc *Scenario) CheckCommand(c Command) error {
	v := &validator{sc: sc, names: map[string]string{"main": "thread"}}
	cfg := sc.KernelConfig()
	v.space, _ = kernel.NewSpace(cfg.NumCoopPriorities, cfg.NumPreemptPriorities)
	for _, s := range sc.Semaphores {
		v.names[s.Name] = "semaphore"
	}
	for _, m := range sc.Mutexes {
		v.names[m.Name] = "mutex"
	}
	for _, t := range sc.Threads {
		v.names[t.Name] = "thread"
	}
	return v.checkCommand(c, false)
}
