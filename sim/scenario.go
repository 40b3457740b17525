// Package sim runs scheduler scenarios on the hosted port. A scenario is a
// YAML file that configures the kernel, declares threads, semaphores,
// mutexes and timer interrupts, and gives each of them a short script of
// commands to execute.
package sim

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"

	"github.com/tinygo-org/ksched/src/kernel"
)

// DefaultStackSize is the stack size of a thread that does not set one.
const DefaultStackSize = Size(bytesize.KB)

// Scenario is a parsed and validated scenario file.
type Scenario struct {
	// File name, for error messages.
	File string `yaml:"-"`

	Kernel KernelSpec `yaml:"kernel"`

	// Memory available for thread stacks. Zero means unlimited.
	Memory Size `yaml:"memory"`

	// The run fails once virtual time would pass MaxTime. Zero means no
	// limit.
	MaxTime Duration `yaml:"max_time"`

	Semaphores []SemaphoreSpec `yaml:"semaphores"`
	Mutexes    []MutexSpec     `yaml:"mutexes"`
	Interrupts []InterruptSpec `yaml:"interrupts"`
	Threads    []ThreadSpec    `yaml:"threads"`

	MainPriority int    `yaml:"main_priority"`
	MainStack    Size   `yaml:"main_stack"`
	Main         Script `yaml:"main"`

	mainCommands []Command
}

// KernelSpec configures the priority space, the tick rate and time slicing.
type KernelSpec struct {
	CoopPriorities    int           `yaml:"coop_priorities"`
	PreemptPriorities int           `yaml:"preempt_priorities"`
	TicksPerSecond    int64         `yaml:"ticks_per_second"`
	TimeSlice         TimeSliceSpec `yaml:"time_slice"`
}

// TimeSliceSpec enables time slicing for threads at PriorityCeiling or less urgent.
type TimeSliceSpec struct {
	Slice           Duration `yaml:"slice"`
	PriorityCeiling int      `yaml:"priority_ceiling"`
}

// SemaphoreSpec declares a counting semaphore shared by the scripts.
type SemaphoreSpec struct {
	Name    string `yaml:"name"`
	Initial uint   `yaml:"initial"`
	Limit   uint   `yaml:"limit"`
}

// MutexSpec declares a mutex shared by the scripts.
type MutexSpec struct {
	Name string `yaml:"name"`
}

// InterruptSpec is a timer interrupt that runs its script in interrupt
// context, first At after boot and then Count-1 more times every Every.
type InterruptSpec struct {
	Name   string   `yaml:"name"`
	At     Duration `yaml:"at"`
	Every  Duration `yaml:"every"`
	Count  int      `yaml:"count"`
	Script Script   `yaml:"script"`

	commands []Command
}

// ThreadSpec declares a thread and the script it runs.
type ThreadSpec struct {
	Name      string   `yaml:"name"`
	Priority  int      `yaml:"priority"`
	Stack     Size     `yaml:"stack"`
	Delay     Duration `yaml:"delay"`
	Autostart *bool    `yaml:"autostart"`
	Script    Script   `yaml:"script"`

	commands []Command
}

// Autostarts reports whether the thread is started at boot. This is the
// default.
func (t *ThreadSpec) Autostarts() bool {
	return t.Autostart == nil || *t.Autostart
}

// Script is a list of command lines.
type Script []string

// Duration is a time.Duration that is written as a string like "20ms" in
// scenario files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return &yaml.TypeError{Errors: []string{"invalid duration " + strconv.Quote(s)}}
	}
	if v < 0 {
		return &yaml.TypeError{Errors: []string{"negative duration " + strconv.Quote(s)}}
	}
	*d = Duration(v)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Size is a byte count that is written as "1KB", "512B" or a plain number in
// scenario files.
type Size bytesize.ByteSize

func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	v, err := parseSize(str)
	if err != nil {
		return &yaml.TypeError{Errors: []string{"invalid size " + strconv.Quote(str)}}
	}
	*s = v
	return nil
}

func (s Size) String() string {
	return bytesize.ByteSize(s).String()
}

func parseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Size(n), nil
	}
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, err
	}
	return Size(b), nil
}

// Default returns a scenario with the default kernel configuration and
// nothing else.
func Default() *Scenario {
	cfg := kernel.DefaultConfig()
	return &Scenario{
		Kernel: KernelSpec{
			CoopPriorities:    cfg.NumCoopPriorities,
			PreemptPriorities: cfg.NumPreemptPriorities,
			TicksPerSecond:    cfg.TicksPerSecond,
		},
		MainStack: DefaultStackSize,
	}
}

// KernelConfig returns the kernel configuration of the scenario.
func (sc *Scenario) KernelConfig() kernel.Config {
	return kernel.Config{
		NumCoopPriorities:    sc.Kernel.CoopPriorities,
		NumPreemptPriorities: sc.Kernel.PreemptPriorities,
		TicksPerSecond:       sc.Kernel.TicksPerSecond,
	}
}

// StackUsage returns the memory used by all thread stacks, main included.
func (sc *Scenario) StackUsage() Size {
	total := sc.MainStack
	for i := range sc.Threads {
		total += sc.Threads[i].Stack
	}
	return total
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse parses and validates a scenario. Unknown fields are an error.
func Parse(file string, data []byte) (*Scenario, error) {
	sc := Default()
	if err := yaml.UnmarshalStrict(data, sc); err != nil {
		return nil, yamlError(file, err)
	}
	sc.File = file
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
