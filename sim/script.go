package sim

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/shlex"

	"github.com/tinygo-org/ksched/src/kernel"
)

// Command is one parsed script line.
type Command struct {
	Name string
	Args []string

	// Text is the line as written in the scenario.
	Text string

	// Path is the position of the line, like "main[3]".
	Path string
}

// ParseCommand splits a script line into words with shell quoting rules.
func ParseCommand(line string) (Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 {
		return Command{}, errors.New("empty command")
	}
	return Command{Name: words[0], Args: words[1:], Text: line}, nil
}

type argKind uint8

const (
	argTicks     argKind = iota // positive number of ticks
	argPriority                 // thread priority
	argDuration                 // non-negative duration
	argTimeout                  // duration, "forever" or "nowait"
	argThread                   // thread name, or "self" outside interrupts
	argSemaphore                // semaphore name
	argMutex                    // mutex name
)

type commandDef struct {
	args     []argKind
	optional int  // number of trailing arguments that may be left out
	variadic bool // any number of free-form words
	isr      bool // allowed in interrupt scripts
}

var commandDefs = map[string]commandDef{
	"work":         {args: []argKind{argTicks}},
	"yield":        {},
	"sleep":        {args: []argKind{argDuration}},
	"wakeup":       {args: []argKind{argThread}, isr: true},
	"lock":         {},
	"unlock":       {},
	"priority":     {args: []argKind{argThread, argPriority}},
	"take":         {args: []argKind{argSemaphore, argTimeout}, optional: 1, isr: true},
	"give":         {args: []argKind{argSemaphore}, isr: true},
	"mutex-lock":   {args: []argKind{argMutex, argTimeout}, optional: 1},
	"mutex-unlock": {args: []argKind{argMutex}},
	"start":        {args: []argKind{argThread, argDuration}, optional: 1, isr: true},
	"suspend":      {args: []argKind{argThread}, isr: true},
	"resume":       {args: []argKind{argThread}, isr: true},
	"abort":        {args: []argKind{argThread}, isr: true},
	"join":         {args: []argKind{argThread, argTimeout}, optional: 1, isr: true},
	"remaining":    {args: []argKind{argThread}, isr: true},
	"print":        {variadic: true, isr: true},
	"check":        {isr: true},
}

// Commands returns the names of all script commands, sorted.
func Commands() []string {
	names := make([]string, 0, len(commandDefs))
	for name := range commandDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseTimeout parses the timeout argument of a blocking command.
func parseTimeout(s string) (time.Duration, error) {
	switch s {
	case "forever":
		return kernel.Forever, nil
	case "nowait":
		return kernel.NoWait, nil
	}
	return parseDuration(s)
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// checkCommand checks the arguments of c against the scenario. isr is set
// for commands of an interrupt script.
func (v *validator) checkCommand(c Command, isr bool) error {
	def, ok := commandDefs[c.Name]
	if !ok {
		return fmt.Errorf("unknown command %q", c.Name)
	}
	if isr && !def.isr {
		return fmt.Errorf("%s cannot be used in an interrupt", c.Name)
	}
	if def.variadic {
		return nil
	}
	if n, max := len(c.Args), len(def.args); n < max-def.optional || n > max {
		if def.optional == 0 {
			return fmt.Errorf("%s takes %d arguments, got %d", c.Name, max, n)
		}
		return fmt.Errorf("%s takes %d to %d arguments, got %d", c.Name, max-def.optional, max, n)
	}
	for i, arg := range c.Args {
		if err := v.checkArg(def.args[i], arg, isr); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	if isr && (c.Name == "take" || c.Name == "join") && (len(c.Args) < 2 || c.Args[1] != "nowait") {
		return fmt.Errorf("%s in an interrupt must use nowait", c.Name)
	}
	return nil
}

func (v *validator) checkArg(kind argKind, arg string, isr bool) error {
	switch kind {
	case argTicks:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid tick count %q", arg)
		}
	case argPriority:
		p, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid priority %q", arg)
		}
		return v.checkPriority(p)
	case argDuration:
		_, err := parseDuration(arg)
		return err
	case argTimeout:
		_, err := parseTimeout(arg)
		return err
	case argThread:
		if arg == "self" {
			if isr {
				return errors.New("there is no current thread in an interrupt")
			}
			return nil
		}
		return v.lookup(arg, "thread")
	case argSemaphore:
		return v.lookup(arg, "semaphore")
	case argMutex:
		return v.lookup(arg, "mutex")
	}
	return nil
}
