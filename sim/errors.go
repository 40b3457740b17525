package sim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Error is a problem in a scenario file. Line is zero when the problem was
// found after parsing; Path then names the offending field, such as
// "threads[1].script[0]".
type Error struct {
	File string
	Line int
	Path string
	Msg  string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line != 0 {
			b.WriteString(":" + strconv.Itoa(e.Line))
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path + ": ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

// ErrorList is every problem found in one scenario file.
type ErrorList []*Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// RunError is a failed command while running a scenario.
type RunError struct {
	File   string
	Tick   uint64
	Path   string // position of the command in the scenario
	Thread string
	Cmd    string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s: tick %d: thread %s: %q: %v", e.File, e.Path, e.Tick, e.Thread, e.Cmd, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

var yamlLine = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)

// yamlError converts a decoding error into an ErrorList with line numbers.
func yamlError(file string, err error) error {
	msgs := []string{err.Error()}
	if te, ok := err.(*yaml.TypeError); ok {
		msgs = te.Errors
	}
	list := make(ErrorList, 0, len(msgs))
	for _, msg := range msgs {
		e := &Error{File: file, Msg: msg}
		if m := yamlLine.FindStringSubmatch(msg); m != nil {
			e.Line, _ = strconv.Atoi(m[1])
			e.Msg = m[2]
		}
		list = append(list, e)
	}
	return list
}
