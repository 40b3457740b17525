package sync_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/tinygo-org/ksched/src/kernel"
	"github.com/tinygo-org/ksched/src/machine"
)

type env struct {
	*machine.Port
	s   *kernel.Scheduler
	log []string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	p, err := machine.New(kernel.DefaultConfig())
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	return &env{Port: p, s: p.Scheduler()}
}

func (e *env) record(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf("%d:", e.Now())+fmt.Sprintf(format, args...))
}

// run runs main at priority prio and fails the test on error.
func (e *env) run(t *testing.T, prio int, main func()) {
	t.Helper()
	if err := e.Run(e.NewThread("main", prio, main)); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func (e *env) checkLog(t *testing.T, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(e.log, want) {
		t.Errorf("log mismatch\n got: %q\nwant: %q", e.log, want)
	}
}
