package kernel

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
	"github.com/tinygo-org/ksched/src/runtime/interrupt"
	"github.com/tinygo-org/ksched/src/runtime/timeout"
)

// recordingArch performs no real switch: it only records the decision.
type recordingArch struct {
	switches []string
}

func (a *recordingArch) Switch(old, next *Thread) {
	a.switches = append(a.switches, old.Name+"->"+next.Name)
}

type testKernel struct {
	*Scheduler
	arch *recordingArch
	tq   *timeout.Queue
	main *Thread
	idle *Thread
}

// newTestKernel boots a scheduler with 16 cooperative and 15 preemptible
// priorities at 100 ticks per second, running main at priority 0.
func newTestKernel(t *testing.T) *testKernel {
	t.Helper()
	irq := &interrupt.Controller{}
	tq := timeout.New(irq)
	arch := &recordingArch{}
	s, err := New(DefaultConfig(), arch, tq, irq)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tq.SetHandler(s.TimeoutExpired)
	k := &testKernel{
		Scheduler: s,
		arch:      arch,
		tq:        tq,
		main:      NewThread("main", 0),
		idle:      NewThread("idle", s.Space().Idle()),
	}
	s.Init(k.main, k.idle)
	k.check(t)
	return k
}

// locked runs fn with interrupts masked.
func (k *testKernel) locked(fn func()) {
	key := k.IRQ().Disable()
	defer k.IRQ().Restore(key)
	fn()
}

// tick delivers a tick interrupt the way a port would.
func (k *testKernel) tick(n int64) {
	irq := k.IRQ()
	irq.Enter()
	k.tq.Announce(n)
	k.AnnounceTicks(n)
	if irq.Leave() {
		k.InterruptReturn()
	}
}

// ready creates a started thread at prio and adds it to the ready queue
// without rescheduling.
func (k *testKernel) ready(name string, prio int) *Thread {
	th := NewThread(name, prio)
	k.locked(func() {
		th.Clear(task.Prestart)
		k.AddToReadyQueue(th)
	})
	return th
}

func (k *testKernel) check(t *testing.T) {
	t.Helper()
	if err := k.CheckInvariants(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func (k *testKernel) highest() *Thread {
	var th *Thread
	k.locked(func() { th = k.HighestReady() })
	return th
}

// expectFatal runs fn and checks that it fails with a FatalError whose
// message contains substr.
func expectFatal(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected a fatal error containing %q, got none", substr)
		}
		fe, ok := r.(*FatalError)
		if !ok {
			t.Fatalf("expected *FatalError, got %T: %v", r, r)
		}
		if !strings.Contains(fe.Msg, substr) {
			t.Fatalf("fatal error %q does not contain %q", fe.Msg, substr)
		}
	}()
	fn()
}

func TestNewValidatesConfig(t *testing.T) {
	irq := &interrupt.Controller{}
	tq := timeout.New(irq)
	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{"too many priorities", Config{NumCoopPriorities: 20, NumPreemptPriorities: 13, TicksPerSecond: 100}, "at most 32"},
		{"no idle priority", Config{NumCoopPriorities: 4, NumPreemptPriorities: 0, TicksPerSecond: 100}, "idle"},
		{"negative coop", Config{NumCoopPriorities: -1, NumPreemptPriorities: 4, TicksPerSecond: 100}, "negative"},
		{"no tick rate", Config{NumCoopPriorities: 4, NumPreemptPriorities: 4}, "ticks per second"},
	}
	for _, tc := range tests {
		_, err := New(tc.cfg, &recordingArch{}, tq, irq)
		if err == nil || !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("%s: got error %v, want one containing %q", tc.name, err, tc.msg)
		}
	}
	if _, err := New(DefaultConfig(), nil, tq, irq); err == nil {
		t.Error("New without an arch port succeeded")
	}
}

func TestTicksRoundsUp(t *testing.T) {
	k := newTestKernel(t)
	tests := []struct {
		d    string
		want int64
	}{
		{"0s", 0},
		{"1ns", 1},
		{"10ms", 1},
		{"11ms", 2},
		{"100ms", 10},
		{"1.5s", 150},
		{"2h", 720000},
	}
	for _, tc := range tests {
		d, err := time.ParseDuration(tc.d)
		if err != nil {
			t.Fatal(err)
		}
		if got := k.Ticks(d); got != tc.want {
			t.Errorf("Ticks(%s) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestTicksSaturates(t *testing.T) {
	k := newTestKernel(t)
	if got, want := k.Ticks(math.MaxInt64), int64(922337203686); got != want {
		t.Errorf("Ticks(MaxInt64) at 100/s = %d, want %d", got, want)
	}

	// At the highest tick rate the longest duration no longer fits.
	irq := &interrupt.Controller{}
	fast, err := New(Config{NumCoopPriorities: 1, NumPreemptPriorities: 2, TicksPerSecond: int64(time.Second)},
		&recordingArch{}, timeout.New(irq), irq)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := fast.Ticks(math.MaxInt64); got != math.MaxInt64 {
		t.Errorf("Ticks(MaxInt64) at 1e9/s = %d, want MaxInt64", got)
	}
	if got := fast.Ticks(time.Second); got != int64(time.Second) {
		t.Errorf("Ticks(1s) at 1e9/s = %d, want %d", got, int64(time.Second))
	}
	if got := fast.Duration(math.MaxInt64); got != math.MaxInt64 {
		t.Errorf("Duration(MaxInt64) at 1e9/s = %v, want MaxInt64", got)
	}
}

func TestDurationRoundsUp(t *testing.T) {
	k := newTestKernel(t)
	tests := []struct {
		ticks int64
		want  time.Duration
	}{
		{-1, 0},
		{0, 0},
		{1, 10 * time.Millisecond},
		{70, 700 * time.Millisecond},
		{150, 1500 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := k.Duration(tc.ticks); got != tc.want {
			t.Errorf("Duration(%d) = %v, want %v", tc.ticks, got, tc.want)
		}
	}

	irq := &interrupt.Controller{}
	odd, err := New(Config{NumCoopPriorities: 1, NumPreemptPriorities: 2, TicksPerSecond: 3},
		&recordingArch{}, timeout.New(irq), irq)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := odd.Duration(1), 333333334*time.Nanosecond; got != want {
		t.Errorf("Duration(1) at 3/s = %v, want %v", got, want)
	}
}

func TestInitTwice(t *testing.T) {
	k := newTestKernel(t)
	expectFatal(t, "initialized twice", func() {
		k.Init(NewThread("m2", 0), NewThread("i2", k.Space().Idle()))
	})
}
