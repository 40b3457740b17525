package kernel

// EventKind identifies a scheduler event.
type EventKind uint8

const (
	EventReady    EventKind = iota // added to the ready queue
	EventUnready                   // removed from the ready queue
	EventPend                      // pended on a wait queue, Value is the timeout in ticks or -1
	EventUnpend                    // removed from its wait queue
	EventSwitch                    // context switch from Thread to Other
	EventYield                     // Thread yielded
	EventSleep                     // Thread sleeps for Value ticks
	EventWakeup                    // sleep ended early
	EventTimeout                   // timeout expired
	EventPriority                  // priority changed to Value
	EventStart                     // started, Value is the delay in ticks
	EventSuspend                   // suspended
	EventResume                    // resumed
	EventAbort                     // aborted
	EventLock                      // scheduler lock taken, Value is the new count
	EventUnlock                    // scheduler lock released, Value is the new count
	EventSlice                     // time slice expired
)

var eventNames = [...]string{
	EventReady:    "ready",
	EventUnready:  "unready",
	EventPend:     "pend",
	EventUnpend:   "unpend",
	EventSwitch:   "switch",
	EventYield:    "yield",
	EventSleep:    "sleep",
	EventWakeup:   "wakeup",
	EventTimeout:  "timeout",
	EventPriority: "priority",
	EventStart:    "start",
	EventSuspend:  "suspend",
	EventResume:   "resume",
	EventAbort:    "abort",
	EventLock:     "lock",
	EventUnlock:   "unlock",
	EventSlice:    "slice",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event describes one scheduler state change.
type Event struct {
	Kind   EventKind
	Thread *Thread
	Other  *Thread
	Value  int64
}

// Tracer receives scheduler events. Trace is called with interrupts masked,
// so it must not block or call back into the scheduler.
type Tracer interface {
	Trace(ev Event)
}

// SetTracer installs a tracer, or removes it when nil.
func (s *Scheduler) SetTracer(t Tracer) {
	s.tracer = t
}

func (s *Scheduler) trace(ev Event) {
	if s.tracer != nil {
		s.tracer.Trace(ev)
	}
}

// Stats are cumulative scheduler counters.
type Stats struct {
	Switches      uint64 // context switches
	Preemptions   uint64 // switches because a more urgent thread became ready
	Yields        uint64
	Sleeps        uint64
	Wakeups       uint64 // sleeps ended early by Wakeup
	Pends         uint64
	Timeouts      uint64 // expired timeouts, both sleeps and bounded waits
	SliceExpiries uint64
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// ReadyLevels returns how many priority levels have a ready thread.
func (s *Scheduler) ReadyLevels() int {
	n := 0
	for b := s.readyQ.bitmap; b != 0; b &= b - 1 {
		n++
	}
	return n
}
