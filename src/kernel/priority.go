package kernel

import "fmt"

// MaxPriorities is the number of priority levels the ready queue bitmap can
// hold.
const MaxPriorities = 32

// Space maps signed priorities onto dense ready queue levels. Cooperative
// priorities are negative, preemptible priorities are zero or positive, and
// the most positive priority belongs to the idle thread.
//
// All priority-to-level arithmetic lives here.
type Space struct {
	coop    int
	preempt int
}

// NewSpace validates the number of cooperative and preemptible priorities.
func NewSpace(coop, preempt int) (Space, error) {
	switch {
	case coop < 0:
		return Space{}, fmt.Errorf("kernel: negative number of cooperative priorities: %d", coop)
	case preempt < 1:
		return Space{}, fmt.Errorf("kernel: need at least one preemptible priority for the idle thread, got %d", preempt)
	case coop+preempt > MaxPriorities:
		return Space{}, fmt.Errorf("kernel: %d priorities configured, at most %d are supported", coop+preempt, MaxPriorities)
	}
	return Space{coop: coop, preempt: preempt}, nil
}

// Levels returns the total number of priorities.
func (s Space) Levels() int {
	return s.coop + s.preempt
}

// Highest returns the most urgent priority.
func (s Space) Highest() int {
	return -s.coop
}

// Lowest returns the least urgent priority that an application thread may
// use.
func (s Space) Lowest() int {
	return s.Idle() - 1
}

// Idle returns the priority reserved for the idle thread.
func (s Space) Idle() int {
	return s.preempt - 1
}

// Valid reports whether prio is in range, including the idle priority.
func (s Space) Valid(prio int) bool {
	return prio >= -s.coop && prio < s.preempt
}

// ValidThread reports whether prio may be used by a thread other than idle.
func (s Space) ValidThread(prio int) bool {
	return prio >= -s.coop && prio < s.Idle()
}

// IsCoop reports whether prio is a cooperative priority.
func (s Space) IsCoop(prio int) bool {
	return prio < 0
}

// Level returns the ready queue level of prio. More urgent priorities map to
// lower levels.
func (s Space) Level(prio int) int {
	if !s.Valid(prio) {
		kernelPanic(fmt.Sprintf("priority %d out of range [%d, %d]", prio, -s.coop, s.preempt-1))
	}
	return prio + s.coop
}

// Priority is the inverse of Level.
func (s Space) Priority(level int) int {
	return level - s.coop
}
