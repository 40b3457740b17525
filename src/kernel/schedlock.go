package kernel

// Lock prevents the running thread from being preempted until the matching
// Unlock. Locks nest. A locked thread can still block voluntarily, in which
// case other threads run until it is resumed.
func (s *Scheduler) Lock() {
	s.assertNotISR("scheduler lock")
	n := s.current.LockSched()
	s.trace(Event{Kind: EventLock, Thread: s.current, Value: int64(n)})
}

// Unlock undoes one Lock. When the count drops to zero, a more urgent thread
// that became ready in the meantime runs immediately.
func (s *Scheduler) Unlock() {
	s.assertNotISR("scheduler unlock")
	if s.current.SchedLocked() == 0 {
		kernelPanic("scheduler unlock without matching lock in " + s.current.Name)
	}
	key := s.irq.Disable()
	n := s.current.UnlockSched()
	s.trace(Event{Kind: EventUnlock, Thread: s.current, Value: int64(n)})
	if n == 0 {
		s.Reschedule(key)
		return
	}
	s.irq.Restore(key)
}

// IsPreemptible reports whether t can be switched out involuntarily: it does
// not run at a cooperative priority and does not hold the scheduler lock.
func (s *Scheduler) IsPreemptible(t *Thread) bool {
	return !s.space.IsCoop(t.Priority()) && t.SchedLocked() == 0
}

// IsPreemptThread reports whether the caller is a preemptible thread. It is
// false inside interrupt handlers.
func (s *Scheduler) IsPreemptThread() bool {
	return !s.irq.In() && s.IsPreemptible(s.current)
}
