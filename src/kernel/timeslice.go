package kernel

import (
	"time"

	"github.com/tinygo-org/ksched/src/internal/task"
)

// timeSlice is the round-robin state. Slicing is off while ticks is zero.
type timeSlice struct {
	ticks   int64
	ceiling int
	elapsed int64
}

// TimeSliceSet enables round-robin scheduling among threads of equal
// priority. A preemptible thread at priority ceiling or less urgent that
// runs for slice is moved behind its peers. A zero slice disables it.
func (s *Scheduler) TimeSliceSet(slice time.Duration, ceiling int) {
	key := s.irq.Disable()
	s.slice = timeSlice{
		ticks:   s.Ticks(slice),
		ceiling: ceiling,
	}
	s.irq.Restore(key)
}

// AnnounceTicks is called from the tick interrupt with the number of ticks
// that passed. When the running thread has used up its slice it is rotated;
// the switch itself happens on interrupt return.
func (s *Scheduler) AnnounceTicks(ticks int64) {
	if s.slice.ticks == 0 || !s.isTimeSlicing(s.current) {
		return
	}
	s.slice.elapsed += ticks
	if s.slice.elapsed < s.slice.ticks {
		return
	}
	key := s.irq.Disable()
	s.slice.elapsed = 0
	s.readyQ.moveToTail(s.current)
	s.stats.SliceExpiries++
	s.trace(Event{Kind: EventSlice, Thread: s.current})
	s.irq.Restore(key)
}

func (s *Scheduler) isTimeSlicing(t *Thread) bool {
	return t != s.idle &&
		t.Priority() >= s.slice.ceiling &&
		s.IsPreemptible(t) &&
		t.Has(task.Queued)
}
