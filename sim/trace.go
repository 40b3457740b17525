package sim

import (
	"fmt"

	"github.com/sigurn/crc16"

	"github.com/tinygo-org/ksched/src/kernel"
)

// Line is one line of run output: a scheduler event, the output of a print
// command or the result of a blocking command.
type Line struct {
	Tick   uint64
	Kind   string
	Thread string
	Text   string

	// Event is set for scheduler events.
	Event bool
}

func (l Line) String() string {
	if l.Text == "" {
		return fmt.Sprintf("%8d %-8s %s", l.Tick, l.Kind, l.Thread)
	}
	return fmt.Sprintf("%8d %-8s %-10s %s", l.Tick, l.Kind, l.Thread, l.Text)
}

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// recorder turns scheduler events into lines and keeps a running checksum
// over every line. Two runs of the same scenario produce the same checksum.
type recorder struct {
	now    func() uint64
	output func(Line)
	events bool
	crc    uint16
	lines  int
}

func newRecorder(now func() uint64, output func(Line), events bool) *recorder {
	return &recorder{
		now:    now,
		output: output,
		events: events,
		crc:    crc16.Init(crcTable),
	}
}

func (r *recorder) emit(l Line, show bool) {
	r.crc = crc16.Update(r.crc, []byte(l.String()+"\n"), crcTable)
	r.lines++
	if show && r.output != nil {
		r.output(l)
	}
}

func (r *recorder) print(kind, thread, text string) {
	r.emit(Line{Tick: r.now(), Kind: kind, Thread: thread, Text: text}, true)
}

// Trace implements kernel.Tracer.
func (r *recorder) Trace(ev kernel.Event) {
	r.emit(Line{
		Tick:   r.now(),
		Kind:   ev.Kind.String(),
		Thread: ev.Thread.String(),
		Text:   eventText(ev),
		Event:  true,
	}, r.events)
}

func (r *recorder) checksum() uint16 {
	return crc16.Complete(r.crc, crcTable)
}

func eventText(ev kernel.Event) string {
	switch ev.Kind {
	case kernel.EventSwitch:
		return "-> " + ev.Other.String()
	case kernel.EventPend:
		if ev.Value < 0 {
			return "forever"
		}
		return fmt.Sprintf("timeout %d", ev.Value)
	case kernel.EventSleep:
		return fmt.Sprintf("%d ticks", ev.Value)
	case kernel.EventStart:
		if ev.Value == 0 {
			return ""
		}
		return fmt.Sprintf("delay %d", ev.Value)
	case kernel.EventPriority:
		return fmt.Sprintf("-> %d", ev.Value)
	case kernel.EventLock, kernel.EventUnlock:
		return fmt.Sprintf("count %d", ev.Value)
	case kernel.EventReady:
		return fmt.Sprintf("prio %d", ev.Thread.Priority())
	}
	return ""
}
