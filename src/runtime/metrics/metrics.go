// Package metrics exposes the scheduler counters in the shape of the
// runtime/metrics package: a fixed set of named samples that are read in
// bulk.
package metrics

import (
	"github.com/tinygo-org/ksched/src/kernel"
)

type Description struct {
	Name        string
	Description string
	Kind        ValueKind
	Cumulative  bool
}

// Source is what metrics are read from. *kernel.Scheduler implements it.
type Source interface {
	Stats() kernel.Stats
	ReadyLevels() int
}

type metric struct {
	Description
	read func(st *kernel.Stats, src Source) Value
}

func counter(name, desc string, get func(st *kernel.Stats) uint64) metric {
	return metric{
		Description: Description{Name: name, Description: desc, Kind: KindUint64, Cumulative: true},
		read: func(st *kernel.Stats, _ Source) Value {
			return Value{kind: KindUint64, u: get(st)}
		},
	}
}

var metrics = []metric{
	counter("/sched/switches:events", "Context switches.",
		func(st *kernel.Stats) uint64 { return st.Switches }),
	counter("/sched/preemptions:events", "Context switches because a more urgent thread became ready.",
		func(st *kernel.Stats) uint64 { return st.Preemptions }),
	counter("/sched/yields:calls", "Calls to Yield.",
		func(st *kernel.Stats) uint64 { return st.Yields }),
	counter("/sched/sleeps:calls", "Calls to Sleep with a non-zero duration.",
		func(st *kernel.Stats) uint64 { return st.Sleeps }),
	counter("/sched/wakeups:calls", "Sleeps ended early by Wakeup.",
		func(st *kernel.Stats) uint64 { return st.Wakeups }),
	counter("/sched/pends:events", "Threads pended on a wait queue.",
		func(st *kernel.Stats) uint64 { return st.Pends }),
	counter("/sched/timeouts:events", "Expired timeouts.",
		func(st *kernel.Stats) uint64 { return st.Timeouts }),
	counter("/sched/slices:events", "Expired time slices.",
		func(st *kernel.Stats) uint64 { return st.SliceExpiries }),
	{
		Description: Description{
			Name:        "/sched/ready-levels:levels",
			Description: "Priority levels with at least one ready thread.",
			Kind:        KindUint64,
		},
		read: func(_ *kernel.Stats, src Source) Value {
			return Value{kind: KindUint64, u: uint64(src.ReadyLevels())}
		},
	},
	{
		Description: Description{
			Name:        "/sched/preemption-ratio:ratio",
			Description: "Fraction of context switches that were preemptions.",
			Kind:        KindFloat64,
		},
		read: func(st *kernel.Stats, _ Source) Value {
			if st.Switches == 0 {
				return Value{kind: KindFloat64}
			}
			return Value{kind: KindFloat64, f: float64(st.Preemptions) / float64(st.Switches)}
		},
	},
}

// All returns a description of every supported metric.
func All() []Description {
	descs := make([]Description, len(metrics))
	for i, m := range metrics {
		descs[i] = m.Description
	}
	return descs
}

type Sample struct {
	Name  string
	Value Value
}

// Read fills in the values of the given samples. Samples with an unknown
// name get a value of kind KindBad.
func Read(src Source, m []Sample) {
	st := src.Stats()
	for i := range m {
		m[i].Value = Value{}
		for _, def := range metrics {
			if def.Name == m[i].Name {
				m[i].Value = def.read(&st, src)
				break
			}
		}
	}
}

type Value struct {
	kind ValueKind
	u    uint64
	f    float64
}

// Float64 returns the value of a KindFloat64 metric. It panics for any
// other kind.
func (v Value) Float64() float64 {
	if v.kind != KindFloat64 {
		panic("metrics: called Float64 on a " + v.kind.String() + " value")
	}
	return v.f
}

func (v Value) Kind() ValueKind {
	return v.kind
}

// Uint64 returns the value of a KindUint64 metric. It panics for any other
// kind.
func (v Value) Uint64() uint64 {
	if v.kind != KindUint64 {
		panic("metrics: called Uint64 on a " + v.kind.String() + " value")
	}
	return v.u
}

type ValueKind int

const (
	KindBad ValueKind = iota
	KindUint64
	KindFloat64
)

func (k ValueKind) String() string {
	switch k {
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	default:
		return "bad"
	}
}
