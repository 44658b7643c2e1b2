// Package rangetable holds the static list of gate ranges used by the
// frequency counter. Entries are ordered by increasing measurable frequency
// ceiling: index 0 has the longest gate, the last entry the shortest.
package rangetable

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/itohio/golcm/pkg/mathx"
)

// ErrInvalid is returned when a table violates its ordering or overlap invariants.
var ErrInvalid = errors.New("invalid range table")

// Fit tells where a pulse count lands relative to an entry's acceptance window.
type Fit int

const (
	Within Fit = iota
	Below
	Above
)

func (f Fit) String() string {
	switch f {
	case Within:
		return "within"
	case Below:
		return "below"
	case Above:
		return "above"
	}
	return "unknown"
}

// Entry is one gate range.
type Entry struct {
	Index     int    // Position in the owning table
	GateMs    uint16 // Gate duration in milliseconds
	Divider   uint16 // Gate timer clock divider (prescaler)
	MinPulses uint32 // Smallest pulse count considered precise enough
	MaxPulses uint32 // Largest pulse count before the range is considered overrun
}

// Gate returns the gate duration.
func (e Entry) Gate() time.Duration {
	return time.Duration(e.GateMs) * time.Millisecond
}

// Classify places a pulse count against the acceptance window.
func (e Entry) Classify(pulses uint32) Fit {
	switch {
	case pulses < e.MinPulses:
		return Below
	case pulses > e.MaxPulses:
		return Above
	}
	return Within
}

// Accepts reports whether pulses is inside the acceptance window.
func (e Entry) Accepts(pulses uint32) bool {
	return e.Classify(pulses) == Within
}

// MinHz is the lowest frequency this entry accepts.
func (e Entry) MinHz() float64 {
	return float64(e.MinPulses) * 1000 / float64(e.GateMs)
}

// MaxHz is the highest frequency this entry accepts.
func (e Entry) MaxHz() float64 {
	if e.MaxPulses == math.MaxUint32 {
		return math.Inf(1)
	}
	return float64(e.MaxPulses) * 1000 / float64(e.GateMs)
}

// CompareTicks returns the gate timer compare value for a timer clocked at
// clockHz, rounded to the nearest tick.
func (e Entry) CompareTicks(clockHz uint32) uint64 {
	return mathx.RoundDiv(uint64(e.GateMs)*uint64(clockHz), uint64(e.Divider)*1000)
}

// Predict scales a pulse count measured with this entry's gate to the gate of other.
func (e Entry) Predict(pulses uint32, other Entry) uint32 {
	p := uint64(pulses) * uint64(other.GateMs) / uint64(e.GateMs)
	if p > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(p)
}

// Table is an ordered set of entries.
type Table []Entry

// New builds a table from entries, assigns indices and validates it.
func New(entries ...Entry) (Table, error) {
	t := make(Table, len(entries))
	copy(t, entries)
	for i := range t {
		t[i].Index = i
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the ordering and overlap invariants.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	for i, e := range t {
		if e.Index != i {
			return fmt.Errorf("%w: entry %d has index %d", ErrInvalid, i, e.Index)
		}
		if e.GateMs == 0 || e.Divider == 0 {
			return fmt.Errorf("%w: entry %d has zero gate or divider", ErrInvalid, i)
		}
		if e.MinPulses > e.MaxPulses {
			return fmt.Errorf("%w: entry %d window is empty", ErrInvalid, i)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if e.GateMs >= prev.GateMs {
			return fmt.Errorf("%w: entry %d gate %dms not shorter than %dms", ErrInvalid, i, e.GateMs, prev.GateMs)
		}
		if e.MaxHz() <= prev.MaxHz() {
			return fmt.Errorf("%w: entry %d ceiling does not increase", ErrInvalid, i)
		}
		if e.MinHz() > prev.MaxHz() {
			return fmt.Errorf("%w: entries %d and %d do not overlap (%.1f Hz > %.1f Hz)", ErrInvalid, i-1, i, e.MinHz(), prev.MaxHz())
		}
	}
	if t[0].MinPulses != 0 {
		return fmt.Errorf("%w: longest gate must accept zero pulses", ErrInvalid)
	}
	if t[len(t)-1].MaxPulses != math.MaxUint32 {
		return fmt.Errorf("%w: shortest gate must not have an upper bound", ErrInvalid)
	}
	return nil
}

// ValidateTimer checks that every compare value fits a timer of the given width.
func (t Table) ValidateTimer(clockHz uint32, compareBits uint8) error {
	limit := uint64(1)<<compareBits - 1
	for _, e := range t {
		ticks := e.CompareTicks(clockHz)
		if ticks == 0 || ticks > limit {
			return fmt.Errorf("%w: entry %d needs %d ticks, timer holds %d", ErrInvalid, e.Index, ticks, limit)
		}
	}
	return nil
}

// Longest returns the index of the entry with the longest gate.
func (t Table) Longest() int { return 0 }

// Limit returns the index of the shortest gate not shorter than minMs,
// or the longest gate's index when every gate is shorter.
func (t Table) Limit(minMs uint16) int {
	for i := len(t) - 1; i > 0; i-- {
		if t[i].GateMs >= minMs {
			return i
		}
	}
	return 0
}

// Find returns the entry with the given gate duration.
func (t Table) Find(gateMs uint16) (Entry, bool) {
	for _, e := range t {
		if e.GateMs == gateMs {
			return e, true
		}
	}
	return Entry{}, false
}

// Shortest returns the index of the entry with the shortest gate.
func (t Table) Shortest() int { return len(t) - 1 }

// Default is the instrument's range table for an 8 MHz gate timer clock:
// 1 s, 100 ms, 10 ms and 1 ms gates covering 0 Hz up to the counter limit.
func Default() (Table, error) {
	return New(
		Entry{GateMs: 1000, Divider: 256, MinPulses: 0, MaxPulses: 100_000},
		Entry{GateMs: 100, Divider: 64, MinPulses: 1_000, MaxPulses: 100_000},
		Entry{GateMs: 10, Divider: 8, MinPulses: 1_000, MaxPulses: 100_000},
		Entry{GateMs: 1, Divider: 1, MinPulses: 1_000, MaxPulses: math.MaxUint32},
	)
}

// MustDefault is Default that panics on an invalid table.
func MustDefault() Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}
