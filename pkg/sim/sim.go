// Package sim simulates the instrument's timer peripherals and the signals
// they count, on a virtual clock that only moves when the caller sleeps.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/rangetable"
)

var _ counter.Hardware = (*Sim)(nil)

const (
	// DefaultClockHz is the gate timer input clock.
	DefaultClockHz = 8_000_000
	// DefaultCounterBits is the pulse counter width.
	DefaultCounterBits = 8
	// CompareBits is the gate timer compare register width.
	CompareBits = 16
)

// Config holds simulated peripheral parameters.
type Config struct {
	ClockHz     uint32
	CounterBits uint8
	PinInput    bool // Signal pin direction before the first Open
}

// Sim is a simulated pulse counter + gate timer pair.
// Interrupt handlers run on their own goroutine while the caller is suspended
// in Sleep, mirroring an interrupt preempting the main loop.
type Sim struct {
	mu  sync.Mutex
	cfg Config

	source Source
	now    time.Duration

	open     bool
	edge     counter.Edge
	pinInput bool
	wasInput bool
	restores int

	armed    bool
	entry    rangetable.Entry
	gate     time.Duration
	handlers counter.Handlers

	running bool
	irq     bool
	fired   bool
	gateEnd time.Duration
	count   uint32
	starts  int
}

// New creates a simulator counting edges of source.
func New(source Source, cfg Config) *Sim {
	if cfg.ClockHz == 0 {
		cfg.ClockHz = DefaultClockHz
	}
	if cfg.CounterBits == 0 {
		cfg.CounterBits = DefaultCounterBits
	}
	if source == nil {
		source = Tone(0)
	}
	return &Sim{cfg: cfg, source: source, pinInput: cfg.PinInput}
}

// SetSource replaces the counted signal.
func (s *Sim) SetSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// Now returns the virtual time.
func (s *Sim) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) Open(edge counter.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		s.wasInput = s.pinInput
	}
	s.open = true
	s.edge = edge
	s.pinInput = true
	return nil
}

func (s *Sim) Arm(entry rangetable.Entry, h counter.Handlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return fmt.Errorf("signal pin not configured")
	}
	ticks := entry.CompareTicks(s.cfg.ClockHz)
	if ticks == 0 || ticks >= 1<<CompareBits {
		return fmt.Errorf("gate %dms with divider %d needs %d ticks", entry.GateMs, entry.Divider, ticks)
	}
	s.entry = entry
	s.gate = time.Duration(ticks * uint64(entry.Divider) * uint64(time.Second) / uint64(s.cfg.ClockHz))
	s.handlers = h
	s.armed = true
	return nil
}

func (s *Sim) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	s.count = 0
	s.gateEnd = s.now + s.gate
	s.fired = false
	s.running = true
	s.irq = true
	s.starts++
}

func (s *Sim) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *Sim) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Sim) CounterBits() uint8 { return s.cfg.CounterBits }

func (s *Sim) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.irq = false
	s.armed = false
	if s.open {
		s.pinInput = s.wasInput
		s.restores++
	}
	s.open = false
}

// Sleep advances the virtual clock by d, delivering the interrupts that
// fall into the interval on a separate goroutine.
func (s *Sim) Sleep(d time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.advance(d)
	}()
	<-done
}

func (s *Sim) advance(d time.Duration) {
	s.mu.Lock()
	from := s.now
	to := from + d
	var wraps uint64
	gate := false
	h := s.handlers
	if s.running && !s.fired {
		end := to
		if s.gateEnd <= end {
			end = s.gateEnd
			gate = true
			s.fired = true
		}
		if end > from {
			mod := uint64(1) << s.cfg.CounterBits
			total := uint64(s.count) + s.source.Edges(from, end)
			wraps = total / mod
			s.count = uint32(total % mod)
		}
	}
	s.now = to
	s.mu.Unlock()

	for ; wraps > 0; wraps-- {
		if h.Overflow != nil {
			h.Overflow()
		}
	}
	if gate && h.Gate != nil {
		h.Gate()
	}
}

// TimersEnabled reports whether the timer clocks are running.
func (s *Sim) TimersEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// InterruptsEnabled reports whether timer interrupts are enabled.
func (s *Sim) InterruptsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.irq
}

// PinIsInput reports whether the signal pin is currently an input.
func (s *Sim) PinIsInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinInput
}

// Restores counts how many times the pin direction was restored.
func (s *Sim) Restores() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restores
}

// Starts counts gate cycles started.
func (s *Sim) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Edge returns the counting edge selected by the last Open.
func (s *Sim) Edge() counter.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edge
}
