// Package gpiohw runs the counter on a Linux board through periph: the signal
// pin's edge detection stands in for the pulse counter and a wall-clock timer
// for the gate.
package gpiohw

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/rangetable"
)

var _ counter.Hardware = (*Timers)(nil)

// DefaultEdgeTimeout bounds a single edge wait so Close never blocks for long.
const DefaultEdgeTimeout = 50 * time.Millisecond

// Config holds the emulated peripheral parameters.
type Config struct {
	ClockHz     uint32 // Gate timer input clock the range table was built for
	CounterBits uint8  // Width of the emulated pulse counter
	EdgeTimeout time.Duration
	Logger      zerolog.Logger
}

// Timers emulates the pulse counter and gate timer pair on a GPIO input.
// Edges are counted in software, so only low frequencies are accurate.
type Timers struct {
	pin gpio.PinIn
	cfg Config

	mu       sync.Mutex
	open     bool
	prev     pinState
	gate     time.Duration
	handlers counter.Handlers
	armed    bool
	timer    *time.Timer
	quit     chan struct{}
	wg       sync.WaitGroup

	// irq serializes handler invocations from the edge and gate goroutines.
	irq     sync.Mutex
	running atomic.Bool
	count   atomic.Uint32
}

// NewTimers creates the emulated timers on pin.
func NewTimers(pin gpio.PinIn, cfg Config) *Timers {
	if cfg.ClockHz == 0 {
		cfg.ClockHz = 8_000_000
	}
	if cfg.CounterBits == 0 || cfg.CounterBits > 32 {
		cfg.CounterBits = 16
	}
	if cfg.EdgeTimeout <= 0 {
		cfg.EdgeTimeout = DefaultEdgeTimeout
	}
	return &Timers{pin: pin, cfg: cfg}
}

func (t *Timers) Open(edge counter.Edge) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		t.closeLocked()
	}

	t.prev = savePin(t.pin)
	e := gpio.FallingEdge
	if edge == counter.Rising {
		e = gpio.RisingEdge
	}
	if err := t.pin.In(gpio.PullNoChange, e); err != nil {
		return fmt.Errorf("%s: %w", t.pin, err)
	}

	t.open = true
	t.quit = make(chan struct{})
	t.wg.Add(1)
	go t.edges(t.quit)
	t.cfg.Logger.Debug().Stringer("pin", t.pin).Stringer("edge", edge).Msg("signal pin claimed")
	return nil
}

func (t *Timers) Arm(entry rangetable.Entry, h counter.Handlers) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return fmt.Errorf("signal pin not configured")
	}
	ticks := entry.CompareTicks(t.cfg.ClockHz)
	if ticks == 0 || ticks >= 1<<16 {
		return fmt.Errorf("gate %dms with divider %d needs %d ticks", entry.GateMs, entry.Divider, ticks)
	}
	t.gate = time.Duration(ticks * uint64(entry.Divider) * uint64(time.Second) / uint64(t.cfg.ClockHz))
	t.irq.Lock()
	t.handlers = h
	t.irq.Unlock()
	t.armed = true
	return nil
}

func (t *Timers) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.count.Store(0)
	t.running.Store(true)
	t.timer = time.AfterFunc(t.gate, t.fire)
}

func (t *Timers) Stop() {
	t.running.Store(false)
}

func (t *Timers) Count() uint32 {
	return t.count.Load()
}

func (t *Timers) CounterBits() uint8 { return t.cfg.CounterBits }

func (t *Timers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *Timers) closeLocked() {
	t.running.Store(false)
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !t.open {
		return
	}
	close(t.quit)
	t.wg.Wait()
	if err := t.prev.restore(t.pin); err != nil {
		t.cfg.Logger.Warn().Err(err).Stringer("pin", t.pin).Msg("failed to release signal pin")
	}
	t.open = false
}

// pinState is the signal pin's direction before Open.
type pinState struct {
	out   bool
	level gpio.Level
}

func savePin(p gpio.PinIn) pinState {
	pf, ok := p.(pin.PinFunc)
	if !ok {
		return pinState{}
	}
	switch pf.Func() {
	case gpio.OUT_HIGH:
		return pinState{out: true, level: gpio.High}
	case gpio.OUT_LOW:
		return pinState{out: true, level: gpio.Low}
	case gpio.OUT:
		return pinState{out: true, level: p.Read()}
	}
	return pinState{}
}

func (s pinState) restore(p gpio.PinIn) error {
	if o, ok := p.(gpio.PinOut); ok && s.out {
		return o.Out(s.level)
	}
	return p.In(gpio.PullNoChange, gpio.NoEdge)
}

func (t *Timers) fire() {
	t.irq.Lock()
	defer t.irq.Unlock()
	if !t.running.Load() {
		return
	}
	if h := t.handlers.Gate; h != nil {
		h()
	} else {
		t.Stop()
	}
}

// edges counts signal transitions until quit is closed.
func (t *Timers) edges(quit chan struct{}) {
	defer t.wg.Done()
	mask := uint32(1)<<t.cfg.CounterBits - 1
	for {
		select {
		case <-quit:
			return
		default:
		}
		if !t.pin.WaitForEdge(t.cfg.EdgeTimeout) || !t.running.Load() {
			continue
		}
		if t.count.Add(1)&mask != 0 {
			continue
		}
		t.count.Store(0)
		t.irq.Lock()
		if h := t.handlers.Overflow; h != nil && t.running.Load() {
			h()
		}
		t.irq.Unlock()
	}
}
