//go:build tinygo

package main

import (
	"errors"
	"machine"
	"sync/atomic"
	"time"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/rangetable"
)

var errNotOpen = errors.New("signal pin not configured")

// pinTimers counts signal edges in the pin change interrupt. The gate is
// timed against the system clock and closed from sleep, which the counter
// calls between polls, so a gate can end late by up to the scheduler's sleep
// granularity. Outside a measurement the pin is left in idle.
type pinTimers struct {
	pin  machine.Pin
	idle machine.PinConfig

	open     bool
	armed    bool
	gate     time.Duration
	handlers counter.Handlers

	running atomic.Bool
	count   atomic.Uint32
	started time.Time
}

func newPinTimers(pin machine.Pin, idle machine.PinConfig) *pinTimers {
	pin.Configure(idle)
	return &pinTimers{pin: pin, idle: idle}
}

func (t *pinTimers) Open(edge counter.Edge) error {
	t.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	change := machine.PinFalling
	if edge == counter.Rising {
		change = machine.PinRising
	}
	if err := t.pin.SetInterrupt(change, t.edge); err != nil {
		return err
	}
	t.open = true
	return nil
}

func (t *pinTimers) Arm(entry rangetable.Entry, h counter.Handlers) error {
	if !t.open {
		return errNotOpen
	}
	ticks := entry.CompareTicks(CLOCK_HZ)
	if ticks == 0 || ticks >= 1<<16 {
		return errors.New("gate does not fit the compare register")
	}
	t.gate = time.Duration(ticks * uint64(entry.Divider) * uint64(time.Second) / CLOCK_HZ)
	t.handlers = h
	t.armed = true
	return nil
}

func (t *pinTimers) Start() {
	if !t.armed {
		return
	}
	t.count.Store(0)
	t.started = time.Now()
	t.running.Store(true)
}

func (t *pinTimers) Stop() {
	t.running.Store(false)
}

func (t *pinTimers) Count() uint32 { return t.count.Load() }

func (t *pinTimers) CounterBits() uint8 { return COUNTER_BITS }

func (t *pinTimers) Close() {
	t.running.Store(false)
	t.armed = false
	if t.open {
		t.pin.SetInterrupt(0, nil)
		t.pin.Configure(t.idle)
	}
	t.open = false
}

func (t *pinTimers) edge(machine.Pin) {
	if !t.running.Load() {
		return
	}
	if t.count.Add(1) < 1<<COUNTER_BITS {
		return
	}
	t.count.Store(0)
	if h := t.handlers.Overflow; h != nil {
		h()
	}
}

// sleep suspends the main loop for d, closing the gate on time if it ends
// within d.
func (t *pinTimers) sleep(d time.Duration) {
	if !t.running.Load() {
		time.Sleep(d)
		return
	}
	left := t.gate - time.Since(t.started)
	if left > d {
		time.Sleep(d)
		return
	}
	if left > 0 {
		time.Sleep(left)
	}
	if h := t.handlers.Gate; h != nil {
		h()
	} else {
		t.Stop()
	}
}
