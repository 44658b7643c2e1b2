package counter

import "sync/atomic"

// Accumulator extends a narrow hardware pulse counter to 32 bits.
// The overflow handler is the only writer while a gate is open; the main loop
// reads it only after the gate handler has stopped the clocks.
type Accumulator struct {
	wrap  uint32
	total atomic.Uint32
	wraps atomic.Uint32
}

// NewAccumulator creates an accumulator for a counter register of bits width.
func NewAccumulator(bits uint8) *Accumulator {
	if bits == 0 || bits > 31 {
		bits = 8
	}
	return &Accumulator{wrap: uint32(1) << bits}
}

// Overflow records one wrap of the hardware counter. Called from the overflow handler.
func (a *Accumulator) Overflow() {
	a.total.Add(a.wrap)
	a.wraps.Add(1)
}

// Reset clears the accumulator. Called with the clocks stopped.
func (a *Accumulator) Reset() {
	a.total.Store(0)
	a.wraps.Store(0)
}

// Wraps returns the number of overflows since the last reset.
func (a *Accumulator) Wraps() uint32 { return a.wraps.Load() }

// WrapSize returns the counter modulus.
func (a *Accumulator) WrapSize() uint32 { return a.wrap }

// Total combines the software part with the frozen hardware residual.
func (a *Accumulator) Total(residual uint32) uint32 {
	return a.total.Load() + residual%a.wrap
}
