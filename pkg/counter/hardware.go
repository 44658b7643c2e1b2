package counter

import "github.com/itohio/golcm/pkg/rangetable"

// Edge selects which signal transition the pulse counter increments on.
type Edge uint8

const (
	Falling Edge = iota
	Rising
)

func (e Edge) String() string {
	if e == Rising {
		return "rising"
	}
	return "falling"
}

// ParseEdge parses "rising" or "falling"; anything else is falling.
func ParseEdge(s string) Edge {
	if s == "rising" {
		return Rising
	}
	return Falling
}

// Handlers are the interrupt service routines the hardware invokes.
// They run to completion, never block and are never nested.
type Handlers struct {
	Overflow func() // Pulse counter wrapped around
	Gate     func() // Gate timer reached its compare value
}

// Hardware is the pair of timer peripherals behind the counter: a pulse
// counter clocked by the signal pin and a gate timer clocked by the system clock.
type Hardware interface {
	// Open switches the signal pin to input and selects the counting edge,
	// remembering the pin's previous direction.
	Open(edge Edge) error
	// Arm programs both timers for one gate of entry without starting them.
	Arm(entry rangetable.Entry, h Handlers) error
	// Start zeroes both counters and enables both clocks in one critical section.
	Start()
	// Stop disables both timer clocks. Safe to call from a handler.
	Stop()
	// Count returns the pulse counter register. Only meaningful after Stop.
	Count() uint32
	// CounterBits is the width of the pulse counter register.
	CounterBits() uint8
	// Close disables both timers and their interrupts and restores the signal pin.
	Close()
}
