//go:build tinygo

package main

import "machine"

const (
	// Counter configuration
	CLOCK_HZ     = 8_000_000 // Gate timer input clock the range table is built for
	COUNTER_BITS = 8         // Emulated pulse counter width

	// LC oscillator as built
	DESIGN_INDUCTANCE  = 82e-6 // Henry
	DESIGN_CAPACITANCE = 1e-9  // Farad
	REFERENCE_TENTHS   = 10000 // Reference capacitor, tenths of pF (1 nF)
	DESIGN_TOLERANCE   = 0.25  // Plausibility band half-width
	MIN_GATE_MS        = 100   // LC meter never gates shorter than this

	// Signal input, counted on pin change interrupts
	PIN_SIGNAL = machine.D2
	// PIN_SIGNAL mode while no tool is counting
	PIN_SIGNAL_IDLE = machine.PinInputPulldown

	// Relays and coil driver
	PIN_REFERENCE = machine.D3 // Low connects the reference capacitor
	PIN_MODE      = machine.D4 // High selects the inductance topology
	PIN_KICK      = machine.D5 // Pulsed to excite the coil under test

	// Push button to ground
	PIN_BUTTON = machine.D6

	// Serial configuration
	// Line format: "unix_micros,kind,magnitude,exponent,range,status\n"
	// Example: "1700000000123456,F,1000000,-3,3,ok\n" = ~40 bytes max per line
	// At most ~100 lines/sec on the 10 ms gate: 4,000 bytes/sec
	// 115200 8N1 carries 11,520 bytes/sec
	UART_BAUD_RATE = 115200

	KICK_PULSE_US = 100
)
