//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/golcm/pkg/calib"
	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/rangetable"
	"github.com/itohio/golcm/pkg/ranging"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/tool"
)

var uart = machine.UART0

func main() {
	// Relays idle: reference out, capacitance topology
	PIN_REFERENCE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_MODE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_KICK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_REFERENCE.High()
	PIN_MODE.Low()
	PIN_KICK.Low()

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	input := keys.Any(
		&commands{uart: uart, queue: keys.NewQueue(4)},
		keys.NewButton(func() bool { return !PIN_BUTTON.Get() }, keys.DefaultTiming),
	)

	hw := newPinTimers(PIN_SIGNAL, machine.PinConfig{Mode: PIN_SIGNAL_IDLE})
	env := tool.Env{
		Counter: counter.New(hw, counter.Config{Sleep: hw.sleep, Input: input}),
		Table:   rangetable.MustDefault(),
		Display: report.NewWriter(uart, time.Now),
		Input:   input,
	}

	out := outputs{}
	tools := []tool.Tool{
		tool.NewLCMeter(env, out, tool.LCMeterConfig{
			Edge:      counter.Falling,
			Mode:      lc.Capacitance,
			MinGateMs: MIN_GATE_MS,
			Ranging:   ranging.Config{Start: -1},
			Calibration: calib.Config{
				Design: calib.Design{
					Inductance:  DESIGN_INDUCTANCE,
					Capacitance: DESIGN_CAPACITANCE,
					Reference:   REFERENCE_TENTHS,
					Tolerance:   DESIGN_TOLERANCE,
				},
				Sleep: hw.sleep,
			},
		}),
		tool.NewFrequencyCounter(env, tool.FrequencyCounterConfig{
			Edge:    counter.Falling,
			Ranging: ranging.Config{Start: -1},
		}),
		tool.NewRingTester(env, out, tool.RingTesterConfig{
			Edge: counter.Falling,
		}),
	}

	// A double press leaves a tool for the next one
	ctx := context.Background()
	for i := 0; ; i = (i + 1) % len(tools) {
		if err := tools[i].Run(ctx); err != nil {
			time.Sleep(time.Second)
		}
	}
}

// outputs drives the relays and the kick line.
type outputs struct{}

func (outputs) SetReference(connected bool) {
	// Active low
	PIN_REFERENCE.Set(!connected)
}

func (outputs) SetMode(m lc.Mode) {
	PIN_MODE.Set(m == lc.Inductance)
}

func (outputs) Kick() {
	PIN_KICK.High()
	time.Sleep(KICK_PULSE_US * time.Microsecond)
	PIN_KICK.Low()
}

// commands turns key command lines from the host into key presses.
type commands struct {
	uart  *machine.UART
	queue *keys.Queue
	buf   [8]byte
	n     int
}

func (c *commands) Poll() keys.Outcome {
	// Read available bytes from serial
	for c.uart.Buffered() > 0 {
		data, err := c.uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if k, err := report.ParseCommand(string(c.buf[:c.n])); err == nil {
				c.queue.Push(k)
			}
			// Reset buffer regardless of length
			c.n = 0
			continue
		}
		if c.n < len(c.buf) {
			c.buf[c.n] = data
			c.n++
		}
	}
	return c.queue.Poll()
}
