package gpiohw

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/lc"
)

// DefaultKickPulse is how long the kick line is held high.
const DefaultKickPulse = 100 * time.Microsecond

// ErrNoPin is returned when a pin name is not registered.
var ErrNoPin = errors.New("gpio not found")

// Lookup resolves a pin by its periph name.
func Lookup(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoPin, name)
	}
	return p, nil
}

// Outputs drives the relays and the kick line. A nil pin is skipped.
type Outputs struct {
	ReferencePin gpio.PinOut // Low connects the reference capacitor
	ModePin      gpio.PinOut // High selects the inductance topology
	KickPin      gpio.PinOut
	KickPulse    time.Duration
	Sleep        func(time.Duration)
	Logger       zerolog.Logger
}

// SetReference switches the reference capacitor in or out.
func (o *Outputs) SetReference(connected bool) {
	o.out(o.ReferencePin, "reference", gpio.Level(!connected))
}

// SetMode switches the oscillator topology.
func (o *Outputs) SetMode(m lc.Mode) {
	o.out(o.ModePin, "mode", gpio.Level(m == lc.Inductance))
}

// Kick pulses the kick line to excite the coil under test.
func (o *Outputs) Kick() {
	if o.KickPin == nil {
		return
	}
	d := o.KickPulse
	if d <= 0 {
		d = DefaultKickPulse
	}
	sleep := o.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	o.out(o.KickPin, "kick", gpio.High)
	sleep(d)
	o.out(o.KickPin, "kick", gpio.Low)
}

func (o *Outputs) out(p gpio.PinOut, name string, l gpio.Level) {
	if p == nil {
		return
	}
	if err := p.Out(l); err != nil {
		o.Logger.Warn().Err(err).Str("line", name).Stringer("level", l).Msg("failed to drive output")
	}
}

// NewButton configures an active-low push button on pin.
func NewButton(pin gpio.PinIn, timing keys.Timing) (*keys.Button, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("%s: %w", pin, err)
	}
	return keys.NewButton(func() bool { return pin.Read() == gpio.Low }, timing), nil
}
