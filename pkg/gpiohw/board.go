package gpiohw

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/keys"
)

// Board is the instrument wired to named GPIO lines.
type Board struct {
	Timers  *Timers
	Outputs *Outputs
	Button  *keys.Button // nil when no button line is configured
}

// Open resolves the configured lines. Only the signal line is mandatory.
// The host drivers must have been initialized already.
func Open(cfg *config.Config, log zerolog.Logger) (*Board, error) {
	g := cfg.GPIO
	if g.Signal == "" {
		return nil, fmt.Errorf("signal gpio not configured")
	}
	sig, err := Lookup(g.Signal)
	if err != nil {
		return nil, err
	}

	b := &Board{
		Timers: NewTimers(sig, Config{
			ClockHz:     cfg.Timer.ClockHz,
			CounterBits: cfg.Timer.CounterBits,
			Logger:      log,
		}),
		Outputs: &Outputs{Logger: log},
	}

	for _, o := range []struct {
		name string
		dst  *gpio.PinOut
	}{
		{g.Reference, &b.Outputs.ReferencePin},
		{g.Mode, &b.Outputs.ModePin},
		{g.Kick, &b.Outputs.KickPin},
	} {
		if o.name == "" {
			continue
		}
		p, err := Lookup(o.name)
		if err != nil {
			return nil, err
		}
		*o.dst = p
	}

	if g.Button != "" {
		p, err := Lookup(g.Button)
		if err != nil {
			return nil, err
		}
		if b.Button, err = NewButton(p, keys.DefaultTiming); err != nil {
			return nil, err
		}
	}

	// Relays start in their idle position.
	b.Outputs.SetReference(false)
	return b, nil
}
