// Package tool implements the instrument's measurement tools on top of the
// gated pulse counter: the LC meter, the frequency counter and the ring tester.
//
// A tool owns the counter hardware from Open to Close. Run loops Step until
// the exit key (double press) or a cancelled context, and always closes.
package tool

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/rangetable"
	"github.com/itohio/golcm/pkg/ranging"
	"github.com/itohio/golcm/pkg/report"
)

// ErrNotCalibrated is returned by the LC meter while it has no calibration.
var ErrNotCalibrated = errors.New("not calibrated")

// Display shows readings. Implementations only present; they never block
// measurement for long.
type Display interface {
	Frequency(f ranging.Frequency)
	Quantity(m lc.Mode, q lc.Quantity, f ranging.Frequency)
	Rings(n uint32, good bool)
	Status(s report.Status)
}

var _ Display = (*report.Writer)(nil)

// Kicker excites the coil under test.
type Kicker interface {
	Kick()
}

// Tool is a measurement tool.
type Tool interface {
	Name() string
	// Step performs one measurement cycle and handles any key pressed
	// during it. done is true when the user asked to leave the tool.
	Step(ctx context.Context) (done bool, err error)
	Run(ctx context.Context) error
}

var (
	_ Tool = (*LCMeter)(nil)
	_ Tool = (*FrequencyCounter)(nil)
	_ Tool = (*RingTester)(nil)
)

// Env is what every tool needs from the instrument.
type Env struct {
	Counter *counter.Counter
	Table   rangetable.Table
	Display Display
	Input   keys.Poller // Polled while no gate is running
	Logger  zerolog.Logger
}

func (e *Env) defaults() {
	if e.Input == nil {
		e.Input = keys.Never
	}
	if e.Table == nil {
		e.Table = rangetable.MustDefault()
	}
}

// waitKey polls for a key until one arrives, d elapses (d > 0) or ctx ends.
func (e *Env) waitKey(ctx context.Context, d time.Duration) (keys.Outcome, error) {
	var waited time.Duration
	for d <= 0 || waited < d {
		if err := ctx.Err(); err != nil {
			return keys.None, err
		}
		if k := e.Input.Poll(); k != keys.None {
			return k, nil
		}
		e.Counter.Sleep(counter.DefaultPollInterval)
		waited += counter.DefaultPollInterval
	}
	return keys.None, nil
}

// aborted splits a measurement error into the key that aborted it, if any,
// and the error to give up with.
func aborted(err error) (keys.Outcome, error) {
	if k := counter.KeyOf(err); k != keys.None {
		return k, nil
	}
	return keys.None, err
}

// loop steps t until the exit key or an error.
func loop(ctx context.Context, t Tool, log zerolog.Logger) error {
	log.Info().Str("tool", t.Name()).Msg("tool started")
	defer log.Info().Str("tool", t.Name()).Msg("tool stopped")

	for {
		done, err := t.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
