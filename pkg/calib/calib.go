// Package calib derives the tank's intrinsic capacitance at tool entry by
// measuring the oscillator with and without a known reference capacitor.
package calib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/ranging"
)

// ErrImplausible is matched by every calibration plausibility failure.
var ErrImplausible = errors.New("implausible calibration")

// Stage names a calibration step.
type Stage string

const (
	StageBase      Stage = "base"
	StageReference Stage = "reference"
	StageRatio     Stage = "ratio"
)

// PlausibilityError describes a calibration frequency outside its expected band.
type PlausibilityError struct {
	Stage      Stage
	Hz         float64
	Min, Max   float64
	Confidence ranging.Confidence
}

func (e *PlausibilityError) Error() string {
	if e.Confidence != ranging.Accepted {
		return fmt.Sprintf("%s: %s frequency %s", ErrImplausible, e.Stage, e.Confidence)
	}
	return fmt.Sprintf("%s: %s frequency %.0f Hz outside %.0f..%.0f Hz", ErrImplausible, e.Stage, e.Hz, e.Min, e.Max)
}

func (e *PlausibilityError) Is(target error) bool { return target == ErrImplausible }

// Switches are the LC meter's control outputs.
type Switches interface {
	// SetReference switches the reference capacitor into the tank.
	SetReference(connected bool)
	// SetMode selects the capacitance or inductance tank topology.
	SetMode(m lc.Mode)
}

// Acquirer yields auto-ranged frequency readings.
type Acquirer interface {
	Acquire(ctx context.Context) (ranging.Frequency, error)
}

var _ Acquirer = (*ranging.Controller)(nil)

// Design describes the oscillator as built.
type Design struct {
	Inductance  float64     // Tank inductor, henry
	Capacitance float64     // Tank capacitor, farad
	Reference   lc.TenthsPF // Reference capacitor
	Tolerance   float64     // Relative half-width of the plausibility bands
}

// BaseHz is the design frequency with nothing connected.
func (d Design) BaseHz() float64 {
	return lc.ResonantFrequency(d.Inductance, d.Capacitance)
}

// ReferenceHz is the design frequency with the reference capacitor switched in.
func (d Design) ReferenceHz() float64 {
	return lc.ResonantFrequency(d.Inductance, d.Capacitance+d.Reference.Farads())
}

// Band returns the plausible frequency range around center.
func (d Design) Band(center float64) (float64, float64) {
	return center * (1 - d.Tolerance), center * (1 + d.Tolerance)
}

// State is the calibration of one tool session.
type State struct {
	BaseHz      float64     // Unloaded tank frequency
	ReferenceHz float64     // Frequency with the reference capacitor
	Reference   lc.TenthsPF // Reference capacitance
	Base        lc.TenthsPF // Derived intrinsic tank capacitance
}

// Capacitance converts a loaded frequency into the capacitance under test.
func (s *State) Capacitance(fLoaded float64) lc.Quantity {
	return lc.UnknownCapacitance(s.BaseHz, fLoaded, s.Base)
}

// Inductance converts a loaded frequency into the inductance under test.
func (s *State) Inductance(fLoaded float64) lc.Quantity {
	return lc.UnknownInductance(s.BaseHz, fLoaded, s.Base)
}

// DefaultSettle is the relay settling time used when none is configured.
const DefaultSettle = 50 * time.Millisecond

// Config holds bootstrap options.
type Config struct {
	Design  Design
	Settle  time.Duration       // Wait after switching the reference relay
	Samples int                 // Acquisitions averaged per stage
	Sleep   func(time.Duration) // Used for settling
	Logger  zerolog.Logger
}

// Bootstrap runs the self-calibration sequence.
type Bootstrap struct {
	acq Acquirer
	sw  Switches
	cfg Config
}

// New creates a bootstrap measuring through acq and switching through sw.
func New(acq Acquirer, sw Switches, cfg Config) *Bootstrap {
	if cfg.Samples <= 0 {
		cfg.Samples = 1
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	if cfg.Design.Tolerance <= 0 {
		cfg.Design.Tolerance = 0.25
	}
	return &Bootstrap{acq: acq, sw: sw, cfg: cfg}
}

// Run measures the unloaded tank, switches the reference capacitor in,
// measures again and derives the intrinsic capacitance. The reference
// capacitor is always switched out again when Run returns.
func (b *Bootstrap) Run(ctx context.Context) (*State, error) {
	d := b.cfg.Design
	b.sw.SetMode(lc.Capacitance)
	b.sw.SetReference(false)
	defer b.sw.SetReference(false)
	b.cfg.Sleep(b.cfg.Settle)

	lo, hi := d.Band(d.BaseHz())
	fBase, err := b.measure(ctx, StageBase, lo, hi)
	if err != nil {
		return nil, err
	}

	b.sw.SetReference(true)
	b.cfg.Sleep(b.cfg.Settle)

	lo, hi = d.Band(d.ReferenceHz())
	fRef, err := b.measure(ctx, StageReference, lo, hi)
	if err != nil {
		return nil, err
	}

	cBase := lc.DeriveBaseCapacitance(fBase, fRef, d.Reference)
	if cBase == 0 {
		err := &PlausibilityError{Stage: StageRatio, Hz: fRef, Min: 0, Max: fBase}
		b.cfg.Logger.Warn().Err(err).Msg("calibration failed")
		return nil, err
	}

	s := &State{BaseHz: fBase, ReferenceHz: fRef, Reference: d.Reference, Base: cBase}
	b.cfg.Logger.Info().
		Float64("base_hz", fBase).
		Float64("reference_hz", fRef).
		Uint32("base_tenths_pf", uint32(cBase)).
		Msg("calibrated")
	return s, nil
}

func (b *Bootstrap) measure(ctx context.Context, stage Stage, lo, hi float64) (float64, error) {
	var sum float64
	for range b.cfg.Samples {
		f, err := b.acq.Acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("%s measurement: %w", stage, err)
		}
		if f.Confidence != ranging.Accepted {
			err := &PlausibilityError{Stage: stage, Hz: f.Hz, Min: lo, Max: hi, Confidence: f.Confidence}
			b.cfg.Logger.Warn().Err(err).Msg("calibration failed")
			return 0, err
		}
		sum += f.Hz
	}
	hz := sum / float64(b.cfg.Samples)
	if hz < lo || hz > hi {
		err := &PlausibilityError{Stage: stage, Hz: hz, Min: lo, Max: hi}
		b.cfg.Logger.Warn().Err(err).Msg("calibration failed")
		return 0, err
	}
	return hz, nil
}
