package tool

import (
	"context"
	"errors"

	"github.com/itohio/golcm/pkg/calib"
	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/ranging"
	"github.com/itohio/golcm/pkg/report"
)

// LCMeterConfig holds LC meter options.
type LCMeterConfig struct {
	Edge        counter.Edge
	Mode        lc.Mode
	MinGateMs   uint16 // Shorter gates are not used
	Ranging     ranging.Config
	Calibration calib.Config
}

// LCMeter measures capacitance or inductance from the frequency shift of
// its LC oscillator. Keys: short toggles capacitance/inductance, long
// recalibrates, double exits.
type LCMeter struct {
	env   Env
	sw    calib.Switches
	cfg   LCMeterConfig
	rc    *ranging.Controller
	boot  *calib.Bootstrap
	state *calib.State
	mode  lc.Mode
}

// NewLCMeter creates an LC meter driving the oscillator switches through sw.
func NewLCMeter(env Env, sw calib.Switches, cfg LCMeterConfig) *LCMeter {
	env.defaults()
	if cfg.Calibration.Sleep == nil {
		cfg.Calibration.Sleep = env.Counter.Sleep
	}
	cfg.Ranging.Logger = env.Logger
	cfg.Calibration.Logger = env.Logger

	rc := ranging.New(env.Counter, env.Table, cfg.Ranging).
		WithLimits(env.Table.Longest(), env.Table.Limit(cfg.MinGateMs))

	return &LCMeter{
		env:  env,
		sw:   sw,
		cfg:  cfg,
		rc:   rc,
		boot: calib.New(rc, sw, cfg.Calibration),
		mode: cfg.Mode,
	}
}

func (m *LCMeter) Name() string { return "lc-meter" }

// Open claims the counter and selects the current mode.
func (m *LCMeter) Open() error {
	if err := m.env.Counter.Open(m.cfg.Edge); err != nil {
		return err
	}
	m.sw.SetReference(false)
	m.sw.SetMode(m.mode)
	return nil
}

// Close releases the counter and switches the reference capacitor out.
func (m *LCMeter) Close() {
	m.env.Counter.Close()
	m.sw.SetReference(false)
}

// Mode returns the measured quantity.
func (m *LCMeter) Mode() lc.Mode { return m.mode }

// SetMode selects capacitance or inductance measurement.
func (m *LCMeter) SetMode(mode lc.Mode) {
	m.mode = mode
	m.sw.SetMode(mode)
	m.env.Logger.Debug().Stringer("mode", mode).Msg("mode changed")
}

// Calibration returns the current calibration, or nil.
func (m *LCMeter) Calibration() *calib.State { return m.state }

// Calibrate runs the bootstrap. On failure the meter stays uncalibrated
// until a later Calibrate succeeds.
func (m *LCMeter) Calibrate(ctx context.Context) error {
	m.state = nil
	m.env.Display.Status(report.StatusCalibrating)

	state, err := m.boot.Run(ctx)
	m.sw.SetMode(m.mode)
	m.rc.Reset()
	if err != nil {
		if errors.Is(err, calib.ErrImplausible) {
			m.env.Display.Status(report.StatusImplausible)
		}
		return err
	}
	m.state = state
	m.env.Display.Status(report.StatusOK)
	return nil
}

// Measure acquires the loaded oscillator frequency and converts it to the
// selected quantity.
func (m *LCMeter) Measure(ctx context.Context) (lc.Quantity, ranging.Frequency, error) {
	if m.state == nil {
		m.env.Display.Status(report.StatusUncalibrated)
		return lc.Quantity{}, ranging.Frequency{}, ErrNotCalibrated
	}

	f, err := m.rc.Acquire(ctx)
	if err != nil {
		return lc.Quantity{}, ranging.Frequency{}, err
	}
	if f.Confidence == ranging.NoSignal {
		m.env.Display.Status(report.StatusNoSignal)
		return lc.Quantity{}, f, nil
	}

	var q lc.Quantity
	if m.mode == lc.Inductance {
		q = m.state.Inductance(f.Hz)
	} else {
		q = m.state.Capacitance(f.Hz)
	}
	m.env.Display.Quantity(m.mode, q, f)
	return q, f, nil
}

func (m *LCMeter) Step(ctx context.Context) (bool, error) {
	_, _, err := m.Measure(ctx)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrNotCalibrated):
		k, err := m.env.waitKey(ctx, 0)
		if err != nil {
			return false, err
		}
		return m.handle(ctx, k)
	}
	k, err := aborted(err)
	if err != nil {
		return false, err
	}
	return m.handle(ctx, k)
}

func (m *LCMeter) handle(ctx context.Context, k keys.Outcome) (bool, error) {
	switch k {
	case keys.Short:
		if m.mode == lc.Capacitance {
			m.SetMode(lc.Inductance)
		} else {
			m.SetMode(lc.Capacitance)
		}
	case keys.Long:
		return m.calibrate(ctx)
	case keys.Double:
		return true, nil
	}
	return false, nil
}

// calibrate runs Calibrate for Run and Step: implausible results leave the
// meter uncalibrated, a key pressed during calibration is handled.
func (m *LCMeter) calibrate(ctx context.Context) (bool, error) {
	err := m.Calibrate(ctx)
	if err == nil || errors.Is(err, calib.ErrImplausible) {
		return false, nil
	}
	k, err := aborted(err)
	if err != nil {
		return false, err
	}
	return m.handle(ctx, k)
}

// Run calibrates and then measures until the exit key or ctx is done.
func (m *LCMeter) Run(ctx context.Context) error {
	if err := m.Open(); err != nil {
		return err
	}
	defer m.Close()

	done, err := m.calibrate(ctx)
	if err != nil || done {
		return err
	}
	return loop(ctx, m, m.env.Logger)
}
