package instrument

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sim"
)

// Mock runs the configured tool on simulated hardware.
type Mock struct {
	*Local

	cfg   *config.Config
	hw    *sim.Sim
	tank  *sim.Tank
	coil  *sim.Coil
	start time.Time
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	hw := sim.New(nil, sim.Config{ClockHz: cfg.Timer.ClockHz, CounterBits: cfg.Timer.CounterBits})
	m := &Mock{cfg: cfg, hw: hw, start: time.Now()}

	switch cfg.Mock.Tool {
	case ToolLC:
		o := cfg.Oscillator
		m.tank = sim.NewTank(o.Inductance, o.Capacitance, lc.TenthsPF(o.Reference).Farads())
		m.tank.Scale = cfg.Mock.Scale
		hw.SetSource(m.tank)
	case ToolFrequency:
		hw.SetSource(sim.Tone(cfg.Mock.Frequency))
	case ToolRing:
		m.coil = sim.NewCoil(hw.Now, cfg.Mock.RingFrequency, cfg.Mock.Rings)
		hw.SetSource(m.coil)
	}

	m.Local = NewLocal(cfg.Mock.Tool, cfg, hw, m).WithClock(m.sleep, m.now)
	m.Local.status = m.attach
	return m
}

// WithLogger sets the logger passed to the simulated tools.
func (m *Mock) WithLogger(l zerolog.Logger) *Mock {
	m.Local.WithLogger(l)
	return m
}

// Tank returns the simulated LC oscillator, or nil when not running the LC meter.
func (m *Mock) Tank() *sim.Tank { return m.tank }

// sleep advances the simulation, pacing it against the wall clock.
func (m *Mock) sleep(d time.Duration) {
	m.hw.Sleep(d)
	if m.cfg.Mock.Speed > 0 {
		time.Sleep(time.Duration(float64(d) / m.cfg.Mock.Speed))
	}
}

func (m *Mock) now() time.Time {
	return m.start.Add(m.hw.Now())
}

// attach plays the operator: the terminals are left open while the LC meter
// calibrates and the parts under test go back on once it succeeds.
func (m *Mock) attach(s report.Status) {
	if m.tank == nil {
		return
	}
	switch s {
	case report.StatusCalibrating:
		m.tank.Connect(0, 0)
	case report.StatusOK:
		m.tank.Connect(m.cfg.Mock.Capacitance, m.cfg.Mock.Inductance)
	}
}

// SetReference drives the simulated reference relay.
func (m *Mock) SetReference(connected bool) {
	if m.tank != nil {
		m.tank.SetReference(connected)
	}
}

// SetMode drives the simulated mode relay.
func (m *Mock) SetMode(mode lc.Mode) {
	if m.tank != nil {
		m.tank.SetMode(mode)
	}
}

// Kick excites the simulated coil.
func (m *Mock) Kick() {
	if m.coil != nil {
		m.coil.Kick()
	}
}
