package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/golcm/pkg/calib"
	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/rangetable"
	"github.com/itohio/golcm/pkg/tool"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Timer       TimerConfig       `yaml:"timer"`
	Ranging     RangingConfig     `yaml:"ranging"`
	Oscillator  OscillatorConfig  `yaml:"oscillator"`
	LCMeter     LCMeterConfig     `yaml:"lc_meter"`
	Counter     CounterConfig     `yaml:"counter"`
	Ring        RingConfig        `yaml:"ring"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// TimerConfig describes the counter peripherals.
type TimerConfig struct {
	ClockHz      uint32        `yaml:"clock_hz"`      // Gate timer input clock
	CounterBits  uint8         `yaml:"counter_bits"`  // Pulse counter width
	PollInterval time.Duration `yaml:"poll_interval"` // Gate waiting loop granularity
}

// RangingConfig contains auto-ranging parameters.
type RangingConfig struct {
	Start    int `yaml:"start"`     // Initial range index, -1 for the shortest gate
	MaxSteps int `yaml:"max_steps"` // Range changes per acquisition
}

// OscillatorConfig describes the LC meter's oscillator as built.
type OscillatorConfig struct {
	Inductance  float64       `yaml:"inductance"`  // Henry
	Capacitance float64       `yaml:"capacitance"` // Farad
	Reference   uint32        `yaml:"reference"`   // Reference capacitor, tenths of pF
	Tolerance   float64       `yaml:"tolerance"`   // Relative half-width of plausibility bands
	Settle      time.Duration `yaml:"settle"`      // Relay settling time
	Samples     int           `yaml:"samples"`     // Acquisitions averaged per calibration stage
}

// LCMeterConfig contains LC meter parameters.
type LCMeterConfig struct {
	MinGateMs uint16 `yaml:"min_gate_ms"`
	Mode      string `yaml:"mode"` // capacitance or inductance
}

// CounterConfig contains frequency counter parameters.
type CounterConfig struct {
	Edge string `yaml:"edge"` // rising or falling
}

// RingConfig contains ring tester parameters.
type RingConfig struct {
	GateMs    uint16        `yaml:"gate_ms"`
	GoodRings uint32        `yaml:"good_rings"`
	Interval  time.Duration `yaml:"interval"`
}

// GPIOConfig names the periph pins used by the GPIO backend.
type GPIOConfig struct {
	Signal    string `yaml:"signal"`
	Reference string `yaml:"reference"`
	Mode      string `yaml:"mode"`
	Kick      string `yaml:"kick"`
	Button    string `yaml:"button"`
}

// MeasurementConfig contains host-side processing parameters.
type MeasurementConfig struct {
	WindowSeconds   float64 `yaml:"window_seconds"`   // History kept by the meter
	AverageSamples  int     `yaml:"average_samples"`  // Number of samples to average (0 = disabled, default)
	StableTolerance float64 `yaml:"stable_tolerance"` // Relative spread of a stable reading
	StableSamples   int     `yaml:"stable_samples"`   // Samples a stable reading needs
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Tool          string  `yaml:"tool"`           // lc, frequency or ring
	Capacitance   float64 `yaml:"capacitance"`    // Capacitor under test (F)
	Inductance    float64 `yaml:"inductance"`     // Inductor under test (H)
	Frequency     float64 `yaml:"frequency"`      // Signal for the frequency counter (Hz)
	RingFrequency float64 `yaml:"ring_frequency"` // Coil natural frequency (Hz)
	Rings         int     `yaml:"rings"`          // Cycles the coil rings per kick
	Scale         float64 `yaml:"scale"`          // Oscillator frequency error factor
	Speed         float64 `yaml:"speed"`          // Simulated seconds per real second, 0 runs unpaced
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Timer: TimerConfig{
			ClockHz:      8_000_000,
			CounterBits:  8,
			PollInterval: counter.DefaultPollInterval,
		},
		Ranging: RangingConfig{
			Start:    -1,
			MaxSteps: 8,
		},
		Oscillator: OscillatorConfig{
			Inductance:  82e-6,
			Capacitance: 1e-9,
			Reference:   10000, // 1 nF
			Tolerance:   0.25,
			Settle:      calib.DefaultSettle,
			Samples:     2,
		},
		LCMeter: LCMeterConfig{
			MinGateMs: 100,
			Mode:      lc.Capacitance.String(),
		},
		Counter: CounterConfig{
			Edge: counter.Falling.String(),
		},
		Ring: RingConfig{
			GateMs:    tool.DefaultRingGateMs,
			GoodRings: tool.DefaultGoodRings,
			Interval:  tool.DefaultRingInterval,
		},
		GPIO: GPIOConfig{
			Signal:    "GPIO17",
			Reference: "GPIO22",
			Mode:      "GPIO23",
			Kick:      "GPIO24",
			Button:    "GPIO27",
		},
		Measurement: MeasurementConfig{
			WindowSeconds:   60,
			AverageSamples:  0, // No averaging by default
			StableTolerance: 0.001,
			StableSamples:   5,
		},
		Mock: MockConfig{
			Tool:          "lc",
			Capacitance:   100e-12,
			Inductance:    10e-6,
			Frequency:     1000,
			RingFrequency: 100_000,
			Rings:         15,
			Scale:         1,
			Speed:         1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks names and that the range table fits the timer.
func (c *Config) Validate() error {
	switch c.LCMeter.Mode {
	case lc.Capacitance.String(), lc.Inductance.String():
	default:
		return fmt.Errorf("invalid lc_meter.mode %q", c.LCMeter.Mode)
	}
	switch c.Counter.Edge {
	case counter.Falling.String(), counter.Rising.String():
	default:
		return fmt.Errorf("invalid counter.edge %q", c.Counter.Edge)
	}
	switch c.Mock.Tool {
	case "lc", "frequency", "ring":
	default:
		return fmt.Errorf("invalid mock.tool %q", c.Mock.Tool)
	}
	if c.Oscillator.Tolerance >= 1 {
		return fmt.Errorf("invalid oscillator.tolerance %g", c.Oscillator.Tolerance)
	}
	if err := c.Table().ValidateTimer(c.Timer.ClockHz, 16); err != nil {
		return fmt.Errorf("timer: %w", err)
	}
	return nil
}

// Table returns the range table.
func (c *Config) Table() rangetable.Table {
	return rangetable.MustDefault()
}

// Design returns the oscillator design used for calibration.
func (c *Config) Design() calib.Design {
	return calib.Design{
		Inductance:  c.Oscillator.Inductance,
		Capacitance: c.Oscillator.Capacitance,
		Reference:   lc.TenthsPF(c.Oscillator.Reference),
		Tolerance:   c.Oscillator.Tolerance,
	}
}

// Mode returns the configured LC meter mode.
func (c *Config) Mode() lc.Mode {
	if c.LCMeter.Mode == lc.Inductance.String() {
		return lc.Inductance
	}
	return lc.Capacitance
}

// Edge returns the configured counting edge.
func (c *Config) Edge() counter.Edge {
	return counter.ParseEdge(c.Counter.Edge)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Timer.ClockHz == 0 {
		c.Timer.ClockHz = def.Timer.ClockHz
	}
	if c.Timer.CounterBits == 0 {
		c.Timer.CounterBits = def.Timer.CounterBits
	}
	if c.Timer.PollInterval == 0 {
		c.Timer.PollInterval = def.Timer.PollInterval
	}

	if c.Ranging.MaxSteps == 0 {
		c.Ranging.MaxSteps = def.Ranging.MaxSteps
	}

	if c.Oscillator.Inductance == 0 {
		c.Oscillator.Inductance = def.Oscillator.Inductance
	}
	if c.Oscillator.Capacitance == 0 {
		c.Oscillator.Capacitance = def.Oscillator.Capacitance
	}
	if c.Oscillator.Reference == 0 {
		c.Oscillator.Reference = def.Oscillator.Reference
	}
	if c.Oscillator.Tolerance == 0 {
		c.Oscillator.Tolerance = def.Oscillator.Tolerance
	}
	if c.Oscillator.Samples == 0 {
		c.Oscillator.Samples = def.Oscillator.Samples
	}

	if c.LCMeter.Mode == "" {
		c.LCMeter.Mode = def.LCMeter.Mode
	}
	if c.Counter.Edge == "" {
		c.Counter.Edge = def.Counter.Edge
	}

	if c.Ring.GateMs == 0 {
		c.Ring.GateMs = def.Ring.GateMs
	}
	if c.Ring.GoodRings == 0 {
		c.Ring.GoodRings = def.Ring.GoodRings
	}
	if c.Ring.Interval == 0 {
		c.Ring.Interval = def.Ring.Interval
	}

	if c.GPIO.Signal == "" {
		c.GPIO.Signal = def.GPIO.Signal
	}

	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}
	if c.Measurement.StableTolerance == 0 {
		c.Measurement.StableTolerance = def.Measurement.StableTolerance
	}
	if c.Measurement.StableSamples == 0 {
		c.Measurement.StableSamples = def.Measurement.StableSamples
	}

	if c.Mock.Tool == "" {
		c.Mock.Tool = def.Mock.Tool
	}
	if c.Mock.Scale == 0 {
		c.Mock.Scale = def.Mock.Scale
	}
	if c.Mock.RingFrequency == 0 {
		c.Mock.RingFrequency = def.Mock.RingFrequency
	}
}
