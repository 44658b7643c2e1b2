package tool

import (
	"context"
	"time"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/rangetable"
)

// Ring tester defaults.
const (
	DefaultRingGateMs   = 10
	DefaultGoodRings    = 10
	DefaultRingInterval = 500 * time.Millisecond
)

// RingTesterConfig holds ring tester options.
type RingTesterConfig struct {
	Edge      counter.Edge
	GateMs    uint16        // Must be a gate of the range table
	GoodRings uint32        // Ring count at or above which the coil passes
	Interval  time.Duration // Pause between tests
}

// RingTester kicks the coil under test and counts how many cycles it rings
// within one fixed gate. Shorted turns damp the ringing. Keys: double exits.
type RingTester struct {
	env   Env
	cfg   RingTesterConfig
	kick  Kicker
	entry rangetable.Entry
}

// NewRingTester creates a ring tester. A gate missing from the table falls
// back to the shortest gate.
func NewRingTester(env Env, kick Kicker, cfg RingTesterConfig) *RingTester {
	env.defaults()
	if cfg.GateMs == 0 {
		cfg.GateMs = DefaultRingGateMs
	}
	if cfg.GoodRings == 0 {
		cfg.GoodRings = DefaultGoodRings
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRingInterval
	}
	entry, ok := env.Table.Find(cfg.GateMs)
	if !ok {
		entry = env.Table[env.Table.Shortest()]
		env.Logger.Warn().Uint16("gate_ms", cfg.GateMs).Uint16("using_ms", entry.GateMs).Msg("ring gate not in range table")
		cfg.GateMs = entry.GateMs
	}
	return &RingTester{env: env, cfg: cfg, kick: kick, entry: entry}
}

func (r *RingTester) Name() string { return "ring-tester" }

// Open claims the counter.
func (r *RingTester) Open() error { return r.env.Counter.Open(r.cfg.Edge) }

// Close releases the counter.
func (r *RingTester) Close() { r.env.Counter.Close() }

// Test kicks the coil and counts its rings.
func (r *RingTester) Test(ctx context.Context) (uint32, bool, error) {
	r.kick.Kick()
	s, err := r.env.Counter.Measure(ctx, r.entry)
	if err != nil {
		return 0, false, err
	}
	good := s.Pulses >= r.cfg.GoodRings
	r.env.Display.Rings(s.Pulses, good)
	return s.Pulses, good, nil
}

func (r *RingTester) Step(ctx context.Context) (bool, error) {
	_, _, err := r.Test(ctx)
	k := keys.None
	if err != nil {
		if k, err = aborted(err); err != nil {
			return false, err
		}
	} else if k, err = r.env.waitKey(ctx, r.cfg.Interval); err != nil {
		return false, err
	}
	return k == keys.Double, nil
}

// Run tests repeatedly until the exit key or ctx is done.
func (r *RingTester) Run(ctx context.Context) error {
	if err := r.Open(); err != nil {
		return err
	}
	defer r.Close()
	return loop(ctx, r, r.env.Logger)
}
