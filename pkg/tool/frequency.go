package tool

import (
	"context"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/ranging"
)

// FrequencyCounterConfig holds frequency counter options.
type FrequencyCounterConfig struct {
	Edge    counter.Edge
	Ranging ranging.Config
}

// FrequencyCounter shows the auto-ranged frequency of the input signal.
// Keys: short toggles the counted edge, long restarts ranging, double exits.
type FrequencyCounter struct {
	env  Env
	cfg  FrequencyCounterConfig
	rc   *ranging.Controller
	edge counter.Edge
}

// NewFrequencyCounter creates a frequency counter.
func NewFrequencyCounter(env Env, cfg FrequencyCounterConfig) *FrequencyCounter {
	env.defaults()
	cfg.Ranging.Logger = env.Logger
	return &FrequencyCounter{
		env:  env,
		cfg:  cfg,
		rc:   ranging.New(env.Counter, env.Table, cfg.Ranging),
		edge: cfg.Edge,
	}
}

func (fc *FrequencyCounter) Name() string { return "frequency-counter" }

// Open claims the counter.
func (fc *FrequencyCounter) Open() error { return fc.env.Counter.Open(fc.edge) }

// Close releases the counter.
func (fc *FrequencyCounter) Close() { fc.env.Counter.Close() }

// Edge returns the counted edge.
func (fc *FrequencyCounter) Edge() counter.Edge { return fc.edge }

// Range returns the current range index.
func (fc *FrequencyCounter) Range() int { return fc.rc.Index() }

// Measure acquires and shows one frequency.
func (fc *FrequencyCounter) Measure(ctx context.Context) (ranging.Frequency, error) {
	f, err := fc.rc.Acquire(ctx)
	if err != nil {
		return ranging.Frequency{}, err
	}
	fc.env.Display.Frequency(f)
	return f, nil
}

func (fc *FrequencyCounter) Step(ctx context.Context) (bool, error) {
	_, err := fc.Measure(ctx)
	if err == nil {
		return false, nil
	}
	k, err := aborted(err)
	if err != nil {
		return false, err
	}

	switch k {
	case keys.Short:
		edge := counter.Rising
		if fc.edge == counter.Rising {
			edge = counter.Falling
		}
		if err := fc.env.Counter.Open(edge); err != nil {
			return false, err
		}
		fc.edge = edge
	case keys.Long:
		fc.rc.Reset()
	case keys.Double:
		return true, nil
	}
	return false, nil
}

// Run measures until the exit key or ctx is done.
func (fc *FrequencyCounter) Run(ctx context.Context) error {
	if err := fc.Open(); err != nil {
		return err
	}
	defer fc.Close()
	return loop(ctx, fc, fc.env.Logger)
}
