// Package counter implements the gated pulse counter: edges of an unknown
// signal are counted while a gate timer holds a precisely timed window open.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/rangetable"
)

// DefaultPollInterval is how often the waiting loop checks for gate completion and keys.
const DefaultPollInterval = 10 * time.Millisecond

// ErrAborted is matched by every error returned for a cancelled gate.
var ErrAborted = errors.New("measurement aborted")

// ErrNotOpen is returned when measuring before Open.
var ErrNotOpen = errors.New("counter not open")

// AbortError tells which key (if any) cancelled the gate.
type AbortError struct {
	Key   keys.Outcome // None when the context was cancelled
	Cause error        // Context error, if any
}

func (e *AbortError) Error() string {
	if e.Key != keys.None {
		return fmt.Sprintf("%s: %s key", ErrAborted, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrAborted, e.Cause)
	}
	return ErrAborted.Error()
}

func (e *AbortError) Is(target error) bool { return target == ErrAborted }
func (e *AbortError) Unwrap() error        { return e.Cause }

// KeyOf returns the key carried by an abort error, or None.
func KeyOf(err error) keys.Outcome {
	var ae *AbortError
	if errors.As(err, &ae) {
		return ae.Key
	}
	return keys.None
}

// GateSample is the result of one gate cycle.
type GateSample struct {
	Pulses uint32 // Edges counted during the gate
	GateMs uint16 // Gate duration
	Range  int    // Index of the range entry used
}

// Hz converts the sample to a frequency.
func (s GateSample) Hz() float64 {
	if s.GateMs == 0 {
		return 0
	}
	return float64(s.Pulses) * 1000 / float64(s.GateMs)
}

// Config holds counter options.
type Config struct {
	PollInterval time.Duration       // Waiting loop granularity
	Sleep        func(time.Duration) // Suspends the caller between polls
	Input        keys.Poller         // Checked on every poll; any key aborts
	Logger       zerolog.Logger
}

// Counter drives the hardware through gate cycles. A counter belongs to one
// tool session at a time.
type Counter struct {
	hw    Hardware
	cfg   Config
	acc   *Accumulator
	done  atomic.Bool
	open  bool
	edge  Edge
	gates uint32
}

// New creates a counter on top of hw.
func New(hw Hardware, cfg Config) *Counter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Input == nil {
		cfg.Input = keys.Never
	}
	return &Counter{
		hw:  hw,
		cfg: cfg,
		acc: NewAccumulator(hw.CounterBits()),
	}
}

// Open claims the signal pin for counting on edge.
func (c *Counter) Open(edge Edge) error {
	if c.open {
		c.hw.Close()
	}
	if err := c.hw.Open(edge); err != nil {
		return fmt.Errorf("failed to open counter input: %w", err)
	}
	c.open = true
	c.edge = edge
	c.cfg.Logger.Debug().Stringer("edge", edge).Msg("counter open")
	return nil
}

// Close stops both timers, disables their interrupts and restores the signal pin.
func (c *Counter) Close() {
	if !c.open {
		return
	}
	c.hw.Close()
	c.open = false
	c.cfg.Logger.Debug().Uint32("gates", c.gates).Msg("counter closed")
}

// Edge returns the edge selected by the last Open.
func (c *Counter) Edge() Edge { return c.edge }

// IsOpen reports whether the counter currently owns the hardware.
func (c *Counter) IsOpen() bool { return c.open }

// Sleep suspends the caller using the counter's sleep function.
func (c *Counter) Sleep(d time.Duration) { c.cfg.Sleep(d) }

func (c *Counter) onOverflow() {
	c.acc.Overflow()
}

func (c *Counter) onGate() {
	// Clocks go off before done is raised: the main loop may read the
	// accumulator as soon as it observes done.
	c.hw.Stop()
	c.done.Store(true)
}

// Measure runs one gate cycle on entry and returns the counted pulses.
// Any key reported by the input poller or a cancelled ctx before the gate
// elapses aborts the cycle with both timers stopped.
func (c *Counter) Measure(ctx context.Context, entry rangetable.Entry) (GateSample, error) {
	if !c.open {
		return GateSample{}, ErrNotOpen
	}
	if err := c.hw.Arm(entry, Handlers{Overflow: c.onOverflow, Gate: c.onGate}); err != nil {
		return GateSample{}, fmt.Errorf("failed to arm range %d: %w", entry.Index, err)
	}
	c.acc.Reset()
	c.done.Store(false)
	c.hw.Start()

	for !c.done.Load() {
		if err := ctx.Err(); err != nil {
			c.hw.Stop()
			return GateSample{}, &AbortError{Cause: err}
		}
		if k := c.cfg.Input.Poll(); k != keys.None {
			c.hw.Stop()
			c.cfg.Logger.Debug().Stringer("key", k).Int("range", entry.Index).Msg("gate aborted")
			return GateSample{}, &AbortError{Key: k}
		}
		c.cfg.Sleep(c.cfg.PollInterval)
	}

	c.gates++
	return GateSample{
		Pulses: c.acc.Total(c.hw.Count()),
		GateMs: entry.GateMs,
		Range:  entry.Index,
	}, nil
}
