// Package ranging keeps gated frequency measurements inside a usable pulse
// count window by moving between the entries of a range table.
package ranging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/mathx"
	"github.com/itohio/golcm/pkg/rangetable"
)

// Confidence qualifies a frequency value.
type Confidence uint8

const (
	// Accepted: the sample was inside its range's acceptance window.
	Accepted Confidence = iota
	// Exhausted: no range could bring the sample into its window.
	Exhausted
	// NoSignal: not a single edge was counted on the longest usable gate.
	NoSignal
)

func (c Confidence) String() string {
	switch c {
	case Accepted:
		return "accepted"
	case Exhausted:
		return "exhausted"
	case NoSignal:
		return "no-signal"
	}
	return "unknown"
}

// Frequency is a measured frequency and the sample it was derived from.
type Frequency struct {
	Hz         float64
	Sample     counter.GateSample
	Confidence Confidence
	Steps      int // Range changes made while acquiring
}

// Measurer runs one gate cycle.
type Measurer interface {
	Measure(ctx context.Context, entry rangetable.Entry) (counter.GateSample, error)
}

var _ Measurer = (*counter.Counter)(nil)

// Config holds controller options.
type Config struct {
	Start    int // Initial range index; negative selects the shortest gate
	MaxSteps int // Range changes allowed per acquisition
	Logger   zerolog.Logger
}

// Controller is the auto-ranging state of one tool session.
type Controller struct {
	m     Measurer
	table rangetable.Table
	cfg   Config

	index int
	lo    int
	hi    int
}

// New creates a controller over table. The table must be valid.
func New(m Measurer, table rangetable.Table, cfg Config) *Controller {
	if cfg.Start < 0 || cfg.Start >= len(table) {
		cfg.Start = table.Shortest()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 2 * len(table)
	}
	return &Controller{
		m:     m,
		table: table,
		cfg:   cfg,
		index: cfg.Start,
		lo:    table.Longest(),
		hi:    table.Shortest(),
	}
}

// WithLimits restricts the controller to table indices lo..hi.
func (c *Controller) WithLimits(lo, hi int) *Controller {
	last := len(c.table) - 1
	c.lo = mathx.Clamp(lo, 0, last)
	c.hi = mathx.Clamp(hi, 0, last)
	if c.lo > c.hi {
		c.lo, c.hi = c.hi, c.lo
	}
	c.index = mathx.Clamp(c.index, c.lo, c.hi)
	return c
}

// Index returns the current range index.
func (c *Controller) Index() int { return c.index }

// Entry returns the current range entry.
func (c *Controller) Entry() rangetable.Entry { return c.table[c.index] }

// Reset returns to the configured start range (within limits).
func (c *Controller) Reset() {
	c.index = mathx.Clamp(c.cfg.Start, c.lo, c.hi)
}

// Acquire measures until a sample lands inside the current range's window,
// the ranges are exhausted, or the measurement is aborted. After a range
// change the new range is always measured again before a value is returned.
func (c *Controller) Acquire(ctx context.Context) (Frequency, error) {
	steps := 0
	for {
		e := c.table[c.index]
		s, err := c.m.Measure(ctx, e)
		if err != nil {
			return Frequency{}, err
		}

		fit := e.Classify(s.Pulses)
		if fit == rangetable.Within {
			conf := Accepted
			if s.Pulses == 0 {
				conf = NoSignal
			}
			return Frequency{Hz: s.Hz(), Sample: s, Confidence: conf, Steps: steps}, nil
		}

		next := c.next(e, s.Pulses, fit)
		if next == c.index || steps >= c.cfg.MaxSteps {
			conf := Exhausted
			if next == c.index && fit == rangetable.Below && s.Pulses == 0 {
				conf = NoSignal
			}
			c.cfg.Logger.Debug().
				Int("range", c.index).
				Uint32("pulses", s.Pulses).
				Stringer("fit", fit).
				Stringer("confidence", conf).
				Msg("ranges exhausted")
			return Frequency{Hz: s.Hz(), Sample: s, Confidence: conf, Steps: steps}, nil
		}

		c.cfg.Logger.Debug().
			Int("from", c.index).
			Int("to", next).
			Uint32("pulses", s.Pulses).
			Stringer("fit", fit).
			Msg("range change")
		c.index = next
		steps++
	}
}

// next picks the nearest range in the direction of fit whose window accepts
// the pulse count predicted from the current sample, or the extreme range in
// that direction when none does.
func (c *Controller) next(e rangetable.Entry, pulses uint32, fit rangetable.Fit) int {
	dir, extreme := 1, c.hi
	if fit == rangetable.Below {
		dir, extreme = -1, c.lo
	}
	for i := c.index + dir; i >= c.lo && i <= c.hi; i += dir {
		cand := c.table[i]
		if cand.Accepts(e.Predict(pulses, cand)) {
			return i
		}
	}
	return extreme
}
