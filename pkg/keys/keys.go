// Package keys is the user-input side of the instrument: a poll-style check
// for key presses that measurement loops call between and during gate cycles.
package keys

import (
	"sync/atomic"
	"time"
)

// Outcome is the result of one poll.
type Outcome uint8

const (
	None Outcome = iota
	Short
	Long
	Double
)

func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case Short:
		return "short"
	case Long:
		return "long"
	case Double:
		return "double"
	}
	return "unknown"
}

// Poller checks for user input without blocking.
type Poller interface {
	Poll() Outcome
}

// PollerFunc adapts a function to Poller.
type PollerFunc func() Outcome

func (f PollerFunc) Poll() Outcome { return f() }

// Never is a poller that never reports a key.
var Never Poller = PollerFunc(func() Outcome { return None })

// Any polls each poller in order and returns the first key reported.
func Any(pollers ...Poller) Poller {
	return PollerFunc(func() Outcome {
		for _, p := range pollers {
			if p == nil {
				continue
			}
			if o := p.Poll(); o != None {
				return o
			}
		}
		return None
	})
}

// Queue is a poller fed by asynchronous producers such as a serial command reader.
type Queue struct {
	q     chan Outcome
	drops uint32
}

// NewQueue creates a queue holding up to size pending keys.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 4
	}
	return &Queue{q: make(chan Outcome, size)}
}

// Push enqueues a key. It never blocks; keys are dropped when the queue is full.
func (q *Queue) Push(o Outcome) bool {
	if o == None {
		return false
	}
	select {
	case q.q <- o:
		return true
	default:
		atomic.AddUint32(&q.drops, 1)
		return false
	}
}

// Poll returns the oldest pending key, or None.
func (q *Queue) Poll() Outcome {
	select {
	case o := <-q.q:
		return o
	default:
		return None
	}
}

// Drops returns the number of keys dropped because the queue was full.
func (q *Queue) Drops() uint32 { return atomic.LoadUint32(&q.drops) }

// Timing holds the press classification thresholds.
type Timing struct {
	Debounce     time.Duration
	LongPress    time.Duration
	DoubleWindow time.Duration
}

// DefaultTiming is tuned for a tactile push button.
var DefaultTiming = Timing{
	Debounce:     20 * time.Millisecond,
	LongPress:    800 * time.Millisecond,
	DoubleWindow: 300 * time.Millisecond,
}

// Classifier turns sampled button levels into outcomes.
// Long is reported while the button is still held; Short is reported once the
// double-press window after a release has passed without a second press.
type Classifier struct {
	timing Timing

	pressed    bool
	lastChange time.Time
	pressStart time.Time
	longSent   bool
	pending    bool
	releasedAt time.Time
}

// NewClassifier creates a classifier; zero fields in timing take defaults.
func NewClassifier(timing Timing) *Classifier {
	if timing.Debounce <= 0 {
		timing.Debounce = DefaultTiming.Debounce
	}
	if timing.LongPress <= 0 {
		timing.LongPress = DefaultTiming.LongPress
	}
	if timing.DoubleWindow <= 0 {
		timing.DoubleWindow = DefaultTiming.DoubleWindow
	}
	return &Classifier{timing: timing}
}

// Update feeds one level sample taken at now.
func (c *Classifier) Update(pressed bool, now time.Time) Outcome {
	if pressed != c.pressed {
		if !c.lastChange.IsZero() && now.Sub(c.lastChange) < c.timing.Debounce {
			return c.idle(now)
		}
		c.pressed = pressed
		c.lastChange = now
		if pressed {
			c.pressStart = now
			c.longSent = false
			return None
		}
		return c.release(now)
	}
	return c.idle(now)
}

func (c *Classifier) release(now time.Time) Outcome {
	if c.longSent {
		return None
	}
	if c.pending {
		c.pending = false
		return Double
	}
	c.pending = true
	c.releasedAt = now
	return None
}

func (c *Classifier) idle(now time.Time) Outcome {
	if c.pressed && !c.longSent && now.Sub(c.pressStart) >= c.timing.LongPress {
		c.longSent = true
		c.pending = false
		return Long
	}
	if !c.pressed && c.pending && now.Sub(c.releasedAt) >= c.timing.DoubleWindow {
		c.pending = false
		return Short
	}
	return None
}

// Button polls a level source through a classifier.
type Button struct {
	Read func() bool
	Now  func() time.Time
	*Classifier
}

// NewButton creates a button poller reading levels with read.
func NewButton(read func() bool, timing Timing) *Button {
	return &Button{Read: read, Now: time.Now, Classifier: NewClassifier(timing)}
}

func (b *Button) Poll() Outcome {
	return b.Update(b.Read(), b.Now())
}
