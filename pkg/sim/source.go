package sim

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/golcm/pkg/lc"
)

// Source produces signal edges on the virtual time axis.
type Source interface {
	// Edges returns the number of edges in the interval (from, to].
	Edges(from, to time.Duration) uint64
}

// Tone is a steady square wave of the given frequency in Hz.
type Tone float64

func (f Tone) Edges(from, to time.Duration) uint64 {
	a, b := cycles(float64(f), from), cycles(float64(f), to)
	if b < a {
		return 0
	}
	return b - a
}

func cycles(hz float64, t time.Duration) uint64 {
	if hz <= 0 || t <= 0 {
		return 0
	}
	return uint64(math.Floor(hz * float64(t) / float64(time.Second)))
}

// Variable is a tone whose frequency can be changed between gates.
type Variable struct {
	mu sync.Mutex
	hz float64
}

// NewVariable creates a variable tone at hz.
func NewVariable(hz float64) *Variable { return &Variable{hz: hz} }

// Set changes the frequency.
func (v *Variable) Set(hz float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hz = hz
}

func (v *Variable) Edges(from, to time.Duration) uint64 {
	v.mu.Lock()
	hz := v.hz
	v.mu.Unlock()
	return Tone(hz).Edges(from, to)
}

// Tank is an LC oscillator with a switchable reference capacitor and a
// device under test connected either in parallel with the capacitor or in
// series with the inductor.
type Tank struct {
	mu sync.Mutex

	L    float64 // Henry
	C    float64 // Farad
	Cref float64 // Farad

	// Scale multiplies the resulting frequency; 1 for an ideal tank.
	Scale float64

	cx, lx float64
	ref    bool
	mode   lc.Mode
}

// NewTank creates a tank from its inductance, capacitance and reference capacitance.
func NewTank(l, c, cref float64) *Tank {
	return &Tank{L: l, C: c, Cref: cref, Scale: 1}
}

// SetReference switches the reference capacitor in or out.
func (t *Tank) SetReference(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ref = connected
}

// SetMode selects capacitance or inductance topology.
func (t *Tank) SetMode(m lc.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
}

// Connect attaches a capacitor (farad) or inductor (henry) under test; zero removes it.
func (t *Tank) Connect(capacitance, inductance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cx = capacitance
	t.lx = inductance
}

// Reference reports whether the reference capacitor is switched in.
func (t *Tank) Reference() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ref
}

// Mode returns the selected topology.
func (t *Tank) Mode() lc.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Hz returns the current oscillation frequency.
func (t *Tank) Hz() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, c := t.L, t.C
	if t.ref {
		c += t.Cref
	}
	if t.mode == lc.Inductance {
		l += t.lx
	} else {
		c += t.cx
	}
	return lc.ResonantFrequency(l, c) * t.Scale
}

func (t *Tank) Edges(from, to time.Duration) uint64 {
	return Tone(t.Hz()).Edges(from, to)
}

// Coil is a ring-test subject: after each kick it rings for a fixed number
// of cycles at its natural frequency and then stays quiet.
type Coil struct {
	mu    sync.Mutex
	clock func() time.Duration
	hz    float64
	rings uint64
	at    time.Duration
	kick  bool
}

// NewCoil creates a coil ringing rings times at hz; clock supplies the kick time.
func NewCoil(clock func() time.Duration, hz float64, rings int) *Coil {
	if rings < 0 {
		rings = 0
	}
	return &Coil{clock: clock, hz: hz, rings: uint64(rings)}
}

// Kick excites the coil.
func (c *Coil) Kick() {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = now
	c.kick = true
}

// SetRings changes the number of ring cycles produced per kick.
func (c *Coil) SetRings(rings int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rings < 0 {
		rings = 0
	}
	c.rings = uint64(rings)
}

func (c *Coil) Edges(from, to time.Duration) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.kick {
		return 0
	}
	n := func(t time.Duration) uint64 {
		if t <= c.at {
			return 0
		}
		k := cycles(c.hz, t-c.at)
		if k > c.rings {
			return c.rings
		}
		return k
	}
	a, b := n(from), n(to)
	if b < a {
		return 0
	}
	return b - a
}
