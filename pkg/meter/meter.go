package meter

import (
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/sample"
)

var _ Monitor = (*Meter)(nil)

// Segment is a run of consecutive readings that stay within the stability
// tolerance of their mean.
type Segment struct {
	StartIndex int       // First sample index in buffer
	EndIndex   int       // Last sample index in buffer (updated as the segment continues)
	StartTime  time.Time // Start timestamp
	EndTime    time.Time // End timestamp
	Mean       float32
	Min, Max   float32
	count      int // Readings folded into Mean, including trimmed ones
}

// Count returns the number of readings in the segment.
func (s Segment) Count() int { return s.count }

// Monitor processes samples, keeps a history window and finds stable readings.
type Monitor interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample                                                          // Current history (ordered first to last)
	Derivatives() []float64                                                            // Drift per second (n-1 derivatives for n samples)
	Segments() []Segment                                                               // Stable segments within the window
	Stable() (Segment, bool)                                                           // Segment containing the latest sample, if stable
	OnUpdate(func(samples []sample.Sample, derivatives []float64, segments []Segment)) // Register callback for updates
}

// Meter implements Monitor. The history holds measured samples of a single
// kind; a sample of another kind starts a new history.
//
// Derivatives correspond exactly to sample pairs:
// derivative[i] = (sample[i+1] - sample[i]) / dt.
type Meter struct {
	samples     []sample.Sample
	derivatives []float64
	segments    []Segment

	mu sync.RWMutex

	callbacks []func(samples []sample.Sample, derivatives []float64, segments []Segment)
	cbMu      sync.RWMutex

	windowDuration time.Duration
	tolerance      float32
	minSamples     int

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a new Meter.
func New(cfg *config.Config) *Meter {
	m := &Meter{
		windowDuration: time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
		tolerance:      float32(cfg.Measurement.StableTolerance),
		minSamples:     cfg.Measurement.StableSamples,
	}
	if m.minSamples < 2 {
		m.minSamples = 2
	}
	return m
}

// ProcessSamples processes samples from the input channel until it closes.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// Reset clears the history and allows callbacks again.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.shutdown = false
}

func (m *Meter) reset() {
	m.samples = m.samples[:0]
	m.derivatives = m.derivatives[:0]
	m.segments = m.segments[:0]
}

// processSample adds a sample to the history, updates derivatives and segments.
func (m *Meter) processSample(s sample.Sample) {
	if !s.Measured() {
		return
	}

	m.mu.Lock()

	if len(m.samples) > 0 && m.samples[0].Kind != s.Kind {
		m.reset()
	}
	m.samples = append(m.samples, s)
	m.trim(s.Timestamp.Add(-m.windowDuration))

	if n := len(m.samples); n >= 2 {
		prev, curr := m.samples[n-2], m.samples[n-1]
		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		d := 0.0
		if dt > 0 {
			d = float64(curr.Value-prev.Value) / dt
		}
		m.derivatives = append(m.derivatives, d)
	}

	m.updateSegments()

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// trim removes samples at or before cutoff, keeping derivatives and segment
// indices in step.
func (m *Meter) trim(cutoff time.Time) {
	cut := 0
	for cut < len(m.samples)-1 && !m.samples[cut].Timestamp.After(cutoff) {
		cut++
	}
	if cut == 0 {
		return
	}

	m.samples = m.samples[cut:]
	if cut <= len(m.derivatives) {
		m.derivatives = m.derivatives[cut:]
	} else {
		m.derivatives = m.derivatives[:0]
	}

	valid := m.segments[:0]
	for _, seg := range m.segments {
		seg.StartIndex -= cut
		seg.EndIndex -= cut
		if seg.EndIndex < 0 {
			continue
		}
		if seg.StartIndex < 0 {
			seg.StartIndex = 0
			seg.StartTime = m.samples[0].Timestamp
		}
		valid = append(valid, seg)
	}
	m.segments = valid
}

// updateSegments extends the open segment with the latest sample or starts
// a new one.
func (m *Meter) updateSegments() {
	last := len(m.samples) - 1
	s := m.samples[last]

	if n := len(m.segments); n > 0 {
		seg := &m.segments[n-1]
		if seg.EndIndex == last-1 && m.within(seg.Mean, s.Value) {
			seg.count++
			seg.Mean += (s.Value - seg.Mean) / float32(seg.count)
			seg.Min = math32.Min(seg.Min, s.Value)
			seg.Max = math32.Max(seg.Max, s.Value)
			seg.EndIndex = last
			seg.EndTime = s.Timestamp
			return
		}
		if seg.count < m.minSamples {
			// Too short to be a reading
			m.segments = m.segments[:n-1]
		}
	}

	m.segments = append(m.segments, Segment{
		StartIndex: last,
		EndIndex:   last,
		StartTime:  s.Timestamp,
		EndTime:    s.Timestamp,
		Mean:       s.Value,
		Min:        s.Value,
		Max:        s.Value,
		count:      1,
	})
}

func (m *Meter) within(mean, v float32) bool {
	return math32.Abs(v-mean) <= m.tolerance*math32.Abs(mean)
}

// Samples returns a copy of the current samples buffer.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Derivatives returns a copy of the current derivatives buffer.
func (m *Meter) Derivatives() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]float64, len(m.derivatives))
	copy(result, m.derivatives)
	return result
}

// Segments returns the stable segments, those with enough readings.
func (m *Meter) Segments() []Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stableSegments()
}

func (m *Meter) stableSegments() []Segment {
	result := make([]Segment, 0, len(m.segments))
	for _, seg := range m.segments {
		if seg.count >= m.minSamples {
			result = append(result, seg)
		}
	}
	return result
}

// Stable returns the segment ending at the latest sample when it is stable.
func (m *Meter) Stable() (Segment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.segments)
	if n == 0 {
		return Segment{}, false
	}
	seg := m.segments[n-1]
	if seg.EndIndex != len(m.samples)-1 || seg.count < m.minSamples {
		return Segment{}, false
	}
	return seg, true
}

// OnUpdate registers a callback function that will be called when samples are updated.
// The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback func(samples []sample.Sample, derivatives []float64, segments []Segment)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// notifyCallbacks invokes all registered callbacks with copies of current data.
func (m *Meter) notifyCallbacks() {
	m.mu.RLock()
	samplesCopy := make([]sample.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	derivativesCopy := make([]float64, len(m.derivatives))
	copy(derivativesCopy, m.derivatives)
	segmentsCopy := m.stableSegments()
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]func(samples []sample.Sample, derivatives []float64, segments []Segment), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	// Invoke callbacks without holding any locks
	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, derivativesCopy, segmentsCopy)
		}
	}
}
