package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sample"
)

func newMeter(window float64, tolerance float64, stable int) *Meter {
	cfg := config.Default()
	cfg.Measurement.WindowSeconds = window
	cfg.Measurement.StableTolerance = tolerance
	cfg.Measurement.StableSamples = stable
	return New(cfg)
}

func capacitance(t0 time.Time, i int, v float32) sample.Sample {
	return sample.Sample{
		Timestamp: t0.Add(time.Duration(i) * 100 * time.Millisecond),
		Kind:      report.KindCapacitance,
		Value:     v,
		N:         1,
	}
}

func TestNew(t *testing.T) {
	m := New(config.Default())

	assert.NotNil(t, m)
	assert.Empty(t, m.Samples())
	assert.Empty(t, m.Derivatives())
	assert.Empty(t, m.Segments())
	_, ok := m.Stable()
	assert.False(t, ok)
}

func TestProcessSample_IgnoresUnmeasured(t *testing.T) {
	m := newMeter(10, 0.01, 3)
	now := time.Now()

	m.processSample(sample.Sample{Timestamp: now, Kind: report.KindStatus, Status: report.StatusCalibrating})
	m.processSample(sample.Sample{Timestamp: now, Kind: report.KindFrequency, Value: 5, Status: report.StatusExhausted})
	m.processSample(sample.Sample{Timestamp: now, Kind: report.KindRings, Value: 12, Status: report.StatusGood})
	assert.Empty(t, m.Samples())
}

func TestProcessSample_Differentiation(t *testing.T) {
	m := newMeter(10, 0.01, 3)
	now := time.Now()

	m.processSample(capacitance(now, 0, 100e-12))
	m.processSample(capacitance(now, 1, 101e-12)) // 1pF in 0.1s

	derivatives := m.Derivatives()
	require.Len(t, derivatives, 1)
	assert.InDelta(t, 10e-12, derivatives[0], 1e-15)
}

func TestProcessSample_WindowRemoval(t *testing.T) {
	m := newMeter(1, 0.01, 3)
	now := time.Now()

	for i := range 20 {
		m.processSample(capacitance(now, i, 100e-12))
	}

	samples := m.Samples()
	assert.Len(t, samples, 10, "1s window holds 10 samples at 100ms")
	assert.Len(t, m.Derivatives(), len(samples)-1)

	segs := m.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].StartIndex)
	assert.Equal(t, 9, segs[0].EndIndex)
	assert.Equal(t, samples[0].Timestamp, segs[0].StartTime)
	assert.Equal(t, 20, segs[0].Count())
}

func TestProcessSample_KindChangeResets(t *testing.T) {
	m := newMeter(10, 0.01, 3)
	now := time.Now()

	m.processSample(capacitance(now, 0, 100e-12))
	m.processSample(capacitance(now, 1, 100e-12))
	l := capacitance(now, 2, 10e-6)
	l.Kind = report.KindInductance
	m.processSample(l)

	samples := m.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, report.KindInductance, samples[0].Kind)
	assert.Empty(t, m.Derivatives())
}

func TestSegments(t *testing.T) {
	m := newMeter(60, 0.01, 3)
	now := time.Now()

	values := []float32{
		0, 0, 0, 0, // nothing connected: zero readings are stable
		50e-12,                                  // inserting the part
		100e-12, 100.5e-12, 99.6e-12, 100.2e-12, // reading
		30e-12, 200e-12, // removing
	}
	for i, v := range values {
		m.processSample(capacitance(now, i, v))
	}

	segs := m.Segments()
	require.Len(t, segs, 2)

	assert.Equal(t, 0, segs[0].StartIndex)
	assert.Equal(t, 3, segs[0].EndIndex)
	assert.Zero(t, segs[0].Mean)

	assert.Equal(t, 5, segs[1].StartIndex)
	assert.Equal(t, 8, segs[1].EndIndex)
	assert.Equal(t, 4, segs[1].Count())
	assert.InDelta(t, 100.075e-12, segs[1].Mean, 1e-15)
	assert.InDelta(t, 99.6e-12, segs[1].Min, 1e-16)
	assert.InDelta(t, 100.5e-12, segs[1].Max, 1e-16)

	_, ok := m.Stable()
	assert.False(t, ok, "latest readings are not stable")
}

func TestStable(t *testing.T) {
	m := newMeter(60, 0.001, 3)
	now := time.Now()

	m.processSample(capacitance(now, 0, 470e-12))
	m.processSample(capacitance(now, 1, 470.1e-12))
	_, ok := m.Stable()
	assert.False(t, ok, "two readings are not enough")

	m.processSample(capacitance(now, 2, 469.9e-12))
	seg, ok := m.Stable()
	require.True(t, ok)
	assert.InDelta(t, 470e-12, seg.Mean, 1e-15)
	assert.Equal(t, 3, seg.Count())
}

func TestProcessSamples_Callbacks(t *testing.T) {
	m := newMeter(60, 0.01, 2)

	var mu sync.Mutex
	calls := 0
	var lastSegments []Segment
	m.OnUpdate(func(samples []sample.Sample, derivatives []float64, segments []Segment) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Len(t, derivatives, len(samples)-1)
		lastSegments = segments
	})

	input := make(chan sample.Sample, 10)
	now := time.Now()
	for i := range 3 {
		input <- capacitance(now, i, 1e-9)
	}
	close(input)
	m.ProcessSamples(input)

	mu.Lock()
	assert.Equal(t, 3, calls)
	assert.Len(t, lastSegments, 1)
	mu.Unlock()

	// No callbacks once the input closed
	m.processSample(capacitance(now, 3, 1e-9))
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	m.Reset()
	assert.Empty(t, m.Samples())
	m.processSample(capacitance(now, 4, 1e-9))
	mu.Lock()
	assert.Equal(t, 4, calls)
	mu.Unlock()
}
