package report

import (
	"io"
	"sync"
	"time"

	"github.com/itohio/golcm/pkg/lc"
	"github.com/itohio/golcm/pkg/mathx"
	"github.com/itohio/golcm/pkg/ranging"
)

// Writer sends readings as record lines. It is the instrument's display
// when a host is attached. The first write error is kept and returned by Err.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
	buf []byte
	err error
}

// NewWriter creates a writer; now defaults to time.Now.
func NewWriter(w io.Writer, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{w: w, now: now, buf: make([]byte, 0, 64)}
}

// Write sends one record line.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.buf = append(AppendLine(w.buf[:0], r), '\n')
	_, w.err = w.w.Write(w.buf)
	return w.err
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Frequency reports a frequency in mHz.
func (w *Writer) Frequency(f ranging.Frequency) {
	w.Write(Record{
		Timestamp: w.now(),
		Kind:      KindFrequency,
		Magnitude: mathx.RoundHalfUp(f.Hz * 1000),
		Exponent:  FrequencyExponent,
		Range:     f.Sample.Range,
		Status:    ConfidenceStatus(f.Confidence),
	})
}

// Quantity reports a capacitance or inductance measured at f.
func (w *Writer) Quantity(m lc.Mode, q lc.Quantity, f ranging.Frequency) {
	kind := KindCapacitance
	if m == lc.Inductance {
		kind = KindInductance
	}
	w.Write(Record{
		Timestamp: w.now(),
		Kind:      kind,
		Magnitude: uint64(q.Magnitude),
		Exponent:  q.Exponent,
		Range:     f.Sample.Range,
		Status:    ConfidenceStatus(f.Confidence),
	})
}

// Rings reports a ring test result.
func (w *Writer) Rings(n uint32, good bool) {
	status := StatusBad
	if good {
		status = StatusGood
	}
	w.Write(Record{
		Timestamp: w.now(),
		Kind:      KindRings,
		Magnitude: uint64(n),
		Range:     NoRange,
		Status:    status,
	})
}

// Status reports a status without a value.
func (w *Writer) Status(s Status) {
	w.Write(Record{
		Timestamp: w.now(),
		Kind:      KindStatus,
		Range:     NoRange,
		Status:    s,
	})
}

// ConfidenceStatus maps a frequency confidence to a record status.
func ConfidenceStatus(c ranging.Confidence) Status {
	switch c {
	case ranging.Exhausted:
		return StatusExhausted
	case ranging.NoSignal:
		return StatusNoSignal
	}
	return StatusOK
}
