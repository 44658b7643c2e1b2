package sample

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/report"
)

// DefaultBufferSize is the default output channel size of converters.
const DefaultBufferSize = 100

// Sample represents a reading with its physical value.
type Sample struct {
	Timestamp time.Time
	Kind      report.Kind
	Value     float32 // Hz, farad, henry or ring count; 0 for status samples
	Range     int
	Status    report.Status
	N         int // Readings averaged into Value
}

// Unit returns the SI unit symbol of the sample's value.
func (s Sample) Unit() string {
	switch s.Kind {
	case report.KindFrequency:
		return "Hz"
	case report.KindCapacitance:
		return "F"
	case report.KindInductance:
		return "H"
	}
	return ""
}

// Measured reports whether the sample carries a value worth averaging.
func (s Sample) Measured() bool {
	switch s.Kind {
	case report.KindFrequency, report.KindCapacitance, report.KindInductance:
		return s.Status == report.StatusOK
	}
	return false
}

// Converter is a function type that converts a record channel to a Sample channel.
type Converter func(in <-chan report.Record) <-chan Sample

// NewConverter creates a converter function that transforms records to Samples.
func NewConverter(bufSize int, log zerolog.Logger) Converter {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan report.Record) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for r := range in {
				select {
				case out <- Convert(r):
				case <-time.After(time.Second):
					log.Warn().Msg("converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// Convert turns a record into a Sample.
func Convert(r report.Record) Sample {
	return Sample{
		Timestamp: r.Timestamp,
		Kind:      r.Kind,
		Value:     value(r.Magnitude, r.Exponent),
		Range:     r.Range,
		Status:    r.Status,
		N:         1,
	}
}

// value returns magnitude x 10^exponent.
func value(magnitude uint64, exponent int8) float32 {
	if magnitude == 0 {
		return 0
	}
	return float32(magnitude) * math32.Pow10(int(exponent))
}
