package sample

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/report"
)

// NewAveragingConverter creates a converter that averages up to windowSize
// consecutive measured records of the same kind. The window restarts when
// the kind changes, when the reading jumps by more than jump (relative, 0
// disables) or when a record without a usable value arrives. Such records
// pass through unchanged.
func NewAveragingConverter(windowSize int, jump float32, bufSize int, log zerolog.Logger) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan report.Record) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			w := window{size: windowSize, jump: jump}
			for r := range in {
				select {
				case out <- w.add(Convert(r)):
				case <-time.After(time.Second):
					log.Warn().Msg("averaging converter output channel full")
				}
			}
		}()

		return out
	}
}

// window is a sliding average over samples of one kind.
type window struct {
	size   int
	jump   float32
	buffer []Sample
}

func (w *window) add(s Sample) Sample {
	if !s.Measured() {
		w.buffer = w.buffer[:0]
		return s
	}
	if len(w.buffer) > 0 {
		last := w.buffer[len(w.buffer)-1]
		if last.Kind != s.Kind || w.jumped(last.Value, s.Value) {
			w.buffer = w.buffer[:0]
		}
	}

	w.buffer = append(w.buffer, s)
	if len(w.buffer) > w.size {
		w.buffer = w.buffer[1:] // Remove oldest
	}
	return average(w.buffer)
}

func (w *window) jumped(a, b float32) bool {
	if w.jump <= 0 {
		return false
	}
	ref := math32.Max(math32.Abs(a), math32.Abs(b))
	return ref > 0 && math32.Abs(a-b)/ref > w.jump
}

// average averages a slice of Samples, keeping the most recent timestamp,
// range and status.
func average(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sum float32
	for _, s := range samples {
		sum += s.Value
	}

	avg := samples[len(samples)-1]
	avg.Value = sum / float32(len(samples))
	avg.N = len(samples)
	return avg
}
