package main

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"periph.io/x/conn/v3/physic"

	"github.com/itohio/golcm/pkg/meter"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sample"
)

var prefixes = []string{"p", "n", "µ", "m", "", "k", "M", "G"}

// engineering formats v with an SI prefix and four significant digits.
func engineering(v float32, unit string) string {
	if v == 0 || math32.IsNaN(v) || math32.IsInf(v, 0) {
		return fmt.Sprintf("%g%s", v, unit)
	}
	exp := int(math32.Floor(math32.Log10(math32.Abs(v)) / 3))
	idx := exp + 4
	if idx < 0 {
		idx = 0
	} else if idx >= len(prefixes) {
		idx = len(prefixes) - 1
	}
	scaled := v / math32.Pow10(3*(idx-4))
	return fmt.Sprintf("%.4g%s%s", scaled, prefixes[idx], unit)
}

// formatReading renders one sample for the terminal.
func formatReading(s sample.Sample, seg meter.Segment, stable bool) string {
	var b strings.Builder
	b.WriteString(s.Timestamp.Format("15:04:05.000"))
	b.WriteString("  ")

	switch s.Kind {
	case report.KindFrequency:
		hz := physic.Frequency(math32.Round(s.Value*1000)) * physic.MilliHertz
		b.WriteString(hz.String())
	case report.KindCapacitance, report.KindInductance:
		b.WriteString(engineering(s.Value, s.Unit()))
	case report.KindRings:
		fmt.Fprintf(&b, "%d rings", int(s.Value))
	default:
		b.WriteString("-")
	}

	fmt.Fprintf(&b, "  %s", s.Status)
	if s.Range >= 0 {
		fmt.Fprintf(&b, "  range %d", s.Range)
	}
	if s.N > 1 {
		fmt.Fprintf(&b, "  avg %d", s.N)
	}
	if stable {
		fmt.Fprintf(&b, "  stable %d", seg.Count())
	}
	return b.String()
}
