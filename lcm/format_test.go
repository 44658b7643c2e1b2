package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/meter"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sample"
)

func TestEngineering(t *testing.T) {
	tests := []struct {
		v    float32
		unit string
		want string
	}{
		{100e-12, "F", "100pF"},
		{4.7e-9, "F", "4.7nF"},
		{20e-6, "H", "20µH"},
		{0, "F", "0F"},
		{1e-15, "F", "0.001pF"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, engineering(tt.v, tt.unit))
		})
	}
}

func TestFormatReading(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 30, 15, 250e6, time.UTC)

	tests := []struct {
		name   string
		s      sample.Sample
		stable bool
		want   []string
	}{
		{
			name: "frequency",
			s:    sample.Sample{Timestamp: ts, Kind: report.KindFrequency, Value: 1000, Range: 3, Status: report.StatusOK},
			want: []string{"12:30:15.250", "1kHz", "ok", "range 3"},
		},
		{
			name:   "stable capacitance",
			s:      sample.Sample{Timestamp: ts, Kind: report.KindCapacitance, Value: 100e-12, Range: 2, Status: report.StatusOK, N: 4},
			stable: true,
			want:   []string{"100pF", "avg 4", "stable"},
		},
		{
			name: "rings",
			s:    sample.Sample{Timestamp: ts, Kind: report.KindRings, Value: 12, Range: report.NoRange, Status: report.StatusGood},
			want: []string{"12 rings", "good"},
		},
		{
			name: "status",
			s:    sample.Sample{Timestamp: ts, Kind: report.KindStatus, Range: report.NoRange, Status: report.StatusUncalibrated},
			want: []string{"-", "uncalibrated"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatReading(tt.s, meter.Segment{}, tt.stable)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			if tt.s.Range < 0 {
				assert.NotContains(t, got, "range")
			}
		})
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.Measurement.StableSamples = 3

	records := make(chan report.Record, 10)
	start := time.Unix(1700000000, 0)
	records <- report.Record{Timestamp: start, Kind: report.KindStatus, Range: report.NoRange, Status: report.StatusCalibrating}
	for i := 0; i < 4; i++ {
		records <- report.Record{
			Timestamp: start.Add(time.Duration(i+1) * time.Second),
			Kind:      report.KindFrequency,
			Magnitude: 5_000_000,
			Exponent:  report.FrequencyExponent,
			Range:     1,
			Status:    report.StatusOK,
		}
	}
	close(records)

	var out bytes.Buffer
	run(cfg, records, &out, zerolog.Nop())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, out.String(), "calibrating")
	assert.Equal(t, 4, strings.Count(out.String(), "5kHz"))
	assert.Equal(t, 2, strings.Count(out.String(), "stable"))
}

func TestForwardKeys(t *testing.T) {
	dev := &pressRecorder{}
	forwardKeys(t.Context(), strings.NewReader("s\nx\nL\nd\n"), dev, zerolog.Nop())
	assert.Equal(t, "SLD", dev.sent.String())
}

type pressRecorder struct {
	sent strings.Builder
}

func (p *pressRecorder) Connect() error                { return nil }
func (p *pressRecorder) Close() error                  { return nil }
func (p *pressRecorder) Records() <-chan report.Record { return nil }
func (p *pressRecorder) IsConnected() bool             { return true }

func (p *pressRecorder) Press(k keys.Outcome) error {
	cmd, err := report.FormatCommand(k)
	if err != nil {
		return err
	}
	p.sent.WriteString(strings.TrimSpace(cmd))
	return nil
}
