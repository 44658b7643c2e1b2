// Package report defines the line records the instrument sends to a host.
//
// Format: unix_micros,kind,magnitude,exponent,range,status
// Example: 1700000000123456,F,555793000,-3,2,ok
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tells what a record's value measures.
type Kind byte

const (
	KindFrequency   Kind = 'F' // Hz
	KindCapacitance Kind = 'C' // Farad
	KindInductance  Kind = 'L' // Henry
	KindRings       Kind = 'R' // Ring cycles
	KindStatus      Kind = 'S' // No value
)

func (k Kind) String() string {
	switch k {
	case KindFrequency:
		return "frequency"
	case KindCapacitance:
		return "capacitance"
	case KindInductance:
		return "inductance"
	case KindRings:
		return "rings"
	case KindStatus:
		return "status"
	}
	return "unknown"
}

func (k Kind) valid() bool { return k.String() != "unknown" }

// Status qualifies a record.
type Status uint8

const (
	StatusOK Status = iota
	StatusExhausted
	StatusNoSignal
	StatusUncalibrated
	StatusImplausible
	StatusCalibrating
	StatusGood
	StatusBad
)

var statusNames = [...]string{
	StatusOK:           "ok",
	StatusExhausted:    "exhausted",
	StatusNoSignal:     "no-signal",
	StatusUncalibrated: "uncalibrated",
	StatusImplausible:  "implausible",
	StatusCalibrating:  "calibrating",
	StatusGood:         "good",
	StatusBad:          "bad",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// ParseStatus parses a status name.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// FrequencyExponent is the decimal exponent of frequency records (mHz).
const FrequencyExponent = -3

// NoRange marks records not tied to a range table entry.
const NoRange = -1

// Record is one reported reading.
type Record struct {
	Timestamp time.Time
	Kind      Kind
	Magnitude uint64
	Exponent  int8
	Range     int
	Status    Status
}

// Value returns Magnitude x 10^Exponent.
func (r Record) Value() float64 {
	v := float64(r.Magnitude)
	for e := r.Exponent; e < 0; e++ {
		v /= 10
	}
	for e := r.Exponent; e > 0; e-- {
		v *= 10
	}
	return v
}

// ErrFormat is returned for lines that are not records.
var ErrFormat = errors.New("invalid record line")

// AppendLine appends the record's line form, without a newline, to dst.
func AppendLine(dst []byte, r Record) []byte {
	dst = strconv.AppendInt(dst, r.Timestamp.UnixMicro(), 10)
	dst = append(dst, ',', byte(r.Kind), ',')
	dst = strconv.AppendUint(dst, r.Magnitude, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.Exponent), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.Range), 10)
	dst = append(dst, ',')
	dst = append(dst, r.Status.String()...)
	return dst
}

// FormatLine returns the record's line form without a newline.
func FormatLine(r Record) string {
	return string(AppendLine(nil, r))
}

// ParseLine parses a record line.
func ParseLine(line string) (Record, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 6 {
		return Record{}, fmt.Errorf("%w: expected 6 comma-separated values, got %d", ErrFormat, len(parts))
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp: %w", ErrFormat, err)
	}

	if len(parts[1]) != 1 || !Kind(parts[1][0]).valid() {
		return Record{}, fmt.Errorf("%w: kind %q", ErrFormat, parts[1])
	}
	kind := Kind(parts[1][0])

	magnitude, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: magnitude: %w", ErrFormat, err)
	}

	exponent, err := strconv.ParseInt(parts[3], 10, 8)
	if err != nil {
		return Record{}, fmt.Errorf("%w: exponent: %w", ErrFormat, err)
	}

	rng, err := strconv.Atoi(parts[4])
	if err != nil || rng < NoRange {
		return Record{}, fmt.Errorf("%w: range %q", ErrFormat, parts[4])
	}

	status, err := ParseStatus(parts[5])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return Record{
		Timestamp: time.UnixMicro(micros),
		Kind:      kind,
		Magnitude: magnitude,
		Exponent:  int8(exponent),
		Range:     rng,
		Status:    status,
	}, nil
}
