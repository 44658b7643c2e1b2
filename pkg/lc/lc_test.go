package lc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	tankL = 82e-6
	tankC = 1e-9
	refC  = 1e-9
)

func TestDeriveBaseCapacitance(t *testing.T) {
	fBase := ResonantFrequency(tankL, tankC)
	fRef := ResonantFrequency(tankL, tankC+refC)

	got := DeriveBaseCapacitance(fBase, fRef, FromFarads(refC))
	assert.InDelta(t, 10000, float64(got), 1, "expected 1000.0 pF")
}

func TestDeriveBaseCapacitance_Precondition(t *testing.T) {
	assert.Equal(t, TenthsPF(0), DeriveBaseCapacitance(500e3, 500e3, 10000))
	assert.Equal(t, TenthsPF(0), DeriveBaseCapacitance(400e3, 500e3, 10000))
	assert.Equal(t, TenthsPF(0), DeriveBaseCapacitance(400e3, 0, 10000))
}

func TestUnknownCapacitance_RoundTrip(t *testing.T) {
	cBase := TenthsPF(10000)
	fBase := 555_000.0

	tests := []struct {
		name  string
		cTrue float64
	}{
		{name: "1 pF", cTrue: 1e-12},
		{name: "10 pF", cTrue: 10e-12},
		{name: "47 pF", cTrue: 47e-12},
		{name: "220 pF", cTrue: 220e-12},
		{name: "1 nF", cTrue: 1e-9},
		{name: "10 nF", cTrue: 10e-9},
		{name: "100 nF", cTrue: 100e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := CapacitanceFrequency(fBase, cBase, tt.cTrue)
			q := UnknownCapacitance(fBase, fx, cBase)
			unit := math.Pow10(int(q.Exponent))
			assert.InDelta(t, tt.cTrue, q.Float64(), unit, "got %d x 10^%d", q.Magnitude, q.Exponent)
			assert.LessOrEqual(t, q.Magnitude, uint32(MaxMagnitude))
		})
	}
}

func TestUnknownInductance_RoundTrip(t *testing.T) {
	cBase := TenthsPF(10000)
	fBase := ResonantFrequency(tankL, cBase.Farads())

	for _, lTrue := range []float64{1e-6, 4.7e-6, 82e-6, 1e-3, 10e-3} {
		fx := InductanceFrequency(fBase, cBase, lTrue)
		q := UnknownInductance(fBase, fx, cBase)
		unit := math.Pow10(int(q.Exponent))
		assert.InDelta(t, lTrue, q.Float64(), unit, "L=%g got %d x 10^%d", lTrue, q.Magnitude, q.Exponent)
	}
}

func TestNoLoadSubstitution(t *testing.T) {
	tests := []struct {
		name    string
		fLoaded float64
	}{
		{name: "equal", fLoaded: 555_000},
		{name: "above base", fLoaded: 556_000},
		{name: "no oscillation", fLoaded: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Quantity{Magnitude: 0, Exponent: InductanceExponent},
				UnknownInductance(555_000, tt.fLoaded, 10000))
			assert.Equal(t, Quantity{Magnitude: 0, Exponent: CapacitanceExponent},
				UnknownCapacitance(555_000, tt.fLoaded, 10000))
		})
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		finest int8
		want   Quantity
	}{
		{name: "zero", value: 0, finest: -13, want: Quantity{0, -13}},
		{name: "negative", value: -1e-12, finest: -13, want: Quantity{0, -13}},
		{name: "tenths of pF", value: 4.7e-12, finest: -13, want: Quantity{47, -13}},
		{name: "four digits", value: 999.9e-12, finest: -13, want: Quantity{9999, -13}},
		{name: "rescaled", value: 1234.6e-12, finest: -13, want: Quantity{1235, -12}},
		{name: "half up", value: 2.5, finest: 0, want: Quantity{3, 0}},
		{name: "millihenry", value: 10e-3, finest: -9, want: Quantity{1000, -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scale(tt.value, tt.finest))
		})
	}
}

func TestScale_Stable(t *testing.T) {
	// Repeated conversion of the same frequencies yields identical readings.
	first := UnknownCapacitance(555_000, 550_000, 10000)
	for range 100 {
		assert.Equal(t, first, UnknownCapacitance(555_000, 550_000, 10000))
	}
}

func TestQuantity_Float64(t *testing.T) {
	assert.InDelta(t, 4.7e-12, Quantity{47, -13}.Float64(), 1e-20)
	assert.Equal(t, 0.0, Quantity{0, -9}.Float64())
}
