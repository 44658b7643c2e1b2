// Package lc converts tank frequencies into capacitance and inductance.
//
// The oscillator is an LC tank with a fixed inductor and an intrinsic
// capacitance C_base. A capacitor under test adds to C_base in parallel, an
// inductor under test adds to the fixed inductor in series; both lower the
// frequency. All functions are pure.
package lc

import (
	"math"

	"github.com/itohio/golcm/pkg/mathx"
)

// Mode selects the tank topology.
type Mode uint8

const (
	Capacitance Mode = iota
	Inductance
)

func (m Mode) String() string {
	if m == Inductance {
		return "inductance"
	}
	return "capacitance"
}

// Finest display exponents.
const (
	CapacitanceExponent int8 = -13 // 0.1 pF
	InductanceExponent  int8 = -9  // 1 nH
)

// MaxMagnitude is the largest magnitude shown before moving to a coarser unit.
const MaxMagnitude = 9999

// TenthsPF is a capacitance in tenths of a picofarad.
type TenthsPF uint32

// Farads converts to farads.
func (c TenthsPF) Farads() float64 { return float64(c) * 1e-13 }

// FromFarads rounds a capacitance in farads to tenths of a picofarad.
func FromFarads(f float64) TenthsPF {
	return TenthsPF(mathx.RoundHalfUp(f * 1e13))
}

// Quantity is a value of Magnitude x 10^Exponent in SI base units.
type Quantity struct {
	Magnitude uint32
	Exponent  int8
}

// Float64 returns the quantity in SI base units.
func (q Quantity) Float64() float64 {
	return float64(q.Magnitude) * math.Pow10(int(q.Exponent))
}

// Scale expresses value in the finest unit that keeps the magnitude within
// MaxMagnitude, rounding half up. Non-positive values give 0 in the finest unit.
func Scale(value float64, finest int8) Quantity {
	if !(value > 0) || math.IsInf(value, 1) {
		return Quantity{Exponent: finest}
	}
	for e := int(finest); e < math.MaxInt8; e++ {
		m := mathx.RoundHalfUp(value * math.Pow10(-e))
		if m <= MaxMagnitude {
			return Quantity{Magnitude: uint32(m), Exponent: int8(e)}
		}
	}
	return Quantity{Magnitude: MaxMagnitude, Exponent: math.MaxInt8}
}

// DeriveBaseCapacitance solves the tank's intrinsic capacitance from its
// unloaded frequency and its frequency with cRef switched in parallel:
// C_base = C_ref / ((f_base/f_ref)^2 - 1).
// fBase must exceed fRef; otherwise the result is 0.
func DeriveBaseCapacitance(fBase, fRef float64, cRef TenthsPF) TenthsPF {
	if !(fRef > 0) || !(fBase > fRef) {
		return 0
	}
	r := fBase / fRef
	return TenthsPF(mathx.RoundHalfUp(float64(cRef) / (r*r - 1)))
}

// loaded substitutes the base frequency for readings that are not below it:
// a load can only lower the frequency, so those mean nothing is connected.
func loaded(fBase, fLoaded float64) float64 {
	if !(fLoaded > 0) || fLoaded >= fBase {
		return fBase
	}
	return fLoaded
}

// UnknownCapacitance returns C_x = C_base x ((f_base/f_x)^2 - 1).
func UnknownCapacitance(fBase, fLoaded float64, cBase TenthsPF) Quantity {
	if !(fBase > 0) {
		return Quantity{Exponent: CapacitanceExponent}
	}
	r := fBase / loaded(fBase, fLoaded)
	return Scale(cBase.Farads()*(r*r-1), CapacitanceExponent)
}

// UnknownInductance returns L_x = (1/(C_base (2pi)^2)) x (1/f_x^2 - 1/f_base^2).
func UnknownInductance(fBase, fLoaded float64, cBase TenthsPF) Quantity {
	c := cBase.Farads()
	if !(fBase > 0) || !(c > 0) {
		return Quantity{Exponent: InductanceExponent}
	}
	fx := loaded(fBase, fLoaded)
	k := 1 / (c * 4 * math.Pi * math.Pi)
	return Scale(k*(1/(fx*fx)-1/(fBase*fBase)), InductanceExponent)
}

// ResonantFrequency returns 1/(2pi sqrt(LC)) for l in henry and c in farad.
func ResonantFrequency(l, c float64) float64 {
	if !(l > 0) || !(c > 0) {
		return 0
	}
	return 1 / (2 * math.Pi * math.Sqrt(l*c))
}

// CapacitanceFrequency is the tank frequency with cx farad added in parallel.
func CapacitanceFrequency(fBase float64, cBase TenthsPF, cx float64) float64 {
	c := cBase.Farads()
	if !(c > 0) {
		return 0
	}
	return fBase * math.Sqrt(c/(c+cx))
}

// InductanceFrequency is the tank frequency with lx henry added in series.
func InductanceFrequency(fBase float64, cBase TenthsPF, lx float64) float64 {
	if !(fBase > 0) {
		return 0
	}
	return 1 / math.Sqrt(1/(fBase*fBase)+4*math.Pi*math.Pi*cBase.Farads()*lx)
}
