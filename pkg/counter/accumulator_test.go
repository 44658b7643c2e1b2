package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_WrapsPlusResidual(t *testing.T) {
	tests := []struct {
		name     string
		bits     uint8
		wraps    int
		residual uint32
	}{
		{name: "nothing", bits: 8, wraps: 0, residual: 0},
		{name: "residual only", bits: 8, wraps: 0, residual: 255},
		{name: "one wrap", bits: 8, wraps: 1, residual: 0},
		{name: "many wraps", bits: 8, wraps: 16_000, residual: 17},
		{name: "16 bit counter", bits: 16, wraps: 3, residual: 65535},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccumulator(tt.bits)
			for range tt.wraps {
				a.Overflow()
			}
			want := uint32(tt.wraps)*(uint32(1)<<tt.bits) + tt.residual
			assert.Equal(t, want, a.Total(tt.residual))
			assert.Equal(t, uint32(tt.wraps), a.Wraps())
		})
	}
}

func TestAccumulator_Reset(t *testing.T) {
	a := NewAccumulator(8)
	a.Overflow()
	a.Overflow()
	a.Reset()
	assert.Equal(t, uint32(5), a.Total(5))
	assert.Equal(t, uint32(0), a.Wraps())
}

func TestAccumulator_DefaultWidth(t *testing.T) {
	assert.Equal(t, uint32(256), NewAccumulator(0).WrapSize())
	assert.Equal(t, uint32(256), NewAccumulator(40).WrapSize())
}

func TestParseEdge(t *testing.T) {
	assert.Equal(t, Rising, ParseEdge("rising"))
	assert.Equal(t, Falling, ParseEdge("falling"))
	assert.Equal(t, Falling, ParseEdge(""))
	assert.Equal(t, "rising", Rising.String())
}

func TestGateSample_Hz(t *testing.T) {
	assert.Equal(t, 1000.0, GateSample{Pulses: 1000, GateMs: 1000}.Hz())
	assert.Equal(t, 250_000.0, GateSample{Pulses: 25_000, GateMs: 100}.Hz())
	assert.Equal(t, 0.0, GateSample{Pulses: 5}.Hz())
}
