package mathx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(5, 0, 3))
	assert.Equal(t, 0, Clamp(-2, 0, 3))
	assert.Equal(t, 2, Clamp(2, 3, 0)) // swapped bounds
}

func TestRoundDiv(t *testing.T) {
	assert.Equal(t, uint32(3), RoundDiv(uint32(5), uint32(2)))
	assert.Equal(t, uint32(2), RoundDiv(uint32(7), uint32(3)))
	assert.Equal(t, uint32(0), RoundDiv(uint32(7), uint32(0)))
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want uint64
	}{
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{2.4999, 2},
		{-3, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundHalfUp(tt.in), "RoundHalfUp(%v)", tt.in)
	}
}
