package rangetable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)
	assert.Len(t, tbl, 4)
	for i, e := range tbl {
		assert.Equal(t, i, e.Index)
	}
	require.NoError(t, tbl.ValidateTimer(8_000_000, 16))
}

func TestDefault_AdjacentWindowsOverlap(t *testing.T) {
	tbl := MustDefault()
	for i := 1; i < len(tbl); i++ {
		prev, cur := tbl[i-1], tbl[i]
		assert.LessOrEqual(t, cur.MinHz(), prev.MaxHz(), "entries %d and %d must overlap", i-1, i)
		assert.Greater(t, cur.MaxHz(), prev.MaxHz(), "ceiling must increase at %d", i)
	}
}

func TestDefault_EveryFrequencyAcceptedSomewhere(t *testing.T) {
	tbl := MustDefault()
	for _, hz := range []float64{0, 0.5, 1, 999, 1000, 10_000, 99_999, 100_000, 100_001, 1e6, 4.2e6, 1e7, 5e7} {
		accepted := false
		for _, e := range tbl {
			pulses := uint32(hz * float64(e.GateMs) / 1000)
			if e.Accepts(pulses) {
				accepted = true
				break
			}
		}
		assert.True(t, accepted, "%.1f Hz not accepted by any range", hz)
	}
}

func TestEntry_Classify(t *testing.T) {
	e := Entry{GateMs: 100, Divider: 64, MinPulses: 1000, MaxPulses: 100_000}
	assert.Equal(t, Below, e.Classify(999))
	assert.Equal(t, Within, e.Classify(1000))
	assert.Equal(t, Within, e.Classify(100_000))
	assert.Equal(t, Above, e.Classify(100_001))
}

func TestEntry_Predict(t *testing.T) {
	tbl := MustDefault()
	assert.Equal(t, uint32(1000), tbl[3].Predict(1, tbl[0]))
	assert.Equal(t, uint32(55), tbl[1].Predict(5500, tbl[3]))
	assert.Equal(t, uint32(math.MaxUint32), tbl[3].Predict(math.MaxUint32, tbl[0]))
}

func TestEntry_CompareTicks(t *testing.T) {
	tbl := MustDefault()
	want := []uint64{31250, 12500, 10000, 8000}
	for i, e := range tbl {
		assert.Equal(t, want[i], e.CompareTicks(8_000_000))
	}

	assert.Equal(t, uint64(26667), Entry{GateMs: 10, Divider: 3}.CompareTicks(8_000_000))
	assert.Equal(t, uint64(1001), Entry{GateMs: 1, Divider: 1}.CompareTicks(1_000_500))
	assert.Zero(t, Entry{GateMs: 10}.CompareTicks(8_000_000), "no divider")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{name: "empty"},
		{
			name: "zero gate",
			entries: []Entry{
				{GateMs: 0, Divider: 1, MaxPulses: math.MaxUint32},
			},
		},
		{
			name: "not ordered",
			entries: []Entry{
				{GateMs: 10, Divider: 8, MaxPulses: 100_000},
				{GateMs: 100, Divider: 64, MinPulses: 1000, MaxPulses: math.MaxUint32},
			},
		},
		{
			name: "gap between windows",
			entries: []Entry{
				{GateMs: 1000, Divider: 256, MaxPulses: 1_000},
				{GateMs: 1, Divider: 1, MinPulses: 1_000, MaxPulses: math.MaxUint32},
			},
		},
		{
			name: "longest rejects zero",
			entries: []Entry{
				{GateMs: 1000, Divider: 256, MinPulses: 1, MaxPulses: 100_000},
				{GateMs: 1, Divider: 1, MinPulses: 1, MaxPulses: math.MaxUint32},
			},
		},
		{
			name: "shortest bounded",
			entries: []Entry{
				{GateMs: 1000, Divider: 256, MaxPulses: 100_000},
				{GateMs: 1, Divider: 1, MinPulses: 10, MaxPulses: 100_000},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries...)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateTimer_Overflow(t *testing.T) {
	tbl := MustDefault()
	// 1 s gate at divider 256 needs 62500 ticks at 16 MHz, still fits; 32 MHz does not.
	assert.NoError(t, tbl.ValidateTimer(16_000_000, 16))
	assert.ErrorIs(t, tbl.ValidateTimer(32_000_000, 16), ErrInvalid)
}

func TestTable_LimitAndFind(t *testing.T) {
	tbl := MustDefault()
	assert.Equal(t, 3, tbl.Limit(1))
	assert.Equal(t, 2, tbl.Limit(10))
	assert.Equal(t, 1, tbl.Limit(50))
	assert.Equal(t, 0, tbl.Limit(5000))

	e, ok := tbl.Find(10)
	assert.True(t, ok)
	assert.Equal(t, 2, e.Index)
	_, ok = tbl.Find(20)
	assert.False(t, ok)
}
