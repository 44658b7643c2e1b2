package ranging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/rangetable"
	"github.com/itohio/golcm/pkg/ranging"
	"github.com/itohio/golcm/pkg/sim"
)

func TestScenario_Stable1kHz(t *testing.T) {
	hw := sim.New(sim.Tone(1000), sim.Config{})
	ctr := counter.New(hw, counter.Config{Sleep: hw.Sleep})
	require.NoError(t, ctr.Open(counter.Falling))
	defer ctr.Close()

	c := ranging.New(ctr, rangetable.MustDefault(), ranging.Config{Start: -1})

	for i := range 3 {
		f, err := c.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ranging.Accepted, f.Confidence)
		assert.InDelta(t, 1000, f.Hz, 1, "read %d", i)
		assert.LessOrEqual(t, f.Steps, 2)
		assert.Equal(t, uint16(1000), f.Sample.GateMs)
	}
	assert.False(t, hw.TimersEnabled())
}

func TestScenario_FollowsChangingSignal(t *testing.T) {
	src := sim.NewVariable(1000)
	hw := sim.New(src, sim.Config{})
	ctr := counter.New(hw, counter.Config{Sleep: hw.Sleep})
	require.NoError(t, ctr.Open(counter.Rising))
	defer ctr.Close()

	c := ranging.New(ctr, rangetable.MustDefault(), ranging.Config{Start: 0})

	for _, hz := range []float64{1000, 3_000_000, 250_000, 42} {
		src.Set(hz)
		f, err := c.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ranging.Accepted, f.Confidence, "%.0f Hz", hz)
		assert.InDelta(t, hz, f.Hz, 1000/float64(f.Sample.GateMs), "%.0f Hz", hz)
	}
}
