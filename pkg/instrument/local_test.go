package instrument

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sim"
)

func TestLocal_UnknownTool(t *testing.T) {
	dev := NewLocal("scope", config.Default(), sim.New(nil, sim.Config{}), nil)
	assert.Error(t, dev.Connect())
	assert.False(t, dev.IsConnected())
}

func TestLocal_PollsButton(t *testing.T) {
	hw := sim.New(sim.Tone(2500), sim.Config{})
	start := time.Now()

	var polls atomic.Int32
	button := keys.PollerFunc(func() keys.Outcome {
		polls.Add(1)
		return keys.None
	})

	dev := NewLocal(ToolFrequency, config.Default(), hw, nil).
		WithButton(button).
		WithClock(hw.Sleep, func() time.Time { return start.Add(hw.Now()) })
	require.NoError(t, dev.Connect())
	assert.Error(t, dev.Connect(), "already connected")

	r := waitFor(t, dev, func(r report.Record) bool {
		return r.Kind == report.KindFrequency && r.Status == report.StatusOK
	})
	assert.InDelta(t, 2500, r.Value(), 1)
	assert.False(t, r.Timestamp.Before(start))
	assert.Positive(t, polls.Load())

	require.NoError(t, dev.Close())
	assert.Error(t, dev.Connect(), "closed devices stay closed")
	assert.ErrorIs(t, dev.Press(keys.Long), ErrNotConnected)
}
