package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/report"
)

func mockConfig(tool string) *config.Config {
	cfg := config.Default()
	cfg.Mock.Tool = tool
	cfg.Mock.Speed = 0
	return cfg
}

// waitFor reads records until one satisfies match.
func waitFor(t *testing.T, dev Device, match func(report.Record) bool) report.Record {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case r, ok := <-dev.Records():
			require.True(t, ok, "records closed")
			if match(r) {
				return r
			}
		case <-timeout:
			t.Fatal("timed out waiting for record")
		}
	}
}

func kind(k report.Kind) func(report.Record) bool {
	return func(r report.Record) bool { return r.Kind == k }
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil)
	assert.NotNil(t, dev)
	assert.NotNil(t, dev.cfg)
	assert.NotNil(t, dev.Tank(), "default mock runs the LC meter")
	assert.False(t, dev.IsConnected())
	assert.ErrorIs(t, dev.Press(keys.Short), ErrNotConnected)
}

func TestMock_FrequencyCounter(t *testing.T) {
	cfg := mockConfig(ToolFrequency)
	cfg.Mock.Frequency = 4321
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	r := waitFor(t, dev, func(r report.Record) bool {
		return r.Kind == report.KindFrequency && r.Status == report.StatusOK
	})
	assert.Equal(t, int8(report.FrequencyExponent), r.Exponent)
	assert.InDelta(t, 4321, r.Value(), 10)
	assert.False(t, r.Timestamp.Before(dev.start))
}

func TestMock_LCMeter(t *testing.T) {
	cfg := mockConfig(ToolLC)
	cfg.Mock.Capacitance = 220e-12
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	waitFor(t, dev, func(r report.Record) bool { return r.Status == report.StatusCalibrating })
	r := waitFor(t, dev, kind(report.KindCapacitance))
	assert.InEpsilon(t, 220e-12, r.Value(), 0.02)

	// Switch to inductance; the default inductor under test is 10uH.
	require.NoError(t, dev.Press(keys.Short))
	r = waitFor(t, dev, kind(report.KindInductance))
	assert.InEpsilon(t, 10e-6, r.Value(), 0.02)

	// Recalibration takes the parts off the terminals again.
	require.NoError(t, dev.Press(keys.Long))
	waitFor(t, dev, func(r report.Record) bool { return r.Status == report.StatusCalibrating })
	waitFor(t, dev, func(r report.Record) bool { return r.Kind == report.KindStatus && r.Status == report.StatusOK })
	r = waitFor(t, dev, kind(report.KindInductance))
	assert.InEpsilon(t, 10e-6, r.Value(), 0.02)
}

func TestMock_AttachesPartsAfterCalibration(t *testing.T) {
	cfg := mockConfig(ToolLC)
	cfg.Mock.Capacitance = 220e-12
	dev := NewMock(cfg)
	tank := dev.Tank()
	bare := tank.Hz()

	dev.attach(report.StatusOK)
	assert.Less(t, tank.Hz(), bare)

	dev.attach(report.StatusCalibrating)
	assert.Equal(t, bare, tank.Hz())

	dev.attach(report.StatusImplausible)
	assert.Equal(t, bare, tank.Hz(), "parts stay off after a failed calibration")
}

func TestMock_LCMeterImplausible(t *testing.T) {
	cfg := mockConfig(ToolLC)
	cfg.Mock.Scale = 3
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	waitFor(t, dev, func(r report.Record) bool { return r.Status == report.StatusImplausible })
	waitFor(t, dev, func(r report.Record) bool { return r.Status == report.StatusUncalibrated })
}

func TestMock_RingTester(t *testing.T) {
	cfg := mockConfig(ToolRing)
	cfg.Mock.Rings = 4
	cfg.Ring.Interval = 10 * time.Millisecond
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	r := waitFor(t, dev, kind(report.KindRings))
	assert.Equal(t, uint64(4), r.Magnitude)
	assert.Equal(t, report.StatusBad, r.Status)
}

func TestMock_ConnectClose(t *testing.T) {
	dev := NewMock(mockConfig(ToolFrequency))
	require.NoError(t, dev.Connect())
	assert.True(t, dev.IsConnected())
	assert.Error(t, dev.Connect())

	require.NoError(t, dev.Press(keys.Double))
	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())
	for range dev.Records() {
	}
	assert.NoError(t, dev.Close())
	assert.Error(t, dev.Connect())
}
