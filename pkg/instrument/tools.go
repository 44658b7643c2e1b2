package instrument

import (
	"fmt"

	"github.com/itohio/golcm/pkg/calib"
	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/ranging"
	"github.com/itohio/golcm/pkg/tool"
)

// Tool names.
const (
	ToolLC        = "lc"
	ToolFrequency = "frequency"
	ToolRing      = "ring"
)

// Outputs are the control lines a tool may drive.
type Outputs interface {
	calib.Switches
	tool.Kicker
}

// NewTool creates the named tool from the configuration.
func NewTool(name string, cfg *config.Config, env tool.Env, out Outputs) (tool.Tool, error) {
	rc := ranging.Config{Start: cfg.Ranging.Start, MaxSteps: cfg.Ranging.MaxSteps}

	switch name {
	case ToolLC:
		return tool.NewLCMeter(env, out, tool.LCMeterConfig{
			Edge:      cfg.Edge(),
			Mode:      cfg.Mode(),
			MinGateMs: cfg.LCMeter.MinGateMs,
			Ranging:   rc,
			Calibration: calib.Config{
				Design:  cfg.Design(),
				Settle:  cfg.Oscillator.Settle,
				Samples: cfg.Oscillator.Samples,
			},
		}), nil
	case ToolFrequency:
		return tool.NewFrequencyCounter(env, tool.FrequencyCounterConfig{
			Edge:    cfg.Edge(),
			Ranging: rc,
		}), nil
	case ToolRing:
		return tool.NewRingTester(env, out, tool.RingTesterConfig{
			Edge:      cfg.Edge(),
			GateMs:    cfg.Ring.GateMs,
			GoodRings: cfg.Ring.GoodRings,
			Interval:  cfg.Ring.Interval,
		}), nil
	}
	return nil, fmt.Errorf("unknown tool %q", name)
}
