package instrument

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/counter"
	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/tool"
)

// Local runs one of the instrument's tools in-process on hw. Readings travel
// through the same record lines real firmware sends.
type Local struct {
	name   string
	cfg    *config.Config
	log    zerolog.Logger
	hw     counter.Hardware
	out    Outputs
	button keys.Poller
	sleep  func(time.Duration)
	now    func() time.Time
	status func(report.Status)

	records   chan report.Record
	keys      *keys.Queue
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool
	closed    bool
}

// NewLocal creates a device running the named tool on hw.
func NewLocal(name string, cfg *config.Config, hw counter.Hardware, out Outputs) *Local {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Local{
		name:    name,
		cfg:     cfg,
		log:     zerolog.Nop(),
		hw:      hw,
		out:     out,
		sleep:   time.Sleep,
		now:     time.Now,
		records: make(chan report.Record, DefaultBufferSize),
		keys:    keys.NewQueue(8),
	}
}

// WithLogger sets the logger passed to the tools.
func (d *Local) WithLogger(l zerolog.Logger) *Local {
	d.log = l
	return d
}

// WithButton adds a physical button next to keys sent with Press.
func (d *Local) WithButton(b keys.Poller) *Local {
	d.button = b
	return d
}

// WithClock replaces the wall clock the tools sleep on and timestamp with.
func (d *Local) WithClock(sleep func(time.Duration), now func() time.Time) *Local {
	d.sleep = sleep
	d.now = now
	return d
}

// Connect starts the tool.
func (d *Local) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.closed {
		return fmt.Errorf("device closed")
	}

	input := keys.Any(d.keys, d.button)
	pr, pw := io.Pipe()
	var display tool.Display = report.NewWriter(pw, d.now)
	if d.status != nil {
		display = statusHook{Display: display, fn: d.status}
	}
	env := tool.Env{
		Counter: counter.New(d.hw, counter.Config{
			PollInterval: d.cfg.Timer.PollInterval,
			Sleep:        d.sleep,
			Input:        input,
			Logger:       d.log,
		}),
		Table:   d.cfg.Table(),
		Display: display,
		Input:   input,
		Logger:  d.log,
	}
	t, err := NewTool(d.name, d.cfg, env, d.out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.connected = true

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		defer pw.Close()
		d.run(ctx, t)
	}()
	go func() {
		defer d.wg.Done()
		defer close(d.records)
		defer pr.Close()
		readRecords(ctx, pr, d.records, d.log)
	}()

	return nil
}

// Close stops the tool and releases the hardware.
func (d *Local) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	d.connected = false
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

// Records returns the channel for reading records.
func (d *Local) Records() <-chan report.Record {
	return d.records
}

// Press queues a key for the running tool.
func (d *Local) Press(k keys.Outcome) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}
	if k == keys.None {
		return fmt.Errorf("no key")
	}
	if !d.keys.Push(k) {
		return fmt.Errorf("key queue full")
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Local) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// run re-enters the tool whenever the user leaves it, as the firmware menu does.
func (d *Local) run(ctx context.Context, t tool.Tool) {
	for ctx.Err() == nil {
		if err := t.Run(ctx); err != nil && ctx.Err() == nil {
			d.log.Warn().Err(err).Str("tool", t.Name()).Msg("tool failed")
			d.sleep(time.Second)
		}
	}
}

// statusHook calls fn with every status before it is shown.
type statusHook struct {
	tool.Display
	fn func(report.Status)
}

func (h statusHook) Status(s report.Status) {
	h.fn(s)
	h.Display.Status(s)
}
