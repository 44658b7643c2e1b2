package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"periph.io/x/host/v3"

	"github.com/itohio/golcm/pkg/config"
	"github.com/itohio/golcm/pkg/gpiohw"
	"github.com/itohio/golcm/pkg/instrument"
	"github.com/itohio/golcm/pkg/meter"
	"github.com/itohio/golcm/pkg/report"
	"github.com/itohio/golcm/pkg/sample"
)

// averageJump is the relative change that restarts averaging.
const averageJump = 0.05

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use simulated hardware instead of the serial port")
		gpioFlag           = flag.Bool("gpio", false, "Run the tool on this board's GPIO lines instead of the serial port")
		toolFlag           = flag.String("tool", "", "Tool to run with -mock or -gpio: lc, frequency or ring")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		verboseFlag        = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verboseFlag {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}
	if *toolFlag != "" {
		cfg.Mock.Tool = *toolFlag
	}

	device, err := openDevice(cfg, *mockFlag, *gpioFlag, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open device")
	}
	if err := device.Connect(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go forwardKeys(ctx, os.Stdin, device, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		run(cfg, device.Records(), os.Stdout, log)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case <-done:
		log.Warn().Msg("device stopped sending readings")
	}
	device.Close()
	<-done
}

func openDevice(cfg *config.Config, mock, gpio bool, log zerolog.Logger) (instrument.Device, error) {
	switch {
	case mock:
		log.Info().Str("tool", cfg.Mock.Tool).Msg("using simulated hardware")
		return instrument.NewMock(cfg).WithLogger(log), nil
	case gpio:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
		}
		b, err := gpiohw.Open(cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info().Str("tool", cfg.Mock.Tool).Str("signal", cfg.GPIO.Signal).Msg("using gpio")
		dev := instrument.NewLocal(cfg.Mock.Tool, cfg, b.Timers, b.Outputs).WithLogger(log)
		if b.Button != nil {
			dev.WithButton(b.Button)
		}
		return dev, nil
	}
	log.Info().Str("port", cfg.Serial.Port).Msg("using serial port")
	return instrument.New(cfg.Serial.Port, cfg.Serial.BaudRate, instrument.DefaultBufferSize).WithLogger(log), nil
}

// run pushes records through the sample pipeline and prints each reading.
func run(cfg *config.Config, records <-chan report.Record, w io.Writer, log zerolog.Logger) {
	convert := sample.NewConverter(sample.DefaultBufferSize, log)
	if n := cfg.Measurement.AverageSamples; n > 0 {
		convert = sample.NewAveragingConverter(n, averageJump, sample.DefaultBufferSize, log)
	}
	samples := convert(records)

	var mu sync.Mutex
	show := func(s sample.Sample, seg meter.Segment, stable bool) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, formatReading(s, seg, stable))
	}

	m := meter.New(cfg)
	m.OnUpdate(func(history []sample.Sample, _ []float64, _ []meter.Segment) {
		seg, stable := m.Stable()
		show(history[len(history)-1], seg, stable)
	})

	measured := make(chan sample.Sample, sample.DefaultBufferSize)
	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		m.ProcessSamples(measured)
	}()

	for s := range samples {
		if s.Measured() {
			measured <- s
			continue
		}
		show(s, meter.Segment{}, false)
	}
	close(measured)
	<-meterDone
}

// forwardKeys turns s, l and d lines on r into key presses.
func forwardKeys(ctx context.Context, r io.Reader, dev instrument.Device, log zerolog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() && ctx.Err() == nil {
		k, err := report.ParseCommand(scanner.Text())
		if err != nil {
			log.Warn().Err(err).Msg("use s (short), l (long) or d (double)")
			continue
		}
		if err := dev.Press(k); err != nil {
			log.Warn().Err(err).Stringer("key", k).Msg("failed to send key")
		}
	}
}
