package instrument

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/report"
)

const (
	// DefaultBaudRate is the firmware UART baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the records channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Opener opens a serial port.
type Opener func(name string, mode *serial.Mode) (serial.Port, error)

// Serial represents a connection to the instrument firmware.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	open     Opener
	log      zerolog.Logger

	conn      serial.Port
	records   chan report.Record
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		open:     serial.Open,
		log:      zerolog.Nop(),
		records:  make(chan report.Record, bufSize),
	}
}

// WithLogger sets the logger for link errors.
func (d *Serial) WithLogger(l zerolog.Logger) *Serial {
	d.log = l
	return d
}

// WithOpener replaces serial.Open.
func (d *Serial) WithOpener(open Opener) *Serial {
	d.open = open
	return d
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect connects to the serial port and starts reading records.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.done != nil {
		return fmt.Errorf("device closed")
	}

	port, err := d.open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.done = make(chan struct{})
	d.connected = true

	go func() {
		defer close(d.done)
		defer close(d.records)
		readRecords(ctx, port, d.records, d.log)
	}()

	d.log.Info().Str("port", d.port).Int("baud", d.baudRate).Msg("connected")
	return nil
}

// Close closes the connection and stops reading records.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	err := d.conn.Close()
	d.conn = nil
	d.connected = false
	done := d.done
	d.mu.Unlock()

	// Closing the port unblocks the reader, which closes the records channel.
	<-done

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Records returns the channel for reading records.
func (d *Serial) Records() <-chan report.Record {
	return d.records
}

// Press sends a key command to the firmware.
func (d *Serial) Press(k keys.Outcome) error {
	cmd, err := report.FormatCommand(k)
	if err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := d.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("failed to send key command: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readRecords reads lines from r and parses them into records until r ends
// or ctx is cancelled. Lines that are not records are logged and skipped.
func readRecords(ctx context.Context, r io.Reader, out chan<- report.Record, log zerolog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := report.ParseLine(line)
		if err != nil {
			log.Debug().Err(err).Str("line", line).Msg("skipping line")
			continue
		}

		// Send record to channel (non-blocking)
		select {
		case out <- rec:
		case <-ctx.Done():
			return
		default:
			log.Warn().Msg("records channel full, dropping record")
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		log.Error().Err(err).Msg("error reading from serial port")
	}
}
