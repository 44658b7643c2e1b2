// Package instrument is the host side of the link to an LC meter: a serial
// connection to real firmware or a mock running the same tools on simulated
// hardware.
package instrument

import (
	"errors"

	"github.com/itohio/golcm/pkg/keys"
	"github.com/itohio/golcm/pkg/report"
)

// ErrNotConnected is returned by operations that need a connection.
var ErrNotConnected = errors.New("not connected")

// Device defines the interface for LC meter devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	// Records delivers readings; it is closed once the device is closed.
	Records() <-chan report.Record
	// Press sends a key press to the running tool.
	Press(k keys.Outcome) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
