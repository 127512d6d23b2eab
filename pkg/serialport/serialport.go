// Package serialport opens the serial link to the face board.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Driver names accepted by Open.
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// Port is a duplex byte stream with a bounded read.
//
// Read returns (0, nil) when the read timeout passes without data.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds the next Read calls.
	SetReadTimeout(t time.Duration) error

	// ResetInputBuffer discards bytes received but not yet read.
	ResetInputBuffer() error
}

// Config holds serial port configuration
type Config struct {
	Name   string // device path, e.g. /dev/ttyNECK
	Baud   int
	Driver string
}

// Open opens the port with 8N1 framing.
func Open(cfg Config) (Port, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	switch cfg.Driver {
	case "", DriverBugst:
		port, err := serial.Open(cfg.Name, &serial.Mode{
			BaudRate: cfg.Baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
		}
		return port, nil
	case DriverTarm:
		return openTarm(cfg)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}

// List returns the serial ports present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var out []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// IsDisconnect reports whether err means the device went away.
func IsDisconnect(err error) bool {
	var code serial.PortErrorCode
	var portErr serial.PortError
	var portErrPtr *serial.PortError
	switch {
	case errors.As(err, &portErrPtr):
		code = portErrPtr.Code()
	case errors.As(err, &portErr):
		code = portErr.Code()
	default:
		return false
	}
	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	}
	return false
}
