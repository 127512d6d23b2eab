package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// tarmReadTimeout is fixed when the port is opened; tarm cannot change it
// later. It is applied in deciseconds, so this is the shortest poll.
const tarmReadTimeout = 100 * time.Millisecond

// tarmPort adapts github.com/tarm/serial to Port.
type tarmPort struct {
	port *serial.Port
}

func openTarm(cfg Config) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: tarmReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	return &tarmPort{port: port}, nil
}

func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	// A read that times out without data surfaces as EOF.
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *tarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *tarmPort) Close() error {
	return p.port.Close()
}

// SetReadTimeout is a no-op: reads already return after tarmReadTimeout, and
// callers poll until their own deadline.
func (p *tarmPort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *tarmPort) ResetInputBuffer() error {
	return p.port.Flush()
}
