package serialport

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Name: "/dev/null", Driver: "usb"})
	assert.ErrorContains(t, err, "unknown serial driver")
}

func TestOpen_MissingDevice(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ttyNECK")
	for _, driver := range []string{DriverBugst, DriverTarm} {
		_, err := Open(Config{Name: missing, Driver: driver})
		assert.Error(t, err, driver)
	}
}

func TestIsDisconnect(t *testing.T) {
	assert.False(t, IsDisconnect(nil))
	assert.False(t, IsDisconnect(errors.New("boom")))
	// zero-value code is PortBusy, which is not a disconnect
	assert.False(t, IsDisconnect(fmt.Errorf("write: %w", &serial.PortError{})))
}
