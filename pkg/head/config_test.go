package head

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")

	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Serial.Driver = "tarm"
	cfg.Handshake.AckTimeout = 1500 * time.Millisecond
	cfg.Handshake.MaxRetries = 5
	cfg.Startup.ReconfigureDelay = 0
	cfg.Events.Source = "redis"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigFrom_EnvOverride(t *testing.T) {
	t.Setenv("EMOTIONS_BRIDGE_SERIAL_PORT", "/dev/ttyACM0")
	t.Setenv("EMOTIONS_BRIDGE_HANDSHAKE_MAX_RETRIES", "7")

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 7, cfg.Handshake.MaxRetries)
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("handshake:\n  max_retries: 0\n"), 0644))

	_, err := LoadConfigFrom(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("serial:\n  driver: usb\n"), 0644))
	_, err = LoadConfigFrom(path)
	assert.Error(t, err)
}
