package head

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultConfigFile = "emotions-bridge.yaml"

// EnvPrefix prefixes environment overrides, e.g. EMOTIONS_BRIDGE_SERIAL_PORT.
const EnvPrefix = "EMOTIONS_BRIDGE"

// Config holds the bridge configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Handshake HandshakeConfig `mapstructure:"handshake"`
	Startup   StartupConfig   `mapstructure:"startup"`
	Params    ParamsConfig    `mapstructure:"params"`
	Events    EventsConfig    `mapstructure:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SerialConfig selects the serial device the face board is attached to
type SerialConfig struct {
	Port   string `mapstructure:"port"`
	Baud   int    `mapstructure:"baud"`
	Driver string `mapstructure:"driver"` // bugst or tarm
}

// HandshakeConfig bounds a single write/ack exchange
type HandshakeConfig struct {
	AckTimeout   time.Duration `mapstructure:"ack_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxBuffer    int           `mapstructure:"max_buffer"`
}

// StartupConfig controls what is sent when the bridge starts
type StartupConfig struct {
	DefaultEmotion string `mapstructure:"default_emotion"`
	// ReconfigureDelay re-sends the pin configuration once after this delay.
	// Zero disables it.
	ReconfigureDelay time.Duration `mapstructure:"reconfigure_delay"`
}

// ParamsConfig points at the motor parameter file
type ParamsConfig struct {
	File string `mapstructure:"file"`
	Node string `mapstructure:"node"`
}

// EventsConfig selects where emotion notifications come from
type EventsConfig struct {
	Source       string        `mapstructure:"source"` // stdin, redis, websocket, cycle
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisChannel string        `mapstructure:"redis_channel"`
	CyclePeriod  time.Duration `mapstructure:"cycle_period"`
}

// MetricsConfig configures the HTTP listener for /metrics and /emotion
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:   "/dev/ttyNECK",
			Baud:   9600,
			Driver: "bugst",
		},
		Handshake: HandshakeConfig{
			AckTimeout:   2 * time.Second,
			MaxRetries:   3,
			PollInterval: 20 * time.Millisecond,
			MaxBuffer:    1024,
		},
		Startup: StartupConfig{
			DefaultEmotion:   DefaultEmotion,
			ReconfigureDelay: 2 * time.Second,
		},
		Params: ParamsConfig{
			File: "motors.yaml",
			Node: DefaultNode,
		},
		Events: EventsConfig{
			Source:       "stdin",
			RedisAddr:    "localhost:6379",
			RedisChannel: "fbot_face/emotion",
			CyclePeriod:  5 * time.Second,
		},
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. A missing file is
// not an error: defaults and environment overrides apply.
func LoadConfigFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the bridge cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Handshake.MaxRetries < 1:
		return fmt.Errorf("handshake.max_retries must be at least 1")
	case c.Handshake.AckTimeout <= 0:
		return fmt.Errorf("handshake.ack_timeout must be positive")
	case c.Handshake.MaxBuffer < 16:
		return fmt.Errorf("handshake.max_buffer too small")
	case c.Serial.Driver != "bugst" && c.Serial.Driver != "tarm":
		return fmt.Errorf("serial.driver must be bugst or tarm, got %q", c.Serial.Driver)
	}
	return nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, val := range c.settings() {
		v.Set(key, val)
	}
	return v.WriteConfigAs(path)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range DefaultConfig().settings() {
		v.SetDefault(key, val)
	}
	return v
}

// settings flattens the config into dotted viper keys. Durations are written
// as strings so the saved file stays readable.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"serial.port":               c.Serial.Port,
		"serial.baud":               c.Serial.Baud,
		"serial.driver":             c.Serial.Driver,
		"handshake.ack_timeout":     c.Handshake.AckTimeout.String(),
		"handshake.max_retries":     c.Handshake.MaxRetries,
		"handshake.poll_interval":   c.Handshake.PollInterval.String(),
		"handshake.max_buffer":      c.Handshake.MaxBuffer,
		"startup.default_emotion":   c.Startup.DefaultEmotion,
		"startup.reconfigure_delay": c.Startup.ReconfigureDelay.String(),
		"params.file":               c.Params.File,
		"params.node":               c.Params.Node,
		"events.source":             c.Events.Source,
		"events.redis_addr":         c.Events.RedisAddr,
		"events.redis_channel":      c.Events.RedisChannel,
		"events.cycle_period":       c.Events.CyclePeriod.String(),
		"metrics.listen":            c.Metrics.Listen,
	}
}
