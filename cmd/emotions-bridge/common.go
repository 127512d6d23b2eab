package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/fbot/emotions-bridge/pkg/bridge"
	"github.com/fbot/emotions-bridge/pkg/handshake"
	"github.com/fbot/emotions-bridge/pkg/head"
	"github.com/fbot/emotions-bridge/pkg/protocol"
	"github.com/fbot/emotions-bridge/pkg/serialport"
	"github.com/fbot/emotions-bridge/pkg/sim"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func loadConfig() (*head.Config, error) {
	if opts.Config == head.DefaultConfigFile {
		if !head.ConfigExists() {
			fmt.Fprintln(os.Stderr, dimStyle.Render("No "+head.DefaultConfigFile+", using defaults. Run 'emotions-bridge setup' to create one."))
		}
		return head.LoadConfig()
	}
	cfg, err := head.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.Config, err)
	}
	return cfg, nil
}

func loadRegistry(cfg *head.Config) (*head.Registry, error) {
	return head.LoadParams(cfg.Params.File, cfg.Params.Node)
}

// openPort opens the configured serial port, or a simulated board.
func openPort(cfg *head.Config, simulate bool, log zerolog.Logger) (serialport.Port, error) {
	if simulate {
		log.Info().Msg("Using simulated face board")
		return sim.New(sim.WithLogger(log), sim.WithDelay(5*time.Millisecond)), nil
	}
	port, err := serialport.Open(serialport.Config{
		Name:   cfg.Serial.Port,
		Baud:   cfg.Serial.Baud,
		Driver: cfg.Serial.Driver,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("port", cfg.Serial.Port).Int("baud", cfg.Serial.Baud).Msg("Serial port open")
	return port, nil
}

func newBridge(cfg *head.Config, reg *head.Registry, port serialport.Port, log *zerolog.Logger) *bridge.Bridge {
	hs := handshake.New(port, handshake.Options{
		MaxRetries: cfg.Handshake.MaxRetries,
		AckTimeout: cfg.Handshake.AckTimeout,
		Decoder: protocol.Decoder{
			PollInterval: cfg.Handshake.PollInterval,
			MaxBuffer:    cfg.Handshake.MaxBuffer,
		},
		Logger: log,
	})
	return bridge.New(reg, hs, bridge.Options{
		DefaultEmotion:   cfg.Startup.DefaultEmotion,
		ReconfigureDelay: cfg.Startup.ReconfigureDelay,
		Logger:           log,
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
