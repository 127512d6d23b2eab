package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/fbot/emotions-bridge/pkg/events"
	"github.com/fbot/emotions-bridge/pkg/head"
	"github.com/fbot/emotions-bridge/pkg/metrics"
)

type RunCommand struct {
	TUI      bool   `long:"tui" description:"Show a live monitor instead of log output"`
	Simulate bool   `long:"simulate" description:"Talk to a simulated face board"`
	Listen   string `long:"listen" description:"Serve /metrics and /emotion on this address (overrides metrics.listen)"`
	Source   string `long:"source" choice:"stdin" choice:"redis" choice:"websocket" choice:"cycle" description:"Where emotion notifications come from (overrides events.source)"`
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal("%v", err)
	}
	if c.Listen != "" {
		cfg.Metrics.Listen = c.Listen
	}
	if c.Source != "" {
		cfg.Events.Source = c.Source
	}
	if c.TUI && cfg.Events.Source == "stdin" {
		fatal("The monitor needs the terminal; pick another event source with --source")
	}
	if cfg.Events.Source == "websocket" && cfg.Metrics.Listen == "" {
		fatal("The websocket source needs --listen")
	}

	var sink *logSink
	var out io.Writer = os.Stderr
	if c.TUI {
		sink = newLogSink(64)
		out = sink
	}
	log := newLogger(out)

	reg, err := loadRegistry(cfg)
	if err != nil {
		fatal("%v", err)
	}

	port, err := openPort(cfg, c.Simulate, log)
	if err != nil {
		fatal("Could not open serial port %s: %v", cfg.Serial.Port, err)
	}
	defer port.Close()

	b := newBridge(cfg, reg, port, &log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ws *events.WebSocket
	if cfg.Events.Source == "websocket" {
		ws = events.NewWebSocket(log)
	}
	if cfg.Metrics.Listen != "" {
		serveHTTP(ctx, cfg.Metrics.Listen, ws, log)
	}

	src, closeSource, err := newSource(ctx, cfg, ws, log)
	if err != nil {
		fatal("%v", err)
	}
	defer closeSource()

	go func() {
		err := src.Run(ctx, b.Notify)
		switch {
		case err == nil:
			log.Info().Msg("Event source finished")
		case !errors.Is(err, context.Canceled):
			log.Error().Err(err).Str("source", cfg.Events.Source).Msg("Event source stopped")
		}
	}()

	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	if c.TUI {
		label := cfg.Serial.Port
		if c.Simulate {
			label = "simulated board"
		}
		p := tea.NewProgram(newMonitor(b, sink, label), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			stop()
			return fmt.Errorf("monitor: %w", err)
		}
		stop()
	}

	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newSource(ctx context.Context, cfg *head.Config, ws *events.WebSocket, log zerolog.Logger) (events.Source, func(), error) {
	noop := func() {}
	switch cfg.Events.Source {
	case "stdin":
		return events.NewLines(os.Stdin), noop, nil
	case "cycle":
		return events.NewCycle(cfg.Events.CyclePeriod), noop, nil
	case "websocket":
		return ws, noop, nil
	case "redis":
		client, err := events.NewRedisClient(ctx, cfg.Events.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		src := events.NewRedisSource(client, cfg.Events.RedisChannel, log)
		return src, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown event source %q", cfg.Events.Source)
	}
}

// serveHTTP exposes metrics and, when ws is set, the websocket event source.
func serveHTTP(ctx context.Context, addr string, ws *events.WebSocket, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if ws != nil {
		mux.Handle("/emotion", ws)
	}
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
	}()
}
