// Package handshake runs write-then-acknowledge exchanges with the face board.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fbot/emotions-bridge/pkg/metrics"
	"github.com/fbot/emotions-bridge/pkg/protocol"
	"github.com/fbot/emotions-bridge/pkg/serialport"
)

const (
	DefaultMaxRetries = 3
	DefaultAckTimeout = 2 * time.Second
)

// State is a step of a handshake.
type State int

const (
	Idle State = iota
	Sending
	AwaitingAck
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingAck:
		return "awaiting_ack"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of one handshake.
type Result struct {
	ID       uuid.UUID
	Kind     string
	State    State
	Attempts int
	Ack      string // last response received, if any
	Err      error
	Duration time.Duration
}

// OK reports whether the handshake succeeded.
func (r Result) OK() bool {
	return r.State == Success
}

// Options configures a Controller.
type Options struct {
	// MaxRetries is the number of writes before giving up.
	MaxRetries int
	AckTimeout time.Duration
	Decoder    protocol.Decoder
	Logger     *zerolog.Logger
}

// Controller owns the serial port and serializes handshakes on it.
type Controller struct {
	mu         sync.Mutex
	port       serialport.Port
	maxRetries int
	ackTimeout time.Duration
	decoder    protocol.Decoder
	log        zerolog.Logger
}

// New creates a controller for port.
func New(port serialport.Port, opts Options) *Controller {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Controller{
		port:       port,
		maxRetries: opts.MaxRetries,
		ackTimeout: opts.AckTimeout,
		decoder:    opts.Decoder,
		log:        log.With().Str("component", "handshake").Logger(),
	}
}

// MaxRetries returns the write budget of a handshake.
func (c *Controller) MaxRetries() int {
	return c.maxRetries
}

// Perform writes frame and waits for an acknowledgement equal to expected,
// resending the same frame until it arrives or the write budget is spent.
func (c *Controller) Perform(ctx context.Context, kind string, frame []byte, expected string) (res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res = Result{ID: uuid.New(), Kind: kind, State: Idle}
	log := c.log.With().Str("handshake", res.ID.String()).Str("kind", kind).Logger()
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.Handshakes.WithLabelValues(kind, res.State.String()).Inc()
		metrics.HandshakeDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
	}()

	for {
		if err := ctx.Err(); err != nil {
			res.State, res.Err = Failed, err
			log.Warn().Err(err).Int("attempts", res.Attempts).Msg("Handshake cancelled")
			return res
		}

		res.State = Sending
		res.Attempts++
		metrics.HandshakeAttempts.WithLabelValues(kind).Inc()
		log.Debug().Int("attempt", res.Attempts).Bytes("frame", frame).Msg("Sending frame")

		cause := c.attempt(ctx, frame, expected, &res)
		if cause == nil {
			res.State = Success
			log.Info().Int("attempts", res.Attempts).Str("ack", res.Ack).Msg("Handshake succeeded")
			return res
		}
		if ctx.Err() != nil {
			res.State, res.Err = Failed, ctx.Err()
			log.Warn().Err(ctx.Err()).Int("attempts", res.Attempts).Msg("Handshake cancelled")
			return res
		}
		metrics.AckFailures.WithLabelValues(reason(cause)).Inc()

		if res.Attempts >= c.maxRetries {
			res.State = Failed
			res.Err = fmt.Errorf("%w after %d attempts: %w", protocol.ErrRetriesExhausted, res.Attempts, cause)
			log.Error().Err(cause).Int("attempts", res.Attempts).Msg("Handshake failed")
			return res
		}
		log.Warn().Err(cause).Int("attempt", res.Attempts).Int("max", c.maxRetries).Msg("Retrying handshake")
	}
}

// attempt performs one write and ack read. It returns nil when the expected
// acknowledgement arrived.
func (c *Controller) attempt(ctx context.Context, frame []byte, expected string, res *Result) error {
	if err := c.port.ResetInputBuffer(); err != nil {
		c.log.Debug().Err(err).Msg("Could not clear input buffer")
	}

	n, err := c.port.Write(frame)
	if err != nil {
		if serialport.IsDisconnect(err) {
			c.log.Error().Err(err).Msg("Serial device disconnected")
		}
		return fmt.Errorf("%w: write: %v", protocol.ErrTransportUnavailable, err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: short write %d/%d", protocol.ErrTransportUnavailable, n, len(frame))
	}

	res.State = AwaitingAck
	ack, err := c.decoder.AwaitAck(ctx, c.port, c.ackTimeout)
	if err != nil {
		return err
	}
	res.Ack = ack.Response
	if !protocol.Matches(ack, expected) {
		return fmt.Errorf("%w: got %q, want %q", protocol.ErrAckMismatch, ack.Response, expected)
	}
	return nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTimeout):
		return "timeout"
	case errors.Is(err, protocol.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, protocol.ErrAckMismatch):
		return "mismatch"
	case errors.Is(err, protocol.ErrTransportUnavailable):
		return "transport"
	default:
		return "other"
	}
}
