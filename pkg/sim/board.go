// Package sim simulates the face board firmware on the far end of the serial
// link. It answers frames the way the board does and can be scripted to drop,
// reject or garble acknowledgements.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fbot/emotions-bridge/pkg/protocol"
)

// Responses other than success sent by the board.
const (
	ResponseFail         = "fail"
	ResponseUnconfigured = "unconfigured"
	ResponseBadFrame     = "bad_frame"
)

var errClosed = errors.New("sim: port closed")

// Board is an in-memory face board. It implements serialport.Port.
type Board struct {
	mu          sync.Mutex
	notify      chan struct{}
	pending     []byte
	readTimeout time.Duration
	closed      bool

	frames    [][]byte
	pins      map[string]int
	positions map[string]int

	failNext    int
	silenceNext int
	noise       string
	delay       time.Duration
	log         zerolog.Logger
}

// Option configures a Board.
type Option func(*Board)

// WithNoise prefixes every acknowledgement with junk bytes.
func WithNoise(noise string) Option {
	return func(b *Board) { b.noise = noise }
}

// WithDelay delays every acknowledgement.
func WithDelay(d time.Duration) Option {
	return func(b *Board) { b.delay = d }
}

// WithLogger logs frames as the board sees them.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Board) { b.log = l }
}

// New returns a board with no pins configured.
func New(opts ...Option) *Board {
	b := &Board{
		notify:      make(chan struct{}, 1),
		readTimeout: time.Second,
		pins:        make(map[string]int),
		positions:   make(map[string]int),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FailNext answers the next n frames with a failure response.
func (b *Board) FailNext(n int) {
	b.mu.Lock()
	b.failNext = n
	b.mu.Unlock()
}

// SilenceNext leaves the next n frames unanswered.
func (b *Board) SilenceNext(n int) {
	b.mu.Lock()
	b.silenceNext = n
	b.mu.Unlock()
}

// Inject queues bytes for the host to read, as if the board had sent them
// unprompted.
func (b *Board) Inject(s string) {
	b.push(s)
}

// Reset forgets the pin configuration, like a board that rebooted.
func (b *Board) Reset() {
	b.mu.Lock()
	b.pins = make(map[string]int)
	b.positions = make(map[string]int)
	b.mu.Unlock()
}

// Write receives one frame from the host.
func (b *Board) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, errClosed
	}

	frame := append([]byte(nil), p...)
	b.frames = append(b.frames, frame)

	response := b.handle(frame)
	if b.silenceNext > 0 {
		b.silenceNext--
		b.log.Debug().Str("frame", string(frame)).Msg("sim: dropping ack")
		return len(p), nil
	}
	if b.failNext > 0 {
		b.failNext--
		response = ResponseFail
	}

	ack := fmt.Sprintf(`%s{"response":%q}`, b.noise, response)
	if b.delay > 0 {
		time.AfterFunc(b.delay, func() { b.push(ack) })
	} else {
		b.pushLocked(ack)
	}
	return len(p), nil
}

// handle applies a frame to the board state and returns the response.
func (b *Board) handle(frame []byte) string {
	cmd, values, err := protocol.DecodeFrame(frame)
	if err != nil {
		b.log.Warn().Err(err).Msg("sim: bad frame")
		return ResponseBadFrame
	}

	switch cmd {
	case protocol.CmdConfigurePins:
		b.pins = values
		b.positions = make(map[string]int)
		b.log.Debug().Interface("pins", values).Msg("sim: pins configured")
	case protocol.CmdSetEmotion:
		if len(b.pins) == 0 {
			return ResponseUnconfigured
		}
		for motor := range values {
			if _, ok := b.pins[motor]; !ok {
				return ResponseUnconfigured
			}
		}
		for motor, v := range values {
			b.positions[motor] = v
		}
		b.log.Debug().Interface("positions", values).Msg("sim: positions set")
	default:
		return ResponseBadFrame
	}
	return protocol.ResponseSuccess
}

func (b *Board) push(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushLocked(s)
}

func (b *Board) pushLocked(s string) {
	if b.closed {
		return
	}
	b.pending = append(b.pending, s...)
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Read returns acknowledgement bytes, or (0, nil) after the read timeout.
func (b *Board) Read(p []byte) (int, error) {
	b.mu.Lock()
	timeout := b.readTimeout
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return 0, errClosed
		}
		if len(b.pending) > 0 {
			n := copy(p, b.pending)
			b.pending = b.pending[n:]
			b.mu.Unlock()
			return n, nil
		}
		b.mu.Unlock()

		select {
		case <-b.notify:
		case <-timer.C:
			return 0, nil
		}
	}
}

func (b *Board) SetReadTimeout(t time.Duration) error {
	b.mu.Lock()
	b.readTimeout = t
	b.mu.Unlock()
	return nil
}

func (b *Board) ResetInputBuffer() error {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
	return nil
}

func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.notify)
	}
	return nil
}

// Frames returns every frame written so far.
func (b *Board) Frames() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.frames))
	copy(out, b.frames)
	return out
}

// Writes returns the number of frames written so far.
func (b *Board) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Pins returns the configured pin of every motor.
func (b *Board) Pins() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyMap(b.pins)
}

// Positions returns the last commanded value of every motor.
func (b *Board) Positions() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyMap(b.positions)
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
