// Package bridge drives the face board from emotion change notifications.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fbot/emotions-bridge/pkg/handshake"
	"github.com/fbot/emotions-bridge/pkg/head"
	"github.com/fbot/emotions-bridge/pkg/metrics"
	"github.com/fbot/emotions-bridge/pkg/protocol"
)

// ErrSuperseded is reported to a waiting caller whose request was replaced by
// a newer notification before it was sent.
var ErrSuperseded = errors.New("superseded by a newer emotion")

const (
	KindConfig  = "config"
	KindEmotion = "emotion"
)

// Outcome reports one handshake performed by the bridge.
type Outcome struct {
	Emotion   string // empty for pin configuration
	Result    handshake.Result
	Timestamp time.Time
}

// Options configures a Bridge.
type Options struct {
	DefaultEmotion string
	// ReconfigureDelay re-sends the pin configuration once after startup,
	// for boards that finish booting late. Zero disables it.
	ReconfigureDelay time.Duration
	Logger           *zerolog.Logger
}

type request struct {
	emotion string
	done    chan handshake.Result // nil for fire-and-forget
}

func (r request) finish(res handshake.Result) {
	if r.done != nil {
		r.done <- res
	}
}

// Bridge owns the motor registry and the current emotion, and feeds emotion
// changes to the handshake controller one at a time.
type Bridge struct {
	registry *head.Registry
	hs       *handshake.Controller
	opts     Options
	log      zerolog.Logger

	mu      sync.RWMutex
	current string
	running bool

	queueMu  sync.Mutex
	queue    chan request
	outcomes chan Outcome
}

// New creates a bridge. Call Run to start dispatching.
func New(reg *head.Registry, hs *handshake.Controller, opts Options) *Bridge {
	if opts.DefaultEmotion == "" {
		opts.DefaultEmotion = head.DefaultEmotion
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Bridge{
		registry: reg,
		hs:       hs,
		opts:     opts,
		log:      log.With().Str("component", "bridge").Logger(),
		queue:    make(chan request, 1),
		outcomes: make(chan Outcome, 16),
	}
}

// Registry returns the motor registry.
func (b *Bridge) Registry() *head.Registry {
	return b.registry
}

// CurrentEmotion returns the last emotion the bridge applied or attempted.
func (b *Bridge) CurrentEmotion() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

func (b *Bridge) setCurrent(emotion string) {
	b.mu.Lock()
	prev := b.current
	b.current = emotion
	b.mu.Unlock()
	metrics.SetCurrentEmotion(prev, emotion)
}

// Outcomes returns a channel that receives every handshake outcome. Old
// outcomes are dropped when nobody reads.
func (b *Bridge) Outcomes() <-chan Outcome {
	return b.outcomes
}

func (b *Bridge) publish(o Outcome) {
	select {
	case b.outcomes <- o:
	default:
		// Drop oldest outcome if channel full, replace with new
		select {
		case <-b.outcomes:
		default:
		}
		select {
		case b.outcomes <- o:
		default:
		}
	}
}

// SendMotorsConfig sends every motor's pin to the board.
func (b *Bridge) SendMotorsConfig(ctx context.Context) handshake.Result {
	frame, err := protocol.EncodeConfig(b.registry)
	if err != nil {
		return b.rejected(KindConfig, "", err)
	}

	res := b.hs.Perform(ctx, KindConfig, frame, protocol.ResponseSuccess)
	if !res.OK() {
		b.log.Error().Err(res.Err).Int("attempts", res.Attempts).Msg("Motor configuration failed")
	}
	b.publish(Outcome{Result: res, Timestamp: time.Now()})
	return res
}

// SendEmotion sends every motor's value for emotion. An emotion missing from
// any motor fails immediately without touching the serial link.
func (b *Bridge) SendEmotion(ctx context.Context, emotion string) handshake.Result {
	frame, err := protocol.EncodeEmotion(b.registry, emotion)
	if err != nil {
		return b.rejected(KindEmotion, emotion, err)
	}

	res := b.hs.Perform(ctx, KindEmotion, frame, protocol.ResponseSuccess)
	if !res.OK() {
		b.log.Error().Err(res.Err).Str("emotion", emotion).Int("attempts", res.Attempts).Msg("Emotion not applied")
	}
	b.publish(Outcome{Emotion: emotion, Result: res, Timestamp: time.Now()})
	return res
}

// rejected reports an operation that failed before any write.
func (b *Bridge) rejected(kind, emotion string, err error) handshake.Result {
	res := handshake.Result{ID: uuid.New(), Kind: kind, State: handshake.Failed, Err: err}
	b.log.Error().Err(err).Str("kind", kind).Str("emotion", emotion).Msg("Frame not sent")
	metrics.Handshakes.WithLabelValues(kind, res.State.String()).Inc()
	b.publish(Outcome{Emotion: emotion, Result: res, Timestamp: time.Now()})
	return res
}

// Notify requests an emotion change and returns immediately. If an earlier
// request is still waiting it is replaced. An emotion some motor lacks is
// reported as a failed outcome and leaves CurrentEmotion unchanged.
func (b *Bridge) Notify(emotion string) {
	b.enqueue(request{emotion: emotion})
}

// NotifyWait requests an emotion change and waits until the bridge has
// handled it. The result carries ErrSuperseded when a newer notification
// replaced the request before it was sent.
func (b *Bridge) NotifyWait(ctx context.Context, emotion string) (handshake.Result, error) {
	done := make(chan handshake.Result, 1)
	b.enqueue(request{emotion: emotion, done: done})
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return handshake.Result{}, ctx.Err()
	}
}

func (b *Bridge) enqueue(req request) {
	metrics.Notifications.Inc()

	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	select {
	case old := <-b.queue:
		metrics.NotificationsCoalesced.Inc()
		b.log.Debug().Str("dropped", old.emotion).Str("emotion", req.emotion).Msg("Replaced pending emotion")
		old.finish(handshake.Result{
			ID:    uuid.New(),
			Kind:  KindEmotion,
			State: handshake.Failed,
			Err:   fmt.Errorf("%q: %w", old.emotion, ErrSuperseded),
		})
	default:
	}

	// The slot is empty and only enqueue fills it, so this cannot block.
	b.queue <- req
}

// Run configures the board, applies the default emotion and then handles
// notifications until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("already running")
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	b.log.Info().Int("motors", b.registry.Len()).Int("max_retries", b.hs.MaxRetries()).Msg("Configuring motors")
	b.SendMotorsConfig(ctx)

	b.setCurrent(b.opts.DefaultEmotion)
	b.SendEmotion(ctx, b.opts.DefaultEmotion)

	var reconfigure <-chan time.Time
	if b.opts.ReconfigureDelay > 0 {
		timer := time.NewTimer(b.opts.ReconfigureDelay)
		defer timer.Stop()
		reconfigure = timer.C
	}

	b.log.Info().Msg("Accepting emotion notifications")
	for {
		select {
		case <-ctx.Done():
			b.drain(ctx.Err())
			b.log.Info().Msg("Bridge stopped")
			return ctx.Err()

		case req := <-b.queue:
			req.finish(b.handle(ctx, req.emotion))

		case <-reconfigure:
			reconfigure = nil
			b.log.Info().Msg("Re-sending motor configuration")
			if res := b.SendMotorsConfig(ctx); res.OK() {
				b.SendEmotion(ctx, b.CurrentEmotion())
			}
		}
	}
}

func (b *Bridge) handle(ctx context.Context, emotion string) handshake.Result {
	if !b.registry.HasEmotion(emotion) {
		// Leave the current emotion alone so later re-sends stay valid.
		return b.SendEmotion(ctx, emotion)
	}
	b.log.Info().Str("emotion", emotion).Msg("Emotion changed")
	b.setCurrent(emotion)
	return b.SendEmotion(ctx, emotion)
}

func (b *Bridge) drain(err error) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	select {
	case req := <-b.queue:
		req.finish(handshake.Result{ID: uuid.New(), Kind: KindEmotion, State: handshake.Failed, Err: err})
	default:
	}
}
