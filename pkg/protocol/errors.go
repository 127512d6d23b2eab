package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable means the serial device cannot be opened, read or written.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrTimeout means no complete acknowledgement arrived in time.
	ErrTimeout = errors.New("ack timeout")

	// ErrMalformedResponse means the bytes read do not hold a usable acknowledgement.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrAckMismatch means the acknowledgement parsed but carried an unexpected response.
	ErrAckMismatch = errors.New("ack mismatch")

	// ErrUnknownEmotion means some motor has no value for the requested emotion.
	ErrUnknownEmotion = errors.New("unknown emotion")

	// ErrRetriesExhausted ends a handshake that never got the expected acknowledgement.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrEmptyRegistry means there are no motors to build a frame for.
	ErrEmptyRegistry = errors.New("no motors configured")
)

// UnknownEmotionError names the emotion and the first motor lacking it.
type UnknownEmotionError struct {
	Emotion string
	Motor   string
}

func (e *UnknownEmotionError) Error() string {
	return fmt.Sprintf("unknown emotion %q: motor %q has no value for it", e.Emotion, e.Motor)
}

func (e *UnknownEmotionError) Is(target error) bool {
	return target == ErrUnknownEmotion
}

// Retryable reports whether a handshake attempt that failed with err may be
// repeated with the same frame.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrAckMismatch) ||
		errors.Is(err, ErrTransportUnavailable)
}
