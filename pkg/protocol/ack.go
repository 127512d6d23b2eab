package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ResponseSuccess is the response the board sends when it accepted a frame.
const ResponseSuccess = "success"

const (
	DefaultPollInterval = 20 * time.Millisecond
	DefaultMaxBuffer    = 1024
)

// responseToken opens an acknowledgement object.
var responseToken = []byte(`{"response"`)

// AckMessage is the board's reply to a frame.
type AckMessage struct {
	Response string `json:"response"`
}

// Matches reports whether the acknowledgement carries exactly expected.
func Matches(ack AckMessage, expected string) bool {
	return ack.Response == expected
}

// TimedReader is a reader whose reads can be bounded in time.
type TimedReader interface {
	io.Reader
	SetReadTimeout(t time.Duration) error
}

// Decoder reads acknowledgements from the serial link.
type Decoder struct {
	// PollInterval bounds each read so deadlines and cancellation are noticed.
	PollInterval time.Duration
	// MaxBuffer caps the bytes accumulated while waiting for a closing brace.
	MaxBuffer int
}

// AwaitAck reads until a closing brace arrives, then extracts the first
// {"response"...} object from the accumulated bytes. Leading noise and
// trailing bytes are ignored.
func (d Decoder) AwaitAck(ctx context.Context, r TimedReader, timeout time.Duration) (AckMessage, error) {
	poll := d.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	limit := d.MaxBuffer
	if limit <= 0 {
		limit = DefaultMaxBuffer
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 256)

	for bytes.IndexByte(buf, '}') < 0 {
		if err := ctx.Err(); err != nil {
			return AckMessage{}, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return AckMessage{}, fmt.Errorf("%w after %v (%d bytes buffered)", ErrTimeout, timeout, len(buf))
		}
		if err := r.SetReadTimeout(min(poll, remaining)); err != nil {
			return AckMessage{}, fmt.Errorf("%w: set read timeout: %v", ErrTransportUnavailable, err)
		}

		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			return AckMessage{}, fmt.Errorf("%w: read: %v", ErrTransportUnavailable, err)
		}
		if len(buf) > limit {
			return AckMessage{}, fmt.Errorf("%w: no closing brace in %d bytes", ErrMalformedResponse, len(buf))
		}
	}

	return ParseAck(buf)
}

// ParseAck extracts the acknowledgement from raw bytes: the span from the
// first {"response" token to the first '}' after it.
func ParseAck(raw []byte) (AckMessage, error) {
	start := bytes.Index(raw, responseToken)
	if start < 0 {
		return AckMessage{}, fmt.Errorf("%w: no response in %q", ErrMalformedResponse, raw)
	}
	end := bytes.IndexByte(raw[start:], '}')
	if end < 0 {
		return AckMessage{}, fmt.Errorf("%w: unterminated response in %q", ErrMalformedResponse, raw)
	}
	message := raw[start : start+end+1]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil {
		return AckMessage{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	value, ok := fields["response"]
	if !ok {
		return AckMessage{}, fmt.Errorf("%w: missing response field", ErrMalformedResponse)
	}
	var ack AckMessage
	if err := json.Unmarshal(value, &ack.Response); err != nil {
		return AckMessage{}, fmt.Errorf("%w: response is not a string: %v", ErrMalformedResponse, err)
	}
	return ack, nil
}
