// Package events delivers emotion change notifications to the bridge.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Source produces emotion names until ctx is done or the source runs dry.
type Source interface {
	Run(ctx context.Context, emit func(emotion string)) error
}

// Emotions published by the demo cycle, in order.
var DemoEmotions = []string{"happy", "sad", "neutral", "surprised", "angry", "suspicious", "sleepy"}

const DefaultCyclePeriod = 5 * time.Second

// ParseEmotion extracts the emotion from a notification payload. Plain text is
// taken as is; a JSON object may carry it under "emotion" or "data".
func ParseEmotion(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", fmt.Errorf("empty payload")
	}
	if !strings.HasPrefix(payload, "{") {
		return payload, nil
	}

	var msg struct {
		Emotion string `json:"emotion"`
		Data    string `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", fmt.Errorf("parse payload: %w", err)
	}
	switch {
	case msg.Emotion != "":
		return msg.Emotion, nil
	case msg.Data != "":
		return msg.Data, nil
	default:
		return "", fmt.Errorf("payload has no emotion")
	}
}

// Lines reads one emotion per line.
type Lines struct {
	r io.Reader
}

func NewLines(r io.Reader) *Lines {
	return &Lines{r: r}
}

// Run returns nil at end of input. On cancellation the reader is closed when
// it is an io.Closer, so the pending read returns.
func (l *Lines) Run(ctx context.Context, emit func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(l.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			if c, ok := l.r.(io.Closer); ok {
				c.Close()
			}
			return ctx.Err()
		case line := <-lines:
			if emotion, err := ParseEmotion(line); err == nil {
				emit(emotion)
			}
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("read events: %w", err)
			}
			return nil
		}
	}
}

// Cycle emits a fixed list of emotions in a loop.
type Cycle struct {
	Emotions []string
	Period   time.Duration
}

// NewCycle returns the demo cycle with the given period.
func NewCycle(period time.Duration) *Cycle {
	if period <= 0 {
		period = DefaultCyclePeriod
	}
	return &Cycle{Emotions: DemoEmotions, Period: period}
}

// Run emits the first emotion immediately and the next one every period.
func (c *Cycle) Run(ctx context.Context, emit func(string)) error {
	if len(c.Emotions) == 0 {
		return fmt.Errorf("cycle has no emotions")
	}
	ticker := time.NewTicker(c.Period)
	defer ticker.Stop()

	for i := 0; ; i++ {
		emit(c.Emotions[i%len(c.Emotions)])
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
