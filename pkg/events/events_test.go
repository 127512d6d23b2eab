package events

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) emit(emotion string) {
	r.mu.Lock()
	r.got = append(r.got, emotion)
	r.mu.Unlock()
}

func (r *recorder) emotions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestParseEmotion(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		wantErr bool
	}{
		{"happy", "happy", false},
		{"  sad\n", "sad", false},
		{`{"emotion":"angry"}`, "angry", false},
		{`{"data":"sleepy"}`, "sleepy", false},
		{`{"emotion":"angry","data":"sleepy"}`, "angry", false},
		{"", "", true},
		{`{"other":1}`, "", true},
		{`{"emotion":`, "", true},
	}
	for _, tt := range tests {
		got, err := ParseEmotion(tt.payload)
		if tt.wantErr {
			assert.Error(t, err, "payload %q", tt.payload)
			continue
		}
		require.NoError(t, err, "payload %q", tt.payload)
		assert.Equal(t, tt.want, got)
	}
}

func TestLines(t *testing.T) {
	var rec recorder
	src := NewLines(strings.NewReader("happy\n\nsad\n{\"data\":\"neutral\"}\n"))

	err := src.Run(context.Background(), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad", "neutral"}, rec.emotions())
}

func TestLines_Cancel(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewLines(r).Run(ctx, func(string) {}) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	// the read end is closed, so the scanner is no longer waiting on it
	_, err = w.Write([]byte("happy\n"))
	assert.Error(t, err)
}

func TestCycle(t *testing.T) {
	var rec recorder
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewCycle(2 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, rec.emit) }()

	n := len(DemoEmotions) + 2
	require.Eventually(t, func() bool { return len(rec.emotions()) >= n }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	got := rec.emotions()
	assert.Equal(t, DemoEmotions, got[:len(DemoEmotions)])
	assert.Equal(t, "happy", got[len(DemoEmotions)])
}

func TestCycle_Defaults(t *testing.T) {
	c := NewCycle(0)
	assert.Equal(t, DefaultCyclePeriod, c.Period)
	assert.Error(t, (&Cycle{Period: time.Second}).Run(context.Background(), func(string) {}))
}

func TestWebSocket(t *testing.T) {
	ws := NewWebSocket(zerolog.Nop())
	srv := httptest.NewServer(ws)
	defer srv.Close()

	var rec recorder
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ws.Run(ctx, rec.emit)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("happy")))
	var reply wsReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "happy", reply.Emotion)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"other":1}`)))
	reply = wsReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.NotEmpty(t, reply.Error)

	require.Eventually(t, func() bool { return len(rec.emotions()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"happy"}, rec.emotions())
}

func TestRedis_PublishAndSubscribe(t *testing.T) {
	addr := os.Getenv("EMOTIONS_BRIDGE_TEST_REDIS")
	if addr == "" {
		t.Skip("EMOTIONS_BRIDGE_TEST_REDIS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, addr)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	channel := "test:" + t.Name()
	var rec recorder
	done := make(chan error, 1)
	go func() { done <- NewRedisSource(client, channel, zerolog.Nop()).Run(ctx, rec.emit) }()

	pub := NewRedisPublisher(client, channel)
	// wait for the subscription to be live
	require.Eventually(t, func() bool {
		n, err := pub.Publish(ctx, "surprised")
		return err == nil && n > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool { return len(rec.emotions()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "surprised", rec.emotions()[0])

	cancel()
	<-done
}
