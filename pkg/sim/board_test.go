package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbot/emotions-bridge/pkg/protocol"
)

func awaitAck(t *testing.T, b *Board) (protocol.AckMessage, error) {
	t.Helper()
	dec := protocol.Decoder{PollInterval: 5 * time.Millisecond}
	return dec.AwaitAck(context.Background(), b, 100*time.Millisecond)
}

func TestBoard_ConfigureThenEmotion(t *testing.T) {
	b := New()
	defer b.Close()

	_, err := b.Write([]byte(`{"cmd":1,"jaw":3}`))
	require.NoError(t, err)
	ack, err := awaitAck(t, b)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResponseSuccess, ack.Response)
	assert.Equal(t, map[string]int{"jaw": 3}, b.Pins())

	_, err = b.Write([]byte(`{"cmd":2,"jaw":10}`))
	require.NoError(t, err)
	ack, err = awaitAck(t, b)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResponseSuccess, ack.Response)
	assert.Equal(t, map[string]int{"jaw": 10}, b.Positions())
	assert.Equal(t, 2, b.Writes())
}

func TestBoard_RejectsEmotionBeforeConfig(t *testing.T) {
	b := New()
	defer b.Close()

	_, err := b.Write([]byte(`{"cmd":2,"jaw":10}`))
	require.NoError(t, err)
	ack, err := awaitAck(t, b)
	require.NoError(t, err)
	assert.Equal(t, ResponseUnconfigured, ack.Response)
}

func TestBoard_Scripting(t *testing.T) {
	b := New(WithNoise("\x00boot"))
	defer b.Close()

	b.FailNext(1)
	b.Write([]byte(`{"cmd":1,"jaw":3}`))
	ack, err := awaitAck(t, b)
	require.NoError(t, err)
	assert.Equal(t, ResponseFail, ack.Response)

	b.SilenceNext(1)
	b.Write([]byte(`{"cmd":1,"jaw":3}`))
	_, err = awaitAck(t, b)
	assert.ErrorIs(t, err, protocol.ErrTimeout)

	b.Write([]byte(`garbage`))
	ack, err = awaitAck(t, b)
	require.NoError(t, err)
	assert.Equal(t, ResponseBadFrame, ack.Response)
}

func TestBoard_Reset(t *testing.T) {
	b := New()
	defer b.Close()

	b.Write([]byte(`{"cmd":1,"jaw":3}`))
	_, err := awaitAck(t, b)
	require.NoError(t, err)

	b.Reset()
	assert.Empty(t, b.Pins())
}

func TestBoard_ResetInputBufferDropsStaleAck(t *testing.T) {
	b := New()
	defer b.Close()

	b.Write([]byte(`{"cmd":1,"jaw":3}`))
	require.NoError(t, b.ResetInputBuffer())

	_, err := awaitAck(t, b)
	assert.ErrorIs(t, err, protocol.ErrTimeout)
}

func TestBoard_Closed(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())
	_, err := b.Write([]byte(`{"cmd":1,"jaw":3}`))
	assert.Error(t, err)
	_, err = b.Read(make([]byte, 8))
	assert.Error(t, err)
}
