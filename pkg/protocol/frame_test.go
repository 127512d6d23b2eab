package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbot/emotions-bridge/pkg/head"
)

func testRegistry(t *testing.T) *head.Registry {
	t.Helper()
	reg, err := head.NewRegistry([]head.MotorSpec{
		{Name: "jaw", Pin: 3, Emotions: map[string]int{"happy": 10, "neutral": 0, "sad": 4}},
		{Name: "left_eyebrow", Pin: 5, Emotions: map[string]int{"happy": 120, "neutral": 90, "sad": 60}},
		{Name: "right_eyebrow", Pin: 6, Emotions: map[string]int{"happy": 60, "neutral": 90}},
	})
	require.NoError(t, err)
	return reg
}

func TestEncodeConfig(t *testing.T) {
	frame, err := EncodeConfig(testRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, `{"cmd":1,"jaw":3,"left_eyebrow":5,"right_eyebrow":6}`, string(frame))
}

func TestEncodeEmotion(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		emotion  string
		expected string
	}{
		{"happy", `{"cmd":2,"jaw":10,"left_eyebrow":120,"right_eyebrow":60}`},
		{"neutral", `{"cmd":2,"jaw":0,"left_eyebrow":90,"right_eyebrow":90}`},
	}

	for _, tt := range tests {
		frame, err := EncodeEmotion(reg, tt.emotion)
		require.NoError(t, err, tt.emotion)
		assert.Equal(t, tt.expected, string(frame))

		// one key per motor plus cmd, each value the motor's table entry
		var decoded map[string]int
		require.NoError(t, json.Unmarshal(frame, &decoded))
		assert.Len(t, decoded, reg.Len()+1)
		assert.Equal(t, int(CmdSetEmotion), decoded["cmd"])
		for _, m := range reg.Motors() {
			want, _ := m.Value(tt.emotion)
			assert.Equal(t, want, decoded[m.Name], m.Name)
		}
	}
}

func TestEncodeEmotion_UnknownEmotion(t *testing.T) {
	reg := testRegistry(t)

	for _, emotion := range []string{"sad", "angry"} {
		frame, err := EncodeEmotion(reg, emotion)
		assert.Nil(t, frame)
		require.ErrorIs(t, err, ErrUnknownEmotion)

		var unknown *UnknownEmotionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, emotion, unknown.Emotion)
	}

	_, err := EncodeEmotion(reg, "sad")
	var unknown *UnknownEmotionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "right_eyebrow", unknown.Motor)
}

func TestEncodeEmotion_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	first, err := EncodeEmotion(reg, "happy")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := EncodeEmotion(reg, "happy")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncode_EmptyRegistry(t *testing.T) {
	empty, err := head.NewRegistry(nil)
	require.NoError(t, err)

	_, err = EncodeConfig(empty)
	assert.ErrorIs(t, err, ErrEmptyRegistry)
	_, err = EncodeEmotion(nil, "neutral")
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestWireMessage_EscapesNames(t *testing.T) {
	msg := WireMessage{Cmd: CmdConfigurePins, Fields: []Field{{Motor: `eye"l`, Value: 2}}}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"cmd":1,"eye\"l":2}`, string(data))
}

func TestDecodeFrame(t *testing.T) {
	cmd, values, err := DecodeFrame([]byte(`{"cmd":2,"jaw":10}`))
	require.NoError(t, err)
	assert.Equal(t, CmdSetEmotion, cmd)
	assert.Equal(t, map[string]int{"jaw": 10}, values)

	_, _, err = DecodeFrame([]byte(`{"jaw":10}`))
	assert.Error(t, err)
	_, _, err = DecodeFrame([]byte(`{"cmd":`))
	assert.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "config", CmdConfigurePins.String())
	assert.Equal(t, "emotion", CmdSetEmotion.String())
	assert.Equal(t, "cmd9", Command(9).String())
}
