package head

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faceParams = `
emotions_bridge:
  ros__parameters:
    jaw:
      pin: 3
      happy: 10
      neutral: 0
      sad: 4
    left_eyebrow:
      pin: 5
      happy: 120
      neutral: 90
      sad: 60
    right_eyebrow:
      pin: 6
      neutral: 90
      happy: 60
      sad: 120
`

func TestParseParams_KeepsFileOrder(t *testing.T) {
	reg, err := ParseParams([]byte(faceParams), "")
	require.NoError(t, err)

	names := make([]string, 0, reg.Len())
	for _, m := range reg.Motors() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"jaw", "left_eyebrow", "right_eyebrow"}, names)
	assert.Equal(t, []string{"happy", "neutral", "sad"}, reg.Emotions())

	jaw, ok := reg.Motor("jaw")
	require.True(t, ok)
	assert.Equal(t, 3, jaw.Pin)
	v, ok := jaw.Value("happy")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestParseParams_BareMapping(t *testing.T) {
	reg, err := ParseParams([]byte("jaw: {pin: 3, happy: 10, neutral: 0}\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.HasEmotion("neutral"))
}

func TestParseParams_CustomNode(t *testing.T) {
	doc := "face:\n  ros__parameters:\n    jaw: {pin: 7, neutral: 1}\n"
	reg, err := ParseParams([]byte(doc), "face")
	require.NoError(t, err)
	jaw, ok := reg.Motor("jaw")
	require.True(t, ok)
	assert.Equal(t, 7, jaw.Pin)
}

func TestParseParams_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not a mapping", "- jaw\n- eye\n"},
		{"missing pin", "jaw: {happy: 10}\n"},
		{"non integer value", "jaw: {pin: 3, happy: wide}\n"},
		{"duplicate motor", "jaw: {pin: 3}\njaw: {pin: 4}\n"},
		{"motor not a mapping", "jaw: 3\n"},
		{"node without parameters", "emotions_bridge:\n  jaw: {pin: 3}\n"},
		{"no motors", "emotions_bridge:\n  ros__parameters: {}\n"},
		{"reserved motor name", "cmd: {pin: 3, neutral: 7}\njaw: {pin: 4, neutral: 0}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams([]byte(tt.doc), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(faceParams), 0644))

	reg, err := LoadParams(path, DefaultNode)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	_, err = LoadParams(filepath.Join(t.TempDir(), "missing.yaml"), DefaultNode)
	assert.Error(t, err)
}
