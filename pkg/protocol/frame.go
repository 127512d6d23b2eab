// Package protocol implements the JSON frames exchanged with the face board.
//
// The host sends one frame per write:
//
//	{"cmd":1,"jaw":3,"left_eyebrow":5}     configure pins
//	{"cmd":2,"jaw":10,"left_eyebrow":120}  set emotion values
//
// and the board answers with {"response":"success"} or another response string.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fbot/emotions-bridge/pkg/head"
)

// Command discriminates wire messages.
type Command int

const (
	CmdConfigurePins Command = 1
	CmdSetEmotion    Command = 2
)

func (c Command) String() string {
	switch c {
	case CmdConfigurePins:
		return "config"
	case CmdSetEmotion:
		return "emotion"
	default:
		return "cmd" + strconv.Itoa(int(c))
	}
}

// Field is one motor entry of a wire message.
type Field struct {
	Motor string
	Value int
}

// WireMessage is a command envelope. Fields are encoded in order after cmd.
type WireMessage struct {
	Cmd    Command
	Fields []Field
}

// MarshalJSON encodes the message as a flat object with cmd first.
func (m WireMessage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"cmd":`)
	buf.WriteString(strconv.Itoa(int(m.Cmd)))
	for _, f := range m.Fields {
		key, err := json.Marshal(f.Motor)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(f.Value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ConfigMessage builds the configure-pins message for every motor.
func ConfigMessage(reg *head.Registry) (WireMessage, error) {
	if reg == nil || reg.Len() == 0 {
		return WireMessage{}, ErrEmptyRegistry
	}
	msg := WireMessage{Cmd: CmdConfigurePins, Fields: make([]Field, 0, reg.Len())}
	for _, m := range reg.Motors() {
		msg.Fields = append(msg.Fields, Field{Motor: m.Name, Value: m.Pin})
	}
	return msg, nil
}

// EmotionMessage builds the set-emotion message. Every motor must have a
// value for the emotion; otherwise an *UnknownEmotionError is returned.
func EmotionMessage(reg *head.Registry, emotion string) (WireMessage, error) {
	if reg == nil || reg.Len() == 0 {
		return WireMessage{}, ErrEmptyRegistry
	}
	msg := WireMessage{Cmd: CmdSetEmotion, Fields: make([]Field, 0, reg.Len())}
	for _, m := range reg.Motors() {
		v, ok := m.Value(emotion)
		if !ok {
			return WireMessage{}, &UnknownEmotionError{Emotion: emotion, Motor: m.Name}
		}
		msg.Fields = append(msg.Fields, Field{Motor: m.Name, Value: v})
	}
	return msg, nil
}

// EncodeConfig returns the configure-pins frame.
func EncodeConfig(reg *head.Registry) ([]byte, error) {
	msg, err := ConfigMessage(reg)
	if err != nil {
		return nil, err
	}
	return msg.MarshalJSON()
}

// EncodeEmotion returns the set-emotion frame for an emotion.
func EncodeEmotion(reg *head.Registry, emotion string) ([]byte, error) {
	msg, err := EmotionMessage(reg, emotion)
	if err != nil {
		return nil, err
	}
	return msg.MarshalJSON()
}

// DecodeFrame parses a frame sent by the host. Field order is lost; the
// board keys by motor name.
func DecodeFrame(data []byte) (Command, map[string]int, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, nil, fmt.Errorf("decode frame: %w", err)
	}
	cmd, ok := raw[head.CommandKey]
	if !ok {
		return 0, nil, fmt.Errorf("frame has no cmd")
	}
	delete(raw, head.CommandKey)
	return Command(cmd), raw, nil
}
