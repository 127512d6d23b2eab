// Package head describes the facial motors of the robot head and the
// configuration of the bridge that drives them.
package head

import (
	"fmt"
	"sort"
)

// DefaultEmotion is applied right after the pins are configured.
const DefaultEmotion = "neutral"

// CommandKey names the command field of every frame, so no motor may use it.
const CommandKey = "cmd"

// MotorSpec identifies a motor, the pin it is wired to and its target
// value for every supported emotion.
type MotorSpec struct {
	Name     string
	Pin      int
	Emotions map[string]int
}

// Value returns the target value of the motor for an emotion.
func (m MotorSpec) Value(emotion string) (int, bool) {
	v, ok := m.Emotions[emotion]
	return v, ok
}

// Registry is the ordered, immutable set of motors loaded at startup.
type Registry struct {
	motors   []MotorSpec
	index    map[string]int
	emotions []string // emotion names in file order
}

// NewRegistry builds a registry from motors in the given order.
// Motor names must be unique, non-empty and not CommandKey.
func NewRegistry(motors []MotorSpec) (*Registry, error) {
	return newRegistry(motors, nil)
}

// newRegistry is NewRegistry with an explicit emotion listing order. Emotions
// missing from order are appended alphabetically.
func newRegistry(motors []MotorSpec, order []string) (*Registry, error) {
	r := &Registry{
		motors: make([]MotorSpec, 0, len(motors)),
		index:  make(map[string]int, len(motors)),
	}
	for _, m := range motors {
		if m.Name == "" {
			return nil, fmt.Errorf("motor with empty name")
		}
		if m.Name == CommandKey {
			return nil, fmt.Errorf("motor name %q is reserved", m.Name)
		}
		if _, dup := r.index[m.Name]; dup {
			return nil, fmt.Errorf("duplicate motor %q", m.Name)
		}
		emotions := make(map[string]int, len(m.Emotions))
		for k, v := range m.Emotions {
			emotions[k] = v
		}
		r.index[m.Name] = len(r.motors)
		r.motors = append(r.motors, MotorSpec{Name: m.Name, Pin: m.Pin, Emotions: emotions})
	}

	for _, e := range order {
		r.noteEmotion(e)
	}
	for _, m := range r.motors {
		names := make([]string, 0, len(m.Emotions))
		for e := range m.Emotions {
			names = append(names, e)
		}
		sort.Strings(names)
		for _, e := range names {
			r.noteEmotion(e)
		}
	}
	return r, nil
}

// Motors returns the motors in registry order.
func (r *Registry) Motors() []MotorSpec {
	out := make([]MotorSpec, len(r.motors))
	copy(out, r.motors)
	return out
}

// Len returns the number of motors.
func (r *Registry) Len() int {
	return len(r.motors)
}

// Motor looks up a motor by name.
func (r *Registry) Motor(name string) (MotorSpec, bool) {
	i, ok := r.index[name]
	if !ok {
		return MotorSpec{}, false
	}
	return r.motors[i], true
}

// Emotions returns the emotions every motor has a value for, in the order
// they were first seen in the parameter file.
func (r *Registry) Emotions() []string {
	var out []string
	for _, e := range r.emotions {
		if r.HasEmotion(e) {
			out = append(out, e)
		}
	}
	return out
}

// AllEmotions returns every emotion any motor has a value for.
func (r *Registry) AllEmotions() []string {
	out := make([]string, len(r.emotions))
	copy(out, r.emotions)
	return out
}

// HasEmotion reports whether every motor has a value for the emotion.
func (r *Registry) HasEmotion(emotion string) bool {
	if len(r.motors) == 0 {
		return false
	}
	for _, m := range r.motors {
		if _, ok := m.Emotions[emotion]; !ok {
			return false
		}
	}
	return true
}

func (r *Registry) noteEmotion(name string) {
	for _, e := range r.emotions {
		if e == name {
			return
		}
	}
	r.emotions = append(r.emotions, name)
}
