package head

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultNode is the node name the parameter file is keyed by.
const DefaultNode = "emotions_bridge"

const (
	pinKey        = "pin"
	parametersKey = "ros__parameters"
)

// LoadParams loads the motor registry from a YAML parameter file.
//
// The file uses the ROS 2 parameter layout:
//
//	emotions_bridge:
//	  ros__parameters:
//	    jaw:
//	      pin: 3
//	      neutral: 0
//	      happy: 10
//
// The node wrapper is optional; a bare mapping of motors is accepted as well.
// Motors keep the order they have in the file.
func LoadParams(path, node string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}
	reg, err := ParseParams(data, node)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return reg, nil
}

// ParseParams parses a parameter document. See LoadParams for the layout.
func ParseParams(data []byte, node string) (*Registry, error) {
	if node == "" {
		node = DefaultNode
	}

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty parameter file")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", root.Line)
	}

	motorsNode := root
	if n := lookup(root, node); n != nil {
		params := lookup(n, parametersKey)
		if params == nil {
			return nil, fmt.Errorf("line %d: node %q has no %s", n.Line, node, parametersKey)
		}
		motorsNode = params
	}
	if motorsNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of motors", motorsNode.Line)
	}

	var (
		motors []MotorSpec
		order  []string
		seen   = make(map[string]bool)
	)
	for i := 0; i+1 < len(motorsNode.Content); i += 2 {
		key, val := motorsNode.Content[i], motorsNode.Content[i+1]
		if seen[key.Value] {
			return nil, fmt.Errorf("line %d: duplicate motor %q", key.Line, key.Value)
		}
		seen[key.Value] = true

		m, emotions, err := parseMotor(key.Value, val)
		if err != nil {
			return nil, err
		}
		motors = append(motors, m)
		order = append(order, emotions...)
	}
	if len(motors) == 0 {
		return nil, fmt.Errorf("no motors defined")
	}

	return newRegistry(motors, order)
}

func parseMotor(name string, n *yaml.Node) (MotorSpec, []string, error) {
	if n.Kind != yaml.MappingNode {
		return MotorSpec{}, nil, fmt.Errorf("line %d: motor %q: expected a mapping", n.Line, name)
	}

	m := MotorSpec{Name: name, Pin: -1, Emotions: make(map[string]int)}
	var order []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		var v int
		if err := val.Decode(&v); err != nil {
			return MotorSpec{}, nil, fmt.Errorf("line %d: motor %q: %s must be an integer", val.Line, name, key.Value)
		}
		if key.Value == pinKey {
			m.Pin = v
			continue
		}
		if _, dup := m.Emotions[key.Value]; dup {
			return MotorSpec{}, nil, fmt.Errorf("line %d: motor %q: duplicate emotion %q", key.Line, name, key.Value)
		}
		m.Emotions[key.Value] = v
		order = append(order, key.Value)
	}
	if m.Pin < 0 {
		return MotorSpec{}, nil, fmt.Errorf("line %d: motor %q has no pin", n.Line, name)
	}
	return m, order, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
