// Package graphspec builds unit-generator graphs from declarative YAML or HCL
// descriptions.
//
// A description names control groups, nodes and roots. Node inputs are
// written as a number (a new constant), "id" (every output of a node),
// "id:N" (output N of a node) or "@name" (a control parameter). Nodes may be
// listed in any order.
package graphspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownReference is returned when an input or root names nothing
	ErrUnknownReference = errors.New("unknown reference")
	// ErrDuplicateID is returned when two nodes share an id
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrDuplicateControl is returned when two parameters share a name
	ErrDuplicateControl = errors.New("duplicate control name")
	// ErrBadInput is returned for malformed input expressions
	ErrBadInput = errors.New("malformed input")
)

// Document is a format-independent graph description
type Document struct {
	Name     string         `yaml:"name" validate:"pstring"`
	Controls []ControlGroup `yaml:"controls" validate:"dive"`
	Nodes    []NodeSpec     `yaml:"nodes" validate:"dive"`
	Roots    []Input        `yaml:"roots" validate:"required,min=1"`
}

// ControlGroup becomes one control node with one output per parameter
type ControlGroup struct {
	Rate   string  `yaml:"rate" validate:"omitempty,rate"`
	Op     string  `yaml:"op" validate:"omitempty,oneof=Control AudioControl TrigControl LagControl"`
	Params []Param `yaml:"params" validate:"required,min=1,dive"`
}

// Param describes one control parameter
type Param struct {
	Name    string  `yaml:"name" validate:"required,identifier,pstring"`
	Default float32 `yaml:"default"`
	Lag     float32 `yaml:"lag"`
}

// NodeSpec describes one unit generator
type NodeSpec struct {
	ID      string  `yaml:"id" validate:"required,identifier,pstring"`
	Op      string  `yaml:"op" validate:"required,pstring"`
	Rate    string  `yaml:"rate" validate:"required,rate"`
	Outputs *int    `yaml:"outputs" validate:"omitempty,min=0,max=65535"`
	Special int     `yaml:"special" validate:"min=0,max=65535"`
	Inputs  []Input `yaml:"inputs"`
}

// NumOutputs returns the declared output count, defaulting to one
func (n NodeSpec) NumOutputs() int {
	if n.Outputs == nil {
		return 1
	}
	return *n.Outputs
}

// Input is one input expression in its source form
type Input string

// UnmarshalYAML accepts any scalar, so numbers and strings mix in one list
func (in *Input) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected a number or a string", node.Line, ErrBadInput)
	}
	*in = Input(node.Value)
	return nil
}

// InputKind classifies an input expression
type InputKind int

const (
	InputConstant InputKind = iota
	InputNode
	InputControl
)

// Parsed is a decomposed input expression
type Parsed struct {
	Kind  InputKind
	Value float32 // InputConstant
	ID    string  // InputNode: node id; InputControl: parameter name
	Index int     // InputNode: output index, -1 for every output
}

// Parse decomposes the expression
func (in Input) Parse() (Parsed, error) {
	s := strings.TrimSpace(string(in))
	if s == "" {
		return Parsed{}, fmt.Errorf("%w: empty input", ErrBadInput)
	}

	if strings.HasPrefix(s, "@") {
		if len(s) == 1 {
			return Parsed{}, fmt.Errorf("%w: %q names no control", ErrBadInput, s)
		}
		return Parsed{Kind: InputControl, ID: s[1:], Index: -1}, nil
	}

	if v, err := strconv.ParseFloat(s, 32); err == nil {
		return Parsed{Kind: InputConstant, Value: float32(v), Index: -1}, nil
	}

	id, port, found := strings.Cut(s, ":")
	if !found {
		return Parsed{Kind: InputNode, ID: s, Index: -1}, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || id == "" {
		return Parsed{}, fmt.Errorf("%w: %q is not id:output", ErrBadInput, s)
	}
	return Parsed{Kind: InputNode, ID: id, Index: n}, nil
}
