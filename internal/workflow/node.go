package workflow

import (
	"fmt"
	"maps"
	"slices"
)

// Interface names understood by the execution engine.
const (
	IdentityInterface = "IdentityInterface"
)

// Node is one processing step. The engine decides what Interface means; this
// package only records the declared fields, the values bound to them, and
// the node's own copy of the execution configuration.
type Node struct {
	Name      string
	Interface string
	// Fields are the declared input names. Inputs may only bind these.
	Fields []string
	// RunWithoutSubmitting asks the engine to run the node in-process.
	RunWithoutSubmitting bool

	inputs map[string]string
	params map[string]any
	config Config
}

// NewNode declares a node with the given interface and input fields.
func NewNode(name, iface string, fields ...string) *Node {
	return &Node{
		Name:      name,
		Interface: iface,
		Fields:    fields,
		inputs:    make(map[string]string),
		params:    make(map[string]any),
	}
}

// SetInput binds a value to a declared field.
func (n *Node) SetInput(field, value string) error {
	if !slices.Contains(n.Fields, field) {
		return fmt.Errorf("node %s has no field %q", n.Name, field)
	}
	n.inputs[field] = value
	return nil
}

// Input returns the value bound to field.
func (n *Node) Input(field string) (string, bool) {
	v, ok := n.inputs[field]
	return v, ok
}

// Inputs returns a copy of every bound input.
func (n *Node) Inputs() map[string]string {
	return maps.Clone(n.inputs)
}

// SetParam records a processing parameter for the engine.
func (n *Node) SetParam(key string, value any) {
	n.params[key] = value
}

// Params returns a copy of the processing parameters.
func (n *Node) Params() map[string]any {
	return maps.Clone(n.params)
}

// Config returns a copy of the configuration the node captured.
func (n *Node) Config() Config {
	return n.config.Clone()
}

func (n *Node) setConfig(c Config) {
	n.config = c.Clone()
}
