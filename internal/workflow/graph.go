// Package workflow describes a pipeline as a graph of named nodes plus nested
// sub-workflows. It only builds and configures the graph; running it is the
// job of an engine that consumes the finished structure.
package workflow

import (
	"errors"
	"fmt"

	"github.com/vk/betagrid/internal/dag"
	"github.com/vk/betagrid/internal/nodeid"
)

var (
	// ErrDuplicateNode is returned when a name is already taken in a graph.
	ErrDuplicateNode = errors.New("duplicate node name")
	// ErrNodeNotFound is returned when a connection names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrAlreadyOwned is returned when a sub-workflow already has a parent.
	ErrAlreadyOwned = errors.New("workflow already attached to a parent")
)

// Graph is a named workflow. It owns its nodes and any attached sub-graphs.
type Graph struct {
	name    string
	baseDir string
	config  Config

	topo   *dag.Graph
	order  []string
	nodes  map[string]*Node
	parent *Graph

	children []*Graph
}

// New creates an empty workflow with the default configuration.
func New(name string) *Graph {
	return &Graph{
		name:   name,
		config: DefaultConfig(),
		topo:   dag.New(),
		nodes:  make(map[string]*Node),
	}
}

// Name returns the workflow name.
func (g *Graph) Name() string { return g.name }

// BaseDir returns the working directory the engine runs this workflow in.
func (g *Graph) BaseDir() string { return g.baseDir }

// SetBaseDir sets the engine working directory.
func (g *Graph) SetBaseDir(dir string) { g.baseDir = dir }

// Parent returns the owning workflow, or nil for a top-level one.
func (g *Graph) Parent() *Graph { return g.parent }

// Path returns the dotted name from the root workflow down to g.
func (g *Graph) Path() string {
	return g.Address().String()
}

// Address returns the path from the root workflow down to g.
func (g *Graph) Address() nodeid.Address {
	if g.parent == nil {
		return nodeid.New(g.name)
	}
	return g.parent.Address().Child(g.name)
}

// Config returns a copy of the workflow configuration.
func (g *Graph) Config() Config {
	return g.config.Clone()
}

// Set changes one value of the workflow configuration. Nodes keep whatever
// configuration they captured earlier.
func (g *Graph) Set(section, key, value string) {
	g.config.Set(section, key, value)
}

// SetConfig replaces the workflow configuration and gives every node in
// the graph, sub-graphs included, its own copy of it.
func (g *Graph) SetConfig(c Config) {
	g.config = c.Clone()
	for _, n := range g.AllNodes() {
		n.setConfig(g.config)
	}
}

// AddNodes adds nodes to the graph. Each node captures a copy of the
// current workflow configuration.
func (g *Graph) AddNodes(nodes ...*Node) error {
	for _, n := range nodes {
		if err := g.claim(n.Name); err != nil {
			return err
		}
		n.setConfig(g.config)
		g.nodes[n.Name] = n
		g.topo.AddNode(n.Name)
		if err := g.reorder(); err != nil {
			return err
		}
	}
	return nil
}

// AddSubgraphs attaches child workflows. A child can only have one parent.
func (g *Graph) AddSubgraphs(children ...*Graph) error {
	for _, c := range children {
		if c == g {
			return fmt.Errorf("workflow %s cannot contain itself", g.name)
		}
		if c.parent != nil {
			return fmt.Errorf("%w: %s belongs to %s", ErrAlreadyOwned, c.name, c.parent.name)
		}
		if err := g.claim(c.name); err != nil {
			return err
		}
		c.parent = g
		g.children = append(g.children, c)
		g.topo.AddNode(c.name)
		if err := g.reorder(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) claim(name string) error {
	if err := nodeid.ValidName(name); err != nil {
		return fmt.Errorf("workflow %s: %w", g.name, err)
	}
	if g.topo.Has(name) {
		return fmt.Errorf("%w: %s in workflow %s", ErrDuplicateNode, name, g.name)
	}
	return nil
}

// Connect declares that node `to` consumes the output of node `from`.
// Connections that would create a cycle are rejected.
func (g *Graph) Connect(from, to string) error {
	for _, name := range []string{from, to} {
		if _, ok := g.nodes[name]; !ok {
			return fmt.Errorf("%w: %s in workflow %s", ErrNodeNotFound, name, g.name)
		}
	}
	if err := g.topo.AddEdge(from, to); err != nil {
		return err
	}
	if err := g.topo.DetectCycles(); err != nil {
		g.topo.RemoveEdge(from, to)
		return fmt.Errorf("cannot connect %s -> %s: %w", from, to, err)
	}
	if err := g.reorder(); err != nil {
		g.topo.RemoveEdge(from, to)
		return err
	}
	return nil
}

// reorder refreshes the cached topological order after a change.
func (g *Graph) reorder() error {
	order, err := g.topo.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("workflow %s: %w", g.name, err)
	}
	g.order = order
	return nil
}

// Node looks a direct node up by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the direct nodes in topological order. The order is
// computed whenever the graph changes.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, id := range g.order {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Upstream returns the names of the nodes that feed into name.
func (g *Graph) Upstream(name string) ([]string, error) {
	return g.topo.Dependencies(name)
}

// Downstream returns the names of the nodes that consume name's output.
func (g *Graph) Downstream(name string) ([]string, error) {
	return g.topo.Dependents(name)
}

// Subgraphs returns the attached child workflows in attachment order.
func (g *Graph) Subgraphs() []*Graph {
	out := make([]*Graph, len(g.children))
	copy(out, g.children)
	return out
}

// Subgraph looks up a direct child workflow by name.
func (g *Graph) Subgraph(name string) (*Graph, bool) {
	for _, c := range g.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup resolves a dotted path relative to g, e.g.
// "single_subject_01_wf.datasource".
func (g *Graph) Lookup(path string) (*Node, error) {
	addr, err := nodeid.Parse(path)
	if err != nil {
		return nil, err
	}
	return g.lookup(addr, path)
}

func (g *Graph) lookup(addr nodeid.Address, path string) (*Node, error) {
	head, rest := addr.Head()
	if rest.IsZero() {
		if n, ok := g.nodes[head]; ok {
			return n, nil
		}
		return nil, fmt.Errorf("%w: %s in workflow %s", ErrNodeNotFound, path, g.name)
	}
	child, ok := g.Subgraph(head)
	if !ok {
		return nil, fmt.Errorf("%w: %s in workflow %s", ErrNodeNotFound, path, g.name)
	}
	return child.lookup(rest, path)
}

// AllNodes returns the graph's own nodes followed by every sub-graph's nodes,
// depth first.
func (g *Graph) AllNodes() []*Node {
	out := g.Nodes()
	for _, c := range g.children {
		out = append(out, c.AllNodes()...)
	}
	return out
}
